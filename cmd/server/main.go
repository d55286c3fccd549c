package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/procurement-api/internal/auth"
	"github.com/ksred/procurement-api/internal/catalog"
	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/database"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/orders"
	"github.com/ksred/procurement-api/internal/reconcile"
	"github.com/ksred/procurement-api/pkg/events"
	"github.com/ksred/procurement-api/pkg/locks"
	"github.com/ksred/procurement-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the procurement API server with graceful
// shutdown support. It sets up all required services, the database
// connection, API routes and the background reconciliation processor.
func main() {
	// Initialize database
	db, err := database.NewDatabase(os.Getenv("DB_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "procurement-secret-key"
	}

	// Optional order event stream; nil publisher drops events
	var publisher *events.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "order-events"
		}
		publisher = events.NewPublisher(strings.Split(brokers, ","), topic)
		defer publisher.Close()
	}

	// External ledger; nil when unconfigured, which puts the attestation
	// gateway in stub mode
	ledger := chain.NewHTTPLedger(os.Getenv("CHAIN_RPC_URL"), os.Getenv("CHAIN_PRIVATE_KEY"))
	gateway := chain.NewGateway(ledgerOrNil(ledger))

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(db, jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)

	catalogService := catalog.NewService(db)
	catalogHandlers := catalog.NewGinHandlers(catalogService)

	inventoryService := inventory.NewService(db)
	inventoryHandlers := inventory.NewGinHandlers(inventoryService)

	// Shared per-order lock set: the order service and the reconciliation
	// sweeper transition the same rows
	orderLocks := locks.NewKeyed()

	syncApply := os.Getenv("SYNC_TRANSITIONS") == "true"
	orderService := orders.NewService(db, inventoryService, gateway, publisher, syncApply, orderLocks)
	orderHandlers := orders.NewGinHandlers(orderService)

	// Start the reconciliation processor when a ledger is configured
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	if ledger != nil {
		reconcileService := reconcile.NewService(db, ledger, inventoryService, publisher, orderLocks)
		processor := reconcile.NewProcessor(reconcileService, 0)
		go processor.Start(processorCtx)
	} else {
		zlog.Warn().Msg("no ledger configured, reconciliation processor disabled")
	}

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, authHandlers, catalogHandlers, inventoryHandlers, orderHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// ledgerOrNil avoids handing the gateway a typed nil interface value.
func ledgerOrNil(l *chain.HTTPLedger) chain.Ledger {
	if l == nil {
		return nil
	}
	return l
}

// setupRoutes configures all API endpoints and their handlers. Auth routes
// are public; everything else requires a valid JWT.
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	catalogHandlers *catalog.GinHandlers,
	inventoryHandlers *inventory.GinHandlers,
	orderHandlers *orders.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(jwtSecret))
		{
			ordersGroup := protected.Group("/orders")
			{
				ordersGroup.POST("", orderHandlers.CreateOrderHandler())
				ordersGroup.GET("", orderHandlers.GetOrdersHandler())
				ordersGroup.PATCH("/:order_id/assign-supplier", orderHandlers.AssignSupplierHandler())
				ordersGroup.PATCH("/:order_id/status", orderHandlers.UpdateStatusHandler())
				ordersGroup.POST("/:order_id/items", orderHandlers.AddItemHandler())
				ordersGroup.GET("/:order_id/items", orderHandlers.GetItemsHandler())
				ordersGroup.PUT("/:order_id/items/:item_id", orderHandlers.UpdateItemHandler())
				ordersGroup.DELETE("/:order_id/items/:item_id", orderHandlers.DeleteItemHandler())
				ordersGroup.POST("/:order_id/transactions", orderHandlers.RecordTransactionHandler())
				ordersGroup.GET("/:order_id/transactions", orderHandlers.GetTransactionsHandler())
			}

			inventoryGroup := protected.Group("/inventory")
			{
				inventoryGroup.POST("", inventoryHandlers.AddStockHandler())
				inventoryGroup.DELETE("", inventoryHandlers.RemoveStockHandler())
				inventoryGroup.GET("/warehouse/:warehouse_id", inventoryHandlers.GetWarehouseInventoryHandler())
				inventoryGroup.GET("/product/:product_id", inventoryHandlers.GetProductInventoryHandler())
			}

			suppliersGroup := protected.Group("/suppliers")
			{
				suppliersGroup.POST("", catalogHandlers.CreateSupplierHandler())
				suppliersGroup.GET("", catalogHandlers.GetSuppliersHandler())
				suppliersGroup.PUT("/:supplier_id", catalogHandlers.UpdateSupplierHandler())
				suppliersGroup.DELETE("/:supplier_id", catalogHandlers.DeleteSupplierHandler())
			}

			warehousesGroup := protected.Group("/warehouses")
			{
				warehousesGroup.POST("", catalogHandlers.CreateWarehouseHandler())
				warehousesGroup.GET("", catalogHandlers.GetWarehousesHandler())
				warehousesGroup.PUT("/:warehouse_id", catalogHandlers.UpdateWarehouseHandler())
				warehousesGroup.DELETE("/:warehouse_id", catalogHandlers.DeleteWarehouseHandler())
			}

			productsGroup := protected.Group("/products")
			{
				productsGroup.POST("", catalogHandlers.CreateProductHandler())
				productsGroup.GET("", catalogHandlers.GetProductsHandler())
				productsGroup.PUT("/:product_id", catalogHandlers.UpdateProductHandler())
				productsGroup.DELETE("/:product_id", catalogHandlers.DeleteProductHandler())
			}
		}
	}
}
