package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPLedger talks to the ledger bridge service, which signs and submits
// transactions on the system's behalf and exposes confirmation lookups.
// Each call is independent and stateless; no ledger-side state is cached.
type HTTPLedger struct {
	baseURL    string
	privateKey string
	client     *http.Client
}

// NewHTTPLedger returns a ledger client, or nil when either the endpoint or
// the signing credential is missing, which callers treat as "unconfigured".
func NewHTTPLedger(baseURL, privateKey string) *HTTPLedger {
	if baseURL == "" || privateKey == "" {
		return nil
	}
	return &HTTPLedger{
		baseURL:    baseURL,
		privateKey: privateKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type submitRequest struct {
	Payload string `json:"payload"`
	Key     string `json:"key"`
}

type submitResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

type confirmationResponse struct {
	Status string `json:"status"` // pending, success, failure
}

func (l *HTTPLedger) SignAndSubmit(ctx context.Context, payload []byte) (string, error) {
	body, err := json.Marshal(submitRequest{
		Payload: "0x" + hex.EncodeToString(payload),
		Key:     l.privateKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode ledger response: %w", err)
	}
	if result.TransactionHash == "" {
		return "", fmt.Errorf("ledger returned empty transaction hash")
	}

	return result.TransactionHash, nil
}

func (l *HTTPLedger) GetConfirmation(ctx context.Context, hash string) (Confirmation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/transactions/"+hash, nil)
	if err != nil {
		return ConfirmationPending, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return ConfirmationPending, fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	// The bridge answers 404 until the transaction is mined.
	if resp.StatusCode == http.StatusNotFound {
		return ConfirmationPending, nil
	}
	if resp.StatusCode != http.StatusOK {
		return ConfirmationPending, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var result confirmationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ConfirmationPending, fmt.Errorf("failed to decode ledger response: %w", err)
	}

	switch result.Status {
	case "success":
		return ConfirmationSuccess, nil
	case "failure":
		return ConfirmationFailure, nil
	default:
		return ConfirmationPending, nil
	}
}
