package chain

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Mode tags how a submission reference was obtained. Callers must treat
// ModeStub as "not actually attested".
type Mode string

const (
	// ModeClient means the caller supplied the reference: it was attested
	// externally and is trusted as-is.
	ModeClient Mode = "client"
	// ModeLive means the payload was signed and submitted to the
	// configured external ledger.
	ModeLive Mode = "live"
	// ModeStub means no ledger is configured and the reference is a
	// locally generated placeholder.
	ModeStub Mode = "stub"
)

// Confirmation is the external ledger's verdict on a submitted reference.
type Confirmation int

const (
	ConfirmationPending Confirmation = iota
	ConfirmationSuccess
	ConfirmationFailure
)

// Ledger is the external ledger collaborator.
type Ledger interface {
	// SignAndSubmit signs the payload digest with the held credential and
	// submits it, returning the resulting transaction hash.
	SignAndSubmit(ctx context.Context, payload []byte) (string, error)
	// GetConfirmation reports whether a previously submitted transaction
	// has been confirmed.
	GetConfirmation(ctx context.Context, hash string) (Confirmation, error)
}

// Intent describes the order transition to attest.
type Intent struct {
	OrderID string `json:"order_id"`
	Action  string `json:"action"`
	// Proof is an optional caller-supplied transaction hash.
	Proof string `json:"-"`
}

// Submission is the tagged result of submitting an intent.
type Submission struct {
	Hash string `json:"transaction_hash"`
	Mode Mode   `json:"mode"`
}

// Gateway submits transition intents to the external ledger, falling back
// to a local stub reference when no ledger is configured.
type Gateway struct {
	ledger Ledger
}

// NewGateway creates a gateway. A nil ledger puts the gateway in stub mode
// for any intent without a caller-supplied proof.
func NewGateway(ledger Ledger) *Gateway {
	return &Gateway{ledger: ledger}
}

// Submit resolves an intent to a transaction reference. Precedence:
// caller-supplied proof, then configured ledger, then stub.
func (g *Gateway) Submit(ctx context.Context, intent Intent) (*Submission, error) {
	if intent.Proof != "" {
		return &Submission{Hash: intent.Proof, Mode: ModeClient}, nil
	}

	if g.ledger == nil {
		hash, err := stubHash()
		if err != nil {
			return nil, err
		}
		return &Submission{Hash: hash, Mode: ModeStub}, nil
	}

	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, fmt.Errorf("failed to encode intent payload: %w", err)
	}
	digest := sha256.Sum256(payload)

	hash, err := g.ledger.SignAndSubmit(ctx, digest[:])
	if err != nil {
		return nil, fmt.Errorf("ledger submission failed: %w", err)
	}

	return &Submission{Hash: hash, Mode: ModeLive}, nil
}

func stubHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
