// Package gateway membungkus payment gateway eksternal di balik kontrak
// Initialize/Verify yang sudah dinormalisasi. Paket ini tidak pernah
// menyimpan apa pun ke database.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayUnavailable: network/timeout/5xx. Status lokal tidak boleh berubah.
	ErrGatewayUnavailable = errors.New("payment gateway tidak dapat dihubungi")
	// ErrGatewayRejected: gateway menolak request initialize secara eksplisit.
	ErrGatewayRejected = errors.New("payment gateway menolak permintaan")
)

type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeFailed       Outcome = "failed"
	OutcomeStillPending Outcome = "still_pending"
)

type InitializeRequest struct {
	Reference  string
	PayerEmail string
	PayerName  string
	Amount     decimal.Decimal
	Currency   string
	CourseID   uuid.UUID
	UserID     uuid.UUID
	ItemName   string
	Metadata   map[string]string
}

type InitializeResult struct {
	RedirectURL string
	Reference   string
	AccessCode  string // snap token / access code, kalau provider punya
	RawPayload  []byte
}

type VerifyResult struct {
	Outcome Outcome
	// Amount nol berarti gateway tidak melaporkan nominal.
	Amount     decimal.Decimal
	Currency   string
	RawPayload []byte
	// Status mentah dari provider, untuk log/audit.
	ProviderStatus string
}

// Client adalah kapabilitas gateway yang dipakai alur rekonsiliasi.
type Client interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
}

/* =========================================================
   Error
========================================================= */

// Error membawa konteks provider; Kind selalu salah satu sentinel di atas.
type Error struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func unavailable(provider, op string, status int, msg string, err error) error {
	return &Error{Provider: provider, Op: op, StatusCode: status, Message: msg, Kind: ErrGatewayUnavailable, Err: err}
}

func rejected(provider, op string, status int, msg string) error {
	return &Error{Provider: provider, Op: op, StatusCode: status, Message: msg, Kind: ErrGatewayRejected}
}
