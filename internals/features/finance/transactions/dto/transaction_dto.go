package dto

import (
	"time"

	"github.com/google/uuid"

	"courseku_backend/internals/features/finance/transactions/model"
)

/* ===================== Response ===================== */

// TransactionResponse: tampilan transaksi untuk payer (tanpa payload gateway mentah).
type TransactionResponse struct {
	TransactionID        uuid.UUID `json:"transaction_id"`
	TransactionReference string    `json:"transaction_reference"`
	TransactionCourseID  uuid.UUID `json:"transaction_course_id"`
	TransactionAmount    string    `json:"transaction_amount"`
	TransactionCurrency  string    `json:"transaction_currency"`
	TransactionStatus    string    `json:"transaction_status"`
	TransactionProvider  string    `json:"transaction_gateway_provider"`

	TransactionCheckoutURL *string    `json:"transaction_checkout_url,omitempty"`
	TransactionPaidAt      *time.Time `json:"transaction_paid_at,omitempty"`
	TransactionFailedAt    *time.Time `json:"transaction_failed_at,omitempty"`
	TransactionCancelledAt *time.Time `json:"transaction_cancelled_at,omitempty"`
	TransactionCreatedAt   time.Time  `json:"transaction_created_at"`
}

func FromModel(m *model.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID:          m.TransactionID,
		TransactionReference:   m.TransactionReference,
		TransactionCourseID:    m.TransactionCourseID,
		TransactionAmount:      m.TransactionAmount.StringFixed(2),
		TransactionCurrency:    m.TransactionCurrency,
		TransactionStatus:      string(m.TransactionStatus),
		TransactionProvider:    m.TransactionGatewayProvider,
		TransactionPaidAt:      m.TransactionPaidAt,
		TransactionFailedAt:    m.TransactionFailedAt,
		TransactionCancelledAt: m.TransactionCancelledAt,
		TransactionCreatedAt:   m.CreatedAt,
	}
	// URL bayar hanya relevan selama transaksi masih terbuka
	if m.IsOpen() {
		resp.TransactionCheckoutURL = m.TransactionCheckoutURL
	}
	return resp
}

func FromModels(rows []model.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
