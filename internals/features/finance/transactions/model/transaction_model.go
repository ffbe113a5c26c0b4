package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ===================== Enums (string) ===================== */

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// IsTerminal: completed & failed tidak boleh berpindah status lagi.
// cancelled bukan terminal, verifikasi gateway tetap bisa menimpanya.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

/* ===================== Model ===================== */

type Transaction struct {
	TransactionID uuid.UUID `gorm:"column:transaction_id;type:uuid;primaryKey" json:"transaction_id"`

	// Idempotency key seluruh alur, dipakai juga sebagai order_id di gateway
	TransactionReference string `gorm:"column:transaction_reference;type:varchar(64);not null;uniqueIndex:uq_transaction_reference" json:"transaction_reference"`

	TransactionUserID   uuid.UUID `gorm:"column:transaction_user_id;type:uuid;not null;index:idx_transaction_user_course" json:"transaction_user_id"`
	TransactionCourseID uuid.UUID `gorm:"column:transaction_course_id;type:uuid;not null;index:idx_transaction_user_course" json:"transaction_course_id"`

	// Nominal & mata uang
	TransactionAmount   decimal.Decimal `gorm:"column:transaction_amount;type:numeric(12,2);not null" json:"transaction_amount"`
	TransactionCurrency string          `gorm:"column:transaction_currency;type:varchar(8);not null;default:'IDR'" json:"transaction_currency"`

	TransactionStatus TransactionStatus `gorm:"column:transaction_status;type:varchar(16);not null;default:'pending';index" json:"transaction_status"`

	// Info gateway
	TransactionGatewayProvider string         `gorm:"column:transaction_gateway_provider;type:varchar(32)" json:"transaction_gateway_provider"`
	TransactionCheckoutURL     *string        `gorm:"column:transaction_checkout_url" json:"transaction_checkout_url,omitempty"`
	TransactionGatewayPayload  datatypes.JSON `gorm:"column:transaction_gateway_payload;type:jsonb" json:"transaction_gateway_payload,omitempty"`

	// Counter verifikasi per reference (pengganti rate limit berbasis session)
	TransactionVerifyAttempts int        `gorm:"column:transaction_verify_attempts;not null;default:0" json:"transaction_verify_attempts"`
	TransactionLastVerifiedAt *time.Time `gorm:"column:transaction_last_verified_at" json:"transaction_last_verified_at,omitempty"`

	// Ditandai saat ada inkonsistensi (nominal beda, konflik status terminal)
	TransactionNeedsReview bool    `gorm:"column:transaction_needs_review;not null;default:false" json:"transaction_needs_review"`
	TransactionReviewNote  *string `gorm:"column:transaction_review_note" json:"transaction_review_note,omitempty"`

	// Timestamps penting
	TransactionPaidAt      *time.Time `gorm:"column:transaction_paid_at" json:"transaction_paid_at,omitempty"`
	TransactionFailedAt    *time.Time `gorm:"column:transaction_failed_at" json:"transaction_failed_at,omitempty"`
	TransactionCancelledAt *time.Time `gorm:"column:transaction_cancelled_at" json:"transaction_cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"column:transaction_created_at;autoCreateTime" json:"transaction_created_at"`
	UpdatedAt time.Time `gorm:"column:transaction_updated_at;autoUpdateTime" json:"transaction_updated_at"`
}

func (Transaction) TableName() string { return "course_transactions" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TransactionID == uuid.Nil {
		t.TransactionID = uuid.New()
	}
	return nil
}

/* ===================== Helpers ===================== */

func (t *Transaction) IsCompleted() bool { return t.TransactionStatus == TransactionStatusCompleted }
func (t *Transaction) IsFailed() bool    { return t.TransactionStatus == TransactionStatusFailed }

func (t *Transaction) IsOpen() bool {
	return t.TransactionStatus == TransactionStatusPending || t.TransactionStatus == TransactionStatusCancelled
}
