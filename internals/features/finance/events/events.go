// Package events menerbitkan domain event pembayaran & enrollment.
// Kegagalan publish hanya di-log, tidak pernah menggagalkan alur checkout.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TopicEnrollmentCreated = "course.enrollment.created"
	TopicPaymentCompleted  = "course.payment.completed"
)

type EnrollmentCreated struct {
	EnrollmentID         uuid.UUID `json:"enrollment_id"`
	UserID               uuid.UUID `json:"user_id"`
	CourseID             uuid.UUID `json:"course_id"`
	AmountPaid           string    `json:"amount_paid"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	// checkout_free | callback | reverify | notification | sweep
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PaymentCompleted struct {
	Reference  string    `json:"reference"`
	UserID     uuid.UUID `json:"user_id"`
	CourseID   uuid.UUID `json:"course_id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Provider   string    `json:"provider"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishEnrollmentCreated(ctx context.Context, e EnrollmentCreated)
	PublishPaymentCompleted(ctx context.Context, e PaymentCompleted)
	Close() error
}
