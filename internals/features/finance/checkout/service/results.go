package service

import (
	"github.com/shopspring/decimal"

	enrollmentModel "courseku_backend/internals/features/courses/enrollments/model"
	txModel "courseku_backend/internals/features/finance/transactions/model"
)

/* =========================================================
   CheckoutResult = Free | PaymentRequired | Rejected
========================================================= */

type CheckoutKind string

const (
	CheckoutFree            CheckoutKind = "free"
	CheckoutPaymentRequired CheckoutKind = "payment_required"
	CheckoutRejected        CheckoutKind = "rejected"
)

type CheckoutResult struct {
	Kind CheckoutKind

	// Free
	Enrollment      *enrollmentModel.Enrollment
	AlreadyEnrolled bool

	// PaymentRequired
	RedirectURL string
	Reference   string
	Amount      decimal.Decimal

	// Rejected
	Reason string
}

func freeResult(e *enrollmentModel.Enrollment, alreadyEnrolled bool) CheckoutResult {
	return CheckoutResult{Kind: CheckoutFree, Enrollment: e, AlreadyEnrolled: alreadyEnrolled}
}

func paymentRequiredResult(redirectURL, reference string, amount decimal.Decimal) CheckoutResult {
	return CheckoutResult{Kind: CheckoutPaymentRequired, RedirectURL: redirectURL, Reference: reference, Amount: amount}
}

func rejectedResult(reason string) CheckoutResult {
	return CheckoutResult{Kind: CheckoutRejected, Reason: reason}
}

/* =========================================================
   VerifyResult = Completed | Failed | StillPending
========================================================= */

type VerifyKind string

const (
	VerifyCompleted    VerifyKind = "completed"
	VerifyFailed       VerifyKind = "failed"
	VerifyStillPending VerifyKind = "still_pending"
)

type VerifyResult struct {
	Kind        VerifyKind
	Transaction *txModel.Transaction

	// Completed
	Enrollment      *enrollmentModel.Enrollment
	Repaired        bool // enrollment dibuat lewat repair path
	AlreadyEnrolled bool

	// Failed
	Reason string
}

// Err: Failed → ErrPaymentFailed, selain itu nil.
func (r VerifyResult) Err() error {
	if r.Kind == VerifyFailed {
		return ErrPaymentFailed
	}
	return nil
}

func completedResult(tx *txModel.Transaction, e *enrollmentModel.Enrollment, repaired, already bool) VerifyResult {
	return VerifyResult{Kind: VerifyCompleted, Transaction: tx, Enrollment: e, Repaired: repaired, AlreadyEnrolled: already}
}

func failedResult(tx *txModel.Transaction, reason string) VerifyResult {
	return VerifyResult{Kind: VerifyFailed, Transaction: tx, Reason: reason}
}

func stillPendingResult(tx *txModel.Transaction) VerifyResult {
	return VerifyResult{Kind: VerifyStillPending, Transaction: tx}
}
