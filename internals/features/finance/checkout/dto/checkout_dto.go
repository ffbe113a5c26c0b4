package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

/* ===================== Request ===================== */

type CheckoutRequest struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
}

type VerifyRequest struct {
	Reference string `json:"reference" validate:"required,max=64"`
}

// MidtransNotificationRequest: subset body HTTP notification Midtrans.
type MidtransNotificationRequest struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

func (r *CheckoutRequest) Normalize() {
	r.CourseID = strings.TrimSpace(r.CourseID)
}

func (r *VerifyRequest) Normalize() {
	r.Reference = strings.TrimSpace(r.Reference)
}

// FieldErrors: ubah validator.ValidationErrors ke bentuk {field: [tag]}.
func FieldErrors(err error) map[string][]string {
	out := map[string][]string{}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		out["_"] = []string{err.Error()}
		return out
	}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Field() {
		case "CourseID":
			field = "course_id"
		case "Reference":
			field = "reference"
		case "OrderID":
			field = "order_id"
		case "StatusCode":
			field = "status_code"
		case "GrossAmount":
			field = "gross_amount"
		case "SignatureKey":
			field = "signature_key"
		}
		out[field] = append(out[field], fe.Tag())
	}
	return out
}

/* ===================== Response ===================== */

// CheckoutResponse mengikuti kontrak UI: field opsional hanya muncul sesuai hasil.
type CheckoutResponse struct {
	Success          bool   `json:"success"`
	FreeCourse       bool   `json:"free_course,omitempty"`
	AlreadyEnrolled  bool   `json:"already_enrolled,omitempty"`
	RedirectURL      string `json:"redirect_url,omitempty"`
	PaymentRequired  bool   `json:"payment_required,omitempty"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	Reference        string `json:"reference,omitempty"`
	Amount           string `json:"amount,omitempty"`
	Message          string `json:"message"`
}

type VerifyResponse struct {
	Success  bool   `json:"success"`
	Status   string `json:"status"`
	Enrolled bool   `json:"enrolled"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}
