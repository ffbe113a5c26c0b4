package dto

import (
	"time"

	"github.com/google/uuid"

	"courseku_backend/internals/features/courses/enrollments/model"
)

type EnrollmentResponse struct {
	EnrollmentID                   uuid.UUID `json:"enrollment_id"`
	EnrollmentCourseID             uuid.UUID `json:"enrollment_course_id"`
	EnrollmentAmountPaid           string    `json:"enrollment_amount_paid"`
	EnrollmentTransactionReference *string   `json:"enrollment_transaction_reference,omitempty"`
	EnrollmentProgressPercent      int       `json:"enrollment_progress_percent"`
	EnrollmentIsFree               bool      `json:"enrollment_is_free"`
	EnrollmentEnrolledAt           time.Time `json:"enrollment_enrolled_at"`
}

func FromModel(m *model.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		EnrollmentID:                   m.EnrollmentID,
		EnrollmentCourseID:             m.EnrollmentCourseID,
		EnrollmentAmountPaid:           m.EnrollmentAmountPaid.StringFixed(2),
		EnrollmentTransactionReference: m.EnrollmentTransactionReference,
		EnrollmentProgressPercent:      m.EnrollmentProgressPercent,
		EnrollmentIsFree:               m.IsFree(),
		EnrollmentEnrolledAt:           m.EnrollmentEnrolledAt,
	}
}

func FromModels(rows []model.Enrollment) []EnrollmentResponse {
	out := make([]EnrollmentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
