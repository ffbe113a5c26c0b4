package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Enrollment: hak akses user ke satu course. (user, course) unik di level DB,
// jadi dua request bersamaan tidak pernah menghasilkan dua baris.
type Enrollment struct {
	EnrollmentID uuid.UUID `gorm:"column:enrollment_id;type:uuid;primaryKey" json:"enrollment_id"`

	EnrollmentUserID   uuid.UUID `gorm:"column:enrollment_user_id;type:uuid;not null;uniqueIndex:uq_enrollment_user_course,priority:1" json:"enrollment_user_id"`
	EnrollmentCourseID uuid.UUID `gorm:"column:enrollment_course_id;type:uuid;not null;uniqueIndex:uq_enrollment_user_course,priority:2;index:idx_enrollment_course" json:"enrollment_course_id"`

	// 0 untuk course gratis
	EnrollmentAmountPaid decimal.Decimal `gorm:"column:enrollment_amount_paid;type:numeric(12,2);not null;default:0" json:"enrollment_amount_paid"`

	// null untuk course gratis
	EnrollmentTransactionReference *string `gorm:"column:enrollment_transaction_reference;type:varchar(64)" json:"enrollment_transaction_reference,omitempty"`

	// diisi subsistem progress, di sini hanya default 0
	EnrollmentProgressPercent int `gorm:"column:enrollment_progress_percent;not null;default:0" json:"enrollment_progress_percent"`

	EnrollmentEnrolledAt time.Time `gorm:"column:enrollment_enrolled_at;not null" json:"enrollment_enrolled_at"`

	CreatedAt time.Time `gorm:"column:enrollment_created_at;autoCreateTime" json:"enrollment_created_at"`
	UpdatedAt time.Time `gorm:"column:enrollment_updated_at;autoUpdateTime" json:"enrollment_updated_at"`
}

func (Enrollment) TableName() string { return "course_enrollments" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.EnrollmentID == uuid.Nil {
		e.EnrollmentID = uuid.New()
	}
	if e.EnrollmentEnrolledAt.IsZero() {
		e.EnrollmentEnrolledAt = tx.NowFunc()
	}
	return nil
}

func (e *Enrollment) IsFree() bool { return e.EnrollmentTransactionReference == nil }
