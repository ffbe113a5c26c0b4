package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

/*
Course hanya memuat kolom yang dibaca/ditulis oleh engine pembayaran.
Konten course (lesson, quiz, dsb.) dimiliki modul lain.
*/
type Course struct {
	CourseID    uuid.UUID `gorm:"column:course_id;type:uuid;primaryKey" json:"course_id"`
	CourseTitle string    `gorm:"column:course_title;type:varchar(160);not null" json:"course_title"`
	CourseSlug  string    `gorm:"column:course_slug;type:varchar(160);uniqueIndex" json:"course_slug"`

	// Harga (lihat pricing.Resolve)
	CourseIsFree    bool             `gorm:"column:course_is_free;not null;default:false" json:"course_is_free"`
	CoursePrice     decimal.Decimal  `gorm:"column:course_price;type:numeric(12,2);not null;default:0" json:"course_price"`
	CourseSalePrice *decimal.Decimal `gorm:"column:course_sale_price;type:numeric(12,2)" json:"course_sale_price,omitempty"`

	CourseIsPublished     bool  `gorm:"column:course_is_published;not null;default:true" json:"course_is_published"`
	CourseEnrollmentCount int64 `gorm:"column:course_enrollment_count;not null;default:0" json:"course_enrollment_count"`

	CreatedAt time.Time      `gorm:"column:course_created_at;autoCreateTime" json:"course_created_at"`
	UpdatedAt time.Time      `gorm:"column:course_updated_at;autoUpdateTime" json:"course_updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:course_deleted_at;index" json:"course_deleted_at,omitempty"`
}

func (Course) TableName() string { return "courses" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.CourseID == uuid.Nil {
		c.CourseID = uuid.New()
	}
	return nil
}
