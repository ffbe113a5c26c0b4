package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"courseku_backend/internals/features/courses/catalog/model"
)

var ErrCourseNotFound = errors.New("course tidak ditemukan")

// Catalog adalah akses sempit ke katalog course yang dibutuhkan checkout.
type Catalog interface {
	GetCourseByID(ctx context.Context, courseID uuid.UUID) (*model.Course, error)
	// tx wajib dipakai supaya increment ikut transaksi insert enrollment.
	IncrementEnrollmentCount(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type GormCatalog struct {
	DB *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{DB: db}
}

// GetCourseByID hanya mengembalikan course yang sudah publish.
func (s *GormCatalog) GetCourseByID(ctx context.Context, courseID uuid.UUID) (*model.Course, error) {
	if courseID == uuid.Nil {
		return nil, ErrCourseNotFound
	}
	var c model.Course
	err := s.DB.WithContext(ctx).
		Where("course_id = ? AND course_is_published = ?", courseID, true).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ambil course %s: %w", courseID, err)
	}
	return &c, nil
}

func (s *GormCatalog) IncrementEnrollmentCount(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	if tx == nil {
		tx = s.DB
	}
	res := tx.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", courseID).
		UpdateColumn("course_enrollment_count", gorm.Expr("course_enrollment_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment enrollment count %s: %w", courseID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}
