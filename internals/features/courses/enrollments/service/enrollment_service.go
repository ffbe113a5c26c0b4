package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogService "courseku_backend/internals/features/courses/catalog/service"
	"courseku_backend/internals/features/courses/enrollments/model"
	helper "courseku_backend/internals/helpers"
)

var (
	ErrNotFound     = errors.New("enrollment tidak ditemukan")
	ErrInvalidInput = errors.New("user_id & course_id wajib diisi")
)

type Service struct {
	DB      *gorm.DB
	Catalog catalogService.Catalog
}

func NewService(db *gorm.DB, catalog catalogService.Catalog) *Service {
	return &Service{DB: db, Catalog: catalog}
}

type EnrollInput struct {
	UserID     uuid.UUID
	CourseID   uuid.UUID
	AmountPaid decimal.Decimal
	// kosong untuk course gratis
	TransactionReference string
}

// EnrollResult: Created=false artinya user sudah terdaftar sebelumnya.
type EnrollResult struct {
	Enrollment *model.Enrollment
	Created    bool
}

// Enroll idempoten per (user, course). Aman dipanggil berulang dan bersamaan.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (EnrollResult, error) {
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return EnrollResult{}, ErrInvalidInput
	}

	existing, err := s.Find(ctx, in.UserID, in.CourseID)
	switch {
	case err == nil:
		return EnrollResult{Enrollment: existing, Created: false}, nil
	case !errors.Is(err, ErrNotFound):
		return EnrollResult{}, err
	}

	return s.insertOrLoad(ctx, in)
}

// insertOrLoad: insert + increment counter dalam satu tx. Kalau kalah balapan
// (unique violation), baris pemenang dibaca ulang dan dikembalikan.
func (s *Service) insertOrLoad(ctx context.Context, in EnrollInput) (EnrollResult, error) {
	row := &model.Enrollment{
		EnrollmentUserID:     in.UserID,
		EnrollmentCourseID:   in.CourseID,
		EnrollmentAmountPaid: in.AmountPaid,
	}
	if ref := strings.TrimSpace(in.TransactionReference); ref != "" {
		row.EnrollmentTransactionReference = &ref
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if s.Catalog == nil {
			return nil
		}
		if err := s.Catalog.IncrementEnrollmentCount(ctx, tx, in.CourseID); err != nil {
			// counter hanya denormalisasi, enrollment tetap sah
			if errors.Is(err, catalogService.ErrCourseNotFound) {
				log.Printf("[WARN] counter enrollment course %s tidak ter-update: %v", in.CourseID, err)
				return nil
			}
			return err
		}
		return nil
	})
	if err == nil {
		log.Printf("[INFO] ✅ enrollment dibuat user=%s course=%s", in.UserID, in.CourseID)
		return EnrollResult{Enrollment: row, Created: true}, nil
	}

	if helper.IsUniqueViolation(err) {
		existing, ferr := s.Find(ctx, in.UserID, in.CourseID)
		if ferr != nil {
			return EnrollResult{}, fmt.Errorf("baca ulang enrollment setelah duplicate: %w", ferr)
		}
		log.Printf("[INFO] enrollment user=%s course=%s sudah ada (duplicate key)", in.UserID, in.CourseID)
		return EnrollResult{Enrollment: existing, Created: false}, nil
	}
	return EnrollResult{}, fmt.Errorf("insert enrollment: %w", err)
}

func (s *Service) Find(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error) {
	var row model.Enrollment
	err := s.DB.WithContext(ctx).
		Where("enrollment_user_id = ? AND enrollment_course_id = ?", userID, courseID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) IsEnrolled(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_user_id = ? AND enrollment_course_id = ?", userID, courseID).
		Count(&n).Error
	return n > 0, err
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Enrollment, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("enrollment_user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.Enrollment
	err := q.Order("enrollment_enrolled_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}
