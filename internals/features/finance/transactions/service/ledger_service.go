package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"courseku_backend/internals/features/finance/gateway"
	"courseku_backend/internals/features/finance/transactions/model"
	helper "courseku_backend/internals/helpers"
)

var (
	ErrNotFound           = errors.New("transaksi tidak ditemukan")
	ErrDuplicateReference = errors.New("reference transaksi sudah dipakai")
	ErrInvalidTransition  = errors.New("perpindahan status transaksi tidak valid")
	ErrThrottled          = errors.New("verifikasi terlalu sering")
)

const maxReferenceAttempts = 3

/* =========================================================
   Ledger: satu-satunya penulis tabel course_transactions
========================================================= */

type Ledger struct {
	DB *gorm.DB

	// NewReference bisa diganti di test untuk memaksa bentrok reference.
	NewReference func() string
	Now          func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		DB:           db,
		NewReference: func() string { return gateway.NewReference(gateway.DefaultReferencePrefix) },
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	Amount   decimal.Decimal
	Currency string
	Provider string
}

// TransitionResult: Changed=false artinya status sudah di state tujuan (no-op).
type TransitionResult struct {
	Transaction *model.Transaction
	Changed     bool
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) reference() string {
	if l.NewReference != nil {
		return l.NewReference()
	}
	return gateway.NewReference(gateway.DefaultReferencePrefix)
}

// Create selalu membuat baris pending baru. Kalau reference bentrok,
// reference dibuat ulang maksimal 3x sebelum ErrDuplicateReference.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (*model.Transaction, error) {
	if in.UserID == uuid.Nil || in.CourseID == uuid.Nil {
		return nil, fmt.Errorf("create transaksi: user_id & course_id wajib")
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("create transaksi: amount harus > 0")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "IDR"
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		row := &model.Transaction{
			TransactionReference:       l.reference(),
			TransactionUserID:          in.UserID,
			TransactionCourseID:        in.CourseID,
			TransactionAmount:          in.Amount,
			TransactionCurrency:        currency,
			TransactionStatus:          model.TransactionStatusPending,
			TransactionGatewayProvider: in.Provider,
		}
		err := l.DB.WithContext(ctx).Create(row).Error
		if err == nil {
			return row, nil
		}
		if !helper.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create transaksi: %w", err)
		}
		log.Printf("[WARN] reference %s bentrok (percobaan %d/%d)", row.TransactionReference, attempt, maxReferenceAttempts)
	}
	return nil, ErrDuplicateReference
}

func (l *Ledger) FindByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	return findByReference(l.DB.WithContext(ctx), reference)
}

func findByReference(db *gorm.DB, reference string) (*model.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrNotFound
	}
	var row model.Transaction
	err := db.Where("transaction_reference = ?", reference).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AttachCheckout menyimpan URL pembayaran + payload initialize.
func (l *Ledger) AttachCheckout(ctx context.Context, reference, checkoutURL string, payload []byte) error {
	updates := map[string]any{
		"transaction_checkout_url": checkoutURL,
		"transaction_updated_at":   l.now(),
	}
	if p := toJSON(payload); p != nil {
		updates["transaction_gateway_payload"] = p
	}
	return l.updateByReference(ctx, reference, updates)
}

// Discard menghapus baris pending yang ditolak gateway saat initialize,
// supaya tidak ada transaksi yatim. Baris yang sudah bergerak tidak disentuh.
func (l *Ledger) Discard(ctx context.Context, reference string) error {
	res := l.DB.WithContext(ctx).
		Where("transaction_reference = ? AND transaction_status = ?", reference, model.TransactionStatusPending).
		Delete(&model.Transaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

/* =========================================================
   Transisi status
========================================================= */

// MarkCompleted: pending/cancelled → completed. Completed lagi = no-op.
// Failed → ErrInvalidTransition dan baris ditandai needs_review.
func (l *Ledger) MarkCompleted(ctx context.Context, reference string, payload []byte, paidAt time.Time) (TransitionResult, error) {
	if paidAt.IsZero() {
		paidAt = l.now()
	}
	updates := map[string]any{
		"transaction_status":     model.TransactionStatusCompleted,
		"transaction_paid_at":    paidAt.UTC(),
		"transaction_updated_at": l.now(),
	}
	if p := toJSON(payload); p != nil {
		updates["transaction_gateway_payload"] = p
	}
	return l.transition(ctx, reference, model.TransactionStatusCompleted, []model.TransactionStatus{
		model.TransactionStatusPending, model.TransactionStatusCancelled,
	}, updates)
}

// MarkFailed: pending/cancelled → failed. Completed → ErrInvalidTransition.
func (l *Ledger) MarkFailed(ctx context.Context, reference string, payload []byte) (TransitionResult, error) {
	now := l.now()
	updates := map[string]any{
		"transaction_status":     model.TransactionStatusFailed,
		"transaction_failed_at":  now,
		"transaction_updated_at": now,
	}
	if p := toJSON(payload); p != nil {
		updates["transaction_gateway_payload"] = p
	}
	return l.transition(ctx, reference, model.TransactionStatusFailed, []model.TransactionStatus{
		model.TransactionStatusPending, model.TransactionStatusCancelled,
	}, updates)
}

// MarkCancelled: hanya dari pending. Payer batal/ gateway tidak bisa dihubungi.
func (l *Ledger) MarkCancelled(ctx context.Context, reference string) (TransitionResult, error) {
	now := l.now()
	return l.transition(ctx, reference, model.TransactionStatusCancelled, []model.TransactionStatus{
		model.TransactionStatusPending,
	}, map[string]any{
		"transaction_status":       model.TransactionStatusCancelled,
		"transaction_cancelled_at": now,
		"transaction_updated_at":   now,
	})
}

// transition: UPDATE bersyarat di dalam tx. Hanya satu writer yang bisa
// memindahkan status, writer lain membaca ulang dan mendapat no-op / error.
func (l *Ledger) transition(
	ctx context.Context,
	reference string,
	target model.TransactionStatus,
	from []model.TransactionStatus,
	updates map[string]any,
) (TransitionResult, error) {
	var out TransitionResult
	var conflict *model.Transaction

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// kunci baris dulu (SELECT ... FOR UPDATE)
		if _, err := findByReference(tx.Clauses(clause.Locking{Strength: "UPDATE"}), reference); err != nil {
			return err
		}

		res := tx.Model(&model.Transaction{}).
			Where("transaction_reference = ? AND transaction_status IN ?", reference, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		row, err := findByReference(tx, reference)
		if err != nil {
			return err
		}
		out.Transaction = row

		if res.RowsAffected > 0 {
			out.Changed = true
			return nil
		}
		if row.TransactionStatus == target {
			return nil
		}
		conflict = row
		return ErrInvalidTransition
	})

	if errors.Is(err, ErrInvalidTransition) && conflict != nil {
		log.Printf("[ERROR] transisi %s → %s ditolak untuk %s", conflict.TransactionStatus, target, reference)
		if target != model.TransactionStatusCancelled {
			note := fmt.Sprintf("konflik status: tercatat %s, gateway melaporkan %s", conflict.TransactionStatus, target)
			if ferr := l.FlagForReview(ctx, reference, note); ferr != nil {
				log.Printf("[ERROR] gagal flag review %s: %v", reference, ferr)
			}
			conflict.TransactionNeedsReview = true
			conflict.TransactionReviewNote = &note
		}
		return TransitionResult{Transaction: conflict}, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, conflict.TransactionStatus, target)
	}
	if err != nil {
		return TransitionResult{}, err
	}
	return out, nil
}

/* =========================================================
   Metadata (boleh di semua status)
========================================================= */

// RecordVerifyAttempt menaikkan counter verifikasi. Hanya percobaan manual yang
// mencap last_verified_at; minInterval > 0 menolak (ErrThrottled) percobaan manual
// yang datang sebelum interval sejak percobaan manual terakhir.
func (l *Ledger) RecordVerifyAttempt(ctx context.Context, reference string, manual bool, minInterval time.Duration) error {
	now := l.now()
	q := l.DB.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_reference = ?", reference)
	updates := map[string]any{
		"transaction_verify_attempts": gorm.Expr("transaction_verify_attempts + 1"),
		"transaction_updated_at":      now,
	}
	if manual {
		updates["transaction_last_verified_at"] = now
		if minInterval > 0 {
			q = q.Where("(transaction_last_verified_at IS NULL OR transaction_last_verified_at <= ?)", now.Add(-minInterval))
		}
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := l.FindByReference(ctx, reference); err != nil {
			return err
		}
		return ErrThrottled
	}
	return nil
}

func (l *Ledger) EnrichPayload(ctx context.Context, reference string, payload []byte) error {
	p := toJSON(payload)
	if p == nil {
		return nil
	}
	return l.updateByReference(ctx, reference, map[string]any{
		"transaction_gateway_payload": p,
		"transaction_updated_at":      l.now(),
	})
}

func (l *Ledger) FlagForReview(ctx context.Context, reference, note string) error {
	return l.updateByReference(ctx, reference, map[string]any{
		"transaction_needs_review": true,
		"transaction_review_note":  note,
		"transaction_updated_at":   l.now(),
	})
}

func (l *Ledger) updateByReference(ctx context.Context, reference string, updates map[string]any) error {
	res := l.DB.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_reference = ?", reference).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

/* =========================================================
   Query
========================================================= */

type ListFilter struct {
	Status *model.TransactionStatus
	Offset int
	Limit  int
}

func (l *Ledger) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]model.Transaction, int64, error) {
	q := l.DB.WithContext(ctx).Model(&model.Transaction{}).
		Where("transaction_user_id = ?", userID)
	if f.Status != nil {
		q = q.Where("transaction_status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.Transaction
	if err := q.Order("transaction_created_at DESC").
		Offset(f.Offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListStalePending: bahan sweep, transaksi pending yang dibuat sebelum olderThan.
func (l *Ledger) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.Transaction
	err := l.DB.WithContext(ctx).
		Where("transaction_status = ? AND transaction_created_at < ?", model.TransactionStatusPending, olderThan.UTC()).
		Order("transaction_created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

/* =========================================================
   Utils
========================================================= */

// toJSON: payload gateway disimpan apa adanya kalau JSON valid,
// selain itu dibungkus {"raw": "..."} supaya kolom jsonb tetap valid.
func toJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return datatypes.JSON(raw)
	}
	b, _ := sonic.Marshal(map[string]string{"raw": string(raw)})
	return datatypes.JSON(b)
}
