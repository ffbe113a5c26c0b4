package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	enrollmentService "courseku_backend/internals/features/courses/enrollments/service"
	"courseku_backend/internals/features/finance/gateway"
	txModel "courseku_backend/internals/features/finance/transactions/model"
	txService "courseku_backend/internals/features/finance/transactions/service"
)

/* =========================================================
   2) Callback redirect gateway
========================================================= */

func (s *Service) HandleCallback(ctx context.Context, reference string) (VerifyResult, error) {
	tx, err := s.findTransaction(ctx, reference)
	if err != nil {
		s.Metrics.Reconcile(EntryCallback, "not_found")
		return VerifyResult{}, err
	}
	return s.reconcileCounted(ctx, EntryCallback, tx, 0)
}

/* =========================================================
   3) Verifikasi ulang manual oleh payer
========================================================= */

func (s *Service) Reverify(ctx context.Context, userID uuid.UUID, reference string) (VerifyResult, error) {
	tx, err := s.findTransaction(ctx, reference)
	if err != nil {
		s.Metrics.Reconcile(EntryReverify, "not_found")
		return VerifyResult{}, err
	}
	if tx.TransactionUserID != userID {
		return VerifyResult{}, ErrForbidden
	}
	return s.reconcileCounted(ctx, EntryReverify, tx, s.VerifyMinInterval)
}

/* =========================================================
   4) Notifikasi HTTP Midtrans
========================================================= */

// Notification: field minimum dari body notifikasi Midtrans.
type Notification struct {
	OrderID           string
	StatusCode        string
	GrossAmount       string
	SignatureKey      string
	TransactionStatus string
}

// HandleNotification hanya memakai notifikasi sebagai pemicu. Status di body
// tidak dipercaya; keputusan tetap dari Verify ke gateway.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (VerifyResult, error) {
	if strings.TrimSpace(s.NotificationKey) == "" {
		return VerifyResult{}, fmt.Errorf("%w: notifikasi gateway tidak diaktifkan", ErrValidation)
	}
	if !gateway.VerifyNotificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, s.NotificationKey, n.SignatureKey) {
		log.Printf("[WARN] signature notifikasi tidak valid untuk order %s", n.OrderID)
		s.Metrics.Reconcile(EntryNotification, "invalid_signature")
		return VerifyResult{}, ErrInvalidSignature
	}

	tx, err := s.findTransaction(ctx, n.OrderID)
	if err != nil {
		s.Metrics.Reconcile(EntryNotification, "not_found")
		return VerifyResult{}, err
	}
	log.Printf("[INFO] 🔔 notifikasi %s status=%s", n.OrderID, n.TransactionStatus)
	return s.reconcileCounted(ctx, EntryNotification, tx, 0)
}

/* =========================================================
   Mesin rekonsiliasi bersama
========================================================= */

func (s *Service) reconcileCounted(ctx context.Context, entry string, tx *txModel.Transaction, minInterval time.Duration) (VerifyResult, error) {
	res, err := s.reconcile(ctx, entry, tx, minInterval)
	s.Metrics.Reconcile(entry, outcomeLabel(res, err))
	return res, err
}

func (s *Service) reconcile(ctx context.Context, entry string, tx *txModel.Transaction, minInterval time.Duration) (VerifyResult, error) {
	ref := tx.TransactionReference

	// sudah lunas: jangan tanya gateway lagi, cukup pastikan enrollment ada.
	// Status failed tetap diverifikasi supaya konflik (gateway bilang sukses) tercatat.
	if tx.TransactionStatus == txModel.TransactionStatusCompleted {
		return s.repair(ctx, entry, tx)
	}

	// hanya verifikasi manual yang mencap last_verified_at & kena throttle
	if err := s.Ledger.RecordVerifyAttempt(ctx, ref, entry == EntryReverify, minInterval); err != nil {
		if errors.Is(err, txService.ErrThrottled) {
			return VerifyResult{}, ErrTooManyAttempts
		}
		if errors.Is(err, txService.ErrNotFound) {
			return VerifyResult{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return VerifyResult{}, err
	}

	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	started := time.Now()
	vr, err := s.Gateway.Verify(gctx, ref)
	s.Metrics.ObserveGateway("verify", s.Gateway.Name(), started)
	if err != nil {
		log.Printf("[WARN] verify %s (%s) gagal dihubungi: %v", ref, entry, err)
		return VerifyResult{}, fmt.Errorf("verify %s: %w", ref, asUnavailable(err))
	}

	switch vr.Outcome {
	case gateway.OutcomeSuccess:
		return s.complete(ctx, entry, tx, vr)

	case gateway.OutcomeFailed:
		tr, err := s.Ledger.MarkFailed(ctx, ref, vr.RawPayload)
		if err != nil {
			return VerifyResult{}, fmt.Errorf("tandai gagal %s: %w", ref, err)
		}
		log.Printf("[INFO] ❌ pembayaran %s gagal (status gateway: %s)", ref, vr.ProviderStatus)
		return failedResult(tr.Transaction, failureReason(vr)), nil

	default:
		if tx.TransactionStatus == txModel.TransactionStatusFailed {
			return failedResult(tx, "pembayaran sudah tercatat gagal"), nil
		}
		if err := s.Ledger.EnrichPayload(ctx, ref, vr.RawPayload); err != nil {
			log.Printf("[WARN] gagal simpan payload pending %s: %v", ref, err)
		}
		return stillPendingResult(tx), nil
	}
}

// complete: kebijakan nominal → MarkCompleted → Enroll.
func (s *Service) complete(ctx context.Context, entry string, tx *txModel.Transaction, vr gateway.VerifyResult) (VerifyResult, error) {
	ref := tx.TransactionReference
	billed := tx.TransactionAmount

	// nominal nol = gateway tidak melaporkan, pakai nominal ledger.
	// Transaksi failed langsung ke MarkCompleted supaya ditolak sebagai konflik status.
	reported := vr.Amount
	if tx.TransactionStatus != txModel.TransactionStatusFailed && reported.IsPositive() && reported.LessThan(billed) {
		note := fmt.Sprintf("gateway melaporkan %s, tagihan %s", reported.String(), billed.String())
		log.Printf("[ERROR] nominal kurang untuk %s: %s", ref, note)
		if err := s.Ledger.FlagForReview(ctx, ref, note); err != nil {
			log.Printf("[ERROR] gagal flag review %s: %v", ref, err)
		}
		return VerifyResult{}, fmt.Errorf("%w: %s", ErrAmountMismatch, note)
	}

	tr, err := s.Ledger.MarkCompleted(ctx, ref, vr.RawPayload, s.now())
	if err != nil {
		return VerifyResult{}, fmt.Errorf("tandai lunas %s: %w", ref, err)
	}
	if tr.Changed {
		log.Printf("[INFO] ✅ pembayaran %s lunas (%s)", ref, entry)
		s.publishPayment(ctx, tr.Transaction)
	}

	if reported.GreaterThan(billed) {
		note := fmt.Sprintf("gateway melaporkan %s, lebih besar dari tagihan %s", reported.String(), billed.String())
		log.Printf("[WARN] nominal lebih untuk %s: %s", ref, note)
		if err := s.Ledger.FlagForReview(ctx, ref, note); err != nil {
			log.Printf("[ERROR] gagal flag review %s: %v", ref, err)
		}
	}

	er, err := s.enroll(ctx, entry, enrollmentService.EnrollInput{
		UserID:               tx.TransactionUserID,
		CourseID:             tx.TransactionCourseID,
		AmountPaid:           billed,
		TransactionReference: ref,
	})
	if err != nil {
		// transaksi sudah completed, callback/verify berikutnya masuk repair path
		log.Printf("[ERROR] enroll setelah lunas %s gagal: %v", ref, err)
		return VerifyResult{}, err
	}
	return completedResult(tr.Transaction, er.Enrollment, false, !er.Created), nil
}

// repair: transaksi completed, pastikan enrollment ada tanpa memanggil gateway.
func (s *Service) repair(ctx context.Context, entry string, tx *txModel.Transaction) (VerifyResult, error) {
	er, err := s.enroll(ctx, entry, enrollmentService.EnrollInput{
		UserID:               tx.TransactionUserID,
		CourseID:             tx.TransactionCourseID,
		AmountPaid:           tx.TransactionAmount,
		TransactionReference: tx.TransactionReference,
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if er.Created {
		log.Printf("[WARN] 🔧 %v: %s, enrollment dibuat ulang (%s)", ErrConsistencyRepairNeeded, tx.TransactionReference, entry)
		return completedResult(tx, er.Enrollment, true, false), nil
	}
	return completedResult(tx, er.Enrollment, false, true), nil
}

func (s *Service) findTransaction(ctx context.Context, reference string) (*txModel.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference wajib diisi", ErrValidation)
	}
	tx, err := s.Ledger.FindByReference(ctx, reference)
	if errors.Is(err, txService.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, reference)
	}
	return tx, err
}

func failureReason(vr gateway.VerifyResult) string {
	if vr.ProviderStatus != "" {
		return "pembayaran " + vr.ProviderStatus
	}
	return "pembayaran gagal"
}

func outcomeLabel(res VerifyResult, err error) string {
	switch {
	case errors.Is(err, ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrTooManyAttempts):
		return "throttled"
	case err != nil:
		return "error"
	case res.Repaired:
		return "repaired"
	}
	return string(res.Kind)
}
