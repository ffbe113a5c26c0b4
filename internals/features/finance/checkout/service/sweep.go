package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	txModel "courseku_backend/internals/features/finance/transactions/model"
	txService "courseku_backend/internals/features/finance/transactions/service"
)

/* =========================================================
   5) Payer membatalkan checkout yang masih pending
========================================================= */

func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, reference string) (*txModel.Transaction, error) {
	tx, err := s.findTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.TransactionUserID != userID {
		return nil, ErrForbidden
	}
	tr, err := s.Ledger.MarkCancelled(ctx, tx.TransactionReference)
	if err != nil {
		return nil, fmt.Errorf("batalkan %s: %w", tx.TransactionReference, err)
	}
	if tr.Changed {
		log.Printf("[INFO] 🚫 transaksi %s dibatalkan payer", tx.TransactionReference)
	}
	return tr.Transaction, nil
}

/* =========================================================
   6) Sweep transaksi pending yang tertinggal
========================================================= */

type SweepOptions struct {
	// hanya transaksi yang dibuat sebelum now-OlderThan
	OlderThan time.Duration
	// masih pending setelah umur ini → dibatalkan (0 = tidak pernah)
	ExpireAfter time.Duration
	Limit       int
}

type SweepReport struct {
	Scanned      int `json:"scanned"`
	Completed    int `json:"completed"`
	Failed       int `json:"failed"`
	StillPending int `json:"still_pending"`
	Expired      int `json:"expired"`
	Errors       int `json:"errors"`
}

// SweepPending menjalankan rekonsiliasi berurutan untuk transaksi pending lama.
// Dipanggil dari endpoint owner, tidak ada loop di background.
func (s *Service) SweepPending(ctx context.Context, opts SweepOptions) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	rows, err := s.Ledger.ListStalePending(ctx, now.Add(-opts.OlderThan), opts.Limit)
	if err != nil {
		return report, fmt.Errorf("ambil transaksi pending: %w", err)
	}

	for i := range rows {
		if ctx.Err() != nil {
			log.Printf("[WARN] sweep berhenti: %v", ctx.Err())
			break
		}
		row := &rows[i]
		report.Scanned++

		res, err := s.reconcileCounted(ctx, EntrySweep, row, 0)
		if err != nil {
			report.Errors++
			log.Printf("[WARN] sweep %s: %v", row.TransactionReference, err)
			continue
		}

		switch res.Kind {
		case VerifyCompleted:
			report.Completed++
		case VerifyFailed:
			report.Failed++
		default:
			if opts.ExpireAfter > 0 && row.CreatedAt.Before(now.Add(-opts.ExpireAfter)) {
				if _, err := s.Ledger.MarkCancelled(ctx, row.TransactionReference); err != nil && !errors.Is(err, txService.ErrInvalidTransition) {
					report.Errors++
					log.Printf("[ERROR] sweep gagal expire %s: %v", row.TransactionReference, err)
					continue
				}
				report.Expired++
				continue
			}
			report.StillPending++
		}
	}

	log.Printf("[INFO] 🧹 sweep selesai: %+v", report)
	return report, nil
}
