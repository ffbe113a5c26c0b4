package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogService "courseku_backend/internals/features/courses/catalog/service"
	enrollmentModel "courseku_backend/internals/features/courses/enrollments/model"
	enrollmentService "courseku_backend/internals/features/courses/enrollments/service"
	"courseku_backend/internals/features/finance/events"
	"courseku_backend/internals/features/finance/gateway"
	"courseku_backend/internals/features/finance/pricing"
	txModel "courseku_backend/internals/features/finance/transactions/model"
	txService "courseku_backend/internals/features/finance/transactions/service"
	"courseku_backend/internals/helpers/metrics"
)

// Pintu masuk rekonsiliasi, dipakai sebagai label metrics & sumber event.
const (
	EntryCheckoutFree = "checkout_free"
	EntryCallback     = "callback"
	EntryReverify     = "reverify"
	EntryNotification = "notification"
	EntrySweep        = "sweep"
)

/*
Service mengorkestrasi pricing → ledger → gateway → enrollment.

Tidak ada lock in-process: semua keamanan konkurensi datang dari unique index
(reference, (user, course)) dan UPDATE bersyarat di ledger.
*/
type Service struct {
	Catalog     catalogService.Catalog
	Ledger      *txService.Ledger
	Enrollments *enrollmentService.Service
	Gateway     gateway.Client

	Events  events.Publisher
	Metrics *metrics.Reconciliation

	Currency          string
	GatewayTimeout    time.Duration
	VerifyMinInterval time.Duration
	// Server key Midtrans untuk cek signature notifikasi (kosong = notifikasi ditolak).
	NotificationKey string

	Now func() time.Time
}

type Options struct {
	Currency          string
	GatewayTimeout    time.Duration
	VerifyMinInterval time.Duration
	NotificationKey   string
}

func NewService(
	catalog catalogService.Catalog,
	ledger *txService.Ledger,
	enrollments *enrollmentService.Service,
	gw gateway.Client,
	pub events.Publisher,
	m *metrics.Reconciliation,
	opts Options,
) *Service {
	if opts.Currency == "" {
		opts.Currency = "IDR"
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}
	if pub == nil {
		pub = events.LogPublisher{}
	}
	return &Service{
		Catalog:           catalog,
		Ledger:            ledger,
		Enrollments:       enrollments,
		Gateway:           gw,
		Events:            pub,
		Metrics:           m,
		Currency:          opts.Currency,
		GatewayTimeout:    opts.GatewayTimeout,
		VerifyMinInterval: opts.VerifyMinInterval,
		NotificationKey:   opts.NotificationKey,
		Now:               func() time.Time { return time.Now().UTC() },
	}
}

type CheckoutInput struct {
	UserID     uuid.UUID
	CourseID   uuid.UUID
	PayerEmail string
	PayerName  string
}

/* =========================================================
   1) Checkout
========================================================= */

func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	res, err := s.checkout(ctx, in)
	switch {
	case err != nil:
		s.Metrics.Checkout("error")
	case res.Kind == CheckoutFree && res.AlreadyEnrolled:
		s.Metrics.Checkout("already_enrolled")
	default:
		s.Metrics.Checkout(string(res.Kind))
	}
	return res, err
}

func (s *Service) checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if in.UserID == uuid.Nil {
		return CheckoutResult{}, fmt.Errorf("%w: user tidak dikenali", ErrValidation)
	}
	if in.CourseID == uuid.Nil {
		return CheckoutResult{}, fmt.Errorf("%w: course_id wajib diisi", ErrValidation)
	}

	course, err := s.Catalog.GetCourseByID(ctx, in.CourseID)
	if errors.Is(err, catalogService.ErrCourseNotFound) {
		return CheckoutResult{}, fmt.Errorf("%w: course tidak ditemukan", ErrValidation)
	}
	if err != nil {
		return CheckoutResult{}, err
	}

	// Sudah punya akses → jangan tagih lagi
	existing, err := s.Enrollments.Find(ctx, in.UserID, in.CourseID)
	if err == nil {
		return freeResult(existing, true), nil
	}
	if !errors.Is(err, enrollmentService.ErrNotFound) {
		return CheckoutResult{}, err
	}

	amount := pricing.Resolve(pricing.FromCourse(course))

	// Course gratis tidak pernah menyentuh ledger
	if pricing.IsFree(amount) {
		er, err := s.enroll(ctx, EntryCheckoutFree, enrollmentService.EnrollInput{
			UserID:     in.UserID,
			CourseID:   in.CourseID,
			AmountPaid: decimal.Zero,
		})
		if err != nil {
			return CheckoutResult{}, err
		}
		return freeResult(er.Enrollment, !er.Created), nil
	}

	tx, err := s.Ledger.Create(ctx, txService.CreateInput{
		UserID:   in.UserID,
		CourseID: in.CourseID,
		Amount:   amount,
		Currency: s.Currency,
		Provider: s.Gateway.Name(),
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("buat transaksi: %w", err)
	}
	ref := tx.TransactionReference

	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	started := time.Now()
	ir, err := s.Gateway.Initialize(gctx, gateway.InitializeRequest{
		Reference:  ref,
		PayerEmail: in.PayerEmail,
		PayerName:  in.PayerName,
		Amount:     amount,
		Currency:   tx.TransactionCurrency,
		CourseID:   in.CourseID,
		UserID:     in.UserID,
		ItemName:   course.CourseTitle,
	})
	s.Metrics.ObserveGateway("initialize", s.Gateway.Name(), started)

	if err != nil {
		if errors.Is(err, gateway.ErrGatewayRejected) {
			log.Printf("[WARN] initialize %s ditolak gateway: %v", ref, err)
			// ditolak saat initialize = tidak ada transaksi yang tercatat, jadi baris
			// pending ini dihapus (satu-satunya pengecualian aturan tidak-pernah-dihapus)
			if derr := s.Ledger.Discard(ctx, ref); derr != nil {
				log.Printf("[ERROR] gagal hapus transaksi %s setelah ditolak: %v", ref, derr)
			}
			return rejectedResult(rejectionReason(err)), nil
		}
		// timeout/network: baris tetap pending, sweep/verify ulang yang menyelesaikan
		log.Printf("[ERROR] initialize %s gagal: %v", ref, err)
		return CheckoutResult{}, fmt.Errorf("initialize %s: %w", ref, asUnavailable(err))
	}

	if err := s.Ledger.AttachCheckout(ctx, ref, ir.RedirectURL, ir.RawPayload); err != nil {
		log.Printf("[ERROR] gagal simpan checkout url %s: %v", ref, err)
	}
	log.Printf("[INFO] 💳 checkout %s user=%s course=%s amount=%s", ref, in.UserID, in.CourseID, amount.String())

	return paymentRequiredResult(ir.RedirectURL, ref, amount), nil
}

/* =========================================================
   Helpers
========================================================= */

// enroll membungkus EnrollmentService + metrics + event.
func (s *Service) enroll(ctx context.Context, source string, in enrollmentService.EnrollInput) (enrollmentService.EnrollResult, error) {
	res, err := s.Enrollments.Enroll(ctx, in)
	if err != nil {
		return res, fmt.Errorf("enroll: %w", err)
	}
	if res.Created {
		s.Metrics.EnrollmentCreated(source)
		s.publishEnrollment(ctx, source, res.Enrollment)
	}
	return res, nil
}

func (s *Service) publishEnrollment(ctx context.Context, source string, e *enrollmentModel.Enrollment) {
	if s.Events == nil || e == nil {
		return
	}
	ev := events.EnrollmentCreated{
		EnrollmentID: e.EnrollmentID,
		UserID:       e.EnrollmentUserID,
		CourseID:     e.EnrollmentCourseID,
		AmountPaid:   e.EnrollmentAmountPaid.StringFixed(2),
		Source:       source,
		OccurredAt:   s.now(),
	}
	if e.EnrollmentTransactionReference != nil {
		ev.TransactionReference = *e.EnrollmentTransactionReference
	}
	s.Events.PublishEnrollmentCreated(ctx, ev)
}

func (s *Service) publishPayment(ctx context.Context, tx *txModel.Transaction) {
	if s.Events == nil || tx == nil {
		return
	}
	s.Events.PublishPaymentCompleted(ctx, events.PaymentCompleted{
		Reference:  tx.TransactionReference,
		UserID:     tx.TransactionUserID,
		CourseID:   tx.TransactionCourseID,
		Amount:     tx.TransactionAmount.StringFixed(2),
		Currency:   tx.TransactionCurrency,
		Provider:   tx.TransactionGatewayProvider,
		OccurredAt: s.now(),
	})
}

func (s *Service) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.GatewayTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.GatewayTimeout)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// asUnavailable: error gateway yang tidak terklasifikasi dianggap "tidak tahu",
// bukan gagal bayar.
func asUnavailable(err error) error {
	if errors.Is(err, gateway.ErrGatewayUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", gateway.ErrGatewayUnavailable, err)
}

func rejectionReason(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return "pembayaran ditolak oleh gateway"
}
