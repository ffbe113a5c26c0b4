package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	catalogModel "courseku_backend/internals/features/courses/catalog/model"
	catalogService "courseku_backend/internals/features/courses/catalog/service"
	enrollmentModel "courseku_backend/internals/features/courses/enrollments/model"
	enrollmentService "courseku_backend/internals/features/courses/enrollments/service"
	"courseku_backend/internals/features/finance/events"
	"courseku_backend/internals/features/finance/gateway"
	txModel "courseku_backend/internals/features/finance/transactions/model"
	txService "courseku_backend/internals/features/finance/transactions/service"
	"courseku_backend/internals/helpers/testdb"
)

/* ===================== Fakes ===================== */

type fakeGateway struct {
	mu sync.Mutex

	initErr     error
	verify      gateway.VerifyResult
	verifyErr   error
	initCalls   int
	verifyCalls int
	lastInit    gateway.InitializeRequest
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Initialize(_ context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	f.lastInit = req
	if f.initErr != nil {
		return gateway.InitializeResult{}, f.initErr
	}
	return gateway.InitializeResult{
		RedirectURL: "https://pay.example/" + req.Reference,
		Reference:   req.Reference,
		RawPayload:  []byte(`{"access_code":"x"}`),
	}, nil
}

func (f *fakeGateway) Verify(_ context.Context, _ string) (gateway.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if f.verifyErr != nil {
		return gateway.VerifyResult{}, f.verifyErr
	}
	return f.verify, nil
}

func (f *fakeGateway) set(outcome gateway.Outcome, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyErr = nil
	f.verify = gateway.VerifyResult{
		Outcome:        outcome,
		Amount:         decimal.NewFromInt(amount),
		RawPayload:     []byte(`{"status":"` + string(outcome) + `"}`),
		ProviderStatus: string(outcome),
	}
}

type recordingPublisher struct {
	mu          sync.Mutex
	enrollments []events.EnrollmentCreated
	payments    []events.PaymentCompleted
}

func (p *recordingPublisher) PublishEnrollmentCreated(_ context.Context, e events.EnrollmentCreated) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enrollments = append(p.enrollments, e)
}

func (p *recordingPublisher) PublishPaymentCompleted(_ context.Context, e events.PaymentCompleted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, e)
}

func (p *recordingPublisher) Close() error { return nil }

/* ===================== Fixture ===================== */

type fixture struct {
	db  *gorm.DB
	svc *Service
	gw  *fakeGateway
	pub *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t, &catalogModel.Course{}, &txModel.Transaction{}, &enrollmentModel.Enrollment{})

	catalog := catalogService.NewGormCatalog(db)
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	svc := NewService(
		catalog,
		txService.NewLedger(db),
		enrollmentService.NewService(db, catalog),
		gw,
		pub,
		nil,
		Options{Currency: "IDR", GatewayTimeout: time.Second, NotificationKey: "server-key"},
	)
	return &fixture{db: db, svc: svc, gw: gw, pub: pub}
}

func (f *fixture) course(t *testing.T, price int64, sale *int64, free bool) *catalogModel.Course {
	t.Helper()
	c := &catalogModel.Course{
		CourseTitle:  "Course " + uuid.NewString()[:6],
		CourseSlug:   "course-" + uuid.NewString(),
		CourseIsFree: free,
		CoursePrice:  decimal.NewFromInt(price),
	}
	if sale != nil {
		sp := decimal.NewFromInt(*sale)
		c.CourseSalePrice = &sp
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) checkoutPaid(t *testing.T, user uuid.UUID, c *catalogModel.Course) CheckoutResult {
	t.Helper()
	res, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: user, CourseID: c.CourseID, PayerEmail: "a@b.c"})
	require.NoError(t, err)
	require.Equal(t, CheckoutPaymentRequired, res.Kind)
	return res
}

func (f *fixture) tx(t *testing.T, ref string) *txModel.Transaction {
	t.Helper()
	row, err := f.svc.Ledger.FindByReference(context.Background(), ref)
	require.NoError(t, err)
	return row
}

func (f *fixture) countEnrollments(t *testing.T, user, course uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&enrollmentModel.Enrollment{}).
		Where("enrollment_user_id = ? AND enrollment_course_id = ?", user, course).
		Count(&n).Error)
	return n
}

func (f *fixture) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&txModel.Transaction{}).Count(&n).Error)
	return n
}

func i64(v int64) *int64 { return &v }

/* ===================== Checkout ===================== */

func TestCheckoutPaidCourseUsesSalePrice(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, i64(3000), false)
	user := uuid.New()

	res := f.checkoutPaid(t, user, c)

	assert.True(t, res.Amount.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, "https://pay.example/"+res.Reference, res.RedirectURL)
	assert.True(t, f.gw.lastInit.Amount.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, res.Reference, f.gw.lastInit.Reference)

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusPending, row.TransactionStatus)
	assert.True(t, row.TransactionAmount.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, row.TransactionCheckoutURL)
	assert.Equal(t, res.RedirectURL, *row.TransactionCheckoutURL)
	assert.Equal(t, "fake", row.TransactionGatewayProvider)
	assert.Zero(t, f.countEnrollments(t, user, c.CourseID))
}

func TestCheckoutFreeCourseSkipsLedger(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	for _, c := range []*catalogModel.Course{
		f.course(t, 5000, i64(3000), true),
		f.course(t, 0, nil, false),
	} {
		res, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: user, CourseID: c.CourseID})
		require.NoError(t, err)
		assert.Equal(t, CheckoutFree, res.Kind)
		assert.False(t, res.AlreadyEnrolled)
		require.NotNil(t, res.Enrollment)
		assert.True(t, res.Enrollment.EnrollmentAmountPaid.IsZero())
		assert.Nil(t, res.Enrollment.EnrollmentTransactionReference)
	}

	assert.Zero(t, f.countTransactions(t))
	assert.Zero(t, f.gw.initCalls)
	assert.Len(t, f.pub.enrollments, 2)
	assert.Equal(t, EntryCheckoutFree, f.pub.enrollments[0].Source)
}

func TestCheckoutAlreadyEnrolledDoesNotCharge(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()

	_, err := f.svc.Enrollments.Enroll(context.Background(), enrollmentService.EnrollInput{UserID: user, CourseID: c.CourseID})
	require.NoError(t, err)

	res, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: user, CourseID: c.CourseID})
	require.NoError(t, err)
	assert.Equal(t, CheckoutFree, res.Kind)
	assert.True(t, res.AlreadyEnrolled)
	assert.Zero(t, f.countTransactions(t))
	assert.Zero(t, f.gw.initCalls)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{CourseID: c.CourseID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Checkout(context.Background(), CheckoutInput{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Checkout(context.Background(), CheckoutInput{UserID: uuid.New(), CourseID: uuid.New()})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, f.gw.initCalls)
}

func TestCheckoutRejectedLeavesNoTransaction(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	f.gw.initErr = &gateway.Error{Provider: "fake", Op: "initialize", StatusCode: 400, Message: "akun nonaktif", Kind: gateway.ErrGatewayRejected}

	res, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: uuid.New(), CourseID: c.CourseID})
	require.NoError(t, err)
	assert.Equal(t, CheckoutRejected, res.Kind)
	assert.Equal(t, "akun nonaktif", res.Reason)
	assert.Zero(t, f.countTransactions(t))
}

func TestCheckoutGatewayUnavailableKeepsPending(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	f.gw.initErr = &gateway.Error{Provider: "fake", Op: "initialize", Kind: gateway.ErrGatewayUnavailable, Err: context.DeadlineExceeded}

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: uuid.New(), CourseID: c.CourseID})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	var rows []txModel.Transaction
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, txModel.TransactionStatusPending, rows[0].TransactionStatus)
}

/* ===================== Reconcile ===================== */

func TestCallbackSuccessCompletesAndEnrolls(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, i64(3000), false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)

	f.gw.set(gateway.OutcomeSuccess, 3000)
	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)
	assert.False(t, vr.Repaired)
	assert.False(t, vr.AlreadyEnrolled)
	require.NotNil(t, vr.Enrollment)
	assert.True(t, vr.Enrollment.EnrollmentAmountPaid.Equal(decimal.NewFromInt(3000)))
	assert.Equal(t, res.Reference, *vr.Enrollment.EnrollmentTransactionReference)

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusCompleted, row.TransactionStatus)
	assert.NotNil(t, row.TransactionPaidAt)
	assert.Equal(t, 1, row.TransactionVerifyAttempts)

	assert.Len(t, f.pub.payments, 1)
	assert.Len(t, f.pub.enrollments, 1)
	assert.Equal(t, EntryCallback, f.pub.enrollments[0].Source)
}

func TestRepeatedSuccessVerificationEnrollsOnce(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 5000)

	first, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	second, err := f.svc.Reverify(context.Background(), user, res.Reference)
	require.NoError(t, err)

	assert.Equal(t, VerifyCompleted, second.Kind)
	assert.True(t, second.AlreadyEnrolled)
	assert.Equal(t, first.Enrollment.EnrollmentID, second.Enrollment.EnrollmentID)
	assert.EqualValues(t, 1, f.countEnrollments(t, user, c.CourseID))
	// transaksi completed tidak pernah diverifikasi ulang ke gateway
	assert.Equal(t, 1, f.gw.verifyCalls)
	assert.Len(t, f.pub.payments, 1)
}

func TestConcurrentCallbacksEnrollOnce(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 5000)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
			if assert.NoError(t, err) {
				assert.Equal(t, VerifyCompleted, vr.Kind)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.countEnrollments(t, user, c.CourseID))
	assert.Len(t, f.pub.enrollments, 1)
}

func TestCallbackRepairsMissingEnrollment(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)

	// lunas tercatat tapi enrollment hilang (crash di antara dua langkah)
	_, err := f.svc.Ledger.MarkCompleted(context.Background(), res.Reference, nil, time.Now())
	require.NoError(t, err)

	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)
	assert.True(t, vr.Repaired)
	assert.Zero(t, f.gw.verifyCalls)
	assert.EqualValues(t, 1, f.countEnrollments(t, user, c.CourseID))
	assert.True(t, vr.Enrollment.EnrollmentAmountPaid.Equal(decimal.NewFromInt(5000)))
}

func TestCallbackStillPendingChangesNothing(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeStillPending, 0)

	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyStillPending, vr.Kind)
	assert.NoError(t, vr.Err())

	assert.Equal(t, txModel.TransactionStatusPending, f.tx(t, res.Reference).TransactionStatus)
	assert.Zero(t, f.countEnrollments(t, user, c.CourseID))
}

func TestFailedThenSuccessIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)

	f.gw.set(gateway.OutcomeFailed, 5000)
	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyFailed, vr.Kind)
	assert.ErrorIs(t, vr.Err(), ErrPaymentFailed)
	assert.Equal(t, txModel.TransactionStatusFailed, f.tx(t, res.Reference).TransactionStatus)

	f.gw.set(gateway.OutcomeSuccess, 5000)
	_, err = f.svc.Reverify(context.Background(), user, res.Reference)
	require.ErrorIs(t, err, ErrInvalidTransition)

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusFailed, row.TransactionStatus)
	assert.True(t, row.TransactionNeedsReview)
	assert.Zero(t, f.countEnrollments(t, user, c.CourseID))
}

func TestFailedThenUnderpaidSuccessIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)

	f.gw.set(gateway.OutcomeFailed, 5000)
	_, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)

	f.gw.set(gateway.OutcomeSuccess, 4000)
	_, err = f.svc.HandleCallback(context.Background(), res.Reference)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrAmountMismatch)

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusFailed, row.TransactionStatus)
	assert.True(t, row.TransactionNeedsReview)
	require.NotNil(t, row.TransactionReviewNote)
	assert.Contains(t, *row.TransactionReviewNote, "konflik status")
	assert.Zero(t, f.countEnrollments(t, user, c.CourseID))
}

func TestVerifyUnavailableKeepsPending(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.verifyErr = context.DeadlineExceeded

	_, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, txModel.TransactionStatusPending, f.tx(t, res.Reference).TransactionStatus)
}

func TestAmountBelowLedgerIsFlaggedNotCompleted(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 4000)

	_, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.ErrorIs(t, err, ErrAmountMismatch)

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusPending, row.TransactionStatus)
	assert.True(t, row.TransactionNeedsReview)
	assert.Zero(t, f.countEnrollments(t, user, c.CourseID))
}

func TestAmountAboveLedgerCompletesWithLedgerAmount(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 6000)

	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)
	assert.True(t, vr.Enrollment.EnrollmentAmountPaid.Equal(decimal.NewFromInt(5000)))

	row := f.tx(t, res.Reference)
	assert.Equal(t, txModel.TransactionStatusCompleted, row.TransactionStatus)
	assert.True(t, row.TransactionNeedsReview)
}

func TestUnreportedAmountTrustsLedger(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 0)

	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)
	assert.False(t, f.tx(t, res.Reference).TransactionNeedsReview)
}

func TestReverifyOwnershipAndThrottle(t *testing.T) {
	f := newFixture(t)
	f.svc.VerifyMinInterval = time.Minute
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeStillPending, 0)

	_, err := f.svc.Reverify(context.Background(), uuid.New(), res.Reference)
	assert.ErrorIs(t, err, ErrForbidden)

	vr, err := f.svc.Reverify(context.Background(), user, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyStillPending, vr.Kind)

	_, err = f.svc.Reverify(context.Background(), user, res.Reference)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, 1, f.gw.verifyCalls)

	// callback tidak kena throttle
	_, err = f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, 2, f.gw.verifyCalls)
}

func TestManualVerifyRightAfterCallbackIsNotThrottled(t *testing.T) {
	f := newFixture(t)
	f.svc.VerifyMinInterval = time.Minute
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeStillPending, 0)

	_, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)

	vr, err := f.svc.Reverify(context.Background(), user, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyStillPending, vr.Kind)
	assert.Equal(t, 2, f.gw.verifyCalls)
}

func TestUnknownReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.HandleCallback(context.Background(), "CRS-NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.HandleCallback(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

/* ===================== Notification / Cancel / Sweep ===================== */

func sign(orderID, status, gross, key string) string {
	sum := sha512.Sum512([]byte(orderID + status + gross + key))
	return hex.EncodeToString(sum[:])
}

func TestNotificationTriggersVerification(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)
	f.gw.set(gateway.OutcomeSuccess, 5000)

	_, err := f.svc.HandleNotification(context.Background(), Notification{
		OrderID: res.Reference, StatusCode: "200", GrossAmount: "5000.00",
		SignatureKey: "bogus", TransactionStatus: "settlement",
	})
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, f.gw.verifyCalls)

	vr, err := f.svc.HandleNotification(context.Background(), Notification{
		OrderID: res.Reference, StatusCode: "200", GrossAmount: "5000.00",
		SignatureKey:      sign(res.Reference, "200", "5000.00", "server-key"),
		TransactionStatus: "settlement",
	})
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)
	assert.Equal(t, 1, f.gw.verifyCalls)
	assert.EqualValues(t, 1, f.countEnrollments(t, user, c.CourseID))
}

func TestCancelledCheckoutCanStillBeVerified(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, 5000, nil, false)
	user := uuid.New()
	res := f.checkoutPaid(t, user, c)

	_, err := f.svc.Cancel(context.Background(), uuid.New(), res.Reference)
	require.ErrorIs(t, err, ErrForbidden)

	row, err := f.svc.Cancel(context.Background(), user, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, txModel.TransactionStatusCancelled, row.TransactionStatus)

	// payer ternyata sudah bayar sebelum batal
	f.gw.set(gateway.OutcomeSuccess, 5000)
	vr, err := f.svc.HandleCallback(context.Background(), res.Reference)
	require.NoError(t, err)
	assert.Equal(t, VerifyCompleted, vr.Kind)

	_, err = f.svc.Cancel(context.Background(), user, res.Reference)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSweepPending(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	paid := f.checkoutPaid(t, user, f.course(t, 5000, nil, false))
	f.checkoutPaid(t, user, f.course(t, 7000, nil, false))

	f.gw.set(gateway.OutcomeStillPending, 0)
	report, err := f.svc.SweepPending(context.Background(), SweepOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 2, StillPending: 2}, report)

	// satu jam kemudian: yang masih pending dianggap kedaluwarsa
	f.svc.Now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	f.gw.set(gateway.OutcomeSuccess, 0)
	report, err = f.svc.SweepPending(context.Background(), SweepOptions{Limit: 10, ExpireAfter: 30 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Completed)

	assert.Equal(t, txModel.TransactionStatusCompleted, f.tx(t, paid.Reference).TransactionStatus)

	f.gw.set(gateway.OutcomeStillPending, 0)
	report, err = f.svc.SweepPending(context.Background(), SweepOptions{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestSweepExpiresAbandonedCheckouts(t *testing.T) {
	f := newFixture(t)
	res := f.checkoutPaid(t, uuid.New(), f.course(t, 5000, nil, false))

	f.svc.Now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	f.gw.set(gateway.OutcomeStillPending, 0)

	report, err := f.svc.SweepPending(context.Background(), SweepOptions{Limit: 10, ExpireAfter: 30 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 1, Expired: 1}, report)
	assert.Equal(t, txModel.TransactionStatusCancelled, f.tx(t, res.Reference).TransactionStatus)
}
