package controller

import (
	"errors"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	enrollmentDTO "courseku_backend/internals/features/courses/enrollments/dto"
	"courseku_backend/internals/features/finance/checkout/dto"
	"courseku_backend/internals/features/finance/checkout/service"
	txDTO "courseku_backend/internals/features/finance/transactions/dto"
	txModel "courseku_backend/internals/features/finance/transactions/model"
	txService "courseku_backend/internals/features/finance/transactions/service"
	helper "courseku_backend/internals/helpers"
)

// Kode error di query ?payment_error= saat redirect ke katalog.
const (
	PaymentErrorPending     = "pending"
	PaymentErrorFailed      = "failed"
	PaymentErrorUnavailable = "unavailable"
	PaymentErrorInvalid     = "invalid"
)

type CheckoutController struct {
	Svc      *service.Service
	Validate *validator.Validate

	LearningURL string
	CatalogURL  string
}

func NewCheckoutController(svc *service.Service, learningURL, catalogURL string) *CheckoutController {
	return &CheckoutController{
		Svc:         svc,
		Validate:    validator.New(),
		LearningURL: strings.TrimRight(learningURL, "/"),
		CatalogURL:  catalogURL,
	}
}

/* =========================================================
   POST /api/u/checkout
========================================================= */

func (ctrl *CheckoutController) Checkout(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var body dto.CheckoutRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	body.Normalize()
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.JsonValidationError(c, dto.FieldErrors(err))
	}
	courseID, _ := uuid.Parse(body.CourseID)

	res, err := ctrl.Svc.Checkout(c.UserContext(), service.CheckoutInput{
		UserID:     userID,
		CourseID:   courseID,
		PayerEmail: localString(c, "email"),
		PayerName:  localString(c, "user_name"),
	})
	if err != nil {
		return ctrl.respondError(c, err)
	}

	switch res.Kind {
	case service.CheckoutFree:
		msg := "Berhasil terdaftar di course gratis"
		if res.AlreadyEnrolled {
			msg = "Kamu sudah terdaftar di course ini"
		}
		return c.Status(fiber.StatusOK).JSON(dto.CheckoutResponse{
			Success:         true,
			FreeCourse:      !res.AlreadyEnrolled,
			AlreadyEnrolled: res.AlreadyEnrolled,
			RedirectURL:     ctrl.learningURL(courseID),
			Message:         msg,
		})

	case service.CheckoutPaymentRequired:
		return c.Status(fiber.StatusCreated).JSON(dto.CheckoutResponse{
			Success:          true,
			PaymentRequired:  true,
			AuthorizationURL: res.RedirectURL,
			RedirectURL:      res.RedirectURL,
			Reference:        res.Reference,
			Amount:           res.Amount.StringFixed(2),
			Message:          "Silakan lanjutkan pembayaran",
		})

	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.CheckoutResponse{
			Success: false,
			Message: "Pembayaran ditolak: " + res.Reason,
		})
	}
}

/* =========================================================
   GET /api/public/payments/callback?reference=...
   (alias: trxref, order_id)
========================================================= */

func (ctrl *CheckoutController) Callback(c *fiber.Ctx) error {
	ref := firstNonEmpty(c.Query("reference"), c.Query("trxref"), c.Query("order_id"))
	if ref == "" {
		return c.Redirect(ctrl.catalogURL(PaymentErrorInvalid), fiber.StatusFound)
	}

	res, err := ctrl.Svc.HandleCallback(c.UserContext(), ref)
	if err != nil {
		log.Printf("[WARN] callback %s: %v", ref, err)
		return c.Redirect(ctrl.catalogURL(paymentErrorCode(err)), fiber.StatusFound)
	}

	switch res.Kind {
	case service.VerifyCompleted:
		return c.Redirect(ctrl.learningURL(res.Transaction.TransactionCourseID), fiber.StatusFound)
	case service.VerifyFailed:
		return c.Redirect(ctrl.catalogURL(PaymentErrorFailed), fiber.StatusFound)
	default:
		return c.Redirect(ctrl.catalogURL(PaymentErrorPending), fiber.StatusFound)
	}
}

/* =========================================================
   POST /api/u/payments/verify
========================================================= */

func (ctrl *CheckoutController) Verify(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var body dto.VerifyRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Body request tidak valid")
	}
	body.Normalize()
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.JsonValidationError(c, dto.FieldErrors(err))
	}

	res, err := ctrl.Svc.Reverify(c.UserContext(), userID, body.Reference)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	resp := dto.VerifyResponse{Status: string(res.Kind)}
	switch res.Kind {
	case service.VerifyCompleted:
		resp.Success = true
		resp.Enrolled = true
		resp.Redirect = ctrl.learningURL(res.Transaction.TransactionCourseID)
		resp.Message = "Pembayaran berhasil diverifikasi"
	case service.VerifyFailed:
		resp.Message = res.Reason
	default:
		resp.Message = "Pembayaran belum selesai, coba verifikasi lagi nanti"
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

/* =========================================================
   POST /api/u/payments/:reference/cancel
========================================================= */

func (ctrl *CheckoutController) Cancel(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	ref, _ := url.PathUnescape(c.Params("reference"))

	row, err := ctrl.Svc.Cancel(c.UserContext(), userID, ref)
	if err != nil {
		return ctrl.respondError(c, err)
	}
	return helper.JsonUpdated(c, "Transaksi dibatalkan", txDTO.FromModel(row))
}

/* =========================================================
   GET /api/u/payments
========================================================= */

func (ctrl *CheckoutController) ListMyPayments(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)

	filter := txService.ListFilter{Offset: p.Offset, Limit: p.Limit}
	if s := strings.TrimSpace(strings.ToLower(c.Query("status"))); s != "" {
		st := txModel.TransactionStatus(s)
		switch st {
		case txModel.TransactionStatusPending, txModel.TransactionStatusCompleted,
			txModel.TransactionStatusFailed, txModel.TransactionStatusCancelled:
			filter.Status = &st
		default:
			return helper.JsonError(c, fiber.StatusBadRequest, "status tidak dikenal")
		}
	}

	rows, total, err := ctrl.Svc.Ledger.ListByUser(c.UserContext(), userID, filter)
	if err != nil {
		log.Printf("[ERROR] list transaksi user %s: %v", userID, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal mengambil transaksi")
	}
	return helper.JsonList(c, "ok", txDTO.FromModels(rows), helper.BuildPaginationFromPage(total, p.Page, p.PerPage))
}

/* =========================================================
   GET /api/u/enrollments
========================================================= */

func (ctrl *CheckoutController) ListMyEnrollments(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)

	rows, total, err := ctrl.Svc.Enrollments.ListByUser(c.UserContext(), userID, p.Offset, p.Limit)
	if err != nil {
		log.Printf("[ERROR] list enrollment user %s: %v", userID, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Gagal mengambil enrollment")
	}
	return helper.JsonList(c, "ok", enrollmentDTO.FromModels(rows), helper.BuildPaginationFromPage(total, p.Page, p.PerPage))
}

/* =========================================================
   POST /api/public/payments/notification (Midtrans)
========================================================= */

func (ctrl *CheckoutController) MidtransNotification(c *fiber.Ctx) error {
	var body dto.MidtransNotificationRequest
	if err := c.BodyParser(&body); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Body notifikasi tidak valid")
	}
	if err := ctrl.Validate.Struct(&body); err != nil {
		return helper.JsonValidationError(c, dto.FieldErrors(err))
	}

	res, err := ctrl.Svc.HandleNotification(c.UserContext(), service.Notification{
		OrderID:           body.OrderID,
		StatusCode:        body.StatusCode,
		GrossAmount:       body.GrossAmount,
		SignatureKey:      body.SignatureKey,
		TransactionStatus: body.TransactionStatus,
	})
	if err != nil {
		// Midtrans retry otomatis untuk respon non-2xx
		return ctrl.respondError(c, err)
	}
	return helper.JsonOK(c, "OK", fiber.Map{"status": res.Kind})
}

/* =========================================================
   POST /api/o/payments/sweep
========================================================= */

func (ctrl *CheckoutController) Sweep(c *fiber.Ctx) error {
	opts := service.SweepOptions{
		OlderThan:   queryDuration(c, "older_than", 15*time.Minute),
		ExpireAfter: queryDuration(c, "expire_after", 24*time.Hour),
		Limit:       c.QueryInt("limit", 50),
	}
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}

	report, err := ctrl.Svc.SweepPending(c.UserContext(), opts)
	if err != nil {
		log.Printf("[ERROR] sweep: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Sweep gagal")
	}
	return helper.JsonOK(c, "Sweep selesai", report)
}

/* =========================================================
   Helpers
========================================================= */

func (ctrl *CheckoutController) respondError(c *fiber.Ctx, err error) error {
	fe := toFiberError(err)
	if fe.Code >= 500 {
		log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	}
	return helper.JsonError(c, fe.Code, fe.Message)
}

func toFiberError(err error) *fiber.Error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInvalidSignature):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, "Status transaksi tidak bisa diubah lagi")
	case errors.Is(err, service.ErrAmountMismatch):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Nominal pembayaran tidak sesuai, transaksi sedang ditinjau")
	case errors.Is(err, service.ErrTooManyAttempts):
		return fiber.NewError(fiber.StatusTooManyRequests, service.ErrTooManyAttempts.Error())
	case errors.Is(err, service.ErrGatewayRejected):
		return fiber.NewError(fiber.StatusBadGateway, "Payment gateway menolak permintaan")
	case errors.Is(err, service.ErrGatewayUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Payment gateway sedang tidak bisa dihubungi, coba lagi")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
}

func paymentErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrValidation):
		return PaymentErrorInvalid
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrAmountMismatch):
		return PaymentErrorFailed
	}
	return PaymentErrorUnavailable
}

func (ctrl *CheckoutController) learningURL(courseID uuid.UUID) string {
	return ctrl.LearningURL + "/" + courseID.String()
}

func (ctrl *CheckoutController) catalogURL(code string) string {
	u, err := url.Parse(ctrl.CatalogURL)
	if err != nil {
		return ctrl.CatalogURL
	}
	q := u.Query()
	q.Set("payment_error", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// queryDuration menerima "30m"/"2h" atau angka detik.
func queryDuration(c *fiber.Ctx, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
