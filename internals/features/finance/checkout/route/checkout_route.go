package route

import (
	"github.com/gofiber/fiber/v2"

	checkoutController "courseku_backend/internals/features/finance/checkout/controller"
	"courseku_backend/internals/middlewares"
)

/*
User routes (mount di /api/u, sudah lewat AuthJWT)
- POST /checkout
- POST /payments/verify
- POST /payments/:reference/cancel
- GET  /payments?status=pending
- GET  /enrollments
*/
func CheckoutUserRoutes(r fiber.Router, ctl *checkoutController.CheckoutController) {
	r.Post("/checkout", middlewares.CheckoutRateLimiter(), ctl.Checkout)

	payments := r.Group("/payments")
	{
		payments.Post("/verify", middlewares.CheckoutRateLimiter(), ctl.Verify)
		payments.Post("/:reference/cancel", ctl.Cancel)
		payments.Get("/", ctl.ListMyPayments)
	}

	r.Get("/enrollments", ctl.ListMyEnrollments)
}

// Public: redirect callback + webhook Midtrans (tanpa JWT)
func CheckoutPublicRoutes(r fiber.Router, ctl *checkoutController.CheckoutController) {
	payments := r.Group("/payments")
	payments.Get("/callback", ctl.Callback)
	payments.Post("/notification", ctl.MidtransNotification)
}

// Owner: sapu transaksi pending yang macet
func CheckoutOwnerRoutes(r fiber.Router, ctl *checkoutController.CheckoutController) {
	r.Post("/payments/sweep", ctl.Sweep)
}
