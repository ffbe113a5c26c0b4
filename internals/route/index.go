package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"courseku_backend/internals/configs"
	authMiddleware "courseku_backend/internals/middlewares/auth"
	routeDetails "courseku_backend/internals/route/details"
)

var startTime time.Time

// SetupRoutes memasang semua group; fungsi yang dikembalikan dipanggil saat shutdown.
func SetupRoutes(app *fiber.App, db *gorm.DB) func() {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, db)

	// ===================== GROUPS =====================

	log.Println("[INFO] Setting up PUBLIC group...")
	public := app.Group("/api/public")

	log.Println("[INFO] Setting up PRIVATE (user) group...")
	private := app.Group("/api/u",
		authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
			Secret:              configs.JWTSecret,
			AllowCookieFallback: true,
		}),
	)

	log.Println("[INFO] Setting up OWNER group (Auth + owner global)...")
	owner := app.Group("/api/o",
		authMiddleware.AuthJWT(authMiddleware.AuthJWTOpts{
			Secret:              configs.JWTSecret,
			AllowCookieFallback: true,
		}),
		authMiddleware.IsOwnerGlobal(),
	)

	// ===================== MOUNT ROUTES =====================

	log.Println("[INFO] Mounting Finance routes...")
	finance := routeDetails.NewFinance(db, configs.LoadPaymentConfig())
	routeDetails.FinancePublicRoutes(public, finance)
	routeDetails.FinanceUserRoutes(private, finance)
	routeDetails.FinanceOwnerRoutes(owner, finance)

	return func() {
		if err := finance.Events.Close(); err != nil {
			log.Printf("[WARN] gagal menutup publisher event: %v", err)
		}
	}
}
