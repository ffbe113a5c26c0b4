package details

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"courseku_backend/internals/configs"
	catalogService "courseku_backend/internals/features/courses/catalog/service"
	enrollmentService "courseku_backend/internals/features/courses/enrollments/service"
	checkoutController "courseku_backend/internals/features/finance/checkout/controller"
	CheckoutRoute "courseku_backend/internals/features/finance/checkout/route"
	checkoutService "courseku_backend/internals/features/finance/checkout/service"
	"courseku_backend/internals/features/finance/events"
	"courseku_backend/internals/features/finance/gateway"
	txService "courseku_backend/internals/features/finance/transactions/service"
	"courseku_backend/internals/helpers/metrics"
)

// Finance merangkai semua dependency checkout sekali, lalu dipasang ke tiap group.
type Finance struct {
	Controller *checkoutController.CheckoutController
	Events     events.Publisher
}

func NewFinance(db *gorm.DB, cfg configs.PaymentConfig) *Finance {
	catalog := catalogService.NewGormCatalog(db)
	ledger := txService.NewLedger(db)
	enrollments := enrollmentService.NewService(db, catalog)

	m, err := metrics.NewReconciliation(prometheus.DefaultRegisterer)
	if err != nil {
		log.Printf("[WARN] metrics checkout tidak aktif: %v", err)
	}

	opts := checkoutService.Options{
		Currency:          cfg.Currency,
		GatewayTimeout:    cfg.GatewayTimeout,
		VerifyMinInterval: cfg.VerifyMinInterval,
	}
	// notifikasi HTTP hanya dikirim Midtrans
	if cfg.Provider == configs.GatewayProviderMidtrans {
		opts.NotificationKey = cfg.MidtransServerKey
	}

	svc := checkoutService.NewService(catalog, ledger, enrollments, newGateway(cfg), newPublisher(cfg), m, opts)

	return &Finance{
		Controller: checkoutController.NewCheckoutController(svc, cfg.LearningURL, cfg.CatalogURL),
		Events:     svc.Events,
	}
}

func newGateway(cfg configs.PaymentConfig) gateway.Client {
	if cfg.Provider == configs.GatewayProviderRest {
		log.Printf("[INFO] 💳 gateway: rest (%s)", cfg.GatewayBaseURL)
		return gateway.NewRestClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.CallbackURL, cfg.GatewayTimeout)
	}
	log.Printf("[INFO] 💳 gateway: midtrans (production=%v)", cfg.MidtransUseProd)
	return gateway.NewMidtransClient(cfg.MidtransServerKey, cfg.MidtransUseProd, cfg.GatewayTimeout)
}

// Kafka opsional: tanpa broker (atau broker mati) event cukup di-log.
func newPublisher(cfg configs.PaymentConfig) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.LogPublisher{}
	}
	p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, 3)
	if err != nil {
		log.Printf("[WARN] Kafka tidak tersedia, event hanya di-log: %v", err)
		return events.LogPublisher{}
	}
	return p
}

func FinancePublicRoutes(r fiber.Router, f *Finance) {
	CheckoutRoute.CheckoutPublicRoutes(r, f.Controller)
}

func FinanceUserRoutes(r fiber.Router, f *Finance) {
	CheckoutRoute.CheckoutUserRoutes(r, f.Controller)
}

func FinanceOwnerRoutes(r fiber.Router, f *Finance) {
	CheckoutRoute.CheckoutOwnerRoutes(r, f.Controller)
}
