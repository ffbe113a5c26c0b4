package configs

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret        string
	JWTRefreshSecret string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	JWTRefreshSecret = GetEnv("JWT_REFRESH_SECRET")

	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET belum diset!")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || strings.TrimSpace(value) == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[WARN] %s=%q bukan boolean, pakai default %v", key, v, def)
		return def
	}
	return b
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[WARN] %s=%q bukan durasi valid, pakai default %s", key, v, def)
		return def
	}
	return d
}

// =======================
// PAYMENT CONFIG
// =======================

const (
	GatewayProviderMidtrans = "midtrans"
	GatewayProviderRest     = "rest"
)

// PaymentConfig mengumpulkan semua setting checkout + gateway.
type PaymentConfig struct {
	Provider string

	MidtransServerKey string
	MidtransUseProd   bool

	GatewayBaseURL   string
	GatewaySecretKey string
	GatewayTimeout   time.Duration

	Currency          string
	CallbackURL       string
	LearningURL       string
	CatalogURL        string
	VerifyMinInterval time.Duration

	KafkaBrokers []string
}

func LoadPaymentConfig() PaymentConfig {
	cfg := PaymentConfig{
		Provider:          strings.ToLower(GetEnv("GATEWAY_PROVIDER", GatewayProviderMidtrans)),
		MidtransServerKey: GetEnv("MIDTRANS_SERVER_KEY"),
		MidtransUseProd:   GetEnvBool("MIDTRANS_USE_PROD", false),
		GatewayBaseURL:    strings.TrimRight(GetEnv("GATEWAY_BASE_URL"), "/"),
		GatewaySecretKey:  GetEnv("GATEWAY_SECRET_KEY"),
		GatewayTimeout:    GetEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
		Currency:          strings.ToUpper(GetEnv("PAYMENT_CURRENCY", "IDR")),
		CallbackURL:       GetEnv("PAYMENT_CALLBACK_URL", "http://localhost:3000/api/public/payments/callback"),
		LearningURL:       strings.TrimRight(GetEnv("LEARNING_URL", "http://localhost:5173/learn"), "/"),
		CatalogURL:        GetEnv("CATALOG_URL", "http://localhost:5173/courses"),
		VerifyMinInterval: GetEnvDuration("VERIFY_MIN_INTERVAL", 5*time.Second),
	}

	if brokers := strings.TrimSpace(GetEnv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch cfg.Provider {
	case GatewayProviderMidtrans:
		if cfg.MidtransServerKey == "" {
			log.Println("❌ MIDTRANS_SERVER_KEY belum diset!")
		}
	case GatewayProviderRest:
		if cfg.GatewayBaseURL == "" || cfg.GatewaySecretKey == "" {
			log.Println("❌ GATEWAY_BASE_URL / GATEWAY_SECRET_KEY belum diset!")
		}
	default:
		log.Printf("[WARN] GATEWAY_PROVIDER=%q tidak dikenal, fallback ke midtrans", cfg.Provider)
		cfg.Provider = GatewayProviderMidtrans
	}
	return cfg
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	return &GormLogger{SlowThreshold: l.SlowThreshold, LogLevel: level}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
