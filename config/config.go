package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Firebase   FirebaseConfig
	Payment    PaymentConfig
	Affiliate  AffiliateConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Per-IP budget on the public affiliate landing route.
	LandingRateLimit int
	LandingRateBurst int
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type PaymentConfig struct {
	Currency      string
	PaymentExpiry time.Duration
}

// AffiliateConfig holds the defaults of the affiliate program. The same numbers can be
// overridden at runtime through system settings.
type AffiliateConfig struct {
	BaseURL                  string
	SignupPath               string
	DefaultCommissionRate    float64
	DefaultReferralBonusRate float64
	CookieName               string
	CookieSecret             string
	CookieLifetimeDays       int
	MinPayoutCents           int64
	InvoiceAutoGenerate      bool
	InvoiceGenerationDay     int
	// InvoiceCron is when the scheduler checks for the generation day (UTC).
	InvoiceCron              string
}

type AdminConfig struct {
	Email    string
	Password string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using process environment")
	}
	return &Config{
		Server: ServerConfig{
			Port:             getEnv("PORT", "8099"),
			Env:              getEnv("APP_ENV", "development"),
			ReadTimeout:      10 * time.Second,
			WriteTimeout:     10 * time.Second,
			LandingRateLimit: getEnvInt("LANDING_RATE_LIMIT", 30),
			LandingRateBurst: getEnvInt("LANDING_RATE_BURST", 10),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DB_DSN", "learnhub:learnhub@tcp(localhost:3306)/learnhub?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "learnhub",
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
		Payment: PaymentConfig{
			Currency:      getEnv("PAYMENT_CURRENCY", "EUR"),
			PaymentExpiry: 30 * time.Minute,
		},
		Affiliate: AffiliateConfig{
			BaseURL:                  getEnv("APP_BASE_URL", "http://localhost:8099"),
			SignupPath:               getEnv("AFFILIATE_SIGNUP_PATH", "/register"),
			DefaultCommissionRate:    getEnvFloat("AFFILIATE_DEFAULT_COMMISSION_RATE", 10),
			DefaultReferralBonusRate: getEnvFloat("AFFILIATE_DEFAULT_REFERRAL_BONUS_RATE", 5),
			CookieName:               getEnv("AFFILIATE_COOKIE_NAME", "affiliate_ref"),
			CookieSecret:             getEnv("AFFILIATE_COOKIE_SECRET", "change-me-affiliate"),
			CookieLifetimeDays:       getEnvInt("AFFILIATE_COOKIE_LIFETIME_DAYS", 30),
			MinPayoutCents:           int64(getEnvInt("AFFILIATE_MIN_PAYOUT_CENTS", 5000)),
			InvoiceAutoGenerate:      getEnvBool("AFFILIATE_INVOICE_AUTO_GENERATE", false),
			InvoiceGenerationDay:     getEnvInt("AFFILIATE_INVOICE_GENERATION_DAY", 1),
			InvoiceCron:              getEnv("AFFILIATE_INVOICE_CRON", "0 2 * * *"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@learnhub.local"),
			Password: getEnv("ADMIN_PASSWORD", "change-me-admin"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}
