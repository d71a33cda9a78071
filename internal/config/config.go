package config

import (
	"crypto/rand"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAdminEmail    = "admin@shop.local"
	DefaultAdminPassword = "admin123"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string
	DBPath      string

	JWTSecret    []byte
	SessionKey   []byte
	AccessTTL    time.Duration
	CookieSecure bool

	OTPTTL  time.Duration
	OTPEcho bool

	SMTP SMTPConfig

	AdminEmail    string
	AdminPassword string

	UPIVPA       string
	UPIPayeeName string

	UploadDir string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	// GeneratedSecrets names the secret variables that were missing and
	// replaced by random per-process keys.
	GeneratedSecrets []string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether outbound mail can be authenticated.
func (s SMTPConfig) Enabled() bool {
	return s.User != "" && s.Password != ""
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	smtpUser := os.Getenv("SMTP_USER")
	var generated []string

	cfg := &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      EnvDefault("DB_PATH", "storefront.db"),

		JWTSecret:    secretOrRandom("JWT_SECRET", &generated),
		SessionKey:   secretOrRandom("SESSION_KEY", &generated),
		AccessTTL:    EnvDurationDefault("ACCESS_TTL", 24*time.Hour),
		CookieSecure: EnvDefault("COOKIE_SECURE", "false") == "true",

		OTPTTL:  EnvDurationDefault("OTP_TTL", 10*time.Minute),
		OTPEcho: EnvDefault("OTP_ECHO", "false") == "true",

		SMTP: SMTPConfig{
			Host:     EnvDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:     EnvIntDefault("SMTP_PORT", 587),
			User:     smtpUser,
			Password: os.Getenv("SMTP_PASS"),
			From:     EnvDefault("FROM_EMAIL", smtpUser),
		},

		AdminEmail:    EnvDefault("ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword: EnvDefault("ADMIN_PASSWORD", DefaultAdminPassword),

		UPIVPA:       os.Getenv("UPI_VPA"),
		UPIPayeeName: EnvDefault("UPI_PAYEE_NAME", "Storefront"),

		UploadDir: EnvDefault("UPLOAD_DIR", "static/uploads"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),
	}
	cfg.GeneratedSecrets = generated
	return cfg
}

// Validate rejects production settings (secure cookies) that still run on
// generated secrets.
func (c *Config) Validate() error {
	if c.CookieSecure && len(c.GeneratedSecrets) > 0 {
		return fmt.Errorf("COOKIE_SECURE is on but %s not set", strings.Join(c.GeneratedSecrets, ", "))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.ServerPort)
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// secretOrRandom falls back to a per-process key, so sessions and tokens
// do not survive a restart unless the variable is set.
func secretOrRandom(key string, generated *[]string) []byte {
	if v := os.Getenv(key); v != "" {
		return []byte(v)
	}
	*generated = append(*generated, key)
	slog.Warn("secret not set, generating a random development key", "env", key)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("cannot generate %s: %v", key, err)
	}
	return b
}
