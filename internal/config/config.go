package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type AppConfig struct {
	HTTPAddr   string
	InstanceID string

	StorageBackend string // memory | postgres | mysql | redis
	PostgresDSN    string
	MySQLDSN       string
	RedisAddrs     []string
	RedisPass      string

	SessionBackend string // memory | redis
	SessionTTL     time.Duration

	Realtime     string // off | kafka
	KafkaBrokers []string
	KafkaTopic   string

	LedgerKey      string
	RosterKey      string
	DefaultStudent string

	Auth AuthConfig

	ConfirmDeletes    bool
	ReconcileSchedule string
	ReconcileRepair   bool
}

// AuthConfig holds the login secrets. Password alone selects the single-secret gate;
// AdminPassword and StudentPassword select the role-based gate.
type AuthConfig struct {
	Password        string
	AdminPassword   string
	StudentPassword string
}

func Load(logger *zap.Logger) (AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on system env vars")
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "12h"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("SESSION_TTL: %w", err)
	}
	confirm, err := strconv.ParseBool(getEnv("CONFIRM_DELETES", "true"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("CONFIRM_DELETES: %w", err)
	}
	repair, err := strconv.ParseBool(getEnv("RECONCILE_REPAIR", "false"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("RECONCILE_REPAIR: %w", err)
	}

	hostname, _ := os.Hostname()

	cfg := AppConfig{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		InstanceID: getEnv("INSTANCE_ID", hostname),

		StorageBackend: getEnv("STORAGE_BACKEND", "memory"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		RedisAddrs:     splitList(getEnv("REDIS_ADDR", "localhost:6379")),
		RedisPass:      os.Getenv("REDIS_PASS"),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:     ttl,

		Realtime:     getEnv("REALTIME", "off"),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "tracker_documents"),

		LedgerKey:      getEnv("LEDGER_KEY", "trackerData"),
		RosterKey:      getEnv("ROSTER_KEY", "rosterData"),
		DefaultStudent: getEnv("DEFAULT_STUDENT", "Dima"),

		Auth: AuthConfig{
			Password:        os.Getenv("TRACKER_PASSWORD"),
			AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
			StudentPassword: os.Getenv("STUDENT_PASSWORD"),
		},

		ConfirmDeletes:    confirm,
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),
		ReconcileRepair:   repair,
	}
	return cfg, cfg.Validate()
}

// Validate checks the combinations Load cannot express with defaults.
func (c AppConfig) Validate() error {
	switch c.StorageBackend {
	case "memory", "redis":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	case "mysql":
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	switch c.Realtime {
	case "off", "kafka":
	default:
		return fmt.Errorf("unknown REALTIME mode %q", c.Realtime)
	}

	if (c.Auth.AdminPassword == "") != (c.Auth.StudentPassword == "") {
		return fmt.Errorf("ADMIN_PASSWORD and STUDENT_PASSWORD must be set together")
	}
	if c.Auth.Password == "" && c.Auth.AdminPassword == "" {
		return fmt.Errorf("set TRACKER_PASSWORD, or both ADMIN_PASSWORD and STUDENT_PASSWORD")
	}
	if c.LedgerKey == c.RosterKey {
		return fmt.Errorf("LEDGER_KEY and ROSTER_KEY must differ")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
