package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	AuditSQLite     = "sqlite"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	Environment     string        `env:"APP_ENV" envDefault:"production"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StorageDriver   string `env:"STORAGE_DRIVER" envDefault:"memory"`
	DatabaseDSN     string `env:"DATABASE_DSN" envDefault:"Host=localhost;Port=5432;Database=core_banking_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"`
	MigrationsDir   string `env:"MIGRATIONS_DIR" envDefault:"src/migrations"`
	AuditDriver     string `env:"AUDIT_DRIVER" envDefault:"memory"`
	AuditSQLitePath string `env:"AUDIT_SQLITE_PATH" envDefault:"audit.db"`

	AutoApproveThreshold     decimal.Decimal `env:"AUTO_APPROVE_THRESHOLD" envDefault:"25000"`
	EmployeeApproveThreshold decimal.Decimal `env:"EMPLOYEE_APPROVE_THRESHOLD" envDefault:"75000"`

	AuthSigningKey string `env:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `env:"AUTH_ISSUER" envDefault:"core-banking-engine"`

	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ReportTimezone string `env:"REPORT_TIMEZONE" envDefault:"UTC"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.AuditDriver = strings.ToLower(strings.TrimSpace(cfg.AuditDriver))
	cfg.DatabaseDSN = normalizeConnectionString(strings.TrimSpace(cfg.DatabaseDSN))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.AuditDriver {
	case StorageMemory, AuditSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unsupported AUDIT_DRIVER %q", c.AuditDriver)
	}
	if c.AuditDriver == StoragePostgres && c.StorageDriver != StoragePostgres {
		return fmt.Errorf("AUDIT_DRIVER=postgres requires STORAGE_DRIVER=postgres")
	}

	if !c.AutoApproveThreshold.IsPositive() {
		return fmt.Errorf("AUTO_APPROVE_THRESHOLD must be greater than zero")
	}
	if !c.EmployeeApproveThreshold.GreaterThan(c.AutoApproveThreshold) {
		return fmt.Errorf("EMPLOYEE_APPROVE_THRESHOLD must exceed AUTO_APPROVE_THRESHOLD")
	}

	if strings.TrimSpace(c.AuthSigningKey) == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required")
	}

	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return nil
}

// ReportLocation is the zone used to bucket events into report days.
func (c Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalizeConnectionString turns an ADO-style "Host=...;Port=..." string into
// a lib/pq keyword DSN. URL-style DSNs pass through untouched.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host", "server":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username", "user id":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode", "ssl mode":
			hasSSLMode = true
			out = append(out, "sslmode="+strings.ToLower(val))
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
