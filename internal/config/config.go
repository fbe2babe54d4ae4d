// Package config loads server settings from a YAML file, a .env file and
// GFGP_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/utils"
)

type Config struct {
	Addr          string `yaml:"addr"`
	StaticDir     string `yaml:"static_dir"`
	SQLitePath    string `yaml:"sqlite_path"`
	MigrationsDir string `yaml:"migrations_dir"`
	TemplatesDir  string `yaml:"templates_dir"`
	JWTSecret     string `yaml:"jwt_secret"`

	EvidenceDir      string   `yaml:"evidence_dir"`
	MaxEvidenceBytes int64    `yaml:"max_evidence_bytes"`
	EvidenceTypes    []string `yaml:"evidence_types"`

	Redis RedisConfig `yaml:"redis"`

	AutosaveDelay  time.Duration `yaml:"autosave_delay"`
	SaveTimeout    time.Duration `yaml:"save_timeout"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`

	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	AuditRetentionDays int    `yaml:"audit_retention_days"`
	AuditCron          string `yaml:"audit_cron"`
	ReaperCron         string `yaml:"reaper_cron"`

	CORSOrigins []string `yaml:"cors_origins"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		StaticDir:          "web/dist",
		SQLitePath:         "data/gfgp.db",
		MigrationsDir:      "internal/db/migrations",
		EvidenceDir:        "data/evidence",
		MaxEvidenceBytes:   10 << 20,
		AutosaveDelay:      60 * time.Second,
		SaveTimeout:        5 * time.Second,
		SessionIdleTTL:     30 * time.Minute,
		RateLimit:          10,
		RateBurst:          20,
		AuditRetentionDays: 365,
		AuditCron:          "0 3 * * *",
		ReaperCron:         "@every 1m",
	}
}

// Load reads path (a missing file means defaults), then .env, then the
// environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.Addr = utils.SafeEnv("GFGP_ADDR", c.Addr)
	c.StaticDir = utils.SafeEnv("GFGP_STATIC_DIR", c.StaticDir)
	c.SQLitePath = utils.SafeEnv("GFGP_SQLITE_PATH", c.SQLitePath)
	c.MigrationsDir = utils.SafeEnv("GFGP_MIGRATIONS_DIR", c.MigrationsDir)
	c.TemplatesDir = utils.SafeEnv("GFGP_TEMPLATES_DIR", c.TemplatesDir)
	c.JWTSecret = utils.SafeEnv("GFGP_JWT_SECRET", c.JWTSecret)
	c.EvidenceDir = utils.SafeEnv("GFGP_EVIDENCE_DIR", c.EvidenceDir)
	c.MaxEvidenceBytes = int64(utils.EnvInt("GFGP_MAX_EVIDENCE_BYTES", int(c.MaxEvidenceBytes)))
	if v := os.Getenv("GFGP_EVIDENCE_TYPES"); v != "" {
		c.EvidenceTypes = splitList(v)
	}
	c.Redis.Addr = utils.SafeEnv("GFGP_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = utils.SafeEnv("GFGP_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = utils.EnvInt("GFGP_REDIS_DB", c.Redis.DB)
	c.AutosaveDelay = utils.EnvDuration("GFGP_AUTOSAVE_DELAY", c.AutosaveDelay)
	c.SaveTimeout = utils.EnvDuration("GFGP_SAVE_TIMEOUT", c.SaveTimeout)
	c.SessionIdleTTL = utils.EnvDuration("GFGP_SESSION_IDLE_TTL", c.SessionIdleTTL)
	c.RateLimit = utils.EnvFloat("GFGP_RATE_LIMIT", c.RateLimit)
	c.RateBurst = utils.EnvInt("GFGP_RATE_BURST", c.RateBurst)
	c.AuditRetentionDays = utils.EnvInt("GFGP_AUDIT_RETENTION_DAYS", c.AuditRetentionDays)
	c.AuditCron = utils.SafeEnv("GFGP_AUDIT_CRON", c.AuditCron)
	c.ReaperCron = utils.SafeEnv("GFGP_REAPER_CRON", c.ReaperCron)
	if v := os.Getenv("GFGP_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr required")
	}
	if c.MaxEvidenceBytes <= 0 {
		return fmt.Errorf("config: max_evidence_bytes must be positive, got %d", c.MaxEvidenceBytes)
	}
	if c.AutosaveDelay <= 0 || c.SaveTimeout <= 0 {
		return errors.New("config: autosave_delay and save_timeout must be positive")
	}
	if c.RateBurst < 0 || c.RateLimit < 0 {
		return errors.New("config: rate limits cannot be negative")
	}
	return nil
}

// RetentionWindow is the audit retention as a duration; zero disables purging.
func (c Config) RetentionWindow() time.Duration {
	if c.AuditRetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.AuditRetentionDays) * 24 * time.Hour
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
