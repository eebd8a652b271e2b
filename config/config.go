package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration shared by all binaries.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Database   DatabaseConfig   `yaml:"database"`
	Invoicing  InvoicingConfig  `yaml:"invoicing"`
	Relay      RelayConfig      `yaml:"relay"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the listening ports and HTTP middleware settings.
type ServerConfig struct {
	SyncPort        int     `yaml:"sync_port"`
	InvoicingPort   int     `yaml:"invoicing_port"`
	RelayPort       int     `yaml:"relay_port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	SendBuffer      int     `yaml:"send_buffer"`
}

// StoreConfig selects where the centralized snapshot is committed.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // "file" or "database"
	Path       string `yaml:"path"`
	GeoKiosks  string `yaml:"geo_kiosks_path"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogQueries             bool   `yaml:"log_queries"`
}

// InvoicingConfig drives the invoicing service.
type InvoicingConfig struct {
	Dir           string              `yaml:"dir"`
	WebDir        string              `yaml:"web_dir"`
	PublicBaseURL string              `yaml:"public_base_url"`
	ExpiryDays    int                 `yaml:"expiry_days"`
	Expiry        time.Duration       `yaml:"-"`
	Issuer        IssuerConfig        `yaml:"issuer"`
	Zones         map[string]ZoneInfo `yaml:"zones"`
}

// IssuerConfig is printed in the header of every invoice.
type IssuerConfig struct {
	Name    string `yaml:"name"`
	TaxID   string `yaml:"tax_id"`
	Address string `yaml:"address"`
	Contact string `yaml:"contact"`
}

// ZoneInfo is the invoicing view of a parking zone.
type ZoneInfo struct {
	Name         string  `yaml:"name"`
	PricePerHour float64 `yaml:"price_per_hour"`
}

// RelayConfig holds the kiosk relay settings.
type RelayConfig struct {
	UpstreamURL     string        `yaml:"upstream_url"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	Timeout         time.Duration `yaml:"-"`
	HTTPProxy       string        `yaml:"http_proxy"`
	WebDir          string        `yaml:"web_dir"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path. A missing file yields the defaults.
// Values from a .env file and MEYPARK_* variables override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := envInt("MEYPARK_SYNC_PORT"); ok {
		cfg.Server.SyncPort = v
	}
	if v, ok := envInt("MEYPARK_INVOICING_PORT"); ok {
		cfg.Server.InvoicingPort = v
	}
	if v, ok := envInt("MEYPARK_RELAY_PORT"); ok {
		cfg.Server.RelayPort = v
	}
	if v := os.Getenv("MEYPARK_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MEYPARK_VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("MEYPARK_VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("MEYPARK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func applyDefaults(cfg *Config) {
	if cfg.Server.SyncPort <= 0 {
		cfg.Server.SyncPort = 8082
	}
	if cfg.Server.InvoicingPort <= 0 {
		cfg.Server.InvoicingPort = 3002
	}
	if cfg.Server.RelayPort <= 0 {
		cfg.Server.RelayPort = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}
	if cfg.Server.SendBuffer <= 0 {
		cfg.Server.SendBuffer = 64
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./data/mock_data.json"
	}
	if cfg.Store.BcryptCost <= 0 {
		cfg.Store.BcryptCost = 10
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "./data/meypark.db"
	}

	if cfg.Invoicing.Dir == "" {
		cfg.Invoicing.Dir = "./invoices"
	}
	if cfg.Invoicing.PublicBaseURL == "" {
		cfg.Invoicing.PublicBaseURL = "http://localhost:" + strconv.Itoa(cfg.Server.InvoicingPort)
	}
	cfg.Invoicing.PublicBaseURL = strings.TrimRight(cfg.Invoicing.PublicBaseURL, "/")
	if cfg.Invoicing.ExpiryDays <= 0 {
		cfg.Invoicing.ExpiryDays = 30
	}
	cfg.Invoicing.Expiry = time.Duration(cfg.Invoicing.ExpiryDays) * 24 * time.Hour
	if cfg.Invoicing.Issuer.Name == "" {
		cfg.Invoicing.Issuer = IssuerConfig{
			Name:    "MEYPARK S.L.",
			TaxID:   "B12345678",
			Address: "Calle de la Innovación, 123 • 28001 Madrid",
			Contact: "Tel: +34 900 123 456 • Email: facturacion@meypark.es",
		}
	}
	if len(cfg.Invoicing.Zones) == 0 {
		cfg.Invoicing.Zones = DefaultZones()
	}

	if cfg.Relay.UpstreamURL == "" {
		cfg.Relay.UpstreamURL = "http://localhost:" + strconv.Itoa(cfg.Server.SyncPort) + "/api/data"
	}
	if cfg.Relay.IntervalSeconds <= 0 {
		cfg.Relay.IntervalSeconds = 5
	}
	cfg.Relay.Interval = time.Duration(cfg.Relay.IntervalSeconds) * time.Second
	if cfg.Relay.TimeoutSeconds <= 0 {
		cfg.Relay.TimeoutSeconds = 10
	}
	cfg.Relay.Timeout = time.Duration(cfg.Relay.TimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// DefaultZones is the zone catalog used by the invoicing service when none is configured.
func DefaultZones() map[string]ZoneInfo {
	return map[string]ZoneInfo{
		"ZONA_001": {Name: "Centro Histórico", PricePerHour: 2.50},
		"ZONA_002": {Name: "Zona Azul", PricePerHour: 1.80},
		"ZONA_003": {Name: "Zona Verde", PricePerHour: 1.20},
		"ZONA_004": {Name: "Zona Naranja", PricePerHour: 0.80},
	}
}
