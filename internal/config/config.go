package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvDevelopment is the default hosting environment.
	EnvDevelopment = "development"
	// EnvProduction enables HTTPS enforcement and hides the API docs.
	EnvProduction = "production"

	// MinJWTKeyLength is the shortest accepted HMAC signing key.
	MinJWTKeyLength = 32

	settingsFile = "appsettings.json"
)

// Startup validation failures. Each aborts the process before any port is bound.
var (
	ErrMissingConnectionString = errors.New("connection string 'DefaultConnection' not found")
	ErrMissingJWTKey           = errors.New("JWT key is missing")
	ErrJWTKeyTooShort          = fmt.Errorf("JWT key must be at least %d characters long", MinJWTKeyLength)
	ErrMissingJWTIssuer        = errors.New("JWT issuer is missing")
	ErrMissingJWTAudience      = errors.New("JWT audience is missing")
	ErrInvalidSetting          = errors.New("invalid setting")
)

// JWTSettings configures token issuance and bearer validation.
type JWTSettings struct {
	Key        string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Port            string
	HTTPSPort       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the socket peer is always the client.
	TrustedProxies []netip.Prefix
}

// PasswordPolicy mirrors the identity password options.
type PasswordPolicy struct {
	RequiredLength         int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// KafkaSettings configures the domain event publisher.
type KafkaSettings struct {
	Brokers []string
	Topic   string
}

// TracingSettings configures the OTLP exporter.
type TracingSettings struct {
	Enabled       bool
	Endpoint      string
	SamplingRatio float64
}

// Config is the immutable application configuration built once at startup.
type Config struct {
	Environment      string
	ContentRoot      string
	ConnectionString string
	JWT              JWTSettings
	Server           ServerSettings
	Password         PasswordPolicy
	CORSOrigins      []string
	RedisURL         string
	Kafka            KafkaSettings
	AutoMigrate      bool
	CatalogCacheTTL  time.Duration
	LoginRate        string
	LogLevel         string
	LogFormat        string
	MetricsEnabled   bool
	MetricsNamespace string
	Tracing          TracingSettings
}

var defaults = map[string]any{
	"JwtSettings.ExpiryMinutes":                60,
	"JwtSettings.RefreshExpiryDays":            7,
	"JwtSettings.ClockSkewSeconds":             5,
	"Server.Port":                              "8080",
	"Server.HttpsPort":                         "443",
	"Server.ReadTimeout":                       "10s",
	"Server.WriteTimeout":                      "15s",
	"Server.ShutdownTimeout":                   "20s",
	"Server.MaxBodyBytes":                      10 << 20,
	"Cors.AllowedOrigins":                      "*",
	"Kafka.Topic":                              "store.events",
	"Catalog.CacheTTL":                         "5m",
	"RateLimit.Login":                          "10-M",
	"Logging.Level":                            "info",
	"Logging.Format":                           "json",
	"Metrics.Enabled":                          true,
	"Metrics.Namespace":                        "store",
	"Tracing.SamplingRatio":                    1.0,
	"Identity.Password.RequiredLength":         8,
	"Identity.Password.RequireDigit":           true,
	"Identity.Password.RequireLowercase":       true,
	"Identity.Password.RequireUppercase":       true,
	"Identity.Password.RequireNonAlphanumeric": false,
}

// Load reads appsettings.json from contentRoot, the optional
// appsettings.<Environment>.json overlay, a .env file and finally
// environment variables using "__" as the section separator.
func Load(contentRoot string) (*Config, error) {
	if contentRoot == "" {
		contentRoot = "."
	}
	_ = godotenv.Load(filepath.Join(contentRoot, ".env"))

	environment := strings.ToLower(valueOrDefault(os.Getenv("APP_ENV"), EnvDevelopment))

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(file.Provider(filepath.Join(contentRoot, settingsFile)), json.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", settingsFile, err)
	}
	overlay := filepath.Join(contentRoot, "appsettings."+environmentFileSuffix(environment)+".json")
	if _, err := os.Stat(overlay); err == nil {
		if err := k.Load(file.Provider(overlay), json.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(overlay), err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	r := &reader{k: k}
	cfg := &Config{
		Environment:      environment,
		ContentRoot:      contentRoot,
		ConnectionString: strings.TrimSpace(k.String("ConnectionStrings.DefaultConnection")),
		JWT: JWTSettings{
			Key:        k.String("JwtSettings.Key"),
			Issuer:     strings.TrimSpace(k.String("JwtSettings.Issuer")),
			Audience:   strings.TrimSpace(k.String("JwtSettings.Audience")),
			AccessTTL:  time.Duration(r.integer("JwtSettings.ExpiryMinutes", 60, 1)) * time.Minute,
			RefreshTTL: time.Duration(r.integer("JwtSettings.RefreshExpiryDays", 7, 1)) * 24 * time.Hour,
			ClockSkew:  time.Duration(r.integer("JwtSettings.ClockSkewSeconds", 5, 0)) * time.Second,
		},
		Server: ServerSettings{
			Port:            valueOrDefault(k.String("Server.Port"), "8080"),
			HTTPSPort:       valueOrDefault(k.String("Server.HttpsPort"), "443"),
			ReadTimeout:     r.duration("Server.ReadTimeout", 10*time.Second),
			WriteTimeout:    r.duration("Server.WriteTimeout", 15*time.Second),
			ShutdownTimeout: r.duration("Server.ShutdownTimeout", 20*time.Second),
			MaxBodyBytes:    int64(r.integer("Server.MaxBodyBytes", 10<<20, 1)),
			TrustedProxies:  r.prefixes("Server.TrustedProxies"),
		},
		Password: PasswordPolicy{
			RequiredLength:         r.integer("Identity.Password.RequiredLength", 8, 1),
			RequireDigit:           r.boolean("Identity.Password.RequireDigit"),
			RequireLowercase:       r.boolean("Identity.Password.RequireLowercase"),
			RequireUppercase:       r.boolean("Identity.Password.RequireUppercase"),
			RequireNonAlphanumeric: r.boolean("Identity.Password.RequireNonAlphanumeric"),
		},
		CORSOrigins: stringList(k, "Cors.AllowedOrigins"),
		RedisURL:    strings.TrimSpace(k.String("Redis.Url")),
		Kafka: KafkaSettings{
			Brokers: stringList(k, "Kafka.Brokers"),
			Topic:   valueOrDefault(k.String("Kafka.Topic"), "store.events"),
		},
		AutoMigrate:      r.boolean("Database.AutoMigrate"),
		CatalogCacheTTL:  r.duration("Catalog.CacheTTL", 5*time.Minute),
		LoginRate:        valueOrDefault(k.String("RateLimit.Login"), "10-M"),
		LogLevel:         valueOrDefault(k.String("Logging.Level"), "info"),
		LogFormat:        valueOrDefault(k.String("Logging.Format"), "json"),
		MetricsEnabled:   r.boolean("Metrics.Enabled"),
		MetricsNamespace: valueOrDefault(k.String("Metrics.Namespace"), "store"),
		Tracing: TracingSettings{
			Enabled:       r.boolean("Tracing.Enabled"),
			Endpoint:      strings.TrimSpace(k.String("Tracing.Endpoint")),
			SamplingRatio: r.ratio("Tracing.SamplingRatio", 1),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return ErrMissingConnectionString
	}
	if c.JWT.Key == "" {
		return ErrMissingJWTKey
	}
	if utf8.RuneCountInString(c.JWT.Key) < MinJWTKeyLength {
		return ErrJWTKeyTooShort
	}
	if c.JWT.Issuer == "" {
		return ErrMissingJWTIssuer
	}
	if c.JWT.Audience == "" {
		return ErrMissingJWTAudience
	}
	return nil
}

// IsDevelopment reports whether the process runs in the development environment.
func (c *Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }

// IsProduction reports whether the process runs in the production environment.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Server.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// ImagesDir is the on-disk directory served under /images.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.ContentRoot, "App_Data", "Images")
}

// envKey maps JwtSettings__Key to JwtSettings.Key and drops variables
// without a section separator.
func envKey(s string) string {
	if !strings.Contains(s, "__") {
		return ""
	}
	return strings.ReplaceAll(s, "__", ".")
}

func environmentFileSuffix(environment string) string {
	switch environment {
	case EnvDevelopment:
		return "Development"
	case EnvProduction:
		return "Production"
	}
	if environment == "" {
		return ""
	}
	return strings.ToUpper(environment[:1]) + environment[1:]
}

func stringList(k *koanf.Koanf, key string) []string {
	switch v := k.Get(key).(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return splitAndTrim(k.String(key))
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

// reader converts koanf values into typed settings. JSON files yield
// float64 and bool values while environment variables always arrive as
// strings, so every getter accepts both. The first malformed value is kept
// in err and aborts Load.
type reader struct {
	k   *koanf.Koanf
	err error
}

func (r *reader) fail(key string, raw any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w %s: %v", ErrInvalidSetting, key, raw)
	}
}

// integer reads a whole number no smaller than min.
func (r *reader) integer(key string, fallback, min int) int {
	if !r.k.Exists(key) {
		return fallback
	}
	raw := r.k.Get(key)
	var n int64
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			r.fail(key, raw)
			return fallback
		}
		n = parsed
	case float64:
		if v != float64(int64(v)) {
			r.fail(key, raw)
			return fallback
		}
		n = int64(v)
	case int, int64:
		n = r.k.Int64(key)
	default:
		r.fail(key, raw)
		return fallback
	}
	if n < int64(min) {
		r.fail(key, raw)
		return fallback
	}
	return int(n)
}

// duration accepts Go duration strings ("30s", "5m") or a bare number of
// seconds.
func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	if !r.k.Exists(key) {
		return fallback
	}
	raw := r.k.Get(key)
	var d time.Duration
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			d = time.Duration(secs * float64(time.Second))
			break
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			r.fail(key, raw)
			return fallback
		}
		d = parsed
	case float64, int, int64:
		d = time.Duration(r.k.Float64(key) * float64(time.Second))
	default:
		r.fail(key, raw)
		return fallback
	}
	if d <= 0 {
		r.fail(key, raw)
		return fallback
	}
	return d
}

// ratio reads a fraction in [0, 1].
func (r *reader) ratio(key string, fallback float64) float64 {
	if !r.k.Exists(key) {
		return fallback
	}
	raw := r.k.Get(key)
	var f float64
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			r.fail(key, raw)
			return fallback
		}
		f = parsed
	case float64, int, int64:
		f = r.k.Float64(key)
	default:
		r.fail(key, raw)
		return fallback
	}
	if f < 0 || f > 1 {
		r.fail(key, raw)
		return fallback
	}
	return f
}

func (r *reader) boolean(key string) bool {
	if !r.k.Exists(key) {
		return false
	}
	raw := r.k.Get(key)
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		case "", "0", "false", "no", "off":
			return false
		}
	}
	r.fail(key, raw)
	return false
}

// prefixes reads CIDRs or bare addresses; a bare address becomes a
// single-host prefix.
func (r *reader) prefixes(key string) []netip.Prefix {
	items := stringList(r.k, key)
	if len(items) == 0 {
		return nil
	}
	out := make([]netip.Prefix, 0, len(items))
	for _, item := range items {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				r.fail(key, item)
				return nil
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			r.fail(key, item)
			return nil
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}
