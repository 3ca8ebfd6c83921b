package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the gateway process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Provider   ProviderConfig
	Admission  AdmissionConfig
	Reconciler ReconcilerConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit. Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

type ProviderConfig struct {
	BaseURL string

	// Timeout is the hard deadline on outbound call-creation and call-status requests.
	Timeout time.Duration
}

type AdmissionConfig struct {
	// RateLimitThreshold is the default calls-per-window cap for widgets without an override.
	RateLimitThreshold int
	RateLimitWindow    time.Duration

	// FailPolicy is "open" or "closed"; applied when a rate/budget query errors.
	FailPolicy string

	// DevDomains are globally allowed development host patterns (comma separated in env).
	DevDomains []string

	// WidgetCacheTTL bounds staleness of cached widget configs.
	WidgetCacheTTL time.Duration

	// GuardTTL bounds how long a per-widget reservation guard may be held.
	GuardTTL time.Duration
}

type ReconcilerConfig struct {
	// Interval is how often the background loop runs a pass.
	Interval      time.Duration
	BatchSize     int
	GracePeriod   time.Duration
	Retention     time.Duration
	OrphanHorizon time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.TokenTTL = optDuration("JWT_TOKEN_TTL")

	c.Provider.BaseURL = strings.TrimSpace(os.Getenv("PROVIDER_BASE_URL"))
	c.Provider.Timeout = optDuration("PROVIDER_TIMEOUT")

	c.Admission.RateLimitThreshold = optInt("RATE_LIMIT_THRESHOLD")
	c.Admission.RateLimitWindow = optDuration("RATE_LIMIT_WINDOW")
	c.Admission.FailPolicy = strings.TrimSpace(os.Getenv("ADMISSION_FAIL_POLICY"))
	c.Admission.DevDomains = splitList(os.Getenv("DEV_DOMAINS"))
	c.Admission.WidgetCacheTTL = optDuration("WIDGET_CACHE_TTL")
	c.Admission.GuardTTL = optDuration("ADMISSION_GUARD_TTL")

	c.Reconciler.Interval = optDuration("RECONCILER_INTERVAL")
	c.Reconciler.BatchSize = optInt("RECONCILER_BATCH_SIZE")
	c.Reconciler.GracePeriod = optDuration("RECONCILER_GRACE_PERIOD")
	c.Reconciler.Retention = optDuration("RECONCILER_RETENTION")
	c.Reconciler.OrphanHorizon = optDuration("RECONCILER_ORPHAN_HORIZON")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Auth.JWTIssuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required in production"))
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 1 * time.Hour
	}

	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("PROVIDER_BASE_URL is required"))
	} else if !strings.HasPrefix(c.Provider.BaseURL, "http://") && !strings.HasPrefix(c.Provider.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("PROVIDER_BASE_URL must be an http(s) URL, got %q", c.Provider.BaseURL))
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 10 * time.Second
	}

	if c.Admission.RateLimitThreshold <= 0 {
		c.Admission.RateLimitThreshold = 10
	}
	if c.Admission.RateLimitWindow <= 0 {
		c.Admission.RateLimitWindow = 1 * time.Hour
	}
	switch c.Admission.FailPolicy {
	case "":
		c.Admission.FailPolicy = "open"
	case "open", "closed":
	default:
		errs = append(errs, fmt.Errorf("ADMISSION_FAIL_POLICY must be open or closed, got %q", c.Admission.FailPolicy))
	}
	if c.Admission.WidgetCacheTTL <= 0 {
		c.Admission.WidgetCacheTTL = 60 * time.Second
	}
	if c.Admission.GuardTTL <= 0 {
		c.Admission.GuardTTL = 2 * time.Second
	}

	if c.Reconciler.Interval <= 0 {
		c.Reconciler.Interval = 1 * time.Minute
	}
	if c.Reconciler.BatchSize <= 0 {
		c.Reconciler.BatchSize = 100
	}
	if c.Reconciler.GracePeriod <= 0 {
		c.Reconciler.GracePeriod = 5 * time.Minute
	}
	if c.Reconciler.Retention <= 0 {
		c.Reconciler.Retention = 7 * 24 * time.Hour
	}
	if c.Reconciler.OrphanHorizon <= 0 {
		c.Reconciler.OrphanHorizon = 1 * time.Hour
	}
	if c.Reconciler.OrphanHorizon >= c.Reconciler.Retention {
		errs = append(errs, errors.New("RECONCILER_ORPHAN_HORIZON must be shorter than RECONCILER_RETENTION"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// optInt returns 0 when the variable is unset or malformed; defaults are applied in Validate.
func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// optDuration returns 0 when the variable is unset or malformed; defaults are applied in Validate.
func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
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

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
