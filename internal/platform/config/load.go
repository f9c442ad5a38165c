package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// ValidationError lists config fields that are missing or malformed.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config validation failed: missing or invalid fields [" + strings.Join(e.fields, ", ") + "]"
}

func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile points at a dotenv file for local overrides. An empty path or a
// missing file is ignored.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap takes precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets fails Load when any named field, e.g.
// "PSP.StripeWebhookSecret", ends up empty.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret:       SecretResolverFunc(unresolvedSecrets),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// EnvironmentValues merges the dotenv file, the process environment and the
// explicit map, later sources winning. main uses it to build the logger and
// secret fetcher before Load runs.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	values, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			if key, value, ok := strings.Cut(entry, "="); ok && strings.TrimSpace(key) != "" {
				values[strings.TrimSpace(key)] = value
			}
		}
	}
	maps.Copy(values, options.envMap)
	return values, nil
}

// Load reads API_* settings, resolves secret references and validates the
// result. Malformed numbers and durations are reported as invalid fields
// rather than silently replaced by defaults.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	env := &envReader{lookup: func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}}

	cfg := Config{
		Server: ServerConfig{
			Port:            env.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:     env.duration("API_SERVER_READ_TIMEOUT", "Server.ReadTimeout", defaultReadTimeout),
			WriteTimeout:    env.duration("API_SERVER_WRITE_TIMEOUT", "Server.WriteTimeout", defaultWriteTimeout),
			IdleTimeout:     env.duration("API_SERVER_IDLE_TIMEOUT", "Server.IdleTimeout", defaultIdleTimeout),
			ShutdownTimeout: env.duration("API_SERVER_SHUTDOWN_TIMEOUT", "Server.ShutdownTimeout", defaultShutdownTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       env.str("API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: env.str("API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    env.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: env.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Persistence: PersistenceConfig{Driver: env.lower("API_PERSISTENCE_DRIVER", defaultPersistenceDriver)},
		Events: EventsConfig{
			Driver:       env.lower("API_EVENTS_DRIVER", defaultEventsDriver),
			Topic:        env.str("API_EVENTS_TOPIC", defaultEventsTopic),
			KafkaBrokers: env.list("API_EVENTS_KAFKA_BROKERS"),
		},
		Realtime: RealtimeConfig{
			Driver:         env.lower("API_REALTIME_DRIVER", defaultRealtimeDriver),
			RedisAddr:      env.str("API_REALTIME_REDIS_ADDR", ""),
			RedisPassword:  env.str("API_REALTIME_REDIS_PASSWORD", ""),
			RedisDB:        env.integer("API_REALTIME_REDIS_DB", "Realtime.RedisDB", 0),
			AllowedOrigins: env.list("API_REALTIME_ALLOWED_ORIGINS"),
			WriteTimeout:   env.duration("API_REALTIME_WRITE_TIMEOUT", "Realtime.WriteTimeout", defaultRealtimeWrite),
			PingInterval:   env.duration("API_REALTIME_PING_INTERVAL", "Realtime.PingInterval", defaultRealtimePing),
		},
		Orders: OrderConfig{
			TaxRate:            env.decimal("API_ORDERS_TAX_RATE", "Orders.TaxRate", defaultTaxRate),
			DefaultShippingFee: int64(env.integer("API_ORDERS_DEFAULT_SHIPPING_FEE", "Orders.DefaultShippingFee", 0)),
			SweepInterval:      env.duration("API_ORDERS_SWEEP_INTERVAL", "Orders.SweepInterval", defaultSweepInterval),
			UnpaidTimeout:      env.duration("API_ORDERS_UNPAID_TIMEOUT", "Orders.UnpaidTimeout", defaultUnpaidTimeout),
			SweepBatchSize:     env.integer("API_ORDERS_SWEEP_BATCH", "Orders.SweepBatchSize", defaultSweepBatchSize),
		},
		Bookings: BookingConfig{
			CodeAttempts: env.integer("API_BOOKINGS_CODE_ATTEMPTS", "Bookings.CodeAttempts", defaultBookingCodeRetries),
		},
		PSP: PSPConfig{
			StripeAPIKey:        env.str("API_PSP_STRIPE_API_KEY", ""),
			StripeWebhookSecret: env.str("API_PSP_STRIPE_WEBHOOK_SECRET", ""),
		},
		Security: SecurityConfig{
			Environment: env.lower("API_SECURITY_ENVIRONMENT", defaultSecurityEnv),
			OIDC: OIDCConfig{
				JWKSURL:  env.str("API_SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience: env.str("API_SECURITY_OIDC_AUDIENCE", ""),
				Issuers:  env.list("API_SECURITY_OIDC_ISSUERS"),
			},
		},
		Observability: ObservabilityConfig{
			ServiceName:    env.str("API_SERVICE_NAME", defaultServiceName),
			LogLevel:       env.lower("API_LOG_LEVEL", defaultLogLevel),
			MetricsEnabled: env.boolean("API_METRICS_ENABLED", "Observability.MetricsEnabled", true),
		},
	}
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultSecurityIssuer}
	}

	resolved := make(map[string]string)
	for name, field := range map[string]*string{
		"PSP.StripeAPIKey":        &cfg.PSP.StripeAPIKey,
		"PSP.StripeWebhookSecret": &cfg.PSP.StripeWebhookSecret,
		"Realtime.RedisPassword":  &cfg.Realtime.RedisPassword,
	} {
		value, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = value
		resolved[name] = strings.TrimSpace(value)
	}

	if invalid := validate(cfg, env.invalid); len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

// validate appends every failed rule to invalid, keeping the first mention
// of each field.
func validate(cfg Config, invalid []string) []string {
	add := func(field string) {
		for _, f := range invalid {
			if f == field {
				return
			}
		}
		invalid = append(invalid, field)
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if cfg.Server.Port == "" {
		add("Server.Port")
	}
	switch cfg.Persistence.Driver {
	case "memory":
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			add("Firestore.ProjectID")
		}
	default:
		add("Persistence.Driver")
	}
	switch cfg.Events.Driver {
	case "none":
	case "pubsub", "kafka":
		if cfg.Events.Driver == "pubsub" && cfg.Firestore.ProjectID == "" {
			add("Firestore.ProjectID")
		}
		if cfg.Events.Driver == "kafka" && len(cfg.Events.KafkaBrokers) == 0 {
			add("Events.KafkaBrokers")
		}
		if blank(cfg.Events.Topic) {
			add("Events.Topic")
		}
	default:
		add("Events.Driver")
	}
	switch cfg.Realtime.Driver {
	case "memory":
	case "redis":
		if blank(cfg.Realtime.RedisAddr) {
			add("Realtime.RedisAddr")
		}
	default:
		add("Realtime.Driver")
	}

	orders := cfg.Orders
	if orders.TaxRate.IsNegative() || orders.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		add("Orders.TaxRate")
	}
	if orders.DefaultShippingFee < 0 {
		add("Orders.DefaultShippingFee")
	}
	if orders.SweepInterval <= 0 {
		add("Orders.SweepInterval")
	}
	if orders.UnpaidTimeout <= 0 {
		add("Orders.UnpaidTimeout")
	}
	if orders.SweepBatchSize <= 0 {
		add("Orders.SweepBatchSize")
	}
	if cfg.Bookings.CodeAttempts <= 0 {
		add("Bookings.CodeAttempts")
	}
	return invalid
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	values, err := godotenv.Read(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

// envReader reads typed values and remembers the config field of every
// value that failed to parse.
type envReader struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (r *envReader) raw(key string) (string, bool) {
	value, ok := r.lookup(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (r *envReader) str(key, fallback string) string {
	if value, ok := r.raw(key); ok {
		return value
	}
	return fallback
}

func (r *envReader) lower(key, fallback string) string {
	return strings.ToLower(r.str(key, fallback))
}

func (r *envReader) list(key string) []string {
	value, _ := r.raw(key)
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) duration(key, field string, fallback time.Duration) time.Duration {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.invalid = append(r.invalid, field)
		return fallback
	}
	return d
}

func (r *envReader) integer(key, field string, fallback int) int {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.invalid = append(r.invalid, field)
		return fallback
	}
	return n
}

func (r *envReader) boolean(key, field string, fallback bool) bool {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	r.invalid = append(r.invalid, field)
	return fallback
}

func (r *envReader) decimal(key, field, fallback string) decimal.Decimal {
	value := r.str(key, fallback)
	d, err := decimal.NewFromString(value)
	if err != nil {
		r.invalid = append(r.invalid, field)
		return decimal.RequireFromString(fallback)
	}
	return d
}
