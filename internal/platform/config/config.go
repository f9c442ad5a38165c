package config

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultShutdownTimeout    = 15 * time.Second
	defaultPersistenceDriver  = "firestore"
	defaultEventsDriver       = "none"
	defaultEventsTopic        = "campverse-domain-events"
	defaultRealtimeDriver     = "memory"
	defaultRealtimeWrite      = 10 * time.Second
	defaultRealtimePing       = 30 * time.Second
	defaultSweepInterval      = 5 * time.Minute
	defaultUnpaidTimeout      = 15 * time.Minute
	defaultSweepBatchSize     = 100
	defaultBookingCodeRetries = 5
	defaultTaxRate            = "0.1"
	defaultSecurityEnv        = "local"
	defaultOIDCJWKSURL        = "https://www.googleapis.com/oauth2/v3/certs"
	defaultSecurityIssuer     = "https://accounts.google.com"
	defaultServiceName        = "campverse-api"
	defaultLogLevel           = "info"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server        ServerConfig
	Firebase      FirebaseConfig
	Firestore     FirestoreConfig
	Persistence   PersistenceConfig
	Events        EventsConfig
	Realtime      RealtimeConfig
	Orders        OrderConfig
	Bookings      BookingConfig
	PSP           PSPConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings used for ID token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// PersistenceConfig selects the repository backend ("firestore" or "memory").
type PersistenceConfig struct {
	Driver string
}

// EventsConfig selects where domain events are published.
type EventsConfig struct {
	Driver       string
	Topic        string
	KafkaBrokers []string
}

// RealtimeConfig controls the websocket gateway and its pub/sub backplane.
type RealtimeConfig struct {
	Driver         string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// OrderConfig holds pricing and expiry settings for orders.
type OrderConfig struct {
	TaxRate            decimal.Decimal
	DefaultShippingFee int64
	SweepInterval      time.Duration
	UnpaidTimeout      time.Duration
	SweepBatchSize     int
}

// BookingConfig holds booking code generation settings.
type BookingConfig struct {
	CodeAttempts int
}

// PSPConfig collects payment provider secrets.
type PSPConfig struct {
	StripeAPIKey        string
	StripeWebhookSecret string
}

// SecurityConfig groups server-to-server authentication settings.
type SecurityConfig struct {
	Environment string
	OIDC        OIDCConfig
}

// OIDCConfig controls Google-signed token verification for internal callers.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	LogLevel       string
	MetricsEnabled bool
}

