// Package config loads runtime settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportMemory   = "memory"
	TransportChannels = "channels"
	TransportRedis    = "redis"
	TransportKafka    = "kafka"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Endpoints are the collaborator service paths, relative to APIBaseURL.
type Endpoints struct {
	Login        string
	Register     string
	Routes       string
	Schedules    string // followed by /{routeId}
	Availability string // followed by /{routeId}/{date}
	Reserve      string
	Profile      string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:        "/api/auth/login",
		Register:     "/api/auth/register",
		Routes:       "/api/routes/routes",
		Schedules:    "/api/routes/schedules",
		Availability: "/api/reservation/availability",
		Reserve:      "/api/reservation/reserve",
		Profile:      "/api/user/profile/",
	}
}

type Config struct {
	AppName string
	Debug   bool

	APIBaseURL  string
	HTTPTimeout time.Duration
	Endpoints   Endpoints

	EventTransport string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	KafkaBrokers   []string
	ConsumerGroup  string

	CredentialStore string
	CredentialKey   string
	ReceiptStore    string
	DatabaseDSN     string

	PaymentApprovalRate float64
	PaymentDelay        time.Duration
	SessionExpiredDelay time.Duration

	StubAddr      string
	StubJWTSecret string
	StubTokenTTL  time.Duration
}

// Load reads a .env file when present, then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		AppName: p.str("APP_NAME", "go-busbooking"),
		Debug:   p.boolean("APP_DEBUG", false),

		APIBaseURL:  strings.TrimRight(p.str("BOOKING_API_BASE_URL", "http://localhost:8080"), "/"),
		HTTPTimeout: p.duration("BOOKING_HTTP_TIMEOUT", 10*time.Second),
		Endpoints:   DefaultEndpoints(),

		EventTransport: strings.ToLower(p.str("BOOKING_EVENT_TRANSPORT", TransportMemory)),
		RedisAddr:      p.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  p.str("REDIS_PASSWORD", ""),
		RedisDB:        p.integer("REDIS_DB", 0),
		KafkaBrokers:   p.list("KAFKA_BROKERS", []string{"localhost:9092"}),
		ConsumerGroup:  p.str("BOOKING_CONSUMER_GROUP", "booking_notices"),

		CredentialStore: strings.ToLower(p.str("BOOKING_CREDENTIAL_STORE", StoreMemory)),
		CredentialKey:   p.str("BOOKING_CREDENTIAL_KEY", "booking:credential"),
		ReceiptStore:    strings.ToLower(p.str("BOOKING_RECEIPT_STORE", StoreMemory)),
		DatabaseDSN:     p.str("DATABASE_DSN", ""),

		PaymentApprovalRate: p.float("PAYMENT_APPROVAL_RATE", 0.7),
		PaymentDelay:        p.duration("PAYMENT_DELAY", 2*time.Second),
		SessionExpiredDelay: p.duration("SESSION_EXPIRED_DELAY", 2*time.Second),

		StubAddr:      p.str("STUB_ADDR", ":8080"),
		StubJWTSecret: p.str("STUB_JWT_SECRET", "change-me"),
		StubTokenTTL:  p.duration("STUB_TOKEN_TTL", time.Hour),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.EventTransport {
	case TransportMemory, TransportChannels, TransportRedis, TransportKafka:
	default:
		errs = append(errs, fmt.Errorf("config: BOOKING_EVENT_TRANSPORT %q is not one of memory, channels, redis, kafka", c.EventTransport))
	}
	switch c.CredentialStore {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("config: BOOKING_CREDENTIAL_STORE %q is not one of memory, redis", c.CredentialStore))
	}
	switch c.ReceiptStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("config: DATABASE_DSN is required for the postgres receipt store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: BOOKING_RECEIPT_STORE %q is not one of memory, postgres", c.ReceiptStore))
	}
	if c.PaymentApprovalRate < 0 || c.PaymentApprovalRate > 1 {
		errs = append(errs, fmt.Errorf("config: PAYMENT_APPROVAL_RATE %v must be within [0,1]", c.PaymentApprovalRate))
	}
	if c.EventTransport == TransportKafka && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("config: KAFKA_BROKERS is required for the kafka transport"))
	}
	return errors.Join(errs...)
}

type parser struct {
	errs []error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: invalid int for %s: %q", key, raw))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: invalid number for %s: %q", key, raw))
		return def
	}
	return f
}

func (p *parser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: invalid bool for %s: %q", key, raw))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: invalid duration for %s: %q", key, raw))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
