package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration, read once in main.
type Config struct {
	Server    Server
	Log       Log
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	Notify    Notify
	Auth      Auth
	SmartLink SmartLink
	Member    Member
}

type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Database selects the Postgres backend. An empty URL keeps everything in memory.
type Database struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Kafka struct {
	Brokers []string
	Topic   string
}

// NotifyBackend picks where FamilyChanged events go.
type NotifyBackend string

const (
	NotifyLog   NotifyBackend = "log"
	NotifyRedis NotifyBackend = "redis"
	NotifyKafka NotifyBackend = "kafka"
)

type Notify struct {
	Backend            NotifyBackend
	RedisChannelPrefix string
}

type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminAPIToken string
}

type SmartLink struct {
	MinScore      float64
	MaxCandidates int
}

type Member struct {
	AncestryMaxDepth int
	TxTimeout        time.Duration
	TxMaxRetries     int
}

const (
	DefaultSmartLinkMinScore      = 0.6
	DefaultSmartLinkMaxCandidates = 5
	DefaultAncestryMaxDepth       = 64
	DefaultTxTimeout              = 5 * time.Second
	DefaultTxMaxRetries           = 3
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Server: Server{
			Addr:            p.str("KINSHIP_ADDR", ":8080"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  p.str("LOG_LEVEL", "info"),
			Format: p.str("LOG_FORMAT", "text"),
		},
		Database: Database{
			URL:          p.str("DATABASE_URL", ""),
			MaxOpenConns: p.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: p.integer("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: p.list("KAFKA_BROKERS"),
			Topic:   p.str("KAFKA_TOPIC", "kinship.family-changed"),
		},
		Notify: Notify{
			Backend:            NotifyBackend(strings.ToLower(p.str("NOTIFY_BACKEND", string(NotifyLog)))),
			RedisChannelPrefix: p.str("NOTIFY_REDIS_CHANNEL_PREFIX", "kinship:family:"),
		},
		Auth: Auth{
			JWTSigningKey: p.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     p.str("JWT_ISSUER", ""),
			JWTAudience:   p.str("JWT_AUDIENCE", ""),
			AdminAPIToken: p.str("ADMIN_API_TOKEN", ""),
		},
		SmartLink: SmartLink{
			MinScore:      p.float("SMARTLINK_MIN_SCORE", DefaultSmartLinkMinScore),
			MaxCandidates: p.integer("SMARTLINK_MAX_CANDIDATES", DefaultSmartLinkMaxCandidates),
		},
		Member: Member{
			AncestryMaxDepth: p.integer("ANCESTRY_MAX_DEPTH", DefaultAncestryMaxDepth),
			TxTimeout:        p.duration("TX_TIMEOUT", DefaultTxTimeout),
			TxMaxRetries:     p.integer("TX_MAX_RETRIES", DefaultTxMaxRetries),
		},
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations that would fail later at wiring time.
func (c Config) Validate() error {
	if c.SmartLink.MinScore < 0 || c.SmartLink.MinScore > 1 {
		return fmt.Errorf("SMARTLINK_MIN_SCORE must be within [0,1], got %v", c.SmartLink.MinScore)
	}
	if c.SmartLink.MaxCandidates < 0 {
		return fmt.Errorf("SMARTLINK_MAX_CANDIDATES must not be negative")
	}
	if c.Member.AncestryMaxDepth <= 0 {
		return fmt.Errorf("ANCESTRY_MAX_DEPTH must be positive")
	}
	switch c.Notify.Backend {
	case NotifyLog:
	case NotifyRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("NOTIFY_BACKEND=redis requires REDIS_URL")
		}
	case NotifyKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("NOTIFY_BACKEND=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notify.Backend)
	}
	return nil
}

type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) list(key string) []string {
	var out []string
	for part := range strings.SplitSeq(p.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
