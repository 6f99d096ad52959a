package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"inviqa/request-basket/log"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
)

const (
	MySQL    DbDriver = "mysql"
	Postgres DbDriver = "postgres"

	Redis BlobDriver = "redis"
	OSS   BlobDriver = "oss"
)

type DbDriver string

type BlobDriver string

var supportedDbTypes = map[DbDriver]bool{
	Postgres: true,
	MySQL:    true,
}

var supportedBlobTypes = map[BlobDriver]bool{
	Redis: true,
	OSS:   true,
}

type Config struct {
	SkipMigrations    bool     `arg:"--skip-migrations,env:SKIP_MIGRATIONS"`
	DBHost            string   `arg:"--db-host,env:DB_HOST,required"`
	DBPort            uint32   `arg:"--db-port,env:DB_PORT,required"`
	DBUser            string   `arg:"--db-user,env:DB_USER,required"`
	DBPass            string   `arg:"--db-pass,env:DB_PASS,required"`
	DBSchema          string   `arg:"--db-schema,env:DB_SCHEMA,required"`
	DBDriver          DbDriver `arg:"--db-driver,env:DB_DRIVER,required"`
	TLSEnable         bool     `arg:"--tls,env:TLS_ENABLE"`
	TLSSkipVerifyPeer bool     `arg:"--tls-skip-verify-peer,env:TLS_SKIP_VERIFY_PEER"`

	HTTPAddr     string `arg:"--http-addr,env:HTTP_ADDR"`
	MetricsAddr  string `arg:"--metrics-addr,env:METRICS_ADDR"`
	MaxBodyBytes int64  `arg:"--max-body-bytes,env:MAX_BODY_BYTES"`

	BlobDriver         BlobDriver `arg:"--blob-driver,env:BLOB_DRIVER"`
	RedisAddr          string     `arg:"--redis-addr,env:REDIS_ADDR"`
	RedisPassword      string     `arg:"--redis-password,env:REDIS_PASSWORD"`
	RedisDB            int        `arg:"--redis-db,env:REDIS_DB"`
	RedisKeyPrefix     string     `arg:"--redis-key-prefix,env:REDIS_KEY_PREFIX"`
	OSSEndpoint        string     `arg:"--oss-endpoint,env:OSS_ENDPOINT"`
	OSSBucket          string     `arg:"--oss-bucket,env:OSS_BUCKET"`
	OSSBasePrefix      string     `arg:"--oss-base-prefix,env:OSS_BASE_PREFIX"`
	OSSAccessKeyID     string     `arg:"--oss-access-key-id,env:OSS_ACCESS_KEY_ID"`
	OSSAccessKeySecret string     `arg:"--oss-access-key-secret,env:OSS_ACCESS_KEY_SECRET"`

	NatsURL          string   `arg:"--nats-url,env:NATS_URL"`
	KafkaHost        []string `arg:"--kafka-host,env:KAFKA_HOST"`
	KafkaEventsTopic string   `arg:"--kafka-events-topic,env:KAFKA_EVENTS_TOPIC"`

	NotifyConcurrency int `arg:"--notify-concurrency,env:NOTIFY_CONCURRENCY"`
	NotifyQueueSize   int `arg:"--notify-queue-size,env:NOTIFY_QUEUE_SIZE"`
	PushTimeoutMs     int `arg:"--push-timeout-ms,env:PUSH_TIMEOUT_MS"`
	AllocatorAttempts int `arg:"--allocator-attempts,env:ALLOCATOR_ATTEMPTS"`

	BasketTTLHours  int    `arg:"--basket-ttl-hours,env:BASKET_TTL_HOURS"`
	RunCleanup      bool   `arg:"--cleanup,env:RUN_CLEANUP"`
	RunOptimize     bool   `arg:"--optimize,env:RUN_OPTIMIZE"`
	SidecarProxyUrl string `arg:"--sidecar-proxy-url,env:SIDECAR_PROXY_URL"`
}

func NewConfig() (*Config, error) {
	// a missing .env file is the normal case outside local development
	_ = godotenv.Load()

	var args []string
	if len(os.Args) > 1 {
		args = os.Args[1:]
	}

	return newConfigFromArgs(args)
}

const defaultPushTimeoutMs = 5000

func newConfigFromArgs(args []string) (*Config, error) {
	c := &Config{
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9090",
		MaxBodyBytes:      1 << 20,
		BlobDriver:        Redis,
		RedisKeyPrefix:    "basket:body:",
		NotifyConcurrency: 4,
		NotifyQueueSize:   100,
		PushTimeoutMs:     defaultPushTimeoutMs,
		AllocatorAttempts: 10,
		BasketTTLHours:    168,
	}

	p, err := arg.NewParser(arg.Config{Program: "request-basket"}, c)
	if err != nil {
		return nil, err
	}

	if err := p.Parse(args); err != nil {
		return nil, err
	}

	if !supportedDbTypes[c.DBDriver] {
		return nil, fmt.Errorf("the DB_DRIVER provided (%s) is not supported", c.DBDriver)
	}

	if !supportedBlobTypes[c.BlobDriver] {
		return nil, fmt.Errorf("the BLOB_DRIVER provided (%s) is not supported", c.BlobDriver)
	}

	if c.BlobDriver == Redis && c.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required when BLOB_DRIVER=%s", Redis)
	}

	if c.BlobDriver == OSS && (c.OSSEndpoint == "" || c.OSSBucket == "" || c.OSSAccessKeyID == "" || c.OSSAccessKeySecret == "") {
		return nil, fmt.Errorf("OSS_ENDPOINT, OSS_BUCKET, OSS_ACCESS_KEY_ID and OSS_ACCESS_KEY_SECRET are required when BLOB_DRIVER=%s", OSS)
	}

	if c.KafkaEventsTopic != "" && len(c.KafkaHost) == 0 {
		return nil, fmt.Errorf("KAFKA_HOST is required when KAFKA_EVENTS_TOPIC is set")
	}

	if c.NotifyConcurrency < 1 {
		c.NotifyConcurrency = 1
	}

	if c.NotifyQueueSize < 0 {
		c.NotifyQueueSize = 0
	}

	if c.AllocatorAttempts < 1 {
		c.AllocatorAttempts = 1
	}

	if c.PushTimeoutMs < 1 {
		c.PushTimeoutMs = defaultPushTimeoutMs
	}

	return c, nil
}

// GetPushTimeout bounds a single push to a viewer. It is never zero: an
// unset timeout would fail every push immediately.
func (c *Config) GetPushTimeout() time.Duration {
	if c.PushTimeoutMs < 1 {
		return defaultPushTimeoutMs * time.Millisecond
	}
	return time.Duration(c.PushTimeoutMs) * time.Millisecond
}

// GetBasketTTL returns how long a basket lives before the cleanup job removes
// it. Zero disables expiry.
func (c *Config) GetBasketTTL() time.Duration {
	if c.BasketTTLHours <= 0 {
		return 0
	}
	return time.Duration(c.BasketTTLHours) * time.Hour
}

func (c *Config) KafkaMirrorEnabled() bool {
	return c.KafkaEventsTopic != "" && len(c.KafkaHost) > 0
}

func (c *Config) GetDSN() string {
	switch c.DBDriver {
	case MySQL:
		tls := "false"
		if c.TLSEnable {
			if c.TLSSkipVerifyPeer {
				tls = "skip-verify"
			} else {
				tls = "true"
			}
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=%s&multiStatements=true&clientFoundRows=true", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBSchema, tls)
	case Postgres:
		sslMode := "disable"
		if c.TLSEnable {
			if c.TLSSkipVerifyPeer {
				sslMode = "require"
			} else {
				sslMode = "verify-full"
			}
		}
		return fmt.Sprintf("%s://%s@%s:%d/%s?sslmode=%s", c.DBDriver, url.UserPassword(c.DBUser, c.DBPass), c.DBHost, c.DBPort, c.DBSchema, sslMode)
	default:
		log.Logger.Fatalf("the DB driver configured (%s) is not supported", c.DBDriver)
		return ""
	}
}

// GetDependencySystemAddresses lists the host:port pairs the readiness probe
// dials, besides the database which is pinged directly.
func (c *Config) GetDependencySystemAddresses() []string {
	var addrs []string
	if c.BlobDriver == Redis && c.RedisAddr != "" {
		addrs = append(addrs, c.RedisAddr)
	}
	if c.KafkaMirrorEnabled() {
		addrs = append(addrs, c.KafkaHost...)
	}
	if c.NatsURL != "" {
		if u, err := url.Parse(c.NatsURL); err == nil && u.Host != "" {
			host := u.Host
			if _, _, err := net.SplitHostPort(host); err != nil {
				host = net.JoinHostPort(host, "4222")
			}
			addrs = append(addrs, host)
		}
	}
	return addrs
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"SkipMigrations":     c.SkipMigrations,
		"DBHost":             c.DBHost,
		"DBPort":             c.DBPort,
		"DBUser":             c.DBUser,
		"DBPass":             "xxxxx",
		"DBSchema":           c.DBSchema,
		"DBDriver":           c.DBDriver,
		"TLSEnable":          c.TLSEnable,
		"TLSSkipVerifyPeer":  c.TLSSkipVerifyPeer,
		"HTTPAddr":           c.HTTPAddr,
		"MetricsAddr":        c.MetricsAddr,
		"MaxBodyBytes":       c.MaxBodyBytes,
		"BlobDriver":         c.BlobDriver,
		"RedisAddr":          c.RedisAddr,
		"RedisPassword":      mask(c.RedisPassword),
		"RedisDB":            c.RedisDB,
		"RedisKeyPrefix":     c.RedisKeyPrefix,
		"OSSEndpoint":        c.OSSEndpoint,
		"OSSBucket":          c.OSSBucket,
		"OSSBasePrefix":      c.OSSBasePrefix,
		"OSSAccessKeyID":     c.OSSAccessKeyID,
		"OSSAccessKeySecret": mask(c.OSSAccessKeySecret),
		"NatsURL":            c.NatsURL,
		"KafkaHost":          c.KafkaHost,
		"KafkaEventsTopic":   c.KafkaEventsTopic,
		"NotifyConcurrency":  c.NotifyConcurrency,
		"NotifyQueueSize":    c.NotifyQueueSize,
		"PushTimeoutMs":      c.PushTimeoutMs,
		"AllocatorAttempts":  c.AllocatorAttempts,
		"BasketTTLHours":     c.BasketTTLHours,
		"RunCleanup":         c.RunCleanup,
		"RunOptimize":        c.RunOptimize,
		"SidecarProxyUrl":    c.SidecarProxyUrl,
	})
}

func mask(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return ""
	}
	return "xxxxx"
}

func (d DbDriver) MySQL() bool {
	return d == MySQL
}

func (d DbDriver) Postgres() bool {
	return d == Postgres
}

func (d DbDriver) String() string {
	return string(d)
}

func (b BlobDriver) String() string {
	return string(b)
}
