package config

import (
	"time"
)

type DB struct {
	Url         string `envconfig:"URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	MaxOpenConn int    `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConn int    `envconfig:"MAX_IDLE_CONNS" default:"25"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:""`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"ledger:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers      string `envconfig:"BROKERS" default:""`
	TopicPrefix  string `envconfig:"TOPIC_PREFIX" default:"ledger.events"`
	GroupID      string `envconfig:"GROUP_ID" default:"ledger"`
	SASLUsername string `envconfig:"SASL_USERNAME"`
	SASLPassword string `envconfig:"SASL_PASSWORD"`
}

type EventBus struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
	Stream string `envconfig:"STREAM" default:"ledger:events"`
	Group  string `envconfig:"GROUP" default:"ledger"`
}

type Lock struct {
	RedisURL      string        `envconfig:"REDIS_URL" default:""`
	TTL           time.Duration `envconfig:"TTL" default:"10s"`
	RetryInterval time.Duration `envconfig:"RETRY_INTERVAL" default:"25ms"`
}

type Ledger struct {
	MaxAttempts     int `envconfig:"MAX_ATTEMPTS" default:"5"`
	DefaultPageSize int `envconfig:"PAGE_SIZE" default:"50"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"200"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

type Server struct {
	Scheme         string        `envconfig:"SCHEME" default:"http"`
	Host           string        `envconfig:"HOST" default:"localhost"`
	Port           int           `envconfig:"PORT" default:"3000"`
	GrpcPort       int           `envconfig:"GRPC_PORT" default:"0"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	AllowedOrigins string        `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	Kafka     *Kafka     `envconfig:"KAFKA"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
	Lock      *Lock      `envconfig:"LOCK"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
}
