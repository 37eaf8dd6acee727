package main

import (
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/httpserver"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/pg"
	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/redis"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"cartsweeper"`

	// Empty keeps the environment's preset.
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize   int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	SweepConcurrency int           `env:"SWEEP_CONCURRENCY" envDefault:"4"`

	LockTimeout    time.Duration `env:"CART_LOCK_TIMEOUT" envDefault:"30s"`
	LockStaleAfter time.Duration `env:"CART_LOCK_STALE_AFTER" envDefault:"10m"`
	MaxRetries     int           `env:"CART_MAX_RETRIES" envDefault:"3"`
	BaseDelay      time.Duration `env:"CART_RETRY_BASE_DELAY" envDefault:"50ms"`
	MaxQuantity    int           `env:"CART_MAX_QUANTITY" envDefault:"99"`

	EmitQueueSize     int           `env:"CART_EMIT_QUEUE_SIZE" envDefault:"1024"`
	AuditBatchSize    int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	AuditBatchTimeout time.Duration `env:"AUDIT_BATCH_TIMEOUT" envDefault:"200ms"`

	Pg    pg.Config
	Redis redis.Config
	HTTP  httpserver.Config
}
