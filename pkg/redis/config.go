package redis

import "time"

// Config is read from the environment with pkg/config.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // redis://:password@host:6379/0
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	LockKeyPrefix  string `env:"REDIS_LOCK_PREFIX" envDefault:"cart_item:lock:"`
	StockKeyPrefix string `env:"REDIS_STOCK_PREFIX" envDefault:"inventory:stock:"`
	ChannelPrefix  string `env:"REDIS_EVENTS_PREFIX" envDefault:"events:"`
}
