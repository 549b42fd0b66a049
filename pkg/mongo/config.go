package mongo

import "time"

// Config holds the MongoDB connection settings of the notification and
// delivery queue stores.
type Config struct {
	ConnectionURL string `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
	// Database holds the notifications and delivery_queue collections.
	Database       string        `env:"MONGODB_DATABASE" envDefault:"notifykit"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`

	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`

	RetryWrites bool `env:"MONGODB_RETRY_WRITES" envDefault:"true"`
	RetryReads  bool `env:"MONGODB_RETRY_READS" envDefault:"true"`

	// RetryAttempts and RetryInterval control how Connect retries the
	// initial connection and ping at startup.
	RetryAttempts int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}
