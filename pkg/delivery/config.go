package delivery

import "time"

// Config holds the delivery worker configuration.
type Config struct {
	PollInterval      time.Duration `env:"DELIVERY_POLL_INTERVAL" envDefault:"5s"`
	BatchSize         int           `env:"DELIVERY_BATCH_SIZE" envDefault:"50"`
	MaxAttempts       int           `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"5"`
	SendTimeout       time.Duration `env:"DELIVERY_SEND_TIMEOUT" envDefault:"30s"`
	StaleAfter        time.Duration `env:"DELIVERY_STALE_AFTER" envDefault:"0"`
	FailedRetention   time.Duration `env:"DELIVERY_FAILED_RETENTION" envDefault:"0"`
	RetentionInterval time.Duration `env:"DELIVERY_RETENTION_INTERVAL" envDefault:"1h"`
}

// Options converts the config into worker options.
func (c Config) Options() []WorkerOption {
	return []WorkerOption{
		WithPollInterval(c.PollInterval),
		WithBatchSize(c.BatchSize),
		WithMaxAttempts(c.MaxAttempts),
		WithSendTimeout(c.SendTimeout),
		WithStaleAfter(c.StaleAfter),
		WithFailedRetention(c.FailedRetention, c.RetentionInterval),
	}
}
