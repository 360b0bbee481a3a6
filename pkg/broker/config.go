package broker

import "time"

// Config holds the broker-level settings a deployment loads via
// pkg/config.Load, mirroring the teacher's env-tag-driven Config structs.
type Config struct {
	// RedisAddr is the Redis instance backing both pkg/queue/adapters/redis
	// and pkg/stream.
	RedisAddr string `env:"PSMQ_REDIS_ADDR" env-default:"localhost:6379"`

	// RedisKeyPrefix namespaces every queue key, passed to the redis
	// adapter's WithKeyPrefix option.
	RedisKeyPrefix string `env:"PSMQ_REDIS_KEY_PREFIX" env-default:"psmq"`

	// DefaultVT/DefaultDelay/DefaultMaxSize are loaded with the rest of
	// Config, but nothing reads them: queue.DefaultConfiguration and the
	// adapters' auto-create path always use the queue package constants.
	DefaultVT      int `env:"PSMQ_DEFAULT_VT" env-default:"60"`
	DefaultDelay   int `env:"PSMQ_DEFAULT_DELAY" env-default:"0"`
	DefaultMaxSize int `env:"PSMQ_DEFAULT_MAXSIZE" env-default:"65565"`

	// LockTTL bounds the auto-create guard lock.
	LockTTL time.Duration `env:"PSMQ_LOCK_TTL" env-default:"5s"`

	// ReaperEnabled turns on the background dead-letter sweep.
	ReaperEnabled bool          `env:"PSMQ_REAPER_ENABLED" env-default:"false"`
	Reaper        ReaperOptions `env-prefix:"PSMQ_REAPER_"`
}

// ReaperOptions mirrors queue.ReaperConfig's env tags at the top level so
// they load alongside the rest of Config.
type ReaperOptions struct {
	Interval        time.Duration `env:"INTERVAL" env-default:"30s"`
	MaxRC           int           `env:"MAX_RC" env-default:"0"`
	MaxAge          time.Duration `env:"MAX_AGE" env-default:"0s"`
	DeadLetterQueue string        `env:"DLQ" env-default:""`
}
