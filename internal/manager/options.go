package manager

import (
	"time"

	"github.com/mcuadros/go-defaults"
)

// Options configures connection establishment, per-operation timeouts, and
// the reconnect policy.
type Options struct {
	// ConnectTimeout bounds one adapter connect + discovery attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`

	// ReadTimeout bounds one transport read or write.
	ReadTimeout time.Duration `yaml:"read_timeout" default:"5s"`

	// MaxRetries is the reconnect budget: after more than MaxRetries
	// consecutive failed attempts the manager enters the failed state.
	// Zero disables reconnecting entirely.
	MaxRetries int `yaml:"max_retries" default:"3"`

	// BackoffBase is the first reconnect delay; each further attempt
	// doubles it, capped at BackoffMax. Jitter of +-50% is applied.
	BackoffBase time.Duration `yaml:"backoff_base" default:"500ms"`
	BackoffMax  time.Duration `yaml:"backoff_max" default:"8s"`

	// TimeoutThreshold is the number of consecutive operation timeouts
	// treated as a link drop. A single timeout does not force a
	// reconnect; an explicit adapter drop signal always does.
	TimeoutThreshold int `yaml:"timeout_threshold" default:"3"`
}

// DefaultOptions returns the documented configuration defaults.
func DefaultOptions() Options {
	o := Options{}
	defaults.SetDefaults(&o)
	return o
}
