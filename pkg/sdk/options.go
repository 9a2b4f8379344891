package mindseye

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	path string

	addrs    []string
	password string
	key      string

	useTrigram bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFile loads events from a JSON document or JSON Lines file.
// A .gz or .zst suffix is decompressed transparently.
func WithFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.path = path
	})
}

// WithRedis loads events from a Redis list of JSON-encoded events.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisKey sets the list key read by WithRedis.
// Default: "mindseye:events".
func WithRedisKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.key = key
	})
}

// WithoutTrigram makes searches scan every event instead of narrowing
// through the trigram index. Results are identical; only speed differs.
func WithoutTrigram() Option {
	return optionFunc(func(c *clientConfig) {
		c.useTrigram = false
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
