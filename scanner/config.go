package scanner

import (
	"testing"
	"time"

	cm "github.com/quorumnet/watchtower/common"
	"github.com/sirupsen/logrus"
)

// Default scanner configuration values.
const (
	DefaultScanInterval     = 3 * time.Minute
	DefaultDetectionWindow  = 3
	DefaultMaxParallelSends = 10
)

// Config holds the scanner's runtime settings.
type Config struct {
	// ScanInterval is the minimum time between two cycles. A cycle that
	// takes longer than the interval causes the next tick to be refused, not
	// queued.
	ScanInterval time.Duration

	// DetectionWindow is the number of consecutive bad periods required
	// before a per-entity event fires.
	DetectionWindow int

	// MaxParallelSends is the size of the notification dispatch worker
	// pool.
	MaxParallelSends int

	// Logger ...
	Logger *logrus.Entry
}

// NewDefaultConfig returns a scanner config with default values.
func NewDefaultConfig(logger *logrus.Entry) *Config {
	return &Config{
		ScanInterval:     DefaultScanInterval,
		DetectionWindow:  DefaultDetectionWindow,
		MaxParallelSends: DefaultMaxParallelSends,
		Logger:           logger,
	}
}

// NewTestConfig returns a scanner config with a logger that writes to the
// test's log.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig(cm.NewTestEntry(t, logrus.DebugLevel))
	config.ScanInterval = 10 * time.Millisecond
	return config
}
