package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/quorumnet/watchtower/common"
	"github.com/quorumnet/watchtower/scanner"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerDir is the default name of the folder containing the
	// Badger databases.
	DefaultBadgerDir = "badger_db"

	// DefaultScanFile is the default name of the file the external crawler
	// drops scans into.
	DefaultScanFile = "scan.json"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultNetworkID        = "public"
	DefaultNetworkName      = "Public Network"
	DefaultScanInterval     = scanner.DefaultScanInterval
	DefaultDetectionWindow  = scanner.DefaultDetectionWindow
	DefaultMaxParallelSends = scanner.DefaultMaxParallelSends
	DefaultStore            = false
)

// Config contains all the configuration properties of a watchtower instance.
type Config struct {
	// DataDir is the top-level directory containing watchtower
	// configuration and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, duplicates the log output to a file.
	LogFile string `mapstructure:"log-file"`

	// ScanSource is the file the external crawler writes scans to.
	ScanSource string `mapstructure:"scan-source"`

	// ScanInterval is the minimum time between two reconciliation cycles.
	ScanInterval time.Duration `mapstructure:"scan-interval"`

	// DetectionWindow is the number of consecutive bad periods before a
	// per-entity event fires.
	DetectionWindow int `mapstructure:"detection-window"`

	// MaxParallelSends is the size of the notification dispatch pool.
	MaxParallelSends int `mapstructure:"max-parallel-sends"`

	// Store activates persistent storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// NetworkID identifies the watched network in event sources.
	NetworkID string `mapstructure:"network-id"`

	// NetworkName is the friendly name of the watched network.
	NetworkName string `mapstructure:"network-name"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		ScanSource:       filepath.Join(DefaultDataDir(), DefaultScanFile),
		ScanInterval:     DefaultScanInterval,
		DetectionWindow:  DefaultDetectionWindow,
		MaxParallelSends: DefaultMaxParallelSends,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		NetworkID:        DefaultNetworkID,
		NetworkName:      DefaultNetworkName,
	}
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level watchtower directory, and updates the
// database directory and scan source if they are currently set to the
// default values.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerDir)
	}
	if c.ScanSource == filepath.Join(DefaultDataDir(), DefaultScanFile) {
		c.ScanSource = filepath.Join(dataDir, DefaultScanFile)
	}
}

// SnapshotDatabaseDir returns the path of the snapshot database.
func (c *Config) SnapshotDatabaseDir() string {
	return filepath.Join(c.DatabaseDir, "snapshots")
}

// SubscriptionDatabaseDir returns the path of the subscription database.
func (c *Config) SubscriptionDatabaseDir() string {
	return filepath.Join(c.DatabaseDir, "subscriptions")
}

// Logger returns a formatted logrus Entry, with prefix set to "watchtower".
// When LogFile is set, a file hook duplicates all levels to it.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				pathMap[level] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				new(logrus.JSONFormatter),
			))
		}
	}
	return c.logger.WithField("prefix", "watchtower")
}

// ScannerConfig derives the scanner's runtime settings from the config.
func (c *Config) ScannerConfig() *scanner.Config {
	return &scanner.Config{
		ScanInterval:     c.ScanInterval,
		DetectionWindow:  c.DetectionWindow,
		MaxParallelSends: c.MaxParallelSends,
		Logger:           c.Logger(),
	}
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerDir)
}

// DefaultDataDir return the default directory name for top-level watchtower
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Watchtower")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Watchtower")
		} else {
			return filepath.Join(home, ".watchtower")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
