package commands

import (
	"github.com/quorumnet/watchtower/event"
	"github.com/quorumnet/watchtower/notify"
	"github.com/quorumnet/watchtower/scanner"
	"github.com/quorumnet/watchtower/snapshot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts the monitor
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the monitor",
		PreRunE: loadConfig,
		RunE:    runWatchtower,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runWatchtower(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	var snapshots snapshot.Store
	var subscriptions notify.SubscriptionStore

	if _config.Store {
		badgerSnapshots, err := snapshot.LoadOrCreateBadgerStore(_config.SnapshotDatabaseDir())
		if err != nil {
			logger.Error("Cannot open snapshot database:", err)
			return err
		}
		snapshots = badgerSnapshots

		badgerSubscriptions, err := notify.LoadOrCreateBadgerSubscriptionStore(_config.SubscriptionDatabaseDir())
		if err != nil {
			logger.Error("Cannot open subscription database:", err)
			return err
		}
		subscriptions = badgerSubscriptions
	} else {
		snapshots = snapshot.NewInmemStore()
		subscriptions = notify.NewInmemSubscriptionStore()
	}

	defer snapshots.Close()
	defer subscriptions.Close()

	engine := scanner.NewScanner(
		_config.ScannerConfig(),
		scanner.NewFileProvider(_config.ScanSource),
		snapshots,
		event.NewInmemMeasurementStore(_config.DetectionWindow+1),
		subscriptions,
		notify.NewTemplateRenderer(),
		notify.NewLogSender(logger),
	)

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Duplicate log output to file")

	// Scan
	cmd.Flags().String("scan-source", _config.ScanSource, "File the crawler writes scans to")
	cmd.Flags().Duration("scan-interval", _config.ScanInterval, "Minimum time between cycles")
	cmd.Flags().Int("detection-window", _config.DetectionWindow, "Consecutive bad periods before an event fires")
	cmd.Flags().Int("max-parallel-sends", _config.MaxParallelSends, "Notification dispatch pool size")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem stores")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")

	// Network
	cmd.Flags().String("network-id", _config.NetworkID, "Identifier of the watched network")
	cmd.Flags().String("network-name", _config.NetworkName, "Friendly name of the watched network")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db or --scan-source, this
	// will update their defaults to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	_config.Logger().WithFields(logrus.Fields{
		"DataDir":          _config.DataDir,
		"LogLevel":         _config.LogLevel,
		"ScanSource":       _config.ScanSource,
		"ScanInterval":     _config.ScanInterval,
		"DetectionWindow":  _config.DetectionWindow,
		"MaxParallelSends": _config.MaxParallelSends,
		"Store":            _config.Store,
		"DatabaseDir":      _config.DatabaseDir,
		"NetworkID":        _config.NetworkID,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/watchtower.toml (.json, .yaml also work)
	viper.SetConfigName("watchtower")
	viper.AddConfigPath(_config.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
