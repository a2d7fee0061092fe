// Package cmd wires the oscigo command line
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/osci-render/osci-go/cmd/record"
	"github.com/osci-render/osci-go/cmd/run"
	"github.com/osci-render/osci-go/internal/buildinfo"
	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "oscigo",
		Short:         "oscigo real-time oscilloscope audio engine",
		Version:       build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	conf.AnnotateFlag(rootCmd.PersistentFlags(), "debug", "debug")

	rootCmd.AddCommand(
		run.Command(settings, build),
		record.Command(settings, build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, configFile, settings, build)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		shutdown()
	}

	return rootCmd
}

// initialize binds the flags of the command being run, loads settings and
// installs the logger and telemetry.
func initialize(cmd *cobra.Command, configFile string, settings *conf.Settings, build *buildinfo.Context) error {
	if err := bindFlags(cmd.Flags()); err != nil {
		return err
	}

	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(cl)

	if err := telemetry.InitSentry(&settings.Telemetry, build.Version()); err != nil {
		// reporting is optional, keep running without it
		cl.Module("main").Warn("telemetry disabled", logger.Error(err))
	}
	return nil
}

// bindFlags binds every annotated flag to its settings key. Binding at run
// time keeps flags of one subcommand from overriding another's.
func bindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := conf.FlagKey(f)
		if !ok || bindErr != nil {
			return
		}
		if err := viper.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("error binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func shutdown() {
	telemetry.Flush(telemetry.DefaultFlushTimeout)
	if err := logger.Global().Close(); err != nil {
		fmt.Printf("error closing logger: %v\n", err)
	}
}
