package record

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/osci-render/osci-go/internal/app"
	"github.com/osci-render/osci-go/internal/buildinfo"
	"github.com/osci-render/osci-go/internal/conf"
)

// Command creates the record command, which writes the signal to a WAV file
// for a fixed time with every other consumer disabled.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the generated signal to a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return fmt.Errorf("duration must be positive, got %s", duration)
			}
			recordOnly(settings)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, duration)
			defer cancel()

			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			if err := a.Run(ctx); err != nil {
				return err
			}
			for _, f := range a.Recorder().Files() {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&duration, "duration", 10*time.Second, "How long to record")
	flags.String("path", "recordings", "Output directory")
	flags.Int("bitdepth", 16, "Sample bit depth (16, 24 or 32)")
	flags.Bool("includez", false, "Write Z as a third channel")
	flags.Float64("samplerate", conf.DefaultSampleRate, "Sample rate in Hz")

	conf.AnnotateFlag(flags, "path", "workers.recorder.path")
	conf.AnnotateFlag(flags, "bitdepth", "workers.recorder.bitdepth")
	conf.AnnotateFlag(flags, "includez", "workers.recorder.includez")
	conf.AnnotateFlag(flags, "samplerate", "audio.samplerate")

	return cmd
}

// recordOnly turns off everything but the recorder. The ticker driver paces
// the engine so recording does not need a sound card.
func recordOnly(settings *conf.Settings) {
	settings.Audio.Driver = conf.DriverTicker
	settings.Workers.Recorder.Enabled = true
	settings.Workers.Scope.Enabled = false
	settings.Workers.MQTT.Enabled = false
	settings.HTTP.Enabled = false
}
