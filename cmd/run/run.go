package run

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/osci-render/osci-go/internal/app"
	"github.com/osci-render/osci-go/internal/buildinfo"
	"github.com/osci-render/osci-go/internal/conf"
)

// Command creates the run command, which drives the engine until interrupted.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine and its background workers",
		Long:  "Generate the configured shape on the audio driver and feed the recorder, scope and MQTT workers until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(settings, build)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}

	setupFlags(cmd)
	return cmd
}

// setupFlags configures flags specific to the run command.
func setupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("driver", conf.DriverTicker, "Audio driver (\"ticker\" or \"malgo\")")
	flags.Float64("samplerate", conf.DefaultSampleRate, "Sample rate in Hz")
	flags.Int("blocksize", conf.DefaultBlockSize, "Frames per audio callback")
	flags.String("device", "", "Playback device name for the malgo driver")
	flags.String("listen", "127.0.0.1:8080", "Listen address of the status server")
	flags.Bool("record", false, "Record the signal to WAV files")
	flags.String("recordpath", "recordings", "Directory for WAV recordings")
	flags.Bool("mqtt", false, "Publish batch summaries over MQTT")
	flags.String("broker", "tcp://localhost:1883", "MQTT broker URL")

	conf.AnnotateFlag(flags, "driver", "audio.driver")
	conf.AnnotateFlag(flags, "samplerate", "audio.samplerate")
	conf.AnnotateFlag(flags, "blocksize", "audio.blocksize")
	conf.AnnotateFlag(flags, "device", "audio.device")
	conf.AnnotateFlag(flags, "listen", "http.listen")
	conf.AnnotateFlag(flags, "record", "workers.recorder.enabled")
	conf.AnnotateFlag(flags, "recordpath", "workers.recorder.path")
	conf.AnnotateFlag(flags, "mqtt", "workers.mqtt.enabled")
	conf.AnnotateFlag(flags, "broker", "workers.mqtt.broker")
}
