// Command llmcore runs the generation chain from the command line or as an
// HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blueberrycongee/llmcore"
	"github.com/blueberrycongee/llmcore/internal/observability"
)

var version = llmcore.Version

type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "llmcore",
		Short:         "Cached, monitored access to a local language model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newGenerateCmd(flags),
		newStreamCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// loadConfig reads the configuration snapshot once for the process.
func (f *globalFlags) loadConfig() (*llmcore.Config, error) {
	cfg, err := llmcore.LoadConfig(llmcore.LoadOptions{
		File:    f.configFile,
		EnvFile: f.envFile,
	})
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *llmcore.Config) *observability.Logger {
	return observability.NewLogger(observability.LoggerConfig{
		Level:      observability.ParseLevel(cfg.Logging.Level),
		JSONFormat: cfg.Logging.Format != "text",
	}, observability.NewRedactor())
}

// initTracing starts the OTLP exporter when tracing is enabled.
func initTracing(ctx context.Context, cfg *llmcore.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	})
}
