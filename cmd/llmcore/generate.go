package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blueberrycongee/llmcore"
)

func newGenerateCmd(flags *globalFlags) *cobra.Command {
	var systemPrompt string

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a complete response for a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newCLIClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resp, err := client.GenerateResponse(ctx, llmcore.GenerationRequest{
				Prompt:       strings.Join(args, " "),
				SystemPrompt: systemPrompt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVarP(&systemPrompt, "system", "s", "", "system prompt")
	return cmd
}

func newStreamCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Stream a response token by token",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cleanup, err := newCLIClient(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			err = client.StreamResponse(ctx, strings.Join(args, " "), func(token string) error {
				_, werr := fmt.Fprint(out, token)
				return werr
			})
			fmt.Fprintln(out)
			return err
		},
	}
}

// newCLIClient builds a client for one-shot commands. The returned cleanup
// flushes traces and releases the cache.
func newCLIClient(ctx context.Context, flags *globalFlags) (*llmcore.Client, func(), error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger(cfg)
	tp, err := initTracing(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	client, err := llmcore.New(cfg,
		llmcore.WithLogger(logger.Slog()),
		llmcore.WithTracer(tp.Tracer()),
	)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Close()
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	return client, cleanup, nil
}
