package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/imsgx/internal/config"
	"github.com/matheus3301/imsgx/internal/lock"
	"github.com/matheus3301/imsgx/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	cfgPath    string
	sourcePath string
	outputPath string
	timezone   string
	logLevel   string
	jsonOut    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "imsgx",
		Short: "Extract one contact's conversation from a Messages chat.db",
		Long: `imsgx reads a Messages chat.db read-only, finds every handle belonging to one
contact, recovers message text (including text stored only in attributedBody)
and writes the merged conversation to the conversation_clean table.

Extract a conversation:   imsgx extract +15551234567
List matching handles:    imsgx handles 5551234567
Read the result:          imsgx show --recent 10
Browse it:                imsgx browse`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.imsgx/config.toml)")
	rootCmd.PersistentFlags().StringVar(&sourcePath, "source", "", "chat.db to read (default ~/Library/Messages/chat.db)")
	rootCmd.PersistentFlags().StringVar(&outputPath, "output", "", "output database (default ~/.imsgx/conversation.db)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA zone for formatted dates (default system zone)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(handlesCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(browseCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var held *lock.HeldError
	switch {
	case errors.Is(err, pipeline.ErrNoHandleMatch):
		return 2
	case errors.As(err, &held):
		return 3
	default:
		return 1
	}
}

func params() pipeline.Params {
	return pipeline.Params{
		ConfigPath: cfgPath,
		Overrides: config.Overrides{
			SourcePath: sourcePath,
			OutputPath: outputPath,
			Timezone:   timezone,
			LogLevel:   logLevel,
		},
	}
}

// withPipeline starts the pipeline module, hands the pipeline to fn and stops
// the module again, releasing the output lock.
func withPipeline(ctx context.Context, p pipeline.Params, fn func(*pipeline.Pipeline, *config.Config) error) error {
	var (
		pl  *pipeline.Pipeline
		cfg *config.Config
	)
	app := fx.New(
		pipeline.Module(p),
		fx.NopLogger,
		fx.Populate(&pl, &cfg),
	)
	if err := app.Err(); err != nil {
		return unwrapFx(err)
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	runErr := fn(pl, cfg)
	if err := app.Stop(context.Background()); err != nil && runErr == nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return runErr
}

// unwrapFx strips fx's dependency-graph context from constructor errors.
func unwrapFx(err error) error {
	if root := fx.RootCause(err); root != nil {
		return root
	}
	return err
}
