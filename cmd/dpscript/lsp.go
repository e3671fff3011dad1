package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dpscript/internal/lsp"
	"dpscript/internal/project"
	"dpscript/internal/telemetry"
	"dpscript/internal/version"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the DPScript language server over stdio",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().String("config", "", "path to dpscript.toml (default: discovered above the workspace root)")
	lspCmd.Flags().String("mode", "", "compiler mode override (persistent|batch)")
	lspCmd.Flags().String("log", "", "append server logs to this file instead of stderr")
	// VS Code language clients pass --stdio; stdio is the only transport.
	lspCmd.Flags().Bool("stdio", true, "serve over stdin/stdout")
	_ = lspCmd.Flags().MarkHidden("stdio")
}

func runLSP(cmd *cobra.Command, _ []string) (err error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}
	logPath, err := cmd.Flags().GetString("log")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	opts := lsp.ServerOptions{Version: version.Version}
	switch mode {
	case "", project.ModePersistent, project.ModeBatch:
		opts.Mode = mode
	default:
		return fmt.Errorf("invalid --mode value %q (expected %s|%s)", mode, project.ModePersistent, project.ModeBatch)
	}
	if configPath != "" {
		cfg, err := project.LoadConfig(configPath)
		if err != nil {
			return err
		}
		opts.Config = &cfg
	}

	switch {
	case logPath != "":
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		opts.Log = f
	case quiet:
		opts.Log = io.Discard
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err) }()
	opts.Tracer = tracer

	metrics, err := telemetry.Setup(telemetry.Config{ServiceName: "dpscript-lsp", Version: version.Version})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = metrics.Shutdown(ctx)
	}()
	opts.Telemetry = metrics

	server := lsp.NewServer(os.Stdin, os.Stdout, opts)
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) || errors.Is(err, context.Canceled) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return &exitError{code: 1}
		}
		return err
	}
	return nil
}
