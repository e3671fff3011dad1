package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dpscript/internal/compiler"
	"dpscript/internal/diagnostics"
	"dpscript/internal/fileuri"
	"dpscript/internal/project"
	"dpscript/internal/trace"
	"dpscript/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:          "check [folders...]",
	Short:        "Compile datapack folders once and print their errors",
	Long:         "Run the batch compiler over each folder in order and print the errors from its report.",
	SilenceUsage: true,
	RunE:         checkExecution,
}

func init() {
	checkCmd.Flags().String("config", "", "path to dpscript.toml (default: discovered above the first folder)")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	checkCmd.Flags().Bool("verbose", false, "print compiler output")
}

type checkOptions struct {
	format  string
	ui      bool
	verbose bool
	quiet   bool
}

type checkError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

type checkFolder struct {
	Folder   string `json:"folder"`
	ExitCode int    `json:"exit_code"`
	Errors   int    `json:"errors"`
	NoReport bool   `json:"no_report,omitempty"`
	Failure  string `json:"failure,omitempty"`
}

type checkPayload struct {
	Folders []checkFolder `json:"folders"`
	Errors  []checkError  `json:"errors"`
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	locationText = color.New(color.Bold)
	summaryOK    = color.New(color.FgGreen)
	summaryWarn  = color.New(color.FgYellow)
)

func checkExecution(cmd *cobra.Command, args []string) (err error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	folders, err := checkFolders(args)
	if err != nil {
		return err
	}
	cfg, err := checkConfig(configPath, folders[0])
	if err != nil {
		return err
	}

	_, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err) }()

	opts := checkOptions{
		format:  format,
		ui:      format == "pretty" && !quiet && shouldUseTUI(mode),
		verbose: verbose,
		quiet:   quiet,
	}
	count, err := runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, folders, opts)
	if err != nil {
		return err
	}
	if count > 0 {
		return &exitError{code: 1}
	}
	return nil
}

// checkFolders resolves the folder arguments, defaulting to the current
// directory.
func checkFolders(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	folders := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", arg)
		}
		folders = append(folders, fileuri.Clean(abs))
	}
	return folders, nil
}

func checkConfig(configPath, firstFolder string) (project.Config, error) {
	var cfg project.Config
	if configPath != "" {
		loaded, err := project.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	} else {
		manifest, ok, err := project.LoadManifest(firstFolder)
		if err != nil {
			return cfg, err
		}
		cfg = project.Default()
		if ok {
			cfg = manifest.Config
		}
	}
	if len(cfg.Compiler.BatchCommand) == 0 || strings.TrimSpace(cfg.Compiler.BatchCommand[0]) == "" {
		return cfg, errors.New("missing [compiler].batch_command")
	}
	return cfg, nil
}

// runCheck compiles folders and writes the result to out. It returns the
// number of compiler errors found.
func runCheck(ctx context.Context, out, errOut io.Writer, cfg project.Config, folders []string, opts checkOptions) (int, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeCompile, "check", trace.CurrentSpan(ctx))

	batch := compiler.NewBatch(compiler.BatchConfig{
		Command: cfg.Compiler.BatchCommand,
		WorkDir: cfg.Compiler.WorkDir,
		Report:  cfg.Compiler.Report,
		Timeout: cfg.Compiler.BatchTimeout.Duration,
	}, func(format string, args ...any) {
		if opts.verbose {
			fmt.Fprintf(errOut, format+"\n", args...)
		}
	})
	batch.OnOutput = func(folder, line string) {
		if opts.verbose && !opts.ui && line != "" {
			fmt.Fprintf(errOut, "%s: %s\n", ui.DisplayName(folder), line)
		}
	}

	var (
		result *compiler.BatchResult
		err    error
	)
	if opts.ui {
		result, err = runCheckWithUI(ctx, out, "dpscript check", folders, batch)
	} else {
		batch.OnProgress = func(p compiler.Progress) {
			trace.Point(tracer, trace.ScopeProcess, "batch:folder", p.Folder, span.ID())
			if !p.Done && !opts.quiet && opts.format == "pretty" {
				fmt.Fprintf(errOut, "compiling %s (%d/%d)\n", ui.DisplayName(p.Folder), p.Index+1, p.Total)
			}
		}
		result, err = batch.Run(ctx, folders)
	}
	if result == nil {
		result = &compiler.BatchResult{}
	}
	span.WithExtra("errors", fmt.Sprint(len(result.Errors)))
	if err != nil {
		span.End(err.Error())
		return len(result.Errors), err
	}
	span.End("")

	if opts.format == "json" {
		return len(result.Errors), renderCheckJSON(out, result)
	}
	renderCheckPretty(out, folders, result, opts.quiet)
	return len(result.Errors), nil
}

type checkOutcome struct {
	result *compiler.BatchResult
	err    error
}

func runCheckWithUI(ctx context.Context, out io.Writer, title string, folders []string, batch *compiler.Batch) (*compiler.BatchResult, error) {
	events := make(chan compiler.Progress, 256)
	outcomeCh := make(chan checkOutcome, 1)
	batch.OnProgress = func(p compiler.Progress) {
		events <- p
	}

	go func() {
		res, err := batch.Run(ctx, folders)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, folders, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// The program may quit early; keep the batch from blocking on events.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func renderCheckPretty(out io.Writer, folders []string, result *compiler.BatchResult, quiet bool) {
	root := ""
	if len(folders) == 1 {
		root = folders[0]
	}
	for _, ce := range result.Errors {
		fmt.Fprintf(out, "%s %s %s\n",
			locationText.Sprint(formatLocation(root, ce)),
			errorLabel.Sprint("error:"),
			ce.Message)
	}
	for _, fr := range result.Folders {
		switch {
		case fr.Err != nil:
			fmt.Fprintf(out, "%s %s: %v\n", errorLabel.Sprint("failed:"), ui.DisplayName(fr.Folder), fr.Err)
		case fr.NoReport && !quiet:
			summaryWarn.Fprintf(out, "no report: %s\n", ui.DisplayName(fr.Folder))
		}
	}
	if quiet {
		return
	}
	n := len(result.Errors)
	switch n {
	case 0:
		summaryOK.Fprintf(out, "%d folder(s) checked, no errors\n", len(result.Folders))
	default:
		summaryWarn.Fprintf(out, "%d folder(s) checked, %d error(s)\n", len(result.Folders), n)
	}
}

func renderCheckJSON(out io.Writer, result *compiler.BatchResult) error {
	payload := checkPayload{
		Folders: make([]checkFolder, 0, len(result.Folders)),
		Errors:  make([]checkError, 0, len(result.Errors)),
	}
	for _, fr := range result.Folders {
		cf := checkFolder{Folder: fr.Folder, ExitCode: fr.ExitCode, Errors: fr.Errors, NoReport: fr.NoReport}
		if fr.Err != nil {
			cf.Failure = fr.Err.Error()
		}
		payload.Folders = append(payload.Folders, cf)
	}
	for _, ce := range result.Errors {
		payload.Errors = append(payload.Errors, checkError(ce))
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// formatLocation renders file:line:col, with "end" for end-of-file errors.
func formatLocation(root string, ce diagnostics.CompilerError) string {
	path := formatPathForOutput(root, ce.File)
	if ce.Line == -1 {
		return path + ":end:"
	}
	return fmt.Sprintf("%s:%d:%d:", path, ce.Line, ce.Column)
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
