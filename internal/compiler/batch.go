package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"dpscript/internal/diagnostics"
)

// DefaultBatchTimeout bounds one batch invocation.
const DefaultBatchTimeout = 2 * time.Minute

// BatchConfig configures one-shot compilation.
type BatchConfig struct {
	// Command is the compiler argv; the folder is appended.
	Command []string
	// WorkDir is where invocations run and write their report. Empty means
	// the folder being compiled.
	WorkDir string
	// Report is the report file name inside WorkDir.
	Report  string
	Env     []string
	Timeout time.Duration
}

// Progress reports batch advancement. Done is false when a folder starts.
type Progress struct {
	Index  int
	Total  int
	Folder string
	Done   bool
	Result FolderResult
}

// Logger receives supervisor log lines.
type Logger func(format string, args ...any)

// Batch runs one compiler invocation per folder, one at a time.
type Batch struct {
	cfg  BatchConfig
	sem  *semaphore.Weighted
	logf Logger

	// OnProgress, when set, is called before and after each folder.
	OnProgress func(Progress)
	// OnOutput, when set, receives every output line.
	OnOutput func(folder, line string)
}

func NewBatch(cfg BatchConfig, logf Logger) *Batch {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBatchTimeout
	}
	if cfg.Report == "" {
		cfg.Report = diagnostics.ReportFile
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Batch{
		cfg:  cfg,
		sem:  semaphore.NewWeighted(1),
		logf: logf,
	}
}

// Run compiles folders strictly in order and returns the combined result
// set. A folder whose invocation leaves no report contributes no errors.
// Overlapping calls wait for the running cycle to finish.
func (b *Batch) Run(ctx context.Context, folders []string) (*BatchResult, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	result := &BatchResult{}
	for i, folder := range folders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		b.progress(Progress{Index: i, Total: len(folders), Folder: folder})
		fr, errs := b.runFolder(ctx, folder)
		result.Folders = append(result.Folders, fr)
		result.Errors = append(result.Errors, errs...)
		b.progress(Progress{Index: i, Total: len(folders), Folder: folder, Done: true, Result: fr})
		if errors.Is(fr.Err, context.Canceled) || errors.Is(fr.Err, context.DeadlineExceeded) {
			return result, fr.Err
		}
	}
	return result, nil
}

// Start runs a cycle in the background and delivers its result as an
// EventBatchDone on events.
func (b *Batch) Start(ctx context.Context, folders []string, events chan<- Event) {
	go func() {
		res, err := b.Run(ctx, folders)
		sink{ctx: ctx, ch: events}.emit(Event{Kind: EventBatchDone, Batch: res, Err: err})
	}()
}

func (b *Batch) progress(p Progress) {
	if b.OnProgress != nil {
		b.OnProgress(p)
	}
}

func (b *Batch) runFolder(ctx context.Context, folder string) (FolderResult, []diagnostics.CompilerError) {
	fr := FolderResult{Folder: folder, ExitCode: -1}
	workDir := b.cfg.WorkDir
	if workDir == "" {
		workDir = folder
	}
	reportPath := filepath.Join(workDir, b.cfg.Report)
	if err := os.Remove(reportPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logf("batch: cannot remove stale report %s: %v", reportPath, err)
	}

	start := time.Now()
	proc, err := StartProcess(Spec{
		Name: "compiler-batch",
		Argv: append(append([]string(nil), b.cfg.Command...), folder),
		Dir:  workDir,
		Env:  b.cfg.Env,
	})
	if err != nil {
		fr.Err = fmt.Errorf("spawn batch compiler: %w", err)
		b.logf("batch: %v", fr.Err)
		return fr, nil
	}
	fr.ProcessID = proc.ID

	drained := make(chan error, 1)
	go func() {
		drained <- proc.Drain(
			func(line string) { b.output(folder, line) },
			func(line string) { b.output(folder, line) },
		)
	}()

	timer := time.NewTimer(b.cfg.Timeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		_ = proc.Kill()
		<-drained
		fr.Err = fmt.Errorf("batch compile %s after %s: %w", folder, b.cfg.Timeout, ErrWatchdog)
	case <-ctx.Done():
		_ = proc.Kill()
		<-drained
		fr.Err = ctx.Err()
	}
	fr.ExitCode = proc.ExitCode()
	fr.Duration = time.Since(start)
	if fr.Err != nil {
		b.logf("batch: %v", fr.Err)
		if !errors.Is(fr.Err, ErrWatchdog) {
			return fr, nil
		}
	}

	report, err := diagnostics.ReadReport(reportPath)
	if err != nil {
		if diagnostics.IsMissingReport(err) {
			fr.NoReport = true
			b.logf("batch: no report for %s", folder)
		} else {
			b.logf("batch: %v", err)
			fr.Err = errors.Join(fr.Err, err)
		}
		return fr, nil
	}
	errs, convErr := report.CompilerErrors(folder)
	if convErr != nil {
		b.logf("batch: %s: %v", reportPath, convErr)
	}
	fr.Errors = len(errs)
	return fr, errs
}

func (b *Batch) output(folder, line string) {
	if b.OnOutput != nil {
		b.OnOutput(folder, line)
		return
	}
	if line != "" {
		b.logf("batch: %s", line)
	}
}
