package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReportFile is the name of the report a batch invocation writes into the
// compiler's working directory.
const ReportFile = "compilerOutput.json"

// ErrNoReport is returned by ReadReport when the report file does not exist.
var ErrNoReport = errors.New("compiler report not found")

// Report is the batch compiler's JSON output.
type Report struct {
	Errors      []ReportEntry     `json:"errors"`
	Suggestions []json.RawMessage `json:"suggestions,omitempty"`
}

// ReportEntry is one error of a Report. Positions are decoded as numbers and
// converted with a range and integrality check.
type ReportEntry struct {
	File    string  `json:"file"`
	Line    float64 `json:"line"`
	Column  float64 `json:"column"`
	Message string  `json:"message"`
}

// ReadReport reads and decodes the report at path.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoReport, path)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	return DecodeReport(data)
}

// DecodeReport decodes report bytes. A leading UTF-8 byte order mark is
// dropped.
func DecodeReport(data []byte) (*Report, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	clean, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(clean, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// CompilerErrors converts the report's entries. Relative file paths are
// joined with folder, the directory that was compiled. Entries with
// non-integral positions are skipped and reported through the returned
// error, which joins every conversion failure.
func (r *Report) CompilerErrors(folder string) ([]CompilerError, error) {
	if r == nil {
		return nil, nil
	}
	out := make([]CompilerError, 0, len(r.Errors))
	var errs []error
	for i, entry := range r.Errors {
		line, err := safecast.Convert[int](entry.Line)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d line: %w", i, err))
			continue
		}
		col, err := safecast.Convert[int](entry.Column)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d column: %w", i, err))
			continue
		}
		file := entry.File
		if file != "" && !filepath.IsAbs(file) && folder != "" {
			file = filepath.Join(folder, file)
		}
		out = append(out, CompilerError{
			File:    file,
			Line:    line,
			Column:  col,
			Message: entry.Message,
		})
	}
	return out, errors.Join(errs...)
}
