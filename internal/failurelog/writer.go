// Package failurelog writes the per-run log of recipients that were not sent.
package failurelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bulk-sender/internal/domain"
)

const (
	FilePrefix      = "log_errores_"
	FileExt         = ".csv"
	TimestampLayout = "20060102-150405"
)

// Header is the first row of every failure log.
var Header = []string{"Numero", "Nombre", "Razon_Fallo", "Detalle_Error"}

var fieldReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", ";", ",")

// Writer appends failure rows to one log file. It is owned by the run worker.
type Writer struct {
	path   string
	file   *os.File
	csv    *csv.Writer
	rows   int
	logger *slog.Logger

	finalizeOnce sync.Once
	finalPath    string
	finalErr     error
}

// Open creates dir if needed and a fresh log file named after now.
func Open(dir string, now time.Time, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	base := FilePrefix + now.Format(TimestampLayout)
	path := filepath.Join(dir, base+FileExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	for n := 2; errors.Is(err, fs.ErrExist) && n < 100; n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, n, FileExt))
		f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("create failure log: %w", err)
	}

	w := &Writer{
		path:   path,
		file:   f,
		csv:    newCSVWriter(f),
		logger: logger,
	}
	if err := w.writeRow(Header); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}

	logger.Debug("failure log opened", "path", path)
	return w, nil
}

func newCSVWriter(f *os.File) *csv.Writer {
	cw := csv.NewWriter(f)
	cw.Comma = ';'
	return cw
}

// Path returns the log file location.
func (w *Writer) Path() string {
	return w.path
}

// Rows returns the number of failure rows written.
func (w *Writer) Rows() int {
	return w.rows
}

// Append writes one entry and flushes it to disk.
func (w *Writer) Append(entry domain.FailureLogEntry) error {
	if w.file == nil {
		return fmt.Errorf("append failure log: %w", fs.ErrClosed)
	}
	err := w.writeRow([]string{
		Sanitize(entry.Numero),
		Sanitize(entry.DisplayName),
		Sanitize(entry.Reason),
		Sanitize(entry.Detail),
	})
	if err != nil {
		return fmt.Errorf("append failure log: %w", err)
	}
	w.rows++
	return nil
}

func (w *Writer) writeRow(fields []string) error {
	if err := w.csv.Write(fields); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Finalize closes the log. Without failures the file is removed and the
// returned path is empty. Repeated calls return the first result.
func (w *Writer) Finalize(hadFailures bool) (string, error) {
	w.finalizeOnce.Do(func() {
		if err := w.file.Close(); err != nil && !errors.Is(err, fs.ErrClosed) {
			w.logger.Debug("close failure log ignored", "path", w.path, "error", err)
		}
		w.file = nil

		if hadFailures {
			w.finalPath = w.path
			return
		}

		if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.finalErr = fmt.Errorf("remove empty failure log: %w", err)
			return
		}
		w.logger.Debug("empty failure log removed", "path", w.path)
	})
	return w.finalPath, w.finalErr
}

// Sanitize strips newlines and the field delimiter from a value.
func Sanitize(s string) string {
	return strings.TrimSpace(fieldReplacer.Replace(s))
}
