package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"bulk-sender/internal/domain"
)

// consoleObserver prints the run event stream for the operator.
type consoleObserver struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	finishOnce sync.Once
	finished   chan struct{}
	summary    domain.RunSummary
}

func newConsoleObserver(out io.Writer) *consoleObserver {
	return &consoleObserver{
		out:      out,
		now:      time.Now,
		finished: make(chan struct{}),
	}
}

func (o *consoleObserver) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "[%s] ", o.now().Format(time.TimeOnly))
	fmt.Fprintf(o.out, format, args...)
	fmt.Fprintln(o.out)
}

func (o *consoleObserver) OnLog(sev domain.Severity, line string) {
	if sev == domain.SeverityInfo {
		o.printf("%s", line)
		return
	}
	o.printf("%s: %s", sev, line)
}

func (o *consoleObserver) OnProgress(percent int) {
	o.printf("Progreso: %d%%", percent)
}

func (o *consoleObserver) OnAwaitingLogin() {
	o.printf("Inicia sesión en el navegador y presiona ENTER para continuar (Ctrl+C para cancelar).")
}

func (o *consoleObserver) OnRunFinished(summary domain.RunSummary) {
	o.finishOnce.Do(func() {
		o.mu.Lock()
		o.summary = summary
		o.mu.Unlock()
		close(o.finished)
	})
}

func (o *consoleObserver) OnFileLoaded(label string) {
	o.printf("Archivo: %s", label)
}

func (o *consoleObserver) OnExpectedFormatChanged(format string) {
	o.printf("Formato esperado: %s", format)
}

// Done is closed once the run summary has been received.
func (o *consoleObserver) Done() <-chan struct{} {
	return o.finished
}

func (o *consoleObserver) Summary() domain.RunSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summary
}
