package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"bulk-sender/internal/domain"
	"bulk-sender/internal/failurelog"
	"bulk-sender/internal/ports"
	"bulk-sender/internal/recipients"
	"bulk-sender/internal/service"
)

// storeTimeout bounds history writes, which run detached from the run
// context so a stop does not drop them.
const storeTimeout = 3 * time.Second

// run holds everything one worker owns between Initializing and Finishing.
type run struct {
	h       *runHandle
	cfg     domain.RunConfig
	logger  *slog.Logger
	records []domain.RecipientRecord
	session ports.BrowserSession
	flog    *failurelog.Writer
	tally   domain.Tally
	stopped bool
	summary domain.RunSummary
}

func (a *App) work(ctx context.Context, h *runHandle, cfg domain.RunConfig) {
	defer close(h.done)
	defer h.cancel()

	r := &run{
		h:      h,
		cfg:    cfg,
		logger: a.logger.With("run_id", h.id),
		summary: domain.RunSummary{
			RunID:     h.id,
			StartedAt: a.now(),
		},
	}

	for _, w := range staticWarnings(cfg.StaticVars) {
		a.emit(domain.SeverityWarn, "%s", w)
	}

	if a.initialize(ctx, r) && a.awaitLogin(ctx, r) {
		a.sendAll(ctx, r)
	}

	a.finish(ctx, r)
}

func (a *App) initialize(ctx context.Context, r *run) bool {
	a.emit(domain.SeverityInfo, "Leyendo archivo de datos...")
	res, err := recipients.Load(r.cfg.FilePath, r.cfg.ExpectedColumns())
	if err != nil {
		return a.initFailed(ctx, r, "load recipients", err)
	}
	for _, w := range res.Warnings {
		a.emit(domain.SeverityWarn, "%s", w)
	}
	r.records = res.Records
	r.summary.Total = len(res.Records)
	a.emit(domain.SeverityInfo, "Se enviarán %d mensajes.", len(res.Records))

	a.emit(domain.SeverityInfo, "Iniciando navegador Chrome...")
	session, err := a.launcher.Launch(ctx)
	if err != nil {
		return a.initFailed(ctx, r, "launch browser", err)
	}
	r.session = session

	if err := session.Navigate(ctx, a.settings.LandingURL); err != nil {
		return a.initFailed(ctx, r, "open landing page", err)
	}

	flog, err := failurelog.Open(a.settings.LogsDir, a.now(), r.logger.With("component", "failurelog"))
	if err != nil {
		return a.initFailed(ctx, r, "open failure log", err)
	}
	r.flog = flog

	return true
}

// initFailed records an initialization error. A failure caused by a stop is
// reported as a cancellation instead.
func (a *App) initFailed(ctx context.Context, r *run, op string, err error) bool {
	if ctx.Err() != nil {
		r.stopped = true
		return false
	}

	runErr := &domain.RunError{RunID: r.h.id, Op: op, Err: err}
	r.logger.Error("run initialization failed", "op", op, "error", err)
	r.summary.InitError = runErr.Error()
	a.emit(domain.SeverityError, "Error: %v", err)
	return false
}

// awaitLogin suspends the worker until the operator confirms the login or
// the run is stopped.
func (a *App) awaitLogin(ctx context.Context, r *run) bool {
	a.setState(domain.StateAwaitingLoginConfirmation)
	a.emit(domain.SeverityInfo, "Navegador abierto. Escanea QR.")
	a.observer.OnAwaitingLogin()
	r.logger.Info("awaiting login confirmation")

	for {
		select {
		case <-ctx.Done():
			r.stopped = true
			return false
		case cmd := <-r.h.commands:
			switch cmd {
			case cmdConfirmLogin:
				a.setState(domain.StateSending)
				a.emit(domain.SeverityInfo, "Login confirmado. Iniciando envío...")
				r.logger.Info("login confirmed")
				return true
			case cmdStop:
				r.stopped = true
				return false
			}
		}
	}
}

func (a *App) sendAll(ctx context.Context, r *run) {
	rc := &service.RunContext{
		RunID:       r.h.id,
		Template:    r.cfg.Template,
		StaticVars:  r.cfg.StaticVars,
		DynamicVars: r.cfg.DynamicVars,
		Total:       len(r.records),
		Session:     r.session,
		Observer:    a.observer,
	}

	for i, rec := range r.records {
		if a.stopRequested(ctx, r) {
			return
		}

		res, err := a.sender.Send(ctx, rc, i, rec)
		if err != nil {
			// Interrupted mid-recipient: it counts as not attempted.
			r.stopped = true
			return
		}
		a.record(ctx, r, res)

		percent := int(math.Round(float64(i+1) / float64(len(r.records)) * 100))
		a.observer.OnProgress(percent)
		if a.metrics != nil {
			a.metrics.SetProgress(percent)
		}

		if i < len(r.records)-1 {
			if err := a.sender.Settle(ctx); err != nil {
				r.stopped = true
				return
			}
		}
	}
}

// stopRequested drains the command queue at an iteration boundary.
func (a *App) stopRequested(ctx context.Context, r *run) bool {
	for {
		select {
		case cmd := <-r.h.commands:
			if cmd == cmdStop {
				r.stopped = true
				return true
			}
			r.logger.Debug("command ignored while sending", "command", cmd)
		default:
			if ctx.Err() != nil {
				r.stopped = true
				return true
			}
			return false
		}
	}
}

func (a *App) record(ctx context.Context, r *run, res domain.RecipientResult) {
	r.tally.Add(res.Outcome)

	if res.Outcome.Failed() {
		if err := r.flog.Append(domain.NewFailureLogEntry(res)); err != nil {
			r.logger.Error("failed to write failure log", "error", err)
			a.emit(domain.SeverityError, "Error: No se pudo escribir en el log de errores: %v", err)
		}
	}

	if a.metrics != nil {
		a.metrics.ObserveOutcome(res.Outcome.String())
	}

	if a.store != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		if err := a.store.AppendOutcome(sctx, r.h.id, res); err != nil {
			r.logger.Warn("failed to store outcome", "index", res.Index, "error", err)
		}
		cancel()
	}
}

// finish releases the run's resources and emits the summary, which is
// always the last event of a run.
func (a *App) finish(ctx context.Context, r *run) {
	a.setState(domain.StateFinishing)

	if r.session != nil {
		if err := r.session.Close(); err != nil {
			r.logger.Debug("browser close ignored", "error", err)
			a.emit(domain.SeverityNote, "Aviso: error al cerrar el navegador (ignorado).")
		} else {
			a.emit(domain.SeverityInfo, "Navegador cerrado.")
		}
	}

	if r.flog != nil {
		path, err := r.flog.Finalize(r.tally.Failed > 0)
		if err != nil {
			r.logger.Debug("failure log finalize ignored", "error", err)
			a.emit(domain.SeverityNote, "Aviso: no se pudo limpiar el log de errores (ignorado).")
		}
		r.summary.FailureLogPath = path
	}

	s := &r.summary
	s.Sent = r.tally.Sent
	s.Failed = r.tally.Failed
	s.Processed = r.tally.Processed
	s.Cancelled = r.stopped && (s.Processed < s.Total || s.Total == 0)
	s.FinishedAt = a.now()

	if s.Cancelled {
		a.emit(domain.SeverityWarn, "Envío cancelado por el usuario.")
	}
	a.emit(domain.SeverityInfo, "Proceso finalizado. Enviados: %d, Fallidos/Saltados: %d de %d.", s.Sent, s.Failed, s.Total)
	if s.FailureLogPath != "" {
		a.emit(domain.SeverityInfo, "Log de errores guardado en: %s", s.FailureLogPath)
	}

	r.logger.Info("run finished",
		"result", s.Result(),
		"sent", s.Sent,
		"failed", s.Failed,
		"processed", s.Processed,
		"total", s.Total,
	)

	if a.store != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		if err := a.store.SaveSummary(sctx, *s); err != nil {
			r.logger.Warn("failed to store run summary", "error", err)
		}
		cancel()
	}
	if a.metrics != nil {
		a.metrics.RunFinished(s.Result())
	}

	a.mu.Lock()
	a.state = domain.StateIdle
	if a.run == r.h {
		a.run = nil
	}
	a.mu.Unlock()

	a.observer.OnRunFinished(*s)
}

func (a *App) emit(sev domain.Severity, format string, args ...any) {
	line := format
	if len(args) > 0 {
		line = fmt.Sprintf(format, args...)
	}
	a.observer.OnLog(sev, line)
}
