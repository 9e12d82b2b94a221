package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/ports"
	"bulk-sender/internal/template"
)

// RunContext carries the state of exactly one run. It is created by the
// orchestrator at run start and only used from the worker goroutine.
type RunContext struct {
	RunID       string
	Template    string
	StaticVars  map[string]string
	DynamicVars []string
	Total       int

	Session  ports.BrowserSession
	Observer ports.RunObserver
}

func (rc *RunContext) emit(sev domain.Severity, format string, args ...any) {
	rc.Observer.OnLog(sev, fmt.Sprintf(format, args...))
}

// Sender drives one recipient at a time through the chat client.
type Sender struct {
	settings *config.Settings
	pacer    ports.Pacer
	logger   *slog.Logger
}

// NewSender creates a new sender with injected dependencies.
func NewSender(settings *config.Settings, pacer ports.Pacer, logger *slog.Logger) *Sender {
	return &Sender{
		settings: settings,
		pacer:    pacer,
		logger:   logger,
	}
}

// Send processes the recipient at index (0-based). It returns a non-nil
// error only when ctx is cancelled before the outcome is known; the
// recipient is then unprocessed.
func (s *Sender) Send(ctx context.Context, rc *RunContext, index int, rec domain.RecipientRecord) (domain.RecipientResult, error) {
	res := domain.RecipientResult{
		Index:       index,
		Numero:      rec.Numero(),
		DisplayName: rec.DisplayName(),
	}
	logger := s.logger.With("run_id", rc.RunID, "index", index, "numero", res.Numero)

	rc.emit(domain.SeverityInfo, "[%d/%d] Enviando a %s...", index+1, rc.Total, res.DisplayName)

	message, err := s.render(rc, rec, res.DisplayName)
	if err != nil {
		rc.emit(domain.SeverityError, "Error de formato para %s: %v. Saltando...", res.DisplayName, err)
		return finish(res, domain.OutcomeSkippedFormatError, err.Error()), nil
	}

	check := EvaluateNumero(res.Numero, s.settings.Phone)
	if !check.Valid {
		rc.emit(domain.SeverityError, "Error: Número '%s' inválido en línea %d. Saltando...", res.Numero, rec.Line)
		return finish(res, domain.OutcomeSkippedInvalidNumber, check.Reason), nil
	}

	link := BuildDeepLink(s.settings.SendURL, check.Phone, message)
	logger.Debug("navigating to chat")
	if err := rc.Session.Navigate(ctx, link); err != nil {
		return s.unexpected(ctx, rc, res, "navigate", err)
	}

	outcome, detail, err := s.awaitChat(ctx, rc, res)
	if err != nil {
		return res, err
	}
	if outcome != domain.OutcomeSent {
		return finish(res, outcome, detail), nil
	}

	sendControl, err := rc.Session.WaitClickable(ctx, s.settings.Locators.SendControl, s.settings.Timeouts.SendControl)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if errors.Is(err, domain.ErrTimeout) {
			rc.emit(domain.SeverityError, "Error: Botón enviar no encontrado/clicable para %s.", res.DisplayName)
			return finish(res, domain.OutcomeFailedTimeoutSendControl,
				fmt.Sprintf("control de envío no disponible en %s", s.settings.Timeouts.SendControl)), nil
		}
		return s.unexpected(ctx, rc, res, "wait send control", err)
	}

	if err := s.pause(ctx, s.settings.Pacing.PreClick); err != nil {
		return res, err
	}

	if err := sendControl.Click(ctx); err != nil {
		return s.unexpected(ctx, rc, res, "click send", err)
	}

	// The message is out; a stop during the settle pause must not undo that.
	if err := s.pause(ctx, s.settings.Pacing.PostClick); err != nil {
		logger.Debug("post-click pause interrupted", "error", err)
	}

	rc.emit(domain.SeverityInfo, "✓ Mensaje enviado a: %s", res.DisplayName)
	return finish(res, domain.OutcomeSent, ""), nil
}

// Settle applies the pause between two recipients.
func (s *Sender) Settle(ctx context.Context) error {
	return s.pause(ctx, s.settings.Pacing.BetweenRecipients)
}

// awaitChat waits for the chat input. On timeout it checks for the invalid
// number popup. OutcomeSent means the chat loaded.
func (s *Sender) awaitChat(ctx context.Context, rc *RunContext, res domain.RecipientResult) (domain.SendOutcome, string, error) {
	err := rc.Session.WaitPresent(ctx, s.settings.Locators.ChatInput, s.settings.Timeouts.ChatLoad)
	if err == nil {
		return domain.OutcomeSent, "", nil
	}
	if ctx.Err() != nil {
		return 0, "", ctx.Err()
	}
	if !errors.Is(err, domain.ErrTimeout) {
		r, cerr := s.unexpected(ctx, rc, res, "wait chat", err)
		return r.Outcome, r.Detail, cerr
	}

	popupErr := rc.Session.WaitPresent(ctx, s.settings.Locators.InvalidPopup, s.settings.Timeouts.Popup)
	if ctx.Err() != nil {
		return 0, "", ctx.Err()
	}
	if popupErr != nil {
		rc.emit(domain.SeverityError, "Error: No cargó chat para %s en %s.", res.DisplayName, s.settings.Timeouts.ChatLoad)
		return domain.OutcomeFailedTimeoutChatLoad,
			fmt.Sprintf("chat no cargó en %s", s.settings.Timeouts.ChatLoad), nil
	}

	rc.emit(domain.SeverityError, "Error: Número %s inválido/sin WA (popup).", res.Numero)
	s.dismissPopup(ctx, rc)
	return domain.OutcomeFailedPopupInvalidNumber, "popup de número inválido", nil
}

// dismissPopup is best effort; failures are noted and ignored.
func (s *Sender) dismissPopup(ctx context.Context, rc *RunContext) {
	if err := rc.Session.Click(ctx, s.settings.Locators.InvalidPopup); err != nil {
		s.logger.Debug("popup dismiss ignored", "run_id", rc.RunID, "error", err)
		rc.emit(domain.SeverityNote, "No se pudo cerrar el popup (ignorado).")
		return
	}
	if err := s.pause(ctx, s.settings.Pacing.PopupDismiss); err != nil {
		s.logger.Debug("popup dismiss pause interrupted", "error", err)
	}
}

func (s *Sender) unexpected(ctx context.Context, rc *RunContext, res domain.RecipientResult, op string, err error) (domain.RecipientResult, error) {
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	s.logger.Error("unexpected send error", "run_id", rc.RunID, "numero", res.Numero, "op", op, "error", err)
	rc.emit(domain.SeverityError, "Error inesperado al enviar a %s: %v", res.DisplayName, err)
	return finish(res, domain.OutcomeFailedUnexpectedError, fmt.Sprintf("%s: %v", op, err)), nil
}

// render binds numero, the static variables and the recipient's dynamic
// columns, in that order of precedence from lowest to highest.
func (s *Sender) render(rc *RunContext, rec domain.RecipientRecord, displayName string) (string, error) {
	vars := make(map[string]string, len(rc.StaticVars)+len(rc.DynamicVars)+1)
	vars[domain.FieldNumero] = rec.Numero()
	for name, value := range rc.StaticVars {
		vars[name] = value
	}

	var absent []string
	for _, name := range rc.DynamicVars {
		value, ok := rec.Lookup(name)
		if !ok {
			absent = append(absent, name)
		}
		vars[name] = value
	}
	if len(absent) > 0 {
		sort.Strings(absent)
		rc.emit(domain.SeverityWarn, "Advertencia: Faltan datos para '%s' en %s. Usando vacíos.",
			displayName, strings.Join(absent, ", "))
	}

	return template.Render(rc.Template, vars)
}

func (s *Sender) pause(ctx context.Context, r config.Range) error {
	return s.pacer.Pause(ctx, r.Min, r.Max)
}

func finish(res domain.RecipientResult, outcome domain.SendOutcome, detail string) domain.RecipientResult {
	res.Outcome = outcome
	res.Detail = detail
	return res
}
