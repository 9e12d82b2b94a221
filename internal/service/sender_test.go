package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/logging"
	"bulk-sender/internal/ports"
)

type fakeClickable struct {
	session *fakeSession
}

func (c fakeClickable) Click(ctx context.Context) error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	c.session.sendClicks++
	return c.session.clickErr
}

// fakeSession answers waits from per-locator errors; a missing entry means
// the element is present.
type fakeSession struct {
	mu         sync.Mutex
	navigated  []string
	waitErr    map[string]error
	clickErr   error
	sendClicks int
	clicked    []string
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	return nil
}

func (s *fakeSession) WaitPresent(ctx context.Context, locator string, timeout time.Duration) error {
	return s.waitErr[locator]
}

func (s *fakeSession) WaitClickable(ctx context.Context, locator string, timeout time.Duration) (ports.Clickable, error) {
	if err := s.waitErr[locator]; err != nil {
		return nil, err
	}
	return fakeClickable{session: s}, nil
}

func (s *fakeSession) Click(ctx context.Context, locator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicked = append(s.clicked, locator)
	return nil
}

func (s *fakeSession) Close() error { return nil }

type noPacer struct {
	calls int
}

func (p *noPacer) Pause(ctx context.Context, min, max time.Duration) error {
	p.calls++
	return ctx.Err()
}

type logLine struct {
	sev  domain.Severity
	line string
}

type recordingObserver struct {
	lines []logLine
}

func (o *recordingObserver) OnLog(sev domain.Severity, line string) {
	o.lines = append(o.lines, logLine{sev, line})
}
func (o *recordingObserver) OnProgress(int) {}
func (o *recordingObserver) OnAwaitingLogin() {}
func (o *recordingObserver) OnRunFinished(domain.RunSummary) {}
func (o *recordingObserver) OnFileLoaded(string) {}
func (o *recordingObserver) OnExpectedFormatChanged(string) {}

func (o *recordingObserver) contains(sev domain.Severity, substr string) bool {
	for _, l := range o.lines {
		if l.sev == sev && strings.Contains(l.line, substr) {
			return true
		}
	}
	return false
}

type fixture struct {
	sender   *Sender
	session  *fakeSession
	pacer    *noPacer
	observer *recordingObserver
	rc       *RunContext
	settings *config.Settings
}

func newFixture(tmpl string, dynamic []string) *fixture {
	settings := config.Default()
	session := &fakeSession{waitErr: map[string]error{}}
	pacer := &noPacer{}
	observer := &recordingObserver{}

	return &fixture{
		sender:   NewSender(settings, pacer, logging.Discard()),
		session:  session,
		pacer:    pacer,
		observer: observer,
		settings: settings,
		rc: &RunContext{
			RunID:       "run-1",
			Template:    tmpl,
			StaticVars:  map[string]string{"miempresa": "Acme"},
			DynamicVars: dynamic,
			Total:       1,
			Session:     session,
			Observer:    observer,
		},
	}
}

func record(fields map[string]string) domain.RecipientRecord {
	return domain.NewRecipientRecord(1, fields)
}

func TestSend_Sent(t *testing.T) {
	f := newFixture("Hola {nombre}, de {miempresa}", []string{"nombre"})

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5512345678", "nombre": "Ana"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeSent {
		t.Fatalf("Outcome = %v, want sent (detail %q)", res.Outcome, res.Detail)
	}
	if res.DisplayName != "5512345678 (Ana)" {
		t.Errorf("DisplayName = %q", res.DisplayName)
	}
	if f.session.sendClicks != 1 {
		t.Errorf("send clicks = %d, want 1", f.session.sendClicks)
	}
	if len(f.session.navigated) != 1 {
		t.Fatalf("navigated %d times, want 1", len(f.session.navigated))
	}

	u, err := url.Parse(f.session.navigated[0])
	if err != nil {
		t.Fatalf("invalid deep link: %v", err)
	}
	if got := u.Query().Get("text"); got != "Hola Ana, de Acme" {
		t.Errorf("text = %q", got)
	}
	if !f.observer.contains(domain.SeverityInfo, "✓ Mensaje enviado a: 5512345678 (Ana)") {
		t.Errorf("missing sent line: %v", f.observer.lines)
	}
	// pre-click and post-click
	if f.pacer.calls != 2 {
		t.Errorf("pacer calls = %d, want 2", f.pacer.calls)
	}
}

func TestSend_InvalidNumberNeverNavigates(t *testing.T) {
	f := newFixture("Hola", nil)

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "12a3"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeSkippedInvalidNumber {
		t.Errorf("Outcome = %v, want skipped_invalid_number", res.Outcome)
	}
	if len(f.session.navigated) != 0 {
		t.Errorf("navigated to %v, want no navigation", f.session.navigated)
	}
	if !f.observer.contains(domain.SeverityError, "Número '12a3' inválido en línea 1") {
		t.Errorf("missing invalid number line: %v", f.observer.lines)
	}
}

func TestSend_FixedDigitCount(t *testing.T) {
	f := newFixture("Hola", nil)
	f.settings.Phone = config.PhoneConfig{Prefix: "52", Digits: 10}

	res, _ := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "12345"}))
	if res.Outcome != domain.OutcomeSkippedInvalidNumber {
		t.Errorf("Outcome = %v, want skipped_invalid_number", res.Outcome)
	}

	res, _ = f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5512345678"}))
	if res.Outcome != domain.OutcomeSent {
		t.Fatalf("Outcome = %v, want sent", res.Outcome)
	}
	if !strings.Contains(f.session.navigated[0], "phone=525512345678") {
		t.Errorf("deep link %q should carry prefixed phone", f.session.navigated[0])
	}
}

func TestSend_FormatError(t *testing.T) {
	f := newFixture("Hola {nombre", nil)

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeSkippedFormatError {
		t.Errorf("Outcome = %v, want skipped_format_error", res.Outcome)
	}
	if len(f.session.navigated) != 0 {
		t.Error("format error must not navigate")
	}
}

func TestSend_AbsentColumnWarnsButSends(t *testing.T) {
	f := newFixture("Hola {nombre} de {ciudad}", []string{"ciudad", "nombre"})

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511", "ciudad": ""}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeSent {
		t.Fatalf("Outcome = %v, want sent", res.Outcome)
	}
	if !f.observer.contains(domain.SeverityWarn, "Faltan datos para '5511' en nombre.") {
		t.Errorf("missing warning for absent column only: %v", f.observer.lines)
	}
}

func TestSend_ChatLoadTimeout(t *testing.T) {
	f := newFixture("Hola", nil)
	f.session.waitErr[f.settings.Locators.ChatInput] = domain.ErrTimeout
	f.session.waitErr[f.settings.Locators.InvalidPopup] = domain.ErrTimeout

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeFailedTimeoutChatLoad {
		t.Errorf("Outcome = %v, want failed_timeout_chat_load", res.Outcome)
	}
	if f.session.sendClicks != 0 {
		t.Error("send control must not be clicked")
	}
}

func TestSend_InvalidNumberPopup(t *testing.T) {
	f := newFixture("Hola", nil)
	f.session.waitErr[f.settings.Locators.ChatInput] = domain.ErrTimeout

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeFailedPopupInvalidNumber {
		t.Errorf("Outcome = %v, want failed_popup_invalid_number", res.Outcome)
	}
	if len(f.session.clicked) != 1 || f.session.clicked[0] != f.settings.Locators.InvalidPopup {
		t.Errorf("popup should be dismissed, clicked = %v", f.session.clicked)
	}
}

func TestSend_SendControlTimeout(t *testing.T) {
	f := newFixture("Hola", nil)
	f.session.waitErr[f.settings.Locators.SendControl] = domain.ErrTimeout

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeFailedTimeoutSendControl {
		t.Errorf("Outcome = %v, want failed_timeout_send_control", res.Outcome)
	}
}

func TestSend_UnexpectedError(t *testing.T) {
	f := newFixture("Hola", nil)
	f.session.clickErr = errors.New("element detached")

	res, err := f.sender.Send(context.Background(), f.rc, 0, record(map[string]string{"numero": "5511"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Outcome != domain.OutcomeFailedUnexpectedError {
		t.Errorf("Outcome = %v, want failed_unexpected_error", res.Outcome)
	}
	if !strings.Contains(res.Detail, "element detached") {
		t.Errorf("Detail = %q", res.Detail)
	}
}

func TestSend_CancelledIsNotAnOutcome(t *testing.T) {
	f := newFixture("Hola", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.session.waitErr[f.settings.Locators.ChatInput] = context.Canceled

	_, err := f.sender.Send(ctx, f.rc, 0, record(map[string]string{"numero": "5511"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
}

func TestBuildDeepLink(t *testing.T) {
	got := BuildDeepLink("https://web.whatsapp.com/send", "525512345678", "Hola Ana & co.\n¿Todo bien? 100%")

	if !strings.HasPrefix(got, "https://web.whatsapp.com/send?phone=525512345678&text=") {
		t.Fatalf("BuildDeepLink() = %q", got)
	}
	if strings.Contains(got, "+") || strings.Contains(got, " ") {
		t.Errorf("spaces must be %%20-encoded: %q", got)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text := u.Query().Get("text"); text != "Hola Ana & co.\n¿Todo bien? 100%" {
		t.Errorf("decoded text = %q", text)
	}
}

func TestEvaluateNumero(t *testing.T) {
	tests := []struct {
		numero string
		phone  config.PhoneConfig
		valid  bool
		dest   string
	}{
		{"5512345678", config.PhoneConfig{}, true, "5512345678"},
		{"123", config.PhoneConfig{}, true, "123"},
		{"", config.PhoneConfig{}, false, ""},
		{"12a3", config.PhoneConfig{}, false, ""},
		{"+5511", config.PhoneConfig{}, false, ""},
		{"١٢٣", config.PhoneConfig{}, false, ""},
		{"5512345678", config.PhoneConfig{Prefix: "52", Digits: 10}, true, "525512345678"},
		{"551234567", config.PhoneConfig{Digits: 10}, false, ""},
	}

	for _, tt := range tests {
		got := EvaluateNumero(tt.numero, tt.phone)
		if got.Valid != tt.valid || got.Phone != tt.dest {
			t.Errorf("EvaluateNumero(%q, %+v) = %+v, want valid=%v phone=%q", tt.numero, tt.phone, got, tt.valid, tt.dest)
		}
		if !got.Valid && got.Reason == "" {
			t.Errorf("EvaluateNumero(%q) should explain why it is invalid", tt.numero)
		}
	}
}

func TestRandomPacer(t *testing.T) {
	p := NewRandomPacer()

	start := time.Now()
	if err := p.Pause(context.Background(), 5*time.Millisecond, 10*time.Millisecond); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Pause returned after %v, want >= 5ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Pause(ctx, time.Hour, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Pause() on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestJitter_WithinRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := Jitter(1500*time.Millisecond, 3*time.Second)
		if d < 1500*time.Millisecond || d > 3*time.Second {
			t.Fatalf("Jitter() = %v, out of range", d)
		}
	}
	if d := Jitter(time.Second, time.Second); d != time.Second {
		t.Errorf("Jitter(1s, 1s) = %v", d)
	}
}
