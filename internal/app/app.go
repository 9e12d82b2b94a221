package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/ports"
	"bulk-sender/internal/recipients"
	"bulk-sender/internal/service"
	"bulk-sender/internal/template"
)

// probeLines is how many rows SetFile reads to check a file.
const probeLines = 5

// FileNotLoadedLabel is reported through OnFileLoaded when a file is rejected.
const FileNotLoadedLabel = "Archivo no cargado."

// App is the run orchestrator. Commands may be called from any goroutine;
// each run is executed by a single worker goroutine that owns the browser
// session and the failure log.
type App struct {
	settings *config.Settings
	logger   *slog.Logger
	launcher ports.BrowserLauncher
	observer ports.RunObserver
	store    ports.RunStore
	metrics  ports.OutcomeMetrics
	sender   *service.Sender
	now      func() time.Time
	newRunID func() string

	mu       sync.Mutex
	state    domain.RunState
	filePath string
	run      *runHandle
}

// Options configures the App.
type Options struct {
	Settings *config.Settings
	Logger   *slog.Logger
	Launcher ports.BrowserLauncher
	Observer ports.RunObserver

	// Optional.
	Pacer    ports.Pacer
	Store    ports.RunStore
	Metrics  ports.OutcomeMetrics
	Now      func() time.Time
	NewRunID func() string
}

// New creates a new App with all dependencies injected.
func New(opts Options) *App {
	pacer := opts.Pacer
	if pacer == nil {
		pacer = service.NewRandomPacer()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	sender := service.NewSender(
		opts.Settings,
		pacer,
		opts.Logger.With("component", "sender"),
	)

	return &App{
		settings: opts.Settings,
		logger:   opts.Logger,
		launcher: opts.Launcher,
		observer: observer,
		store:    opts.Store,
		metrics:  opts.Metrics,
		sender:   sender,
		now:      now,
		newRunID: newRunID,
	}
}

// State returns the current run state.
func (a *App) State() domain.RunState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LogsDir returns the absolute failure log directory.
func (a *App) LogsDir() string {
	dir, err := filepath.Abs(a.settings.LogsDir)
	if err != nil {
		return a.settings.LogsDir
	}
	return dir
}

// SetFile selects the recipient file after checking that its first rows
// can be read.
func (a *App) SetFile(path string) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		a.rejectFile(path, err)
		return &domain.LoadError{Path: path, Kind: domain.ErrUnreadableFile, Err: err}
	}

	n, err := recipients.Probe(path, probeLines)
	if err != nil {
		a.rejectFile(path, err)
		return err
	}

	a.mu.Lock()
	a.filePath = path
	a.mu.Unlock()

	base := filepath.Base(path)
	a.observer.OnFileLoaded(base)
	a.observer.OnLog(domain.SeverityInfo, "Archivo seleccionado: "+base)
	if n == 0 {
		a.observer.OnLog(domain.SeverityWarn, "Advertencia: El archivo parece estar vacío.")
	}

	a.logger.Info("recipient file selected", "path", path, "probed_rows", n)
	return nil
}

func (a *App) rejectFile(path string, err error) {
	a.logger.Warn("recipient file rejected", "path", path, "error", err)
	a.observer.OnFileLoaded(FileNotLoadedLabel)
	a.observer.OnLog(domain.SeverityError, fmt.Sprintf("Error al leer archivo: %v", err))
}

// UpdateTemplate recomputes and publishes the expected file layout for a
// template and the current static variable names.
func (a *App) UpdateTemplate(tmpl string, staticNames []string) string {
	format := template.ExpectedFormat(template.Analyze(tmpl, staticNames))
	a.observer.OnExpectedFormatChanged(format)
	return format
}

// Start validates cfg and launches a run. It returns a *domain.ConfigError
// for invalid input and domain.ErrAlreadyRunning when a run is active.
func (a *App) Start(ctx context.Context, cfg domain.RunConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != domain.StateIdle {
		return domain.ErrAlreadyRunning
	}

	if cfg.FilePath == "" {
		cfg.FilePath = a.filePath
	}
	if cfg.FilePath == "" {
		return &domain.ConfigError{Field: "file", Err: domain.ErrNoFile}
	}
	if strings.TrimSpace(cfg.Template) == "" {
		return &domain.ConfigError{Field: "template", Err: domain.ErrEmptyTemplate}
	}

	staticNames := cfg.StaticNames()
	if cfg.DynamicVars == nil {
		cfg.DynamicVars = template.Analyze(cfg.Template, staticNames)
	}
	if err := template.Validate(cfg.Template, template.KnownNames(staticNames, cfg.DynamicVars)); err != nil {
		return &domain.ConfigError{Field: "template", Err: err}
	}

	cfg.StaticVars = copyVars(cfg.StaticVars)
	cfg.DynamicVars = append([]string(nil), cfg.DynamicVars...)

	runCtx, cancel := context.WithCancel(ctx)
	h := &runHandle{
		id:       a.newRunID(),
		cancel:   cancel,
		commands: make(chan command, commandQueueSize),
		done:     make(chan struct{}),
	}
	a.run = h
	a.state = domain.StateInitializing

	a.logger.Info("run starting", "run_id", h.id, "file", cfg.FilePath, "dynamic_vars", cfg.DynamicVars)

	go a.work(runCtx, h, cfg)
	return nil
}

// ConfirmLogin tells the worker the operator has completed the login.
func (a *App) ConfirmLogin() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run == nil {
		return domain.ErrNotRunning
	}
	return a.run.send(cmdConfirmLogin)
}

// Stop requests cancellation. Pending browser waits are interrupted and the
// worker finishes at its next boundary.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run == nil {
		return domain.ErrNotRunning
	}

	a.logger.Info("stop requested", "run_id", a.run.id, "state", a.state)
	if err := a.run.send(cmdStop); err != nil {
		a.logger.Debug("stop command not queued", "error", err)
	}
	a.run.cancel()
	return nil
}

// Wait blocks until the current run, if any, has emitted its summary.
func (a *App) Wait() {
	a.mu.Lock()
	h := a.run
	a.mu.Unlock()

	if h != nil {
		<-h.done
	}
}

func (a *App) setState(s domain.RunState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// staticWarnings lists blank static variables. They do not block a run.
func staticWarnings(vars map[string]string) []string {
	var blank []string
	for name, value := range vars {
		if strings.TrimSpace(value) == "" {
			blank = append(blank, name)
		}
	}
	sort.Strings(blank)

	warnings := make([]string, 0, len(blank))
	for _, name := range blank {
		warnings = append(warnings, fmt.Sprintf("Advertencia: La variable estática '%s' está vacía.", name))
	}
	return warnings
}

func copyVars(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

type command int

const (
	cmdConfirmLogin command = iota
	cmdStop
)

const commandQueueSize = 8

var errCommandQueueFull = errors.New("command queue full")

type runHandle struct {
	id       string
	cancel   context.CancelFunc
	commands chan command
	done     chan struct{}
}

func (h *runHandle) send(cmd command) error {
	select {
	case h.commands <- cmd:
		return nil
	default:
		return errCommandQueueFull
	}
}

type nopObserver struct{}

func (nopObserver) OnLog(domain.Severity, string) {}
func (nopObserver) OnProgress(int) {}
func (nopObserver) OnAwaitingLogin() {}
func (nopObserver) OnRunFinished(domain.RunSummary) {}
func (nopObserver) OnFileLoaded(string) {}
func (nopObserver) OnExpectedFormatChanged(string) {}
