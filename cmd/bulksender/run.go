package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bulk-sender/internal/adapters/browser"
	"bulk-sender/internal/adapters/redis"
	"bulk-sender/internal/adapters/secrets"
	"bulk-sender/internal/app"
	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/logging"
	"bulk-sender/internal/metrics"
	"bulk-sender/internal/ports"
)

const metricsShutdownTimeout = 5 * time.Second

var (
	runFile         string
	runTemplate     string
	runTemplateFile string
	runProfile      string
	runVars         []string
	runStaticSecret string
	runHeadless     bool
)

// runCmd sends a campaign
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send a campaign",
	Long: `Send one message per recipient row.

The browser opens on the chat client landing page. Log in (scan the QR code)
and press ENTER to start sending. Ctrl+C stops the run at the next safe point;
recipients not yet attempted are left out of the failure log.`,
	Example: `  bulksender run --file contactos.csv --template "Hola {nombre}, soy {minombre}" --var minombre=Laura
  bulksender run --file contactos.csv --profile campana.yaml`,
	RunE: runSend,
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Recipient file, ';'-separated (required)")
	runCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "Message template")
	runCmd.Flags().StringVar(&runTemplateFile, "template-file", "", "Read the message template from a file")
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "YAML run profile")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Static variable as name=value (repeatable)")
	runCmd.Flags().StringVar(&runStaticSecret, "static-secret", "", "AWS Secrets Manager secret holding static variables as a JSON object")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run the browser without a window")
	_ = runCmd.MarkFlagRequired("file")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(logging.DefaultConfig())

	settings, profile, err := loadSettings(cmd)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	tmpl, err := resolveTemplate(profile)
	if err != nil {
		return err
	}

	staticVars, err := resolveStaticVars(ctx, profile, logger)
	if err != nil {
		return err
	}

	var store ports.RunStore
	if settings.Redis.Enabled() {
		client, err := redis.NewClient(settings.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return err
		}
		defer client.Close()
		logger.Info("connected to redis", "addr", settings.Redis.Addr)
		store = redis.NewRunStore(client, settings.Redis.HistoryTTL)
	}

	m := metrics.New()
	observer := newConsoleObserver(cmd.OutOrStdout())

	application := app.New(app.Options{
		Settings: settings,
		Logger:   logger,
		Launcher: browser.NewLauncher(settings.Browser, logging.WithComponent(logger, "browser")),
		Observer: observer,
		Store:    store,
		Metrics:  m,
	})

	if err := application.SetFile(runFile); err != nil {
		return err
	}
	application.UpdateTemplate(tmpl, names(staticVars))

	// Commands are sent from here; the run itself is not tied to ctx so an
	// interrupt goes through Stop and still produces a summary.
	if err := application.Start(context.WithoutCancel(ctx), domain.RunConfig{
		Template:   tmpl,
		StaticVars: staticVars,
	}); err != nil {
		return err
	}

	go confirmOnEnter(cmd.InOrStdin(), application, logger)

	g, gctx := errgroup.WithContext(ctx)
	runDone := make(chan struct{})

	if settings.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              settings.MetricsAddr,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", settings.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-runDone:
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer close(runDone)
		select {
		case <-observer.Done():
		case <-gctx.Done():
			logger.Info("stopping run")
			if err := application.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
				logger.Warn("stop failed", "error", err)
			}
			<-observer.Done()
		}
		application.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("run aborted", "error", err)
		return err
	}

	summary := observer.Summary()
	if summary.InitError != "" {
		return fmt.Errorf("run %s failed: %s", summary.RunID, summary.InitError)
	}
	return nil
}

func loadSettings(cmd *cobra.Command) (*config.Settings, *config.Profile, error) {
	settings, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	profile := &config.Profile{}
	if runProfile != "" {
		profile, err = config.LoadProfile(runProfile)
		if err != nil {
			return nil, nil, err
		}
		profile.Apply(settings)
	}

	if cmd.Flags().Changed("headless") {
		settings.Browser.Headless = runHeadless
	}

	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}
	return settings, profile, nil
}

// resolveTemplate picks --template, then --template-file, then the profile.
func resolveTemplate(profile *config.Profile) (string, error) {
	switch {
	case runTemplate != "":
		return runTemplate, nil
	case runTemplateFile != "":
		data, err := os.ReadFile(runTemplateFile)
		if err != nil {
			return "", fmt.Errorf("read template file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	default:
		return profile.Template, nil
	}
}

// resolveStaticVars merges the profile, the secret and --var flags, each
// overriding the previous.
func resolveStaticVars(ctx context.Context, profile *config.Profile, logger *slog.Logger) (map[string]string, error) {
	vars := make(map[string]string, len(profile.StaticVars)+len(runVars))
	for k, v := range profile.StaticVars {
		vars[k] = v
	}

	if runStaticSecret != "" {
		source, err := secrets.NewSource(ctx)
		if err != nil {
			return nil, err
		}
		if err := mergeStaticVars(ctx, source, runStaticSecret, vars); err != nil {
			return nil, err
		}
		logger.Info("static variables loaded from secret", "secret", runStaticSecret)
	}

	for _, kv := range runVars {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", kv)
		}
		vars[name] = value
	}
	return vars, nil
}

func mergeStaticVars(ctx context.Context, source ports.StaticVarSource, id string, vars map[string]string) error {
	fromSource, err := source.StaticVars(ctx, id)
	if err != nil {
		return err
	}
	for k, v := range fromSource {
		vars[k] = v
	}
	return nil
}

// confirmOnEnter confirms the login on each line read while the run waits
// for it. It returns at EOF.
func confirmOnEnter(in io.Reader, application *app.App, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if application.State() != domain.StateAwaitingLoginConfirmation {
			continue
		}
		if err := application.ConfirmLogin(); err != nil {
			logger.Debug("login confirmation ignored", "error", err)
		}
	}
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	return mux
}

func names(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for name := range vars {
		out = append(out, name)
	}
	return out
}
