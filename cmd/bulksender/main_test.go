package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/logging"
)

func resetFlags() {
	runTemplate = ""
	runTemplateFile = ""
	runProfile = ""
	runVars = nil
	runStaticSecret = ""
	formatStatic = nil
}

func TestFormatCommand(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"format", "--template", "Hola {nombre}, soy {minombre} de {empresa}", "--static", "minombre"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "numero;empresa;nombre;" {
		t.Errorf("format = %q, want numero;empresa;nombre;", got)
	}
}

func TestResolveStaticVars_FlagsOverrideProfile(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	runVars = []string{"minombre=Laura", "firma= equipo=ventas"}
	profile := &config.Profile{StaticVars: map[string]string{"minombre": "Ana", "miempresa": "Acme"}}

	vars, err := resolveStaticVars(context.Background(), profile, logging.Discard())
	if err != nil {
		t.Fatalf("resolveStaticVars() error = %v", err)
	}

	want := map[string]string{"minombre": "Laura", "miempresa": "Acme", "firma": " equipo=ventas"}
	if len(vars) != len(want) {
		t.Fatalf("vars = %v, want %v", vars, want)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("vars[%s] = %q, want %q", k, vars[k], v)
		}
	}
}

func TestResolveStaticVars_InvalidFlag(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)

	runVars = []string{"sin-igual"}
	if _, err := resolveStaticVars(context.Background(), &config.Profile{}, logging.Discard()); err == nil {
		t.Fatal("expected error for malformed --var, got nil")
	}
}

func TestConsoleObserver(t *testing.T) {
	var out bytes.Buffer
	o := newConsoleObserver(&out)
	o.now = func() time.Time { return time.Date(2024, 3, 5, 9, 4, 5, 0, time.UTC) }

	o.OnLog(domain.SeverityInfo, "Navegador cerrado.")
	o.OnLog(domain.SeverityWarn, "Advertencia: vacío")
	o.OnProgress(40)

	want := "[09:04:05] Navegador cerrado.\n" +
		"[09:04:05] warn: Advertencia: vacío\n" +
		"[09:04:05] Progreso: 40%\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}

	o.OnRunFinished(domain.RunSummary{RunID: "r1", Sent: 3})
	o.OnRunFinished(domain.RunSummary{RunID: "r2"})

	select {
	case <-o.Done():
	default:
		t.Fatal("Done() not closed after OnRunFinished")
	}
	if got := o.Summary(); got.RunID != "r1" || got.Sent != 3 {
		t.Errorf("Summary() = %+v, want first summary", got)
	}
}
