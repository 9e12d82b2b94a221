package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bulk-sender/internal/adapters/redis"
	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/ports"
)

var historyLimit int

// historyCmd inspects stored runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Inspect past runs stored in Redis",
	Long: `Without arguments, list the most recent runs. With a run id, print its
summary and every recipient outcome. Requires REDIS_ADDR.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if !settings.Redis.Enabled() {
		return errors.New("history requires REDIS_ADDR")
	}

	client, err := redis.NewClient(settings.Redis)
	if err != nil {
		return err
	}
	defer client.Close()

	store := redis.NewRunStore(client, settings.Redis.HistoryTTL)
	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return printRun(cmd, store, out, args[0])
	}
	return listRuns(cmd, store, out, historyLimit)
}

func listRuns(cmd *cobra.Command, store ports.RunStore, out io.Writer, limit int) error {
	ctx := cmd.Context()
	ids, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No hay envíos registrados.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tINICIO\tRESULTADO\tENVIADOS\tFALLIDOS\tTOTAL")
	for _, id := range ids {
		s, err := store.GetSummary(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			s.RunID, s.StartedAt.Local().Format(time.DateTime), s.Result(), s.Sent, s.Failed, s.Total)
	}
	return tw.Flush()
}

func printRun(cmd *cobra.Command, store ports.RunStore, out io.Writer, runID string) error {
	ctx := cmd.Context()
	s, err := store.GetSummary(ctx, runID)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	fmt.Fprintf(out, "Run:        %s\n", s.RunID)
	fmt.Fprintf(out, "Inicio:     %s\n", s.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Fin:        %s\n", s.FinishedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Resultado:  %s\n", s.Result())
	fmt.Fprintf(out, "Enviados:   %d\n", s.Sent)
	fmt.Fprintf(out, "Fallidos:   %d\n", s.Failed)
	fmt.Fprintf(out, "Procesados: %d de %d\n", s.Processed, s.Total)
	if s.InitError != "" {
		fmt.Fprintf(out, "Error:      %s\n", s.InitError)
	}
	if s.FailureLogPath != "" {
		fmt.Fprintf(out, "Log:        %s\n", s.FailureLogPath)
	}

	outcomes, err := store.ListOutcomes(ctx, runID)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDESTINATARIO\tRESULTADO\tDETALLE")
	for _, r := range outcomes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Index+1, r.DisplayName, r.Outcome, r.Detail)
	}
	return tw.Flush()
}
