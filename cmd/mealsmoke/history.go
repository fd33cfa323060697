package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/loykin/mealsmoke"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultHistoryLimit = 20

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	var (
		limit  int
		output string
		runID  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded smoke runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, closer, err := loadDoc(cmd, v)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			if strings.TrimSpace(runID) != "" {
				steps, err := mealsmoke.HistorySteps(cmd.Context(), doc.Store, runID)
				if err != nil {
					return err
				}
				return printHistorySteps(cmd.OutOrStdout(), runID, steps, output)
			}
			runs, err := mealsmoke.History(cmd.Context(), doc.Store, limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), runs, output)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of runs to show (0 = all)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	cmd.Flags().StringVar(&runID, "run", "", "show the steps of one run")
	return cmd
}

func invalidOutput(output string) error {
	return &mealsmoke.UsageError{Msg: fmt.Sprintf("invalid output format: %s (valid: text, yaml)", output)}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func result(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

func printHistory(w io.Writer, runs []mealsmoke.StoredRun, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "yaml":
		return writeYAML(w, runs)
	case "text", "":
	default:
		return invalidOutput(output)
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %-6s  steps=%d  elapsed=%s", r.StartedAt.Local().Format(time.RFC3339), r.RunID, result(r.Passed), r.StepCount, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		if r.FailedStep != "" {
			line += "  failed_step=" + r.FailedStep
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

func printHistorySteps(w io.Writer, runID string, steps []mealsmoke.StoredStep, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "yaml":
		return writeYAML(w, map[string]any{"run_id": runID, "steps": steps})
	case "text", "":
	default:
		return invalidOutput(output)
	}

	if len(steps) == 0 {
		_, _ = fmt.Fprintf(w, "No steps recorded for run %s.\n", runID)
		return nil
	}
	for _, s := range steps {
		line := fmt.Sprintf("%2d. %-6s %-7s %-36s status=%d elapsed=%s", s.Seq, result(s.Passed), s.Method, s.Target, s.StatusCode, s.Elapsed)
		if s.Error != "" {
			line += "  error=" + s.Error
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}
