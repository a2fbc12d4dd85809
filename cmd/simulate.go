package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Devarsh-44/raceintel360/strategy"
)

var planPath string // Path to the strategy plan YAML

// simulateCmd ranks the strategies of a plan file against the trained model
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate and rank race strategies from a plan file",
	Run: func(cmd *cobra.Command, args []string) {
		plan, err := LoadPlan(planPath)
		if err != nil {
			logrus.Fatalf("Could not load plan: %v", err)
		}

		reg, err := strategy.OpenRegistry(modelDir)
		if err != nil {
			logrus.Fatalf("Could not load model artifacts from %s: %v", modelDir, err)
		}
		defer reg.Close()
		model, enc, err := reg.Snapshot()
		if err != nil {
			logrus.Fatalf("Model unavailable: %v", err)
		}

		pitLoss := plan.PitLossSeconds
		if pitLoss <= 0 {
			pitLoss = pitLossSeconds
		}

		results, err := strategy.RankStrategies(context.Background(), model, enc, plan.Race, plan.Strategies, pitLoss)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		fmt.Printf("%s %d, round %d: %s over %d laps (pit loss %.1fs)\n\n",
			plan.Race.RaceName, plan.Race.Year, plan.Race.Round,
			plan.Race.DriverCode, plan.Race.TotalLaps, pitLoss)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Strategy", "Stints", "Total", "Avg Lap", "Stops"})
		for i, r := range results {
			t.AppendRow(table.Row{
				i + 1,
				r.Strategy,
				formatStints(r.Stints),
				fmt.Sprintf("%.1fs (%.2fm)", r.TotalTimeSeconds, r.TotalTimeMinutes),
				fmt.Sprintf("%.3fs", r.AverageLapSeconds),
				r.PitStops,
			})
		}
		t.Render()
	},
}

func formatStints(stints []strategy.Stint) string {
	parts := make([]string, 0, len(stints))
	for _, s := range stints {
		parts = append(parts, fmt.Sprintf("%s(%d)", s.Compound, s.Laps))
	}
	return strings.Join(parts, " > ")
}

func init() {
	simulateCmd.Flags().StringVar(&planPath, "plan", "strategies.yaml", "Path to the strategy plan YAML")
	rootCmd.AddCommand(simulateCmd)
}
