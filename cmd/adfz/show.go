package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unitroot/adfz/internal/table"
)

var showCmd = &cobra.Command{
	Use:   "show <artifact.npz>",
	Short: "Summarize a simulated critical-value artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := table.Load(args[0])
		if err != nil {
			return err
		}
		levels, err := parseLevels(showLevels)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), tbl, levels)
		return nil
	},
}

var showLevels string

func init() {
	showCmd.Flags().StringVar(&showLevels, "levels", "1,5,10", "Comma-separated percentile levels to print")
}

func parseLevels(s string) ([]float64, error) {
	var levels []float64
	for _, part := range strings.Split(s, ",") {
		lv, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad percentile level %q", part)
		}
		levels = append(levels, lv)
	}
	return levels, nil
}

// printSummary renders the artifact dimensions and, per sample size, the
// critical values at the requested levels averaged across replications.
func printSummary(w io.Writer, tbl *table.Table, levels []float64) {
	complete := 0
	for m := range tbl.Lengths {
		if tbl.ColumnComplete(m) {
			complete++
		}
	}
	fmt.Fprintf(w, "trend %s: %d percentile levels x %d sample sizes x %d replications (%d/%d columns complete)\n",
		tbl.Trend, len(tbl.Percentiles), len(tbl.Lengths), tbl.Reps, complete, len(tbl.Lengths))

	idx := make([]int, len(levels))
	for i, lv := range levels {
		idx[i] = nearestLevel(tbl.Percentiles, lv)
	}

	fmt.Fprintf(w, "%8s", "n")
	for _, j := range idx {
		fmt.Fprintf(w, "%10.1f%%", tbl.Percentiles[j])
	}
	fmt.Fprintln(w)
	for m, n := range tbl.Lengths {
		fmt.Fprintf(w, "%8d", n)
		for _, j := range idx {
			fmt.Fprintf(w, "%11s", meanCell(tbl, j, m))
		}
		fmt.Fprintln(w)
	}
}

// meanCell averages one (percentile, sample size) cell across replications,
// skipping unfilled cells.
func meanCell(tbl *table.Table, p, m int) string {
	sum, count := 0.0, 0
	for r := 0; r < tbl.Reps; r++ {
		v := tbl.At(p, m, r)
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", sum/float64(count))
}

func nearestLevel(grid []float64, want float64) int {
	best := 0
	for i, p := range grid {
		if math.Abs(p-want) < math.Abs(grid[best]-want) {
			best = i
		}
	}
	return best
}
