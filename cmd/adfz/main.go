// Command adfz simulates empirical critical-value tables for the "z" form
// of the Augmented Dickey-Fuller unit-root test.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/unitroot/adfz/internal/adf"
	"github.com/unitroot/adfz/internal/config"
	"github.com/unitroot/adfz/internal/driver"
	"github.com/unitroot/adfz/pkg/workpool"
)

var rootCmd = &cobra.Command{
	Use:   "adfz",
	Short: "Monte Carlo critical values for the ADF z unit-root test",
	Long: `adfz simulates empirical critical-value tables for the "z" form of the
Augmented Dickey-Fuller unit-root test. For every trend specification and
sample length it runs hundreds of independent replications on a local worker
pool, reduces each replication to a fixed percentile grid and checkpoints
the accumulated table after every sample length, one NumPy-compatible
artifact per trend.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation grid",
	RunE:  runSimulation,
}

var (
	configPath string
	outputDir  string
	workerN    int
	masterSeed uint64
	trendTags  string
	resumeRun  bool
	logLevel   string
)

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration (defaults apply when omitted)")
	runCmd.Flags().StringVar(&outputDir, "out", "", "Output directory for artifacts (overrides config)")
	runCmd.Flags().IntVar(&workerN, "workers", 0, "Concurrent workers, 0 means all CPUs (overrides config)")
	runCmd.Flags().Uint64Var(&masterSeed, "seed", 0, "Master seed for the whole run (overrides config)")
	runCmd.Flags().StringVar(&trendTags, "trends", "", "Comma-separated trend tags, e.g. nc,c (overrides config)")
	runCmd.Flags().BoolVar(&resumeRun, "resume", false, "Adopt matching checkpoints instead of restarting (overrides config)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("workers") {
		cfg.Workers = workerN
	}
	if flags.Changed("seed") {
		cfg.MasterSeed = masterSeed
	}
	if flags.Changed("resume") {
		cfg.Resume = resumeRun
	}
	if flags.Changed("trends") {
		cfg.Trends = nil
		for _, tag := range strings.Split(trendTags, ",") {
			cfg.Trends = append(cfg.Trends, adf.Trend(strings.TrimSpace(tag)))
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := workpool.New[[]float64](workpool.WithWorkers(workers))
	defer pool.Close()

	d, err := driver.New(cfg, driver.AdaptPool(pool), slogAdapter{logger})
	if err != nil {
		return err
	}

	logger.Info("starting simulation",
		"trends", len(cfg.Trends),
		"sample_sizes", len(cfg.SampleSizes),
		"replications", cfg.Replications,
		"draws_per_replication", cfg.DrawsPerReplication,
		"workers", workers,
		"output_dir", cfg.OutputDir)
	start := time.Now()
	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("simulation complete", "elapsed", time.Since(start).Round(time.Second).String())
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05",
	})), nil
}

// slogAdapter exposes a slog.Logger through the driver's Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debugf(format string, args ...any) { a.l.Debug(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Infof(format string, args ...any)  { a.l.Info(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Warnf(format string, args ...any)  { a.l.Warn(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Errorf(format string, args ...any) { a.l.Error(fmt.Sprintf(format, args...)) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
