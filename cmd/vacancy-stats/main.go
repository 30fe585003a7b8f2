// Command vacancy-stats collects programming-language vacancy postings from
// HeadHunter and SuperJob and prints per-language salary statistics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/vacancy-stats/internal/ui"
	"github.com/Sternrassler/vacancy-stats/pkg/config"
	"github.com/Sternrassler/vacancy-stats/pkg/logging"
	"github.com/Sternrassler/vacancy-stats/pkg/metrics"
	"github.com/Sternrassler/vacancy-stats/pkg/stats"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

type options struct {
	configPath  string
	envFile     string
	period      int
	provider    string
	categories  string
	format      string
	logLevel    string
	metricsFile string
	purgeCache  bool
	quiet       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	flags := flag.NewFlagSet("vacancy-stats", flag.ContinueOnError)
	flags.SetOutput(stderr)

	opts := &options{}
	flags.StringVar(&opts.configPath, "config", "", "path to the YAML config file (defaults when empty)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file holding provider tokens")
	flags.IntVar(&opts.period, "period", 0, "only postings published in the last N days (overrides period_days)")
	flags.StringVar(&opts.provider, "provider", "", "headhunter, superjob or all (overrides providers.*.enabled)")
	flags.StringVar(&opts.categories, "categories", "", "comma-separated categories (overrides categories)")
	flags.StringVar(&opts.format, "format", formatTable, "output format: table or json")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, error or disabled (overrides log.level)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
	flags.BoolVar(&opts.purgeCache, "purge-cache", false, "drop cached provider responses before collecting")
	flags.BoolVar(&opts.quiet, "quiet", false, "no banner and no progress bar")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	switch opts.format {
	case formatTable, formatJSON:
	default:
		return nil, fmt.Errorf("unknown format %q (want table or json)", opts.format)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(stderr, "load %s: %v\n", opts.envFile, err)
			return exitError
		}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: stderr,
	})

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Startup failed")
		fmt.Fprintln(stderr, err)
		return exitError
	}
	defer a.Close()

	if opts.purgeCache {
		n, err := a.PurgeCache(ctx)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		log.Info().Int("keys", n).Msg("Cache purged")
	}

	interactive := opts.format == formatTable && !opts.quiet
	ui.PrintBanner(stderr, !interactive)

	reports, runErr := a.RunAll(ctx, func(title string, total int) (stats.ProgressFunc, func()) {
		if !interactive {
			return nil, nil
		}
		bar := ui.NewProgressBar(stderr, title, total)
		return bar.Update, bar.Finish
	})

	if err := render(stdout, opts.format, reports); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	if summary, err := metrics.Summary(metrics.Gatherer); err == nil {
		event := log.Debug()
		for _, name := range metrics.SortedNames(summary) {
			event = event.Float64(name, summary[name])
		}
		event.Msg("Run metrics")
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile, metrics.Gatherer); err != nil {
			fmt.Fprintf(stderr, "write metrics: %v\n", err)
			return exitError
		}
	}

	if runErr != nil {
		fmt.Fprintln(stderr, runErr)
		return exitError
	}
	return exitOK
}

// loadConfig reads the config file (or defaults) and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.period != 0 {
		cfg.PeriodDays = opts.period
	}
	if opts.categories != "" {
		cfg.Categories = splitList(opts.categories)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	switch strings.ToLower(opts.provider) {
	case "", "all":
	case "headhunter", "hh":
		cfg.Providers.HeadHunter.Enabled = true
		cfg.Providers.SuperJob.Enabled = false
	case "superjob", "sj":
		cfg.Providers.HeadHunter.Enabled = false
		cfg.Providers.SuperJob.Enabled = true
	default:
		return nil, config.Invalid("provider", "unknown provider %q", opts.provider)
	}
	if opts.format == formatJSON {
		cfg.Log.Pretty = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func render(w io.Writer, format string, reports []namedReport) error {
	if format == formatJSON {
		out := make([]*stats.Report, 0, len(reports))
		for _, r := range reports {
			out = append(out, r.report)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	for _, r := range reports {
		if err := ui.WriteTable(w, r.title, r.report); err != nil {
			return err
		}
	}
	return nil
}
