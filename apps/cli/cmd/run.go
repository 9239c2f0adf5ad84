package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Praveenashok395/restspec/packages/bench"
	"github.com/Praveenashok395/restspec/packages/core/config"
	"github.com/Praveenashok395/restspec/packages/core/env"
	"github.com/Praveenashok395/restspec/packages/core/runner"
	"github.com/Praveenashok395/restspec/packages/core/scenario"
	"github.com/Praveenashok395/restspec/packages/history"
	"github.com/Praveenashok395/restspec/packages/output"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Run the scenarios in .rest files",
	Long: `Run the scenarios defined in .rest files.

Examples:
  restspec run f1.rest
  restspec run f1.rest --env staging
  restspec run ./checks/ --tags smoke
  restspec run f1.rest --name "circuits"
  restspec run f1.rest --watch

Benchmark Mode:
  restspec run f1.rest --bench --requests 200 --rate 50
  restspec run f1.rest --bench --name "list circuits"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

// watchDebounce is the delay before re-running after a file change.
const watchDebounce = 300 * time.Millisecond

var (
	envFlag         string
	envFileFlag     string
	configFlag      string
	nameFlag        string
	tagsFlag        string
	verboseFlag     bool
	bailFlag        bool
	timeoutFlag     string
	noColorFlag     bool
	reporterFlag    string
	outputFileFlag  string
	parallelFlag    bool
	concurrencyFlag int
	watchFlag       bool
	proxyFlag       string
	insecureFlag    bool
	noHistoryFlag   bool

	benchFlag            bool
	benchRequestsFlag    int
	benchRateFlag        float64
	benchConcurrencyFlag int
)

func init() {
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("RESTSPEC_ENV", ""), "Environment to use (env: RESTSPEC_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("RESTSPEC_ENV_FILE", ""), "Path to .env file for variable interpolation (env: RESTSPEC_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("RESTSPEC_CONFIG", ""), "Path to config file (env: RESTSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only scenarios matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("RESTSPEC_TAGS", ""), "Run only scenarios with these tags, comma-separated (env: RESTSPEC_TAGS)")

	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show every check, not just failures")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("RESTSPEC_NO_COLOR", false), "Disable colored output (env: RESTSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&reporterFlag, "reporter", "o", getEnvString("RESTSPEC_REPORTER", ""), "Output format: console, json, junit (env: RESTSPEC_REPORTER)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write report to file instead of stdout")

	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("RESTSPEC_BAIL", false), "Stop on first failure (env: RESTSPEC_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RESTSPEC_TIMEOUT", ""), "Request timeout, e.g. 30s, 1m (env: RESTSPEC_TIMEOUT)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", getEnvBool("RESTSPEC_PARALLEL", false), "Run independent scenarios in parallel (env: RESTSPEC_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("RESTSPEC_CONCURRENCY", 4), "Concurrent scenarios when running in parallel (env: RESTSPEC_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run")

	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("RESTSPEC_PROXY", ""), "Proxy URL for requests (env: RESTSPEC_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("RESTSPEC_INSECURE", false), "Disable TLS certificate validation (env: RESTSPEC_INSECURE)")
	runCmd.Flags().BoolVar(&noHistoryFlag, "no-history", false, "Do not record this run in the history database")

	runCmd.Flags().BoolVar(&benchFlag, "bench", false, "Benchmark scenarios instead of checking them once")
	runCmd.Flags().IntVar(&benchRequestsFlag, "requests", 100, "Total requests per scenario in benchmark mode")
	runCmd.Flags().Float64VarP(&benchRateFlag, "rate", "r", 0, "Target requests per second in benchmark mode (0 = unlimited)")
	runCmd.Flags().IntVar(&benchConcurrencyFlag, "bench-concurrency", 10, "Parallel workers per scenario in benchmark mode")
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	if noColorFlag {
		color.NoColor = true
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .rest files found")
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if cfg.GetNoColor() {
		color.NoColor = true
	}

	opts, err := buildRunnerOptions(cfg)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	reporterName := reporterFlag
	if reporterName == "" {
		reporterName = cfg.Reporter
	}
	reporter, err := output.New(reporterName, out, verboseFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if benchFlag {
		return runBenchMode(ctx, cmd, cfg, opts, files)
	}

	runOnce := func(reporter output.Reporter) (*runner.RunResult, error) {
		opts.OnResult = reporter.Result
		r := runner.New(cfg, opts)
		if err := seedResolver(r.Resolver(), cmd); err != nil {
			return nil, err
		}
		run, err := r.RunFiles(ctx, files)
		if err != nil {
			return nil, err
		}
		if err := reporter.Summary(run); err != nil {
			return nil, err
		}
		recordHistory(cmd, cfg, run)
		return run, nil
	}

	run, err := runOnce(reporter)
	if err != nil {
		return err
	}

	if !watchFlag {
		if !run.Ok() {
			os.Exit(1)
		}
		return nil
	}
	return watchAndRerun(ctx, cmd, files, args, func() {
		reporter, err := output.New(reporterName, out, verboseFlag)
		if err != nil {
			return
		}
		if _, err := runOnce(reporter); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "error: %v\n", err)
		}
	})
}

func buildRunnerOptions(cfg *config.Config) (runner.Options, error) {
	var tags []string
	for _, t := range strings.Split(tagsFlag, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	opts := runner.Options{
		Environment: envFlag,
		Tags:        tags,
		NamePattern: nameFlag,
		Bail:        bailFlag || cfg.GetBail(),
		Parallel:    parallelFlag || cfg.GetParallel(),
		Concurrency: concurrencyFlag,
		Insecure:    insecureFlag,
		Proxy:       proxyFlag,
	}
	if cfg.Concurrency > 0 && opts.Concurrency == 4 {
		opts.Concurrency = cfg.Concurrency
	}
	if timeoutFlag != "" {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return opts, fmt.Errorf("invalid timeout %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		opts.Timeout = timeout
	}
	return opts, nil
}

// seedResolver layers a .env file over the configured environment.
func seedResolver(resolver *env.Resolver, cmd *cobra.Command) error {
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(cmd.OutOrStderr(), "warning: "+format+"\n", args...)
	})
	if envFileFlag == "" {
		return nil
	}
	vars, err := env.LoadDotenv(envFileFlag)
	if err != nil {
		return err
	}
	resolver.SetVariables(vars)
	return nil
}

func recordHistory(cmd *cobra.Command, cfg *config.Config, run *runner.RunResult) {
	if noHistoryFlag {
		return
	}
	path := cfg.HistoryPath
	if path == "" {
		path = history.DefaultPath
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "warning: cannot open history: %v\n", err)
		return
	}
	defer store.Close()

	envName := envFlag
	if envName == "" {
		envName = cfg.DefaultEnvironment
	}
	if _, err := store.Record(run, envName); err != nil {
		fmt.Fprintf(cmd.OutOrStderr(), "warning: cannot record history: %v\n", err)
	}
}

func watchAndRerun(ctx context.Context, cmd *cobra.Command, files, args []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "warning: failed to watch %s: %v\n", dir, err)
			}
			watched[dir] = true
		}
	}
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err == nil && info.IsDir() && !watched[path] {
					watcher.Add(path)
					watched[path] = true
				}
				return err
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) && isScenarioFile(event.Name) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running...\n", event.Name)
					rerun()
					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStderr(), "watcher error: %v\n", err)
		}
	}
}

// runBenchMode benchmarks every selected scenario, one after another.
func runBenchMode(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts runner.Options, files []string) error {
	r := runner.New(cfg, opts)
	if err := seedResolver(r.Resolver(), cmd); err != nil {
		return err
	}

	benchOpts := bench.Options{
		Requests:    benchRequestsFlag,
		Concurrency: benchConcurrencyFlag,
		Rate:        benchRateFlag,
		Timeout:     opts.Timeout,
	}

	failed := false
	for _, path := range files {
		file, err := scenario.ParseFile(path)
		if err != nil {
			return err
		}
		for _, v := range file.Variables {
			r.Resolver().SetVariable(v.Name, r.Resolver().Resolve(v.Value))
		}

		for _, s := range file.Scenarios {
			if s.Skip != "" {
				continue
			}
			if nameFlag != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(nameFlag)) {
				continue
			}
			checks, err := runner.ExpandChecks(file, s)
			if err != nil {
				return err
			}

			report, err := bench.Run(ctx, r.Client(), s, checks, r.Resolver(), filepath.Dir(path), benchOpts)
			if err != nil {
				return err
			}
			printBenchReport(cmd.OutOrStdout(), report)
			if report.Failed > 0 || report.Errors > 0 {
				failed = true
			}
		}
	}

	if failed {
		os.Exit(1)
	}
	return nil
}

func printBenchReport(w io.Writer, report *bench.Report) {
	fmt.Fprintf(w, "\n%s\n", report.Scenario)
	fmt.Fprintf(w, "  requests:   %d (%d ok, %d failed, %d errors)\n",
		report.Requests, report.Succeeded, report.Failed, report.Errors)
	fmt.Fprintf(w, "  throughput: %.1f req/s\n", report.Throughput)
	fmt.Fprintf(w, "  latency:    min %s  mean %s  max %s\n",
		report.Min.Round(time.Microsecond), report.Mean.Round(time.Microsecond), report.Max.Round(time.Microsecond))
	fmt.Fprintf(w, "  quantiles:  p50 %s  p95 %s  p99 %s\n",
		report.P50.Round(time.Microsecond), report.P95.Round(time.Microsecond), report.P99.Round(time.Microsecond))
	if len(report.StatusCodes) > 0 {
		fmt.Fprint(w, "  status:     ")
		first := true
		for _, code := range sortedKeys(report.StatusCodes) {
			if !first {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprintf(w, "%d: %d", code, report.StatusCodes[code])
			first = false
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
