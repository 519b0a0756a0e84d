package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/shinglebench/internal/config"
	"github.com/himanishpuri/shinglebench/internal/experiment"
	"github.com/himanishpuri/shinglebench/internal/service"
	"github.com/himanishpuri/shinglebench/internal/storage"
	"github.com/himanishpuri/shinglebench/pkg/logger"
	"github.com/himanishpuri/shinglebench/pkg/models"
	"github.com/mdobak/go-xerrors"
)

// Global flags
var (
	storePath string
	storeKind string
	dataDir   string
	cacheDir  string
	tempDir   string
	seed      int64

	env    config.Env
	envErr error
	set    = map[string]bool{}
)

func init() {
	env, envErr = config.LoadEnv()

	flag.StringVar(&storePath, "store", env.Store, "Results store path (env: SHINGLE_STORE, default depends on -store-kind)")
	flag.StringVar(&storeKind, "store-kind", env.StoreKind, "Results store backend: json or sqlite (env: SHINGLE_STORE_KIND)")
	flag.StringVar(&dataDir, "data", env.DataDir, "Directory of <composer>_<piece>_<performer> audio files (env: SHINGLE_DATA_DIR)")
	flag.StringVar(&cacheDir, "cache", env.CacheDir, "Feature cache directory, empty to disable (env: SHINGLE_CACHE_DIR)")
	flag.StringVar(&tempDir, "temp", env.TempDir, "Directory for temporary audio conversion files (env: SHINGLE_TEMP_DIR)")
	flag.Int64Var(&seed, "seed", env.Seed, "Random seed for query sampling (env: SHINGLE_SEED)")
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	log := logger.GetLogger()
	if level, ok := logger.ParseLevel(env.LogLevel); ok {
		log.SetLevel(level)
	}
	if envErr != nil {
		log.Fatalf("%s", fatalMessage("environment", envErr))
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	log.Debugf("Executing command: %s", command)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch command {
	case "extract":
		err = handleExtract(ctx, args)
	case "run":
		err = handleRun(ctx, args)
	case "list":
		err = handleList()
	case "show":
		err = handleShow(args)
	case "encodings":
		err = handleEncodings(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		stop()
		log.Fatalf("%s", fatalMessage(command, err))
	}
}

// fatalMessage renders err with the stack captured at the point of failure.
func fatalMessage(command string, err error) string {
	return fmt.Sprintf("%s failed: %s", command, xerrors.Sprint(xerrors.New(err)))
}

// openStore resolves the store from flags, then the plan, then defaults.
func openStore(plan *config.Plan) (storage.ResultStore, error) {
	kind, path := config.ResolveStore(storeKind, storePath, set["store-kind"], set["store"], plan)
	return storage.Open(kind, path)
}

func createBench(plan *config.Plan) (*service.Bench, error) {
	store, err := openStore(plan)
	if err != nil {
		return nil, err
	}

	return service.NewBench(
		service.WithStore(store),
		service.WithSeed(config.ResolveSeed(seed, set["seed"] || env.SeedSet, plan)),
		service.WithCacheDir(cacheDir),
		service.WithTempDir(tempDir),
	)
}

func loadPlan(path string) (*config.Plan, error) {
	if path == "" {
		path = env.PlanFile
	}
	if path == "" {
		return config.DefaultPlan(), nil
	}
	return config.LoadPlan(path)
}

func handleExtract(ctx context.Context, args []string) error {
	dir := dataDir
	if len(args) > 0 {
		dir = args[0]
	}

	bench, err := createBench(nil)
	if err != nil {
		return err
	}
	defer bench.Close()

	start := time.Now()
	recs, err := bench.LoadRecordings(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("\nExtracted %d recording(s) from %s in %s\n\n", len(recs), dir, time.Since(start).Round(time.Millisecond))
	for i, rec := range recs {
		fmt.Printf("%3d. %-40s %6d frames  %7.1fs\n", i+1, rec.Identity, rec.Frames(), rec.DurationSeconds)
	}
	return nil
}

func handleRun(ctx context.Context, args []string) error {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	planFile := runCmd.String("plan", "", "YAML experiment plan (env: SHINGLE_PLAN, default: built-in f0-f11 sweep)")
	only := runCmd.String("only", "", "Comma-separated encodings to run, in plan order")
	runCmd.Parse(args)

	plan, err := loadPlan(*planFile)
	if err != nil {
		return err
	}
	if *only != "" {
		if err := plan.Only(strings.Split(*only, ",")); err != nil {
			return err
		}
	}

	dir := dataDir
	if runCmd.NArg() > 0 {
		dir = runCmd.Arg(0)
	}

	bench, err := createBench(plan)
	if err != nil {
		return err
	}
	defer bench.Close()

	recs, err := bench.LoadRecordings(ctx, dir)
	if err != nil {
		return err
	}

	results, err := bench.RunPlan(ctx, plan, recs)
	if len(results) > 0 {
		fmt.Println()
		printSummaryHeader()
		for _, r := range results {
			printSummaryRow(-1, r)
		}
	}
	return err
}

func handleList() error {
	bench, err := createBench(nil)
	if err != nil {
		return err
	}
	defer bench.Close()

	results, err := bench.Results()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("\nNo experiments stored")
		return nil
	}

	fmt.Printf("\nFound %d experiment(s):\n\n", len(results))
	printSummaryHeader()
	for i := range results {
		printSummaryRow(i, &results[i])
	}
	return nil
}

func handleShow(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: shinglebench show <index>")
		os.Exit(1)
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid experiment index %q: %w", args[0], err)
	}

	bench, err := createBench(nil)
	if err != nil {
		return err
	}
	defer bench.Close()

	results, err := bench.Results()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(results) {
		return fmt.Errorf("experiment %d out of range [0, %d)", index, len(results))
	}
	r := &results[index]

	fmt.Printf("\nExperiment %d (%s)\n", index, r.ID)
	fmt.Printf("   Encoding:     %s\n", r.Encoding)
	fmt.Printf("   Description:  %s\n", r.MethodDescription)
	fmt.Printf("   Method:       %s\n", r.MethodSource)
	fmt.Printf("   Created:      %s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Printf("   Sample size:  %d (seed %d)\n", r.SampleSize, r.Seed)
	fmt.Println()
	fmt.Printf("   Fraction found:            %.3f\n", r.Summary.FractionFound)
	fmt.Printf("   Average first match:       %.3f\n", r.Summary.AverageFirstMatch)
	fmt.Printf("   Average average distance:  %.3f\n", r.Summary.AverageAverageDistance)
	fmt.Printf("   Average time:              %.4fs\n", r.Summary.AverageTime)

	confusions := experiment.Confusions(r)
	if len(confusions) == 0 {
		return nil
	}
	fmt.Println("\nMost frequent misses (query -> retrieved):")
	maxDisplay := min(10, len(confusions))
	for _, c := range confusions[:maxDisplay] {
		fmt.Printf("   %4d  %s -> %s\n", c.Count, c.Query, c.Retrieved)
	}
	if len(confusions) > maxDisplay {
		fmt.Printf("   ... and %d more\n", len(confusions)-maxDisplay)
	}
	return nil
}

func handleEncodings(args []string) error {
	encCmd := flag.NewFlagSet("encodings", flag.ExitOnError)
	planFile := encCmd.String("plan", "", "YAML experiment plan to print instead of the built-in sweep")
	encCmd.Parse(args)

	plan, err := loadPlan(*planFile)
	if err != nil {
		return err
	}
	reg, err := plan.Encoders()
	if err != nil {
		return err
	}
	for _, enc := range reg.All() {
		fmt.Printf("%-6s %s\n       %s\n", enc.Name(), enc.Description(), enc.Source())
	}

	data, err := plan.Marshal()
	if err != nil {
		return err
	}
	fmt.Printf("\n%s", data)
	return nil
}

func printSummaryHeader() {
	fmt.Printf("%5s  %-8s %6s %8s %8s %10s  %s\n", "#", "encoding", "found", "first", "average", "time", "created")
}

// printSummaryRow prints one result; a negative index leaves the column blank.
func printSummaryRow(index int, r *models.ExperimentResult) {
	idx := ""
	if index >= 0 {
		idx = strconv.Itoa(index)
	}
	s := r.Summary
	fmt.Printf("%5s  %-8s %6.3f %8.3f %8.3f %9.4fs  %s\n",
		idx, r.Encoding, s.FractionFound, s.AverageFirstMatch, s.AverageAverageDistance, s.AverageTime,
		humanize.Time(r.CreatedAt))
}

func printUsage() {
	fmt.Println("shinglebench - shingle retrieval benchmark for music recordings")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -store <path>       Results store (env: SHINGLE_STORE, default: RESULTS.json or results.sqlite3)")
	fmt.Println("  -store-kind <kind>  json or sqlite (env: SHINGLE_STORE_KIND, default: json)")
	fmt.Println("  -data <dir>         Audio directory (env: SHINGLE_DATA_DIR, default: ./wavs)")
	fmt.Println("  -cache <dir>        Feature cache directory (env: SHINGLE_CACHE_DIR, default: ./data)")
	fmt.Println("  -temp <dir>         Temporary directory for audio conversion (env: SHINGLE_TEMP_DIR)")
	fmt.Println("  -seed <n>           Query sampling seed (env: SHINGLE_SEED, default: plan seed)")
	fmt.Println("\nUsage:")
	fmt.Println("  shinglebench [global-options] extract [dir]")
	fmt.Println("  shinglebench [global-options] run [-plan plan.yaml] [-only f3,f7] [dir]")
	fmt.Println("  shinglebench [global-options] list")
	fmt.Println("  shinglebench [global-options] show <index>")
	fmt.Println("  shinglebench [global-options] encodings [-plan plan.yaml]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Extract and cache features for every recording")
	fmt.Println("  shinglebench -data ./wavs extract")
	fmt.Println()
	fmt.Println("  # Run two encodings of the built-in sweep into SQLite")
	fmt.Println("  shinglebench -store-kind sqlite run -only f3,f7")
	fmt.Println()
	fmt.Println("  # Inspect the first stored experiment")
	fmt.Println("  shinglebench show 0")
}
