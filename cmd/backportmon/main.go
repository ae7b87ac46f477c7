// Command backportmon reports backport coverage of OpenJDK issues across
// the actively maintained release lines.
//
// Subcommands:
//
//	issue KEY...   - classify the given issues
//	label NAME     - classify every issue carrying the label
//	pushes KEY...  - locate pushed changesets in local Mercurial checkouts
//	version TAG... - explain how version tags are parsed (debugging aid)
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scarson/backport-monitor/internal/classify"
	"github.com/scarson/backport-monitor/internal/config"
	"github.com/scarson/backport-monitor/internal/fetch"
	"github.com/scarson/backport-monitor/internal/report"
	"github.com/scarson/backport-monitor/internal/resolve"
	"github.com/scarson/backport-monitor/internal/scm"
	"github.com/scarson/backport-monitor/internal/tracker"
	"github.com/scarson/backport-monitor/internal/tracker/jira"
	"github.com/scarson/backport-monitor/internal/version"
)

// Releases at or above this train live in the consolidated mainline repo.
const mainlineRelease = 21

var (
	flagFormat string
	flagOutput string
	flagColor  bool
)

func main() {
	root := &cobra.Command{
		Use:   "backportmon",
		Short: "backportmon - backport coverage reports for OpenJDK release lines",
		// Silence default error printing; we print it ourselves with slog.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text or csv")
	root.PersistentFlags().StringVar(&flagOutput, "output", "", "write the report to a file instead of stdout")
	root.PersistentFlags().BoolVar(&flagColor, "color", false, "color urgency levels in text output")

	root.AddCommand(
		issueCmd(),
		labelCmd(),
		pushesCmd(),
		versionCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// ── issue ─────────────────────────────────────────────────────────────────────

func issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue KEY...",
		Short: "Classify the given issue keys",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIssue,
	}
}

func runIssue(cmd *cobra.Command, args []string) error {
	ctx, run, err := setup(cmd)
	if err != nil {
		return err
	}

	var results []*classify.Result
	for _, key := range args {
		g, err := run.resolver.Resolve(ctx, key)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", key, err)
		}
		res, err := run.engine.Classify(g)
		if err != nil {
			return fmt.Errorf("classify %s: %w", key, err)
		}
		results = append(results, res)
	}

	classify.SortResults(results)
	return render(results)
}

// ── label ─────────────────────────────────────────────────────────────────────

func labelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label NAME",
		Short: "Classify every issue carrying the label",
		Args:  cobra.ExactArgs(1),
		RunE:  runLabel,
	}
}

func runLabel(cmd *cobra.Command, args []string) error {
	ctx, run, err := setup(cmd)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("labels = %q", args[0])
	graphs, failures, err := run.resolver.ResolveBatch(ctx, query, func(done int) {
		slog.Info("resolving issues", "done", done)
	})
	if err != nil {
		return fmt.Errorf("batch resolve: %w", err)
	}
	for _, f := range failures {
		slog.Warn("issue skipped", "key", f.Key, "error", f.Err)
	}

	// Classification is independent per issue; parallelize and let the
	// deterministic sort restore order afterwards.
	results := make([]*classify.Result, len(graphs))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(run.cfg.FetchConcurrency)
	for i, g := range graphs {
		i, g := i, g
		eg.Go(func() error {
			res, err := run.engine.Classify(g)
			if err != nil {
				slog.Warn("issue skipped", "key", g.Root.Key, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = eg.Wait()

	kept := results[:0]
	for _, res := range results {
		if res != nil {
			kept = append(kept, res)
		}
	}
	classify.SortResults(kept)
	return render(kept)
}

// ── pushes ────────────────────────────────────────────────────────────────────

func pushesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pushes KEY...",
		Short: "Locate pushed changesets in local Mercurial checkouts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPushes,
	}
}

func runPushes(cmd *cobra.Command, args []string) error {
	ctx, run, err := setup(cmd)
	if err != nil {
		return err
	}
	if run.cfg.HgRoot == "" {
		return fmt.Errorf("HG_ROOT is not set; pushes needs local checkouts")
	}

	index := scm.NewIndex(run.cfg.HgRoot, slog.Default())
	for _, key := range args {
		g, err := run.resolver.Resolve(ctx, key)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", key, err)
		}
		fmt.Printf("%s: %s\n", g.Root.Key, g.Root.Summary)
		for _, release := range run.cfg.Releases {
			repo := repoName(release)
			if !index.HasRepo(repo) {
				fmt.Printf("  %3d: no local checkout (%s)\n", release, repo)
				continue
			}
			candidates := make([]*tracker.IssueRecord, 0, len(g.Ports[release])+1)
			candidates = append(candidates, g.Ports[release]...)
			candidates = append(candidates, g.Root)

			found := false
			for _, port := range candidates {
				for _, cs := range index.Search(repo, port.Key) {
					fmt.Printf("  %3d: %s %s\n", release, cs.Revision, cs.Synopsis)
					found = true
				}
			}
			if !found {
				fmt.Printf("  %3d: not pushed\n", release)
			}
		}
	}
	return nil
}

// repoName maps a release train to its update-repository directory name.
// The mainline tip has no "u" suffix.
func repoName(release int) string {
	if release >= mainlineRelease {
		return "jdk"
	}
	return fmt.Sprintf("jdk%du", release)
}

// ── version ───────────────────────────────────────────────────────────────────

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version TAG...",
		Short: "Explain how version tags are parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, raw := range args {
				tag := version.Parse(raw)
				fmt.Printf("%-20s major=%d minor=%d stripped=%q oracle=%v shared=%v shenandoah=%d aarch64=%d\n",
					raw, tag.Major, tag.Minor, tag.Stripped,
					tag.OracleExclusive, tag.SharedRange,
					tag.ShenandoahMajor, tag.AArch64Major)
			}
			return nil
		},
	}
}

// ── wiring ────────────────────────────────────────────────────────────────────

// runContext bundles the per-run collaborators built from config.
type runContext struct {
	cfg      *config.Config
	resolver *resolve.Resolver
	engine   *classify.Engine
}

func setup(cmd *cobra.Command) (context.Context, *runContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(newLogger(cfg))

	auth, err := cfg.Credentials()
	if err != nil {
		return nil, nil, err
	}
	var creds *jira.Credentials
	if auth != nil {
		creds = &jira.Credentials{Username: auth.Username, Password: auth.Password}
	}

	client := jira.New(cfg.TrackerURL, nil, creds)
	session := fetch.NewSession(client)
	resolver := resolve.New(session, cfg.FetchConcurrency, slog.Default())
	engine := classify.New(classify.Options{
		Releases:       cfg.Releases,
		BakeDays:       cfg.BakeDays,
		Weights:        cfg.WeightTable(),
		AssumeAffected: cfg.AssumeAffected,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	cobra.OnFinalize(stop)

	slog.Info("report run starting", "run", session.RunID(), "tracker", cfg.TrackerURL, "releases", cfg.Releases)
	return ctx, &runContext{cfg: cfg, resolver: resolver, engine: engine}, nil
}

func render(results []*classify.Result) error {
	var out io.Writer = os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close() //nolint:errcheck
		out = f
	}

	r := &report.Renderer{Color: flagColor && flagOutput == ""}
	switch flagFormat {
	case "text":
		return r.Text(out, results)
	case "csv":
		return r.CSV(out, results)
	default:
		return fmt.Errorf("unknown format %q (want text or csv)", flagFormat)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
