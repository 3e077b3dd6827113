package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/phobologic/patternminer/internal/aggregate"
	"github.com/phobologic/patternminer/internal/clone"
	"github.com/phobologic/patternminer/internal/config"
	"github.com/phobologic/patternminer/internal/export"
	"github.com/phobologic/patternminer/internal/extract"
	"github.com/phobologic/patternminer/internal/mine"
	"github.com/phobologic/patternminer/internal/queue"
	"github.com/phobologic/patternminer/internal/rules"
)

// runOrchestrate implements the `patternminer orchestrate` subcommand:
// a resumable batch run over a queue of repository URLs, cloning and
// mining each one, then aggregating the survivors into a corpus report.
func runOrchestrate(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("patternminer orchestrate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath string
		repoList   string
		maxRepos   int
		statusOnly bool
		verbose    bool
	)

	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&repoList, "repos", "", "repository list file (overrides config)")
	fs.IntVar(&maxRepos, "max", 0, "stop after this many repositories (overrides config)")
	fs.BoolVar(&statusOnly, "status", false, "print queue counts and exit")
	fs.BoolVar(&verbose, "v", false, "debug logging")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if repoList != "" {
		cfg.RepoListFile = repoList
	}
	if maxRepos > 0 {
		cfg.MaxRepos = maxRepos
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	if cfg.RulesFile != "" {
		if err := rules.LoadExtensions(cfg.RulesFile); err != nil {
			return fmt.Errorf("loading rules: %w", err)
		}
	}

	store, err := queue.Open(cfg.QueuePath())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if statusOnly {
		return printCounts(ctx, store, stdout)
	}

	if err := enqueueRepoList(ctx, store, cfg.RepoListFile, log); err != nil {
		return err
	}

	recovered, err := store.RecoverStuck(ctx, cfg.StuckTimeout)
	if err != nil {
		return err
	}
	if recovered > 0 {
		log.Info("recovered stuck repositories", "count", recovered)
	}

	if err := processQueue(ctx, store, cfg, log); err != nil {
		return err
	}

	if err := aggregateCorpus(cfg, log); err != nil {
		return err
	}
	return printCounts(ctx, store, stdout)
}

// enqueueRepoList adds clone URLs from the list file. A missing file is
// fine when the queue already has work from a previous run.
func enqueueRepoList(ctx context.Context, store *queue.Store, path string, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no repository list file", "path", path)
			return nil
		}
		return err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	added, err := store.Add(ctx, urls)
	if err != nil {
		return err
	}
	log.Info("queue loaded", "listed", len(urls), "added", added)
	return nil
}

func processQueue(ctx context.Context, store *queue.Store, cfg config.Config, log *slog.Logger) error {
	cloneOpts := clone.Options{
		TempDir: cfg.TempDir,
		Depth:   cfg.CloneDepth,
		Timeout: cfg.CloneTimeout,
	}
	mineOpts := mine.Options{
		MaxFileSize: cfg.MaxFileSize,
		Workers:     cfg.Workers,
		Extract:     extract.Options{MinComplexity: cfg.MinComplexity},
	}

	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Info("interrupted; queue state is resumable", "processed", processed)
			return nil
		}
		if cfg.MaxRepos > 0 && processed >= cfg.MaxRepos {
			log.Info("repository limit reached", "max", cfg.MaxRepos)
			return nil
		}

		repo, err := store.NextPending(ctx)
		if err != nil {
			return err
		}
		if repo == nil {
			log.Info("queue drained", "processed", processed)
			return nil
		}

		if err := store.MarkProcessing(ctx, repo.ID); err != nil {
			return err
		}
		processed++
		log.Info("mining repository", "repo", repo.Name, "attempt", repo.AttemptCount+1)

		if err := processRepo(ctx, store, cfg, cloneOpts, mineOpts, repo, log); err != nil {
			retrying, ferr := store.MarkFailed(ctx, repo.ID, err.Error(), cfg.RetryAttempts)
			if ferr != nil {
				return ferr
			}
			log.Warn("repository failed", "repo", repo.Name, "retrying", retrying, "err", err)
		}
	}
}

func processRepo(ctx context.Context, store *queue.Store, cfg config.Config, cloneOpts clone.Options, mineOpts mine.Options, repo *queue.Repo, log *slog.Logger) error {
	start := time.Now()

	path, err := clone.Clone(ctx, cloneOpts, repo.URL, repo.ID)
	if err != nil {
		return fmt.Errorf("cloning: %w", err)
	}
	defer func() {
		if cerr := clone.Cleanup(path); cerr != nil {
			log.Warn("cleanup failed", "path", path, "err", cerr)
		}
	}()

	report, err := mine.Repository(ctx, path, repo.Name, mineOpts)
	if err != nil {
		return err
	}

	tablePath := cfg.TablePath(repo.ID, repo.Name)
	if err := export.SaveTable(tablePath, aggregate.ToTable(repo.Name, report)); err != nil {
		return fmt.Errorf("saving table: %w", err)
	}

	stats := queue.CompletionStats{
		FilesProcessed:    report.Stats.FilesProcessed,
		FilesSkipped:      report.Stats.FilesSkipped,
		ParseErrors:       report.Stats.ParseErrors,
		PatternsExtracted: report.Stats.PatternsExtracted,
		TotalFrequency:    report.TotalOccurrences(),
		Duration:          time.Since(start),
		SkipReasons:       report.Stats.SkipReasons,
	}
	if err := store.MarkCompleted(ctx, repo.ID, stats); err != nil {
		return err
	}

	log.Info("repository completed",
		"repo", repo.Name,
		"files", stats.FilesProcessed,
		"patterns", len(report.Patterns),
		"duration", stats.Duration.Round(time.Millisecond))
	return nil
}

// aggregateCorpus merges every saved table in the data dir and writes
// the corpus report set to the results dir.
func aggregateCorpus(cfg config.Config, log *slog.Logger) error {
	tables, err := loadTables(filepath.Join(cfg.DataDir, "patterns_by_repo"))
	if err != nil {
		log.Warn("nothing to aggregate", "err", err)
		return nil
	}

	th := aggregate.Thresholds{MinUnits: cfg.MinRepoCount, MinFrequency: cfg.MinTotalFreq}
	report, err := aggregate.Aggregate("corpus", tables, th)
	if err != nil {
		return err
	}
	aggregate.DropTrivial(report)
	aggregate.TopK(report, cfg.TopK)

	base := filepath.Join(cfg.ResultsDir, "corpus_patterns")
	if err := writeReport(report, "all", base, io.Discard); err != nil {
		return err
	}
	log.Info("corpus report written",
		"repos", report.UnitCount,
		"patterns", len(report.Patterns),
		"base", base)
	return nil
}

func printCounts(ctx context.Context, store *queue.Store, stdout io.Writer) error {
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	for _, st := range []queue.Status{queue.StatusPending, queue.StatusProcessing, queue.StatusCompleted, queue.StatusFailed} {
		fmt.Fprintf(stdout, "%-12s %d\n", st, counts[st])
	}
	return nil
}
