package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog/log"

	tutorialscraper "tutorial-scraper/agents/tutorial-scraper"
	"tutorial-scraper/shared/config"
	"tutorial-scraper/shared/logger"
	"tutorial-scraper/shared/scheduler"
	"tutorial-scraper/shared/storage"
)

const usage = `usage: tutorial-scraper [command]

  (none)             run on the configured schedule
  --once             run a single ingestion pass and exit
  stats [language]   print library totals and the most viewed tutorials
  watch <id>         mark a tutorial as watched
  unwatch <id>       mark a tutorial as unwatched
  favorite <id>      add a tutorial to favorites
  unfavorite <id>    remove a tutorial from favorites
  delete <id>        remove a tutorial from the library`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Configure(logger.Config{Level: cfg.Log.Level, Console: cfg.Log.Console})
	log.Logger = logger.Get()

	// Create context that responds to signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := os.Args[1:]
	if len(args) > 0 && args[0] != "--once" {
		if err := runCommand(ctx, cfg, args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			cancel()
			os.Exit(1)
		}
		return
	}

	if err := runAgent(ctx, cfg, len(args) > 0); err != nil {
		log.Error().Err(err).Msg("Tutorial scraper failed")
		cancel()
		os.Exit(1)
	}
}

// runAgent runs a single pass when once is set and the schedule otherwise.
// The store is closed before it returns.
func runAgent(ctx context.Context, cfg *config.Config, once bool) error {
	agent := tutorialscraper.NewTutorialAgent(cfg)
	defer func() {
		if err := agent.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close tutorial store")
		}
	}()
	s := scheduler.New(cfg, agent)

	if once {
		log.Info().Msg("Running once...")
		if err := agent.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize agent: %w", err)
		}

		if err := s.RunOnce(ctx); err != nil {
			return fmt.Errorf("failed to run: %w", err)
		}
		fmt.Println(s.Monitor().GetStatusSummary())
		return nil
	}

	log.Info().Msg("Starting scheduler...")
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, cfg *config.Config, args []string) error {
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open tutorial store: %w", err)
	}
	defer store.Close()

	cmd := args[0]
	if cmd == "stats" {
		language := ""
		if len(args) > 1 {
			language = args[1]
		}
		return printStats(ctx, store, language)
	}

	if len(args) != 2 {
		return fmt.Errorf("%s", usage)
	}
	id := args[1]

	switch cmd {
	case "watch":
		err = store.MarkWatched(ctx, id, true)
	case "unwatch":
		err = store.MarkWatched(ctx, id, false)
	case "favorite":
		err = store.SetFavorite(ctx, id, true)
	case "unfavorite":
		err = store.SetFavorite(ctx, id, false)
	case "delete":
		err = store.Delete(ctx, id)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", cmd, id, err)
	}
	fmt.Printf("%s: %s done\n", id, cmd)
	return nil
}

func printStats(ctx context.Context, store storage.Store, language string) error {
	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Tutorials: %d (%d watched, %d favorites)\n", summary.Total, summary.Watched, summary.Favorites)
	printCounts("By language", summary.ByLanguage)
	printCounts("By subject", summary.BySubject)

	top, err := store.List(ctx, storage.Filter{Language: language, Order: storage.OrderViews, Limit: 10})
	if err != nil {
		return err
	}
	fmt.Println("\nMost viewed:")
	for i, rec := range top {
		fmt.Printf("%2d. %s (%d views) %s\n", i+1, rec.Title, rec.ViewCount, rec.URL())
	}
	return nil
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Printf("\n%s:\n", title)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, counts[name])
	}
}
