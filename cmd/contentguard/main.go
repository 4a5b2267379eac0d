package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pravoguard/contentguard/internal/config"
	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/engine"
	"github.com/pravoguard/contentguard/internal/feedsrc"
	"github.com/pravoguard/contentguard/internal/producer"
	"github.com/pravoguard/contentguard/internal/report"
	"github.com/pravoguard/contentguard/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "contentguard",
	Short:   "Content deduplication and topic rotation for publishing pipelines",
	Long:    "contentguard fingerprints candidate posts, rejects exact and near duplicates, and rotates topics so a channel never repeats itself.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("contentguard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/contentguard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the store path, feeds and thresholds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine and store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := eng.Statistics()
		if err != nil {
			return fmt.Errorf("getting statistics: %w", err)
		}

		fmt.Printf("Store: %s\n\n", db.Path())
		fmt.Println("Fingerprints:")
		fmt.Printf("  Total: %d\n", stats.TotalFingerprints)
		if stats.LastActivity != nil {
			fmt.Printf("  Last registration: %s\n", *stats.LastActivity)
		}
		if len(stats.ByProducer) > 0 {
			fmt.Println("  By producer:")
			producers := make([]string, 0, len(stats.ByProducer))
			for p := range stats.ByProducer {
				producers = append(producers, p)
			}
			sort.Strings(producers)
			for _, p := range producers {
				fmt.Printf("    %s: %d\n", p, stats.ByProducer[p])
			}
		}
		fmt.Println("\nBlocked topics:")
		fmt.Printf("  Permanent: %d\n", stats.PermanentlyBlocked)
		fmt.Printf("  Temporary: %d\n", stats.TemporarilyBlocked)
		fmt.Printf("\nSimilarity threshold: %.2f\n", stats.SimilarityThreshold)
		return nil
	},
}

// --- check / register commands ---

var (
	contentType string
	producerID  string
)

var checkCmd = &cobra.Command{
	Use:   "check <title> <body>",
	Short: "Check a candidate for uniqueness without registering it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		unique, reason, score := eng.CheckUniqueness(args[0], args[1], contentType, producerID)
		if unique {
			fmt.Println("UNIQUE: candidate would be accepted")
			return nil
		}
		fmt.Printf("DUPLICATE (score %.2f): %s\n", score, reason)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <title> <body>",
	Short: "Validate a candidate and register its fingerprint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		accepted, message := eng.ValidateAndRegister(args[0], args[1], contentType, producerID)
		if accepted {
			fmt.Printf("ACCEPTED: %s\n", message)
			return nil
		}
		fmt.Printf("REJECTED: %s\n", message)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, registerCmd} {
		c.Flags().StringVar(&contentType, "type", "news", "Content type of the candidate")
		c.Flags().StringVar(&producerID, "producer", "cli", "Producer identifier")
	}
}

// --- topics command ---

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage the topic blocklist",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List currently blocked topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		blocked, err := eng.ListBlockedTopics()
		if err != nil {
			return err
		}
		if len(blocked) == 0 {
			fmt.Println("No topics are currently blocked.")
			return nil
		}

		fmt.Println("Blocked topics:")
		for _, bt := range blocked {
			until := "permanent"
			if bt.BlockedUntil != nil {
				until = "until " + *bt.BlockedUntil
			}
			fmt.Printf("  %s (%s, %d conflicts)\n    %s\n", bt.TopicOriginal, until, bt.ConflictCount, bt.Reason)
		}
		return nil
	},
}

var (
	blockReason string
	blockHours  int
)

var topicsBlockCmd = &cobra.Command{
	Use:   "block <topic>",
	Short: "Temporarily block a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := eng.BlockTopicTemporarily(args[0], blockReason, blockHours); err != nil {
			return err
		}
		hours := blockHours
		if hours <= 0 {
			hours = cfg.Engine.DefaultBlockHours
		}
		fmt.Printf("Blocked %q for %d hour(s)\n", args[0], hours)
		return nil
	},
}

var topicsBlockPermCmd = &cobra.Command{
	Use:   "block-perm <topic>",
	Short: "Permanently block a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := eng.BlockTopicPermanently(args[0], blockReason); err != nil {
			return err
		}
		fmt.Printf("Permanently blocked %q\n", args[0])
		return nil
	},
}

var topicsUnblockCmd = &cobra.Command{
	Use:   "unblock <topic>",
	Short: "Remove a topic block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := eng.UnblockTopic(args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("Topic %q was not blocked\n", args[0])
			return nil
		}
		fmt.Printf("Unblocked %q\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{topicsBlockCmd, topicsBlockPermCmd} {
		c.Flags().StringVar(&blockReason, "reason", "blocked by operator", "Reason for the block")
	}
	topicsBlockCmd.Flags().IntVar(&blockHours, "hours", 0, "Block duration in hours (0 uses the configured default)")

	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsBlockCmd)
	topicsCmd.AddCommand(topicsBlockPermCmd)
	topicsCmd.AddCommand(topicsUnblockCmd)
}

// --- cleanup command ---

var retentionDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete fingerprints past the retention horizon and expired blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := eng.Cleanup(retentionDays)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d fingerprint(s) and %d expired block(s)\n",
			result.DeletedFingerprints, result.DeletedBlocks)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&retentionDays, "days", 0, "Retention horizon in days (0 uses the configured default)")
}

// --- report command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate and store an activity report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		builder := report.NewBuilder(db, eng)
		body, err := builder.Build()
		if err != nil {
			return err
		}
		id, err := db.InsertReport(body)
		if err != nil {
			return fmt.Errorf("storing report: %w", err)
		}

		fmt.Println(body)
		fmt.Printf("Stored as report #%d\n", id)
		return nil
	},
}

// --- run command (demo feed producer) ---

var (
	dryRun bool
	posts  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the feed-backed demo producer through the validation gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		if len(cfg.Sources.Feeds) == 0 {
			return fmt.Errorf("no feeds configured; add sources.feeds to the config")
		}

		queue := feedsrc.NewQueue(cfg.Sources.Feeds, feedsrc.NewBodyFetcher(15*time.Second))
		runner := &producer.Runner{
			Engine:      eng,
			Source:      queue,
			Publish:     printPublisher,
			ContentType: cfg.Producer.ContentType,
			ProducerID:  "feed-demo",
			MaxAttempts: cfg.Producer.MaxAttempts,
			BlockHours:  cfg.Engine.DefaultBlockHours,
			Fallbacks:   cfg.Producer.Fallbacks,
			DryRun:      dryRun,
		}

		ctx := context.Background()
		for i := 0; i < posts; i++ {
			result, err := runner.PublishOne(ctx)
			if err != nil {
				return err
			}
			if !result.Published {
				fmt.Printf("Post %d/%d: nothing publishable after %d attempt(s)\n", i+1, posts, result.Attempts)
				continue
			}
			note := ""
			if result.UsedFallback {
				note = " [fallback, uniqueness not verified]"
			}
			fmt.Printf("Post %d/%d: %s (%d attempt(s))%s\n", i+1, posts, result.Title, result.Attempts, note)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate candidates without registering or publishing")
	runCmd.Flags().IntVar(&posts, "posts", 1, "Number of posts to publish")
}

func printPublisher(title, body string) error {
	fmt.Printf("\n--- %s ---\n%s\n\n", title, truncate(body, 400))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only observability server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, eng, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (0 uses the configured port)")
}

func openEngine() (*database.DB, *engine.Engine, error) {
	db, err := database.Open(cfg.StorePath())
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cfg, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, eng, nil
}
