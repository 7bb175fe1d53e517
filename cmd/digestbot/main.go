package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhij1306/digestbot/internal/archive"
	"github.com/abhij1306/digestbot/internal/config"
	"github.com/abhij1306/digestbot/internal/pipeline"
	"github.com/abhij1306/digestbot/internal/server"
	"github.com/abhij1306/digestbot/internal/telegram"
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
	Use:     "digestbot",
	Short:   "RSS news digests for Telegram",
	Long:    "Digestbot fetches RSS feeds, ranks headlines with an LLM, and posts formatted digests to a Telegram chat. Scheduling is left to cron.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// A missing .env is fine; real deployments set env vars directly.
		godotenv.Load()

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
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	for _, name := range []string{"market", "tech", "breaking"} {
		rootCmd.AddCommand(pipelineCmd(name))
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("digestbot", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/digestbot/",
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
		fmt.Println("Edit it to configure feeds, then set TG_TOKEN and TG_CHAT_ID.")
		return nil
	},
}

// pipelineCmd creates the run command for one pipeline.
func pipelineCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Run the %s digest pipeline", name),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			pipe, err := pipeline.FromConfig(cfg, name, db)
			if err != nil {
				return err
			}

			result := pipe.Run(context.Background())

			for i, step := range result.Steps {
				fmt.Printf("Step %d: %s\n", i+1, step.Name)
				if step.Err != nil {
					fmt.Printf("  Error: %v\n", step.Err)
				} else {
					fmt.Printf("  %s\n", step.Summary)
				}
			}

			// Errors are logged, not propagated, except missing credentials:
			// a digest that can never be delivered is a deployment mistake.
			for _, step := range result.Steps {
				if errors.Is(step.Err, telegram.ErrNoCredentials) {
					return step.Err
				}
			}
			return nil
		},
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive and last-run status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Archive:")
		fmt.Printf("  Digests: %d (%d sent)\n", stats.TotalDigests, stats.SentDigests)
		fmt.Printf("  Runs: %d across %d pipelines\n", stats.TotalRuns, stats.Pipelines)

		names := make([]string, 0, len(cfg.Pipelines))
		for name := range cfg.Pipelines {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("\nLast runs:")
		for _, name := range names {
			run, err := db.GetLastRun(name)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Printf("  %s: never\n", name)
				continue
			}
			state := "sent"
			if !run.Sent {
				state = "not sent"
			}
			fmt.Printf("  %s: %s IST, %d fetched, %s\n", name, run.RunAt, run.Fetched, state)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [n]",
	Short: "List recent archived digests",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 10
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return fmt.Errorf("invalid count: %s", args[0])
			}
			n = v
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		digests, err := db.GetRecentDigests(n)
		if err != nil {
			return err
		}
		if len(digests) == 0 {
			fmt.Println("No digests archived yet.")
			return nil
		}

		for _, d := range digests {
			state := ""
			if !d.Sent {
				state = " (not sent)"
			}
			fmt.Printf("[%d] %s %s IST — %d items%s\n", d.ID, d.Pipeline, d.RunAt, d.ItemCount, state)
		}
		return nil
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local archive viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
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
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*archive.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return archive.Open(filepath.Join(dataDir, "digestbot.db"))
}
