package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scott-cmd11/ai-newsletter-automation/internal/collect"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/config"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/database"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/dedup"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/extract"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/llm"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/quality"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/render"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/section"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/server"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/source"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/summarize"
	"github.com/scott-cmd11/ai-newsletter-automation/internal/verify"
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
	Use:     "newsletter",
	Short:   "Weekly AI briefing pipeline",
	Long:    "newsletter collects, verifies, deduplicates, scores, and assembles AI developments into a periodic briefing.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys commonly live in a local .env during development.
		_ = godotenv.Load()

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
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(qualityCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsletter", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/ai-newsletter/",
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
		fmt.Println("Edit it to configure sections, feeds, and API key environment variables.")
		return nil
	},
}

// --- run command ---

var (
	runDryRun    bool
	runSinceDays int
	runDate      string
	runLang      string
	runOutDir    string
	runMaxPer    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> verify -> dedup -> extract -> summarize -> assemble",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if runSinceDays > 0 {
			cfg.Run.Days = runSinceDays
		}
		if runLang != "" {
			cfg.Run.Language = runLang
		}
		if runMaxPer > 0 {
			cfg.Search.MaxResults = runMaxPer
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		assembler := buildAssembler(quality.NewTracker(db))
		assembler.RunDate = runDate
		assembler.DryRun = runDryRun

		result := assembler.Run(context.Background())

		mdPath, htmlPath, err := writeOutputs(result)
		if err != nil {
			return err
		}

		if !runDryRun {
			if err := db.SaveRun(result); err != nil {
				return fmt.Errorf("archiving run: %w", err)
			}
		}

		items := 0
		for _, s := range result.Sections {
			items += len(s.Items)
		}
		fmt.Printf("Run %s complete: %d sections, %d items.\n", result.RunDate, len(result.Sections), items)
		for _, w := range result.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("Wrote %s and %s\n", mdPath, htmlPath)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Run the pipeline without archiving or recording quality scores")
	runCmd.Flags().IntVar(&runSinceDays, "since-days", 0, "Override lookback window (days)")
	runCmd.Flags().StringVar(&runDate, "date", "", "Override run date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runLang, "lang", "", "Override output language")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "", "Output directory for rendered documents")
	runCmd.Flags().IntVar(&runMaxPer, "max-per-stream", 0, "Override per-source result cap")
}

// --- section command ---

var sectionDays int

var sectionCmd = &cobra.Command{
	Use:   "section [key]",
	Short: "Run the pipeline for a single section and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		key := args[0]
		if cfg.Section(key) == nil {
			return fmt.Errorf("unknown section %q; valid keys: %v", key, cfg.SectionKeys())
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		assembler := buildAssembler(quality.NewTracker(db))
		assembler.DryRun = true

		result := assembler.RunSectionDays(context.Background(), key, sectionDays,
			dedup.NewState(cfg.Dedup.TitleThreshold))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	sectionCmd.Flags().IntVar(&sectionDays, "days", 0, "Override lookback window (days)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		tracker := quality.NewTracker(db)
		assembler := buildAssembler(tracker)
		assembler.DryRun = true

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, assembler, tracker)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on")
}

// --- quality command ---

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Show per-domain source quality scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats := quality.NewTracker(db).DomainStats()
		if len(stats) == 0 {
			fmt.Println("No quality history yet. Run the pipeline first.")
			return nil
		}

		domains := make([]string, 0, len(stats))
		for d := range stats {
			domains = append(domains, d)
		}
		sort.Slice(domains, func(i, j int) bool {
			return stats[domains[i]].AvgScore > stats[domains[j]].AvgScore
		})

		fmt.Printf("%-40s %8s %6s %6s\n", "DOMAIN", "AVG", "N", "BOOST")
		for _, d := range domains {
			st := stats[d]
			fmt.Printf("%-40s %8.2f %6d %6.2f\n", d, st.AvgScore, st.Count, st.Boost)
		}
		return nil
	},
}

// --- runs / show commands ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived run dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		dates, err := db.RunDates()
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Println("No archived runs.")
			return nil
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Re-render an archived run as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		byKey, err := db.GetRunItems(args[0])
		if err != nil {
			return err
		}
		if len(byKey) == 0 {
			return fmt.Errorf("no archived run for %s", args[0])
		}

		run := &newsletter.RunResult{RunDate: args[0], Language: cfg.Run.Language}
		var all []newsletter.SummaryItem
		for _, key := range cfg.SectionKeys() {
			run.Sections = append(run.Sections, newsletter.SectionResult{
				Key:   key,
				State: newsletter.StateDone,
				Items: byKey[key],
			})
			all = append(all, byKey[key]...)
		}
		run.Lead = section.TopItems(all, cfg.Run.TopItems)

		fmt.Print(render.Markdown(run, sectionNames()))
		return nil
	},
}

// buildAssembler wires the source registry and the pipeline stages from the
// loaded config.
func buildAssembler(tracker *quality.Tracker) *section.Assembler {
	registry := source.Registry{}
	registry.Register(source.NewFeedAdapter())
	registry.Register(source.NewHNAdapter("", runMaxPer))
	registry.Register(source.NewProductHuntAdapter("", runMaxPer))
	registry.Register(source.NewArxivAdapter(""))
	if cfg.Search.Enabled {
		registry.Register(source.NewSearchAdapter(
			os.Getenv(cfg.Search.APIKeyEnv), cfg.Search.BaseURL, cfg.Search.MaxResults))
	}

	collector := collect.New(registry)
	verifier := verify.New(
		time.Duration(cfg.Fetch.VerifyTimeoutSeconds)*time.Second, cfg.Fetch.Concurrency)
	extractor := extract.New(
		time.Duration(cfg.Fetch.ExtractTimeoutSeconds)*time.Second, cfg.Fetch.MaxTextLen, cfg.Fetch.Concurrency)

	provider := llm.NewClient(cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKeyEnv)
	policy := summarize.Policy{
		MaxAttempts: cfg.LLM.MaxAttempts,
		BaseDelay:   time.Duration(cfg.LLM.BackoffSeconds) * time.Second,
		Cooldown:    time.Duration(cfg.LLM.CooldownSeconds) * time.Second,
	}
	summarizer := summarize.New(provider, policy, cfg.Run.Language)

	return section.New(cfg, collector, verifier, extractor, summarizer, tracker)
}

func writeOutputs(run *newsletter.RunResult) (mdPath, htmlPath string, err error) {
	outDir := runOutDir
	if outDir == "" {
		outDir = cfg.Output.OutDir
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating output directory: %w", err)
	}

	names := sectionNames()
	md := render.Markdown(run, names)
	html, err := render.HTML(run, names)
	if err != nil {
		return "", "", fmt.Errorf("rendering HTML: %w", err)
	}

	mdPath = filepath.Join(outDir, fmt.Sprintf("newsletter-%s.md", run.RunDate))
	htmlPath = filepath.Join(outDir, fmt.Sprintf("newsletter-%s.html", run.RunDate))
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("writing markdown: %w", err)
	}
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", "", fmt.Errorf("writing html: %w", err)
	}
	return mdPath, htmlPath, nil
}

func sectionNames() map[string]string {
	names := make(map[string]string, len(cfg.Sections))
	for _, s := range cfg.Sections {
		names[s.Key] = s.Name
	}
	return names
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "newsletter.db"))
}
