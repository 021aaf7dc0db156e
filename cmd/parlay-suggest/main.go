// Package main provides the parlay-suggest command: rank parlay suggestions
// for a batch of selections read as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-parlay/internal/artifact"
	"github.com/yourusername/clever-parlay/internal/config"
	"github.com/yourusername/clever-parlay/internal/logger"
	"github.com/yourusername/clever-parlay/internal/models"
	"github.com/yourusername/clever-parlay/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	inputFile  string
	maxLegs    int
	topK       int
	save       bool
	pretty     bool
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "-", "Request JSON file, - for stdin")
	rootCmd.Flags().IntVar(&maxLegs, "max-legs", models.DefaultMaxLegs, "Maximum legs per combination (overrides the request)")
	rootCmd.Flags().IntVar(&topK, "top-k", models.DefaultTopK, "Number of combinations to return (overrides the request)")
	rootCmd.Flags().BoolVar(&save, "save", false, "Save the result as a timestamped artifact")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")

	rootCmd.AddCommand(latestCmd)
}

var rootCmd = &cobra.Command{
	Use:           "parlay-suggest",
	Short:         "Rank parlay suggestions by expected value",
	Long:          `Reads {"selections": [...], "max_legs": n, "top_k": k} and prints the enriched selections and the top-K parlay combinations ranked by expected value per unit staked.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	RunE: runSuggest,
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recently saved suggestion result",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService()
		result, err := svc.LatestResult()
		if err != nil {
			return err
		}
		return writeResult(cmd.OutOrStdout(), result)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	appLog = logger.NewLoggerForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
	appLog.SetOutput(os.Stderr)
	return nil
}

func newService() *service.SuggestionService {
	store := artifact.NewStore(cfg.Artifacts.OutputDir, artifact.WithLogger(appLog))
	return service.NewSuggestionService(service.SuggestionConfig{
		DefaultMaxLegs: cfg.Parlay.DefaultMaxLegs,
		DefaultTopK:    cfg.Parlay.DefaultTopK,
		MaxLegsLimit:   cfg.Parlay.MaxLegsLimit,
		MaxSelections:  cfg.Parlay.MaxSelections,
		CacheTTL:       cfg.CacheTTL(),
		CacheMaxSize:   cfg.Parlay.CacheMaxSize,
	}, store, appLog)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	req, err := readRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("max-legs") {
		req.MaxLegs = &maxLegs
	}
	if cmd.Flags().Changed("top-k") {
		req.TopK = &topK
	}

	svc := newService()
	resp, err := svc.Suggest(context.Background(), *req)
	if err != nil {
		return err
	}

	if save {
		path, err := svc.SaveResult(resp.Result)
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"request_id": resp.RequestID,
			"path":       path,
		}).Info("Suggestions saved")
	}

	return writeResult(cmd.OutOrStdout(), &resp.Result)
}

func readRequest(stdin io.Reader) (*models.SuggestRequest, error) {
	var r io.Reader = bufio.NewReader(stdin)
	if inputFile != "" && inputFile != "-" {
		f, err := os.Open(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req models.SuggestRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	return &req, nil
}

func writeResult(w io.Writer, result *models.RankedResult) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
