package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/discovery"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pipeline"
)

var (
	qualifyFile   string
	qualifyQuery  string
	qualifyRubric string
	qualifyLimit  int
	noVision      bool
)

var qualifyCmd = &cobra.Command{
	Use:   "qualify",
	Short: "Qualify a batch of candidate companies",
	Long:  "Reads candidates from a JSON file or discovers them via a search query, scores each against the rubric, and prints events as JSON lines.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("qualify"); err != nil {
			return err
		}
		if (qualifyFile == "") == (qualifyQuery == "") {
			return eris.New("exactly one of --file or --query is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newAppEnv(cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		candidates, err := loadCandidates(cmd)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return eris.New("no candidates to qualify")
		}

		enc := json.NewEncoder(os.Stdout)
		sink := pipeline.SinkFunc(func(e pipeline.Event) {
			if err := enc.Encode(e); err != nil {
				zap.L().Warn("encode event", zap.Error(err))
			}
		})

		o, err := env.newOrchestrator(qualifyRubric, sink)
		if err != nil {
			return err
		}

		stats, err := o.Run(ctx, candidates, !noVision && cfg.Qualify.UseVision)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("batch complete",
			zap.Int("total", stats.Total),
			zap.Int("top", stats.Top),
			zap.Int("review", stats.Review),
			zap.Int("rejected", stats.Rejected),
			zap.Int("failed", stats.Failed),
			zap.Int("enriched", stats.Enriched),
		)
		return nil
	},
}

func loadCandidates(cmd *cobra.Command) ([]model.Candidate, error) {
	if qualifyQuery != "" {
		client := discovery.NewClient(cfg.Discovery.Key,
			discovery.WithBaseURL(cfg.Discovery.BaseURL))
		limit := qualifyLimit
		if limit == 0 {
			limit = cfg.Discovery.Limit
		}
		return client.Search(cmd.Context(), qualifyQuery,
			discovery.WithLimit(limit),
			discovery.WithCategory("company"),
			discovery.WithExcludeDomains(cfg.Discovery.ExcludeDomains...))
	}

	data, err := os.ReadFile(qualifyFile)
	if err != nil {
		return nil, eris.Wrap(err, "read candidates file")
	}
	var candidates []model.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, eris.Wrap(err, "parse candidates file")
	}
	for i := range candidates {
		if candidates[i].Domain == "" {
			candidates[i].Domain = model.DomainOf(candidates[i].URL)
		}
	}
	// highest-signal candidates surface first
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	return candidates, nil
}

func init() {
	qualifyCmd.Flags().StringVar(&qualifyFile, "file", "", "JSON file of candidates")
	qualifyCmd.Flags().StringVar(&qualifyQuery, "query", "", "discovery search query")
	qualifyCmd.Flags().StringVar(&qualifyRubric, "rubric", "", "fit criteria (default built-in rubric)")
	qualifyCmd.Flags().IntVar(&qualifyLimit, "limit", 0, "max candidates from discovery (default from config)")
	qualifyCmd.Flags().BoolVar(&noVision, "no-vision", false, "disable screenshot-assisted scoring")
	rootCmd.AddCommand(qualifyCmd)
}
