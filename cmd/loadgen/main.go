package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contract-collab-service/internal/tools/common"
	"contract-collab-service/internal/tools/loadgen"
	"contract-collab-service/internal/tools/ui"
)

type options struct {
	baseURL     string
	profile     string
	duration    time.Duration
	rps         int
	concurrency int
	seed        int64
	accessToken string
	documentRef string
	ci          bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate synthetic traffic against a collab coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := execute(opts)
			if opts.ci {
				common.PrintCIResult(err == nil, "loadgen", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "coordinator base URL")
	cmd.Flags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: mixed, health, portal, collab")
	cmd.Flags().DurationVar(&opts.duration, "duration", 30*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&opts.rps, "rps", 20, "target requests per second")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 6, "parallel request workers")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed for target selection")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "bearer token for the collab profile")
	cmd.Flags().StringVar(&opts.documentRef, "document-ref", "", "document reference the collab profile targets")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}

func execute(opts *options) ([]string, error) {
	fn := func(ctx context.Context) ([]string, error) {
		res, err := loadgen.Run(ctx, loadgen.Config{
			BaseURL:     opts.baseURL,
			Profile:     opts.profile,
			Duration:    opts.duration,
			RPS:         opts.rps,
			Concurrency: opts.concurrency,
			Seed:        opts.seed,
			AccessToken: opts.accessToken,
			DocumentRef: opts.documentRef,
		})
		details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures)}
		for class, count := range res.StatusClasses {
			details = append(details, fmt.Sprintf("status %s: %d", class, count))
		}
		return details, err
	}
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.duration+time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run("loadgen "+opts.profile, fn)
}
