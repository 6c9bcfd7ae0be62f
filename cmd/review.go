package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/diffreview/internal/config"
	"github.com/diffreview/internal/review"
)

// ReviewCommand returns the review command: run the active strategy over a
// unified diff read from a file or stdin.
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Annotate a unified diff with the configured strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "diff",
				Aliases: []string{"f"},
				Usage:   "Path to a unified diff file (defaults to stdin)",
			},
			&cli.StringFlag{
				Name:  "responses-dir",
				Usage: "Directory of canned model responses keyed by prompt hash",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Override the configured strategy id",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit per-file annotations as JSON on stdout",
			},
		},
		Action: runReview,
	}
}

// CompareCommand returns the compare command: run every strategy against the
// same diff for side-by-side evaluation of the wire formats.
func CompareCommand() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Run all strategies against one diff and persist prompts/responses per strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "diff",
				Aliases: []string{"f"},
				Usage:   "Path to a unified diff file (defaults to stdin)",
			},
			&cli.StringFlag{
				Name:  "responses-dir",
				Usage: "Directory of canned model responses keyed by prompt hash",
			},
		},
		Action: runCompare,
	}
}

func runReview(c *cli.Context) error {
	opts, err := loadOptions(c)
	if err != nil {
		return err
	}

	fullDiff, err := readDiff(c.String("diff"))
	if err != nil {
		return err
	}

	runner := review.NewRunner(opts, log.Logger)
	results, err := runner.ReviewDiff(c.Context, fullDiff, replayModel(c.String("responses-dir")))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	for _, result := range results {
		if result.Err != nil {
			fmt.Printf("%s: error: %v\n", result.FilePath, result.Err)
			continue
		}
		fmt.Printf("%s: %d annotation(s)\n", result.FilePath, len(result.Annotations))
		for _, a := range result.Annotations {
			fmt.Printf("  [%.2f] %s\n", a.ShouldBeReviewedScore, a.LineContent)
		}
	}

	return nil
}

func runCompare(c *cli.Context) error {
	opts, err := loadOptions(c)
	if err != nil {
		return err
	}

	fullDiff, err := readDiff(c.String("diff"))
	if err != nil {
		return err
	}

	runner := review.NewRunner(opts, log.Logger)
	byStrategy, err := runner.Compare(c.Context, fullDiff, replayModel(c.String("responses-dir")))
	if err != nil {
		return err
	}

	for _, id := range config.StrategyIDs {
		results := byStrategy[id]
		total := 0
		failed := 0
		for _, result := range results {
			total += len(result.Annotations)
			if result.Err != nil {
				failed++
			}
		}
		fmt.Printf("%-18s %d annotation(s), %d file error(s)\n", id, total, failed)
	}

	return nil
}

func loadOptions(c *cli.Context) (*config.Options, error) {
	opts, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if override := c.String("strategy"); override != "" {
		opts.Strategy = override
		if err := config.Validate(opts); err != nil {
			return nil, err
		}
	}

	return opts, nil
}

func readDiff(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read diff from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read diff file: %w", err)
	}
	return string(data), nil
}

// replayModel returns a ModelFunc that replays canned responses from a
// directory, keyed by a short hash of the prompt. This keeps the binary free
// of model API calls; live invocation belongs to an external driver. Without
// a responses directory the model returns an empty response, which still
// exercises the full prepare/process pipeline and artifact layout.
func replayModel(dir string) review.ModelFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		if dir == "" {
			return "", nil
		}

		sum := sha256.Sum256([]byte(prompt))
		path := filepath.Join(dir, hex.EncodeToString(sum[:])[:12]+".txt")

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("no canned response at %s: %w", path, err)
		}
		return string(data), nil
	}
}
