package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-enhancer/internal/agent"
	"github.com/jonathan/resume-enhancer/internal/cache"
	"github.com/jonathan/resume-enhancer/internal/ingestion"
	"github.com/jonathan/resume-enhancer/internal/llm"
	"github.com/jonathan/resume-enhancer/internal/logging"
	"github.com/jonathan/resume-enhancer/internal/observability"
	"github.com/jonathan/resume-enhancer/internal/parsing"
	"github.com/jonathan/resume-enhancer/internal/types"
)

// DefaultParseConcurrency bounds how many files are parsed at once
const DefaultParseConcurrency = 4

var parseCmd = &cobra.Command{
	Use:   "parse FILE...",
	Short: "Parse resume files locally",
	Long: `Extracts and structures each resume file without starting the server.
Each successful result is written next to its input (or to --out) as <name>.parsed.json.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

var (
	parseOutDir      string
	parseConcurrency int
	parseNoLLM       bool
	parseVerbose     bool
)

func init() {
	parseCmd.Flags().StringVarP(&parseOutDir, "out", "o", "", "Directory for .parsed.json files (default: next to each input)")
	parseCmd.Flags().IntVarP(&parseConcurrency, "concurrency", "j", DefaultParseConcurrency, "Maximum files parsed at once")
	parseCmd.Flags().BoolVar(&parseNoLLM, "no-llm", false, "Skip the language model and use heuristic parsing only")
	parseCmd.Flags().BoolVarP(&parseVerbose, "verbose", "v", false, "Print the agent activity log for each file")

	rootCmd.AddCommand(parseCmd)
}

// parseOutcome is the result for one input file
type parseOutcome struct {
	path       string
	outPath    string
	resp       types.AgentResponse
	activities []types.AgentActivity
}

func runParse(cmd *cobra.Command, args []string) error {
	if parseConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", parseConcurrency)
	}

	var client llm.Client
	if !parseNoLLM {
		c, err := newLLMClient(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		if c == nil {
			logging.Logger.Warn().Msg("GEMINI_API_KEY not set, using fallback parsing")
		} else {
			client = c
			defer func() { _ = c.Close() }()
		}
	}

	if parseOutDir != "" {
		if err := os.MkdirAll(parseOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	opts := structuringOptions(appConfig)
	outPaths := parsedOutputPaths(args, parseOutDir)
	results := cache.NewMemoryCache()
	outcomes := make([]parseOutcome, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parseConcurrency)
	for i, path := range args {
		g.Go(func() error {
			outcome, err := parseFile(ctx, path, outPaths[i], client, results, opts)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	waitErr := g.Wait()

	printer := observability.NewPrinter(cmd.OutOrStdout())
	failed := 0
	for _, o := range outcomes {
		if o.path == "" {
			continue
		}
		printer.PrintEnvelope(filepath.Base(o.path), o.resp)
		if o.resp.Success {
			printer.PrintParsedResume(o.resp.Data)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", o.outPath)
		} else {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "Error: %s\n", o.resp.Error)
		}
		if parseVerbose {
			printer.PrintActivities(o.activities)
		}
	}

	if waitErr != nil {
		return waitErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(args))
	}
	return nil
}

// parseFile runs one fresh agent over path and writes the result to outPath.
// Parse failures are reported in the outcome; only I/O errors are returned,
// and they stop the whole batch.
func parseFile(ctx context.Context, path, outPath string, client llm.Client, results cache.Cache, opts parsing.Options) (parseOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parseOutcome{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc := ingestion.Document{
		Name:     filepath.Base(path),
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
		Data:     data,
	}

	logger := logging.Logger.With().Str("file", doc.Name).Logger()
	parser := agent.NewResumeParserAgent(agent.Deps{
		Client:      client,
		Cache:       results,
		Logger:      &logger,
		Structuring: opts,
	})
	resp := parser.Execute(ctx, doc)

	outcome := parseOutcome{path: path, resp: resp, activities: parser.Activities()}
	if !resp.Success {
		return outcome, nil
	}

	outcome.outPath = outPath
	body, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		return parseOutcome{}, fmt.Errorf("failed to marshal result for %s: %w", path, err)
	}
	if err := os.WriteFile(outcome.outPath, body, 0644); err != nil {
		return parseOutcome{}, fmt.Errorf("failed to write %s: %w", outcome.outPath, err)
	}
	return outcome, nil
}

// parsedOutputPath returns <dir>/<name>.parsed.json, dir defaulting to the input's directory
func parsedOutputPath(input, outDir string) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, name+".parsed.json")
}

// parsedOutputPaths maps each input to its output path. Inputs that would land
// on the same file get a -2, -3, ... suffix in argument order.
func parsedOutputPaths(inputs []string, outDir string) []string {
	out := make([]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		path := parsedOutputPath(input, outDir)
		base := strings.TrimSuffix(path, ".parsed.json")
		for n := 2; taken[path]; n++ {
			path = fmt.Sprintf("%s-%d.parsed.json", base, n)
		}
		taken[path] = true
		out[i] = path
	}
	return out
}
