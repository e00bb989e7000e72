package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-enhancer/internal/rendering"
	"github.com/jonathan/resume-enhancer/internal/schemas"
	"github.com/jonathan/resume-enhancer/internal/types"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE.parsed.json",
	Short: "Render a parsed resume as plain text",
	Long:  "Validates a ParsedResume JSON file against the schema and renders it as a plain-text resume.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportOutputFile string

func init() {
	exportCmd.Flags().StringVarP(&exportOutputFile, "out", "o", "", "Path to output text file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := schemas.ValidateParsedResumeFile(path); err != nil {
		return fmt.Errorf("invalid parsed resume: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read parsed resume: %w", err)
	}
	var resume types.ParsedResume
	if err := json.Unmarshal(content, &resume); err != nil {
		return fmt.Errorf("failed to unmarshal parsed resume: %w", err)
	}
	resume.EnsureSlices()

	text, err := rendering.RenderText(&resume)
	if err != nil {
		return err
	}

	if exportOutputFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}

	if dir := filepath.Dir(exportOutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(exportOutputFile, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", exportOutputFile)
	return nil
}
