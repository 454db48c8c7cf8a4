package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/justsurfingit/job-tracker/internal/extractor"
	"github.com/justsurfingit/job-tracker/internal/services"
	"github.com/spf13/cobra"
)

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var resumePath, jobPath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a resume against a job description and print the assessment as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			resume, err := readDocument(resumePath)
			if err != nil {
				return fmt.Errorf("reading resume: %w", err)
			}
			job, err := readDocument(jobPath)
			if err != nil {
				return fmt.Errorf("reading job description: %w", err)
			}

			llm, err := services.NewLLMService(cmd.Context(), cfg.LLM, log)
			if err != nil {
				return err
			}
			assessment := llm.NewMatchEngine().ScoreMatch(cmd.Context(), resume, job)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(assessment)
		},
	}

	cmd.Flags().StringVarP(&resumePath, "resume", "r", "", "resume file (pdf, docx or plain text)")
	cmd.Flags().StringVar(&jobPath, "job", "", "job description file (pdf, docx or plain text)")
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// readDocument extracts PDF and DOCX files and reads anything else as text.
func readDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if mimeType := extractor.DetectType("", path); mimeType != "" {
		return extractor.ExtractText(mimeType, f)
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", errors.New("file is empty")
	}
	return text, nil
}
