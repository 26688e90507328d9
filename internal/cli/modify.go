package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvalign/internal/common"
	"cvalign/internal/errors"
	"cvalign/internal/llm"
	"cvalign/internal/recovery"
	"cvalign/internal/render"
	"cvalign/internal/types"

	"github.com/spf13/cobra"
)

var modifyCmd = &cobra.Command{
	Use:   "modify [cv-file] [job-post-file]",
	Short: "Rewrite a CV to align with a specific job post",
	Long: `Rewrite an existing CV to align with a specific job post using a chat model.
The command takes two arguments: the path to your CV (PDF or DOCX) and the
path to the job post text file. The result is a LaTeX document; pass --pdf
to also compile it with pdflatex.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if modifyConfig.OutputFormat == "" {
			modifyConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(modifyConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runModify,
}

var (
	modifyConfig common.CommandConfig
	modifyAsPDF  bool
)

func init() {
	modifyCmd.Flags().StringVarP(&modifyConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	modifyCmd.Flags().StringVar(&modifyConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	modifyCmd.Flags().BoolVar(&modifyAsPDF, "pdf", false, "Also compile the result with pdflatex")

	// Add completion for format flag
	_ = modifyCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runModify(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	template, err := cfg.LoadTemplate()
	if err != nil {
		return fmt.Errorf("failed to load LaTeX template: %w", err)
	}

	// Create model service for the modify operation
	modifyLLMConfig := cfg.GetModifyConfig()
	service, err := llm.NewService(&modifyLLMConfig, "modify", logger)
	if err != nil {
		return fmt.Errorf("failed to create model service: %w", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warn("Failed to close model service", "error", err)
		}
	}()

	logDetails := func(input common.DocumentInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting CV alignment",
			"cv_chars", len(input.CVText),
			"job_chars", len(input.JobText),
			"as_pdf", modifyAsPDF,
			"output_format", cmdCfg.OutputFormat)
	}

	modifyOperation := func(ctx context.Context, input common.DocumentInput) (types.ModifyCVOutput, *llm.TokenUsage, error) {
		systemPrompt, userPrompt := llm.BuildModifyPrompt(&modifyLLMConfig, template, input.JobText, input.CVText)

		reply, tokenUsage, err := service.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			return types.ModifyCVOutput{}, tokenUsage, err
		}

		latex := recovery.ExtractLaTeX(reply)
		now := time.Now()
		texName := render.ArtifactName(input.Filename, "tex", now)
		writeArtifact(logger, cfg.Output.ProcessedDir, texName, []byte(latex))

		if modifyAsPDF {
			renderer := render.NewRenderer(cfg.Output.PdflatexPath, cfg.Output.RenderTimeout, logger)
			pdfBytes, renderErr := renderer.RenderPDF(ctx, latex)
			if renderErr != nil {
				return types.ModifyCVOutput{}, tokenUsage, renderErr
			}
			pdfName := render.ArtifactName(input.Filename, "pdf", now)
			writeArtifact(logger, cfg.Output.OutputsDir, pdfName, pdfBytes)
			logger.Info("PDF rendered", "file", filepath.Join(cfg.Output.OutputsDir, pdfName))
		}

		return types.ModifyCVOutput{
			Message:    "CV modified successfully",
			Filename:   texName,
			ModifiedCV: latex,
		}, tokenUsage, nil
	}

	err = common.RunLLMCommand(
		cmd.Context(),
		logger,
		modifyConfig,
		args[0], args[1],
		modifyOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to modify CV: %w", err)
	}
	logger.Info("CV alignment completed successfully")
	return nil
}

// writeArtifact saves a build artifact, logging failures without aborting.
func writeArtifact(logger *errors.Logger, dir, name string, data []byte) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("Failed to create artifact directory", "dir", dir, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		logger.Warn("Failed to save artifact", "file", name, "error", err)
	}
}
