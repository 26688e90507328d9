package cli

import (
	"context"
	"fmt"

	"cvalign/internal/common"
	"cvalign/internal/errors"
	"cvalign/internal/llm"
	"cvalign/internal/recovery"
	"cvalign/internal/types"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [cv-file] [job-description-file]",
	Short: "Score a CV against a job description",
	Long: `Score an existing CV (PDF or DOCX) against a job description using a chat model.
The result is four 0-100 alignment dimensions: fair match, experience level,
skill, and industry experience.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if scoreConfig.OutputFormat == "" {
			scoreConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(scoreConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runScore,
}

var scoreConfig common.CommandConfig

func init() {
	scoreCmd.Flags().StringVarP(&scoreConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	scoreCmd.Flags().StringVar(&scoreConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = scoreCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Create model service for the score operation
	scoreLLMConfig := cfg.GetScoreConfig()
	service, err := llm.NewService(&scoreLLMConfig, "score", logger)
	if err != nil {
		return fmt.Errorf("failed to create model service: %w", err)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Warn("Failed to close model service", "error", err)
		}
	}()

	logDetails := func(input common.DocumentInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting CV scoring",
			"cv_chars", len(input.CVText),
			"job_chars", len(input.JobText),
			"output_format", cmdCfg.OutputFormat)
	}

	scoreOperation := func(ctx context.Context, input common.DocumentInput) (types.AlignmentScores, *llm.TokenUsage, error) {
		systemPrompt, userPrompt := llm.BuildScorePrompt(&scoreLLMConfig, input.JobText, input.CVText)

		reply, tokenUsage, err := service.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			return types.AlignmentScores{}, tokenUsage, err
		}

		scores, fail := recovery.RecoverScores(reply)
		if fail != nil {
			return types.AlignmentScores{}, tokenUsage, errors.NewRecoveryError(fail.Code,
				"Could not recover alignment scores from the model reply", fail)
		}

		return scores, tokenUsage, nil
	}

	err = common.RunLLMCommand(
		cmd.Context(),
		logger,
		scoreConfig,
		args[0], args[1],
		scoreOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to score CV: %w", err)
	}
	logger.Info("CV scoring completed successfully")
	return nil
}
