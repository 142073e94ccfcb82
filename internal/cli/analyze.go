package cli

import (
	"context"
	"fmt"

	"kandrai/internal/analysis"
	"kandrai/internal/common"
	"kandrai/internal/llm"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --jd FILE --cv FILE",
	Short: "Analyze a candidate against a job description",
	Long: `Analyze a candidate's CV against a job description and print the hiring
report the API returns from POST /analyze.

Both documents may be .txt, .pdf, .docx or markdown files. When either is omitted the
report is the fixed "missing input" analysis and the model is not called.

The report includes:
- Match score with confidence and a blunt assessment
- Executive summary and hiring recommendation
- Evidence, skill gaps and upskilling plans
- Interview questions and red flags to verify`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := common.ResolveFormat(analyzeConfig.OutputFormat, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		analyzeConfig.OutputFormat = format

		role, err := common.ValidateRole(analyzeOpts.role)
		if err != nil {
			return err
		}
		analyzeOpts.role = string(role)
		return nil
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

var analyzeOpts struct {
	jdFile string
	cvFile string
	role   string
	doubt  string
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOpts.jdFile, "jd", "", "Job description file (.txt, .pdf, .docx or .md)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.cvFile, "cv", "", "Candidate CV file (.txt, .pdf, .docx or .md)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.role, "role", string(analysis.RoleRecruiter), "Report perspective: recruiter or candidate")
	analyzeCmd.Flags().StringVar(&analyzeOpts.doubt, "doubt", "", "A specific concern the report should address")
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", formatCompletion)
	_ = analyzeCmd.RegisterFlagCompletionFunc("role", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(analysis.RoleRecruiter), string(analysis.RoleCandidate)}, cobra.ShellCompDirectiveNoFileComp
	})
}

func formatCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveError
	}
	return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}

	svc := buildServices(cfg, nil, logger)
	files := common.NewFileProcessor(svc.Extractor, cfg.Server.MaxRequestSize, logger)
	runner := common.NewCommandRunner(files, logger)
	runner.Output.WithStdout(cmd.OutOrStdout())

	createInput := func(texts []string) (analysis.Request, error) {
		if len(texts) != 2 {
			return analysis.Request{}, fmt.Errorf("expected 2 documents, got %d", len(texts))
		}
		return analysis.Request{
			Role:           analysis.Role(analyzeOpts.role),
			JobDescription: texts[0],
			CandidateText:  texts[1],
			RecruiterDoubt: analyzeOpts.doubt,
		}, nil
	}

	analyze := func(ctx context.Context, req analysis.Request) (analysis.Result, *llm.TokenUsage, error) {
		outcome, err := svc.Analyzer.Analyze(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		if outcome.Fallback {
			logger.Warn("Inputs missing, returning fallback analysis", "missing_inputs", outcome.Missing)
		}
		return outcome.Result, outcome.Usage, nil
	}

	logDetails := func(req analysis.Request, cmdCfg common.CommandConfig) {
		logger.Info("Analyzing candidate",
			"role", req.Role,
			"job_description_length", len(req.JobDescription),
			"candidate_text_length", len(req.CandidateText),
			"provider", svc.Accessor.ProviderName(),
			"model", svc.Accessor.Model(),
			"format", cmdCfg.OutputFormat)
	}

	return common.RunAICommand(cmd.Context(), runner, analyzeConfig,
		[]string{analyzeOpts.jdFile, analyzeOpts.cvFile},
		createInput, analyze, logDetails)
}
