package cli

import (
	"path/filepath"

	"kandrai/internal/common"
	"kandrai/internal/extract"
	"kandrai/internal/formatters"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract plain text from a .txt, .pdf or .docx file",
	Long: `Extract plain text from a local document. .txt and .pdf follow the same
rules as POST /extract: PDF pages are joined with newlines and a PDF with no text
layer is rejected. .docx files, which the API leaves to the front-end, are
converted here one line per paragraph. Markdown is printed as is.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		format, err := common.ResolveFormat(extractConfig.OutputFormat, "text", cfg.App.SupportedFormats)
		if err != nil {
			return err
		}
		extractConfig.OutputFormat = format
		return nil
	},
	RunE: runExtract,
}

var extractConfig common.CommandConfig

func init() {
	extractCmd.Flags().StringVarP(&extractConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().StringVar(&extractConfig.OutputFormat, "format", "", "Output format: text, json, or markdown (default: text)")

	_ = extractCmd.RegisterFlagCompletionFunc("format", formatCompletion)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandEnv(cmd)
	if err != nil {
		return err
	}

	files := common.NewFileProcessor(extract.New(logger), cfg.Server.MaxRequestSize, logger)
	output := common.NewOutputHandler(files, logger).WithStdout(cmd.OutOrStdout())

	text, err := files.ReadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	logger.Info("Text extracted", "file", args[0], "text_length", len(text))

	return output.HandleOutput(formatters.ExtractedText{
		Source: filepath.Base(args[0]),
		Text:   text,
	}, extractConfig)
}
