package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"resumescore/internal/builder"
	"resumescore/internal/common"
	"resumescore/internal/errors"
	"resumescore/internal/types"
)

var buildCmd = &cobra.Command{
	Use:   "build [draft.json]",
	Short: "Render a resume draft into an ATS-friendly PDF",
	Long: `Render a JSON resume draft into a single-column A4 PDF.

The draft uses the fields fullName, email, phone, location, summary, experience,
projects, education, skills, certifications and achievements. Multi-line fields
hold one entry per line; lines starting with '-' or '*' are indented as bullets.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var buildOutput string

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "resume.pdf", "PDF file to write")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	if err := fp.ValidateOutputFile(buildOutput); err != nil {
		return err
	}

	data, err := fp.ReadFile(args[0])
	if err != nil {
		return err
	}
	var draft types.ResumeDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a resume draft", args[0]), err)
	}

	pdf, err := builder.New().RenderBytes(draft)
	if err != nil {
		return err
	}
	if err := fp.WriteFile(buildOutput, pdf); err != nil {
		return err
	}

	logger.Info("Resume rendered", "file", buildOutput, "bytes", len(pdf))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", buildOutput)
	return err
}
