package cli

import (
	"context"

	"github.com/spf13/cobra"

	"resumescore/internal/common"
	"resumescore/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score [resume-file]",
	Short: "Score a resume, against a job description when one is given",
	Long: `Score a resume file (.pdf, .docx, .html, .txt or .md).

With --jd or --jd-text the resume is matched against the job description:
semantic overlap, missing skills and structure combine into a 0-100 score.
Without a job description the resume is audited on structure, skills,
experience and readability.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutputFormat(cmd, &scoreConfig)
	},
	RunE: runScore,
}

var (
	scoreConfig common.CommandConfig
	scoreJD     jobDescriptionFlags
)

func init() {
	addOutputFlags(scoreCmd, &scoreConfig)
	scoreJD.register(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	engine, _ := newEngine(cfg, logger)

	handler := common.NewOutputHandler(logger)
	handler.SetOutput(cmd.OutOrStdout())

	return common.RunCommand(cmd.Context(), logger, handler, scoreConfig,
		func(ctx context.Context) (scoring.Result, error) {
			resume, err := fp.ReadDocument(args[0])
			if err != nil {
				return nil, err
			}
			jobDescription, err := scoreJD.read(fp)
			if err != nil {
				return nil, err
			}

			logger.Info("Scoring resume",
				"file", args[0],
				"mode", modeFor(jobDescription),
				"format", scoreConfig.OutputFormat)
			return engine.Score(resume, jobDescription)
		})
}

func modeFor(jobDescription string) scoring.Mode {
	if jobDescription == "" {
		return scoring.ModeAudit
	}
	return scoring.ModeMatch
}
