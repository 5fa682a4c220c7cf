package cli

import (
	"cmp"
	"context"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"resumescore/internal/common"
	"resumescore/internal/errors"
	"resumescore/internal/extract"
	"resumescore/internal/scoring"
	"resumescore/internal/types"
	"resumescore/internal/utils"
)

var batchCmd = &cobra.Command{
	Use:   "batch [resume-files or directories...]",
	Short: "Score many resumes against one job description and rank them",
	Long: `Score every resume given as a file, glob or directory and print them ranked
by score, highest first. Directories contribute their supported files.
Resumes that fail to read are listed after the ranking with their error.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return resolveOutputFormat(cmd, &batchConfig)
	},
	RunE: runBatch,
}

var (
	batchConfig      common.CommandConfig
	batchJD          jobDescriptionFlags
	batchConcurrency int
)

func init() {
	addOutputFlags(batchCmd, &batchConfig)
	batchJD.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", runtime.NumCPU(), "Resumes scored in parallel")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	files, err := utils.ExpandInputs(args, extract.IsSupported)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidInput, "Invalid resume list", err)
	}

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	engine, store := newEngine(cfg, logger)

	handler := common.NewOutputHandler(logger)
	handler.SetOutput(cmd.OutOrStdout())

	return common.RunCommand(cmd.Context(), logger, handler, batchConfig,
		func(ctx context.Context) ([]types.BatchItem, error) {
			jobDescription, err := batchJD.read(fp)
			if err != nil {
				return nil, err
			}
			// fail once up front instead of once per resume
			if err := store.Ready(); err != nil {
				return nil, err
			}

			logger.Info("Scoring batch", "resumes", len(files), "mode", modeFor(jobDescription))
			return scoreBatch(ctx, engine, fp, files, jobDescription, batchConcurrency)
		})
}

// scoreBatch scores files concurrently and ranks them
func scoreBatch(ctx context.Context, engine *scoring.Engine, fp *common.FileProcessor, files []string, jobDescription string, concurrency int) ([]types.BatchItem, error) {
	items := make([]types.BatchItem, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := types.BatchItem{File: filepath.Clean(file)}
			resume, err := fp.ReadDocument(file)
			if err == nil {
				item.Result, err = engine.Score(resume, jobDescription)
			}
			if err != nil {
				item.Result = nil
				item.Error = errorMessage(err)
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rankBatch(items)
	return items, nil
}

// rankBatch sorts scored items by score, highest first, then failures. Ties keep file order.
func rankBatch(items []types.BatchItem) {
	slices.SortStableFunc(items, func(a, b types.BatchItem) int {
		switch {
		case a.Result == nil && b.Result == nil:
			return 0
		case a.Result == nil:
			return 1
		case b.Result == nil:
			return -1
		}
		return cmp.Compare(b.Result.Base().Score, a.Result.Base().Score)
	})
	for i := range items {
		if items[i].Result != nil {
			items[i].Rank = i + 1
		}
	}
}

func errorMessage(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Detail()
	}
	return err.Error()
}
