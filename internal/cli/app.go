package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resumescore/internal/ai"
	"resumescore/internal/auth"
	"resumescore/internal/common"
	"resumescore/internal/config"
	"resumescore/internal/errors"
	"resumescore/internal/model"
	"resumescore/internal/observability"
	"resumescore/internal/scoring"
)

// addOutputFlags registers the -o and --format flags shared by report commands
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveOutputFormat applies the configured default and checks the format is supported
func resolveOutputFormat(cmd *cobra.Command, cc *common.CommandConfig) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	cc.OutputFormat = common.NormalizeFormat(cc.OutputFormat)
	return common.ValidateOutputFormat(cc.OutputFormat, cfg.App.SupportedFormats)
}

// jobDescriptionFlags selects the optional job description of score and batch
type jobDescriptionFlags struct {
	file string
	text string
}

func (f *jobDescriptionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "jd", "", "Job description file (.txt, .md, .pdf, .docx, .html)")
	cmd.Flags().StringVar(&f.text, "jd-text", "", "Job description text")
	cmd.MarkFlagsMutuallyExclusive("jd", "jd-text")
}

// read returns the job description, or "" for an audit
func (f *jobDescriptionFlags) read(fp *common.FileProcessor) (string, error) {
	if f.file != "" {
		return fp.ReadDocument(f.file)
	}
	return strings.TrimSpace(f.text), nil
}

// newEngine builds the scoring engine over the configured model artifacts
func newEngine(cfg *config.Config, logger *errors.Logger, opts ...model.StoreOption) (*scoring.Engine, *model.Store) {
	store := model.NewStore(cfg.Model, logger, opts...)
	return scoring.NewEngine(store), store
}

// newAdvisor returns nil when the advisor is disabled
func newAdvisor(ctx context.Context, cfg *config.Config, logger *errors.Logger, om *observability.Manager) (*ai.Advisor, error) {
	if !cfg.AI.Enabled {
		return nil, nil
	}
	advisor, err := ai.NewAdvisor(ctx, cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat advisor: %w", err)
	}
	if om != nil {
		advisor.Instrument(om.Metrics(), om.Tracer("resumescore.ai"))
	}
	return advisor, nil
}

// newAccounts builds the account service. Without a configured secret a random one is used,
// which invalidates every token on restart.
func newAccounts(cfg *config.Config, users auth.UserStore, logger *errors.Logger) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid bcrypt cost", err)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secret, err = auth.RandomSecret(); err != nil {
			return nil, err
		}
		logger.Warn("auth.jwtSecret is not set, using a random secret; tokens will not survive a restart")
	}

	tokens, err := auth.NewTokenService(secret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}
	return auth.NewService(users, hasher, tokens, logger), nil
}
