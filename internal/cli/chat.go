package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"resumescore/internal/assistant"
	"resumescore/internal/common"
	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

var chatCmd = &cobra.Command{
	Use:   "chat [report.json]",
	Short: "Ask the assistant about a saved score report",
	Long: `Answer a question about a report written by 'score --format json'.

Known topics (top 3 fixes, weakest area, metrics, tailoring, summary, layout)
are answered from the report. Other questions go to the AI advisor when it is
enabled. Without --message an interactive topic picker is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

var (
	chatMessage string
	chatJSON    bool
)

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Question to ask (default: pick a topic interactively)")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "Print the reply as JSON")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	fp := common.NewFileProcessor(logger, cfg.App.MaxFileSize)
	data, err := fp.ReadFile(args[0])
	if err != nil {
		return err
	}
	result, err := scoring.DecodeResult(data)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("%s is not a score report", args[0]), err)
	}

	message := chatMessage
	if message == "" {
		if message, err = pickTopic(cmd); err != nil {
			return err
		}
	}

	advisor, err := newAdvisor(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	var asst *assistant.Assistant
	if advisor != nil {
		defer func() {
			_ = advisor.Close()
		}()
		asst = assistant.New(advisor, logger)
	} else {
		asst = assistant.New(nil, logger)
	}

	reply := asst.Reply(cmd.Context(), message, result)
	return writeReply(cmd.OutOrStdout(), reply, chatJSON)
}

// pickTopic shows the suggested questions and returns the chosen one's message
func pickTopic(cmd *cobra.Command) (string, error) {
	labels := make([]string, len(assistant.Topics))
	for i, t := range assistant.Topics {
		labels[i] = t.Label
	}

	prompt := promptui.Select{
		Label:  "What would you like to know",
		Items:  labels,
		Stdin:  io.NopCloser(cmd.InOrStdin()),
		Stdout: nopWriteCloser{cmd.ErrOrStderr()},
	}
	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("topic selection cancelled: %w", err)
	}
	return assistant.Topics[i].Message, nil
}

func writeReply(w io.Writer, reply assistant.Reply, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	_, err := fmt.Fprintln(w, reply.Text)
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
