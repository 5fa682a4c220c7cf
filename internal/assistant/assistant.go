// Package assistant answers follow-up questions about a scoring result. Known topics are
// answered from fixed rules over the result; anything else may be forwarded to an advisor.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"resumescore/internal/errors"
	"resumescore/internal/scoring"
)

// Canned replies.
const (
	ReplyNoResult = "Analysis data missing. Please scan your resume again."
	ReplyReady    = "I'm ready! Select a topic above."
	ReplyMetrics  = "Try this: 'Improved revenue by 20% by implementing X'. Use percentages and currency signs!"
	ReplySummary  = "Keep it short. Mention: [Job Title] + [Top Skill] + [Biggest Accomplishment]."
	ReplyLayout   = "Stick to a single-column layout. Avoid images, charts, and tables inside the resume."

	replyWeakStructure = "Your **Structure** is the weakest point. Standard headings were not detected."
	replyWeakKeywords  = "Your **Keyword Match** is the weakest point. Your skills don't fully match the Job Description."
	replyTailorDone    = "Your keywords match well! Focus on mirroring the action verbs used in the JD."
)

// Source tells where a reply came from.
type Source string

const (
	SourceRules   Source = "rules"
	SourceAdvisor Source = "advisor"
)

// Reply is the assistant's answer.
type Reply struct {
	Text   string `json:"response"`
	Source Source `json:"source"`
}

// Topic is a suggested question.
type Topic struct {
	Label   string
	Message string
}

// Topics are the questions the rules understand, in display order.
var Topics = []Topic{
	{Label: "What are my top 3 fixes?", Message: "top 3"},
	{Label: "What is my weakest area?", Message: "weakest"},
	{Label: "How do I add metrics?", Message: "metrics"},
	{Label: "How do I tailor this resume?", Message: "tailor"},
	{Label: "How should I write my summary?", Message: "summary"},
	{Label: "Is my layout ATS-safe?", Message: "layout"},
}

// Advisor answers free-form questions the rules do not cover.
type Advisor interface {
	Advise(ctx context.Context, question string, result scoring.Result) (string, error)
}

// Assistant produces chat replies.
type Assistant struct {
	advisor Advisor
	logger  *errors.Logger
}

// New creates an assistant. advisor may be nil.
func New(advisor Advisor, logger *errors.Logger) *Assistant {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Assistant{advisor: advisor, logger: logger}
}

// Reply answers message about result. result may be nil when nothing was scored yet.
func (a *Assistant) Reply(ctx context.Context, message string, result scoring.Result) Reply {
	if result == nil {
		return Reply{Text: ReplyNoResult, Source: SourceRules}
	}

	if text, ok := Rules(message, result); ok {
		return Reply{Text: text, Source: SourceRules}
	}

	if a.advisor != nil && strings.TrimSpace(message) != "" {
		text, err := a.advisor.Advise(ctx, message, result)
		if err == nil && strings.TrimSpace(text) != "" {
			return Reply{Text: text, Source: SourceAdvisor}
		}
		if err != nil {
			a.logger.LogError(err, "Advisor failed, using default reply")
		}
	}
	return Reply{Text: ReplyReady, Source: SourceRules}
}

// Rules applies the keyword rules. The first keyword found in the lowercased message wins.
// ok is false when no rule matched.
func Rules(message string, result scoring.Result) (reply string, ok bool) {
	msg := strings.ToLower(message)
	missingSkills := scoring.MissingSkillsOf(result)
	missingSections := result.Base().MissingSections

	switch {
	case strings.Contains(msg, "top 3"):
		var tips []string
		if len(missingSkills) > 0 {
			tips = append(tips, "Add Skills: "+strings.Join(firstN(missingSkills, 2), ", "))
		}
		if len(missingSections) > 0 {
			tips = append(tips, "Add Section: "+missingSections[0])
		}
		tips = append(tips, "Include more numbers and metrics.")
		return "🔑 **Top Fixes:** " + strings.Join(tips, " | "), true

	case strings.Contains(msg, "weakest"):
		if len(missingSections) > 0 {
			return replyWeakStructure, true
		}
		return replyWeakKeywords, true

	case strings.Contains(msg, "metrics"):
		return ReplyMetrics, true

	case strings.Contains(msg, "tailor"):
		if len(missingSkills) > 0 {
			return fmt.Sprintf("Focus on adding **%s** to your Bullet Points.", strings.Join(firstN(missingSkills, 3), ", ")), true
		}
		return replyTailorDone, true

	case strings.Contains(msg, "summary"):
		return ReplySummary, true

	case strings.Contains(msg, "layout"):
		return ReplyLayout, true
	}
	return "", false
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
