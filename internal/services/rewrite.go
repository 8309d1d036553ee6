package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

// RewriteOutcome reports what the rewriter did. Rewriting is best effort:
// when Err is set the pipeline searches with the original question and the
// failure goes no further than a log line.
type RewriteOutcome struct {
	Query     string
	Rewritten bool
	Err       error
}

// RewriteService turns follow-up questions ("what torque spec?") into
// standalone search queries using the conversation so far, so vector
// retrieval sees the actual topic.
type RewriteService interface {
	Rewrite(ctx context.Context, question string, history []types.Turn) RewriteOutcome
}

type rewriteService struct {
	log *logger.Logger
	llm anthropic.Client
}

func NewRewriteService(log *logger.Logger, llm anthropic.Client) RewriteService {
	return &rewriteService{
		log: log.With("service", "RewriteService"),
		llm: llm,
	}
}

const (
	rewriteHistoryTurns   = 4
	rewriteAssistantLimit = 300
	rewriteMaxLen         = 500
)

func (s *rewriteService) Rewrite(ctx context.Context, question string, history []types.Turn) RewriteOutcome {
	question = strings.TrimSpace(question)
	if len(history) == 0 {
		return RewriteOutcome{Query: question}
	}

	prompt := buildRewritePrompt(question, history)
	raw, err := s.llm.Complete(ctx, s.llm.SmallModel(), "", []anthropic.Message{
		{Role: types.RoleUser, Content: prompt},
	}, 150)
	if err != nil {
		s.log.Warn("follow-up rewrite failed, searching with original question", "error", err.Error())
		return RewriteOutcome{Query: question, Err: err}
	}

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if n := len([]rune(rewritten)); n == 0 || n >= rewriteMaxLen {
		s.log.Debug("rewrite result rejected", "length", n)
		return RewriteOutcome{Query: question}
	}
	return RewriteOutcome{Query: rewritten, Rewritten: rewritten != question}
}

func buildRewritePrompt(question string, history []types.Turn) string {
	start := len(history) - rewriteHistoryTurns
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	for _, t := range history[start:] {
		content := strings.TrimSpace(t.Content)
		if t.Role == types.RoleAssistant {
			content = truncateRunes(content, rewriteAssistantLimit)
		}
		if n := len(t.Images); n > 0 {
			content += fmt.Sprintf(" [+%d image(s) attached]", n)
		}
		fmt.Fprintf(&sb, "%s: %s\n", t.Role, content)
	}
	return fmt.Sprintf(`Given this conversation about a Porsche 993, rewrite the user's latest question
as a standalone search query. Keep it short and specific. Include the topic being
discussed if the question refers to it indirectly. Reply with only the query.

CONVERSATION:
%s
LATEST QUESTION: %s`, sb.String(), question)
}
