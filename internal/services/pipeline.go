package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/luftkuhl/ninethree-backend/internal/platform/anthropic"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

var tracer = otel.Tracer("github.com/luftkuhl/ninethree-backend/internal/services")

const (
	answerMaxTokens  = 2000
	historyWindow    = 10
	maxCitations     = 5
	citationTitleLen = 60
)

// AnswerMeta describes what the pipeline did for one question.
type AnswerMeta struct {
	SearchQuery string          `json:"search_query"`
	Rewritten   bool            `json:"rewritten"`
	Sources     []types.Passage `json:"sources"`
	PartNumbers []string        `json:"part_numbers"`
}

// AnswerPipeline runs the full question-to-answer flow: follow-up rewrite,
// vector retrieval, prompt assembly, streamed generation, then citation and
// parts-link post-processing. The returned text is the complete answer
// including the appended blocks, suitable for persistence.
type AnswerPipeline interface {
	Answer(ctx context.Context, question string, history []types.Turn, profile *types.CarProfile, onDelta func(string)) (string, *AnswerMeta, error)
}

type answerPipeline struct {
	log      *logger.Logger
	llm      anthropic.Client
	rewriter RewriteService
	search   SearchService
	prompts  PromptService
	parts    PartsService
}

func NewAnswerPipeline(
	log *logger.Logger,
	llm anthropic.Client,
	rewriter RewriteService,
	search SearchService,
	prompts PromptService,
	parts PartsService,
) AnswerPipeline {
	return &answerPipeline{
		log:      log.With("service", "AnswerPipeline"),
		llm:      llm,
		rewriter: rewriter,
		search:   search,
		prompts:  prompts,
		parts:    parts,
	}
}

func (p *answerPipeline) Answer(
	ctx context.Context,
	question string,
	history []types.Turn,
	profile *types.CarProfile,
	onDelta func(string),
) (string, *AnswerMeta, error) {
	// Fail before retrieval when the model credentials are unusable.
	if err := p.llm.Configured(); err != nil {
		return "", nil, err
	}

	ctx, span := tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	outcome := p.rewriter.Rewrite(ctx, question, history)
	span.SetAttributes(attribute.Bool("rewrite.rewritten", outcome.Rewritten))

	passages, err := p.search.Search(ctx, outcome.Query, defaultTopK)
	if err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("retrieval: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieval.passages", len(passages)))
	p.log.Debug("retrieval complete",
		"query", outcome.Query,
		"rewritten", outcome.Rewritten,
		"passages", len(passages),
	)

	system := p.prompts.SystemPrompt(profile)
	userMsg := p.prompts.UserMessage(question, profile.Description(), p.prompts.ContextBlock(passages))

	msgs := make([]anthropic.Message, 0, historyWindow+1)
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, t := range history[start:] {
		msgs = append(msgs, anthropic.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, anthropic.Message{Role: types.RoleUser, Content: userMsg})

	answer, err := p.llm.Stream(ctx, p.llm.Model(), system, msgs, answerMaxTokens, onDelta)
	if err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("generation: %w", err)
	}

	full := answer
	emit := func(block string) {
		if block == "" {
			return
		}
		full += block
		if onDelta != nil {
			onDelta(block)
		}
	}

	emit(citationsBlock(passages))

	partNumbers := p.parts.ExtractPartNumbers(answer)
	emit(p.parts.LinksMarkdown(partNumbers))

	meta := &AnswerMeta{
		SearchQuery: outcome.Query,
		Rewritten:   outcome.Rewritten,
		Sources:     passages,
		PartNumbers: partNumbers,
	}
	return full, meta, nil
}

// citationsBlock renders the source-link footer: the top passages capped
// at five, deduplicated by URL, titles truncated.
func citationsBlock(passages []types.Passage) string {
	seen := make(map[string]struct{})
	var lines []string
	for i, p := range passages {
		if i >= maxCitations {
			break
		}
		if p.URL == "" {
			continue
		}
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		lines = append(lines, fmt.Sprintf("  - %s — %s", truncateRunes(p.Title, citationTitleLen), p.URL))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\n\n📚 Sources:\n" + strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
