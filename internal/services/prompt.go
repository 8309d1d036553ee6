package services

import (
	"fmt"
	"strings"

	"github.com/luftkuhl/ninethree-backend/internal/types"
)

// PromptService assembles the system prompt, the retrieved-knowledge
// context block, and the final user message sent to the model.
type PromptService interface {
	SystemPrompt(profile *types.CarProfile) string
	ContextBlock(passages []types.Passage) string
	UserMessage(question, carDescription, contextBlock string) string
}

type promptService struct{}

func NewPromptService() PromptService {
	return &promptService{}
}

const promptRules = `You are an expert Porsche 993 mechanic and advisor. You help the owner
diagnose problems, perform repairs, and maintain their car.

%s

You have access to real knowledge from Porsche forums (Pelican Parts, Rennlist, 911uk,
6SpeedOnline, TIPEC, Carpokes) and technical articles, DIY guides, and YouTube transcripts
from experienced 993 owners and mechanics.

RULES:
1. Base your answers on the provided forum knowledge. If the sources contain
   relevant information, cite it naturally (e.g. "According to a Rennlist thread..."
   or "A Pelican Parts tech article explains...").
2. If the sources don't contain enough info to fully answer, say so honestly
   and share what you do know from general 993 knowledge.
3. Include specific part numbers, torque specs, and step-by-step procedures
   when available in the sources. Format part numbers in bold so they stand out.
4. When there's disagreement in the forums, mention the different perspectives.
5. Always err on the side of caution with safety-critical repairs (brakes,
   suspension, steering). Recommend professional help when appropriate.
6. Be conversational and practical, like a knowledgeable friend in the garage.
7. You don't need to repeat the car specs back to the owner every time — they
   know what they drive. Just give relevant, tailored advice.
8. When discussing repairs that require parts, always mention the OEM part
   numbers if they appear in the forum knowledge so the owner can order them.

When you reference source material, mention the source forum and thread topic
so the user can look it up for more detail.`

// SystemPrompt renders the model instructions, specialized to the owner's
// car when a profile is present. Body style and transmission trigger extra
// advice hints (Targa roof, cab top, Tiptronic, turbo, mileage service).
func (s *promptService) SystemPrompt(profile *types.CarProfile) string {
	var carSection string
	if profile != nil {
		carSection = fmt.Sprintf(
			"THE OWNER'S CAR:\n- %s Porsche 911 (%s)\n- %s transmission\n- Approximately %s miles",
			profile.Year, modelOrDefault(profile.Model), profile.Transmission, profile.Mileage,
		)
		if profile.KnownIssues != "" {
			carSection += "\n- Known issues: " + profile.KnownIssues
		}

		var advice []string
		ml := strings.ToLower(profile.Model)
		tl := strings.ToLower(profile.Transmission)
		if strings.Contains(ml, "targa") {
			advice = append(advice, "- Targa-specific issues (roof seal leaks, body flex, Targa top mechanism)")
		}
		if strings.Contains(ml, "cabriolet") || strings.Contains(ml, "cab") {
			advice = append(advice, "- Cabriolet-specific issues (soft top mechanism, hydraulics, rear window)")
		}
		if strings.Contains(tl, "tiptronic") {
			advice = append(advice, "- Tiptronic-specific advice (fluid changes, shift adaptation, valve body)")
		}
		if strings.Contains(ml, "turbo") {
			advice = append(advice, "- Turbo-specific advice (boost control, wastegate, intercooler, K24/K16 turbos)")
		}
		if profile.Mileage != "" {
			advice = append(advice, fmt.Sprintf("- Mileage-appropriate maintenance (what's due at %s miles)", profile.Mileage))
		}
		if len(advice) > 0 {
			carSection += "\nAlways tailor your advice to this specific car. For example:\n" + strings.Join(advice, "\n")
		}
	} else {
		carSection = "THE OWNER'S CAR:\n" +
			"- Porsche 911 (993)\n" +
			"- No specific details provided yet.\n" +
			"Give general 993 advice until the owner shares their car details."
	}
	return fmt.Sprintf(promptRules, carSection)
}

func modelOrDefault(model string) string {
	if strings.TrimSpace(model) == "" {
		return "993"
	}
	return model
}

// ContextBlock formats retrieved passages as numbered sources.
func (s *promptService) ContextBlock(passages []types.Passage) string {
	blocks := make([]string, 0, len(passages))
	for i, p := range passages {
		header := fmt.Sprintf("[Source %d] %s", i+1, p.Title)
		if p.Source != "" {
			header += fmt.Sprintf(" (%s)", p.Source)
		}
		blocks = append(blocks, header+"\n"+p.Text)
	}
	return "\n\n" + strings.Repeat("=", 60) + strings.Join(blocks, "\n\n")
}

func (s *promptService) UserMessage(question, carDescription, contextBlock string) string {
	return fmt.Sprintf(`Based on the following knowledge from Porsche forums and technical articles,
answer this question about the owner's %s:

QUESTION: %s

FORUM KNOWLEDGE:
%s

Please provide a helpful, practical answer based on this knowledge. Cite sources
when referencing specific advice. If the sources are insufficient, say so.`,
		carDescription, question, contextBlock)
}
