package services

import (
	"strings"
	"testing"

	"github.com/luftkuhl/ninethree-backend/internal/types"
)

func TestSystemPromptNoProfile(t *testing.T) {
	svc := NewPromptService()

	got := svc.SystemPrompt(nil)
	if !strings.Contains(got, "No specific details provided yet.") {
		t.Fatalf("generic fallback section missing: %q", got)
	}
	if !strings.Contains(got, "expert Porsche 993 mechanic") {
		t.Fatalf("role preamble missing")
	}
}

func TestSystemPromptProfileHints(t *testing.T) {
	svc := NewPromptService()

	profile := &types.CarProfile{
		Year:         "1996",
		Model:        "Targa",
		Transmission: "Tiptronic",
		Mileage:      "92,000",
	}
	got := svc.SystemPrompt(profile)

	for _, frag := range []string{
		"1996 Porsche 911 (Targa)",
		"Targa-specific issues",
		"Tiptronic-specific advice",
		"what's due at 92,000 miles",
	} {
		if !strings.Contains(got, frag) {
			t.Fatalf("missing %q in system prompt", frag)
		}
	}
	if strings.Contains(got, "Turbo-specific advice") {
		t.Fatalf("turbo hint fired for a non-turbo car")
	}
	if strings.Contains(got, "Cabriolet-specific issues") {
		t.Fatalf("cabriolet hint fired for a targa")
	}
}

func TestSystemPromptKnownIssues(t *testing.T) {
	svc := NewPromptService()

	profile := &types.CarProfile{
		Year:        "1995",
		Model:       "Carrera",
		KnownIssues: "slight oil leak at the rear main seal",
	}
	got := svc.SystemPrompt(profile)
	if !strings.Contains(got, "Known issues: slight oil leak at the rear main seal") {
		t.Fatalf("known issues line missing")
	}
}

func TestContextBlock(t *testing.T) {
	svc := NewPromptService()

	passages := []types.Passage{
		{Title: "SAI blockage fix", Source: "Rennlist", Text: "Clean the ports."},
		{Title: "OBD2 codes", Text: "P0410 means secondary air."},
	}
	got := svc.ContextBlock(passages)

	if !strings.Contains(got, "[Source 1] SAI blockage fix (Rennlist)") {
		t.Fatalf("numbered header with source missing: %q", got)
	}
	if !strings.Contains(got, "[Source 2] OBD2 codes\n") {
		t.Fatalf("sourceless header should have no parens: %q", got)
	}
	if !strings.Contains(got, strings.Repeat("=", 60)) {
		t.Fatalf("divider missing")
	}
}

func TestUserMessage(t *testing.T) {
	svc := NewPromptService()

	got := svc.UserMessage("Why does it smoke at startup?", "1996 Porsche 993 Targa", "CONTEXT")
	if !strings.Contains(got, "QUESTION: Why does it smoke at startup?") {
		t.Fatalf("question missing: %q", got)
	}
	if !strings.Contains(got, "owner's 1996 Porsche 993 Targa:") {
		t.Fatalf("car description missing: %q", got)
	}
	if !strings.Contains(got, "FORUM KNOWLEDGE:\nCONTEXT") {
		t.Fatalf("context block missing: %q", got)
	}
}
