package types

import "strings"

// CarProfile describes the owner's car. All fields are free-form strings
// entered at onboarding; Year and Model are the only ones onboarding
// requires.
type CarProfile struct {
	VIN          string `json:"vin"`
	Year         string `json:"year"`
	Model        string `json:"model"`
	Transmission string `json:"transmission"`
	Mileage      string `json:"mileage"`
	KnownIssues  string `json:"known_issues"`
}

// Complete reports whether the profile carries enough detail to skip
// onboarding.
func (p *CarProfile) Complete() bool {
	return p != nil && strings.TrimSpace(p.Year) != "" && strings.TrimSpace(p.Model) != ""
}

// Description renders the one-line car description interpolated into
// user messages, e.g. "1997 Porsche 993 Targa Tiptronic (~80,000 miles)".
func (p *CarProfile) Description() string {
	if p == nil || (p.Year == "" && p.Model == "" && p.Transmission == "" && p.Mileage == "") {
		return "their Porsche 993"
	}
	parts := make([]string, 0, 4)
	if p.Year != "" {
		parts = append(parts, p.Year)
	}
	parts = append(parts, "Porsche 993")
	if p.Model != "" {
		parts = append(parts, p.Model)
	}
	if p.Transmission != "" {
		parts = append(parts, p.Transmission)
	}
	desc := strings.Join(parts, " ")
	if p.Mileage != "" {
		desc += " (~" + p.Mileage + " miles)"
	}
	return desc
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation. Images holds the stored names of
// photos attached to a user turn.
type Turn struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Conversation is the persisted message log for one chat.
type Conversation struct {
	ID       string `json:"id"`
	Messages []Turn `json:"messages"`
}

// IndexEntry is one row of a user's conversation index, newest first.
type IndexEntry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Passage is one retrieved knowledge chunk with its provenance.
type Passage struct {
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	ContentType string  `json:"content_type"`
	Relevance   float64 `json:"relevance"`
}
