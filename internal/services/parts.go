package services

import (
	"fmt"
	"regexp"
	"strings"
)

// Porsche OEM part numbers: three groups of three digits plus a two digit
// suffix, dot or dash separated, e.g. 993.101.091.53 or 993-101-091-53.
var partNumberRE = regexp.MustCompile(`\b\d{3}[.\-]\d{3}[.\-]\d{3}[.\-]\d{2}\b`)

type supplier struct {
	Name string
	URL  string
}

var partsSuppliers = []supplier{
	{"Pelican Parts", "https://www.pelicanparts.com/cgi-bin/smart_search.cgi?keywords=%s"},
	{"FCP Euro", "https://www.fcpeuro.com/parts?keyword=%s"},
	{"Design 911", "https://www.design911.co.uk/search/?q=%s"},
}

// PartsService extracts OEM part numbers from answer text and renders
// ordering links for the major 993 suppliers.
type PartsService interface {
	ExtractPartNumbers(text string) []string
	LinksMarkdown(partNumbers []string) string
}

type partsService struct{}

func NewPartsService() PartsService {
	return &partsService{}
}

// ExtractPartNumbers returns the normalized part numbers found in text,
// dash separators rewritten to dots, deduplicated, in order of first
// appearance.
func (s *partsService) ExtractPartNumbers(text string) []string {
	matches := partNumberRE.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		pn := strings.ReplaceAll(m, "-", ".")
		if _, ok := seen[pn]; ok {
			continue
		}
		seen[pn] = struct{}{}
		out = append(out, pn)
	}
	return out
}

// LinksMarkdown renders the "Order Parts" markdown block appended to
// answers that mention part numbers. Empty input renders nothing.
func (s *partsService) LinksMarkdown(partNumbers []string) string {
	if len(partNumbers) == 0 {
		return ""
	}
	lines := []string{"\n\n---\n**🛒 Order Parts**"}
	seen := make(map[string]struct{}, len(partNumbers))
	for _, pn := range partNumbers {
		pn = strings.TrimSpace(strings.ReplaceAll(pn, "-", "."))
		if pn == "" {
			continue
		}
		if _, ok := seen[pn]; ok {
			continue
		}
		seen[pn] = struct{}{}
		links := make([]string, 0, len(partsSuppliers))
		for _, sup := range partsSuppliers {
			links = append(links, fmt.Sprintf("[%s](%s)", sup.Name, fmt.Sprintf(sup.URL, pn)))
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s", pn, strings.Join(links, " · ")))
	}
	return strings.Join(lines, "\n")
}
