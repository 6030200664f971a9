// Package crisis builds the fixed safety message that replaces the model reply
// on a high-risk turn.
package crisis

import (
	"fmt"
	"strings"
)

// Generator renders the crisis message for a locale. It is immutable after
// construction and safe for concurrent use.
type Generator struct {
	fallback Region
	index    map[string]Region
}

// New builds a Generator. defaultRegion is the process-wide region used when a
// request carries no recognizable locale; an unknown default falls back to
// DefaultRegionCode.
func New(defaultRegion string) *Generator {
	g := &Generator{index: make(map[string]Region)}
	for _, r := range regions {
		g.index[normalizeKey(r.Code)] = r
		g.index[normalizeKey(r.Name)] = r
		for _, alias := range r.Aliases {
			g.index[normalizeKey(alias)] = r
		}
	}

	g.fallback = g.index[normalizeKey(DefaultRegionCode)]
	if r, ok := g.Lookup(defaultRegion); ok {
		g.fallback = r
	}
	return g
}

// Lookup resolves a country name, ISO-3166 alpha-2/alpha-3 code or BCP-47 tag
// (e.g. "en-GB") to a Region.
func (g *Generator) Lookup(locale string) (Region, bool) {
	key := normalizeKey(locale)
	if key == "" {
		return Region{}, false
	}
	if r, ok := g.index[key]; ok {
		return r, true
	}

	// BCP-47: take the region subtag.
	parts := strings.FieldsFunc(strings.TrimSpace(locale), func(r rune) bool { return r == '-' || r == '_' })
	for i := len(parts) - 1; i > 0; i-- {
		if len(parts[i]) == 2 {
			if r, ok := g.index[normalizeKey(parts[i])]; ok {
				return r, true
			}
		}
	}
	return Region{}, false
}

// Resolve returns the Region for locale, or the configured default.
func (g *Generator) Resolve(locale string) Region {
	if r, ok := g.Lookup(locale); ok {
		return r
	}
	return g.fallback
}

// Generate returns the crisis message for locale. The text is fixed per
// region: it never echoes user input and never asks for personal details.
func (g *Generator) Generate(locale string) string {
	region := g.Resolve(locale)

	emergency := region.Emergency
	if region.EmergencyNote != "" {
		emergency = fmt.Sprintf("%s, %s", region.Emergency, region.EmergencyNote)
	}

	var builder strings.Builder
	builder.WriteString("I'm really glad you told me. I'm not a replacement for professional help, and you deserve support right now.\n")
	fmt.Fprintf(&builder, "If you feel in immediate danger, please contact emergency services (%s in %s).\n", emergency, region.Name)
	builder.WriteString("You can also reach:\n")
	for _, line := range region.Helplines {
		fmt.Fprintf(&builder, "• %s: %s\n", line.Name, line.Number)
	}
	builder.WriteString("If you can, talk to someone you trust. I can stay with you here and offer grounding exercises.")
	return builder.String()
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
