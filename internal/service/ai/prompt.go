package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/serene/backend/internal/model/persona"
)

// BuildSystemPrompt renders the system instruction prepended to every model turn.
func BuildSystemPrompt(p persona.Persona) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "You are %q, a %s.\n", p.Name, p.Title)

	builder.WriteString("Scope:\n")
	for _, line := range p.Scope {
		builder.WriteString("- ")
		builder.WriteString(line)
		builder.WriteString("\n")
	}

	builder.WriteString("Boundaries:\n")
	for _, line := range p.Boundaries {
		builder.WriteString("- ")
		builder.WriteString(line)
		builder.WriteString("\n")
	}

	if p.Tone != "" {
		fmt.Fprintf(&builder, "Always be %s.", p.Tone)
	}
	return strings.TrimRight(builder.String(), "\n")
}
