package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BaSui01/canvasflow/types"
)

// Stringify renders an agent output as plain text for input concatenation.
// Strings pass through verbatim; structured values use the generic markdown
// layout. This is the stringifier the execution coordinator is wired with.
func Stringify(output any) string {
	return FormatOutput(output, "")
}

// FormatOutput renders an agent output as markdown. Known agent types get a
// dedicated layout; everything else falls back to a generic one. Map keys in
// the generic layout are sorted so the result is deterministic.
func FormatOutput(output any, agentType types.AgentType) string {
	if output == nil {
		return ""
	}
	if s, ok := output.(string); ok {
		return s
	}
	data, ok := output.(map[string]any)
	if !ok {
		return formatGeneric(output)
	}

	switch agentType {
	case types.AgentStrategy:
		return formatStrategy(data)
	case types.AgentCopywriting:
		return formatCopywriting(data)
	case types.AgentVisual:
		return formatVisual(data)
	case types.AgentResearch:
		return formatResearch(data)
	case types.AgentMedia:
		return formatMedia(data)
	default:
		return formatGeneric(data)
	}
}

func formatStrategy(data map[string]any) string {
	var b strings.Builder
	b.WriteString("### 🎯 Campaign Strategy\n\n")

	if v := stringField(data, "core_concept"); v != "" {
		fmt.Fprintf(&b, "**Core Concept:** %s\n\n", v)
	}
	if v := stringField(data, "tagline"); v != "" {
		fmt.Fprintf(&b, "**Tagline:** _\"%s\"_\n\n", v)
	}
	if v := stringField(data, "target_audience"); v != "" {
		fmt.Fprintf(&b, "**Target Audience:** %s\n\n", v)
	}
	if items := listField(data, "key_messages"); len(items) > 0 {
		b.WriteString("**Key Messages:**\n")
		for i, msg := range items {
			fmt.Fprintf(&b, "%d. %v\n", i+1, msg)
		}
		b.WriteString("\n")
	}
	if v := stringField(data, "tone"); v != "" {
		fmt.Fprintf(&b, "**Tone:** %s\n\n", v)
	}
	if items := listField(data, "channels"); len(items) > 0 {
		fmt.Fprintf(&b, "**Channels:** %s\n", joinAny(items, ", "))
	}
	return b.String()
}

func formatCopywriting(data map[string]any) string {
	var b strings.Builder
	b.WriteString("### ✍️ Marketing Copy\n\n")

	if items := listField(data, "captions"); len(items) > 0 {
		b.WriteString("**Social Media Captions:**\n\n")
		for i, caption := range items {
			fmt.Fprintf(&b, "%d. %v\n\n", i+1, caption)
		}
	}
	if v := stringField(data, "cta"); v != "" {
		fmt.Fprintf(&b, "**Call to Action:** %s\n\n", v)
	}
	if v := stringField(data, "hashtags"); v != "" {
		fmt.Fprintf(&b, "**Hashtags:** %s\n", v)
	}
	return b.String()
}

func formatVisual(data map[string]any) string {
	var b strings.Builder
	b.WriteString("### 🎨 Visual Design Concepts\n\n")

	if items := listField(data, "image_concepts"); len(items) > 0 {
		b.WriteString("**Image Concepts:**\n")
		for i, concept := range items {
			fmt.Fprintf(&b, "%d. %v\n", i+1, concept)
		}
		b.WriteString("\n")
	}
	if items := listField(data, "color_palette"); len(items) > 0 {
		b.WriteString("**Color Palette:**\n")
		for _, color := range items {
			fmt.Fprintf(&b, "• %v\n", color)
		}
		b.WriteString("\n")
	}
	if v := stringField(data, "style"); v != "" {
		fmt.Fprintf(&b, "**Style:** %s\n\n", v)
	}
	if v := stringField(data, "status"); v != "" {
		fmt.Fprintf(&b, "_%s_\n", v)
	}
	return b.String()
}

func formatResearch(data map[string]any) string {
	var b strings.Builder
	b.WriteString("### 🔍 Market Research\n\n")

	if items := listField(data, "trends"); len(items) > 0 {
		b.WriteString("**Key Trends:**\n")
		for _, trend := range items {
			fmt.Fprintf(&b, "• %v\n", trend)
		}
		b.WriteString("\n")
	}
	if items := listField(data, "competitors"); len(items) > 0 {
		fmt.Fprintf(&b, "**Competitors:** %s\n\n", joinAny(items, ", "))
	}
	if items := listField(data, "influencers"); len(items) > 0 {
		b.WriteString("**Recommended Influencers:**\n")
		for _, inf := range items {
			fmt.Fprintf(&b, "• %v\n", inf)
		}
		b.WriteString("\n")
	}
	if items := listField(data, "best_posting_times"); len(items) > 0 {
		fmt.Fprintf(&b, "**Best Posting Times:** %s\n", joinAny(items, ", "))
	}
	return b.String()
}

func formatMedia(data map[string]any) string {
	var b strings.Builder
	b.WriteString("### 📊 Media Plan\n\n")

	if items := listField(data, "schedule"); len(items) > 0 {
		b.WriteString("**Posting Schedule:**\n\n")
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "📅 **%s** - %s\n", stringField(entry, "date"), stringField(entry, "platform"))
			fmt.Fprintf(&b, "   %s\n\n", stringField(entry, "content"))
		}
	}
	if alloc, ok := data["budget_allocation"].(map[string]any); ok && len(alloc) > 0 {
		b.WriteString("**Budget Allocation:**\n")
		for _, channel := range sortedKeys(alloc) {
			fmt.Fprintf(&b, "• %s: %v\n", channel, alloc[channel])
		}
		b.WriteString("\n")
	}
	if items := listField(data, "kpis"); len(items) > 0 {
		b.WriteString("**KPIs:**\n")
		for _, kpi := range items {
			fmt.Fprintf(&b, "• %v\n", kpi)
		}
	}
	return b.String()
}

func formatGeneric(v any) string {
	var b strings.Builder
	writeGeneric(&b, v)
	return b.String()
}

func writeGeneric(b *strings.Builder, v any) {
	switch data := v.(type) {
	case []any:
		for i, item := range data {
			if _, nested := item.(map[string]any); nested {
				writeGeneric(b, item)
			} else {
				fmt.Fprintf(b, "%d. %v\n", i+1, item)
			}
		}
	case map[string]any:
		for _, key := range sortedKeys(data) {
			value := data[key]
			title := titleCase(key)
			switch nested := value.(type) {
			case []any:
				fmt.Fprintf(b, "**%s:**\n", title)
				for _, item := range nested {
					if _, isMap := item.(map[string]any); isMap {
						writeGeneric(b, item)
					} else {
						fmt.Fprintf(b, "• %v\n", item)
					}
				}
				b.WriteString("\n")
			case map[string]any:
				fmt.Fprintf(b, "**%s:**\n", title)
				writeGeneric(b, nested)
				b.WriteString("\n")
			default:
				fmt.Fprintf(b, "**%s:** %v\n\n", title, value)
			}
		}
	default:
		fmt.Fprintf(b, "%v", v)
	}
}

// titleCase turns a snake_case key into a display heading.
func titleCase(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func listField(data map[string]any, key string) []any {
	if v, ok := data[key].([]any); ok {
		return v
	}
	return nil
}

func joinAny(items []any, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(parts, sep)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
