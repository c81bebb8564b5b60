package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lendflow-labs/loanchat/internal/applicant"
)

// renderPanel draws the applicant details panel: stage progress, then
// every section with its expansion, highlight and animation state.
func (m Model) renderPanel(width int) string {
	var b strings.Builder

	if progress := m.renderStageProgress(width); progress != "" {
		b.WriteString(progress + "\n")
	}

	names := sectionNames(m.details)
	if len(names) == 0 && len(m.variables) == 0 {
		b.WriteString(fieldLabelStyle.Render("No applicant data yet."))
		return panelBorderStyle.Width(width).Render(b.String())
	}

	for i, name := range names {
		b.WriteString(m.renderSection(i+1, name, width))
	}

	if len(m.variables) > 0 {
		b.WriteString(m.renderVariables(width))
	}

	return panelBorderStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderSection(index int, name string, width int) string {
	var b strings.Builder

	expanded := m.scheduler.IsExpanded(name)
	marker := "▸"
	if expanded {
		marker = "▾"
	}

	header := fmt.Sprintf("%s [%d] %s", marker, index, name)
	if m.scheduler.IsHighlighted(name) {
		b.WriteString(highlightStyle.Render(header) + "\n")
	} else {
		b.WriteString(sectionStyle.Render(header) + "\n")
	}

	if expanded {
		for _, field := range m.details[name] {
			b.WriteString(m.renderField(name, field, width))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderField(section string, field applicant.FieldItem, width int) string {
	value := formatFieldValue(field.Value)
	valueStyleForField := fieldValueStyle
	if m.scheduler.IsAnimated(section + "." + field.Key) {
		valueStyleForField = animatedStyle
	}

	line := "  " + fieldLabelStyle.Render(field.Label+": ") + valueStyleForField.Render(value)
	if field.IsVerified != nil {
		if *field.IsVerified {
			line += " " + verifiedStyle.Render("✓")
		} else {
			line += " " + unverifiedStyle.Render("○")
		}
	}
	return lipgloss.NewStyle().Width(width - 2).Render(line) + "\n"
}

func (m Model) renderVariables(width int) string {
	var b strings.Builder

	header := "▾ Conversation Variables"
	highlighted := false
	for _, v := range m.variables {
		if m.scheduler.IsHighlighted(v.Name) {
			highlighted = true
			break
		}
	}
	if highlighted {
		b.WriteString(highlightStyle.Render(header) + "\n")
	} else {
		b.WriteString(sectionStyle.Render(header) + "\n")
	}

	for _, v := range m.variables {
		keys := make([]string, 0, len(v.Value))
		for k := range v.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			style := fieldValueStyle
			if m.scheduler.IsAnimated(v.Name + "." + k) {
				style = animatedStyle
			}
			label := v.Name
			if k != "value" {
				label += "." + k
			}
			line := "  " + fieldLabelStyle.Render(label+": ") + style.Render(formatFieldValue(v.Value[k]))
			b.WriteString(lipgloss.NewStyle().Width(width-2).Render(line) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// formatFieldValue renders a field value for display. Structured values
// fall back to compact JSON.
func formatFieldValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "—"
	case string:
		if val == "" {
			return "—"
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int:
		return fmt.Sprintf("%d", val)
	case bool:
		return fmt.Sprintf("%t", val)
	case map[string]any:
		// The {value, isVerified} wrapper displays as its inner value.
		if inner, ok := val["value"]; ok {
			return formatFieldValue(inner)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatFieldValue(item))
		}
		return strings.Join(parts, ", ")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// sectionNames returns the panel sections in stable render order.
func sectionNames(details applicant.Details) []string {
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
