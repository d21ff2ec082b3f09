package parser

import (
	"fmt"
	"sort"
	"strings"
)

// GetUsage renders a single-line usage summary: "command_key [options] positional...".
func (p *CommandArgumentParser) GetUsage() string {
	var b strings.Builder
	b.WriteString(p.CommandKey)
	for _, a := range p.keywordList {
		if a.Dest == "help" {
			continue
		}
		text := a.GetChoiceText()
		var piece string
		if text == "" {
			piece = a.Flags[0]
		} else {
			piece = a.Flags[0] + " " + text
		}
		if !a.Required {
			piece = "[" + piece + "]"
		}
		b.WriteString(" ")
		b.WriteString(piece)
	}
	for _, a := range p.positional {
		b.WriteString(" ")
		b.WriteString(a.GetChoiceText())
	}
	return b.String()
}

// GetCommandKeysText renders the command key plus any aliases, as shown
// in the help header.
func (p *CommandArgumentParser) GetCommandKeysText() string {
	if len(p.Aliases) == 0 {
		return p.CommandKey
	}
	return p.CommandKey + " (" + strings.Join(p.Aliases, ", ") + ")"
}

// GetOptionsText renders the aligned "flags  help" options table body.
func (p *CommandArgumentParser) GetOptionsText() string {
	type row struct{ left, help string }
	var rows []row
	width := 0
	for _, a := range p.arguments {
		left := strings.Join(a.Flags, ", ")
		if text := a.GetChoiceText(); text != "" {
			left += " " + text
		}
		if len(left) > width {
			width = len(left)
		}
		rows = append(rows, row{left, a.Help})
	}
	for _, a := range p.positional {
		left := a.GetPositionalText()
		if len(left) > width {
			width = len(left)
		}
		rows = append(rows, row{left, a.Help})
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, r.left, r.help)
	}
	return b.String()
}

func (p *CommandArgumentParser) renderHelpTo(b *strings.Builder) {
	fmt.Fprintf(b, "Usage: %s\n", p.GetUsage())
	if p.CommandDescription != "" {
		b.WriteString("\n")
		b.WriteString(p.CommandDescription)
		b.WriteString("\n")
	}
	if p.HelpText != "" {
		b.WriteString("\n")
		b.WriteString(p.HelpText)
		b.WriteString("\n")
	}
	b.WriteString("\nOptions:\n")
	b.WriteString(p.GetOptionsText())
	if p.HelpEpilog != "" {
		b.WriteString("\n")
		b.WriteString(p.HelpEpilog)
		b.WriteString("\n")
	}
}

// RenderHelp returns the fully rendered help text and, if a console is
// attached, writes it there too.
func (p *CommandArgumentParser) RenderHelp() string {
	var b strings.Builder
	p.renderHelpTo(&b)
	text := b.String()
	if p.console != nil {
		p.console.Write(text)
	}
	return text
}

// FlagNames returns every registered flag, sorted, for diagnostics and tests.
func (p *CommandArgumentParser) FlagNames() []string {
	names := make([]string, 0, len(p.flagMap))
	for f := range p.flagMap {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}
