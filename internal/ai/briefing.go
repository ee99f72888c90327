package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Loader produces one fact for a briefing. The value is rendered as compact JSON.
type Loader func(ctx context.Context) (any, error)

type section struct {
	title string
	note  string
	load  Loader
}

// Briefing is the read-only context an advisor receives with a request. Sections are
// loaded when rendered, in the order they were added.
type Briefing struct {
	sections []section
}

func NewBriefing() *Briefing {
	return &Briefing{}
}

// Add appends a lazily loaded section.
func (b *Briefing) Add(title, note string, load Loader) *Briefing {
	b.sections = append(b.sections, section{title: title, note: note, load: load})
	return b
}

// Fact appends a section with a fixed value.
func (b *Briefing) Fact(title, note string, v any) *Briefing {
	return b.Add(title, note, func(context.Context) (any, error) { return v, nil })
}

func (b *Briefing) Titles() []string {
	titles := make([]string, len(b.sections))
	for i, s := range b.sections {
		titles[i] = s.title
	}
	return titles
}

// Render loads every section and formats them as markdown headings followed by JSON.
func (b *Briefing) Render(ctx context.Context) (string, error) {
	var sb strings.Builder
	for _, s := range b.sections {
		v, err := s.load(ctx)
		if err != nil {
			return "", fmt.Errorf("briefing %s: %w", s.title, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("briefing %s: %w", s.title, err)
		}
		fmt.Fprintf(&sb, "## %s\n", s.title)
		if s.note != "" {
			fmt.Fprintf(&sb, "%s\n", s.note)
		}
		sb.Write(raw)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}
