package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/liststore/internal/listing"
	"github.com/five82/liststore/internal/logtail"
	"github.com/five82/liststore/internal/store"
)

const placeholder = "…"

// describe returns the label and detail text of one row. Rows without a
// payload show a placeholder detail.
func describe(d store.Descriptor, payload any, fetched bool) (label, detail string) {
	switch d := d.(type) {
	case *listing.Header:
		if title, ok := payload.(string); ok && title != "" {
			return title, ""
		}
		return d.Title, ""
	case *listing.FileDescriptor:
		label = d.Name
		if d.Dir {
			label += "/"
		}
	case *listing.RecordDescriptor:
		label = d.Title
		if label == "" {
			label = fmt.Sprintf("#%d", d.ID)
		}
	case nil:
		return "", ""
	default:
		label = fmt.Sprintf("%v", d)
	}
	if !fetched {
		return label, placeholder
	}
	return label, summarize(payload)
}

// summarize formats a fetched payload for the detail column.
func summarize(payload any) string {
	switch p := payload.(type) {
	case *listing.FileInfo:
		if p.Mode.IsDir() {
			return fmt.Sprintf("%s  %s", p.Mode, humanize.Time(p.ModTime))
		}
		return fmt.Sprintf("%s  %s  %s", p.Mode, humanize.Bytes(uint64(max(p.Size, 0))), humanize.Time(p.ModTime))
	case *listing.Record:
		parts := []string{}
		if p.Category != "" {
			parts = append(parts, p.Category)
		}
		if !p.UpdatedAt.IsZero() {
			parts = append(parts, humanize.Time(p.UpdatedAt))
		}
		if body := strings.Join(strings.Fields(p.Body), " "); body != "" {
			parts = append(parts, truncate(body, 60))
		}
		return strings.Join(parts, "  ")
	case string:
		return p
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", p)
	}
}

// renderRow draws one list row at the given width.
func (m Model) renderRow(h store.Handle, selected bool, width int) string {
	styles := m.theme.Styles()
	payload, fetched := m.store.Payload(h)
	label, detail := describe(m.store.Descriptor(h), payload, fetched)

	if m.store.IsHeader(h) {
		line := truncate("▸ "+label, width)
		if selected {
			return styles.Selected.Width(width).Render(line)
		}
		return styles.GroupHeader.Render(line)
	}

	labelWidth := width / 2
	if labelWidth < 12 {
		labelWidth = width
	}
	left := padRight(truncate("  "+label, labelWidth), labelWidth)
	right := ""
	if labelWidth < width {
		right = truncate(detail, width-labelWidth)
	}
	if selected {
		return styles.Selected.Width(width).Render(left + right)
	}
	return styles.Text.Render(left) + styles.MutedText.Render(right)
}

// renderLogLine formats a parsed log line as "15:04:05 LEVEL message k=v".
func (m Model) renderLogLine(l logtail.Line, width int) string {
	styles := m.theme.Styles()
	if l.Level == "" {
		return styles.MutedText.Render(truncate(l.Raw, width))
	}
	prefix := fmt.Sprintf("%s %-5s ", clock(l.Time), l.Level)
	text := l.Message
	if len(l.Fields) > 0 {
		text += " " + strings.Join(l.Fields, " ")
	}
	rest := width - len([]rune(prefix))
	if rest < 0 {
		rest = 0
	}
	return styles.LevelStyle(l.Level).Render(prefix) + styles.Text.Render(truncate(text, rest))
}

// clock extracts HH:MM:SS from an ISO8601 timestamp.
func clock(ts string) string {
	if len(ts) >= 19 && ts[10] == 'T' {
		return ts[11:19]
	}
	return ts
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return placeholder
	}
	return string(r[:width-1]) + placeholder
}

func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
