package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/liststore/internal/state"
	"github.com/five82/liststore/internal/store"
)

// statusKind picks the color of one status bar segment.
type statusKind int

const (
	statusPlain statusKind = iota
	statusGood
	statusBusy
	statusBad
)

type statusPart struct {
	text string
	kind statusKind
}

// statusParts summarizes listing progress and cache occupancy.
func statusParts(snap state.Snapshot, st store.Stats) []statusPart {
	var parts []statusPart

	switch {
	case !snap.HasProgress && snap.LastError == nil:
		parts = append(parts, statusPart{"Listing…", statusBusy})
	case snap.HasProgress:
		p := snap.Progress
		parts = append(parts, statusPart{p.Source, statusPlain})
		listed := humanize.Comma(int64(p.Listed)) + " listed"
		if p.Rejected > 0 {
			listed += fmt.Sprintf(", %s rejected", humanize.Comma(int64(p.Rejected)))
		}
		parts = append(parts, statusPart{listed, statusPlain})
		if p.Done {
			parts = append(parts, statusPart{"done", statusGood})
		} else {
			parts = append(parts, statusPart{fmt.Sprintf("listing (attempt %d)", p.Attempt), statusBusy})
		}
	}

	parts = append(parts,
		statusPart{fmt.Sprintf("cache %d/%d", st.Realized, st.CacheMax), statusPlain},
		statusPart{fmt.Sprintf("fetched %d", st.Fetched), statusPlain},
	)
	if st.InFlight > 0 {
		parts = append(parts, statusPart{fmt.Sprintf("in flight %d", st.InFlight), statusBusy})
	}

	if snap.LastError != nil {
		label := "ERROR"
		if snap.IsFailing() {
			label = fmt.Sprintf("FAILING x%d", snap.ConsecutiveFailures)
		}
		parts = append(parts, statusPart{label + " " + truncate(snap.LastError.Error(), 60), statusBad})
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, statusPart{humanize.Time(snap.LastUpdated), statusPlain})
	}
	return parts
}

// renderStatus renders the status bar.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	out := make([]string, 0, 8)
	for _, p := range statusParts(m.snapshot, m.store.Stats()) {
		switch p.kind {
		case statusGood:
			out = append(out, styles.SuccessText.Render(p.text))
		case statusBusy:
			out = append(out, styles.WarningText.Render(p.text))
		case statusBad:
			out = append(out, styles.DangerText.Render(p.text))
		default:
			out = append(out, styles.MutedText.Render(p.text))
		}
	}
	return styles.Footer.Render(strings.Join(out, "  •  "))
}
