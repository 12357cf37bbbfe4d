// Package watch renders the response stream for terminal output.
package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iflb/neji-tutti-client/internal/domain"
)

// RenderBanner announces the start of a watch session.
func RenderBanner(apsID domain.AutomationParameterSetID, lastWatchID domain.WatchID) string {
	s := newStyles()

	from := "future entries only"
	switch lastWatchID {
	case domain.WatchFullHistory:
		from = "entire history"
	case domain.WatchOnlyNew, "":
	default:
		from = fmt.Sprintf("entries after %s", lastWatchID)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.banner.Render("Watching responses"),
		s.meta.Render(fmt.Sprintf("automation parameter set: %s", apsID)),
		s.meta.Render(fmt.Sprintf("replay: %s", from)),
	)
}

// RenderEntry formats one delivered response as a single line.
func RenderEntry(r domain.WatchedResponse) string {
	s := newStyles()

	return fmt.Sprintf("%s  %s",
		s.cursor.Render(string(r.LastWatchID)),
		s.data.Render(compactData(r.Data)),
	)
}

// RenderConnectionError formats a connection failure: the resource that
// failed plus the underlying error.
func RenderConnectionError(err *domain.ConnectionError) string {
	s := newStyles()
	return s.failure.Render(fmt.Sprintf("connection failed: resource=%s err=%v", err.Resource, err.Err))
}

func compactData(data map[string]any) string {
	if len(data) == 0 {
		return "(no data)"
	}

	encoded, err := json.Marshal(data)
	if err == nil {
		return string(encoded)
	}

	// Unmarshalable values still render, just less prettily.
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, data[key]))
	}
	return strings.Join(parts, " ")
}
