package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// WatchID is a response-stream cursor of the form "<ms-timestamp>-<sequence>",
// following the task-management server's stream ID format. Two sentinel values
// exist: WatchOnlyNew skips history entirely and WatchFullHistory replays the
// whole stream.
type WatchID string

const (
	WatchOnlyNew     WatchID = "+"
	WatchFullHistory WatchID = "0"
)

type watchPosition struct {
	timestamp int64
	sequence  int64
}

func parseWatchPosition(id WatchID) (watchPosition, error) {
	raw := string(id)

	ts, seq, found := strings.Cut(raw, "-")
	if !found {
		// A bare millisecond timestamp is accepted and means sequence 0.
		seq = "0"
	}

	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || t < 0 {
		return watchPosition{}, fmt.Errorf("invalid watch id %q", raw)
	}
	s, err := strconv.ParseInt(seq, 10, 64)
	if err != nil || s < 0 {
		return watchPosition{}, fmt.Errorf("invalid watch id %q", raw)
	}

	return watchPosition{timestamp: t, sequence: s}, nil
}

// Validate reports whether the cursor is a sentinel or a well-formed stream
// position.
func (id WatchID) Validate() error {
	if id == WatchOnlyNew || id == WatchFullHistory {
		return nil
	}
	_, err := parseWatchPosition(id)
	return err
}

// Compare orders two cursors. WatchOnlyNew sorts after every position and
// WatchFullHistory before every position. Comparing malformed cursors returns
// an error.
func (id WatchID) Compare(other WatchID) (int, error) {
	rank := func(v WatchID) int {
		switch v {
		case WatchFullHistory:
			return -1
		case WatchOnlyNew:
			return 1
		}
		return 0
	}

	ra, rb := rank(id), rank(other)
	if ra != 0 || rb != 0 {
		switch {
		case ra < rb:
			return -1, nil
		case ra > rb:
			return 1, nil
		default:
			return 0, nil
		}
	}

	a, err := parseWatchPosition(id)
	if err != nil {
		return 0, err
	}
	b, err := parseWatchPosition(other)
	if err != nil {
		return 0, err
	}

	switch {
	case a.timestamp != b.timestamp:
		if a.timestamp < b.timestamp {
			return -1, nil
		}
		return 1, nil
	case a.sequence != b.sequence:
		if a.sequence < b.sequence {
			return -1, nil
		}
		return 1, nil
	}
	return 0, nil
}

// WatchedResponse is one delivered entry of a response stream: the cursor of
// the entry and the response body.
type WatchedResponse struct {
	LastWatchID WatchID
	Data        map[string]any
}
