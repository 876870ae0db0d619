package recorder

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// IndexFileName is the playlist written next to the segments of a session
// when Config.WriteIndex is set.
const IndexFileName = "index.m3u8"

// IndexEntry is one saved segment as listed in the session playlist.
type IndexEntry struct {
	Name     string
	Duration float64
}

// SessionIndex collects the segments saved during a session so the
// recording can be played back as an HLS event playlist.
type SessionIndex struct {
	mu      sync.Mutex
	entries []IndexEntry
}

// Add records a saved segment. duration is in seconds.
func (x *SessionIndex) Add(name string, duration float64) {
	x.mu.Lock()
	x.entries = append(x.entries, IndexEntry{Name: name, Duration: duration})
	x.mu.Unlock()
}

// Entries returns the saved segments in recording order. Concurrent
// downloads may finish out of order, so entries are sorted by file name.
func (x *SessionIndex) Entries() []IndexEntry {
	x.mu.Lock()
	out := append([]IndexEntry(nil), x.entries...)
	x.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BuildSessionPlaylist renders entries as an HLS event playlist with paths
// relative to the session directory. If ended is true, #EXT-X-ENDLIST is
// appended so players treat the recording as complete.
func BuildSessionPlaylist(entries []IndexEntry, ended bool) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:EVENT\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", targetDurationOf(entries)))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for _, e := range entries {
		b.WriteString(fmt.Sprintf("#EXTINF:%.1f,\n", e.Duration))
		b.WriteString(e.Name)
		b.WriteString("\n")
	}

	if ended {
		b.WriteString("#EXT-X-ENDLIST\n")
	}

	return b.String()
}

// targetDurationOf returns the ceiling of the longest entry duration, at least 1.
func targetDurationOf(entries []IndexEntry) int {
	max := 0.0
	for _, e := range entries {
		if e.Duration > max {
			max = e.Duration
		}
	}
	if max <= 0 {
		return 1
	}
	return int(math.Ceil(max))
}
