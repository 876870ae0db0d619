package recorder

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
)

// extTagPattern matches vendor tags of the form #EXT-X-<NAME>:<VALUE>.
var extTagPattern = regexp.MustCompile(`#EXT-X-([^:\r\n]+):([^\r\n]+)`)

// headerLines counts the non-tag lines ahead of the first segment URI:
// #EXTM3U and the metadata line that precedes the first URI.
const headerLines = 2

// Playlist is the parsed result of one playlist poll.
type Playlist struct {
	// Tags maps vendor tag names (without the #EXT-X- prefix) to their raw values.
	Tags map[string]string
	// Segments yields segment URIs in playlist order, already resolved
	// against the playlist's host.
	Segments iter.Seq[string]
}

// ParsePlaylist extracts vendor tags and segment URIs from playlist text.
//
// The playlist is expected to carry a fixed header, one line per vendor tag,
// and then alternating URI and metadata lines, so segment URIs are every
// second line after the first 2+len(Tags) lines. Text shorter than that
// yields no segments. URIs that do not start with "http" are prefixed with
// the playlist URL minus its final path element.
func ParsePlaylist(text, playlistURL string) Playlist {
	tags := make(map[string]string)
	for _, m := range extTagPattern.FindAllStringSubmatch(text, -1) {
		tags[m[1]] = m[2]
	}

	lines := splitLines(text)
	skip := headerLines + len(tags)
	host := hostBase(playlistURL)

	segments := func(yield func(string) bool) {
		for i := skip; i < len(lines); i += 2 {
			uri := strings.TrimSpace(lines[i])
			if uri == "" {
				continue
			}
			if !yield(resolveSegmentURI(host, uri)) {
				return
			}
		}
	}

	return Playlist{Tags: tags, Segments: segments}
}

// TargetDuration returns the TARGETDURATION tag in seconds, or 0 when the
// tag is missing or not a number.
func (p Playlist) TargetDuration() float64 {
	v, ok := p.Tags["TARGETDURATION"]
	if !ok {
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// SegmentFileName returns the on-disk name for the index-th segment (from 1)
// of poll seq (from 1). Both numbers are zero padded so that lexical order
// is recording order.
func SegmentFileName(seq, index int) string {
	return fmt.Sprintf("%05d_%03d.ts", seq, index)
}

func resolveSegmentURI(host, uri string) string {
	if strings.HasPrefix(uri, "http") {
		return uri
	}
	return host + "/" + uri
}

// hostBase drops the final path element of a playlist URL:
// "http://h/live/index.m3u8" becomes "http://h/live".
func hostBase(playlistURL string) string {
	i := strings.LastIndex(playlistURL, "/")
	if i < 0 {
		return ""
	}
	return playlistURL[:i]
}

// splitLines splits on \n, \r\n or \r and drops the empty element after a
// trailing line break.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
