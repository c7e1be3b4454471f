package chunk

import (
	"sort"
	"strings"
)

// maxHeaderDepth bounds how deep the header hierarchy is tracked.
// Levels 4+ are treated as body text.
const maxHeaderDepth = 3

// headerEvent records the header stack in effect from offset onward.
// stack[0] is the current level-1 header line, stack[1] level-2, and so on.
// An empty slot means no header at that level is in effect.
type headerEvent struct {
	offset int
	stack  [maxHeaderDepth]string
}

// scanHeaders walks the document once, front to back, and records every point
// where the header stack changes. A shallower header resets all deeper levels:
// a new "# " clears "## " and "### ", a new "## " clears "### ".
func scanHeaders(text string) []headerEvent {
	var events []headerEvent
	var stack [maxHeaderDepth]string

	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text)
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}

		if level, ok := headerLevel(line); ok {
			stack[level-1] = strings.TrimRight(line, " \t")
			for i := level; i < maxHeaderDepth; i++ {
				stack[i] = ""
			}
			events = append(events, headerEvent{offset: offset, stack: stack})
		}
		offset = next
	}
	return events
}

// headerLevel reports the markdown header level of a line, up to
// maxHeaderDepth. Requires the "# " form: hashes followed by a space.
func headerLevel(line string) (int, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > maxHeaderDepth {
		return 0, false
	}
	if level >= len(line) || line[level] != ' ' {
		return 0, false
	}
	return level, true
}

// headersAt returns the header path in effect at a byte offset, ordered from
// level 1 down. Lookup is a binary search over the scan events, so computing
// headers for every chunk of a document stays O(chunks * log headers).
func headersAt(events []headerEvent, offset int) []string {
	i := sort.Search(len(events), func(i int) bool {
		return events[i].offset > offset
	})
	if i == 0 {
		return nil
	}
	stack := events[i-1].stack
	var path []string
	for _, h := range stack {
		if h != "" {
			path = append(path, h)
		}
	}
	return path
}

// JoinHeaders renders a header path for persistence, e.g.
// "# Title > ## Section".
func JoinHeaders(headers []string) string {
	return strings.Join(headers, " > ")
}
