package batch

import (
	"fmt"
	"strconv"
	"strings"
)

// Marker lines separate per-operation output inside one aggregated remote
// invocation. Each operation prints a begin marker, runs inside a guarded
// group with stderr folded into stdout, then prints its exit code. Markers
// are printed by the remote shell itself, so the parse works no matter how
// the operations interleave their own output.
const (
	beginMarkerPrefix = "__SSHMUX_BEGIN_"
	rcMarkerPrefix    = "__SSHMUX_RC_"
	markerSuffix      = "__"
)

// segmentScript assembles consecutive command operations into one shell
// script. offset is the batch-wide index of the first operation, so marker
// indices stay aligned with submission order. A failing operation never
// aborts the ones after it: each runs in its own guarded group.
func segmentScript(ops []Operation, offset int) string {
	var b strings.Builder
	for i, op := range ops {
		idx := offset + i
		fmt.Fprintf(&b, "printf '%%s\\n' %s%d%s; ", beginMarkerPrefix, idx, markerSuffix)
		fmt.Fprintf(&b, "{ %s\n} 2>&1; ", op.Command)
		fmt.Fprintf(&b, "printf '%s%d=%%d%s\\n' \"$?\"\n", rcMarkerPrefix, idx, markerSuffix)
	}
	return b.String()
}

// parseSegment splits the aggregated invocation's combined output back into
// per-operation output and exit codes. Operations whose markers never
// appeared (the transport died mid-segment) report fallbackExit.
func parseSegment(output string, offset, count, fallbackExit int) []opOutcome {
	outcomes := make([]opOutcome, count)
	for i := range outcomes {
		outcomes[i] = opOutcome{exitCode: fallbackExit, seen: false}
	}

	current := -1
	var buf strings.Builder
	flush := func() {
		if current >= 0 && current < count {
			outcomes[current].output = buf.String()
		}
		buf.Reset()
	}

	for _, line := range strings.Split(output, "\n") {
		if idx, ok := parseMarker(line, beginMarkerPrefix); ok {
			flush()
			current = idx - offset
			if current >= 0 && current < count {
				outcomes[current].seen = true
			}
			continue
		}
		if idx, rc, ok := parseRCMarker(line); ok {
			flush()
			pos := idx - offset
			if pos >= 0 && pos < count {
				outcomes[pos].exitCode = rc
			}
			current = -1
			continue
		}
		if current >= 0 {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()
	return outcomes
}

type opOutcome struct {
	output   string
	exitCode int
	seen     bool
}

// parseMarker matches "<prefix><index>__" lines.
func parseMarker(line, prefix string) (int, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, markerSuffix) {
		return 0, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, prefix), markerSuffix)
	idx, err := strconv.Atoi(body)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// parseRCMarker matches "__SSHMUX_RC_<index>=<code>__" lines.
func parseRCMarker(line string) (idx, rc int, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, rcMarkerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return 0, 0, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, rcMarkerPrefix), markerSuffix)
	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(body[:eq])
	if err != nil {
		return 0, 0, false
	}
	rc, err = strconv.Atoi(body[eq+1:])
	if err != nil {
		return 0, 0, false
	}
	return idx, rc, true
}
