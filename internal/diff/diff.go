// Package diff emits POSIX unified diffs from a line-level LCS computed by
// sergi/go-diff. The edit engine returns its result through this package so
// callers always receive an applyable patch alongside the new content.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines emitted on each side of a
// change group.
const contextLines = 3

// coalesceGap is the largest run of unchanged lines allowed between two
// change groups before they are emitted as separate hunks.
const coalesceGap = 6

type op byte

const (
	opEqual  op = ' '
	opDelete op = '-'
	opInsert op = '+'
)

// entry is one line of the line-level diff. text excludes the terminator;
// noEOL marks a final line that had none.
type entry struct {
	op    op
	text  string
	noEOL bool
}

// Unified returns a unified diff between oldText and newText with --- / +++
// headers naming path (workspace-relative). The diff itself always uses \n
// line endings; \r from \r\n terminators is stripped from the emitted line
// text. Returns "" when nothing changed.
func Unified(path, oldText, newText string) string {
	if oldText == newText {
		return ""
	}

	entries := lineDiff(oldText, newText)

	hunks := groupHunks(entries)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)

	oldLine, newLine := 1, 1
	idx := 0
	for _, h := range hunks {
		// Advance line counters over the entries skipped before this hunk.
		for ; idx < h.start; idx++ {
			switch entries[idx].op {
			case opEqual:
				oldLine++
				newLine++
			case opDelete:
				oldLine++
			case opInsert:
				newLine++
			}
		}

		oldCount, newCount := 0, 0
		for i := h.start; i < h.end; i++ {
			switch entries[i].op {
			case opEqual:
				oldCount++
				newCount++
			case opDelete:
				oldCount++
			case opInsert:
				newCount++
			}
		}

		b.WriteString("@@ -")
		writeRange(&b, oldLine, oldCount)
		b.WriteString(" +")
		writeRange(&b, newLine, newCount)
		b.WriteString(" @@\n")

		for ; idx < h.end; idx++ {
			e := entries[idx]
			b.WriteByte(byte(e.op))
			b.WriteString(strings.TrimSuffix(e.text, "\r"))
			b.WriteByte('\n')
			if e.noEOL {
				b.WriteString("\\ No newline at end of file\n")
			}
			switch e.op {
			case opEqual:
				oldLine++
				newLine++
			case opDelete:
				oldLine++
			case opInsert:
				newLine++
			}
		}
	}

	return b.String()
}

// writeRange emits the "start,count" form of a hunk range, omitting the
// count when it is exactly one, as GNU diff does. A zero-count range names
// the line before the change.
func writeRange(b *strings.Builder, start, count int) {
	switch count {
	case 0:
		fmt.Fprintf(b, "%d,0", start-1)
	case 1:
		fmt.Fprintf(b, "%d", start)
	default:
		fmt.Fprintf(b, "%d,%d", start, count)
	}
}

// lineDiff computes a line-level diff using go-diff's line-to-char
// compaction, which makes DiffMain run its Myers LCS over whole lines
// rather than characters.
func lineDiff(oldText, newText string) []entry {
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var entries []entry
	for _, d := range diffs {
		var eop op
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			eop = opDelete
		case diffmatchpatch.DiffInsert:
			eop = opInsert
		default:
			eop = opEqual
		}
		for _, line := range splitKeepNL(d.Text) {
			e := entry{op: eop}
			if strings.HasSuffix(line, "\n") {
				e.text = line[:len(line)-1]
			} else {
				e.text = line
				e.noEOL = true
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// splitKeepNL splits s into lines, each keeping its trailing \n. A missing
// final newline produces a bare final element; an empty s produces none.
func splitKeepNL(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

type hunk struct {
	start, end int // half-open entry index range
}

// groupHunks finds change groups, expands each with context, and coalesces
// groups separated by at most coalesceGap unchanged lines.
func groupHunks(entries []entry) []hunk {
	var groups []hunk
	i := 0
	for i < len(entries) {
		if entries[i].op == opEqual {
			i++
			continue
		}
		start := i
		for i < len(entries) && entries[i].op != opEqual {
			i++
		}
		groups = append(groups, hunk{start: start, end: i})
	}
	if len(groups) == 0 {
		return nil
	}

	var merged []hunk
	cur := groups[0]
	for _, g := range groups[1:] {
		if g.start-cur.end <= coalesceGap {
			cur.end = g.end
			continue
		}
		merged = append(merged, cur)
		cur = g
	}
	merged = append(merged, cur)

	for i := range merged {
		merged[i].start = max(merged[i].start-contextLines, 0)
		merged[i].end = min(merged[i].end+contextLines, len(entries))
	}
	// Context expansion can make neighbours touch; fold them together.
	var out []hunk
	for _, h := range merged {
		if len(out) > 0 && h.start <= out[len(out)-1].end {
			out[len(out)-1].end = h.end
			continue
		}
		out = append(out, h)
	}
	return out
}
