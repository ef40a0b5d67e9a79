// matchers.go implements the nine-layer matcher cascade. Each matcher is a
// pure function from (haystack, needle) to candidate byte ranges in the
// haystack. Matchers are ordered by decreasing precision: earlier layers
// only match under stricter equivalences, so the orchestrator can stop at
// the first layer that produces candidates.
package edit

import (
	"strings"

	"github.com/jpl-au/coderd/internal/textutil"
)

// Confidence classifies how literally a matcher interprets the needle. The
// orchestrator refuses to auto-disambiguate multiple exact candidates but
// will pick the best-scoring normalized or approximate one.
type Confidence int

const (
	ConfidenceExact Confidence = iota
	ConfidenceNormalized
	ConfidenceApproximate
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExact:
		return "exact"
	case ConfidenceNormalized:
		return "normalized"
	default:
		return "approximate"
	}
}

// Candidate is a half-open byte range in the haystack that a matcher
// considers equivalent to the needle. Score is a similarity estimate in
// [0,1]; exact and normalized matchers leave it at 1.
type Candidate struct {
	Start int
	End   int
	Score float64
}

type matchFunc func(haystack, needle string) []Candidate

type matcher struct {
	id         int
	name       string
	confidence Confidence
	match      matchFunc
}

// Similarity thresholds and window tolerance for the approximate matchers.
// These are calibration points, not hard contracts; tests pin the current
// values.
const (
	blockAnchorThreshold  = 0.8
	contextAwareThreshold = 0.85
	blockSizeTolerance    = 0.3
)

// contextAwareMinLines is the smallest needle the context matcher accepts:
// two context lines on each side plus at least one interior line.
const contextAwareMinLines = 5

var cascade = []matcher{
	{1, "exact", ConfidenceExact, matchExact},
	{2, "line-trimmed", ConfidenceExact, matchLineTrimmed},
	{3, "block-anchor", ConfidenceApproximate, matchBlockAnchor},
	{4, "whitespace-normalized", ConfidenceNormalized, matchWhitespaceNormalized},
	{5, "indentation-flexible", ConfidenceNormalized, matchIndentFlexible},
	{6, "escape-normalized", ConfidenceNormalized, matchEscapeNormalized},
	{7, "trimmed-boundary", ConfidenceNormalized, matchTrimmedBoundary},
	{8, "context-aware", ConfidenceApproximate, matchContextAware},
}

// multiOccurrence is layer 9, consulted only in replace-all mode.
var multiOccurrence = matcher{9, "multi-occurrence", ConfidenceExact, matchExact}

// matchExact returns every non-overlapping byte-for-byte occurrence.
func matchExact(haystack, needle string) []Candidate {
	var out []Candidate
	off := 0
	for {
		i := strings.Index(haystack[off:], needle)
		if i < 0 {
			return out
		}
		start := off + i
		out = append(out, Candidate{Start: start, End: start + len(needle), Score: 1})
		off = start + len(needle)
	}
}

// needleLines splits the needle into lines and drops the empty trailing
// element produced by a final newline. endsWithNL tells window matchers
// whether the candidate range should absorb the matched block's final
// terminator.
func needleLines(needle string) (lines []textutil.Line, endsWithNL bool) {
	lines = textutil.SplitLines(needle)
	last := lines[len(lines)-1]
	if last.Content == "" && last.Term == "" && len(lines) > 1 {
		return lines[:len(lines)-1], true
	}
	return lines, false
}

// windowRange computes the candidate byte range for haystack lines
// [i, i+n), including the last line's terminator only when the needle
// itself ended with a newline.
func windowRange(hLines []textutil.Line, starts []int, i, n int, withTerm bool) (int, int) {
	last := hLines[i+n-1]
	end := starts[i+n-1] + len(last.Content)
	if withTerm {
		end += len(last.Term)
	}
	return starts[i], end
}

// matchLineTrimmed matches line windows whose per-line trimmed content
// equals the needle's trimmed lines. The candidate spans the untrimmed
// haystack lines.
func matchLineTrimmed(haystack, needle string) []Candidate {
	nl, withNL := needleLines(needle)
	hl := textutil.SplitLines(haystack)
	if len(nl) > len(hl) {
		return nil
	}
	starts := textutil.LineStarts(hl)

	var out []Candidate
	for i := 0; i+len(nl) <= len(hl); i++ {
		ok := true
		for j := range nl {
			if strings.TrimSpace(hl[i+j].Content) != strings.TrimSpace(nl[j].Content) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		s, e := windowRange(hl, starts, i, len(nl), withNL)
		out = append(out, Candidate{Start: s, End: e, Score: 1})
	}
	return out
}

// matchBlockAnchor anchors on the needle's first and last trimmed lines and
// scores window interiors by Levenshtein similarity. Window length may
// drift from the needle's by up to blockSizeTolerance.
func matchBlockAnchor(haystack, needle string) []Candidate {
	nl, withNL := needleLines(needle)
	if len(nl) < 3 {
		return nil
	}
	hl := textutil.SplitLines(haystack)
	starts := textutil.LineStarts(hl)

	first := strings.TrimSpace(nl[0].Content)
	last := strings.TrimSpace(nl[len(nl)-1].Content)
	needleInterior := trimJoin(nl[1 : len(nl)-1])

	minLines := int(float64(len(nl)) * (1 - blockSizeTolerance))
	maxLines := int(float64(len(nl)) * (1 + blockSizeTolerance))
	if minLines < 2 {
		minLines = 2
	}

	var out []Candidate
	for i := range hl {
		if strings.TrimSpace(hl[i].Content) != first {
			continue
		}
		for j := i + 1; j < len(hl); j++ {
			n := j - i + 1
			if n > maxLines {
				break
			}
			if n < minLines || strings.TrimSpace(hl[j].Content) != last {
				continue
			}
			sim := textutil.Similarity(trimJoin(hl[i+1:j]), needleInterior)
			if sim < blockAnchorThreshold {
				continue
			}
			s, e := windowRange(hl, starts, i, n, withNL)
			out = append(out, Candidate{Start: s, End: e, Score: sim})
		}
	}
	return out
}

func trimJoin(lines []textutil.Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = strings.TrimSpace(l.Content)
	}
	return strings.Join(parts, "\n")
}

// matchWhitespaceNormalized searches for the needle after collapsing
// interior space/tab runs and trimming each line on both sides, mapping
// matches back through the normalization offset table.
func matchWhitespaceNormalized(haystack, needle string) []Candidate {
	nh, hmap := textutil.NormalizeSpace(haystack)
	nn, _ := textutil.NormalizeSpace(needle)
	if nn == "" {
		return nil
	}
	return mapOccurrences(nh, nn, hmap)
}

// matchEscapeNormalized searches after canonicalizing source-literal escape
// sequences on both sides, so a file containing \n as two characters still
// matches a needle holding a real newline and vice versa.
func matchEscapeNormalized(haystack, needle string) []Candidate {
	nh, hmap := textutil.NormalizeEscapes(haystack)
	nn, _ := textutil.NormalizeEscapes(needle)
	if nn == "" {
		return nil
	}
	return mapOccurrences(nh, nn, hmap)
}

// mapOccurrences finds every non-overlapping occurrence of nn in nh and
// maps the spans back to original haystack coordinates.
func mapOccurrences(nh, nn string, hmap *textutil.OffsetMap) []Candidate {
	var out []Candidate
	off := 0
	for {
		i := strings.Index(nh[off:], nn)
		if i < 0 {
			return out
		}
		start := off + i
		s, e := hmap.Span(start, start+len(nn))
		out = append(out, Candidate{Start: s, End: e, Score: 1})
		off = start + len(nn)
	}
}

// matchIndentFlexible strips the common indentation from the needle and
// from each same-height haystack window, then requires exact equality. A
// window matches when some uniform indent shift maps it onto the needle.
func matchIndentFlexible(haystack, needle string) []Candidate {
	nl, withNL := needleLines(needle)
	hl := textutil.SplitLines(haystack)
	if len(nl) > len(hl) {
		return nil
	}
	starts := textutil.LineStarts(hl)

	needleContents := make([]string, len(nl))
	for i, l := range nl {
		needleContents[i] = l.Content
	}
	dedentedNeedle := textutil.Dedent(needleContents)

	window := make([]string, len(nl))
	var out []Candidate
	for i := 0; i+len(nl) <= len(hl); i++ {
		for j := range nl {
			window[j] = hl[i+j].Content
		}
		if !equalLines(textutil.Dedent(window), dedentedNeedle) &&
			!sameIndentShape(window, needleContents) {
			continue
		}
		s, e := windowRange(hl, starts, i, len(nl), withNL)
		out = append(out, Candidate{Start: s, End: e, Score: 1})
	}
	return out
}

// sameIndentShape compares a window and needle by indent signature: line
// bodies must be equal after removing leading whitespace, and each line's
// indent width relative to its block minimum must agree, with tabs widened
// for comparison only. This lets a tab-indented window match a
// space-indented needle with the same shape.
func sameIndentShape(window, needle []string) bool {
	base := func(lines []string) (int, bool) {
		m, found := 0, false
		for _, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			w := textutil.IndentWidth(textutil.LeadingWhitespace(l))
			if !found || w < m {
				m, found = w, true
			}
		}
		return m, found
	}
	wBase, wOK := base(window)
	nBase, nOK := base(needle)
	if !wOK || !nOK {
		return false
	}
	for i := range window {
		wBlank := strings.TrimSpace(window[i]) == ""
		nBlank := strings.TrimSpace(needle[i]) == ""
		if wBlank || nBlank {
			if wBlank != nBlank {
				return false
			}
			continue
		}
		wInd := textutil.LeadingWhitespace(window[i])
		nInd := textutil.LeadingWhitespace(needle[i])
		if window[i][len(wInd):] != needle[i][len(nInd):] {
			return false
		}
		if textutil.IndentWidth(wInd)-wBase != textutil.IndentWidth(nInd)-nBase {
			return false
		}
	}
	return true
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchTrimmedBoundary drops the needle's leading and trailing all-blank
// lines, reruns the exact and line-trimmed layers with the shrunken needle,
// and re-expands matches over adjacent haystack blank lines only where the
// original needle had them.
func matchTrimmedBoundary(haystack, needle string) []Candidate {
	nl, _ := needleLines(needle)
	lead := 0
	for lead < len(nl) && strings.TrimSpace(nl[lead].Content) == "" {
		lead++
	}
	trail := 0
	for trail < len(nl)-lead && strings.TrimSpace(nl[len(nl)-1-trail].Content) == "" {
		trail++
	}
	if lead == 0 && trail == 0 {
		// Nothing to trim; earlier layers already covered this needle.
		return nil
	}
	if lead+trail >= len(nl) {
		return nil
	}

	core := textutil.JoinLines(nl[lead : len(nl)-trail])
	core = strings.TrimSuffix(core, "\r\n")
	core = strings.TrimSuffix(core, "\n")
	if core == "" {
		return nil
	}

	cands := matchExact(haystack, core)
	if len(cands) == 0 {
		cands = matchLineTrimmed(haystack, core)
	}
	if len(cands) == 0 {
		return nil
	}

	hl := textutil.SplitLines(haystack)
	starts := textutil.LineStarts(hl)
	for i := range cands {
		cands[i].Start, cands[i].End = expandBlankLines(hl, starts, cands[i].Start, cands[i].End, lead, trail)
		cands[i].Score = 1
	}
	return cands
}

// expandBlankLines grows a byte range over up to lead blank lines above and
// trail blank lines below, stopping at the first non-blank line.
func expandBlankLines(hl []textutil.Line, starts []int, start, end, lead, trail int) (int, int) {
	li := lineIndexAt(starts, start)
	for k := 0; k < lead && li > 0; k++ {
		if strings.TrimSpace(hl[li-1].Content) != "" {
			break
		}
		li--
		start = starts[li]
	}
	le := lineIndexAt(starts, end)
	for k := 0; k < trail && le+1 < len(hl); k++ {
		if strings.TrimSpace(hl[le+1].Content) != "" {
			break
		}
		le++
		end = starts[le] + len(hl[le].Content)
	}
	return start, end
}

// lineIndexAt returns the index of the line containing byte offset off.
func lineIndexAt(starts []int, off int) int {
	idx := 0
	for i, s := range starts {
		if s > off {
			break
		}
		idx = i
	}
	return idx
}

// matchContextAware anchors on the needle's first two and last two trimmed
// lines and accepts same-height windows whose interior scores at least
// contextAwareThreshold.
func matchContextAware(haystack, needle string) []Candidate {
	nl, withNL := needleLines(needle)
	if len(nl) < contextAwareMinLines {
		return nil
	}
	hl := textutil.SplitLines(haystack)
	if len(nl) > len(hl) {
		return nil
	}
	starts := textutil.LineStarts(hl)

	n := len(nl)
	top := [2]string{strings.TrimSpace(nl[0].Content), strings.TrimSpace(nl[1].Content)}
	bottom := [2]string{strings.TrimSpace(nl[n-2].Content), strings.TrimSpace(nl[n-1].Content)}
	needleInterior := trimJoin(nl[2 : n-2])

	var out []Candidate
	for i := 0; i+n <= len(hl); i++ {
		if strings.TrimSpace(hl[i].Content) != top[0] ||
			strings.TrimSpace(hl[i+1].Content) != top[1] ||
			strings.TrimSpace(hl[i+n-2].Content) != bottom[0] ||
			strings.TrimSpace(hl[i+n-1].Content) != bottom[1] {
			continue
		}
		sim := textutil.Similarity(trimJoin(hl[i+2:i+n-2]), needleInterior)
		if sim < contextAwareThreshold {
			continue
		}
		s, e := windowRange(hl, starts, i, n, withNL)
		out = append(out, Candidate{Start: s, End: e, Score: sim})
	}
	return out
}
