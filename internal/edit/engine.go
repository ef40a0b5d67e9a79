// Package edit implements the fuzzy edit engine: a cascade of nine matchers
// of decreasing precision that locate a caller-supplied old snippet in file
// content despite whitespace, indentation, and escape-convention drift,
// splice in the replacement, and emit a unified diff.
//
// The engine is purely synchronous and performs no I/O; callers hand it
// in-memory content and write the result through the atomic writer.
package edit

import (
	"sort"
	"strings"
	"time"

	"github.com/jpl-au/coderd/internal/coderr"
	"github.com/jpl-au/coderd/internal/diff"
	"github.com/jpl-au/coderd/internal/textutil"
)

// Mode selects the replacement policy.
type Mode int

const (
	// ReplaceFirst replaces the single unambiguous match.
	ReplaceFirst Mode = iota
	// ReplaceAll replaces every exact occurrence.
	ReplaceAll
)

// DefaultBudget bounds the matcher cascade's wall-clock time per call.
const DefaultBudget = 2 * time.Second

// Options carries per-call settings for Apply.
type Options struct {
	// Path is the workspace-relative file path named in diff headers.
	Path string
	// Deadline bounds the cascade; the zero value applies DefaultBudget.
	// Checked between matcher layers, so timeouts are cooperative.
	Deadline time.Time
}

// Result is a successful edit. Applying Diff to the input content yields
// Content.
type Result struct {
	Content      string
	Diff         string
	Replacements int
	MatcherID    int
}

// Apply locates old in content per mode, splices in new, and returns the
// edited content with a unified diff. The cascade is the only retry policy:
// each layer either decides the outcome or produces nothing and cedes to
// the next.
func Apply(content, old, newStr string, mode Mode, opts Options) (Result, error) {
	if old == "" {
		return Result{}, coderr.New(coderr.InvalidParams, "old string must not be empty")
	}

	deadline := opts.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(DefaultBudget)
	}

	if mode == ReplaceAll {
		return applyAll(content, old, newStr, opts)
	}

	for _, m := range cascade {
		if time.Now().After(deadline) {
			return Result{}, coderr.New(coderr.Timeout, "edit exceeded time budget")
		}
		cands := dedupe(m.match(content, old))
		if len(cands) == 0 {
			continue
		}
		chosen, err := selectCandidate(m, cands)
		if err != nil {
			return Result{}, err
		}
		return splice(content, newStr, chosen, m.id, opts)
	}

	return Result{}, coderr.New(coderr.NoMatch, "old string not found in file")
}

// applyAll runs only the multi-occurrence layer and replaces every
// occurrence left to right.
func applyAll(content, old, newStr string, opts Options) (Result, error) {
	cands := multiOccurrence.match(content, old)
	if len(cands) == 0 {
		return Result{}, coderr.New(coderr.NoMatch, "old string not found in file")
	}

	replacement := adaptLineEndings(content, newStr)
	var b strings.Builder
	b.Grow(len(content) + (len(replacement)-len(old))*len(cands))
	prev := 0
	for _, c := range cands {
		b.WriteString(content[prev:c.Start])
		b.WriteString(replacement)
		prev = c.End
	}
	b.WriteString(content[prev:])
	edited := b.String()

	return Result{
		Content:      edited,
		Diff:         diff.Unified(opts.Path, content, edited),
		Replacements: len(cands),
		MatcherID:    multiOccurrence.id,
	}, nil
}

// selectCandidate applies the uniqueness policy: a single candidate wins;
// multiple exact candidates are a hard ambiguity; multiple fuzzy candidates
// are ranked by score, then smaller range, then earlier position, and a tie
// at the top is a hard ambiguity.
func selectCandidate(m matcher, cands []Candidate) (Candidate, error) {
	if len(cands) == 1 {
		return cands[0], nil
	}
	if m.confidence == ConfidenceExact {
		return Candidate{}, coderr.New(coderr.Ambiguous,
			"%d matches found; narrow the context", len(cands))
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		si, sj := cands[i].End-cands[i].Start, cands[j].End-cands[j].Start
		if si != sj {
			return si < sj
		}
		return cands[i].Start < cands[j].Start
	})

	top, second := cands[0], cands[1]
	if top.Score == second.Score &&
		top.End-top.Start == second.End-second.Start &&
		top.Start == second.Start {
		return Candidate{}, coderr.New(coderr.Ambiguous,
			"%d equally plausible matches; narrow the context", len(cands))
	}
	return top, nil
}

// splice builds the edited content from a single chosen range.
func splice(content, newStr string, c Candidate, matcherID int, opts Options) (Result, error) {
	replacement := adaptLineEndings(content, newStr)
	edited := content[:c.Start] + replacement + content[c.End:]
	return Result{
		Content:      edited,
		Diff:         diff.Unified(opts.Path, content, edited),
		Replacements: 1,
		MatcherID:    matcherID,
	}, nil
}

// adaptLineEndings converts the replacement's bare \n terminators to \r\n
// when the file is CRLF-dominant, so an edit never changes the file's line
// ending convention.
func adaptLineEndings(content, newStr string) string {
	if !strings.Contains(newStr, "\n") {
		return newStr
	}
	if !textutil.DominantCRLF(content) {
		return newStr
	}
	if strings.Contains(newStr, "\r\n") {
		return newStr
	}
	return textutil.ConvertToCRLF(newStr)
}

// dedupe drops candidates with identical ranges, keeping the best score.
func dedupe(cands []Candidate) []Candidate {
	if len(cands) < 2 {
		return cands
	}
	type key struct{ s, e int }
	seen := make(map[key]int, len(cands))
	out := cands[:0]
	for _, c := range cands {
		k := key{c.Start, c.End}
		if i, ok := seen[k]; ok {
			if c.Score > out[i].Score {
				out[i].Score = c.Score
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, c)
	}
	return out
}

// MatcherName reports the cascade layer name for a matcher id, for audit
// logging and tool output.
func MatcherName(id int) string {
	for _, m := range cascade {
		if m.id == id {
			return m.name
		}
	}
	if id == multiOccurrence.id {
		return multiOccurrence.name
	}
	return "unknown"
}
