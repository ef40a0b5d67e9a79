package edit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jpl-au/coderd/internal/coderr"
)

func kindOf(t *testing.T, err error) coderr.Kind {
	t.Helper()
	k, ok := coderr.KindOf(err)
	if !ok {
		t.Fatalf("error %v carries no kind", err)
	}
	return k
}

func TestApplyExactMatch(t *testing.T) {
	res, err := Apply("a\nb\nc\n", "b\n", "B\n", ReplaceFirst, Options{Path: "f.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "a\nB\nc\n" {
		t.Errorf("content = %q, want %q", res.Content, "a\nB\nc\n")
	}
	if res.Replacements != 1 {
		t.Errorf("replacements = %d, want 1", res.Replacements)
	}
	if res.MatcherID != 1 {
		t.Errorf("matcher = %d, want 1", res.MatcherID)
	}
	if !strings.Contains(res.Diff, "-b") || !strings.Contains(res.Diff, "+B") {
		t.Errorf("diff missing change lines:\n%s", res.Diff)
	}
}

func TestApplyWhitespaceTolerance(t *testing.T) {
	file := "fn f() {\n    return 1;\n}\n"
	old := "fn f() {\nreturn 1;\n}"
	new := "fn f() {\n    return 2;\n}"
	res, err := Apply(file, old, new, ReplaceFirst, Options{Path: "f.rs"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Replacements != 1 {
		t.Errorf("replacements = %d, want 1", res.Replacements)
	}
	if !strings.Contains(res.Content, "return 2;") {
		t.Errorf("content = %q, want return 2", res.Content)
	}
	// The line-trimmed layer is the first in the cascade whose equivalence
	// covers pure indentation drift, so it decides this edit.
	if res.MatcherID != 2 {
		t.Errorf("matcher = %d, want 2", res.MatcherID)
	}
}

func TestApplyAmbiguousRejected(t *testing.T) {
	_, err := Apply("x=1\nx=1\n", "x=1\n", "x=2\n", ReplaceFirst, Options{})
	if kindOf(t, err) != coderr.Ambiguous {
		t.Errorf("kind = %v, want Ambiguous", err)
	}
}

func TestApplyReplaceAll(t *testing.T) {
	res, err := Apply("x=1\nx=1\n", "x=1\n", "x=2\n", ReplaceAll, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "x=2\nx=2\n" {
		t.Errorf("content = %q, want %q", res.Content, "x=2\nx=2\n")
	}
	if res.Replacements != 2 {
		t.Errorf("replacements = %d, want 2", res.Replacements)
	}
	if res.MatcherID != 9 {
		t.Errorf("matcher = %d, want 9", res.MatcherID)
	}
}

func TestApplyEscapeNormalization(t *testing.T) {
	// File line 2 spells the newline as backslash-n; the needle holds a
	// real newline inside the quotes.
	file := "a\nx = \"line\\n\"\nb\n"
	old := "x = \"line\n\""
	new := "x = \"done\\n\""
	res, err := Apply(file, old, new, ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MatcherID != 6 {
		t.Errorf("matcher = %d, want 6", res.MatcherID)
	}
	if res.Content != "a\nx = \"done\\n\"\nb\n" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestApplyEmptyOldRejected(t *testing.T) {
	_, err := Apply("content", "", "new", ReplaceFirst, Options{})
	if kindOf(t, err) != coderr.InvalidParams {
		t.Errorf("kind = %v, want InvalidParams", err)
	}
}

func TestApplyNoMatch(t *testing.T) {
	_, err := Apply("a\nb\n", "zzz", "y", ReplaceFirst, Options{})
	if kindOf(t, err) != coderr.NoMatch {
		t.Errorf("kind = %v, want NoMatch", err)
	}
}

func TestApplyNoMatchReplaceAll(t *testing.T) {
	_, err := Apply("a\nb\n", "zzz", "y", ReplaceAll, Options{})
	if kindOf(t, err) != coderr.NoMatch {
		t.Errorf("kind = %v, want NoMatch", err)
	}
}

func TestApplyDeletion(t *testing.T) {
	res, err := Apply("a\nb\nc\n", "b\n", "", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "a\nc\n" {
		t.Errorf("content = %q, want %q", res.Content, "a\nc\n")
	}
	for _, line := range strings.Split(res.Diff, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			t.Errorf("deletion diff contains addition line %q", line)
		}
	}
}

func TestApplyWholeFile(t *testing.T) {
	res, err := Apply("x=1\n", "x=1\n", "y=2\n", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "y=2\n" {
		t.Errorf("content = %q, want %q", res.Content, "y=2\n")
	}
}

func TestApplyPreservesMissingTrailingNewline(t *testing.T) {
	res, err := Apply("a\nb", "b", "c", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "a\nc" {
		t.Errorf("content = %q, want %q", res.Content, "a\nc")
	}
	if !strings.Contains(res.Diff, "\\ No newline at end of file") {
		t.Errorf("diff missing no-newline marker:\n%s", res.Diff)
	}
}

func TestApplyConvertsLineEndings(t *testing.T) {
	file := "a\r\nb\r\nc\r\n"
	res, err := Apply(file, "b\r\n", "B1\nB2\n", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "a\r\nB1\r\nB2\r\nc\r\n" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestApplyKeepsLFInLFFile(t *testing.T) {
	res, err := Apply("a\nb\nc\n", "b\n", "B\n", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Content, "\r") {
		t.Errorf("LF file gained CR: %q", res.Content)
	}
}

func TestApplyExactDominance(t *testing.T) {
	// "foo bar" occurs once exactly; the whitespace-normalized layer would
	// also match the double-spaced line, but must never be consulted.
	file := "foo bar\nfoo  bar\n"
	res, err := Apply(file, "foo bar", "baz", ReplaceFirst, Options{Path: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MatcherID != 1 {
		t.Errorf("matcher = %d, want 1", res.MatcherID)
	}
	if res.Content != "baz\nfoo  bar\n" {
		t.Errorf("content = %q", res.Content)
	}
}

func TestApplyDeterministic(t *testing.T) {
	file := "start\n  a1\n  b2\nend\nstart\n  a1\n  c3\nend\n"
	old := "start\na1\nb2\nend"
	var first Result
	for i := 0; i < 5; i++ {
		res, err := Apply(file, old, "X", ReplaceFirst, Options{Path: "f"})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = res
			continue
		}
		if res != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, res, first)
		}
	}
}

func TestApplyTimeout(t *testing.T) {
	_, err := Apply("a\nb\n", "b", "c", ReplaceFirst, Options{
		Deadline: time.Now().Add(-time.Millisecond),
	})
	if kindOf(t, err) != coderr.Timeout {
		t.Errorf("kind = %v, want Timeout", err)
	}
}

func TestApplyErrorsAreClassified(t *testing.T) {
	_, err := Apply("x\n", "absent", "y", ReplaceFirst, Options{})
	var ce *coderr.Error
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a *coderr.Error", err)
	}
	if ce.Code() != coderr.CodeNoMatch {
		t.Errorf("code = %d, want %d", ce.Code(), coderr.CodeNoMatch)
	}
}

func TestMatcherName(t *testing.T) {
	if MatcherName(1) != "exact" {
		t.Errorf("MatcherName(1) = %q", MatcherName(1))
	}
	if MatcherName(9) != "multi-occurrence" {
		t.Errorf("MatcherName(9) = %q", MatcherName(9))
	}
	if MatcherName(42) != "unknown" {
		t.Errorf("MatcherName(42) = %q", MatcherName(42))
	}
}
