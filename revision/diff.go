package revision

import (
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffOp is a line level change operation.
type DiffOp string

const (
	DiffEqual  DiffOp = "equal"
	DiffInsert DiffOp = "insert"
	DiffDelete DiffOp = "delete"
)

// DiffLine is one line of a diff result.
type DiffLine struct {
	Op   DiffOp `json:"op"`
	Text string `json:"text"`
}

// Diff is an ordered sequence of line operations.
type Diff []DiffLine

// Changed reports whether any line was inserted or deleted.
func (d Diff) Changed() bool {
	for _, line := range d {
		if line.Op != DiffEqual {
			return true
		}
	}
	return false
}

// Old returns the lines of the original value.
func (d Diff) Old() []string {
	return d.side(DiffDelete)
}

// New returns the lines of the updated value.
func (d Diff) New() []string {
	return d.side(DiffInsert)
}

func (d Diff) side(op DiffOp) []string {
	out := make([]string, 0, len(d))
	for _, line := range d {
		if line.Op == DiffEqual || line.Op == op {
			out = append(out, line.Text)
		}
	}
	return out
}

// Unified renders the diff in unified format with the given context lines.
func (d Diff) Unified(context int) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(d.Old()),
		B:        withNewlines(d.New()),
		FromFile: "Original",
		ToFile:   "New",
		Context:  context,
	})
}

// DiffRenderer turns old and new values into a displayable diff.
type DiffRenderer interface {
	Diff(oldValue, newValue string) Diff
}

// LineDiffer compares values line by line using difflib's sequence matcher.
type LineDiffer struct{}

var _ DiffRenderer = LineDiffer{}

// Diff implements DiffRenderer.
func (LineDiffer) Diff(oldValue, newValue string) Diff {
	a := splitLines(oldValue)
	b := splitLines(newValue)

	matcher := difflib.NewMatcher(a, b)
	out := Diff{}

	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e':
			out = appendLines(out, DiffEqual, a[op.I1:op.I2])
		case 'd':
			out = appendLines(out, DiffDelete, a[op.I1:op.I2])
		case 'i':
			out = appendLines(out, DiffInsert, b[op.J1:op.J2])
		case 'r':
			out = appendLines(out, DiffDelete, a[op.I1:op.I2])
			out = appendLines(out, DiffInsert, b[op.J1:op.J2])
		}
	}

	return out
}

func appendLines(out Diff, op DiffOp, lines []string) Diff {
	for _, line := range lines {
		out = append(out, DiffLine{Op: op, Text: line})
	}
	return out
}

// splitLines treats values that are not valid UTF-8 as a single opaque line.
func splitLines(value string) []string {
	if !utf8.ValidString(value) {
		return []string{value}
	}
	return strings.Split(value, "\n")
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line + "\n"
	}
	return out
}
