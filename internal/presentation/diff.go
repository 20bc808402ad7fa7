package presentation

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffOp is the kind of a diff line.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

// DiffLine is one line of a line-oriented diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// LineDiff compares old and new line by line.
func LineDiff(oldText, newText string) []DiffLine {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		}
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

// Changed reports whether any line was inserted or deleted.
func Changed(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Op != DiffEqual {
			return true
		}
	}
	return false
}

// FormatDiff renders changed lines prefixed with "+ " or "- ". Unchanged lines are
// omitted unless context is true, in which case they are prefixed with "  ".
func FormatDiff(lines []DiffLine, context bool) string {
	var sb strings.Builder
	for _, l := range lines {
		switch l.Op {
		case DiffInsert:
			sb.WriteString("+ ")
		case DiffDelete:
			sb.WriteString("- ")
		default:
			if !context {
				continue
			}
			sb.WriteString("  ")
		}
		sb.WriteString(l.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Listing renders sections as stable "section key = reference" lines for diffing.
func Listing(sections []SectionDTO) string {
	var sb strings.Builder
	for _, s := range sections {
		for _, e := range s.Entries {
			sb.WriteString(s.Name)
			sb.WriteString(" ")
			sb.WriteString(e.Key)
			sb.WriteString(" = ")
			sb.WriteString(e.Reference)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
