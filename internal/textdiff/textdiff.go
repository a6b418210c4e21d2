// Package textdiff renders line diffs between two decrypted versions.
package textdiff

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	binarySampleSize   = 8000 // bytes inspected by IsText
	binaryThresholdPct = 30   // percent of control bytes tolerated in text
	contextLines       = 3
)

// IsText reports whether data looks like text rather than binary
func IsText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sample := data[:min(len(data), binarySampleSize)]
	if !utf8.Valid(sample) {
		return false
	}

	control := 0
	for _, b := range sample {
		// tab, newline and carriage return are text
		if (b < 32 && b != 9 && b != 10 && b != 13) || b == 127 {
			control++
		}
	}
	return control <= len(sample)*binaryThresholdPct/100
}

type line struct {
	op   diffmatchpatch.Operation
	text string
}

// Unified returns a unified diff from old to new with the given labels.
// Equal inputs give an empty string; binary inputs a one-line notice.
func Unified(oldLabel, newLabel string, oldData, newData []byte) string {
	if bytes.Equal(oldData, newData) {
		return ""
	}
	if !IsText(oldData) || !IsText(newData) {
		return fmt.Sprintf("Binary versions %s and %s differ\n", oldLabel, newLabel)
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(string(oldData), string(newData))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []line
	for _, d := range diffs {
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l != "" {
				lines = append(lines, line{op: d.Type, text: l})
			}
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", oldLabel, newLabel)
	for _, h := range hunks(lines) {
		writeHunk(&out, lines, h)
	}
	return out.String()
}

// hunk is a half-open range of lines plus the starting line numbers
type hunk struct {
	start, end       int
	oldLine, newLine int
}

func hunks(lines []line) []hunk {
	var out []hunk
	oldLine, newLine := 1, 1
	var cur *hunk
	lastChange := -1

	for i, l := range lines {
		if l.op != diffmatchpatch.DiffEqual {
			if cur == nil || i-lastChange > 2*contextLines {
				if cur != nil {
					cur.end = min(lastChange+contextLines+1, len(lines))
					out = append(out, *cur)
				}
				start := max(i-contextLines, 0)
				cur = &hunk{start: start, oldLine: oldLine - countOld(lines[start:i]), newLine: newLine - countNew(lines[start:i])}
			}
			lastChange = i
		}
		switch l.op {
		case diffmatchpatch.DiffEqual:
			oldLine++
			newLine++
		case diffmatchpatch.DiffDelete:
			oldLine++
		case diffmatchpatch.DiffInsert:
			newLine++
		}
	}
	if cur != nil {
		cur.end = min(lastChange+contextLines+1, len(lines))
		out = append(out, *cur)
	}
	return out
}

func countOld(lines []line) int {
	n := 0
	for _, l := range lines {
		if l.op != diffmatchpatch.DiffInsert {
			n++
		}
	}
	return n
}

func countNew(lines []line) int {
	n := 0
	for _, l := range lines {
		if l.op != diffmatchpatch.DiffDelete {
			n++
		}
	}
	return n
}

func writeHunk(out *strings.Builder, lines []line, h hunk) {
	body := lines[h.start:h.end]
	fmt.Fprintf(out, "@@ -%d,%d +%d,%d @@\n", h.oldLine, countOld(body), h.newLine, countNew(body))
	for _, l := range body {
		prefix := " "
		switch l.op {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		out.WriteString(prefix)
		out.WriteString(l.text)
		if !strings.HasSuffix(l.text, "\n") {
			out.WriteString("\n\\ No newline at end of file\n")
		}
	}
}
