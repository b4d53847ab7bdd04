// Package difflines computes a line-granular hunk sequence between two text
// blobs, using sergi/go-diff's line-mode diff (the same DiffLinesToChars /
// DiffMain / DiffCharsToLines idiom the teacher uses in
// strategy/manual_commit_attribution.go to compute added/removed line
// counts). The hunk sequence this package produces is the transport format
// rangeset.Reproject consumes (spec §4.3).
package difflines

import (
	"strings"

	"github.com/aiauthor/cli/cmd/aiauthor/cli/rangeset"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Hunks computes the hunk sequence transporting line numbering from oldText
// to newText. Hunks are returned in ascending order of OldStart and do not
// overlap; unchanged spans between hunks are implicit.
func Hunks(oldText, newText string) []rangeset.Hunk {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	text1, text2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []rangeset.Hunk
	oldLine, newLine := 1, 1

	i := 0
	for i < len(diffs) {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			n := countLines(d.Text)
			oldLine += n
			newLine += n
			i++
		case diffmatchpatch.DiffDelete, diffmatchpatch.DiffInsert:
			oldStart, newStart := oldLine, newLine
			oldLen, newLen := 0, 0
			// A delete immediately followed by an insert (or vice versa) is one
			// hunk: a replace. Consume both sides before emitting.
			for i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual {
				n := countLines(diffs[i].Text)
				switch diffs[i].Type {
				case diffmatchpatch.DiffDelete:
					oldLen += n
					oldLine += n
				case diffmatchpatch.DiffInsert:
					newLen += n
					newLine += n
				}
				i++
			}
			hunks = append(hunks, rangeset.Hunk{
				OldStart: oldStart,
				OldLen:   oldLen,
				NewStart: newStart,
				NewLen:   newLen,
			})
		default:
			i++
		}
	}

	return hunks
}

// countLines counts the number of lines represented by a diff segment's
// text, consistent with the line-mode diff convention where each "line"
// (including its trailing newline) is one unit.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
