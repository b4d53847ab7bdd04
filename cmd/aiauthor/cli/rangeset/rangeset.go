// Package rangeset implements the Line-Range Algebra component (spec §4.3):
// pure functions over finite sets of 1-indexed positive integers, represented
// in normal form as an ordered, disjoint sequence of inclusive ranges.
package rangeset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is an inclusive line range, Start <= End, both 1-indexed.
type Range struct {
	Start int
	End   int
}

// Set is a line range set in normal form: sorted by Start, no overlapping or
// adjacent ranges (adjacent ranges are fused). The empty set is represented
// as a nil or zero-length slice.
type Set []Range

// New builds a Set from arbitrary (possibly overlapping/unsorted) ranges,
// normalizing them.
func New(ranges ...Range) Set {
	return normalize(ranges)
}

// Single returns a Set containing exactly one line.
func Single(line int) Set {
	return Set{{Start: line, End: line}}
}

// Span returns a Set containing exactly one inclusive range [start, end].
func Span(start, end int) Set {
	if start > end {
		return nil
	}
	return Set{{Start: start, End: end}}
}

// IsEmpty reports whether the set has no lines.
func (s Set) IsEmpty() bool {
	return len(s) == 0
}

// Len returns the total number of lines in the set.
func (s Set) Len() int {
	n := 0
	for _, r := range s {
		n += r.End - r.Start + 1
	}
	return n
}

// Contains reports whether line is a member of the set.
func (s Set) Contains(line int) bool {
	for _, r := range s {
		if line < r.Start {
			return false
		}
		if line <= r.End {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	if len(s) == 0 {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// normalize sorts ranges by start and fuses overlapping or adjacent ranges.
func normalize(ranges []Range) Set {
	clean := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Start > r.End {
			continue
		}
		clean = append(clean, r)
	}
	if len(clean) == 0 {
		return nil
	}
	sort.Slice(clean, func(i, j int) bool {
		return clean[i].Start < clean[j].Start
	})

	out := make(Set, 0, len(clean))
	cur := clean[0]
	for _, r := range clean[1:] {
		if r.Start <= cur.End+1 {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// Union returns the set union of R and S, in normal form.
func Union(r, s Set) Set {
	combined := make([]Range, 0, len(r)+len(s))
	combined = append(combined, r...)
	combined = append(combined, s...)
	return normalize(combined)
}

// Subtract returns R with every line in S removed, in normal form.
func Subtract(r, s Set) Set {
	if len(r) == 0 || len(s) == 0 {
		return r.Clone()
	}
	out := make(Set, 0, len(r))
	for _, rr := range r {
		segStart := rr.Start
		for _, ss := range s {
			if ss.End < segStart {
				continue
			}
			if ss.Start > rr.End {
				break
			}
			if ss.Start > segStart {
				out = append(out, Range{Start: segStart, End: ss.Start - 1})
			}
			if ss.End+1 > segStart {
				segStart = ss.End + 1
			}
			if segStart > rr.End {
				break
			}
		}
		if segStart <= rr.End {
			out = append(out, Range{Start: segStart, End: rr.End})
		}
	}
	return normalize(out)
}

// Intersect returns the lines present in both R and S, in normal form.
func Intersect(r, s Set) Set {
	if len(r) == 0 || len(s) == 0 {
		return nil
	}
	out := make([]Range, 0)
	i, j := 0, 0
	for i < len(r) && j < len(s) {
		start := max(r[i].Start, s[j].Start)
		end := min(r[i].End, s[j].End)
		if start <= end {
			out = append(out, Range{Start: start, End: end})
		}
		if r[i].End < s[j].End {
			i++
		} else {
			j++
		}
	}
	return normalize(out)
}

// Shift returns R with every line moved by delta (negative shifts left). Any
// resulting non-positive line numbers are dropped.
func Shift(r Set, delta int) Set {
	if delta == 0 {
		return r.Clone()
	}
	out := make([]Range, 0, len(r))
	for _, rr := range r {
		start := rr.Start + delta
		end := rr.End + delta
		if end < 1 {
			continue
		}
		if start < 1 {
			start = 1
		}
		out = append(out, Range{Start: start, End: end})
	}
	return normalize(out)
}

// Hunk describes one contiguous region rewritten between an old and a new
// text, transporting line numbering: old_start/old_len describe the region
// of the old text replaced, new_start/new_len describe the region of the new
// text that replaces it (spec §4.3). Line numbers are 1-indexed. OldLen==0
// marks a pure insertion; NewLen==0 marks a pure deletion.
type Hunk struct {
	OldStart int
	OldLen   int
	NewStart int
	NewLen   int
}

// oldEnd returns the last old-side line this hunk covers, or OldStart-1 for
// a pure insertion (an empty span just before OldStart).
func (h Hunk) oldEnd() int {
	if h.OldLen == 0 {
		return h.OldStart - 1
	}
	return h.OldStart + h.OldLen - 1
}

// Reproject transports R from the pre-image line numbering to the
// post-image line numbering through the given hunk sequence (spec §4.3):
//
//   - a line wholly outside any hunk's old range is shifted by the
//     cumulative (new_len - old_len) of prior hunks;
//   - a line inside a hunk's old range is removed (it no longer exists);
//   - lines added by a hunk are never introduced into the result (they
//     belong to whoever authored the hunk, not to whoever R attributed
//     before).
//
// hunks must be sorted by OldStart and non-overlapping (as produced by
// difflines.Hunks).
func Reproject(r Set, hunks []Hunk) Set {
	if len(r) == 0 {
		return nil
	}
	if len(hunks) == 0 {
		return r.Clone()
	}

	out := make([]Range, 0, len(r))
	// cumulative and hi are shared across all ranges of R: both R's ranges
	// and hunks are processed in strictly ascending order, so a hunk's delta
	// is folded into cumulative exactly once, the moment the scan position
	// moves past that hunk's old range - regardless of whether that happens
	// while processing one R range or a later one.
	cumulative := 0
	hi := 0

	for _, rr := range r {
		start, end := rr.Start, rr.End
		for start <= end {
			// Skip hunks entirely behind the scan position, folding each
			// one's delta into cumulative exactly when we pass it. This
			// also accounts for pure-insertion hunks (OldLen==0, so
			// oldEnd()==OldStart-1): they are always "behind" the position
			// they're inserted at, so they fall through here as a pure
			// shift with nothing to drop.
			for hi < len(hunks) && hunks[hi].oldEnd() < start {
				cumulative += hunks[hi].NewLen - hunks[hi].OldLen
				hi++
			}
			if hi >= len(hunks) || end < hunks[hi].OldStart {
				// No relevant hunk intervenes in [start, end]: shift and emit.
				out = append(out, Range{Start: start + cumulative, End: end + cumulative})
				break
			}
			h := hunks[hi]
			if start < h.OldStart {
				// Emit the portion before the hunk starts, then continue
				// from the hunk's old start.
				out = append(out, Range{Start: start + cumulative, End: h.OldStart - 1 + cumulative})
				start = h.OldStart
				continue
			}
			// start is within the hunk's old range [h.OldStart, hEnd]:
			// these lines are rewritten and dropped from R. Advance start
			// past whichever is smaller, end or the hunk's old end; only
			// once we've scanned past the whole hunk do we fold its delta
			// into cumulative and move to the next hunk.
			hEnd := h.oldEnd()
			if end <= hEnd {
				start = end + 1
				if start > hEnd {
					cumulative += h.NewLen - h.OldLen
					hi++
				}
				break
			}
			start = hEnd + 1
			cumulative += h.NewLen - h.OldLen
			hi++
		}
	}

	return normalize(out)
}

// Equal reports whether two sets contain exactly the same lines (both are
// assumed to be in, or will be compared as, normal form).
func Equal(r, s Set) bool {
	rn, sn := normalize(r), normalize(s)
	if len(rn) != len(sn) {
		return false
	}
	for i := range rn {
		if rn[i] != sn[i] {
			return false
		}
	}
	return true
}

// Format renders a Set as a range-spec per spec §4.2/§6: comma-separated
// tokens, no whitespace, ascending, "N" or "N-M".
func (s Set) Format() string {
	if len(s) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(s))
	for _, r := range s {
		if r.Start == r.End {
			tokens = append(tokens, strconv.Itoa(r.Start))
		} else {
			tokens = append(tokens, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	return strings.Join(tokens, ",")
}

// Parse parses a range-spec string into a Set, validating the grammar: ascending,
// non-overlapping, non-adjacent-fused tokens with no whitespace. Returns an
// error if tokens are out of order, overlapping, or malformed.
func Parse(spec string) (Set, error) {
	if spec == "" {
		return nil, nil
	}
	if strings.ContainsAny(spec, " \t") {
		return nil, fmt.Errorf("range spec %q contains whitespace", spec)
	}
	tokens := strings.Split(spec, ",")
	out := make(Set, 0, len(tokens))
	prevEnd := 0
	for _, tok := range tokens {
		var start, end int
		if idx := strings.IndexByte(tok, '-'); idx >= 0 {
			var err error
			start, err = strconv.Atoi(tok[:idx])
			if err != nil {
				return nil, fmt.Errorf("invalid range token %q: %w", tok, err)
			}
			end, err = strconv.Atoi(tok[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid range token %q: %w", tok, err)
			}
			if start > end {
				return nil, fmt.Errorf("invalid range token %q: start > end", tok)
			}
		} else {
			var err error
			start, err = strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid range token %q: %w", tok, err)
			}
			end = start
		}
		if start < 1 {
			return nil, fmt.Errorf("invalid range token %q: must be positive", tok)
		}
		if start <= prevEnd {
			return nil, fmt.Errorf("range spec %q: tokens not in strict ascending, non-overlapping order", spec)
		}
		out = append(out, Range{Start: start, End: end})
		prevEnd = end
	}
	return out, nil
}
