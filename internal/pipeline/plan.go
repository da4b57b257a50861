package pipeline

import (
	"github.com/oukeidos/tdocs/internal/cache"
	"github.com/oukeidos/tdocs/internal/segment"
)

// plan holds the per-position results of a document and the positions that
// still need a translator call.
type plan struct {
	segments []segment.Segment
	slots    []*segment.Result
	pending  []int
	reused   int
}

// newPlan fills blank segments with empty translations and serves the rest
// from stored translations where the hash matches, first occurrence first.
func newPlan(segments []segment.Segment, stored []cache.StoredSegment) *plan {
	p := &plan{
		segments: segments,
		slots:    make([]*segment.Result, len(segments)),
	}
	reuse := cache.NewReuseMap(stored)
	for i, seg := range segments {
		hash := seg.Hash()
		if seg.Blank() {
			p.slots[i] = &segment.Result{Hash: hash, Separator: seg.Separator}
			continue
		}
		if tr, ok := reuse.Take(hash); ok {
			p.slots[i] = &segment.Result{Hash: hash, Translation: tr, Separator: seg.Separator}
			p.reused++
			continue
		}
		p.pending = append(p.pending, i)
	}
	return p
}

func (p *plan) fill(i int, translation string) {
	seg := p.segments[i]
	p.slots[i] = &segment.Result{Hash: seg.Hash(), Translation: translation, Separator: seg.Separator}
}

// translatable reports whether any segment has content.
func translatable(segments []segment.Segment) bool {
	for _, s := range segments {
		if !s.Blank() {
			return true
		}
	}
	return false
}

// contentPositions returns the indexes of the non-blank segments.
func contentPositions(segments []segment.Segment) []int {
	var out []int
	for i, s := range segments {
		if !s.Blank() {
			out = append(out, i)
		}
	}
	return out
}

func nonBlankBodies(segments []segment.Segment) []string {
	var out []string
	for _, s := range segments {
		if !s.Blank() {
			out = append(out, s.Body)
		}
	}
	return out
}

func storedSegments(results []segment.Result) []cache.StoredSegment {
	out := make([]cache.StoredSegment, len(results))
	for i, r := range results {
		out[i] = cache.StoredSegment{Hash: r.Hash, Translation: r.Translation}
	}
	return out
}
