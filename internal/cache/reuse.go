package cache

import "github.com/oukeidos/tdocs/internal/sanitize"

// ReuseMap serves previously stored translations by segment hash. Each hash
// holds a queue in storage order and every Take consumes the front, so the
// Nth occurrence of a repeated paragraph receives the Nth stored translation.
type ReuseMap struct {
	queues map[string][]string
}

// NewReuseMap builds a reuse map from stored segments. Translations are
// sanitized and empty results are left out.
func NewReuseMap(stored []StoredSegment) *ReuseMap {
	m := &ReuseMap{queues: make(map[string][]string)}
	for _, seg := range stored {
		if seg.Hash == "" {
			continue
		}
		if cleaned := sanitize.Text(seg.Translation); cleaned != "" {
			m.queues[seg.Hash] = append(m.queues[seg.Hash], cleaned)
		}
	}
	return m
}

// Take pops the next stored translation for hash.
func (m *ReuseMap) Take(hash string) (string, bool) {
	q := m.queues[hash]
	if len(q) == 0 {
		return "", false
	}
	m.queues[hash] = q[1:]
	return q[0], true
}

// Remaining returns the number of translations not yet taken for hash.
func (m *ReuseMap) Remaining(hash string) int {
	return len(m.queues[hash])
}
