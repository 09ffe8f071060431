// Package hof maintains the complexity-indexed best-ever archive.
package hof

import (
	"fmt"

	"symvolve/internal/evo"
	"symvolve/internal/model"
)

// HallOfFame maps complexity c in [1, maxsize] to the best-scoring member
// ever seen at that complexity. Entries are independent snapshots; a slot
// is overwritten only on strict improvement and the archive never shrinks.
// Updates must be serialized by the caller — the orchestrator merges batch
// results at defined points, never from two workers at once.
type HallOfFame struct {
	maxSize int
	entries []*evo.PopMember // index 0 holds complexity 1
	exists  []bool
}

func New(maxSize int) (*HallOfFame, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("hall of fame size must be > 0")
	}
	return &HallOfFame{
		maxSize: maxSize,
		entries: make([]*evo.PopMember, maxSize),
		exists:  make([]bool, maxSize),
	}, nil
}

func (h *HallOfFame) MaxSize() int {
	return h.maxSize
}

// Update offers a member at the given complexity. Members beyond maxsize
// are ignored. Returns true when the slot was created or improved.
func (h *HallOfFame) Update(member *evo.PopMember, complexity int) bool {
	if complexity < 1 || complexity > h.maxSize {
		return false
	}
	idx := complexity - 1
	if h.exists[idx] && member.Score >= h.entries[idx].Score {
		return false
	}
	h.entries[idx] = member.Copy()
	h.exists[idx] = true
	return true
}

// At returns the snapshot stored at a complexity, if any.
func (h *HallOfFame) At(complexity int) (*evo.PopMember, bool) {
	if complexity < 1 || complexity > h.maxSize {
		return nil, false
	}
	idx := complexity - 1
	if !h.exists[idx] {
		return nil, false
	}
	return h.entries[idx].Copy(), true
}

// Best returns the lowest-loss entry across all complexities.
func (h *HallOfFame) Best() (*evo.PopMember, bool) {
	var best *evo.PopMember
	for i, ok := range h.exists {
		if !ok {
			continue
		}
		if best == nil || h.entries[i].Loss < best.Loss {
			best = h.entries[i]
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Copy(), true
}

// Entry pairs a snapshot with its complexity slot.
type Entry struct {
	Complexity int
	Member     *evo.PopMember
}

// Entries returns every occupied slot in complexity order.
func (h *HallOfFame) Entries() []Entry {
	out := make([]Entry, 0, h.maxSize)
	for i, ok := range h.exists {
		if !ok {
			continue
		}
		out = append(out, Entry{Complexity: i + 1, Member: h.entries[i].Copy()})
	}
	return out
}

// Frontier applies the dominance filter: walking complexities upward, keep
// an entry only when its loss strictly improves on every simpler entry.
func (h *HallOfFame) Frontier() []Entry {
	out := make([]Entry, 0, h.maxSize)
	bestLoss := 0.0
	first := true
	for i, ok := range h.exists {
		if !ok {
			continue
		}
		if !first && h.entries[i].Loss >= bestLoss {
			continue
		}
		bestLoss = h.entries[i].Loss
		first = false
		out = append(out, Entry{Complexity: i + 1, Member: h.entries[i].Copy()})
	}
	return out
}

func (h *HallOfFame) ToRecord(runID string) model.HallOfFameRecord {
	rec := model.HallOfFameRecord{
		RunID:   runID,
		MaxSize: h.maxSize,
		Exists:  append([]bool(nil), h.exists...),
	}
	rec.Entries = make([]model.MemberRecord, h.maxSize)
	for i, ok := range h.exists {
		if ok {
			rec.Entries[i] = h.entries[i].ToRecord(i + 1)
		}
	}
	return rec
}

func FromRecord(rec model.HallOfFameRecord) (*HallOfFame, error) {
	h, err := New(rec.MaxSize)
	if err != nil {
		return nil, err
	}
	if len(rec.Exists) != rec.MaxSize || len(rec.Entries) != rec.MaxSize {
		return nil, fmt.Errorf("hall of fame record length mismatch")
	}
	for i, ok := range rec.Exists {
		if !ok {
			continue
		}
		member, err := evo.MemberFromRecord(rec.Entries[i])
		if err != nil {
			return nil, fmt.Errorf("entry at complexity %d: %w", i+1, err)
		}
		h.entries[i] = member
		h.exists[i] = true
	}
	return h, nil
}
