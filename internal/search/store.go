// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"math"
	"slices"
	"sync"
)

// =============================================================================
// STORE
// =============================================================================

// MaxThreshold is the highest similarity threshold percentage.
const MaxThreshold = 100

// Snapshot is an immutable view of the store at one point in time.
type Snapshot struct {
	All       []Result
	Active    []Result
	Threshold int

	// Dimmed is true when a threshold pass has hidden at least one result.
	Dimmed bool
}

// ActiveOrFallback applies the Store.ActiveOrFallback rule to the snapshot.
func (s Snapshot) ActiveOrFallback() []Result {
	if len(s.Active) > 0 {
		return clone(s.Active)
	}
	if !s.Dimmed {
		return clone(s.All)
	}
	return []Result{}
}

// Ranked pairs each result of the fallback-aware active set with its
// 1-based rank in the full result list.
func (s Snapshot) Ranked() []RankedResult {
	useAll := len(s.Active) == 0 && !s.Dimmed
	out := make([]RankedResult, 0, len(s.All))
	for i, r := range s.All {
		if useAll || IsActive(r, s.Threshold) {
			out = append(out, RankedResult{Rank: i + 1, Result: r})
		}
	}
	return out
}

// RankedResult is a result with its position in the full list.
type RankedResult struct {
	Rank   int
	Result Result
}

// ChangeFunc observes store changes. It runs after the store lock is
// released and must not block.
type ChangeFunc func(Snapshot)

// Store holds the last completed result set and the subset that meets
// the similarity threshold. It is the only state shared between the
// search flow and the chat flow; all/active are replaced together.
//
// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	all       []Result
	active    []Result
	threshold int

	// dimmed records that a threshold pass has excluded something.
	dimmed bool

	obsMu     sync.Mutex
	observers map[int]ChangeFunc
	nextObsID int
}

// NewStore returns an empty store with threshold 0.
func NewStore() *Store {
	return &Store{observers: make(map[int]ChangeFunc)}
}

// SetResults replaces the full result set and recomputes the active set.
func (s *Store) SetResults(results []Result) {
	all := make([]Result, len(results))
	copy(all, results)

	s.mu.Lock()
	s.all = all
	s.recompute()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SetThreshold clamps percent to [0,100], recomputes the active set and
// notifies observers. Calling it twice with the same value yields the
// same active set.
func (s *Store) SetThreshold(percent int) {
	percent = ClampThreshold(percent)

	s.mu.Lock()
	s.threshold = percent
	s.recompute()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// recompute derives active from all. Caller holds mu.
func (s *Store) recompute() {
	active := make([]Result, 0, len(s.all))
	for _, r := range s.all {
		if IsActive(r, s.threshold) {
			active = append(active, r)
		}
	}
	s.active = active
	s.dimmed = len(active) < len(s.all)
}

// All returns the full result set in rank order.
func (s *Store) All() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.all)
}

// Active returns the results meeting the current threshold.
func (s *Store) Active() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.active)
}

// Threshold returns the current threshold percentage.
func (s *Store) Threshold() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// ActiveOrFallback returns the active set when it is non-empty. An empty
// active set falls back to all results only while no threshold pass has
// dimmed anything; once thresholding has excluded results, empty is
// returned as-is.
func (s *Store) ActiveOrFallback() []Result {
	return s.Snapshot().ActiveOrFallback()
}

// Snapshot returns a consistent copy of the store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		All:       clone(s.all),
		Active:    clone(s.active),
		Threshold: s.threshold,
		Dimmed:    s.dimmed,
	}
}

// =============================================================================
// OBSERVERS
// =============================================================================

// OnResultsChanged registers fn and returns a function that removes it.
func (s *Store) OnResultsChanged(fn ChangeFunc) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]ChangeFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// ClampThreshold bounds percent to [0, MaxThreshold].
func ClampThreshold(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > MaxThreshold {
		return MaxThreshold
	}
	return percent
}

// ThresholdFromRatio converts a 0-1 similarity ratio (as served by the
// backend config) to a clamped percentage.
func ThresholdFromRatio(ratio float64) int {
	return ClampThreshold(int(math.Round(ratio * 100)))
}

func clone(rs []Result) []Result {
	out := make([]Result, len(rs))
	copy(out, rs)
	return out
}
