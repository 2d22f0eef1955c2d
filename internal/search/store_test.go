// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Result {
	return []Result{
		{ID: "1", Title: "a", RelevanceScore: 0.9},
		{ID: "2", Title: "b", RelevanceScore: 0.4},
		{ID: "3", Title: "c", RelevanceScore: 0.95, RerankScore: score(0.2)},
	}
}

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestStoreThresholdGating(t *testing.T) {
	s := NewStore()
	s.SetResults(sample())
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Active()))

	s.SetThreshold(40)
	assert.Equal(t, []string{"1", "2"}, ids(s.Active()))

	s.SetThreshold(41)
	assert.Equal(t, []string{"1"}, ids(s.Active()))

	// all keeps rank order and is untouched
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.All()))
}

func TestStoreThresholdIdempotent(t *testing.T) {
	for _, th := range []int{0, 20, 40, 90, 100} {
		s := NewStore()
		s.SetResults(sample())
		s.SetThreshold(th)
		first := s.Active()
		s.SetResults(sample())
		s.SetThreshold(th)
		assert.Equal(t, first, s.Active(), "threshold %d", th)
	}
}

func TestStoreClampsThreshold(t *testing.T) {
	s := NewStore()
	s.SetThreshold(-5)
	assert.Equal(t, 0, s.Threshold())
	s.SetThreshold(250)
	assert.Equal(t, 100, s.Threshold())
}

func TestActiveOrFallbackAsymmetry(t *testing.T) {
	r1 := Result{ID: "1", RelevanceScore: 0.5}
	r2 := Result{ID: "2", RelevanceScore: 0.7}

	s := NewStore()
	s.SetResults([]Result{r1, r2})
	assert.Equal(t, []string{"1", "2"}, ids(s.ActiveOrFallback()))

	s.SetThreshold(101)
	assert.Equal(t, 100, s.Threshold())
	assert.Empty(t, s.ActiveOrFallback())
	assert.True(t, s.Snapshot().Dimmed)
}

func TestActiveOrFallbackEmptyStore(t *testing.T) {
	s := NewStore()
	s.SetThreshold(50)
	assert.Empty(t, s.ActiveOrFallback())
	assert.Empty(t, s.Active())
}

func TestNewResultsRecomputeWithCurrentThreshold(t *testing.T) {
	s := NewStore()
	s.SetThreshold(80)
	s.SetResults(sample())
	assert.Equal(t, []string{"1"}, ids(s.Active()))

	s.SetResults([]Result{{ID: "9", RelevanceScore: 0.81}})
	assert.Equal(t, []string{"9"}, ids(s.Active()))
	assert.False(t, s.Snapshot().Dimmed)
}

func TestStoreDoesNotAliasInput(t *testing.T) {
	in := sample()
	s := NewStore()
	s.SetResults(in)
	in[0].Title = "mutated"
	assert.Equal(t, "a", s.All()[0].Title)

	out := s.All()
	out[0].Title = "mutated"
	assert.Equal(t, "a", s.All()[0].Title)
}

func TestStoreObservers(t *testing.T) {
	s := NewStore()

	var snaps []Snapshot
	unsubscribe := s.OnResultsChanged(func(snap Snapshot) {
		snaps = append(snaps, snap)
	})

	s.SetResults(sample())
	s.SetThreshold(50)
	require.Len(t, snaps, 2)
	assert.Len(t, snaps[0].Active, 3)
	assert.Equal(t, 50, snaps[1].Threshold)
	assert.Len(t, snaps[1].Active, 1)

	unsubscribe()
	s.SetThreshold(0)
	assert.Len(t, snaps, 2)
}

func TestObserverMayReadStore(t *testing.T) {
	s := NewStore()
	var seen int
	s.OnResultsChanged(func(Snapshot) { seen = len(s.Active()) })
	s.SetResults(sample())
	assert.Equal(t, 3, seen)
}

func TestStoreConcurrentReadersSeeWholeSets(t *testing.T) {
	s := NewStore()
	a := sample()
	b := []Result{{ID: "x", RelevanceScore: 1}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.SetResults(a)
			} else {
				s.SetResults(b)
			}
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			if n := len(snap.All); n != 0 && n != 1 && n != 3 {
				t.Errorf("torn read: %d results", n)
			}
		}()
	}
	wg.Wait()
}

func TestThresholdFromRatio(t *testing.T) {
	assert.Equal(t, 35, ThresholdFromRatio(0.35))
	assert.Equal(t, 100, ThresholdFromRatio(1.7))
	assert.Equal(t, 0, ThresholdFromRatio(-0.2))
}

func TestSnapshotRanked(t *testing.T) {
	s := NewStore()
	s.SetResults(sample())
	s.SetThreshold(41)

	ranked := s.Snapshot().Ranked()
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)

	s.SetThreshold(10)
	ranked = s.Snapshot().Ranked()
	require.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})

	s.SetResults([]Result{{ID: "a", RelevanceScore: 0.1}, {ID: "b", RelevanceScore: 0.6}})
	s.SetThreshold(50)
	ranked = s.Snapshot().Ranked()
	require.Len(t, ranked, 1)
	assert.Equal(t, 2, ranked[0].Rank)
	assert.Equal(t, "b", ranked[0].Result.ID)
}
