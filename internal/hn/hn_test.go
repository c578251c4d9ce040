package hn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
)

type fakeFetcher struct {
	ids     map[model.Category][]int
	idsErr  error
	stories map[int]model.Story
	delay   map[int]time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeFetcher) StoryIDs(_ context.Context, c model.Category) ([]int, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	return f.ids[c], nil
}

func (f *fakeFetcher) Story(ctx context.Context, id int) (model.Story, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if d := f.delay[id]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.Story{}, ctx.Err()
		}
	}
	s, ok := f.stories[id]
	if !ok {
		return model.Story{}, errors.New("not found")
	}
	return s, nil
}

func story(id int) model.Story {
	return model.Story{ID: id, Title: "story", By: "me", Type: "story"}
}

// runEpics feeds a through every epic, as applied to a fresh state, and
// concatenates their output.
func runEpics(epics []store.Epic[State], a store.Action) []store.Action {
	return runEpicsAt(epics, a, NewState(25))
}

func runEpicsAt(epics []store.Epic[State], a store.Action, s State) []store.Action {
	var out []store.Action
	for _, e := range epics {
		out = append(out, e(context.Background(), a, s)...)
	}
	return out
}

type foreign struct{}

func (foreign) Type() string { return "tada/other/NOOP" }

func TestNewStateDefaults(t *testing.T) {
	s := NewState(0)
	assert.Equal(t, model.CategoryNew, s.Category)
	assert.Equal(t, DefaultPendingLimit, s.PendingLimit)
	assert.False(t, s.Loading)
}

func TestSelectCategory(t *testing.T) {
	s := Reduce(NewState(25), SelectCategory{Category: model.CategoryBest})
	assert.Equal(t, model.CategoryBest, s.Category)
	assert.False(t, s.Loading)

	out := runEpics(Epics(&fakeFetcher{}, 25, zerolog.Nop()), SelectCategory{Category: model.CategoryBest})
	assert.Equal(t, []store.Action{GetStoryIDs{Category: model.CategoryBest}}, out)
}

func TestGetStoryIDsSetsLoading(t *testing.T) {
	initial := NewState(25)
	initial.Err = "old"
	s := Reduce(initial, GetStoryIDs{Category: model.CategoryNew})
	assert.True(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestGetStoryIDsEpicOrder(t *testing.T) {
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: {111, 222}}}

	out := runEpics(Epics(f, 2, zerolog.Nop()), GetStoryIDs{Category: model.CategoryNew})

	assert.Equal(t, []store.Action{
		IdentifierAccepted{ID: 111}, GetStory{ID: 111},
		IdentifierAccepted{ID: 222}, GetStory{ID: 222},
	}, out)
}

func TestGetStoryIDsEpicRespectsLimit(t *testing.T) {
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: {111, 222}}}

	out := runEpics(Epics(f, 1, zerolog.Nop()), GetStoryIDs{Category: model.CategoryNew})

	assert.Equal(t, []store.Action{IdentifierAccepted{ID: 111}, GetStory{ID: 111}}, out)
}

func TestGetStoryIDsEpicFailure(t *testing.T) {
	f := &fakeFetcher{idsErr: errors.New("boom")}

	out := runEpics(Epics(f, 25, zerolog.Nop()), GetStoryIDs{Category: model.CategoryTop})

	assert.Equal(t, []store.Action{StoryIDsFailed{Category: model.CategoryTop, Reason: "boom"}}, out)
}

func TestGetStoryIDsEpicEmptyListing(t *testing.T) {
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: {}}}

	out := runEpics(Epics(f, 25, zerolog.Nop()), GetStoryIDs{Category: model.CategoryNew})
	assert.Equal(t, []store.Action{NoStories{Category: model.CategoryNew}}, out)

	s := Reduce(Reduce(NewState(25), GetStoryIDs{Category: model.CategoryNew}), out[0])
	assert.False(t, s.Loading)
	assert.Empty(t, s.Err)
}

func TestEmptyListingSettlesNotLoading(t *testing.T) {
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: {}}}
	s := store.New(NewState(25), Reduce, Epics(f, 25, zerolog.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.Dispatch(SelectCategory{Category: model.CategoryNew}))
	settleCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	require.NoError(t, s.Settle(settleCtx))

	st := s.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.PendingIDs)
	assert.Empty(t, st.Stories)
}

func TestIdentifierAccepted(t *testing.T) {
	s := Reduce(NewState(25), IdentifierAccepted{ID: 123456})
	assert.Equal(t, []int{123456}, s.PendingIDs)

	s = Reduce(s, IdentifierAccepted{ID: 123456})
	assert.Equal(t, []int{123456}, s.PendingIDs, "already pending")

	s.Stories = []model.Story{story(9)}
	s = Reduce(s, IdentifierAccepted{ID: 9})
	assert.Equal(t, []int{123456}, s.PendingIDs, "already fetched")
}

func TestGetStoryEpic(t *testing.T) {
	f := &fakeFetcher{stories: map[int]model.Story{123456: story(123456)}}

	out := runEpics(Epics(f, 25, zerolog.Nop()), GetStory{ID: 123456})
	assert.Equal(t, []store.Action{StoryFetched{Story: story(123456)}}, out)

	out = runEpics(Epics(f, 25, zerolog.Nop()), GetStory{ID: 1})
	assert.Equal(t, []store.Action{StoryFailed{ID: 1, Reason: "not found"}}, out)
}

func TestGetStoryEpicRejectsOtherItem(t *testing.T) {
	f := &fakeFetcher{stories: map[int]model.Story{111: {}}}

	out := runEpics(Epics(f, 25, zerolog.Nop()), GetStory{ID: 111})

	require.Len(t, out, 1)
	failed, ok := out[0].(StoryFailed)
	require.True(t, ok, "got %T", out[0])
	assert.Equal(t, 111, failed.ID)

	initial := NewState(25)
	initial.PendingIDs = []int{111}
	s := Reduce(initial, failed)
	assert.Empty(t, s.PendingIDs)
	assert.Empty(t, s.Stories)
}

func TestGetStoryLeavesStateAlone(t *testing.T) {
	initial := NewState(25)
	initial.PendingIDs = []int{111}
	assert.Equal(t, initial, Reduce(initial, GetStory{ID: 111}))
}

func TestStoryFetched(t *testing.T) {
	initial := NewState(25)
	initial.PendingIDs = []int{111, 333}
	initial.Loading = true

	s := Reduce(initial, StoryFetched{Story: story(111)})

	assert.Equal(t, []int{333}, s.PendingIDs)
	assert.Equal(t, []model.Story{story(111)}, s.Stories)
	assert.False(t, s.Loading)
	assert.Equal(t, []int{111, 333}, initial.PendingIDs, "input state must not change")
}

func TestStoryFetchedReplacesDuplicate(t *testing.T) {
	initial := NewState(25)
	initial.Stories = []model.Story{story(1), story(2)}
	updated := story(1)
	updated.Score = 99

	s := Reduce(initial, StoryFetched{Story: updated})

	assert.Equal(t, []model.Story{updated, story(2)}, s.Stories)
	assert.Equal(t, 0, initial.Stories[0].Score)
}

func TestFailures(t *testing.T) {
	initial := NewState(25)
	initial.PendingIDs = []int{1, 2}
	initial.Loading = true

	s := Reduce(initial, StoryFailed{ID: 1, Reason: "boom"})
	assert.Equal(t, []int{2}, s.PendingIDs)
	assert.False(t, s.Loading)
	assert.Equal(t, "boom", s.Err)

	s = Reduce(initial, StoryIDsFailed{Category: model.CategoryNew, Reason: "down"})
	assert.Equal(t, []int{1, 2}, s.PendingIDs)
	assert.False(t, s.Loading)
	assert.Equal(t, "down", s.Err)
}

func TestReset(t *testing.T) {
	initial := NewState(25)
	initial.Category = model.CategoryTop
	initial.PendingIDs = []int{1}
	initial.Stories = []model.Story{story(2)}
	initial.Loading = true
	initial.Err = "x"

	s := Reduce(initial, Reset{})

	want := NewState(25)
	want.Category = model.CategoryTop
	want.Generation = 1
	assert.Equal(t, want, s)
}

func TestStaleGenerationIgnored(t *testing.T) {
	s := Reduce(NewState(25), Reset{})
	require.Equal(t, 1, s.Generation)

	for _, a := range []store.Action{
		GetStoryIDs{Category: model.CategoryTop},
		IdentifierAccepted{ID: 1},
		StoryFetched{Story: story(2)},
		StoryFailed{ID: 3, Reason: "boom"},
		StoryIDsFailed{Category: model.CategoryTop, Reason: "down"},
		NoStories{Category: model.CategoryTop},
	} {
		assert.Equal(t, s, Reduce(s, a), "%T", a)
	}

	s = Reduce(s, IdentifierAccepted{ID: 1, Generation: 1})
	assert.Equal(t, []int{1}, s.PendingIDs)
}

func TestEpicsStampGeneration(t *testing.T) {
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: {5}}, stories: map[int]model.Story{5: story(5)}}
	epics := Epics(f, 25, zerolog.Nop())
	s := NewState(25)
	s.Generation = 2

	assert.Empty(t, runEpicsAt(epics, GetStoryIDs{Category: model.CategoryNew, Generation: 1}, s))
	assert.Empty(t, runEpicsAt(epics, GetStory{ID: 5, Generation: 1}, s))
	assert.Zero(t, f.maxInFlight.Load(), "stale story fetch must not start")

	assert.Equal(t, []store.Action{GetStoryIDs{Category: model.CategoryNew, Generation: 2}},
		runEpicsAt(epics, SelectCategory{Category: model.CategoryNew}, s))
	assert.Equal(t, []store.Action{IdentifierAccepted{ID: 5, Generation: 2}, GetStory{ID: 5, Generation: 2}},
		runEpicsAt(epics, GetStoryIDs{Category: model.CategoryNew, Generation: 2}, s))
	assert.Equal(t, []store.Action{StoryFetched{Story: story(5), Generation: 2}},
		runEpicsAt(epics, GetStory{ID: 5, Generation: 2}, s))
}

func TestResetKeepsListingsApart(t *testing.T) {
	f := &fakeFetcher{
		ids: map[model.Category][]int{
			model.CategoryTop: {1, 2},
			model.CategoryNew: {10},
		},
		stories: map[int]model.Story{1: story(1), 2: story(2), 10: story(10)},
		delay:   map[int]time.Duration{1: 100 * time.Millisecond, 2: 100 * time.Millisecond},
	}
	s := store.New(NewState(25), Reduce, Epics(f, 25, zerolog.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.Dispatch(SelectCategory{Category: model.CategoryTop}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Dispatch(Reset{}))
	require.NoError(t, s.Dispatch(SelectCategory{Category: model.CategoryNew}))

	settleCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	require.NoError(t, s.Settle(settleCtx))

	st := s.State()
	assert.Equal(t, model.CategoryNew, st.Category)
	require.Len(t, st.Stories, 1)
	assert.Equal(t, 10, st.Stories[0].ID)
	assert.Empty(t, st.PendingIDs)
	assert.False(t, st.Loading)
}

func TestUnknownAction(t *testing.T) {
	initial := NewState(10)
	initial.PendingIDs = []int{1}
	initial.Stories = []model.Story{story(2)}
	assert.Equal(t, initial, Reduce(initial, foreign{}))
}

func TestFlowThroughStore(t *testing.T) {
	f := &fakeFetcher{
		ids: map[model.Category][]int{model.CategoryTop: {1, 2, 3, 4}},
		stories: map[int]model.Story{
			1: story(1), 2: story(2), 3: story(3), 4: story(4),
		},
		// 1 finishes last, so completion order differs from list order.
		delay: map[int]time.Duration{1: 50 * time.Millisecond},
	}
	s := store.New(NewState(3), Reduce, Epics(f, 3, zerolog.Nop()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.NoError(t, s.Dispatch(SelectCategory{Category: model.CategoryTop}))
	settleCtx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	require.NoError(t, s.Settle(settleCtx))

	st := s.State()
	assert.Equal(t, model.CategoryTop, st.Category)
	assert.Empty(t, st.PendingIDs)
	assert.False(t, st.Loading)
	require.Len(t, st.Stories, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, []int{st.Stories[0].ID, st.Stories[1].ID, st.Stories[2].ID})
	assert.Equal(t, 1, st.Stories[2].ID)
}

func TestStoryFetchConcurrencyBounded(t *testing.T) {
	ids := make([]int, 0, 10)
	stories := map[int]model.Story{}
	delay := map[int]time.Duration{}
	for i := 1; i <= 10; i++ {
		ids = append(ids, i)
		stories[i] = story(i)
		delay[i] = 10 * time.Millisecond
	}
	f := &fakeFetcher{ids: map[model.Category][]int{model.CategoryNew: ids}, stories: stories, delay: delay}
	epics := Epics(f, 3, zerolog.Nop())

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runEpics(epics, GetStory{ID: id})
		}(id)
	}
	wg.Wait()

	assert.LessOrEqual(t, f.maxInFlight.Load(), int32(3))
}
