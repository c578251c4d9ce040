// Package hn is the story-client slice: it selects a Hacker News category,
// fetches the identifiers of that listing and then each story, accumulating
// stories in the order their fetches complete.
package hn

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
)

// DefaultPendingLimit caps the identifiers admitted per category selection.
const DefaultPendingLimit = 25

type State struct {
	Category     model.Category `json:"storyType"`
	PendingLimit int            `json:"pendingLimit"`
	PendingIDs   []int          `json:"storyIds"`
	Stories      []model.Story  `json:"stories"`
	Loading      bool           `json:"loading"`
	Err          string         `json:"error,omitempty"`
	Generation   int            `json:"generation"`
}

func NewState(limit int) State {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	return State{
		Category:     model.CategoryNew,
		PendingLimit: limit,
		PendingIDs:   []int{},
		Stories:      []model.Story{},
	}
}

// Reduce applies one action. Actions from other slices return s unchanged.
func Reduce(s State, a store.Action) State {
	act, ok := a.(Action)
	if !ok {
		return s
	}
	switch act := act.(type) {
	case SelectCategory:
		s.Category = act.Category
	case GetStoryIDs:
		if act.Generation != s.Generation {
			return s
		}
		s.Loading = true
		s.Err = ""
	case IdentifierAccepted:
		if act.Generation != s.Generation {
			return s
		}
		if slices.Contains(s.PendingIDs, act.ID) || indexOf(s.Stories, act.ID) >= 0 {
			return s
		}
		ids := make([]int, len(s.PendingIDs), len(s.PendingIDs)+1)
		copy(ids, s.PendingIDs)
		s.PendingIDs = append(ids, act.ID)
	case GetStory:
		// effect only
	case StoryFetched:
		if act.Generation != s.Generation {
			return s
		}
		s.PendingIDs = without(s.PendingIDs, act.Story.ID)
		stories := make([]model.Story, len(s.Stories), len(s.Stories)+1)
		copy(stories, s.Stories)
		if i := indexOf(stories, act.Story.ID); i >= 0 {
			stories[i] = act.Story
		} else {
			stories = append(stories, act.Story)
		}
		s.Stories = stories
		s.Loading = false
	case StoryIDsFailed:
		if act.Generation != s.Generation {
			return s
		}
		s.Loading = false
		s.Err = act.Reason
	case StoryFailed:
		if act.Generation != s.Generation {
			return s
		}
		s.PendingIDs = without(s.PendingIDs, act.ID)
		s.Loading = false
		s.Err = act.Reason
	case NoStories:
		if act.Generation != s.Generation {
			return s
		}
		s.Loading = false
	case Reset:
		s.PendingIDs = []int{}
		s.Stories = []model.Story{}
		s.Loading = false
		s.Err = ""
		s.Generation++
	}
	return s
}

func without(ids []int, id int) []int {
	out := make([]int, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(stories []model.Story, id int) int {
	return slices.IndexFunc(stories, func(s model.Story) bool { return s.ID == id })
}

// Epics wires the category, identifier and story fetches to f. At most limit
// identifiers are admitted per listing and at most limit story fetches run at
// once. Fetches not yet started for a retired generation are skipped.
func Epics(f Fetcher, limit int, log zerolog.Logger) []store.Epic[State] {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	sem := semaphore.NewWeighted(int64(limit))

	return []store.Epic[State]{
		store.OfType(func(_ context.Context, a SelectCategory, s State) []store.Action {
			return []store.Action{GetStoryIDs{Category: a.Category, Generation: s.Generation}}
		}),
		store.OfType(func(ctx context.Context, a GetStoryIDs, s State) []store.Action {
			if a.Generation != s.Generation {
				return nil
			}
			ids, err := f.StoryIDs(ctx, a.Category)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn().Err(err).Str("category", string(a.Category)).Msg("story ids fetch failed")
				return []store.Action{StoryIDsFailed{Category: a.Category, Reason: err.Error(), Generation: a.Generation}}
			}
			if len(ids) == 0 {
				return []store.Action{NoStories{Category: a.Category, Generation: a.Generation}}
			}
			if len(ids) > limit {
				ids = ids[:limit]
			}
			out := make([]store.Action, 0, 2*len(ids))
			for _, id := range ids {
				out = append(out,
					IdentifierAccepted{ID: id, Generation: a.Generation},
					GetStory{ID: id, Generation: a.Generation},
				)
			}
			return out
		}),
		store.OfType(func(ctx context.Context, a GetStory, s State) []store.Action {
			if a.Generation != s.Generation {
				return nil
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			story, err := f.Story(ctx, a.ID)
			if err == nil && story.ID != a.ID {
				err = fmt.Errorf("story %d: got item %d", a.ID, story.ID)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn().Err(err).Int("id", a.ID).Msg("story fetch failed")
				return []store.Action{StoryFailed{ID: a.ID, Reason: err.Error(), Generation: a.Generation}}
			}
			return []store.Action{StoryFetched{Story: story, Generation: a.Generation}}
		}),
	}
}
