package hn

import (
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
)

// Action is the closed set of story-client actions.
type Action interface {
	store.Action
	hnAction()
}

// Every action after SelectCategory carries the Generation of the listing it
// belongs to. The reducer ignores actions from a generation that Reset has
// since retired.
type (
	SelectCategory struct{ Category model.Category }
	GetStoryIDs    struct {
		Category   model.Category
		Generation int
	}
	IdentifierAccepted struct {
		ID         int
		Generation int
	}
	GetStory struct {
		ID         int
		Generation int
	}
	StoryFetched struct {
		Story      model.Story
		Generation int
	}

	// StoryIDsFailed and StoryFailed end a fetch that will never succeed.
	StoryIDsFailed struct {
		Category   model.Category
		Reason     string
		Generation int
	}
	StoryFailed struct {
		ID         int
		Reason     string
		Generation int
	}

	// NoStories reports a listing that came back empty.
	NoStories struct {
		Category   model.Category
		Generation int
	}

	// Reset empties the story list and the pending queue and starts a new
	// generation.
	Reset struct{}
)

func (SelectCategory) Type() string     { return "tada/hn/SELECT_CATEGORY" }
func (GetStoryIDs) Type() string        { return "tada/hn/GET_STORY_IDS" }
func (IdentifierAccepted) Type() string { return "tada/hn/IDENTIFIER_ACCEPTED" }
func (GetStory) Type() string           { return "tada/hn/GET_STORY" }
func (StoryFetched) Type() string       { return "tada/hn/STORY_FETCHED" }
func (StoryIDsFailed) Type() string     { return "tada/hn/STORY_IDS_FAILED" }
func (StoryFailed) Type() string        { return "tada/hn/STORY_FAILED" }
func (NoStories) Type() string          { return "tada/hn/NO_STORIES" }
func (Reset) Type() string              { return "tada/hn/RESET" }

func (SelectCategory) hnAction()     {}
func (GetStoryIDs) hnAction()        {}
func (IdentifierAccepted) hnAction() {}
func (GetStory) hnAction()           {}
func (StoryFetched) hnAction()       {}
func (StoryIDsFailed) hnAction()     {}
func (StoryFailed) hnAction()        {}
func (NoStories) hnAction()          {}
func (Reset) hnAction()              {}
