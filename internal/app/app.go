// Package app combines the todo and story-client slices into one state tree
// and one merged epic set.
package app

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/scaffold/internal/config"
	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
	"github.com/Makepad-fr/scaffold/internal/todo"
)

type State struct {
	Todo todo.State `json:"index"`
	HN   hn.State   `json:"hnClient"`
}

type Store = store.Store[State]

func NewState(cfg config.Config) State {
	return State{
		Todo: todo.NewState(),
		HN:   hn.NewState(cfg.PendingLimit),
	}
}

// Reduce hands every action to each slice.
func Reduce(s State, a store.Action) State {
	return State{
		Todo: todo.Reduce(s.Todo, a),
		HN:   hn.Reduce(s.HN, a),
	}
}

func Epics(cfg config.Config, f hn.Fetcher, log zerolog.Logger) []store.Epic[State] {
	return store.Combine(
		store.Focus(func(s State) todo.State { return s.Todo }, todo.Epics(cfg.TodoDelay)),
		store.Focus(func(s State) hn.State { return s.HN }, hn.Epics(f, cfg.PendingLimit, log)),
	)
}

// NewFetcher builds the HTTP story client described by cfg.
func NewFetcher(cfg config.Config) *hn.Client {
	return hn.NewClient(cfg.BaseURL, &http.Client{Timeout: cfg.HTTPTimeout})
}

// New returns a store at the default state.
func New(cfg config.Config, f hn.Fetcher, log zerolog.Logger) *Store {
	return NewWithState(NewState(cfg), cfg, f, log)
}

// NewWithState returns a store hydrated from a previously captured state.
func NewWithState(initial State, cfg config.Config, f hn.Fetcher, log zerolog.Logger) *Store {
	if initial.Todo.Todos == nil {
		initial.Todo.Todos = []model.Todo{}
	}
	if initial.HN.PendingLimit <= 0 {
		initial.HN.PendingLimit = cfg.PendingLimit
	}
	if initial.HN.Category == "" {
		initial.HN.Category = hn.NewState(cfg.PendingLimit).Category
	}
	return store.New(initial, Reduce, Epics(cfg, f, log), store.WithLogger(log))
}
