// Package todo is the todo-list slice: a draft title, the ordered list of
// todos and a loading flag that is set between a request and its success.
package todo

import (
	"context"
	"time"

	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
)

// DefaultDelay simulates latency before the *Success actions.
const DefaultDelay = time.Second

type State struct {
	Title   string       `json:"title"`
	Todos   []model.Todo `json:"todos"`
	Loading bool         `json:"loading"`
}

func NewState() State {
	return State{Todos: []model.Todo{}}
}

// Reduce applies one action. Actions from other slices return s unchanged.
func Reduce(s State, a store.Action) State {
	act, ok := a.(Action)
	if !ok {
		return s
	}
	switch act := act.(type) {
	case SetTitle:
		s.Title = act.Title
	case SaveTodo:
		s.Loading = true
	case SaveTodoSuccess:
		todos := make([]model.Todo, len(s.Todos), len(s.Todos)+1)
		copy(todos, s.Todos)
		s.Todos = append(todos, model.Todo{ID: len(s.Todos) + 1, Title: s.Title})
		s.Title = ""
		s.Loading = false
	case SetDone:
		s.Loading = true
	case SetDoneSuccess:
		todos := make([]model.Todo, len(s.Todos))
		for i, t := range s.Todos {
			if t.ID == act.ID {
				t = t.MarkDone()
			}
			todos[i] = t
		}
		s.Todos = todos
		s.Loading = false
	}
	return s
}

// Epics answers SaveTodo and SetDone with their success actions after delay.
func Epics(delay time.Duration) []store.Epic[State] {
	return []store.Epic[State]{
		store.OfType(func(ctx context.Context, _ SaveTodo, _ State) []store.Action {
			if !wait(ctx, delay) {
				return nil
			}
			return []store.Action{SaveTodoSuccess{}}
		}),
		store.OfType(func(ctx context.Context, a SetDone, _ State) []store.Action {
			if !wait(ctx, delay) {
				return nil
			}
			return []store.Action{SetDoneSuccess{ID: a.ID}}
		}),
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats counts done and pending todos.
func Stats(todos []model.Todo) (done, pending int) {
	for _, t := range todos {
		if t.Done {
			done++
		} else {
			pending++
		}
	}
	return
}
