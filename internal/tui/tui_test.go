package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/scaffold/internal/app"
	"github.com/Makepad-fr/scaffold/internal/config"
	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
	"github.com/Makepad-fr/scaffold/internal/todo"
)

type recorder struct {
	mu      sync.Mutex
	actions []store.Action
	err     error
}

func (r *recorder) Dispatch(a store.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.actions = append(r.actions, a)
	return nil
}

func newTestModel(t *testing.T, s app.State) (Model, *recorder) {
	t.Helper()
	r := &recorder{}
	return New(r, make(chan app.State), s), r
}

func baseState() app.State {
	return app.NewState(config.Config{PendingLimit: 25})
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestStateMsgRefreshesLists(t *testing.T) {
	m, _ := newTestModel(t, baseState())

	s := baseState()
	s.Todo.Todos = []model.Todo{{ID: 1, Title: "milk"}, {ID: 2, Title: "eggs"}}
	s.HN.Stories = []model.Story{{ID: 9, Title: "Go 2"}}
	m, _ = update(t, m, stateMsg(s))

	assert.Len(t, m.todos.Items(), 2)
	assert.Len(t, m.stories.Items(), 1)
	assert.Equal(t, s, m.state)
}

func TestAddTodo(t *testing.T) {
	m, rec := newTestModel(t, baseState())

	m, _ = update(t, m, keyRunes("a"))
	require.True(t, m.adding)

	m, _ = update(t, m, keyRunes("Buy milk"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.adding)

	assert.Nil(t, cmd())
	assert.Equal(t, []store.Action{todo.SetTitle{Title: "Buy milk"}, todo.SaveTodo{}}, rec.actions)
}

func TestAddTodoRejectsEmptyTitle(t *testing.T) {
	m, rec := newTestModel(t, baseState())

	m, _ = update(t, m, keyRunes("a"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.True(t, m.adding)
	assert.Equal(t, "Title cannot be empty", m.addErr)
	assert.Empty(t, rec.actions)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.adding)
}

func TestMarkSelectedDone(t *testing.T) {
	s := baseState()
	s.Todo.Todos = []model.Todo{{ID: 3, Title: "walk"}}
	m, rec := newTestModel(t, s)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []store.Action{todo.SetDone{ID: 3}}, rec.actions)
}

func TestMarkDoneSkipsFinishedTodo(t *testing.T) {
	s := baseState()
	s.Todo.Todos = []model.Todo{{ID: 3, Title: "walk", Done: true}}
	m, rec := newTestModel(t, s)

	_, cmd := update(t, m, keyRunes("x"))
	assert.Nil(t, cmd)
	assert.Empty(t, rec.actions)
}

func TestSwitchTabLoadsCategory(t *testing.T) {
	m, rec := newTestModel(t, baseState())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, tabNew, m.tab)
	assert.Equal(t, []store.Action{hn.Reset{}, hn.SelectCategory{Category: model.CategoryNew}}, rec.actions)
}

func TestSwitchTabKeepsLoadedCategory(t *testing.T) {
	s := baseState()
	s.HN.Category = model.CategoryTop
	s.HN.Stories = []model.Story{{ID: 1, Title: "kept"}}
	m, rec := newTestModel(t, s)
	m.tab = tabNew

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Equal(t, tabTop, m.tab)
	assert.Empty(t, rec.actions)

	_, cmd = update(t, m, keyRunes("r"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []store.Action{hn.Reset{}, hn.SelectCategory{Category: model.CategoryTop}}, rec.actions)
}

func TestShiftTabWraps(t *testing.T) {
	m, _ := newTestModel(t, baseState())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, tabBest, m.tab)
}

func TestDispatchErrorShown(t *testing.T) {
	m, rec := newTestModel(t, baseState())
	rec.err = errors.New("closed")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	msg := cmd()
	m, _ = update(t, m, msg)

	assert.Contains(t, m.err, "closed")
	assert.Contains(t, m.View(), "closed")
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, baseState())
	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestClosedUpdatesQuit(t *testing.T) {
	m, _ := newTestModel(t, baseState())
	_, cmd := update(t, m, closedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestViewShowsTabsAndStories(t *testing.T) {
	s := baseState()
	s.HN.Category = model.CategoryBest
	s.HN.Stories = []model.Story{{ID: 1, Title: "Show HN: tada", By: "pg", Score: 42, Descendants: 7}}
	s.HN.PendingIDs = []int{2}
	s.HN.Loading = true
	m, _ := newTestModel(t, s)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m.tab = tabBest

	view := m.View()
	for _, want := range []string{"Todos", "New", "Top", "Best", "Show HN: tada", "42 points by pg", "7 comments", "loading Best", "1/2"} {
		assert.True(t, strings.Contains(view, want), "view missing %q", want)
	}
}

func TestViewShowsTodoStats(t *testing.T) {
	s := baseState()
	s.Todo.Todos = []model.Todo{{ID: 1, Title: "milk", Done: true}, {ID: 2, Title: "eggs"}}
	m, _ := newTestModel(t, s)

	view := m.View()
	assert.Contains(t, view, "milk")
	assert.Contains(t, view, "eggs")
	assert.Contains(t, view, "Total 2")
}

func TestStoryMeta(t *testing.T) {
	assert.Equal(t, "3 points by me | 0 comments", storyMeta(model.Story{Score: 3, By: "me"}))
}
