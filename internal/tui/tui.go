// Package tui is the interactive terminal client. It renders store snapshots
// and turns key presses into dispatched actions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/scaffold/internal/app"
	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/store"
	"github.com/Makepad-fr/scaffold/internal/todo"
	"github.com/Makepad-fr/scaffold/internal/ui"
)

// Dispatcher is the part of the store the UI writes to.
type Dispatcher interface {
	Dispatch(store.Action) error
}

type tab int

const (
	tabTodos tab = iota
	tabNew
	tabTop
	tabBest
	tabCount
)

func (t tab) category() (model.Category, bool) {
	switch t {
	case tabNew:
		return model.CategoryNew, true
	case tabTop:
		return model.CategoryTop, true
	case tabBest:
		return model.CategoryBest, true
	}
	return "", false
}

func (t tab) String() string {
	if c, ok := t.category(); ok {
		return c.Label()
	}
	return "Todos"
}

type (
	stateMsg  app.State
	closedMsg struct{}
	errMsg    struct{ err error }
)

type Model struct {
	dispatch Dispatcher
	updates  <-chan app.State
	state    app.State
	keys     keyMap

	tab     tab
	todos   list.Model
	stories list.Model
	spinner spinner.Model
	help    help.Model

	// Inline add
	adding bool
	ti     textinput.Model
	addErr string

	err           string
	width, height int
}

// New returns a model showing initial until the first snapshot arrives on updates.
func New(d Dispatcher, updates <-chan app.State, initial app.State) Model {
	m := Model{
		dispatch: d,
		updates:  updates,
		state:    initial,
		keys:     newKeyMap(),
		width:    80,
		height:   24,
	}

	m.todos = newList(todoItems(initial.Todo.Todos), todoDelegate{}, "todo", "todos")
	m.stories = newList(storyItems(initial.HN.Stories), storyDelegate{}, "story", "stories")

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = ui.Current().Pending
	m.help = help.New()

	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "New todo title..."
	m.ti.CharLimit = 200

	m.resize()
	return m
}

func newList(items []list.Item, d list.ItemDelegate, singular, plural string) list.Model {
	l := list.New(items, d, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName(singular, plural)
	return l
}

// Run starts the program against st until the user quits or ctx ends.
func Run(ctx context.Context, st *app.Store) error {
	updates, unsubscribe := st.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(New(st, updates, st.State()), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func waitForState(ch <-chan app.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(s)
	}
}

func dispatch(d Dispatcher, actions ...store.Action) tea.Cmd {
	return func() tea.Msg {
		for _, a := range actions {
			if err := d.Dispatch(a); err != nil {
				return errMsg{err: fmt.Errorf("dispatch %s: %w", a.Type(), err)}
			}
		}
		return nil
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.updates), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = app.State(msg)
		c1 := m.todos.SetItems(todoItems(m.state.Todo.Todos))
		c2 := m.stories.SetItems(storyItems(m.state.HN.Stories))
		return m, tea.Batch(c1, c2, waitForState(m.updates))
	case closedMsg:
		return m, tea.Quit
	case errMsg:
		m.err = msg.err.Error()
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		if m.activeList().FilterState() != list.Filtering {
			if next, cmd, handled := m.handleKey(msg); handled {
				return next, cmd
			}
		}
	}

	var cmd tea.Cmd
	if m.tab == tabTodos {
		m.todos, cmd = m.todos.Update(msg)
	} else {
		m.stories, cmd = m.stories.Update(msg)
	}
	return m, cmd
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(m.ti.Value())
		if title == "" {
			m.addErr = "Title cannot be empty"
			return m, nil
		}
		m.adding = false
		m.addErr = ""
		m.ti.SetValue("")
		m.ti.Blur()
		m.resize()
		return m, dispatch(m.dispatch, todo.SetTitle{Title: title}, todo.SaveTodo{})
	case "esc":
		m.adding = false
		m.addErr = ""
		m.ti.SetValue("")
		m.ti.Blur()
		m.resize()
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.Next):
		return m.switchTab((m.tab + 1) % tabCount)
	case key.Matches(msg, m.keys.Prev):
		return m.switchTab((m.tab + tabCount - 1) % tabCount)
	}

	if m.tab == tabTodos {
		switch {
		case key.Matches(msg, m.keys.Add):
			m.adding = true
			m.ti.SetValue("")
			m.resize()
			return m, m.ti.Focus(), true
		case key.Matches(msg, m.keys.Done):
			it, ok := m.todos.SelectedItem().(todoItem)
			if !ok || it.Done {
				return m, nil, true
			}
			return m, dispatch(m.dispatch, todo.SetDone{ID: it.ID}), true
		}
		return m, nil, false
	}

	if key.Matches(msg, m.keys.Refresh) {
		c, _ := m.tab.category()
		m.stories.ResetSelected()
		return m, m.load(c), true
	}
	return m, nil, false
}

func (m Model) switchTab(next tab) (Model, tea.Cmd, bool) {
	m.tab = next
	m.err = ""
	c, ok := next.category()
	if !ok {
		return m, nil, true
	}
	if c == m.state.HN.Category && (len(m.state.HN.Stories) > 0 || m.state.HN.Loading) {
		return m, nil, true
	}
	m.stories.ResetSelected()
	return m, m.load(c), true
}

// load starts a fresh listing for c.
func (m Model) load(c model.Category) tea.Cmd {
	return dispatch(m.dispatch, hn.Reset{}, hn.SelectCategory{Category: c})
}

func (m *Model) activeList() *list.Model {
	if m.tab == tabTodos {
		return &m.todos
	}
	return &m.stories
}

func (m *Model) resize() {
	// header, status line, help and the frame
	h := m.height - 7
	if m.adding {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.todos.SetSize(w, h)
	m.stories.SetSize(w, h)
	m.help.Width = w
}

func (m Model) View() string {
	t := ui.Current()
	var b strings.Builder

	b.WriteString(m.tabsView())
	b.WriteString("\n\n")

	if m.tab == tabTodos {
		b.WriteString(m.todos.View())
	} else {
		b.WriteString(m.stories.View())
	}
	b.WriteString("\n")

	if m.adding {
		title := "Add new todo"
		if m.addErr != "" {
			title += " - " + t.Error.Render(m.addErr)
		}
		b.WriteString(ui.Frame(title + "\n" + m.ti.View()))
		b.WriteString("\n")
	}

	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return ui.Frame(b.String())
}

func (m Model) tabsView() string {
	t := ui.Current()
	parts := make([]string, 0, tabCount)
	for i := tab(0); i < tabCount; i++ {
		label := i.String()
		if i == m.tab {
			parts = append(parts, t.Selected.Render(" "+label+" "))
		} else {
			parts = append(parts, t.Muted.Render(" "+label+" "))
		}
	}
	return t.Title.Render("tada") + "  " + strings.Join(parts, t.Muted.Render("|"))
}

func (m Model) statusView() string {
	t := ui.Current()
	if m.err != "" {
		return t.Error.Render(m.err)
	}
	if m.tab == tabTodos {
		done, pending := todo.Stats(m.state.Todo.Todos)
		line := fmt.Sprintf("%s %d  %s %d  %s %d",
			t.Success.Render(t.SymDone), done,
			t.Pending.Render(t.SymPending), pending,
			t.Accent.Render("Total"), len(m.state.Todo.Todos))
		if m.state.Todo.Loading {
			line = m.spinner.View() + " saving...  " + line
		}
		return line
	}
	s := m.state.HN
	if s.Err != "" {
		return t.Error.Render(s.Err)
	}
	fetched := len(s.Stories)
	line := t.Muted.Render(ui.ProgressBar(fetched, fetched+len(s.PendingIDs), 20))
	if s.Loading {
		line = m.spinner.View() + " loading " + s.Category.Label() + "...  " + line
	}
	return line
}

func (m Model) helpKeys() []key.Binding {
	if m.tab == tabTodos {
		return []key.Binding{m.keys.Next, m.keys.Add, m.keys.Done, m.keys.Quit}
	}
	return []key.Binding{m.keys.Next, m.keys.Prev, m.keys.Refresh, m.keys.Quit}
}
