package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/ui"
)

// todoItem adapts model.Todo to bubbles/list.Item
type todoItem struct{ model.Todo }

func (i todoItem) FilterValue() string { return i.Title }

type storyItem struct{ model.Story }

func (i storyItem) FilterValue() string { return i.Title }

func todoItems(todos []model.Todo) []list.Item {
	out := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		out = append(out, todoItem{t})
	}
	return out
}

func storyItems(stories []model.Story) []list.Item {
	out := make([]list.Item, 0, len(stories))
	for _, s := range stories {
		out = append(out, storyItem{s})
	}
	return out
}

// Custom delegates control how rows render.
type todoDelegate struct{}

func (d todoDelegate) Height() int                               { return 1 }
func (d todoDelegate) Spacing() int                              { return 0 }
func (d todoDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d todoDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	t := ui.Current()
	text := it.Title
	if it.Done {
		text = t.Done.Render(text)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render("> ")
	}
	fmt.Fprint(w, prefix+ui.Box(it.Done)+" "+text)
}

type storyDelegate struct{}

func (d storyDelegate) Height() int                               { return 2 }
func (d storyDelegate) Spacing() int                              { return 0 }
func (d storyDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d storyDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(storyItem)
	if !ok {
		return
	}
	t := ui.Current()
	title := fmt.Sprintf("%d. %s", index+1, it.Title)
	if index == m.Index() {
		title = t.Selected.Render(title)
	}
	fmt.Fprint(w, title+"\n"+t.Muted.Render("   "+storyMeta(it.Story)))
}

// storyMeta is the "points by author age | comments" line.
func storyMeta(s model.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d points by %s", s.Score, s.By)
	if s.Time > 0 {
		b.WriteString(" " + humanize.Time(s.Posted()))
	}
	fmt.Fprintf(&b, " | %d comments", s.Descendants)
	return b.String()
}
