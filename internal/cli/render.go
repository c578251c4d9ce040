package cli

import (
	"fmt"

	"github.com/Makepad-fr/scaffold/internal/hn"
	"github.com/Makepad-fr/scaffold/internal/model"
	"github.com/Makepad-fr/scaffold/internal/todo"
	"github.com/Makepad-fr/scaffold/internal/ui"
)

// -------------- rendering helpers --------------

func storyLines(s hn.State) []string {
	t := ui.Current()
	fetched, pending := len(s.Stories), len(s.PendingIDs)
	header := fmt.Sprintf("%s  %s %d  %s %d",
		t.Title.Render("HN "+s.Category.Label()),
		t.Success.Render(t.SymDone), fetched,
		t.Pending.Render(t.SymPending), pending,
	)

	lines := []string{header, t.Muted.Render(ui.ProgressBar(fetched, fetched+pending, 28)), ""}
	if len(s.Stories) == 0 {
		lines = append(lines, t.Muted.Render("no stories"))
	}
	for i, st := range s.Stories {
		lines = append(lines,
			fmt.Sprintf("%2d. %s", i+1, ui.Truncate(st.Title, 80)),
			t.Muted.Render(fmt.Sprintf("    %d points by %s | %d comments", st.Score, st.By, st.Descendants)),
		)
	}
	return lines
}

func todoLines(todos []model.Todo, group bool) []string {
	t := ui.Current()
	d, p := todo.Stats(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(todos),
	)

	lines := []string{header, t.Muted.Render(ui.ProgressBar(d, d+p, 28)), ""}
	if group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos)...)
	}
	return lines
}

func flatLines(todos []model.Todo) []string {
	t := ui.Current()
	if len(todos) == 0 {
		return []string{t.Muted.Render("no items")}
	}
	out := make([]string, 0, len(todos))
	for _, it := range todos {
		title := ui.Truncate(it.Title, 80)
		if it.Done {
			title = t.Done.Render(title)
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			t.Muted.Render(fmt.Sprintf("%2d.", it.ID)), ui.Box(it.Done), title))
	}
	return out
}

func groupLines(todos []model.Todo) []string {
	t := ui.Current()
	var pend, done []model.Todo
	for _, it := range todos {
		if it.Done {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, t.Accent.Render("Pending"))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
