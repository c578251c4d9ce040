package todo

import "github.com/Makepad-fr/scaffold/internal/store"

// Action is the closed set of todo actions.
type Action interface {
	store.Action
	todoAction()
}

type (
	SetTitle        struct{ Title string }
	SaveTodo        struct{}
	SaveTodoSuccess struct{}
	SetDone         struct{ ID int }
	SetDoneSuccess  struct{ ID int }
)

func (SetTitle) Type() string        { return "tada/todo/SET_TITLE" }
func (SaveTodo) Type() string        { return "tada/todo/SAVE_TODO" }
func (SaveTodoSuccess) Type() string { return "tada/todo/SAVE_TODO_SUCCESS" }
func (SetDone) Type() string         { return "tada/todo/SET_DONE" }
func (SetDoneSuccess) Type() string  { return "tada/todo/SET_DONE_SUCCESS" }

func (SetTitle) todoAction()        {}
func (SaveTodo) todoAction()        {}
func (SaveTodoSuccess) todoAction() {}
func (SetDone) todoAction()         {}
func (SetDoneSuccess) todoAction()  {}
