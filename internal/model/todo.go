package model

// Todo is the domain model for a todo entry.
// Values are never mutated in place; MarkDone returns a copy.
type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// MarkDone returns the done variant of t.
func (t Todo) MarkDone() Todo {
	t.Done = true
	return t
}
