package model

import (
	"time"
)

// StateVersion is the schema version written with every persisted blob.
const StateVersion = 1

// Field limits, counted in runes after trimming.
const (
	MaxListNameLen    = 50
	MaxTaskTitleLen   = 140
	MaxDescriptionLen = 500
)

// List is a named container of tasks.
// TaskIDs keeps insertion order, which is also display order.
type List struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	TaskIDs   []string   `json:"taskIds"`
}

// Task is an individual todo item owned by exactly one list.
type Task struct {
	ID          string     `json:"id"`
	ListID      string     `json:"listId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// User is the signed-in account the state belongs to.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	LoggedAt time.Time `json:"loggedAt"`
}

// AppState is the full persisted state.
// ListOrder holds the display order of Lists; map order is never used.
type AppState struct {
	Version       int             `json:"version"`
	User          *User           `json:"user,omitempty"`
	ListOrder     []string        `json:"listOrder"`
	Lists         map[string]List `json:"lists"`
	Tasks         map[string]Task `json:"tasks"`
	CurrentListID string          `json:"currentListId,omitempty"`
}

// TaskDraft carries the fields accepted when creating a task.
type TaskDraft struct {
	Title       string
	Description string
	DueDate     *time.Time
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Done        *bool
	DueDate     *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Done == nil && p.DueDate == nil
}

// EmptyState returns an initialized state with no lists.
func EmptyState() AppState {
	return AppState{
		Version:   StateVersion,
		ListOrder: []string{},
		Lists:     map[string]List{},
		Tasks:     map[string]Task{},
	}
}

// NewState returns the first-run state: a "Pessoal" list with three
// starter tasks, selected.
func NewState() AppState {
	state := EmptyState()
	now := time.Now().UTC()

	list := List{ID: NewID("list"), Name: "Pessoal", CreatedAt: now, TaskIDs: []string{}}
	seed := []struct {
		title string
		done  bool
	}{
		{"Ler documentação do projeto", false},
		{"Configurar ambiente", true},
		{"Criar primeira lista", false},
	}
	for _, s := range seed {
		task := Task{ID: NewID("task"), ListID: list.ID, Title: s.title, Done: s.done, CreatedAt: now}
		state.Tasks[task.ID] = task
		list.TaskIDs = append(list.TaskIDs, task.ID)
	}

	state.Lists[list.ID] = list
	state.ListOrder = append(state.ListOrder, list.ID)
	state.CurrentListID = list.ID
	return state
}

// Clone returns a deep copy of the state.
func (s AppState) Clone() AppState {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.ListOrder = append([]string(nil), s.ListOrder...)
	out.Lists = make(map[string]List, len(s.Lists))
	for id, l := range s.Lists {
		out.Lists[id] = l.Clone()
	}
	out.Tasks = make(map[string]Task, len(s.Tasks))
	for id, t := range s.Tasks {
		out.Tasks[id] = t.Clone()
	}
	return out
}

// Clone returns a copy of the list that shares no slices or pointers.
func (l List) Clone() List {
	out := l
	out.TaskIDs = append([]string{}, l.TaskIDs...)
	out.UpdatedAt = cloneTime(l.UpdatedAt)
	return out
}

// Clone returns a copy of the task that shares no pointers.
func (t Task) Clone() Task {
	out := t
	out.UpdatedAt = cloneTime(t.UpdatedAt)
	out.DueDate = cloneTime(t.DueDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
