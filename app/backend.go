package app

import (
	"context"
	"time"

	"tasklist/model"
)

// Backend is where mutations become authoritative.
//
// The Service validates input and applies updates and deletes to its own
// state before calling the backend; creations wait for the backend so the
// stored entity carries the id it assigns. RenameList and UpdateTask receive
// the already-updated entity and return the value to keep.
type Backend interface {
	Name() string
	// DefaultState is the state used before hydration and after Reset.
	DefaultState() model.AppState
	CreateList(ctx context.Context, name string) (model.List, error)
	RenameList(ctx context.Context, list model.List) (model.List, error)
	DeleteList(ctx context.Context, id string, force bool) error
	CreateTask(ctx context.Context, listID string, draft model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, listID, id string) error
}

// Fetcher is implemented by backends that own the data, so the Service
// can reload its cache from them.
type Fetcher interface {
	FetchLists(ctx context.Context) ([]model.List, error)
	FetchTasks(ctx context.Context, listID string) ([]model.Task, error)
}

// Persister receives every committed state. Implementations must not block.
type Persister interface {
	Save(state model.AppState)
	Erase()
}

// LocalBackend keeps everything on this machine. It mints ids and
// timestamps and never fails.
type LocalBackend struct {
	now func() time.Time
}

var _ Backend = (*LocalBackend)(nil)

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{now: func() time.Time { return time.Now().UTC() }}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) DefaultState() model.AppState {
	return model.NewState()
}

func (b *LocalBackend) CreateList(_ context.Context, name string) (model.List, error) {
	return model.List{
		ID:        model.NewID("list"),
		Name:      name,
		CreatedAt: b.now(),
		TaskIDs:   []string{},
	}, nil
}

func (b *LocalBackend) RenameList(_ context.Context, list model.List) (model.List, error) {
	return list, nil
}

func (b *LocalBackend) DeleteList(context.Context, string, bool) error {
	return nil
}

func (b *LocalBackend) CreateTask(_ context.Context, listID string, draft model.TaskDraft) (model.Task, error) {
	return model.Task{
		ID:          model.NewID("task"),
		ListID:      listID,
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		CreatedAt:   b.now(),
	}, nil
}

func (b *LocalBackend) UpdateTask(_ context.Context, task model.Task, _ model.TaskPatch) (model.Task, error) {
	return task, nil
}

func (b *LocalBackend) DeleteTask(context.Context, string, string) error {
	return nil
}
