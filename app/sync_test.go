package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tasklist/model"
)

var errUnavailable = errors.New("service unavailable")

// flakyBackend behaves like the local backend unless an error is injected.
type flakyBackend struct {
	*LocalBackend

	mu            sync.Mutex
	CreateListErr error
	RenameListErr error
	DeleteListErr error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
	updateHook    func(call int, task model.Task) (model.Task, error)
	updateCalls   int
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{LocalBackend: NewLocalBackend()}
}

func (b *flakyBackend) CreateList(ctx context.Context, name string) (model.List, error) {
	if b.CreateListErr != nil {
		return model.List{}, b.CreateListErr
	}
	return b.LocalBackend.CreateList(ctx, name)
}

func (b *flakyBackend) RenameList(ctx context.Context, list model.List) (model.List, error) {
	if b.RenameListErr != nil {
		return model.List{}, b.RenameListErr
	}
	return b.LocalBackend.RenameList(ctx, list)
}

func (b *flakyBackend) DeleteList(ctx context.Context, id string, force bool) error {
	if b.DeleteListErr != nil {
		return b.DeleteListErr
	}
	return b.LocalBackend.DeleteList(ctx, id, force)
}

func (b *flakyBackend) CreateTask(ctx context.Context, listID string, draft model.TaskDraft) (model.Task, error) {
	if b.CreateTaskErr != nil {
		return model.Task{}, b.CreateTaskErr
	}
	return b.LocalBackend.CreateTask(ctx, listID, draft)
}

func (b *flakyBackend) UpdateTask(ctx context.Context, task model.Task, patch model.TaskPatch) (model.Task, error) {
	b.mu.Lock()
	b.updateCalls++
	call := b.updateCalls
	hook := b.updateHook
	b.mu.Unlock()
	if hook != nil {
		return hook(call, task)
	}
	if b.UpdateTaskErr != nil {
		return model.Task{}, b.UpdateTaskErr
	}
	return b.LocalBackend.UpdateTask(ctx, task, patch)
}

func (b *flakyBackend) DeleteTask(ctx context.Context, listID, id string) error {
	if b.DeleteTaskErr != nil {
		return b.DeleteTaskErr
	}
	return b.LocalBackend.DeleteTask(ctx, listID, id)
}

// fetchingBackend adds Fetcher on top of flakyBackend, like a remote API.
type fetchingBackend struct {
	*flakyBackend
	lists         []model.List
	tasks         map[string][]model.Task
	FetchListsErr error
	FetchTasksErr map[string]error
}

func (b *fetchingBackend) DefaultState() model.AppState {
	return model.EmptyState()
}

func (b *fetchingBackend) FetchLists(context.Context) ([]model.List, error) {
	if b.FetchListsErr != nil {
		return nil, b.FetchListsErr
	}
	return b.lists, nil
}

func (b *fetchingBackend) FetchTasks(_ context.Context, listID string) ([]model.Task, error) {
	if err := b.FetchTasksErr[listID]; err != nil {
		return nil, err
	}
	return b.tasks[listID], nil
}

func newFetchingBackend() *fetchingBackend {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &fetchingBackend{
		flakyBackend: newFlakyBackend(),
		lists: []model.List{
			{ID: "1", Name: "Casa", CreatedAt: now},
			{ID: "2", Name: "Trabalho", CreatedAt: now},
		},
		tasks: map[string][]model.Task{
			"1": {{ID: "10", Title: "Lavar louça"}, {ID: "11", Title: "Pagar contas", Done: true}},
			"2": {{ID: "20", Title: "Relatório"}},
		},
		FetchTasksErr: map[string]error{},
	}
}

func TestUpdateRollsBackOnBackendError(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	task := svc.TasksByCurrentList()[0]

	backend.UpdateTaskErr = errUnavailable
	if err := svc.ToggleTask(ctx, task.ID); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	got, _ := svc.GetTask(task.ID)
	if got.Done != task.Done || got.UpdatedAt != nil {
		t.Fatalf("toggle should be rolled back, got %+v", got)
	}
	if !errors.Is(svc.Status().LastError, errUnavailable) {
		t.Fatalf("LastError = %v, want %v", svc.Status().LastError, errUnavailable)
	}

	if _, err := svc.EditTask(ctx, task.ID, "Outro título"); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error on edit, got %v", err)
	}
	if got, _ := svc.GetTask(task.ID); got.Title != task.Title {
		t.Fatalf("edit should be rolled back, got %q", got.Title)
	}

	backend.UpdateTaskErr = nil
	if err := svc.ToggleTask(ctx, task.ID); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if svc.Status().LastError != nil {
		t.Fatalf("LastError should clear after a successful call, got %v", svc.Status().LastError)
	}
}

func TestDeleteListRollsBackOnBackendError(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	pessoal := svc.CurrentListID()
	mustCreateList(t, svc, "Segunda")
	svc.SelectList(pessoal)
	before := svc.TasksByCurrentList()

	backend.DeleteListErr = errUnavailable
	if err := svc.DeleteList(ctx, pessoal, DeleteListOptions{Force: true}); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}

	lists := svc.Lists()
	if len(lists) != 2 || lists[0].ID != pessoal {
		t.Fatalf("list should be restored at its position, got %+v", lists)
	}
	if svc.CurrentListID() != pessoal {
		t.Fatalf("selection should be restored, got %q", svc.CurrentListID())
	}
	if got := titles(svc.TasksByCurrentList()); len(got) != len(before) {
		t.Fatalf("tasks should be restored, got %v", got)
	}
}

func TestRemoveTaskRollsBackAtSamePosition(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	before := svc.TasksByCurrentList()

	backend.DeleteTaskErr = errUnavailable
	if err := svc.RemoveTask(ctx, before[1].ID); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	after := svc.TasksByCurrentList()
	if fmt.Sprint(titles(after)) != fmt.Sprint(titles(before)) {
		t.Fatalf("task order after rollback = %v, want %v", titles(after), titles(before))
	}
}

func TestCreateFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	before := svc.State()

	backend.CreateListErr = errUnavailable
	if _, err := svc.CreateList(ctx, "Nova"); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
	backend.CreateTaskErr = errUnavailable
	if _, err := svc.AddTask(ctx, "Nova tarefa"); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}

	after := svc.State()
	if len(after.Lists) != len(before.Lists) || len(after.Tasks) != len(before.Tasks) {
		t.Fatalf("failed creates must not change state")
	}
	if after.CurrentListID != before.CurrentListID {
		t.Fatalf("failed create must not change selection")
	}
}

// anonymousBackend confirms creations without assigning ids, like a
// server answering 2xx with an empty body.
type anonymousBackend struct {
	*LocalBackend
}

func (anonymousBackend) CreateList(_ context.Context, name string) (model.List, error) {
	return model.List{Name: name}, nil
}

func (anonymousBackend) CreateTask(_ context.Context, listID string, draft model.TaskDraft) (model.Task, error) {
	return model.Task{ListID: listID, Title: draft.Title}, nil
}

func TestCreateWithoutIDIsRejected(t *testing.T) {
	ctx := context.Background()
	svc := New(anonymousBackend{NewLocalBackend()}, Options{})
	svc.Hydrate(model.NewState())
	before := svc.State()

	if _, err := svc.CreateList(ctx, "Nova"); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if _, err := svc.AddTask(ctx, "Nova tarefa"); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if !errors.Is(svc.Status().LastError, ErrMissingID) {
		t.Fatalf("expected LastError to report the missing id")
	}

	after := svc.State()
	if _, ok := after.Lists[""]; ok {
		t.Fatalf("list stored under an empty id")
	}
	if _, ok := after.Tasks[""]; ok {
		t.Fatalf("task stored under an empty id")
	}
	if len(after.Lists) != len(before.Lists) || len(after.Tasks) != len(before.Tasks) {
		t.Fatalf("rejected creates must not change state")
	}
}

func TestStaleRollbackDoesNotClobberNewerUpdate(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	entered := make(chan struct{})
	release := make(chan struct{})
	backend.updateHook = func(call int, task model.Task) (model.Task, error) {
		if call == 1 {
			close(entered)
			<-release
			return model.Task{}, errUnavailable
		}
		return task, nil
	}

	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	task := svc.TasksByCurrentList()[0]

	errc := make(chan error, 1)
	go func() { errc <- svc.ToggleTask(ctx, task.ID) }()
	<-entered

	if _, err := svc.EditTask(ctx, task.ID, "Título novo"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	close(release)
	if err := <-errc; !errors.Is(err, errUnavailable) {
		t.Fatalf("expected the first toggle to fail, got %v", err)
	}

	got, _ := svc.GetTask(task.ID)
	if got.Title != "Título novo" {
		t.Fatalf("stale rollback overwrote newer edit: %+v", got)
	}
	if !errors.Is(svc.Status().LastError, errUnavailable) {
		t.Fatalf("LastError should still report the failure")
	}
}

func TestUpdateAdoptsServerDueDate(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	backend.updateHook = func(_ int, task model.Task) (model.Task, error) {
		task.DueDate = nil
		return task, nil
	}
	svc := New(backend, Options{})
	svc.Hydrate(model.NewState())
	task := svc.TasksByCurrentList()[0]

	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	saved, err := svc.UpdateTask(ctx, task.ID, model.TaskPatch{DueDate: &due})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	got, _ := svc.GetTask(task.ID)
	if saved.DueDate != nil || got.DueDate != nil {
		t.Fatalf("expected the backend's empty due date, got saved=%v cached=%v", saved.DueDate, got.DueDate)
	}
}

func TestRefreshLoadsListsAndTasks(t *testing.T) {
	ctx := context.Background()
	backend := newFetchingBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.EmptyState())

	if !svc.Refreshable() {
		t.Fatalf("fetching backend should be refreshable")
	}
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	lists := svc.Lists()
	if len(lists) != 2 || lists[0].Name != "Casa" || lists[1].Name != "Trabalho" {
		t.Fatalf("unexpected lists %+v", lists)
	}
	if svc.CurrentListID() != "1" {
		t.Fatalf("selection should default to first list, got %q", svc.CurrentListID())
	}
	if got := len(svc.PendingTasks()); got != 1 {
		t.Fatalf("expected 1 pending task, got %d", got)
	}
	if svc.Status().Loading {
		t.Fatalf("loading flag should be cleared")
	}

	svc.SelectList("2")
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if svc.CurrentListID() != "2" {
		t.Fatalf("existing selection should be kept, got %q", svc.CurrentListID())
	}
}

func TestRefreshDegradesFailingListToEmpty(t *testing.T) {
	ctx := context.Background()
	backend := newFetchingBackend()
	backend.FetchTasksErr["2"] = errUnavailable
	svc := New(backend, Options{})
	svc.Hydrate(model.EmptyState())

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("per-list failures must not fail the refresh: %v", err)
	}
	if got := svc.TaskCount("2"); got != 0 {
		t.Fatalf("failing list should be empty, got %d tasks", got)
	}
	if got := svc.TaskCount("1"); got != 2 {
		t.Fatalf("healthy list should keep its tasks, got %d", got)
	}
}

func TestRefreshListFailureSetsError(t *testing.T) {
	ctx := context.Background()
	backend := newFetchingBackend()
	backend.FetchListsErr = errUnavailable
	svc := New(backend, Options{})
	svc.Hydrate(model.EmptyState())

	if err := svc.Refresh(ctx); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected list load error, got %v", err)
	}
	status := svc.Status()
	if status.Loading || !errors.Is(status.LastError, errUnavailable) {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestRefreshIsNoopForLocalBackend(t *testing.T) {
	svc := newSeededService(t)
	if svc.Refreshable() {
		t.Fatalf("local backend should not be refreshable")
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh on local backend failed: %v", err)
	}
	if len(svc.Lists()) != 1 {
		t.Fatalf("refresh must not touch local state")
	}
}

func TestSignOutClearsRemoteCache(t *testing.T) {
	ctx := context.Background()
	backend := newFetchingBackend()
	svc := New(backend, Options{})
	svc.Hydrate(model.EmptyState())
	svc.SetUser(&model.User{ID: "1", Username: "ana"})
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	svc.SetUser(nil)
	if len(svc.Lists()) != 0 || svc.User() != nil {
		t.Fatalf("sign out should clear the remote cache")
	}
}

func TestSignOutKeepsLocalData(t *testing.T) {
	svc := newSeededService(t)
	svc.SetUser(&model.User{ID: "1", Username: "ana"})
	svc.SetUser(nil)
	if len(svc.Lists()) != 1 {
		t.Fatalf("local data must survive sign out")
	}
}
