package app

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/logging"
	"tasklist/model"
)

var (
	ErrListNameRequired   = errors.New("nome da lista é obrigatório")
	ErrListNameTooLong    = fmt.Errorf("nome da lista deve ter no máximo %d caracteres", model.MaxListNameLen)
	ErrDuplicateList      = errors.New("já existe uma lista com esse nome")
	ErrListNotFound       = errors.New("lista não encontrada")
	ErrListHasTasks       = errors.New("lista possui tarefas; confirme a exclusão forçada")
	ErrNoListSelected     = errors.New("nenhuma lista selecionada")
	ErrTaskTitleRequired  = errors.New("título é obrigatório")
	ErrTaskTitleTooLong   = fmt.Errorf("título deve ter no máximo %d caracteres", model.MaxTaskTitleLen)
	ErrDescriptionTooLong = fmt.Errorf("descrição deve ter no máximo %d caracteres", model.MaxDescriptionLen)
	ErrDuplicateTask      = errors.New("já existe uma tarefa com esse título nesta lista")
	ErrTaskNotFound       = errors.New("tarefa não encontrada")

	// ErrMissingID is returned when a backend confirms a creation without
	// an id to store it under.
	ErrMissingID = errors.New("o servidor não devolveu um identificador")
)

// Op names the operation that produced a Change.
type Op string

const (
	OpHydrate    Op = "hydrate"
	OpSelectList Op = "select-list"
	OpCreateList Op = "create-list"
	OpRenameList Op = "rename-list"
	OpDeleteList Op = "delete-list"
	OpCreateTask Op = "create-task"
	OpUpdateTask Op = "update-task"
	OpRemoveTask Op = "remove-task"
	OpRollback   Op = "rollback"
	OpRefresh    Op = "refresh"
	OpReset      Op = "reset"
	OpSetUser    Op = "set-user"
	OpStatus     Op = "status"
)

// Status is the non-domain part of the store: hydration and network state.
type Status struct {
	Hydrated  bool
	Loading   bool
	LastError error
}

// Change is delivered to subscribers after every state transition.
type Change struct {
	Op     Op
	State  model.AppState
	Status Status
}

// DeleteListOptions controls DeleteList.
type DeleteListOptions struct {
	// Force deletes a list even when it still has tasks.
	Force bool
}

// Options configures New.
type Options struct {
	Persister Persister
	Logger    *log.Logger
	Now       func() time.Time
	// FetchConcurrency bounds parallel task loads during Refresh.
	FetchConcurrency int
}

// Service is the single source of truth for lists and tasks.
// It is safe for concurrent use; backend calls run without the lock held.
type Service struct {
	mu       sync.Mutex
	backend  Backend
	persist  Persister
	logger   *log.Logger
	now      func() time.Time
	parallel int

	state    model.AppState
	status   Status
	versions map[string]uint64
	seq      uint64

	subs    map[int]func(Change)
	nextSub int
}

// New creates a service holding the backend's default state. The service
// is not hydrated until Hydrate is called, and nothing is persisted before.
func New(backend Backend, opts Options) *Service {
	if backend == nil {
		backend = NewLocalBackend()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	parallel := opts.FetchConcurrency
	if parallel <= 0 {
		parallel = 4
	}
	return &Service{
		backend:  backend,
		persist:  opts.Persister,
		logger:   logging.OrDiscard(opts.Logger),
		now:      now,
		parallel: parallel,
		state:    backend.DefaultState().Repaired(),
		versions: make(map[string]uint64),
		subs:     make(map[int]func(Change)),
	}
}

// Backend returns the backend the service writes through.
func (s *Service) Backend() Backend {
	return s.backend
}

// Hydrate replaces the current state with a loaded one and marks the
// service hydrated. Only the first call has an effect.
func (s *Service) Hydrate(state model.AppState) {
	s.mu.Lock()
	if s.status.Hydrated {
		s.mu.Unlock()
		s.logger.Debug("hydrate ignored: already hydrated")
		return
	}
	s.state = state.Repaired()
	s.status.Hydrated = true
	s.bumpAll()
	notify := s.commit(OpHydrate, false)
	s.mu.Unlock()

	s.logger.Debug("state hydrated", "lists", len(state.Lists), "tasks", len(state.Tasks))
	notify()
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (s *Service) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// State returns a deep copy of the current state.
func (s *Service) State() model.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status returns hydration and network status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Hydrated reports whether persisted state has been loaded.
func (s *Service) Hydrated() bool {
	return s.Status().Hydrated
}

// User returns the signed-in user stored with the state, if any.
func (s *Service) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// Lists returns all lists in display order.
func (s *Service) Lists() []model.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.List, 0, len(s.state.ListOrder))
	for _, id := range s.state.ListOrder {
		if l, ok := s.state.Lists[id]; ok {
			out = append(out, l.Clone())
		}
	}
	return out
}

// GetList returns a list by id.
func (s *Service) GetList(id string) (model.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.Lists[id]
	if !ok {
		return model.List{}, ErrListNotFound
	}
	return l.Clone(), nil
}

// GetTask returns a task by id.
func (s *Service) GetTask(id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.Tasks[id]
	if !ok {
		return model.Task{}, ErrTaskNotFound
	}
	return t.Clone(), nil
}

// CurrentListID returns the selected list id, or "".
func (s *Service) CurrentListID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentListID
}

// CurrentList returns the selected list.
func (s *Service) CurrentList() (model.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.Lists[s.state.CurrentListID]
	if !ok {
		return model.List{}, false
	}
	return l.Clone(), true
}

// TasksByCurrentList returns the selected list's tasks in list order.
// Ids that do not resolve to a task are skipped.
func (s *Service) TasksByCurrentList() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksOf(s.state.CurrentListID)
}

// Tasks returns a list's tasks in list order.
func (s *Service) Tasks(listID string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksOf(listID)
}

// PendingTasks returns the not-done tasks of the selected list.
func (s *Service) PendingTasks() []model.Task {
	return filterDone(s.TasksByCurrentList(), false)
}

// CompletedTasks returns the done tasks of the selected list.
func (s *Service) CompletedTasks() []model.Task {
	return filterDone(s.TasksByCurrentList(), true)
}

// TaskCount returns how many tasks a list holds, 0 for unknown lists.
func (s *Service) TaskCount(listID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasksOf(listID))
}

// SelectList makes id the current list. Unknown ids are ignored.
func (s *Service) SelectList(id string) {
	s.mu.Lock()
	if _, ok := s.state.Lists[id]; !ok || s.state.CurrentListID == id {
		s.mu.Unlock()
		return
	}
	s.state.CurrentListID = id
	notify := s.commit(OpSelectList, true)
	s.mu.Unlock()
	notify()
}

func (s *Service) tasksOf(listID string) []model.Task {
	l, ok := s.state.Lists[listID]
	if !ok {
		return []model.Task{}
	}
	out := make([]model.Task, 0, len(l.TaskIDs))
	for _, id := range l.TaskIDs {
		if t, ok := s.state.Tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

func filterDone(tasks []model.Task, done bool) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Done == done {
			out = append(out, t)
		}
	}
	return out
}

// commit must be called with s.mu held. It hands the new state to the
// persister and returns a function that notifies subscribers; call it after
// unlocking.
func (s *Service) commit(op Op, persist bool) func() {
	snap := s.state.Clone()
	status := s.status
	if persist && s.status.Hydrated && s.persist != nil {
		s.persist.Save(snap)
	}
	if len(s.subs) == 0 {
		return func() {}
	}
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(Change{Op: op, State: snap.Clone(), Status: status})
		}
	}
}

// stamp records a new version for an entity and returns it. Reconciling a
// backend response only touches the entity while its version is unchanged.
func (s *Service) stamp(id string) uint64 {
	s.seq++
	s.versions[id] = s.seq
	return s.seq
}

func (s *Service) current(id string, version uint64) bool {
	return s.versions[id] == version
}

// bumpAll invalidates every in-flight reconcile.
func (s *Service) bumpAll() {
	s.versions = make(map[string]uint64)
	s.seq++
}

// fail records a backend error and notifies subscribers.
func (s *Service) fail(op Op, err error) {
	s.mu.Lock()
	s.status.LastError = err
	notify := s.commit(op, false)
	s.mu.Unlock()
	s.logger.Warn("backend call failed", "op", op, "backend", s.backend.Name(), "err", err)
	notify()
}

func (s *Service) clearErrorLocked() {
	s.status.LastError = nil
}

func (s *Service) listNameTaken(name, exceptID string) bool {
	key := model.Normalize(name)
	for id, l := range s.state.Lists {
		if id != exceptID && model.Normalize(l.Name) == key {
			return true
		}
	}
	return false
}

func (s *Service) taskTitleTaken(listID, title, exceptID string) bool {
	l, ok := s.state.Lists[listID]
	if !ok {
		return false
	}
	key := model.Normalize(title)
	for _, id := range l.TaskIDs {
		if id == exceptID {
			continue
		}
		if t, ok := s.state.Tasks[id]; ok && model.Normalize(t.Title) == key {
			return true
		}
	}
	return false
}

func validateListName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrListNameRequired
	}
	if model.RuneLen(name) > model.MaxListNameLen {
		return "", ErrListNameTooLong
	}
	return name, nil
}

func validateTaskTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTaskTitleRequired
	}
	if model.RuneLen(title) > model.MaxTaskTitleLen {
		return "", ErrTaskTitleTooLong
	}
	return title, nil
}

func validateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if model.RuneLen(desc) > model.MaxDescriptionLen {
		return "", ErrDescriptionTooLong
	}
	return desc, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
