package app

import (
	"context"
	"time"

	"tasklist/model"
)

// AddTask appends a pending task with the given title to the selected list.
func (s *Service) AddTask(ctx context.Context, title string) (model.Task, error) {
	return s.CreateTask(ctx, model.TaskDraft{Title: title})
}

// CreateTask appends a pending task to the selected list.
func (s *Service) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	s.mu.Lock()
	listID := s.state.CurrentListID
	if _, ok := s.state.Lists[listID]; !ok {
		s.mu.Unlock()
		return model.Task{}, ErrNoListSelected
	}
	s.mu.Unlock()

	title, err := validateTaskTitle(draft.Title)
	if err != nil {
		return model.Task{}, err
	}
	desc, err := validateDescription(draft.Description)
	if err != nil {
		return model.Task{}, err
	}
	draft.Title = title
	draft.Description = desc

	s.mu.Lock()
	taken := s.taskTitleTaken(listID, title, "")
	s.mu.Unlock()
	if taken {
		return model.Task{}, ErrDuplicateTask
	}

	created, err := s.backend.CreateTask(ctx, listID, draft)
	if err != nil {
		s.fail(OpCreateTask, err)
		return model.Task{}, err
	}
	if created.ID == "" {
		s.fail(OpCreateTask, ErrMissingID)
		return model.Task{}, ErrMissingID
	}
	created.ListID = listID

	s.mu.Lock()
	list, ok := s.state.Lists[listID]
	if !ok {
		s.mu.Unlock()
		return model.Task{}, ErrListNotFound
	}
	if s.taskTitleTaken(listID, created.Title, created.ID) {
		s.mu.Unlock()
		return model.Task{}, ErrDuplicateTask
	}
	if _, exists := s.state.Tasks[created.ID]; !exists {
		list.TaskIDs = append(list.TaskIDs, created.ID)
		s.state.Lists[listID] = list
	}
	s.state.Tasks[created.ID] = created
	s.stamp(created.ID)
	s.clearErrorLocked()
	notify := s.commit(OpCreateTask, true)
	s.mu.Unlock()

	s.logger.Debug("task created", "id", created.ID, "list", listID)
	notify()
	return created.Clone(), nil
}

// ToggleTask flips a task's done flag. Unknown ids are ignored.
func (s *Service) ToggleTask(ctx context.Context, id string) error {
	s.mu.Lock()
	task, ok := s.state.Tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	done := !task.Done
	next := task.Clone()
	next.Done = done
	_, err := s.applyTaskUpdate(ctx, task, next, model.TaskPatch{Done: &done})
	return err
}

// EditTask changes a task's title. A list must be selected and the title
// must stay unique within the task's own list.
func (s *Service) EditTask(ctx context.Context, id, title string) (model.Task, error) {
	s.mu.Lock()
	if _, ok := s.state.Lists[s.state.CurrentListID]; !ok {
		s.mu.Unlock()
		return model.Task{}, ErrNoListSelected
	}
	s.mu.Unlock()
	return s.UpdateTask(ctx, id, model.TaskPatch{Title: &title})
}

// UpdateTask applies a partial update to a task.
func (s *Service) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	s.mu.Lock()
	task, ok := s.state.Tasks[id]
	if !ok {
		s.mu.Unlock()
		return model.Task{}, ErrTaskNotFound
	}

	next := task.Clone()
	if patch.Title != nil {
		title, err := validateTaskTitle(*patch.Title)
		if err != nil {
			s.mu.Unlock()
			return model.Task{}, err
		}
		if s.taskTitleTaken(task.ListID, title, id) {
			s.mu.Unlock()
			return model.Task{}, ErrDuplicateTask
		}
		next.Title = title
		patch.Title = &title
	}
	if patch.Description != nil {
		desc, err := validateDescription(*patch.Description)
		if err != nil {
			s.mu.Unlock()
			return model.Task{}, err
		}
		next.Description = desc
		patch.Description = &desc
	}
	if patch.Done != nil {
		next.Done = *patch.Done
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		next.DueDate = &due
	}
	if patch.IsZero() {
		s.mu.Unlock()
		return task.Clone(), nil
	}
	return s.applyTaskUpdate(ctx, task, next, patch)
}

// applyTaskUpdate runs the optimistic update protocol. It must be entered
// with s.mu held and returns with it released.
func (s *Service) applyTaskUpdate(ctx context.Context, prev, next model.Task, patch model.TaskPatch) (model.Task, error) {
	id := prev.ID
	prev = prev.Clone()
	next.UpdatedAt = timePtr(s.now())
	s.state.Tasks[id] = next
	version := s.stamp(id)
	notify := s.commit(OpUpdateTask, true)
	s.mu.Unlock()
	notify()

	saved, err := s.backend.UpdateTask(ctx, next.Clone(), patch)

	s.mu.Lock()
	if err != nil {
		if _, still := s.state.Tasks[id]; still && s.current(id, version) {
			s.state.Tasks[id] = prev
		}
		s.status.LastError = err
		notify = s.commit(OpRollback, true)
		s.mu.Unlock()
		s.logger.Warn("task update rolled back", "id", id, "err", err)
		notify()
		return model.Task{}, err
	}

	result := next
	changed := s.status.LastError != nil
	if cur, still := s.state.Tasks[id]; still && s.current(id, version) {
		merged := mergeTask(cur, saved)
		if !sameTask(cur, merged) {
			s.state.Tasks[id] = merged
			changed = true
		}
		result = merged
	}
	s.clearErrorLocked()
	notify = func() {}
	if changed {
		notify = s.commit(OpUpdateTask, true)
	}
	s.mu.Unlock()
	notify()
	return result.Clone(), nil
}

// RemoveTask deletes a task. It does nothing when no list is selected or
// the task does not exist.
func (s *Service) RemoveTask(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.state.Lists[s.state.CurrentListID]; !ok {
		s.mu.Unlock()
		return nil
	}
	task, ok := s.state.Tasks[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	task = task.Clone()
	index := -1
	if owner, ok := s.state.Lists[task.ListID]; ok {
		index = indexOf(owner.TaskIDs, id)
		owner.TaskIDs = removeID(owner.TaskIDs, id)
		s.state.Lists[task.ListID] = owner
	}
	delete(s.state.Tasks, id)
	version := s.stamp(id)
	notify := s.commit(OpRemoveTask, true)
	s.mu.Unlock()
	notify()

	err := s.backend.DeleteTask(ctx, task.ListID, id)

	s.mu.Lock()
	if err != nil {
		if owner, ok := s.state.Lists[task.ListID]; ok && s.current(id, version) {
			owner.TaskIDs = insertAt(owner.TaskIDs, index, id)
			s.state.Lists[task.ListID] = owner
			s.state.Tasks[id] = task
		}
		s.status.LastError = err
		notify = s.commit(OpRollback, true)
		s.mu.Unlock()
		s.logger.Warn("remove task rolled back", "id", id, "err", err)
		notify()
		return err
	}
	notify = func() {}
	if s.status.LastError != nil {
		s.clearErrorLocked()
		notify = s.commit(OpStatus, false)
	}
	s.mu.Unlock()

	s.logger.Debug("task removed", "id", id)
	notify()
	return nil
}

// mergeTask takes the server's view of the editable fields while keeping
// local identity and ownership. A due date the server did not store is
// dropped.
func mergeTask(cur, saved model.Task) model.Task {
	out := cur.Clone()
	if saved.ID != "" && saved.ID != cur.ID {
		return out
	}
	if saved.Title != "" {
		out.Title = saved.Title
	}
	out.Description = saved.Description
	out.Done = saved.Done
	out.DueDate = cloneDue(saved.DueDate)
	if saved.UpdatedAt != nil {
		at := *saved.UpdatedAt
		out.UpdatedAt = &at
	}
	return out
}

func cloneDue(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	due := *t
	return &due
}

func sameTask(a, b model.Task) bool {
	if a.Title != b.Title || a.Description != b.Description || a.Done != b.Done {
		return false
	}
	return sameTime(a.DueDate, b.DueDate) && sameTime(a.UpdatedAt, b.UpdatedAt)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
