package app

import (
	"context"

	"tasklist/model"
)

// CreateList validates name, creates the list through the backend, appends
// it to the display order and selects it.
func (s *Service) CreateList(ctx context.Context, name string) (model.List, error) {
	name, err := validateListName(name)
	if err != nil {
		return model.List{}, err
	}

	s.mu.Lock()
	taken := s.listNameTaken(name, "")
	s.mu.Unlock()
	if taken {
		return model.List{}, ErrDuplicateList
	}

	created, err := s.backend.CreateList(ctx, name)
	if err != nil {
		s.fail(OpCreateList, err)
		return model.List{}, err
	}
	if created.ID == "" {
		s.fail(OpCreateList, ErrMissingID)
		return model.List{}, ErrMissingID
	}
	if created.TaskIDs == nil {
		created.TaskIDs = []string{}
	}

	s.mu.Lock()
	if s.listNameTaken(created.Name, created.ID) {
		s.mu.Unlock()
		s.logger.Warn("list created concurrently with the same name", "name", created.Name)
		return model.List{}, ErrDuplicateList
	}
	if _, exists := s.state.Lists[created.ID]; !exists {
		s.state.ListOrder = append(s.state.ListOrder, created.ID)
	}
	s.state.Lists[created.ID] = created
	s.state.CurrentListID = created.ID
	s.stamp(created.ID)
	s.clearErrorLocked()
	notify := s.commit(OpCreateList, true)
	s.mu.Unlock()

	s.logger.Debug("list created", "id", created.ID, "name", created.Name)
	notify()
	return created.Clone(), nil
}

// RenameList changes a list's name. The new name must not collide with
// another list.
func (s *Service) RenameList(ctx context.Context, id, name string) (model.List, error) {
	s.mu.Lock()
	prev, ok := s.state.Lists[id]
	if !ok {
		s.mu.Unlock()
		return model.List{}, ErrListNotFound
	}
	name, err := validateListName(name)
	if err != nil {
		s.mu.Unlock()
		return model.List{}, err
	}
	if s.listNameTaken(name, id) {
		s.mu.Unlock()
		return model.List{}, ErrDuplicateList
	}

	prev = prev.Clone()
	next := prev.Clone()
	next.Name = name
	next.UpdatedAt = timePtr(s.now())
	s.state.Lists[id] = next
	version := s.stamp(id)
	notify := s.commit(OpRenameList, true)
	s.mu.Unlock()
	notify()

	saved, err := s.backend.RenameList(ctx, next.Clone())

	s.mu.Lock()
	if err != nil {
		if s.current(id, version) {
			if _, still := s.state.Lists[id]; still {
				s.state.Lists[id] = prev
			}
		}
		s.status.LastError = err
		notify = s.commit(OpRollback, true)
		s.mu.Unlock()
		s.logger.Warn("rename list rolled back", "id", id, "err", err)
		notify()
		return model.List{}, err
	}

	result := next
	changed := s.status.LastError != nil
	if cur, still := s.state.Lists[id]; still && s.current(id, version) {
		if saved.Name != "" && saved.Name != cur.Name {
			cur.Name = saved.Name
			changed = true
		}
		if saved.UpdatedAt != nil && (cur.UpdatedAt == nil || !saved.UpdatedAt.Equal(*cur.UpdatedAt)) {
			cur.UpdatedAt = saved.UpdatedAt
			changed = true
		}
		s.state.Lists[id] = cur
		result = cur
	}
	s.clearErrorLocked()
	notify = func() {}
	if changed {
		notify = s.commit(OpRenameList, true)
	}
	s.mu.Unlock()
	notify()
	return result.Clone(), nil
}

// DeleteList removes a list and all of its tasks. A list that still has
// tasks is only deleted with opts.Force. When the selected list is deleted
// the selection moves to the first remaining list.
func (s *Service) DeleteList(ctx context.Context, id string, opts DeleteListOptions) error {
	s.mu.Lock()
	list, ok := s.state.Lists[id]
	if !ok {
		s.mu.Unlock()
		return ErrListNotFound
	}
	if len(list.TaskIDs) > 0 && !opts.Force {
		s.mu.Unlock()
		return ErrListHasTasks
	}

	list = list.Clone()
	removedTasks := make([]model.Task, 0, len(list.TaskIDs))
	for _, taskID := range list.TaskIDs {
		if t, ok := s.state.Tasks[taskID]; ok {
			removedTasks = append(removedTasks, t)
			delete(s.state.Tasks, taskID)
		}
	}
	index := indexOf(s.state.ListOrder, id)
	s.state.ListOrder = removeID(s.state.ListOrder, id)
	delete(s.state.Lists, id)

	prevCurrent := s.state.CurrentListID
	if prevCurrent == id {
		s.state.CurrentListID = ""
		if len(s.state.ListOrder) > 0 {
			s.state.CurrentListID = s.state.ListOrder[0]
		}
	}
	fallback := s.state.CurrentListID
	version := s.stamp(id)
	notify := s.commit(OpDeleteList, true)
	s.mu.Unlock()
	notify()

	err := s.backend.DeleteList(ctx, id, opts.Force)

	s.mu.Lock()
	if err != nil {
		if s.current(id, version) {
			s.state.Lists[id] = list
			s.state.ListOrder = insertAt(s.state.ListOrder, index, id)
			for _, t := range removedTasks {
				if _, taken := s.state.Tasks[t.ID]; !taken {
					s.state.Tasks[t.ID] = t
				}
			}
			if s.state.CurrentListID == fallback {
				s.state.CurrentListID = prevCurrent
			}
		}
		s.status.LastError = err
		notify = s.commit(OpRollback, true)
		s.mu.Unlock()
		s.logger.Warn("delete list rolled back", "id", id, "err", err)
		notify()
		return err
	}
	notify = func() {}
	if s.status.LastError != nil {
		s.clearErrorLocked()
		notify = s.commit(OpStatus, false)
	}
	s.mu.Unlock()

	s.logger.Debug("list deleted", "id", id, "tasks", len(removedTasks))
	notify()
	return nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertAt(ids []string, index int, id string) []string {
	if indexOf(ids, id) >= 0 {
		return ids
	}
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}
