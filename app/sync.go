package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"tasklist/model"
)

// Refreshable reports whether the backend can reload the cache.
func (s *Service) Refreshable() bool {
	_, ok := s.backend.(Fetcher)
	return ok
}

// Refresh reloads lists and then every list's tasks from the backend.
// A list whose tasks fail to load is kept with no tasks. The selection is
// kept when the list still exists and otherwise moves to the first list.
// Backends that do not implement Fetcher make this a no-op.
func (s *Service) Refresh(ctx context.Context) error {
	fetcher, ok := s.backend.(Fetcher)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.status.Loading = true
	notify := s.commit(OpStatus, false)
	s.mu.Unlock()
	notify()

	lists, err := fetcher.FetchLists(ctx)
	if err != nil {
		s.mu.Lock()
		s.status.Loading = false
		s.status.LastError = err
		notify := s.commit(OpStatus, false)
		s.mu.Unlock()
		s.logger.Warn("load lists failed", "backend", s.backend.Name(), "err", err)
		notify()
		return err
	}

	results := make([][]model.Task, len(lists))
	var g errgroup.Group
	g.SetLimit(s.parallel)
	for i, l := range lists {
		i, l := i, l
		g.Go(func() error {
			tasks, err := fetcher.FetchTasks(ctx, l.ID)
			if err != nil {
				s.logger.Warn("load tasks failed; showing list empty", "list", l.ID, "err", err)
				results[i] = []model.Task{}
				return nil
			}
			results[i] = tasks
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	next := model.EmptyState()
	next.User = s.state.User
	for i, l := range lists {
		l = l.Clone()
		l.TaskIDs = make([]string, 0, len(results[i]))
		for _, t := range results[i] {
			t.ListID = l.ID
			next.Tasks[t.ID] = t
			l.TaskIDs = append(l.TaskIDs, t.ID)
		}
		if _, dup := next.Lists[l.ID]; !dup {
			next.ListOrder = append(next.ListOrder, l.ID)
		}
		next.Lists[l.ID] = l
	}
	next.CurrentListID = s.state.CurrentListID
	if _, ok := next.Lists[next.CurrentListID]; !ok {
		next.CurrentListID = ""
		if len(next.ListOrder) > 0 {
			next.CurrentListID = next.ListOrder[0]
		}
	}
	s.state = next
	s.bumpAll()
	s.status.Loading = false
	s.clearErrorLocked()
	notify = s.commit(OpRefresh, true)
	s.mu.Unlock()

	s.logger.Info("cache refreshed", "backend", s.backend.Name(), "lists", len(lists), "tasks", len(next.Tasks))
	notify()
	return nil
}

// Reset restores the backend's default state and erases persisted data.
// The signed-in user is kept.
func (s *Service) Reset() {
	s.mu.Lock()
	user := s.state.User
	s.state = s.backend.DefaultState().Repaired()
	s.state.User = user
	s.bumpAll()
	s.clearErrorLocked()
	if s.persist != nil {
		s.persist.Erase()
	}
	notify := s.commit(OpReset, false)
	s.mu.Unlock()

	s.logger.Info("state reset", "backend", s.backend.Name())
	notify()
}

// SetUser records the signed-in user. Signing out, or switching to a
// different user, clears a cache that belongs to a remote backend.
func (s *Service) SetUser(user *model.User) {
	s.mu.Lock()
	prev := s.state.User
	_, remote := s.backend.(Fetcher)
	switched := user == nil || (prev != nil && prev.ID != user.ID)
	if remote && switched {
		s.state = s.backend.DefaultState().Repaired()
		s.bumpAll()
		s.clearErrorLocked()
	}
	if user == nil {
		s.state.User = nil
	} else {
		u := *user
		s.state.User = &u
	}
	notify := s.commit(OpSetUser, true)
	s.mu.Unlock()
	notify()
}
