package model

import "sort"

// Repaired returns a copy of the state with its structural rules restored.
// Tasks whose list is gone are dropped, ListOrder names each list exactly
// once and a dangling selection is cleared.
func (s AppState) Repaired() AppState {
	state := s.Clone()
	if state.Version == 0 {
		state.Version = StateVersion
	}
	if state.Lists == nil {
		state.Lists = map[string]List{}
	}
	if state.Tasks == nil {
		state.Tasks = map[string]Task{}
	}

	for id, l := range state.Lists {
		if l.ID == "" {
			l.ID = id
		}
		if l.ID != id {
			delete(state.Lists, id)
			continue
		}
		state.Lists[id] = l
	}

	for id, t := range state.Tasks {
		if t.ID == "" {
			t.ID = id
		}
		if _, ok := state.Lists[t.ListID]; !ok || t.ID != id {
			delete(state.Tasks, id)
			continue
		}
		state.Tasks[id] = t
	}

	referenced := make(map[string]bool, len(state.Tasks))
	for id, l := range state.Lists {
		kept := make([]string, 0, len(l.TaskIDs))
		for _, taskID := range l.TaskIDs {
			t, ok := state.Tasks[taskID]
			if !ok || t.ListID != id || referenced[taskID] {
				continue
			}
			referenced[taskID] = true
			kept = append(kept, taskID)
		}
		l.TaskIDs = kept
		state.Lists[id] = l
	}

	orphans := make([]Task, 0)
	for id, t := range state.Tasks {
		if !referenced[id] {
			orphans = append(orphans, t)
		}
	}
	sort.SliceStable(orphans, func(i, j int) bool {
		if !orphans[i].CreatedAt.Equal(orphans[j].CreatedAt) {
			return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
		}
		return orphans[i].ID < orphans[j].ID
	})
	for _, t := range orphans {
		l := state.Lists[t.ListID]
		l.TaskIDs = append(l.TaskIDs, t.ID)
		state.Lists[t.ListID] = l
	}

	order := make([]string, 0, len(state.Lists))
	seen := make(map[string]bool, len(state.Lists))
	for _, id := range state.ListOrder {
		if _, ok := state.Lists[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	missing := make([]List, 0)
	for id, l := range state.Lists {
		if !seen[id] {
			missing = append(missing, l)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool {
		if !missing[i].CreatedAt.Equal(missing[j].CreatedAt) {
			return missing[i].CreatedAt.Before(missing[j].CreatedAt)
		}
		return missing[i].ID < missing[j].ID
	})
	for _, l := range missing {
		order = append(order, l.ID)
	}
	state.ListOrder = order

	if _, ok := state.Lists[state.CurrentListID]; !ok {
		state.CurrentListID = ""
	}
	return state
}
