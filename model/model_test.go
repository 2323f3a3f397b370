package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAppStateSerializationRoundTrip(t *testing.T) {
	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	state := AppState{
		Version:   StateVersion,
		User:      &User{ID: "1", Username: "ana", Name: "ana", LoggedAt: now},
		ListOrder: []string{"l1"},
		Lists: map[string]List{
			"l1": {ID: "l1", Name: "Mercado", CreatedAt: now, UpdatedAt: &now, TaskIDs: []string{"t1"}},
		},
		Tasks: map[string]Task{
			"t1": {
				ID:          "t1",
				ListID:      "l1",
				Title:       "Leite",
				Description: "integral",
				Done:        true,
				CreatedAt:   now,
				UpdatedAt:   &now,
				DueDate:     &due,
			},
		},
		CurrentListID: "l1",
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got AppState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(state, got) {
		t.Fatalf("round-trip mismatch\nwant=%+v\ngot=%+v", state, got)
	}
}

func TestNewStateSeedsPessoal(t *testing.T) {
	state := NewState()

	if len(state.ListOrder) != 1 || len(state.Lists) != 1 {
		t.Fatalf("expected exactly one seeded list, got %+v", state.ListOrder)
	}
	list := state.Lists[state.ListOrder[0]]
	if list.Name != "Pessoal" {
		t.Fatalf("expected Pessoal, got %q", list.Name)
	}
	if state.CurrentListID != list.ID {
		t.Fatalf("seeded list should be selected, got %q", state.CurrentListID)
	}

	want := []struct {
		title string
		done  bool
	}{
		{"Ler documentação do projeto", false},
		{"Configurar ambiente", true},
		{"Criar primeira lista", false},
	}
	if len(list.TaskIDs) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(list.TaskIDs))
	}
	for i, id := range list.TaskIDs {
		task, ok := state.Tasks[id]
		if !ok {
			t.Fatalf("task %s missing from task map", id)
		}
		if task.Title != want[i].title || task.Done != want[i].done || task.ListID != list.ID {
			t.Fatalf("task %d = %+v, want %+v", i, task, want[i])
		}
	}
}

func TestNewStateIDsAreFresh(t *testing.T) {
	a := NewState()
	b := NewState()
	if a.CurrentListID == b.CurrentListID {
		t.Fatalf("expected distinct ids across seeds, both %q", a.CurrentListID)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		a, b string
		same bool
	}{
		{"Mercado", "  mercado ", true},
		{"MERCADO", "mercado", true},
		{"Café", "cafe", true},
		{"Ação", "acao", true},
		{"Mercado", "Mercados", false},
		{"Trabalho", "Pessoal", false},
	}
	for _, tc := range cases {
		if got := SameName(tc.a, tc.b); got != tc.same {
			t.Fatalf("SameName(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.same)
		}
	}
}

func TestNewIDPrefixAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID("task")
		if !strings.HasPrefix(id, "task_") {
			t.Fatalf("id %q missing prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestCloneIsIndependent(t *testing.T) {
	state := NewState()
	cp := state.Clone()

	listID := state.CurrentListID
	l := cp.Lists[listID]
	l.TaskIDs[0] = "mutated"
	cp.Lists[listID] = l
	cp.ListOrder[0] = "mutated"

	if state.Lists[listID].TaskIDs[0] == "mutated" {
		t.Fatalf("clone shares TaskIDs with original")
	}
	if state.ListOrder[0] == "mutated" {
		t.Fatalf("clone shares ListOrder with original")
	}
}

func TestRuneLenCountsCharacters(t *testing.T) {
	if got := RuneLen("ação"); got != 4 {
		t.Fatalf("RuneLen = %d, want 4", got)
	}
}
