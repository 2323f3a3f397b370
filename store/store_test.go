package store

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"tasklist/model"
)

func sampleState(label string) model.AppState {
	now := time.Date(2026, 2, 19, 12, 30, 0, 0, time.UTC)
	listID := "list-" + label
	taskID := "task-" + label
	return model.AppState{
		Version:   model.StateVersion,
		ListOrder: []string{listID},
		Lists: map[string]model.List{
			listID: {
				ID:        listID,
				Name:      "Inbox-" + label,
				CreatedAt: now,
				TaskIDs:   []string{taskID},
			},
		},
		Tasks: map[string]model.Task{
			taskID: {
				ID:        taskID,
				ListID:    listID,
				Title:     "Task-" + label,
				CreatedAt: now,
			},
		},
		CurrentListID: listID,
	}
}

func TestLoadMissingKeyReturnsSeed(t *testing.T) {
	kv := NewMemoryKV()

	state, report := Load(kv)
	if report.Source != SourceSeed || report.Message != "" {
		t.Fatalf("unexpected report %+v", report)
	}
	list, ok := state.Lists[state.CurrentListID]
	if !ok || list.Name != "Pessoal" || len(list.TaskIDs) != 3 {
		t.Fatalf("expected seeded Pessoal list, got %+v", state)
	}
}

func TestSaveThenLoad(t *testing.T) {
	kv := NewMemoryKV()
	want := sampleState("a")

	if err := Save(kv, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, report := Load(kv)
	if report.Source != SourceStored {
		t.Fatalf("expected stored source, got %+v", report)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestEraseRemovesState(t *testing.T) {
	kv := NewMemoryKV()
	if err := Save(kv, sampleState("a")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := Erase(kv); err != nil {
		t.Fatalf("erase failed: %v", err)
	}
	if _, err := kv.Get(StateKey); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after erase, got %v", err)
	}
}

func TestLoadCorruptWithoutRecovererFallsBackToSeed(t *testing.T) {
	kv := NewMemoryKV()
	if err := kv.Set(StateKey, []byte("{not json")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	state, report := Load(kv)
	if report.Source != SourceSeed || report.Err == nil || report.Message == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(state.Lists) != 1 {
		t.Fatalf("expected seeded state, got %+v", state)
	}
}

func TestLoadCorruptRecoversFromBackup(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	older := sampleState("old")
	latest := sampleState("latest")

	if err := Save(kv, older); err != nil {
		t.Fatalf("save older failed: %v", err)
	}
	if err := Save(kv, latest); err != nil {
		t.Fatalf("save latest failed: %v", err)
	}
	if err := kv.Set(StateKey, []byte(`{"lists": [`)); err != nil {
		t.Fatalf("write corrupt blob failed: %v", err)
	}

	got, report := Load(kv)
	if report.Source != SourceBackup {
		t.Fatalf("expected backup source, got %+v", report)
	}
	if !strings.Contains(report.Message, "recuperado") || !strings.Contains(report.Message, "corrupt-") {
		t.Fatalf("unexpected recovery message %q", report.Message)
	}
	if !reflect.DeepEqual(latest, got) {
		t.Fatalf("recovered state mismatch\nwant=%+v\ngot=%+v", latest, got)
	}

	again, report := Load(kv)
	if report.Source != SourceStored || !reflect.DeepEqual(latest, again) {
		t.Fatalf("recovered state was not rewritten: %+v", report)
	}
}

func TestLoadCorruptWithoutValidBackupFallsBackToSeed(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	if err := os.WriteFile(kv.Path(StateKey), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write corrupt file failed: %v", err)
	}

	state, report := Load(kv)
	if report.Source != SourceSeed || !strings.Contains(report.Message, "sem backup") {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(state.Lists) != 1 {
		t.Fatalf("expected seeded state, got %+v", state)
	}
	if _, err := os.Stat(kv.Path(StateKey)); !os.IsNotExist(err) {
		t.Fatalf("corrupt file should have been moved aside, stat err=%v", err)
	}
}

func TestDecodeRepairsStructure(t *testing.T) {
	blob := `{
		"lists": {
			"b": {"id": "b", "name": "B", "createdAt": "2026-01-02T00:00:00Z", "taskIds": ["t2", "ghost", "t1"]},
			"a": {"id": "a", "name": "A", "createdAt": "2026-01-01T00:00:00Z"}
		},
		"tasks": {
			"t1": {"id": "t1", "listId": "a", "title": "um", "createdAt": "2026-01-01T00:00:00Z"},
			"t2": {"id": "t2", "listId": "b", "title": "dois", "createdAt": "2026-01-01T00:00:00Z"},
			"t3": {"id": "t3", "listId": "gone", "title": "três", "createdAt": "2026-01-01T00:00:00Z"}
		},
		"currentListId": "gone"
	}`

	state, err := Decode([]byte(blob))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if state.Version != model.StateVersion {
		t.Fatalf("version = %d, want %d", state.Version, model.StateVersion)
	}
	if !reflect.DeepEqual(state.ListOrder, []string{"a", "b"}) {
		t.Fatalf("list order = %v, want [a b]", state.ListOrder)
	}
	if got := state.Lists["b"].TaskIDs; !reflect.DeepEqual(got, []string{"t2"}) {
		t.Fatalf("list b task ids = %v, want [t2]", got)
	}
	if got := state.Lists["a"].TaskIDs; !reflect.DeepEqual(got, []string{"t1"}) {
		t.Fatalf("list a task ids = %v, want [t1]", got)
	}
	if _, ok := state.Tasks["t3"]; ok {
		t.Fatalf("task of missing list should be dropped")
	}
	if state.CurrentListID != "" {
		t.Fatalf("dangling selection should be cleared, got %q", state.CurrentListID)
	}
}

func TestDecodeRejectsEmptyBlob(t *testing.T) {
	if _, err := Decode([]byte("  ")); err == nil {
		t.Fatalf("expected error for empty blob")
	}
}
