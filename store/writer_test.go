package store

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recordingKV struct {
	*MemoryKV
	mu  sync.Mutex
	ops []string
	err error
}

func (r *recordingKV) Set(key string, value []byte) error {
	r.mu.Lock()
	r.ops = append(r.ops, "set")
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryKV.Set(key, value)
}

func (r *recordingKV) Delete(key string) error {
	r.mu.Lock()
	r.ops = append(r.ops, "delete")
	r.mu.Unlock()
	return r.MemoryKV.Delete(key)
}

func TestWriterAppliesInOrder(t *testing.T) {
	kv := &recordingKV{MemoryKV: NewMemoryKV()}
	w := NewWriter(kv, nil)
	defer w.Close()

	first := sampleState("first")
	last := sampleState("last")

	w.Save(first)
	w.Erase()
	w.Save(last)
	w.Flush()

	got, report := Load(kv)
	if report.Source != SourceStored {
		t.Fatalf("expected stored state after flush, got %+v", report)
	}
	if !reflect.DeepEqual(last, got) {
		t.Fatalf("expected last save to win\nwant=%+v\ngot=%+v", last, got)
	}

	kv.mu.Lock()
	ops := append([]string(nil), kv.ops...)
	kv.mu.Unlock()
	if len(ops) < 2 || ops[len(ops)-1] != "set" || ops[len(ops)-2] != "delete" {
		t.Fatalf("operations out of order: %v", ops)
	}
}

func TestWriterEraseAfterSave(t *testing.T) {
	kv := NewMemoryKV()
	w := NewWriter(kv, nil)

	w.Save(sampleState("a"))
	w.Erase()
	w.Close()

	if _, err := kv.Get(StateKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected erased state, got %v", err)
	}
}

func TestWriterSwallowsErrors(t *testing.T) {
	kv := &recordingKV{MemoryKV: NewMemoryKV(), err: errors.New("disk full")}
	w := NewWriter(kv, nil)

	w.Save(sampleState("a"))
	w.Flush()
	w.Save(sampleState("b"))
	w.Close()

	kv.mu.Lock()
	defer kv.mu.Unlock()
	if len(kv.ops) != 2 {
		t.Fatalf("expected both writes attempted, got %v", kv.ops)
	}
}

func TestWriterDropsAfterClose(t *testing.T) {
	kv := NewMemoryKV()
	w := NewWriter(kv, nil)
	w.Close()
	w.Close()

	w.Save(sampleState("late"))
	w.Flush()
	if _, err := kv.Get(StateKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save after close should be dropped, got %v", err)
	}
}
