package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tasklist/model"
)

// StateKey is the key the application state blob lives under.
const StateKey = "todo:state@v1"

// LoadSource tells where a loaded state came from.
type LoadSource string

const (
	SourceSeed   LoadSource = "seed"
	SourceStored LoadSource = "stored"
	SourceBackup LoadSource = "backup"
)

// LoadReport describes what Load did. Message is empty on a clean load and
// otherwise meant for the status line.
type LoadReport struct {
	Source  LoadSource
	Message string
	Err     error
}

// Load reads the state blob from kv. It never fails: a missing key yields
// the seeded state, and a malformed blob is quarantined and replaced by the
// newest valid backup, or by the seeded state when there is none.
func Load(kv KV) (model.AppState, LoadReport) {
	data, err := kv.Get(StateKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.NewState(), LoadReport{Source: SourceSeed}
		}
		return model.NewState(), LoadReport{
			Source:  SourceSeed,
			Message: "Falha ao ler estado salvo; iniciado com estado padrão",
			Err:     err,
		}
	}

	state, decodeErr := Decode(data)
	if decodeErr == nil {
		return state, LoadReport{Source: SourceStored}
	}

	rec, ok := kv.(Recoverer)
	if !ok {
		return model.NewState(), LoadReport{
			Source:  SourceSeed,
			Message: "Estado corrompido; iniciado com estado padrão",
			Err:     decodeErr,
		}
	}

	corruptName, moveErr := rec.Quarantine(StateKey)
	suffix := ""
	if moveErr == nil && corruptName != "" {
		suffix = fmt.Sprintf(" (arquivo ruim movido para %s)", corruptName)
	}

	backups, backupErr := rec.Backups(StateKey)
	if backupErr == nil {
		for _, b := range backups {
			recovered, err := Decode(b.Data)
			if err != nil {
				continue
			}
			if err := Save(kv, recovered); err != nil {
				return recovered, LoadReport{
					Source:  SourceBackup,
					Message: fmt.Sprintf("Estado recuperado de %s, mas não foi possível regravar", b.Name) + suffix,
					Err:     err,
				}
			}
			return recovered, LoadReport{
				Source:  SourceBackup,
				Message: fmt.Sprintf("Estado corrompido recuperado de %s", b.Name) + suffix,
				Err:     decodeErr,
			}
		}
	}

	return model.NewState(), LoadReport{
		Source:  SourceSeed,
		Message: "Estado corrompido sem backup válido; iniciado com estado padrão" + suffix,
		Err:     decodeErr,
	}
}

// Save encodes state and writes it under StateKey.
func Save(kv KV, state model.AppState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	return kv.Set(StateKey, data)
}

// Erase removes the persisted state.
func Erase(kv KV) error {
	return kv.Delete(StateKey)
}

// Encode serializes state as indented JSON.
func Encode(state model.AppState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a state blob and repairs structural inconsistencies.
func Decode(data []byte) (model.AppState, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return model.AppState{}, errors.New("decode state: empty blob")
	}
	var state model.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.AppState{}, fmt.Errorf("decode state: %w", err)
	}
	return state.Repaired(), nil
}
