package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/ppiankov/qaforge/internal/model"
)

// WriteJSON writes v as an indented JSON array or object to path. The file
// is written to a temporary sibling and renamed into place under an
// advisory lock, so readers never see a partial artifact and two runs
// cannot write the same output concurrently. The <path>.lock file is left
// in place; unlinking it after Unlock would let two runs hold locks on
// different inodes for the same path.
func WriteJSON(path string, v any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output: %w", err)
	}
	if !ok {
		return fmt.Errorf("output %s is locked by another run", path)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// WriteRecords writes records in the segmenter output format
func WriteRecords(path string, records []model.QARecord) error {
	if records == nil {
		records = []model.QARecord{}
	}
	return WriteJSON(path, records)
}

// WriteTriples writes the knowledge-triple artifact
func WriteTriples(path string, triples []model.Triple) error {
	if triples == nil {
		triples = []model.Triple{}
	}
	return WriteJSON(path, triples)
}

// WriteDialogues writes the dialogue artifact
func WriteDialogues(path string, dialogues []model.DialogueExample) error {
	if dialogues == nil {
		dialogues = []model.DialogueExample{}
	}
	return WriteJSON(path, dialogues)
}

// ReadRecords loads a segmenter output file
func ReadRecords(path string) ([]model.QARecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []model.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse records %s: %w", filepath.Base(path), err)
	}
	return records, nil
}
