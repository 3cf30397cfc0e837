package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/qaforge/internal/model"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrDecode marks a document that could not be read or decoded.
// Such documents are skipped; they never abort a batch.
var ErrDecode = errors.New("decode document")

// Document is one decoded source file
type Document struct {
	OriginID string // File base name
	Path     string
	Text     string
}

// ListDocuments returns matching files in dir, sorted by name and capped at maxFiles
func ListDocuments(dir string, cfg model.SegmentConfig) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), cfg.Extensions) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if cfg.MaxFiles > 0 && len(paths) > cfg.MaxFiles {
		paths = paths[:cfg.MaxFiles]
	}
	return paths, nil
}

// ReadDocument reads and decodes a file to normalized UTF-8 text.
// A UTF-8 or UTF-16 BOM selects the encoding; otherwise UTF-8 is assumed and
// invalid byte sequences are dropped. CRLF line endings become LF.
func ReadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}

	return &Document{
		OriginID: filepath.Base(path),
		Path:     path,
		Text:     text,
	}, nil
}

func decodeText(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("transform: %w", err)
	}

	text := string(decoded)
	if strings.ContainsRune(text, 0) {
		return "", fmt.Errorf("binary content")
	}

	text = strings.ReplaceAll(text, "\uFFFD", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return text, nil
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
