package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotText = errors.New("not a text file")

// ReadDocument loads a plain text contract from disk. The document ID is
// the path as given and the title is the file name without its extension
func ReadDocument(path string) (*Document, error) {
	ok, err := isTextFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotText, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	id := filepath.ToSlash(path)
	return &Document{
		ID:      id,
		Title:   titleFromID(id),
		Content: string(content),
	}, nil
}

// WriteResult writes v as indented JSON, creating parent directories
func WriteResult(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error writing file: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing file: %w", err)
	}
	return nil
}

// isTextFile sniffs the first 512 bytes of the file
func isTextFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return strings.HasPrefix(http.DetectContentType(buf[:n]), "text/"), nil
}
