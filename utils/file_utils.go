package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the parent directories of path.
func EnsureParentDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return fmt.Errorf("error creating parent directories for %q: %w", path, err)
	}
	return nil
}

// WriteStringFile writes the given file contents to the given path.
func WriteStringFile(path string, content string) error {
	return WriteBytesFile(path, []byte(content))
}

// WriteBytesFile writes bs to path, creating parent directories as needed.
func WriteBytesFile(path string, bs []byte) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(bs)
	return err
}

// ReadStringFile returns the contents of the file at path.
func ReadStringFile(path string) (string, error) {
	bs, err := ReadBytesFile(path)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func ReadBytesFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteJSONBytes marshals v as indented JSON without escaping HTML
// characters. Non-ASCII text is kept verbatim.
func WriteJSONBytes(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteJSONFile(path string, v any) error {
	bs, err := WriteJSONBytes(v)
	if err != nil {
		return fmt.Errorf("error encoding json for %q: %w", path, err)
	}
	return WriteBytesFile(path, bs)
}
