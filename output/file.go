package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/findyourpaths/phonespecs/utils"
)

// A Writer persists a batch of records.
type Writer interface {
	Write(recs Records) error
}

// FileWriter writes records as an indented JSON array without HTML
// escaping, so values like "4 GB | 8 GB" and "<" survive as written.
type FileWriter struct {
	Path string
}

func (fw *FileWriter) Write(recs Records) error {
	if err := utils.WriteJSONFile(fw.Path, recs); err != nil {
		return fmt.Errorf("error writing records to %q: %w", fw.Path, err)
	}
	slog.Info(fmt.Sprintf("wrote %d records to file %s", len(recs), fw.Path))
	return nil
}

// StreamWriter writes the same JSON to W, or stdout when W is nil.
type StreamWriter struct {
	W io.Writer
}

func (sw *StreamWriter) Write(recs Records) error {
	w := sw.W
	if w == nil {
		w = os.Stdout
	}
	bs, err := utils.WriteJSONBytes(recs)
	if err != nil {
		return fmt.Errorf("error encoding records: %w", err)
	}
	_, err = w.Write(bs)
	return err
}

// NewWriter returns a StreamWriter for "-" and a FileWriter otherwise.
func NewWriter(path string) Writer {
	if path == "-" {
		return &StreamWriter{}
	}
	return &FileWriter{Path: path}
}
