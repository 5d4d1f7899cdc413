// Package apperr defines the error taxonomy shared by the build pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotDocument = errors.New("not a content document")
)

// ReadError reports a source file that is missing or unreadable.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// CompileError reports a template or markdown failure for one document.
type CompileError struct {
	Path string
	Err  error
}

func (e *CompileError) Error() string { return fmt.Sprintf("compile %s: %v", e.Path, e.Err) }
func (e *CompileError) Unwrap() error { return e.Err }

// WriteError reports an output artifact that could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// WatchError reports a watcher subscription failure on one root.
type WatchError struct {
	Root string
	Err  error
}

func (e *WatchError) Error() string { return fmt.Sprintf("watch %s: %v", e.Root, e.Err) }
func (e *WatchError) Unwrap() error { return e.Err }
