package apperr

import (
	"errors"
	"io/fs"
	"testing"
)

func TestErrorsUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	errs := []error{
		&ReadError{Path: "a.md", Err: cause},
		&CompileError{Path: "a.md", Err: cause},
		&WriteError{Path: "dist/index.html", Err: cause},
		&WatchError{Root: "content", Err: cause},
	}
	for _, err := range errs {
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestCompileErrorAs(t *testing.T) {
	var err error = &CompileError{Path: "content/b.md", Err: errors.New("bad layout")}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As failed")
	}
	if ce.Path != "content/b.md" {
		t.Errorf("path = %q", ce.Path)
	}
	if err.Error() != "compile content/b.md: bad layout" {
		t.Errorf("message = %q", err.Error())
	}
}
