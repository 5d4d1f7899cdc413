package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/xo/internal/apperr"
	"github.com/starford/xo/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, p)
}

func (r *recorder) seen(p string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.paths {
		if x == p {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRun(t *testing.T, roots []string, h Handler) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, roots, h, quietLogger()) }()
	time.Sleep(150 * time.Millisecond)

	var once sync.Once
	var runErr error
	cancel = func() error {
		once.Do(func() {
			stop()
			select {
			case runErr = <-errCh:
			case <-time.After(5 * time.Second):
				t.Error("Run did not return after cancel")
			}
		})
		return runErr
	}
	t.Cleanup(func() { _ = cancel() })
	return cancel
}

func TestRun_FileEvents(t *testing.T) {
	s := testutil.NewSite(t)
	rec := &recorder{}
	startRun(t, []string{s.Content}, rec.handle)

	doc := testutil.Write(t, filepath.Join(s.Content, "a.md"), "# A")
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(doc)
	}, "create event not delivered")

	other := testutil.Write(t, filepath.Join(s.Content, "notes.txt"), "x")
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(other)
	}, "unknown suffixes must still be delivered")
}

func TestRun_NewDirectoryWatched(t *testing.T) {
	s := testutil.NewSite(t)
	rec := &recorder{}
	startRun(t, []string{s.Content}, rec.handle)

	dir := filepath.Join(s.Content, "blog")
	require.NoError(t, os.Mkdir(dir, 0o755))
	time.Sleep(200 * time.Millisecond)

	post := testutil.Write(t, filepath.Join(dir, "post.md"), "post")
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(post)
	}, "event in new directory not delivered")
	assert.False(t, rec.seen(dir), "directory creation is not passed to the handler")
}

func TestRun_Remove(t *testing.T) {
	s := testutil.NewSite(t)
	doc := testutil.Write(t, filepath.Join(s.Content, "a.md"), "# A")
	rec := &recorder{}
	startRun(t, []string{s.Content}, rec.handle)

	require.NoError(t, os.Remove(doc))
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(doc)
	}, "remove event not delivered")
}

func TestRun_SequentialPerRoot(t *testing.T) {
	s := testutil.NewSite(t)

	var mu sync.Mutex
	active, maxActive, total := 0, 0, 0
	h := func(_ context.Context, _ string) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		total++
		mu.Unlock()
	}
	startRun(t, []string{s.Content}, h)

	for i := 0; i < 10; i++ {
		testutil.Write(t, filepath.Join(s.Content, string(rune('a'+i))+".md"), "x")
	}
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return total >= 10
	}, "events not delivered")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive, "handler must not run concurrently within a root")
}

func TestRun_FailedRootDoesNotStopOthers(t *testing.T) {
	s := testutil.NewSite(t)
	missing := filepath.Join(s.Root, "does-not-exist")
	rec := &recorder{}
	cancel := startRun(t, []string{missing, s.Layouts}, rec.handle)

	layout := testutil.Write(t, filepath.Join(s.Layouts, "default.html"), "<html></html>")
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.seen(layout)
	}, "healthy root stopped with the failed one")

	err := cancel()
	var we *apperr.WatchError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, missing, we.Root)
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"/site/content/_partials", "/site/layouts", "/site/content", "/site/content/"})
	assert.Equal(t, []string{"/site/content", "/site/layouts"}, got)
}
