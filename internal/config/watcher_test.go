package config_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/hifiberry/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// trySend keeps the watcher loop unblocked when one save yields several reloads.
func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func TestWatcherReload(t *testing.T) {
	path := writeConfig(t, "[overclock]\npll = 1\n")

	received := make(chan *config.Options, 1)
	w := config.NewWatcher(path, config.Load, quietLogger(), config.WithDebounce[*config.Options](20*time.Millisecond))
	w.OnReload(func(o *config.Options) { trySend(received, o) })

	require.NoError(t, w.Start(context.Background()))
	defer func() { assert.NoError(t, w.Stop()) }()

	require.NoError(t, os.WriteFile(path, []byte("[overclock]\npll = 15\n"), 0o644))

	select {
	case o := <-received:
		assert.Equal(t, uint32(15), o.OverclockPLL)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestWatcherReplace(t *testing.T) {
	path := writeConfig(t, "[overclock]\ndsp = 1\n")

	received := make(chan *config.Options, 1)
	w := config.NewWatcher(path, config.Load, quietLogger(), config.WithDebounce[*config.Options](20*time.Millisecond))
	w.OnReload(func(o *config.Options) { trySend(received, o) })

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	tmp := path + ".new"
	require.NoError(t, os.WriteFile(tmp, []byte("[overclock]\ndsp = 30\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case o := <-received:
		assert.Equal(t, uint32(30), o.OverclockDSP)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestWatcherErrorAndUnsubscribe(t *testing.T) {
	path := writeConfig(t, "")

	errs := make(chan error, 1)
	calls := make(chan struct{}, 1)

	w := config.NewWatcher(path, config.Load, quietLogger(),
		config.WithDebounce[*config.Options](20*time.Millisecond),
		config.WithErrorHandler[*config.Options](func(err error) { trySend(errs, err) }),
	)
	unsub := w.OnReload(func(*config.Options) { trySend(calls, struct{}{}) })
	unsub()

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[overclock]\npll = 500\n"), 0o644))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for load error")
	}

	select {
	case <-calls:
		t.Fatal("unsubscribed handler called")
	default:
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := config.NewWatcher(os.DevNull, func(string) (int, error) { return 0, errors.New("unused") }, quietLogger())
	assert.NoError(t, w.Stop())
}
