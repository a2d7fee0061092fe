package logger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedFileWriterBuffersUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffered.log")

	w, err := NewBufferedFileWriter(path, WithFlushInterval(0), WithBufferSize(1024))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("line one\n"))
	require.NoError(t, err)
	assert.Equal(t, len("line one\n"), w.Buffered())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	require.NoError(t, w.Flush())
	assert.Zero(t, w.Buffered())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))
}

func TestBufferedFileWriterAutoFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto.log")

	w, err := NewBufferedFileWriter(path, WithFlushInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("flushed by ticker\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "flushed by ticker\n"
	}, time.Second, 10*time.Millisecond)
}

func TestBufferedFileWriterCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.log")

	w, err := NewBufferedFileWriter(path)
	require.NoError(t, err)

	_, err = w.Write([]byte("persisted\n"))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	require.ErrorIs(t, err, errWriterClosed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "persisted\n", string(data))
	assert.Equal(t, path, w.FilePath())
}

func TestBufferedFileWriterConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")

	w, err := NewBufferedFileWriter(path, WithFlushInterval(time.Millisecond))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				_, _ = w.Write([]byte("x\n"))
			}
		})
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 8*100*2)
}
