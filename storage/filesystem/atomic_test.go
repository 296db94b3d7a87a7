package filesystem

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.ics")

	require.NoError(t, writeFileAtomic(target, []byte("one"), filePerm))
	require.NoError(t, writeFileAtomic(target, []byte("two"), filePerm))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, filePerm, info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")

	err = writeFileAtomic(filepath.Join(dir, "missing", "a.ics"), []byte("x"), filePerm)
	assert.Error(t, err)
}

func TestCreateFileExclusive(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, descriptorName)

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := createFileExclusive(target, []byte{byte('a' + i)}, filePerm)
			assert.NoError(t, err)
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	created, err := createFileExclusive(target, []byte("late"), filePerm)
	require.NoError(t, err)
	assert.False(t, created)
}
