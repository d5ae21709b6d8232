package diskstore

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir(), nil)

	require.NoError(t, s.Save(Images, "abc", []byte("payload")))

	got, ok := s.Load(Images, "abc")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
}

func TestStore_LayoutOnDisk(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)

	require.NoError(t, s.Save(Images, "k1", []byte("a")))
	require.NoError(t, s.Save(Thumbnails, "k1_10x10", []byte("b")))

	assert.FileExists(t, filepath.Join(root, "images", "k1"))
	assert.FileExists(t, filepath.Join(root, "thumbnails", "k1_10x10"))
}

func TestStore_NamespacesAreDisjoint(t *testing.T) {
	s := New(t.TempDir(), nil)
	require.NoError(t, s.Save(Images, "same", []byte("full")))

	_, ok := s.Load(Thumbnails, "same")
	assert.False(t, ok)
}

func TestStore_LoadMissing(t *testing.T) {
	s := New(t.TempDir(), nil)
	_, ok := s.Load(Images, "nope")
	assert.False(t, ok)
}

func TestStore_RejectsPathLikeKeys(t *testing.T) {
	s := New(t.TempDir(), nil)

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.Error(t, s.Save(Images, key, []byte("x")), key)
		_, ok := s.Load(Images, key)
		assert.False(t, ok, key)
	}
	assert.Error(t, s.Save(Namespace("other"), "k", []byte("x")))
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := New(t.TempDir(), nil)
	require.NoError(t, s.Save(Images, "k", []byte("one")))
	require.NoError(t, s.Save(Images, "k", []byte("two")))

	got, ok := s.Load(Images, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("two"), got)
}

func TestStore_SaveFailureKeepsPreviousContent(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	root := t.TempDir()
	s := New(root, nil)
	require.NoError(t, s.Save(Images, "k", []byte("old")))

	dir := filepath.Join(root, "images")
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	assert.Error(t, s.Save(Images, "k", []byte("new")))

	got, ok := s.Load(Images, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("old"), got)
}

func TestStore_ClearAll(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil)
	require.NoError(t, s.Save(Images, "k", []byte("a")))
	require.NoError(t, s.Save(Thumbnails, "k_1x1", []byte("b")))

	require.NoError(t, s.ClearAll())

	_, ok := s.Load(Images, "k")
	assert.False(t, ok)
	_, ok = s.Load(Thumbnails, "k_1x1")
	assert.False(t, ok)
	assert.DirExists(t, filepath.Join(root, "images"))
	assert.DirExists(t, filepath.Join(root, "thumbnails"))

	// usable after clearing
	require.NoError(t, s.Save(Images, "k", []byte("c")))
}

func TestStore_Usage(t *testing.T) {
	s := New(t.TempDir(), nil)

	u, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, NamespaceUsage{}, u[Images])

	require.NoError(t, s.Save(Images, "a", []byte("1234")))
	require.NoError(t, s.Save(Images, "b", []byte("56")))
	require.NoError(t, s.Save(Thumbnails, "a_1x1", []byte("7")))

	u, err = s.Usage()
	require.NoError(t, err)
	assert.Equal(t, NamespaceUsage{Files: 2, Bytes: 6}, u[Images])
	assert.Equal(t, NamespaceUsage{Files: 1, Bytes: 1}, u[Thumbnails])
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := New(t.TempDir(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(Images, "shared", []byte("same-bytes")))
		}()
	}
	wg.Wait()

	got, ok := s.Load(Images, "shared")
	require.True(t, ok)
	assert.Equal(t, []byte("same-bytes"), got)
}
