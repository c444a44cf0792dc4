package etl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memSink struct {
	rows map[string][]byte
	keys []string
}

func newMemSink() *memSink { return &memSink{rows: make(map[string][]byte)} }

func (s *memSink) Put(k, v []byte) error {
	if _, ok := s.rows[string(k)]; !ok {
		s.keys = append(s.keys, string(k))
	}
	s.rows[string(k)] = append([]byte(nil), v...)
	return nil
}

func (s *memSink) Append(k, v []byte) error {
	s.keys = append(s.keys, string(k))
	s.rows[string(k)] = append([]byte(nil), v...)
	return nil
}

func TestCollectorSmallBufferIdentityLoad(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 1<<20)

	input := map[string]string{"b": "2", "a": "1", "c": "3"}
	for k, v := range input {
		require.NoError(t, c.Collect([]byte(k), []byte(v)))
	}

	sink := newMemSink()
	require.NoError(t, c.Load(sink, IdentityLoad, AppendDup))
	require.Equal(t, []string{"a", "b", "c"}, sink.keys)
	require.Equal(t, "1", string(sink.rows["a"]))
	require.Equal(t, "2", string(sink.rows["b"]))
	require.Equal(t, "3", string(sink.rows["c"]))
}

func TestCollectorForcesMultipleRunFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 16) // tiny threshold forces frequent flush

	for i := 0; i < 200; i++ {
		k := []byte{byte(199 - i), byte((199 - i) >> 8)}
		v := []byte("v")
		require.NoError(t, c.Collect(k, v))
	}
	require.Greater(t, len(c.runFilePaths), 1)

	sink := newMemSink()
	require.NoError(t, c.Load(sink, IdentityLoad, AppendDup))
	require.Len(t, sink.keys, 200)
	// strictly increasing byte-string order
	for i := 1; i < len(sink.keys); i++ {
		require.Less(t, sink.keys[i-1], sink.keys[i])
	}
}

func TestCollectorPreservesInsertionOrderForEqualKeys(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 1<<20)
	require.NoError(t, c.Collect([]byte("k"), []byte("first")))
	require.NoError(t, c.Collect([]byte("k"), []byte("second")))

	var values []string
	load := func(k, v []byte, next LoadNextFunc) error {
		values = append(values, string(v))
		return next(k, v)
	}
	sink := newMemSink()
	require.NoError(t, c.Load(sink, load, Upsert))
	require.Equal(t, []string{"first", "second"}, values)
}

func TestCollectorLoadFuncCanDropAndExpand(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 1<<20)
	require.NoError(t, c.Collect([]byte("k1"), []byte("skip")))
	require.NoError(t, c.Collect([]byte("k2"), []byte("dup")))

	sink := newMemSink()
	load := func(k, v []byte, next LoadNextFunc) error {
		if string(v) == "skip" {
			return nil
		}
		if err := next(append([]byte(nil), k...), v); err != nil {
			return err
		}
		k2 := append([]byte(nil), k...)
		k2 = append(k2, '2')
		return next(k2, v)
	}
	require.NoError(t, c.Load(sink, load, AppendDup))
	require.Equal(t, []string{"k2", "k22"}, sink.keys)
}

func TestCollectorUpsertModeOverwrites(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 1<<20)
	require.NoError(t, c.Collect([]byte("k"), []byte("first")))

	sink := newMemSink()
	sink.rows["k"] = []byte("preexisting")
	sink.keys = append(sink.keys, "k")

	require.NoError(t, c.Load(sink, IdentityLoad, Upsert))
	require.Equal(t, "first", string(sink.rows["k"]))
}

func TestCollectorCloseDiscardsRunFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewCollector("test", dir, 1)
	require.NoError(t, c.Collect([]byte("a"), []byte("1")))
	require.NotEmpty(t, c.runFilePaths)
	c.Close()
	require.Empty(t, c.runFilePaths)
}
