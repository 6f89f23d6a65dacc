package outwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/schema"
)

func historyTable() schema.Table {
	return schema.Table{
		Header: []string{"date", "complexity", "bugs"},
		Rows: [][]string{
			{"2020-01-01", "10", "0"},
			{"2020-02-01", "12", "3"},
		},
	}
}

func TestEncodeTable(t *testing.T) {
	data, err := EncodeTable(historyTable())
	require.NoError(t, err)
	assert.Equal(t, "date,complexity,bugs\n2020-01-01,10,0\n2020-02-01,12,3\n", string(data))
}

func TestEncodeTable_NormalizesCommas(t *testing.T) {
	table := schema.Table{
		Header: []string{"_project", "ncloc"},
		Rows:   [][]string{{"p", "1,234"}},
	}
	data, err := EncodeTable(table)
	require.NoError(t, err)
	assert.Equal(t, "_project,ncloc\np,1;234\n", string(data))
}

func TestEncodeTable_RejectsRaggedRows(t *testing.T) {
	_, err := EncodeTable(schema.Table{Header: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
}

func TestDecodeTable(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		data, err := EncodeTable(historyTable())
		require.NoError(t, err)
		table, err := DecodeTable(data)
		require.NoError(t, err)
		assert.Equal(t, historyTable(), table)
	})

	t.Run("crlf and no trailing newline", func(t *testing.T) {
		table, err := DecodeTable([]byte("date,bugs\r\n2020-01-01,1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"date", "bugs"}, table.Header)
		assert.Equal(t, [][]string{{"2020-01-01", "1"}}, table.Rows)
	})

	t.Run("empty cells survive", func(t *testing.T) {
		table, err := DecodeTable([]byte("creation_date,update_date,rule,component\n2019-01-01,,squid:S1,p:A.java\n"))
		require.NoError(t, err)
		assert.Equal(t, "", table.Rows[0][1])
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodeTable(nil)
		assert.ErrorIs(t, err, ErrEmptyTable)
	})

	t.Run("ragged input", func(t *testing.T) {
		_, err := DecodeTable([]byte("a,b\n1,2,3\n"))
		assert.Error(t, err)
	})
}

func TestLines(t *testing.T) {
	data := EncodeLines([]string{"complexity", "bugs"})
	assert.Equal(t, "complexity\nbugs\n", string(data))
	assert.Equal(t, []string{"complexity", "bugs"}, DecodeLines(data))
	assert.Nil(t, DecodeLines([]byte("\n\n")))
}

func TestFileStore_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "out"))

	path, err := store.WriteTable("measures.csv", historyTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "measures.csv"), path)

	table, err := store.ReadTable("measures.csv")
	require.NoError(t, err)
	assert.Equal(t, historyTable(), table)

	_, err = store.WriteLines("nonempty-past-measures.txt", []string{"complexity"})
	require.NoError(t, err)
	lines, err := store.ReadLines("nonempty-past-measures.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"complexity"}, lines)

	// No temporary files are left behind
	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileStore_FailedWriteKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	_, err := store.WriteTable("measures.csv", historyTable())
	require.NoError(t, err)

	_, err = store.WriteTable("measures.csv", schema.Table{Header: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	require.Error(t, err)

	table, err := store.ReadTable("measures.csv")
	require.NoError(t, err)
	assert.Equal(t, historyTable(), table)
}

func TestFileStore_ParquetSidecar(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, WithParquetSidecars(true))

	path, err := store.WriteTable("measures.csv", historyTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "measures.parquet"), SidecarPath(path))

	info, err := os.Stat(SidecarPath(path))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestFileStore_FailedSidecarKeepsPreviousTable(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileStore(dir).WriteTable("measures.csv", historyTable())
	require.NoError(t, err)

	// A directory in the sidecar's place makes its rename fail
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "measures.parquet", "blocked"), 0o755))

	store := NewFileStore(dir, WithParquetSidecars(true))
	_, err = store.WriteTable("measures.csv", schema.Table{Header: []string{"date"}, Rows: [][]string{{"2021-01-01"}}})
	require.Error(t, err)

	table, err := store.ReadTable("measures.csv")
	require.NoError(t, err)
	assert.Equal(t, historyTable(), table)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileStore_AbsoluteName(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore("ignored")
	abs := filepath.Join(dir, "x.csv")
	assert.Equal(t, abs, store.Path(abs))
}

func TestFileStore_ReadMissing(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).ReadTable("missing.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.WriteTable("measures.csv", historyTable())
	require.NoError(t, err)
	content, ok := store.Content("measures.csv")
	require.True(t, ok)
	assert.Equal(t, "date,complexity,bugs\n2020-01-01,10,0\n2020-02-01,12,3\n", content)

	table, err := store.ReadTable("measures.csv")
	require.NoError(t, err)
	assert.Equal(t, historyTable(), table)

	_, err = store.ReadLines("missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = store.WriteLines("keys.txt", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keys.txt", "measures.csv"}, store.Names())
}
