package filelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMissingChannel(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	data, err := c.Read(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, "general", []byte(`[{"messageId":"m1"}]`)))
	data, err := c.Read(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, `[{"messageId":"m1"}]`, string(data))

	// перезапись заменяет журнал целиком
	require.NoError(t, c.Write(ctx, "general", []byte(`[]`)))
	data, err = c.Read(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, c.Write(context.Background(), "c", []byte("[]")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c.json", entries[0].Name())
}

func TestChannelIDSanitized(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Write(ctx, "../../etc/passwd", []byte("[]")))

	// файл остался внутри каталога журналов
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dir, filepath.Dir(filepath.Join(dir, entries[0].Name())))

	data, err := c.Read(ctx, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
