package utils_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/eric2788/webmrec/pkg/pool"
	"github.com/eric2788/webmrec/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", utils.SanitizeFilename("a/b\\c"))
	assert.Equal(t, "_", utils.SanitizeFilename(".."))
	assert.Equal(t, "_", utils.SanitizeFilename("   "))
	assert.Equal(t, "my clip", utils.SanitizeFilename(" my clip "))
}

func TestStreamToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.webm")
	data := bytes.Repeat([]byte{0x1a, 0x45, 0xdf, 0xa3}, 1024)

	err := utils.StreamToFile(context.Background(), io.NopCloser(bytes.NewReader(data)), out, pool.NewBytesPool(4096))
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestStreamToFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	err := utils.StreamToFile(ctx, pr, filepath.Join(dir, "out.webm"), pool.NewBytesPool(4096))
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be removed on cancel")
}

func TestAsciiFallback(t *testing.T) {
	assert.Equal(t, "a?b.webm", utils.AsciiFallback("a錄b.webm"))
	assert.Equal(t, "file", utils.AsciiFallback("\"\\"))
}
