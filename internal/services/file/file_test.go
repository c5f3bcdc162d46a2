package file_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/services/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func newFileService(t *testing.T) (*file.Service, *config.Config) {
	t.Helper()
	t.Setenv("OUTPUT_DIR", t.TempDir())

	var fileService *file.Service
	var cfg *config.Config

	app := fxtest.New(t,
		config.Module,
		fx.Provide(file.NewService),
		fx.Populate(&fileService),
		fx.Populate(&cfg),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return fileService, cfg
}

func write(t *testing.T, dir, name string, size int, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestList(t *testing.T) {
	fileService, cfg := newFileService(t)
	now := time.Now()

	write(t, cfg.OutputDir, "old.webm", 10, now.Add(-time.Hour))
	write(t, cfg.OutputDir, "new.webm", 20, now)
	write(t, cfg.OutputDir, "notes.txt", 5, now)
	require.NoError(t, os.Mkdir(filepath.Join(cfg.OutputDir, "dir.webm"), 0755))

	files, err := fileService.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "new.webm", files[0].Name)
	assert.EqualValues(t, 20, files[0].Size)
	assert.Equal(t, "old.webm", files[1].Name)
}

func TestList_MissingDir(t *testing.T) {
	fileService, cfg := newFileService(t)
	require.NoError(t, os.RemoveAll(cfg.OutputDir))

	files, err := fileService.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolve(t *testing.T) {
	fileService, cfg := newFileService(t)
	write(t, cfg.OutputDir, "clip.webm", 1, time.Now())

	path, err := fileService.Resolve("clip.webm")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "clip.webm"), path)

	cases := map[string]error{
		"missing.webm":     file.ErrFileNotFound,
		"../escape.webm":   file.ErrAccessDenied,
		"sub/nested.webm":  file.ErrAccessDenied,
		"/etc/passwd":      file.ErrNotRecording,
		"clip.mp4":         file.ErrNotRecording,
		"../../etc/x.webm": file.ErrAccessDenied,
	}
	for name, want := range cases {
		_, err := fileService.Resolve(name)
		assert.ErrorIs(t, err, want, name)
	}
}

func TestPresign(t *testing.T) {
	fileService, cfg := newFileService(t)
	write(t, cfg.OutputDir, "clip.webm", 1, time.Now())

	token, err := fileService.Presign("clip.webm", time.Minute)
	require.NoError(t, err)

	path, err := fileService.ResolveToken(token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "clip.webm"), path)

	_, err = fileService.ResolveToken("garbage")
	assert.ErrorIs(t, err, file.ErrAccessDenied)

	_, err = fileService.Presign("missing.webm", time.Minute)
	assert.ErrorIs(t, err, file.ErrFileNotFound)
}

func TestDelete(t *testing.T) {
	fileService, cfg := newFileService(t)
	write(t, cfg.OutputDir, "clip.webm", 1, time.Now())

	require.NoError(t, fileService.Delete("clip.webm"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "clip.webm"))
	assert.ErrorIs(t, fileService.Delete("clip.webm"), file.ErrFileNotFound)
}
