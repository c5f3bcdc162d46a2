package utils

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/eric2788/webmrec/pkg/pool"
)

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces characters that are not allowed in a file name.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(filenameReplacer.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// StreamToFile streams data from rc to outPath using the provided BytesPool for buffers.
// It writes to a temp file in the same directory and atomically renames on success.
// The temp file never outlives the call. The function closes rc before returning.
func StreamToFile(ctx context.Context, rc io.ReadCloser, outPath string, bp *pool.BytesPool) error {
	defer rc.Close()

	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, "download-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	writer := bufio.NewWriterSize(tmp, 256*1024) // 256KB write buffer

	buf := bp.GetBytes()
	defer bp.PutBytes(buf)

	// perform copy in goroutine so we can observe ctx cancellation
	copyErrCh := make(chan error, 1)
	go func() {
		_, err := io.CopyBuffer(writer, rc, buf)
		if err == nil {
			if err = writer.Flush(); err == nil {
				err = tmp.Sync()
			}
		}
		copyErrCh <- err
	}()

	select {
	case <-ctx.Done():
		_ = rc.Close()
		<-copyErrCh
		cleanup()
		return ctx.Err()
	case err := <-copyErrCh:
		if err != nil {
			cleanup()
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	// remove existing target (Windows may block rename), ignore errors
	_ = os.Remove(outPath)
	if err := os.Rename(tmpName, outPath); err != nil {
		cleanup()
		return err
	}

	return nil
}

// FFmpegAvailable reports whether the given ffmpeg binary can be executed.
func FFmpegAvailable(bin ...string) bool {
	path := "ffmpeg"
	if len(bin) > 0 && bin[0] != "" {
		path = bin[0]
	}
	return exec.Command(path, "-hide_banner", "-version").Run() == nil
}
