package repair

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner is the transcoding engine behind the repair pass.
type Runner interface {
	// Load prepares the engine and reports its version.
	Load(ctx context.Context) (string, error)
	// Remux rewrites src into dst inside fs without re-encoding.
	Remux(ctx context.Context, fs billy.Filesystem, src, dst string, progress func(Progress)) error
}

type FFmpegRunner struct {
	Path   string
	logger *logrus.Entry
}

func NewFFmpegRunner(path string) *FFmpegRunner {
	return &FFmpegRunner{
		Path:   path,
		logger: logger.WithField("runner", "ffmpeg"),
	}
}

func (f *FFmpegRunner) Load(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, f.Path, "-hide_banner", "-version").Output()
	if err != nil {
		return "", errors.Wrap(err, "ffmpeg load")
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line)), nil
}

func (f *FFmpegRunner) Remux(ctx context.Context, fs billy.Filesystem, src, dst string, progress func(Progress)) error {
	root := fs.Root()
	cmd := exec.CommandContext(ctx,
		f.Path,
		"-hide_banner",
		"-nostdin",
		"-y",
		"-progress",
		"pipe:1",
		"-i",
		filepath.Join(root, src),
		"-c",
		"copy",
		filepath.Join(root, dst),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr := f.logger.WriterLevel(logrus.DebugLevel)
	defer stderr.Close()
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start ffmpeg")
	}

	var g errgroup.Group
	g.Go(func() error {
		return ParseProgress(bufio.NewReader(stdout), progress)
	})
	parseErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		return errors.Wrap(err, "ffmpeg remux")
	}
	if parseErr != nil {
		f.logger.Warnf("error reading ffmpeg progress: %v", parseErr)
	}
	return nil
}
