package repair_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/services/repair"
	"github.com/eric2788/webmrec/utils"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner "remuxes" by prefixing the input with a marker.
type fakeRunner struct {
	loads   atomic.Int32
	remuxes atomic.Int32
	loadErr error
	gate    chan struct{}
	seen    sync.Map
}

func (f *fakeRunner) Load(ctx context.Context) (string, error) {
	f.loads.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return "fake 1.0", f.loadErr
}

func (f *fakeRunner) Remux(ctx context.Context, fs billy.Filesystem, src, dst string, progress func(repair.Progress)) error {
	f.remuxes.Add(1)
	f.seen.Store(fs.Root(), true)
	data, err := util.ReadFile(fs, src)
	if err != nil {
		return err
	}
	if string(data) == "malformed" {
		return errors.New("invalid data found when processing input")
	}
	progress(repair.Progress{TotalSize: int64(len(data)) / 2})
	progress(repair.Progress{TotalSize: int64(len(data)), Done: true})
	return util.WriteFile(fs, dst, append([]byte("fixed:"), data...), 0644)
}

func newEngine(t *testing.T, runner *fakeRunner, capable error) (*repair.Engine, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	return repair.NewEngine(repair.Options{},
		repair.WithRunner(runner),
		repair.WithFilesystem(fs),
		repair.WithCapability(func() error { return capable }),
	), fs
}

func TestEngine_InitializeOnce(t *testing.T) {
	runner := &fakeRunner{gate: make(chan struct{})}
	engine, _ := newEngine(t, runner, nil)

	const callers = 16
	results := make([]*repair.Readiness, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = engine.Initialize()
		}()
	}
	wg.Wait()
	close(runner.gate)

	for _, r := range results {
		require.NotNil(t, r)
		assert.Same(t, results[0], r, "all callers share one readiness")
	}
	require.NoError(t, results[0].Wait(context.Background()))
	assert.Equal(t, "fake 1.0", results[0].Version())

	assert.Same(t, results[0], engine.Initialize(), "repeated initialize is a no-op")
	assert.Equal(t, 1, engine.Loads())
	assert.EqualValues(t, 1, runner.loads.Load())
}

func TestEngine_CapabilityMissing(t *testing.T) {
	runner := &fakeRunner{}
	engine, _ := newEngine(t, runner, errors.New("ffmpeg not found"))

	assert.Nil(t, engine.Initialize())
	assert.Nil(t, engine.Initialize())
	assert.False(t, engine.Initialized())
	assert.Nil(t, engine.Ready())
	assert.Zero(t, engine.Loads())

	_, err := engine.Repair(context.Background(), &media.Blob{Data: []byte("raw")})
	assert.ErrorIs(t, err, repair.ErrEngineUninitialized)
	assert.Zero(t, runner.remuxes.Load())
}

func TestEngine_Repair(t *testing.T) {
	runner := &fakeRunner{}
	engine, fs := newEngine(t, runner, nil)
	require.NotNil(t, engine.Initialize())

	var progress []repair.Progress
	engine.SetProgress(func(p repair.Progress) { progress = append(progress, p) })

	for _, raw := range []string{"first", "second"} {
		out, err := engine.Repair(context.Background(), &media.Blob{Data: []byte(raw), Type: media.MimeWebM})
		require.NoError(t, err)
		assert.Equal(t, "fixed:"+raw, string(out.Data))
		assert.Equal(t, media.MimeWebM, out.Type)
	}

	assert.EqualValues(t, 2, runner.remuxes.Load())
	roots := 0
	runner.seen.Range(func(k, v any) bool { roots++; return true })
	assert.Equal(t, 2, roots, "each repair works in a fresh directory")

	entries, err := fs.ReadDir("jobs")
	require.NoError(t, err)
	assert.Empty(t, entries, "work dirs are removed after each call")

	require.Len(t, progress, 4)
	assert.InDelta(t, 0.5, progress[0].Ratio, 0.2)
	assert.Equal(t, 1.0, progress[1].Ratio)
}

func TestEngine_RepairFailurePropagates(t *testing.T) {
	runner := &fakeRunner{}
	engine, _ := newEngine(t, runner, nil)
	engine.Initialize()

	_, err := engine.Repair(context.Background(), &media.Blob{Data: []byte("malformed")})
	assert.ErrorContains(t, err, "invalid data")
}

func TestEngine_LoadFailure(t *testing.T) {
	runner := &fakeRunner{loadErr: errors.New("load failed")}
	engine, _ := newEngine(t, runner, nil)
	ready := engine.Initialize()
	require.NotNil(t, ready)

	assert.ErrorContains(t, ready.Wait(context.Background()), "load failed")
	assert.False(t, ready.Loaded())

	_, err := engine.Repair(context.Background(), &media.Blob{Data: []byte("raw")})
	assert.ErrorContains(t, err, "load failed")
	assert.Zero(t, runner.remuxes.Load())
}

func TestEngine_RepairWaitsForReadiness(t *testing.T) {
	runner := &fakeRunner{gate: make(chan struct{})}
	engine, _ := newEngine(t, runner, nil)
	engine.Initialize()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := engine.Repair(ctx, &media.Blob{Data: []byte("raw")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(runner.gate)
	out, err := engine.Repair(context.Background(), &media.Blob{Data: []byte("raw")})
	require.NoError(t, err)
	assert.Equal(t, "fixed:raw", string(out.Data))
}

func TestParseProgress(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"out_time_us=400000",
		"total_size=1024",
		"speed=12.5x",
		"progress=continue",
		"garbage line",
		"out_time_us=900000",
		"total_size=2048",
		"progress=end",
	}, "\n")

	var got []repair.Progress
	require.NoError(t, repair.ParseProgress(strings.NewReader(input), func(p repair.Progress) {
		got = append(got, p)
	}))
	require.Len(t, got, 2)
	assert.Equal(t, int64(400000), got[0].OutTimeUs)
	assert.Equal(t, int64(1024), got[0].TotalSize)
	assert.Equal(t, "12.5x", got[0].Speed)
	assert.False(t, got[0].Done)
	assert.Equal(t, int64(2048), got[1].TotalSize)
	assert.True(t, got[1].Done)
}

func TestFFmpegRemux(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode")
	} else if !utils.FFmpegAvailable() {
		t.Skip("ffmpeg not available, skipping test")
	}

	dir := t.TempDir()
	sample := filepath.Join(dir, "sample.webm")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10",
		"-c:v", "libvpx", "-f", "webm", sample)
	if err := gen.Run(); err != nil {
		t.Skipf("cannot generate webm sample (libvpx missing?): %v", err)
	}
	raw, err := os.ReadFile(sample)
	require.NoError(t, err)

	engine := repair.NewEngine(repair.Options{WorkDir: filepath.Join(dir, "work"), FFmpegPath: "ffmpeg"})
	ready := engine.Initialize()
	require.NotNil(t, ready)
	require.NoError(t, ready.Wait(t.Context()))
	assert.Contains(t, ready.Version(), "ffmpeg")

	out, err := engine.Repair(t.Context(), &media.Blob{Data: raw, Type: media.MimeWebM})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Data)
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, out.Data[:4], "output starts with the EBML header")
}
