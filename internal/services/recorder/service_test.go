package recorder_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/eric2788/webmrec/internal/media"
	"github.com/eric2788/webmrec/internal/modules/config"
	"github.com/eric2788/webmrec/internal/services/recorder"
	"github.com/eric2788/webmrec/internal/services/source"
	"github.com/eric2788/webmrec/internal/services/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newService(t *testing.T, out *memorySink) (*recorder.Service, *fxtest.Lifecycle) {
	t.Helper()
	cfg := &config.Config{MaxSessions: 2, DefaultName: "default"}
	lc := fxtest.NewLifecycle(t)
	engine := newEngine(&prefixRunner{}, false)
	finalizer, err := recorder.NewFinalizerService(lc, engine, out)
	require.NoError(t, err)
	sources := source.NewService(lc, stream.NewService(), cfg)
	svc := recorder.NewService(lc, engine, finalizer, sources, cfg)
	lc.RequireStart()
	return svc, lc
}

func TestService_Lifecycle(t *testing.T) {
	out := &memorySink{}
	svc, lc := newService(t, out)

	element := media.NewElement()
	session, err := svc.Attach(element, "", recorder.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, "default", session.Name())
	assert.Equal(t, []string{session.ID()}, svc.List())

	got, ok := svc.Get(session.ID())
	require.True(t, ok)
	assert.Same(t, session, got)

	element.Output().Activate()
	element.Output().AddTrack(media.Track{ID: "v0", Kind: "video"})
	select {
	case <-session.Bound():
	case <-time.After(5 * time.Second):
		t.Fatal("session never bound")
	}

	require.NoError(t, svc.Play(session.ID()))
	assert.Equal(t, recorder.StateRecording, session.State())
	_, _ = element.Output().Write([]byte("live"))

	stats, ok := svc.GetStats(session.ID())
	require.True(t, ok)
	assert.Equal(t, recorder.StateRecording, stats.State)
	assert.Len(t, svc.ListStats(), 1)

	// stopping the app finalizes what is still recording
	lc.RequireStop()
	require.Len(t, out.all(), 1)
	assert.Equal(t, "default", out.all()[0].name)
	assert.Equal(t, []byte("live"), out.all()[0].blob.Data)
	assert.Empty(t, svc.List())
}

func TestService_Errors(t *testing.T) {
	svc, lc := newService(t, &memorySink{})
	defer lc.RequireStop()

	assert.ErrorIs(t, svc.Start("missing"), recorder.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Stop("missing"), recorder.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Play("missing"), recorder.ErrSessionNotFound)
	assert.ErrorIs(t, svc.Dispose("missing"), recorder.ErrSessionNotFound)
	_, ok := svc.GetStats("missing")
	assert.False(t, ok)

	_, err := svc.Create("ftp://nowhere", "x", recorder.ModeManual)
	assert.ErrorIs(t, err, source.ErrInvalidURL)
	assert.Empty(t, svc.List())

	first, err := svc.Attach(media.NewElement(), "a", recorder.ModeManual)
	require.NoError(t, err)
	_, err = svc.Create("http://localhost:1/live.webm", "b", recorder.ModeManual)
	require.NoError(t, err)
	_, err = svc.Attach(media.NewElement(), "c", recorder.ModeManual)
	assert.ErrorIs(t, err, recorder.ErrMaxSessionsReached)

	require.NoError(t, svc.Dispose(first.ID()))
	assert.Equal(t, recorder.StateDisposed, first.State())
	assert.Len(t, svc.List(), 1)
}

type passiveSource struct {
	stream *media.CaptureStream
}

func (p *passiveSource) CaptureStream() media.Stream { return p.stream }
func (p *passiveSource) OnPlay(func()) func()        { return func() {} }
func (p *passiveSource) OnPause(func()) func()       { return func() {} }

func TestService_SourceNotControllable(t *testing.T) {
	svc, lc := newService(t, &memorySink{})
	defer lc.RequireStop()

	session, err := svc.Attach(&passiveSource{stream: media.NewCaptureStream()}, "p", recorder.ModeManual)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Pause(session.ID()), recorder.ErrSourceNotControllable)
}

func TestService_ManualRemoteRecordingKeepsHeader(t *testing.T) {
	header := append(append([]byte{}, media.EBMLMagic...), "segment-info+tracks"...)
	first := append(append(append([]byte{}, header...), media.ClusterID...), "one"...)
	second := append(append([]byte{}, media.ClusterID...), "two"...)

	more := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		_, _ = w.Write(first)
		w.(http.Flusher).Flush()
		select {
		case <-more:
		case <-req.Context().Done():
			return
		}
		_, _ = w.Write(second)
		w.(http.Flusher).Flush()
		<-req.Context().Done()
	}))
	defer srv.Close()

	out := &memorySink{}
	svc, _ := newService(t, out)
	sources := source.NewService(fxtest.NewLifecycle(t), stream.NewService(), &config.Config{})
	remote, err := sources.Open(srv.URL + "/live.webm")
	require.NoError(t, err)
	defer remote.Close()

	connected := make(chan struct{})
	var once sync.Once
	remote.CaptureStream().OnData(func([]byte) { once.Do(func() { close(connected) }) })

	session, err := svc.Attach(remote, "cam", recorder.ModeManual)
	require.NoError(t, err)
	remote.Play()
	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("remote source never delivered data")
	}
	select {
	case <-session.Bound():
	case <-time.After(5 * time.Second):
		t.Fatal("session never bound")
	}

	session.Start()
	require.Equal(t, recorder.StateRecording, session.State())

	// subscribed after the recorder, so it sees the cluster last
	recorded := make(chan struct{})
	var seen sync.Once
	remote.CaptureStream().OnData(func(p []byte) {
		if bytes.Contains(p, []byte("two")) {
			seen.Do(func() { close(recorded) })
		}
	})
	close(more)
	select {
	case <-recorded:
	case <-time.After(5 * time.Second):
		t.Fatal("second cluster never arrived")
	}

	session.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, session.Wait(ctx))

	deliveries := out.all()
	require.Len(t, deliveries, 1)
	assert.True(t, bytes.HasPrefix(deliveries[0].blob.Data, media.EBMLMagic), "recording starts with the EBML header")
	assert.Equal(t, append(append([]byte{}, header...), second...), deliveries[0].blob.Data)
}
