package voice

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSynth struct {
	block chan struct{} // if set, Synthesize blocks until closed
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, destPath string) error {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte(text), 0o644)
}

type fakePlayback struct {
	path string
	end  chan struct{}
	once sync.Once
}

func (p *fakePlayback) finish()      { p.once.Do(func() { close(p.end) }) }
func (p *fakePlayback) Stop()        { p.finish() }
func (p *fakePlayback) Unload()      {}
func (p *fakePlayback) Err() error   { return nil }
func (p *fakePlayback) Busy() bool {
	select {
	case <-p.end:
		return false
	default:
		return true
	}
}

type fakePlayer struct {
	started chan *fakePlayback
	err     error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{started: make(chan *fakePlayback, 8)}
}

func (p *fakePlayer) Start(path string) (Playback, error) {
	if p.err != nil {
		return nil, p.err
	}
	pb := &fakePlayback{path: path, end: make(chan struct{})}
	p.started <- pb
	return pb, nil
}

func newTestController(t *testing.T, synth Synthesizer, play Player) *Controller {
	t.Helper()
	c := NewController(synth, play, t.TempDir(), zap.NewNop().Sugar())
	t.Cleanup(c.Stop)
	return c
}

func waitStarted(t *testing.T, p *fakePlayer) *fakePlayback {
	t.Helper()
	select {
	case pb := <-p.started:
		return pb
	case <-time.After(2 * time.Second):
		t.Fatal("playback never started")
		return nil
	}
}

func waitComplete(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("OnComplete never ran")
		return false
	}
}

func TestSubmit_NaturalCompletion(t *testing.T) {
	player := newFakePlayer()
	c := newTestController(t, &fakeSynth{}, player)

	completed := make(chan bool, 1)
	require.NoError(t, c.Submit(Request{
		Text:       "hello there",
		OnComplete: func(interrupted bool) { completed <- interrupted },
	}))

	pb := waitStarted(t, player)
	require.FileExists(t, pb.path, "artifact must exist while playing")
	require.Equal(t, StatePlaying, c.State())

	pb.finish()
	require.False(t, waitComplete(t, completed), "natural completion is not an interruption")
	require.NoFileExists(t, pb.path, "artifact must be deleted after playback")
	require.Equal(t, StateIdle, c.State())
}

func TestSubmit_SupersessionStopsPriorAndDeletesArtifact(t *testing.T) {
	player := newFakePlayer()
	c := newTestController(t, &fakeSynth{}, player)

	aDone := make(chan bool, 1)
	require.NoError(t, c.Submit(Request{
		Text:       "first",
		OnComplete: func(interrupted bool) { aDone <- interrupted },
	}))
	pbA := waitStarted(t, player)
	require.FileExists(t, pbA.path)

	// B supersedes A: by the time Submit returns, A is fully cleaned up.
	require.NoError(t, c.Submit(Request{Text: "second"}))
	pbB := waitStarted(t, player)

	require.True(t, waitComplete(t, aDone), "superseded playback must report interruption")
	require.NoFileExists(t, pbA.path, "superseded artifact must be gone once B plays")
	require.FileExists(t, pbB.path)
	require.NotEqual(t, pbA.path, pbB.path)

	pbB.finish()
}

func TestSubmit_BusyRejectDuringSynthesis(t *testing.T) {
	block := make(chan struct{})
	player := newFakePlayer()
	c := newTestController(t, &fakeSynth{block: block}, player)

	errc := make(chan error, 1)
	go func() { errc <- c.Submit(Request{Text: "slow"}) }()

	// Wait for the first request to occupy the controller.
	require.Eventually(t, func() bool {
		return c.State() == StateSynthesizing
	}, 2*time.Second, 5*time.Millisecond)

	err := c.Submit(Request{Text: "overlapping"})
	require.ErrorIs(t, err, ErrBusy)

	close(block)
	require.NoError(t, <-errc)
	waitStarted(t, player).finish()
}

func TestSubmit_SynthesisFailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	c := NewController(&fakeSynth{err: errors.New("no voice")}, newFakePlayer(), dir, zap.NewNop().Sugar())
	t.Cleanup(c.Stop)

	err := c.Submit(Request{Text: "doomed"})
	require.ErrorIs(t, err, ErrSynthesis)
	require.Equal(t, StateIdle, c.State())

	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	require.Empty(t, entries, "failed synthesis must not leak artifacts")
}

func TestSubmit_PlayerStartFailureRunsOnComplete(t *testing.T) {
	dir := t.TempDir()
	player := newFakePlayer()
	player.err = errors.New("no audio device")
	c := NewController(&fakeSynth{}, player, dir, zap.NewNop().Sugar())
	t.Cleanup(c.Stop)

	completed := make(chan bool, 1)
	err := c.Submit(Request{Text: "x", OnComplete: func(i bool) { completed <- i }})
	require.ErrorIs(t, err, ErrPlayback)
	require.True(t, waitComplete(t, completed))

	entries, rerr := os.ReadDir(dir)
	require.NoError(t, rerr)
	require.Empty(t, entries)
}

func TestSubmit_PollPredicateCancels(t *testing.T) {
	player := newFakePlayer()
	c := newTestController(t, &fakeSynth{}, player)

	completed := make(chan bool, 1)
	require.NoError(t, c.Submit(Request{
		Text:       "cancel me",
		Poll:       func() bool { return false },
		OnComplete: func(interrupted bool) { completed <- interrupted },
	}))

	pb := waitStarted(t, player)
	require.True(t, waitComplete(t, completed), "poll=false must interrupt")
	require.NoFileExists(t, pb.path)
	require.Equal(t, StateIdle, c.State())
}

func TestStop_IdleIsNoop(t *testing.T) {
	c := newTestController(t, &fakeSynth{}, newFakePlayer())
	c.Stop()
	c.Stop()
	require.Equal(t, StateIdle, c.State())
}

func TestSubmit_RapidFireNeverLeaksArtifacts(t *testing.T) {
	dir := t.TempDir()
	player := newFakePlayer()
	c := NewController(&fakeSynth{}, player, dir, zap.NewNop().Sugar())
	t.Cleanup(c.Stop)

	for i := 0; i < 5; i++ {
		err := c.Submit(Request{Text: "burst"})
		if errors.Is(err, ErrBusy) {
			continue
		}
		require.NoError(t, err)
	}
	// Drain and finish whatever is still playing.
	c.Stop()
	for {
		select {
		case pb := <-player.started:
			pb.finish()
			continue
		default:
		}
		break
	}
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond, "no artifact may outlive its playback cycle")
}
