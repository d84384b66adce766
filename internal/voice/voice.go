package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusy is returned when a Submit arrives while another request already
// occupies the controller. The caller may drop the utterance or retry later;
// requests are never queued.
var ErrBusy = errors.New("voice: speech already in progress")

// ErrSynthesis and ErrPlayback classify Submit failures for errors.Is.
var (
	ErrSynthesis = errors.New("voice: synthesis failed")
	ErrPlayback  = errors.New("voice: playback failed")
)

const (
	// pollInterval bounds how quickly cancellation takes effect.
	pollInterval = 33 * time.Millisecond
	// postPlaybackDelay lets the audio device drain before unloading.
	postPlaybackDelay = 50 * time.Millisecond
)

// Synthesizer turns text into an audio file at destPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, destPath string) error
}

// Playback is one running playback session.
type Playback interface {
	Busy() bool
	Stop()
	Unload()
	Err() error
}

// Player starts playback of an audio file.
type Player interface {
	Start(path string) (Playback, error)
}

// Request is one speech job. Poll, if set, is invoked on a fixed tick while
// playback is active; returning false requests early cancellation. OnComplete,
// if set, always runs after cleanup; interrupted is true unless playback ran
// to natural completion.
type Request struct {
	Text       string
	Poll       func() bool
	OnComplete func(interrupted bool)
}

// State of the controller, for logging and tests.
type State int32

const (
	StateIdle State = iota
	StateSynthesizing
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateSynthesizing:
		return "synthesizing"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Controller serializes all speech output. At most one request is active
// process-wide: a Submit during synthesis is rejected with ErrBusy, a Submit
// during playback supersedes it (stop, join, then proceed). Every artifact is
// deleted before the controller returns to idle, playback errors included.
type Controller struct {
	synth Synthesizer
	play  Player
	dir   string
	log   *zap.SugaredLogger

	occupied atomic.Bool
	state    atomic.Int32

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

func NewController(synth Synthesizer, play Player, dir string, log *zap.SugaredLogger) *Controller {
	return &Controller{synth: synth, play: play, dir: dir, log: log}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Submit synthesizes and starts playback of req, superseding any playback in
// flight. It returns once playback has started; it does not wait for it to
// finish. A concurrent Submit that finds the controller occupied gets ErrBusy.
func (c *Controller) Submit(req Request) error {
	if !c.occupied.CompareAndSwap(false, true) {
		return ErrBusy
	}

	// Supersession: whatever is still playing stops now, and we wait for its
	// cleanup to finish so two artifacts never exist at once.
	c.stopAndJoin()

	c.state.Store(int32(StateSynthesizing))
	path := filepath.Join(c.dir, "speech_"+uuid.New().String()+".mp3")

	if err := c.synth.Synthesize(context.Background(), req.Text, path); err != nil {
		_ = os.Remove(path)
		c.state.Store(int32(StateIdle))
		c.occupied.Store(false)
		return fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	pb, err := c.play.Start(path)
	if err != nil {
		_ = os.Remove(path)
		c.state.Store(int32(StateIdle))
		c.occupied.Store(false)
		if req.OnComplete != nil {
			req.OnComplete(true)
		}
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.mu.Lock()
	c.stopCh, c.doneCh = stop, done
	c.mu.Unlock()
	c.state.Store(int32(StatePlaying))

	go c.watch(pb, path, req, stop, done)

	c.occupied.Store(false)
	return nil
}

// Stop cancels in-flight playback and blocks until its cleanup has run.
// Safe to call when idle.
func (c *Controller) Stop() {
	c.stopAndJoin()
}

func (c *Controller) stopAndJoin() {
	c.mu.Lock()
	stop, done := c.stopCh, c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.mu.Unlock()
	if done == nil {
		return
	}
	close(stop)
	<-done
}

// watch polls the playback session until it ends or is cancelled, then runs
// the cleanup sequence unconditionally: unload, delete artifact, OnComplete.
func (c *Controller) watch(pb Playback, path string, req Request, stop, done chan struct{}) {
	defer close(done)

	interrupted := false
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for pb.Busy() {
		select {
		case <-stop:
			pb.Stop()
			interrupted = true
		case <-ticker.C:
			if req.Poll != nil && !req.Poll() {
				pb.Stop()
				interrupted = true
			}
		}
		if interrupted {
			break
		}
	}

	if !interrupted {
		if err := pb.Err(); err != nil {
			c.log.Warnw("playback failed", "err", err)
			interrupted = true
		}
	}

	time.Sleep(postPlaybackDelay)
	pb.Unload()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Warnw("artifact delete failed", "path", path, "err", err)
	}
	c.state.Store(int32(StateIdle))

	if req.OnComplete != nil {
		req.OnComplete(interrupted)
	}
}
