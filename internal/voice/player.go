package voice

import (
	"os/exec"
	"sync"
)

// ExecPlayer plays audio through an external binary (ffplay by default).
type ExecPlayer struct {
	Bin string
}

func NewExecPlayer() *ExecPlayer {
	return &ExecPlayer{Bin: "ffplay"}
}

func (p *ExecPlayer) bin() string {
	if p.Bin == "" {
		return "ffplay"
	}
	return p.Bin
}

// Available reports whether the playback binary can be found.
func (p *ExecPlayer) Available() bool {
	_, err := exec.LookPath(p.bin())
	return err == nil
}

func (p *ExecPlayer) Start(path string) (Playback, error) {
	cmd := exec.Command(p.bin(), "-nodisp", "-autoexit", "-loglevel", "quiet", path)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	pb := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		pb.err = cmd.Wait()
		close(pb.done)
	}()
	return pb, nil
}

type execPlayback struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

func (p *execPlayback) Busy() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *execPlayback) Stop() {
	p.stopOnce.Do(func() {
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	})
}

// Unload waits for the player process to be reaped; the subprocess holds no
// further resources after that.
func (p *execPlayback) Unload() {
	<-p.done
}

// Err reports how playback ended. Only meaningful once Busy() is false.
func (p *execPlayback) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}
