package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// EnsureResult reports what startup had to do to get the local backend up.
type EnsureResult struct {
	Available bool
	Started   bool
	Pulled    bool
	Missing   bool
	Err       error
}

// EnsureOptions tune EnsureOllama; zero values get sane defaults.
type EnsureOptions struct {
	AutoStart    bool
	AutoPull     bool
	StartRetries int
	StartRetry   time.Duration
	PullTimeout  time.Duration
}

func (o *EnsureOptions) defaults() {
	if o.StartRetries == 0 {
		o.StartRetries = 10
	}
	if o.StartRetry == 0 {
		o.StartRetry = 500 * time.Millisecond
	}
	if o.PullTimeout == 0 {
		o.PullTimeout = 10 * time.Minute
	}
}

// EnsureOllama gets the local backend into a usable state: ping it, start
// the daemon if allowed, and pull the configured model if it is missing.
// Every step is best-effort; the result says how far it got.
func EnsureOllama(ctx context.Context, c *OllamaClient, model string, opts EnsureOptions) EnsureResult {
	opts.defaults()
	res := EnsureResult{}
	if c == nil {
		res.Err = errors.New("nil ollama client")
		return res
	}

	if err := c.Ping(ctx); err != nil && opts.AutoStart {
		res.Started = tryStartDaemon()
		for i := 0; i < opts.StartRetries; i++ {
			select {
			case <-ctx.Done():
				res.Err = ctx.Err()
				return res
			case <-time.After(opts.StartRetry):
			}
			if err := c.Ping(ctx); err == nil {
				break
			}
		}
	}

	if err := c.Ping(ctx); err != nil {
		res.Err = err
		return res
	}
	res.Available = true

	model = strings.TrimSpace(model)
	if model == "" {
		return res
	}
	models, err := c.ListModels(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	if _, ok := models[model]; ok {
		return res
	}
	res.Missing = true
	if !opts.AutoPull {
		return res
	}
	if err := pullModel(ctx, model, opts.PullTimeout); err != nil {
		res.Err = err
		return res
	}
	res.Pulled = true
	res.Missing = false
	return res
}

// Summary renders one startup log line.
func (r EnsureResult) Summary(model string) string {
	if !r.Available {
		return fmt.Sprintf("chat backend offline (%v)", r.Err)
	}
	s := "chat backend online"
	if r.Started {
		s += ", daemon started"
	}
	if r.Pulled {
		s += ", pulled " + model
	}
	if r.Missing {
		s += ", model " + model + " missing"
	}
	return s
}

// ListModels returns the set of locally installed model names.
func (c *OllamaClient) ListModels(ctx context.Context) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("ollama status " + resp.Status)
	}
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(out.Models))
	for _, m := range out.Models {
		set[m.Name] = struct{}{}
	}
	return set, nil
}

func tryStartDaemon() bool {
	if runtime.GOOS == "windows" {
		_ = exec.Command("sc.exe", "start", "Ollama").Run()
	}
	cmd := exec.Command("ollama", "serve")
	if err := cmd.Start(); err != nil {
		return false
	}
	go func() { _ = cmd.Wait() }()
	return true
}

func pullModel(ctx context.Context, model string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return exec.CommandContext(cctx, "ollama", "pull", model).Run()
}
