package automation

import (
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Actions issues open/close/play requests to the host OS. Everything here is
// best-effort: success means the call was issued without error, not that the
// intended window actually appeared or died.
type Actions struct {
	Log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Actions {
	return &Actions{Log: log}
}

// GoogleSearchURL builds the browser search URL for a query.
func GoogleSearchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// YouTubeSearchURL builds the results URL; an empty query falls back to the
// YouTube front page.
func YouTubeSearchURL(query string) string {
	if strings.TrimSpace(query) == "" {
		return "https://www.youtube.com"
	}
	return "https://www.youtube.com/results?search_query=" + strings.ReplaceAll(query, " ", "+")
}

// looksLikeURL mirrors the loose heuristic of the surrounding shell: anything
// with a scheme, a dot or "www" is sent to the browser rather than launched
// as an app.
func looksLikeURL(target string) bool {
	low := strings.ToLower(target)
	return strings.HasPrefix(low, "http://") ||
		strings.HasPrefix(low, "https://") ||
		strings.Contains(low, "www") ||
		strings.Contains(target, ".")
}

// OpenURL opens a URL in the default browser.
func (a *Actions) OpenURL(raw string) bool {
	a.Log.Infow("action", "open_url", raw)
	return a.launch(raw)
}

// OpenTarget opens an app by name or a URL. Unresolvable targets fall back to
// a browser search so the user always gets something.
func (a *Actions) OpenTarget(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	a.Log.Infow("action", "open", target)

	if looksLikeURL(target) {
		u := target
		if !strings.HasPrefix(strings.ToLower(u), "http://") && !strings.HasPrefix(strings.ToLower(u), "https://") {
			u = "https://" + u
		}
		return a.launch(u)
	}

	if a.startApp(target) {
		return true
	}
	return a.launch(GoogleSearchURL(target))
}

// CloseTarget kills processes matching the target name.
func (a *Actions) CloseTarget(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	a.Log.Infow("action", "close", target)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		image := target
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		cmd = exec.Command("taskkill", "/F", "/IM", image)
	default:
		cmd = exec.Command("pkill", "-f", target)
	}
	if err := cmd.Run(); err != nil {
		// pkill exits non-zero when nothing matched; still best-effort issued.
		a.Log.Debugw("close issued with error", "target", target, "err", err)
	}
	return true
}

// Play opens a YouTube search for the requested media.
func (a *Actions) Play(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	a.Log.Infow("action", "play", target)
	return a.launch(YouTubeSearchURL(target))
}

// launch hands a URL or file to the platform opener without waiting on it.
func (a *Actions) launch(target string) bool {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	case "darwin":
		cmd = exec.Command("open", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		a.Log.Warnw("launch failed", "target", target, "err", err)
		return false
	}
	go func() { _ = cmd.Wait() }()
	return true
}

// startApp tries to spawn an application by bare name.
func (a *Actions) startApp(name string) bool {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", name)
	case "darwin":
		cmd = exec.Command("open", "-a", name)
	default:
		if _, err := exec.LookPath(name); err != nil {
			return false
		}
		cmd = exec.Command(name)
	}
	if err := cmd.Start(); err != nil {
		return false
	}
	go func() { _ = cmd.Wait() }()
	return true
}
