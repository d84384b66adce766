package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura-v0/internal/config"
	"aura-v0/internal/dispatch"
)

type stubReplier struct {
	fn func(query string) (string, error)
}

func (s *stubReplier) Reply(ctx context.Context, query string) (string, error) {
	return s.fn(query)
}

func newTestSession(t *testing.T, caps dispatch.Capabilities) (*session, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	d := dispatch.New(caps, zap.NewNop().Sugar())
	d.PaceDelay = 0
	return &session{
		cfg:  config.Default(),
		log:  zap.NewNop().Sugar(),
		disp: d,
		out:  out,
		mode: "text",
	}, out
}

func TestHandleQuery_ExitEndsSession(t *testing.T) {
	s, out := newTestSession(t, dispatch.Capabilities{})
	err := s.handleQuery(context.Background(), "exit")
	require.ErrorIs(t, err, errSessionDone)
	require.Contains(t, out.String(), "Goodbye.")
}

func TestHandleQuery_PrintsReply(t *testing.T) {
	replier := &stubReplier{fn: func(q string) (string, error) {
		return "Hello back.", nil
	}}
	s, out := newTestSession(t, dispatch.Capabilities{Replier: replier})

	require.NoError(t, s.handleQuery(context.Background(), "hello there"))
	require.Contains(t, out.String(), "Hello back.")
}

func TestHandleQuery_FailurePrintedButNotFatal(t *testing.T) {
	replier := &stubReplier{fn: func(q string) (string, error) {
		return "", errors.New("backend down")
	}}
	s, out := newTestSession(t, dispatch.Capabilities{Replier: replier})

	require.NoError(t, s.handleQuery(context.Background(), "hello"))
	require.Contains(t, out.String(), "ERR:")
}

type stubActions struct {
	opened []string
}

func (s *stubActions) OpenTarget(t string) bool { s.opened = append(s.opened, t); return true }
func (s *stubActions) CloseTarget(string) bool  { return true }
func (s *stubActions) Play(string) bool         { return true }
func (s *stubActions) OpenURL(string) bool      { return true }

func TestHandleQuery_BatchRunsEveryPart(t *testing.T) {
	actions := &stubActions{}
	s, out := newTestSession(t, dispatch.Capabilities{Actions: actions})

	require.NoError(t, s.handleQuery(context.Background(), "open chrome, spotify and terminal"))
	require.Equal(t, []string{"chrome", "spotify", "terminal"}, actions.opened)
	require.Contains(t, out.String(), "Opened chrome")
	require.Contains(t, out.String(), "Opened terminal")
}

func TestHandleLine_TypedFallbackInVoiceMode(t *testing.T) {
	replier := &stubReplier{fn: func(q string) (string, error) {
		require.Equal(t, "tell me a joke", q)
		return "ok", nil
	}}
	s, out := newTestSession(t, dispatch.Capabilities{Replier: replier})
	s.mode = "voice"

	// Plain text in voice mode only prints the hint.
	require.NoError(t, s.handleLine(context.Background(), "tell me a joke"))
	require.Contains(t, out.String(), "t:")

	require.NoError(t, s.handleLine(context.Background(), "t: tell me a joke"))
}

func TestHandleLine_BlankIsIgnored(t *testing.T) {
	s, out := newTestSession(t, dispatch.Capabilities{})
	require.NoError(t, s.handleLine(context.Background(), ""))
	require.Empty(t, out.String())
}

func TestHandleLine_StatusCommand(t *testing.T) {
	s, out := newTestSession(t, dispatch.Capabilities{})
	require.NoError(t, s.handleLine(context.Background(), "/status"))
	require.Contains(t, out.String(), "mode: text")
	require.Contains(t, out.String(), "speech: off")
}

func TestSwitchMode(t *testing.T) {
	s, out := newTestSession(t, dispatch.Capabilities{})

	require.NoError(t, s.switchMode("nonsense"))
	require.Contains(t, out.String(), "/mode text|voice|both")
	require.Equal(t, "text", s.mode)

	// Voice needs a listener that was started at boot.
	out.Reset()
	require.NoError(t, s.switchMode("voice"))
	require.Contains(t, out.String(), "restart with --mode voice")
	require.Equal(t, "text", s.mode)

	require.NoError(t, s.switchMode("text"))
	require.Equal(t, "text", s.mode)
}

func TestRun_ExitLineEndsLoop(t *testing.T) {
	s, out := newTestSession(t, dispatch.Capabilities{})
	s.in = strings.NewReader("exit\n")
	require.NoError(t, s.run(context.Background()))
	require.Contains(t, out.String(), "Goodbye.")
}

func TestRun_ContextCancelEndsLoop(t *testing.T) {
	s, _ := newTestSession(t, dispatch.Capabilities{})
	s.in = strings.NewReader("") // scanner ends immediately
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.run(ctx))
}
