package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"aura-v0/internal/automation"
	"aura-v0/internal/chatbot"
	"aura-v0/internal/config"
	"aura-v0/internal/dispatch"
	"aura-v0/internal/intent"
	"aura-v0/internal/listen"
	"aura-v0/internal/llm"
	"aura-v0/internal/realtime"
	"aura-v0/internal/sensors"
	"aura-v0/internal/state"
	"aura-v0/internal/voice"
)

// session is one interactive run: queries come in from stdin, the drop
// file, or both, and each one is classified and dispatched in order.
type session struct {
	cfg  config.Config
	log  *zap.SugaredLogger
	disp *dispatch.Dispatcher

	listener *listen.Watcher   // nil when voice input is off
	speech   *voice.Controller // nil when speech output is off
	sampler  sensors.Sampler

	in   io.Reader
	out  io.Writer
	mode string
}

var errSessionDone = errors.New("session done")

// queueSpeaker adapts the speech controller to the dispatcher. A busy
// rejection drops the utterance rather than queueing it.
type queueSpeaker struct {
	ctrl *voice.Controller
}

func (q *queueSpeaker) Speak(text string) error {
	return q.ctrl.Submit(voice.Request{Text: text})
}

func runSession(ctx context.Context, cfg config.Config, mode string, log *zap.SugaredLogger) error {
	switch mode {
	case "text", "voice", "both":
	default:
		return fmt.Errorf("unknown mode %q (want text, voice or both)", mode)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	db, err := state.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	chat, err := newChatter(ctx, cfg, log)
	if err != nil {
		return err
	}

	s := &session{
		cfg:     cfg,
		log:     log,
		sampler: sensors.NewSampler(),
		in:      os.Stdin,
		out:     os.Stdout,
		mode:    mode,
	}

	if cfg.Voice.Enabled {
		s.speech = newSpeech(cfg, log)
	}
	if mode != "text" {
		w, err := listen.NewWatcher(cfg.DropFile, cfg.StatusFile, log)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		s.listener = w
	}

	caps := dispatch.Capabilities{
		Replier: &chatbot.Service{
			Store:         db,
			Chat:          chat,
			Model:         cfg.LLM.Model,
			UserName:      cfg.UserName,
			AssistantName: cfg.AssistantName,
			Log:           log,
		},
		Realtime: &realtime.Service{
			Store:         db,
			Chat:          chat,
			Model:         cfg.LLM.Model,
			AssistantName: cfg.AssistantName,
			Log:           log,
		},
		Actions:   automation.New(log),
		Reminders: db,
	}
	if s.speech != nil {
		caps.Speaker = &queueSpeaker{ctrl: s.speech}
	}
	s.disp = dispatch.New(caps, log)

	return s.run(ctx)
}

// newChatter selects the chat backend from config. The local backend gets a
// best-effort daemon start and model pull; an offline backend is not fatal,
// the dispatcher will surface per-query failures instead.
func newChatter(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (llm.Chatter, error) {
	switch cfg.LLM.Backend {
	case "gemini":
		return llm.NewGemini(ctx, cfg.LLM.GeminiKey)
	default:
		c := llm.NewOllama(cfg.LLM.OllamaURL)
		res := llm.EnsureOllama(ctx, c, cfg.LLM.Model, llm.EnsureOptions{
			AutoStart: cfg.LLM.AutoStart,
			AutoPull:  cfg.LLM.AutoPull,
		})
		log.Infow("ollama", "state", res.Summary(cfg.LLM.Model))
		return c, nil
	}
}

// newSpeech wires the speech controller when both tools are on PATH;
// otherwise the session runs silent.
func newSpeech(cfg config.Config, log *zap.SugaredLogger) *voice.Controller {
	synth := voice.NewEdgeSynthesizer(cfg.Voice.Name)
	if cfg.Voice.Pitch != "" {
		synth.Pitch = cfg.Voice.Pitch
	}
	if cfg.Voice.Rate != "" {
		synth.Rate = cfg.Voice.Rate
	}
	player := voice.NewExecPlayer()
	if !synth.Available() || !player.Available() {
		log.Infow("speech tools not found, running silent")
		return nil
	}
	dir := filepath.Join(cfg.DataDir, "speech")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnw("speech dir unavailable, running silent", "err", err)
		return nil
	}
	return voice.NewController(synth, player, dir, log)
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintln(s.out, promptStyle.Render(s.cfg.AssistantName+" online."))
	fmt.Fprintln(s.out, dimStyle.Render(`Type a request, "t: <text>" in voice mode, or "exit" to quit.`))

	lines := make(chan string)
	go s.readLines(ctx, lines)

	var dropped <-chan string
	if s.listener != nil {
		dropped = s.listener.Queries()
	}

	defer func() {
		if s.speech != nil {
			s.speech.Stop()
		}
	}()

	for {
		fmt.Fprint(s.out, promptStyle.Render("> "))
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.handleLine(ctx, line); err != nil {
				if errors.Is(err, errSessionDone) {
					return nil
				}
				return err
			}
		case q, ok := <-dropped:
			if !ok {
				dropped = nil
				continue
			}
			fmt.Fprintln(s.out, dimStyle.Render("heard: "+q))
			if err := s.handleQuery(ctx, q); err != nil {
				if errors.Is(err, errSessionDone) {
					return nil
				}
				return err
			}
		}
	}
}

func (s *session) readLines(ctx context.Context, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		select {
		case out <- strings.TrimSpace(sc.Text()):
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) handleLine(ctx context.Context, line string) error {
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "/mode"):
		return s.switchMode(strings.TrimSpace(strings.TrimPrefix(line, "/mode")))
	case line == "/status":
		s.printStatus()
		return nil
	case strings.HasPrefix(line, "t:"):
		// Typed fallback while in voice mode.
		return s.handleQuery(ctx, strings.TrimSpace(strings.TrimPrefix(line, "t:")))
	case s.mode == "voice":
		fmt.Fprintln(s.out, dimStyle.Render(`(voice mode: prefix typed requests with "t:" or run /mode text)`))
		return nil
	default:
		return s.handleQuery(ctx, line)
	}
}

func (s *session) printStatus() {
	fmt.Fprintln(s.out, dimStyle.Render("mode: "+s.mode))
	speech := "off"
	if s.speech != nil {
		speech = s.speech.State().String()
	}
	fmt.Fprintln(s.out, dimStyle.Render("speech: "+speech))
	if s.sampler != nil {
		if snap, err := s.sampler.Sample("."); err == nil {
			fmt.Fprintln(s.out, dimStyle.Render("host: "+snap.String()))
		}
	}
}

func (s *session) switchMode(mode string) error {
	switch mode {
	case "text", "voice", "both":
	default:
		fmt.Fprintln(s.out, errStyle.Render("Use: /mode text|voice|both"))
		return nil
	}
	if mode != "text" && s.listener == nil {
		fmt.Fprintln(s.out, errStyle.Render("Voice input was not started; restart with --mode voice."))
		return nil
	}
	s.mode = mode
	fmt.Fprintln(s.out, dimStyle.Render("(mode: "+mode+")"))
	return nil
}

func (s *session) handleQuery(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}
	if s.listener != nil {
		s.listener.SetStatus("Answering...")
		defer s.listener.SetStatus("Listening...")
	}

	segments := intent.Classify(query)
	results := s.disp.RunBatch(ctx, segments, query)

	halt := false
	for _, r := range results {
		switch r.Outcome {
		case dispatch.OutcomeHalt:
			halt = true
		case dispatch.OutcomeFailure:
			fmt.Fprintln(s.out, errStyle.Render("ERR: "+r.Err.Error()))
		default:
			if r.Text != "" {
				fmt.Fprintln(s.out, replyStyle.Render(s.cfg.AssistantName+": "+r.Text))
			}
		}
	}
	if halt {
		fmt.Fprintln(s.out, dimStyle.Render("Goodbye."))
		return errSessionDone
	}
	return nil
}
