package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aura-v0/internal/automation"
	"aura-v0/internal/intent"
)

// Outcome of one dispatched segment.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeHalt
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "failure"
	case OutcomeHalt:
		return "halt"
	default:
		return "success"
	}
}

// Result pairs a segment with how its handler ended.
type Result struct {
	Segment intent.Segment
	Outcome Outcome
	Text    string
	Err     error
}

// Replier answers general conversational queries.
type Replier interface {
	Reply(ctx context.Context, query string) (string, error)
}

// Realtimer answers queries needing live web data.
type Realtimer interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Actioner issues best-effort OS side effects.
type Actioner interface {
	OpenTarget(target string) bool
	CloseTarget(target string) bool
	Play(target string) bool
	OpenURL(url string) bool
}

// ReminderStore persists reminder lines.
type ReminderStore interface {
	AppendReminder(text string) error
}

// Speaker voices a reply. May reject with a busy error; the dispatcher only
// logs that, a dropped confirmation is never fatal.
type Speaker interface {
	Speak(text string) error
}

// Capabilities are the external collaborators a dispatcher routes into.
// Speaker may be nil: the assistant then runs silent.
type Capabilities struct {
	Replier   Replier
	Realtime  Realtimer
	Actions   Actioner
	Reminders ReminderStore
	Speaker   Speaker
}

// Dispatcher resolves one segment at a time to a handler and isolates its
// failures: nothing a handler does short of the exit intent can abort the
// batch or the session.
type Dispatcher struct {
	caps Capabilities
	log  *zap.SugaredLogger

	// PaceDelay separates consecutive segment executions so side effects
	// (two app launches, say) do not land at the same instant.
	PaceDelay time.Duration
}

func New(caps Capabilities, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		caps:      caps,
		log:       log,
		PaceDelay: 300 * time.Millisecond,
	}
}

// RunBatch executes segments strictly in order. A Failure continues the
// batch; only Halt stops it. The result slice covers every executed segment.
func (d *Dispatcher) RunBatch(ctx context.Context, segments []intent.Segment, original string) []Result {
	results := make([]Result, 0, len(segments))
	for i, seg := range segments {
		res := d.Dispatch(ctx, seg, original)
		results = append(results, res)
		if res.Outcome == OutcomeHalt {
			break
		}
		if d.PaceDelay > 0 && i < len(segments)-1 {
			time.Sleep(d.PaceDelay)
		}
	}
	return results
}

// Dispatch routes a single segment to its handler. Panics inside a handler
// are recovered into a Failure so sibling segments still run.
func (d *Dispatcher) Dispatch(ctx context.Context, seg intent.Segment, original string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("handler panic", "tag", seg.Tag, "panic", r)
			res = Result{Segment: seg, Outcome: OutcomeFailure, Err: fmt.Errorf("handler panic: %v", r)}
		}
	}()

	arg := seg.Arg
	if arg == "" {
		arg = original
	}

	switch seg.Tag {
	case intent.TagExit:
		return Result{Segment: seg, Outcome: OutcomeHalt}

	case intent.TagGoogleSearch, intent.TagYouTubeSearch, intent.TagOpen, intent.TagClose, intent.TagPlay:
		if d.caps.Actions == nil {
			return d.failure(seg, fmt.Errorf("os-action capability unavailable"))
		}
		return d.dispatchAction(seg, arg)

	case intent.TagRealtime:
		if d.caps.Realtime == nil {
			return d.failure(seg, fmt.Errorf("realtime capability unavailable"))
		}
		text, err := d.caps.Realtime.Answer(ctx, arg)
		if err != nil {
			return d.failure(seg, err)
		}
		d.speakAsync(text)
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: text}

	case intent.TagSystem:
		// Issued, not verified: the host decides what the command means.
		d.speakAsync("Executing system command: " + arg)
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Executed system command: " + arg}

	case intent.TagReminder:
		if d.caps.Reminders == nil {
			return d.failure(seg, fmt.Errorf("reminder storage unavailable"))
		}
		if err := d.caps.Reminders.AppendReminder(arg); err != nil {
			return d.failure(seg, err)
		}
		d.speakAsync("Reminder saved.")
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Reminder saved: " + arg}

	default:
		// General and anything unrecognized fall back to conversation.
		if d.caps.Replier == nil {
			return d.failure(seg, fmt.Errorf("conversational capability unavailable"))
		}
		text, err := d.caps.Replier.Reply(ctx, arg)
		if err != nil {
			return d.failure(seg, err)
		}
		d.speakAsync(text)
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: text}
	}
}

// dispatchAction covers the best-effort OS side effects. Success means the
// action was issued, not that it achieved anything.
func (d *Dispatcher) dispatchAction(seg intent.Segment, arg string) Result {
	switch seg.Tag {
	case intent.TagGoogleSearch:
		if ok := d.caps.Actions.OpenURL(automation.GoogleSearchURL(arg)); !ok {
			return d.failure(seg, fmt.Errorf("could not open google search"))
		}
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Opened Google search for: " + arg}

	case intent.TagYouTubeSearch:
		if ok := d.caps.Actions.OpenURL(automation.YouTubeSearchURL(seg.Arg)); !ok {
			return d.failure(seg, fmt.Errorf("could not open youtube"))
		}
		if seg.Arg == "" {
			return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Opened YouTube"}
		}
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Searched YouTube: " + seg.Arg}

	case intent.TagOpen:
		if ok := d.caps.Actions.OpenTarget(arg); !ok {
			return d.failure(seg, fmt.Errorf("could not open %q", arg))
		}
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Opened " + arg}

	case intent.TagClose:
		if ok := d.caps.Actions.CloseTarget(arg); !ok {
			return d.failure(seg, fmt.Errorf("could not close %q", arg))
		}
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Closed " + arg}

	default: // TagPlay
		if ok := d.caps.Actions.Play(arg); !ok {
			return d.failure(seg, fmt.Errorf("could not play %q", arg))
		}
		return Result{Segment: seg, Outcome: OutcomeSuccess, Text: "Playing " + arg + " on YouTube"}
	}
}

func (d *Dispatcher) failure(seg intent.Segment, err error) Result {
	d.log.Warnw("segment failed", "tag", seg.Tag, "arg", seg.Arg, "err", err)
	return Result{Segment: seg, Outcome: OutcomeFailure, Err: err}
}

// speakAsync forwards text to the speaker without waiting for playback.
// A busy rejection just drops this utterance.
func (d *Dispatcher) speakAsync(text string) {
	if d.caps.Speaker == nil || text == "" {
		return
	}
	go func() {
		if err := d.caps.Speaker.Speak(text); err != nil {
			d.log.Debugw("speech dropped", "err", err)
		}
	}()
}
