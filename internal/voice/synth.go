package voice

import (
	"context"
	"fmt"
	"os/exec"
)

// EdgeSynthesizer shells out to the edge-tts CLI. Best-effort: if the binary
// is missing the session loop runs the assistant silent.
type EdgeSynthesizer struct {
	Bin   string // defaults to "edge-tts"
	Voice string
	Pitch string
	Rate  string
}

func NewEdgeSynthesizer(voice string) *EdgeSynthesizer {
	return &EdgeSynthesizer{
		Bin:   "edge-tts",
		Voice: voice,
		Pitch: "+5Hz",
		Rate:  "+13%",
	}
}

// Available reports whether the synthesis binary can be found.
func (s *EdgeSynthesizer) Available() bool {
	_, err := exec.LookPath(s.bin())
	return err == nil
}

func (s *EdgeSynthesizer) bin() string {
	if s.Bin == "" {
		return "edge-tts"
	}
	return s.Bin
}

func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, destPath string) error {
	cmd := exec.CommandContext(ctx, s.bin(),
		"--voice", s.Voice,
		"--pitch", s.Pitch,
		"--rate", s.Rate,
		"--text", text,
		"--write-media", destPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("edge-tts: %w: %s", err, out)
	}
	return nil
}
