package chatbot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"aura-v0/internal/llm"
	"aura-v0/internal/state"
)

// TranscriptStore is the persisted chat log the service appends to. It is
// injected; the service never owns the transcript.
type TranscriptStore interface {
	LoadTranscript() ([]state.Message, error)
	AppendTranscript(msgs ...state.Message) error
}

// Service answers general conversational queries through the chat backend,
// threading the persisted transcript through every call.
type Service struct {
	Store         TranscriptStore
	Chat          llm.Chatter
	Model         string
	UserName      string
	AssistantName string
	Log           *zap.SugaredLogger
}

const fallbackReply = "Sorry, I couldn't generate a response. Please try again."

func (s *Service) systemPrompt() string {
	return fmt.Sprintf(`Hello, I am %s. You are %s, an accurate AI assistant with real-time information.
- Answer questions concisely
- Reply only in English
- No unnecessary notes or training data mentions`, s.UserName, s.AssistantName)
}

// Reply runs one conversational turn. A backend failure is returned as an
// error; transcript persistence failures are logged and swallowed so a broken
// disk never mutes the assistant.
func (s *Service) Reply(ctx context.Context, query string) (string, error) {
	history, err := s.Store.LoadTranscript()
	if err != nil {
		s.Log.Warnw("transcript load failed, starting empty", "err", err)
		history = nil
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt()})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: query})

	answer, err := s.Chat.Chat(ctx, s.Model, msgs)
	if err != nil {
		return "", fmt.Errorf("chat backend: %w", err)
	}

	answer = cleanResponse(answer)
	if answer == "" {
		answer = fallbackReply
	}

	if err := s.Store.AppendTranscript(
		state.Message{Role: llm.RoleUser, Content: query},
		state.Message{Role: llm.RoleAssistant, Content: answer},
	); err != nil {
		s.Log.Warnw("transcript append failed", "err", err)
	}

	return answer, nil
}

// cleanResponse drops stop tokens and empty lines from the model output.
func cleanResponse(answer string) string {
	answer = strings.TrimSpace(strings.ReplaceAll(answer, "</s>", ""))
	var lines []string
	for _, line := range strings.Split(answer, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
