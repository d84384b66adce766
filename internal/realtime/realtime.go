package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aura-v0/internal/chatbot"
	"aura-v0/internal/llm"
	"aura-v0/internal/state"
	"aura-v0/internal/websense"
)

// Service answers queries that need live data: it scrapes the top search
// results, hands them to the chat backend as evidence and persists the turn.
type Service struct {
	Store         chatbot.TranscriptStore
	Chat          llm.Chatter
	Model         string
	AssistantName string
	Log           *zap.SugaredLogger

	// Overridable for tests; default to the websense package.
	SearchFn func(ctx context.Context, query string, k int) ([]websense.SearchResult, error)
	FetchFn  func(ctx context.Context, url string) (*websense.FetchResult, error)
}

const (
	resultCount   = 3
	searchTimeout = 10 * time.Second
	fallbackReply = "I'm experiencing technical difficulties. Please try again later."
)

func (s *Service) systemPrompt() string {
	return fmt.Sprintf(`You are %s, an AI assistant with real-time information access.
- Provide professional, well-formatted answers.
- Use proper grammar and punctuation.
- Prefer the latest information available.`, s.AssistantName)
}

// Answer runs one web-augmented turn. Search failure degrades to answering
// from general knowledge; only a chat-backend failure is an error.
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	evidence := s.gatherEvidence(ctx, query)

	history, err := s.Store.LoadTranscript()
	if err != nil {
		s.Log.Warnw("transcript load failed, starting empty", "err", err)
		history = nil
	}

	msgs := make([]llm.Message, 0, len(history)+4)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt()},
		llm.Message{Role: llm.RoleSystem, Content: clockBlock(time.Now())},
		llm.Message{Role: llm.RoleSystem, Content: evidence},
	)
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

// gatherEvidence searches and enriches the top results with page snippets.
// Fetches run concurrently; any individual failure just loses that snippet.
func (s *Service) gatherEvidence(ctx context.Context, query string) string {
	search := s.SearchFn
	if search == nil {
		search = websense.Search
	}
	fetch := s.FetchFn
	if fetch == nil {
		fetch = websense.Fetch
	}

	sctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := search(sctx, query, resultCount)
	if err != nil {
		s.Log.Debugw("search failed", "err", err)
		return "No search results are available at this time."
	}
	if len(results) == 0 {
		return websense.FormatResults(nil)
	}

	g, gctx := errgroup.WithContext(sctx)
	for i := range results {
		if results[i].Snippet != "" {
			continue
		}
		g.Go(func() error {
			fr, err := fetch(gctx, results[i].URL)
			if err != nil {
				s.Log.Debugw("fetch failed", "url", results[i].URL, "err", err)
				return nil
			}
			results[i].Snippet = fr.Snippet
			return nil
		})
	}
	_ = g.Wait()

	return websense.FormatResults(results)
}

func clockBlock(now time.Time) string {
	return now.Format("02 January 2006") + "\n" + now.Format("15:04:05 MST")
}

// cleanResponse removes empty lines and stray diagnostics from model output.
func cleanResponse(answer string) string {
	banned := []string{
		"err:", "[", "warning:", "api request failed", "image not found",
		"successfully generated", "no images", "failed to generate", "error:",
	}
	var lines []string
outer:
	for _, line := range strings.Split(strings.TrimSpace(answer), "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		low := strings.ToLower(t)
		for _, b := range banned {
			if strings.HasPrefix(low, b) {
				continue outer
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
