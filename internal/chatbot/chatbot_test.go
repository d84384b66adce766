package chatbot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aura-v0/internal/llm"
	"aura-v0/internal/state"
)

type fakeStore struct {
	history  []state.Message
	appended []state.Message
	loadErr  error
}

func (f *fakeStore) LoadTranscript() ([]state.Message, error) {
	return f.history, f.loadErr
}

func (f *fakeStore) AppendTranscript(msgs ...state.Message) error {
	f.appended = append(f.appended, msgs...)
	return nil
}

type fakeChat struct {
	got   []llm.Message
	reply string
	err   error
}

func (f *fakeChat) Chat(ctx context.Context, model string, messages []llm.Message) (string, error) {
	f.got = messages
	return f.reply, f.err
}

func newService(store *fakeStore, chat *fakeChat) *Service {
	return &Service{
		Store:         store,
		Chat:          chat,
		Model:         "llama3.1:8b",
		UserName:      "Oliver",
		AssistantName: "Aura",
		Log:           zap.NewNop().Sugar(),
	}
}

func TestReply_ThreadsHistoryAndPersists(t *testing.T) {
	store := &fakeStore{history: []state.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}}
	chat := &fakeChat{reply: "Go is a programming language.\n\n"}
	s := newService(store, chat)

	out, err := s.Reply(context.Background(), "what is go")
	require.NoError(t, err)
	require.Equal(t, "Go is a programming language.", out)

	// system + 2 history + current query
	require.Len(t, chat.got, 4)
	require.Equal(t, llm.RoleSystem, chat.got[0].Role)
	require.Equal(t, "what is go", chat.got[3].Content)

	require.Equal(t, []state.Message{
		{Role: "user", Content: "what is go"},
		{Role: "assistant", Content: "Go is a programming language."},
	}, store.appended)
}

func TestReply_BackendErrorPropagates(t *testing.T) {
	store := &fakeStore{}
	chat := &fakeChat{err: errors.New("connection refused")}
	s := newService(store, chat)

	_, err := s.Reply(context.Background(), "hello")
	require.Error(t, err)
	require.Empty(t, store.appended, "failed turn must not be persisted")
}

func TestReply_EmptyAnswerFallsBack(t *testing.T) {
	s := newService(&fakeStore{}, &fakeChat{reply: "  </s> \n"})
	out, err := s.Reply(context.Background(), "hm")
	require.NoError(t, err)
	require.Equal(t, fallbackReply, out)
}

func TestReply_LoadErrorStartsEmpty(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("locked")}
	chat := &fakeChat{reply: "ok"}
	s := newService(store, chat)

	out, err := s.Reply(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
	require.Len(t, chat.got, 2, "system prompt + query only")
}
