package aisession

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	apperrors "github.com/yanqian/todoc/pkg/errors"
)

const (
	titleRunes   = 30
	snippetRunes = 80
	noReplyText  = "응답을 받지 못했어요."
)

// HistoryItem is one prior message as the chat endpoint expects it.
type HistoryItem struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// ChatRequest is sent to the chat endpoint.
type ChatRequest struct {
	Mode      Mode
	Message   string
	History   []HistoryItem
	KidID     *int64
	SessionID string
}

// ChatReply is the chat endpoint's answer. Empty fields were not returned.
type ChatReply struct {
	Reply           string
	SessionID       string
	Title           string
	QuestionSnippet string
	DateLabel       string
}

// ChatAPI answers one chat turn.
type ChatAPI interface {
	Chat(ctx context.Context, req ChatRequest) (ChatReply, error)
}

// ChatService runs chat turns and records them in a Store.
type ChatService struct {
	api    ChatAPI
	now    func() time.Time
	logger *slog.Logger
}

// NewChatService wires the chat endpoint.
func NewChatService(api ChatAPI, logger *slog.Logger) *ChatService {
	return &ChatService{
		api:    api,
		now:    time.Now,
		logger: logger.With("component", "aisession.chat"),
	}
}

// WithClock replaces the wall clock.
func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

// Open resumes sessionID from store, or starts a conversation in mode with
// the mode's intro message.
func (s *ChatService) Open(ctx context.Context, store Store, mode, sessionID string) (Session, error) {
	if sessionID != "" {
		saved, ok, err := store.Get(ctx, sessionID)
		if err != nil {
			return Session{}, err
		}
		if ok && len(saved.Messages) > 0 {
			return saved, nil
		}
	}
	info := LookupMode(mode)
	return Session{
		ID:   sessionID,
		Mode: info.ID,
		Messages: []Message{{
			ID:         "intro-" + string(info.ID),
			Sender:     SenderAI,
			Text:       info.Intro,
			Background: info.Bubble,
		}},
	}, nil
}

// Send appends text and the reply to session and upserts the result. A failed
// call leaves store untouched.
func (s *ChatService) Send(ctx context.Context, store Store, session Session, text string, kidID *int64) (Session, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return session, apperrors.Wrap(apperrors.CodeInvalidInput, "메시지를 입력해 주세요.", nil)
	}
	info := LookupMode(string(session.Mode))
	userMsg := Message{ID: "u-" + ulid.Make().String(), Sender: SenderUser, Text: text}

	history := make([]HistoryItem, 0, len(session.Messages)+1)
	for _, m := range session.Messages {
		history = append(history, HistoryItem{Sender: m.Sender, Message: m.Text})
	}
	history = append(history, HistoryItem{Sender: userMsg.Sender, Message: userMsg.Text})

	reply, err := s.api.Chat(ctx, ChatRequest{
		Mode:      info.ID,
		Message:   text,
		History:   history,
		KidID:     kidID,
		SessionID: session.ID,
	})
	if err != nil {
		s.logger.Warn("chat request failed", "mode", info.ID, "session_id", session.ID, "error", err)
		return session, apperrors.Wrap(apperrors.CodeChatFailed, "AI 응답을 받지 못했어요.", err)
	}

	answer := strings.TrimSpace(reply.Reply)
	if answer == "" {
		answer = noReplyText
	}
	next := Session{
		ID:              firstNonEmpty(reply.SessionID, session.ID, fmt.Sprintf("%s%d", localPrefix, s.now().UnixMilli())),
		Mode:            info.ID,
		Title:           firstNonEmpty(reply.Title, truncateRunes(text, titleRunes)),
		QuestionSnippet: firstNonEmpty(reply.QuestionSnippet, truncateRunes(text, snippetRunes)),
		DateLabel:       reply.DateLabel,
		KidID:           kidID,
		Messages:        make([]Message, 0, len(session.Messages)+2),
	}
	if next.KidID == nil {
		next.KidID = session.KidID
	}
	next.Messages = append(next.Messages, session.Messages...)
	next.Messages = append(next.Messages, userMsg, Message{
		ID:         "ai-" + ulid.Make().String(),
		Sender:     SenderAI,
		Text:       answer,
		Background: info.Bubble,
	})

	if err := store.Upsert(ctx, next); err != nil {
		s.logger.Warn("session cache write failed", "session_id", next.ID, "error", err)
	}
	return next, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
