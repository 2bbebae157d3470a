package todocapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yanqian/todoc/internal/domain/aisession"
	apperrors "github.com/yanqian/todoc/pkg/errors"
)

type chatRequest struct {
	Mode      string                  `json:"mode"`
	Message   string                  `json:"message"`
	History   []aisession.HistoryItem `json:"history"`
	KidID     *int64                  `json:"kid_id"`
	SessionID *int64                  `json:"session_id"`
}

type chatResponse struct {
	Reply           string  `json:"reply"`
	SessionID       *int64  `json:"session_id"`
	Mode            string  `json:"mode"`
	DateLabel       string  `json:"date_label"`
	Title           *string `json:"title"`
	QuestionSnippet *string `json:"question_snippet"`
}

// Chat sends one turn to the AI endpoint. Locally minted session ids are not
// forwarded; the server only knows numeric ids.
func (c *Client) Chat(ctx context.Context, req aisession.ChatRequest) (aisession.ChatReply, error) {
	body := chatRequest{
		Mode:    string(req.Mode),
		Message: req.Message,
		History: req.History,
		KidID:   req.KidID,
	}
	if body.History == nil {
		body.History = []aisession.HistoryItem{}
	}
	if id, err := strconv.ParseInt(req.SessionID, 10, 64); err == nil {
		body.SessionID = &id
	}
	var out chatResponse
	if err := c.do(ctx, "ai.chat", http.MethodPost, "/ai/chat", nil, body, &out); err != nil {
		return aisession.ChatReply{}, err
	}
	reply := aisession.ChatReply{Reply: out.Reply, DateLabel: out.DateLabel}
	if out.SessionID != nil {
		reply.SessionID = strconv.FormatInt(*out.SessionID, 10)
	}
	if out.Title != nil {
		reply.Title = *out.Title
	}
	if out.QuestionSnippet != nil {
		reply.QuestionSnippet = *out.QuestionSnippet
	}
	return reply, nil
}

type sessionSummary struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	QuestionSnippet string `json:"question_snippet"`
	DateLabel       string `json:"date_label"`
	Mode            string `json:"mode"`
	KidID           *int64 `json:"kid_id"`
}

func (s sessionSummary) session() aisession.Session {
	return aisession.Session{
		ID:              strconv.FormatInt(s.ID, 10),
		Mode:            aisession.LookupMode(s.Mode).ID,
		Title:           s.Title,
		QuestionSnippet: s.QuestionSnippet,
		DateLabel:       s.DateLabel,
		KidID:           s.KidID,
		Messages:        []aisession.Message{},
	}
}

type sessionMessage struct {
	ID      *int64 `json:"id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type sessionDetail struct {
	Session  sessionSummary   `json:"session"`
	Messages []sessionMessage `json:"messages"`
}

// ListSessions returns the server's chat history summaries, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]aisession.Session, error) {
	var out []sessionSummary
	if err := c.do(ctx, "ai.sessions", http.MethodGet, "/ai/sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	list := make([]aisession.Session, 0, len(out))
	for _, s := range out {
		list = append(list, s.session())
	}
	return list, nil
}

// GetSession returns one session with its messages. Unknown ids report false.
func (c *Client) GetSession(ctx context.Context, id string) (aisession.Session, bool, error) {
	var out sessionDetail
	if err := c.do(ctx, "ai.session", http.MethodGet, "/ai/sessions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return aisession.Session{}, false, nil
		}
		return aisession.Session{}, false, err
	}
	s := out.Session.session()
	for i, m := range out.Messages {
		msgID := strconv.Itoa(i)
		if m.ID != nil {
			msgID = strconv.FormatInt(*m.ID, 10)
		}
		s.Messages = append(s.Messages, aisession.Message{ID: msgID, Sender: m.Sender, Text: m.Content})
	}
	return s, true, nil
}
