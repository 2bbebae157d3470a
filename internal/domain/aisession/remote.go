package aisession

import (
	"context"

	apperrors "github.com/yanqian/todoc/pkg/errors"
)

// RemoteAPI reads the server's chat history.
type RemoteAPI interface {
	ListSessions(ctx context.Context) ([]Session, error)
	GetSession(ctx context.Context, id string) (Session, bool, error)
}

// Remote is the server-backed Store. The server persists sessions while
// answering chats, so Upsert has nothing to do.
type Remote struct {
	api RemoteAPI
}

// NewRemote builds a Store over the server's history.
func NewRemote(api RemoteAPI) *Remote {
	return &Remote{api: api}
}

func (r *Remote) List(ctx context.Context) ([]Session, error) {
	list, err := r.api.ListSessions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, "대화 목록을 불러오지 못했어요.", err)
	}
	return list, nil
}

func (r *Remote) Get(ctx context.Context, id string) (Session, bool, error) {
	if id == "" || (Session{ID: id}).Local() {
		return Session{}, false, nil
	}
	s, ok, err := r.api.GetSession(ctx, id)
	if err != nil {
		return Session{}, false, apperrors.Wrap(apperrors.CodeUpstream, "대화를 불러오지 못했어요.", err)
	}
	if !ok {
		return Session{}, false, nil
	}
	bubble := LookupMode(string(s.Mode)).Bubble
	for i := range s.Messages {
		if s.Messages[i].Sender == SenderAI && s.Messages[i].Background == "" {
			s.Messages[i].Background = bubble
		}
	}
	return s, true, nil
}

func (r *Remote) Upsert(context.Context, Session) error {
	return nil
}

func (r *Remote) Delete(context.Context, string) error {
	return apperrors.Wrap(apperrors.CodeUnsupported, "server sessions cannot be deleted", nil)
}
