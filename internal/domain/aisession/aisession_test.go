package aisession

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubChat struct {
	reply ChatReply
	err   error
	last  ChatRequest
}

func (s *stubChat) Chat(_ context.Context, req ChatRequest) (ChatReply, error) {
	s.last = req
	return s.reply, s.err
}

type stubRemote struct {
	sessions map[string]Session
}

func (s *stubRemote) ListSessions(context.Context) ([]Session, error) {
	out := make([]Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		out = append(out, v)
	}
	return out, nil
}

func (s *stubRemote) GetSession(_ context.Context, id string) (Session, bool, error) {
	v, ok := s.sessions[id]
	return v, ok, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(kv KV) (*Cache, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewCache(kv, "", m, testLogger()), m
}

func TestUpsertReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())

	require.NoError(t, cache.Upsert(ctx, Session{ID: "1", Title: "first"}))
	require.NoError(t, cache.Upsert(ctx, Session{ID: "2", Title: "second"}))
	require.NoError(t, cache.Upsert(ctx, Session{ID: "1", Title: "first again"}))

	list, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "2", list[0].ID)
	require.Equal(t, "first again", list[1].Title)

	err = cache.Upsert(ctx, Session{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestCorruptCacheReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[DefaultKey] = []byte("{not json")
	cache, m := newTestCache(kv)

	list, err := cache.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, 1.0, testutil.ToFloat64(m.CorruptSessions))

	require.NoError(t, cache.Upsert(ctx, Session{ID: "1"}))
	list, err = cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCacheStoreErrors(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk")
	cache, _ := newTestCache(kv)
	_, err := cache.List(context.Background())
	require.True(t, apperrors.IsCode(err, apperrors.CodeStore))
}

func TestScopedCachesAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	cache, _ := newTestCache(kv)
	alice, bob := cache.Scoped("alice"), cache.Scoped("bob")

	require.NoError(t, alice.Upsert(ctx, Session{ID: "1"}))
	list, err := bob.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, DefaultKey+":alice", alice.Key())
	require.Same(t, cache, cache.Scoped(""))
}

func TestDeleteRemovesKeyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	cache, _ := newTestCache(kv)
	require.NoError(t, cache.Upsert(ctx, Session{ID: "1"}))
	require.NoError(t, cache.Upsert(ctx, Session{ID: "2"}))

	require.NoError(t, cache.Delete(ctx, "1"))
	_, ok, err := cache.Get(ctx, "1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Delete(ctx, "missing"))
	require.NoError(t, cache.Delete(ctx, "2"))
	_, exists := kv.data[DefaultKey]
	require.False(t, exists)
}

func TestConcurrentUpsertsKeepEverySession(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- cache.Upsert(ctx, Session{ID: string(rune('a' + i))})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	list, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 20)
}

func TestOpenStartsWithIntro(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())
	svc := NewChatService(&stubChat{}, testLogger())

	s, err := svc.Open(ctx, cache, "doctor", "")
	require.NoError(t, err)
	require.Equal(t, ModeDoctor, s.Mode)
	require.Len(t, s.Messages, 1)
	require.Equal(t, "intro-doctor", s.Messages[0].ID)
	require.Equal(t, "#D5E9F0", s.Messages[0].Background)

	s, err = svc.Open(ctx, cache, "unknown", "")
	require.NoError(t, err)
	require.Equal(t, ModeMom, s.Mode)
}

func TestSendUpsertsWithServerFields(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())
	api := &stubChat{reply: ChatReply{Reply: "괜찮아요", SessionID: "42", Title: "열", DateLabel: "1월 26일"}}
	svc := NewChatService(api, testLogger())
	kid := int64(7)

	s, err := svc.Open(ctx, cache, "doctor", "")
	require.NoError(t, err)
	s, err = svc.Send(ctx, cache, s, "아이가 열이 나요", &kid)
	require.NoError(t, err)

	require.Equal(t, "42", s.ID)
	require.Equal(t, "열", s.Title)
	require.Equal(t, "아이가 열이 나요", s.QuestionSnippet)
	require.Len(t, s.Messages, 3)
	require.Equal(t, SenderUser, s.Messages[1].Sender)
	require.Equal(t, "괜찮아요", s.Messages[2].Text)
	require.Len(t, api.last.History, 2)
	require.Equal(t, ModeDoctor, api.last.Mode)

	s, err = svc.Send(ctx, cache, s, "해열제는요?", &kid)
	require.NoError(t, err)
	require.Equal(t, "42", api.last.SessionID)

	list, err := cache.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Messages, 5)

	resumed, err := svc.Open(ctx, cache, "mom", "42")
	require.NoError(t, err)
	require.Equal(t, s, resumed)
}

func TestSendWithoutServerIDUsesLocalID(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())
	now := time.UnixMilli(1769425200000)
	svc := NewChatService(&stubChat{reply: ChatReply{}}, testLogger()).WithClock(func() time.Time { return now })

	long := "가나다라마바사아자차카타파하가나다라마바사아자차카타파하가나다라마바사"
	s, err := svc.Send(ctx, cache, Session{Mode: ModeNutrition}, long, nil)
	require.NoError(t, err)
	require.Equal(t, "local-1769425200000", s.ID)
	require.True(t, s.Local())
	require.Equal(t, "응답을 받지 못했어요.", s.Messages[1].Text)
	require.Equal(t, 30, len([]rune(s.Title)))
}

func TestSendFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(newMemKV())
	svc := NewChatService(&stubChat{err: errors.New("timeout")}, testLogger())

	before := Session{ID: "9", Mode: ModeMom}
	s, err := svc.Send(ctx, cache, before, "hi", nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeChatFailed))
	require.Equal(t, before, s)

	list, err := cache.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.Send(ctx, cache, before, "   ", nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestRemoteStore(t *testing.T) {
	ctx := context.Background()
	remote := NewRemote(&stubRemote{sessions: map[string]Session{
		"5": {ID: "5", Mode: ModeNutrition, Messages: []Message{{ID: "1", Sender: SenderAI, Text: "hi"}}},
	}})

	s, ok, err := remote.Get(ctx, "5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#DEEFCF", s.Messages[0].Background)

	_, ok, err = remote.Get(ctx, "local-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, remote.Upsert(ctx, s))
	require.True(t, apperrors.IsCode(remote.Delete(ctx, "5"), apperrors.CodeUnsupported))
}
