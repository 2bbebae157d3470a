package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/domain/auth"
	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	"github.com/yanqian/todoc/internal/infra/config"
	"github.com/yanqian/todoc/internal/infra/todocapi"
	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
)

var kst = time.FixedZone("KST", 9*60*60)

const testToday = "2026-01-26"

func TestRouter_RequiresBearerToken(t *testing.T) {
	rt := newRouterUnderTest(t)

	rec := performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/days/2026-01-26", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, apperrors.CodeUnauthorized, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rt.auth.err = apperrors.Wrap(apperrors.CodeUnauthorized, "token expired", nil)
	rec = performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/days/2026-01-26", "", "alice")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_GetDayForwardsToken(t *testing.T) {
	rt := newRouterUnderTest(t)
	rt.days.fetch = func(ctx context.Context, kidID int64, date string) (record.Day, error) {
		token, ok := auth.TokenFromContext(ctx)
		require.True(t, ok)
		require.Equal(t, "alice", token)
		return record.Day{KidID: kidID, Date: date, Today: date == testToday}, nil
	}

	rec := performRequest(rt.server, http.MethodGet, "/api/v1/kids/3/days/2026-01-26", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, float64(3), got["kid_id"])
	require.Equal(t, "2026-01-26", got["date"])
	require.Equal(t, true, got["today"])
}

func TestRouter_GetDayErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "expired session wrapped by aggregator",
			err:    apperrors.Wrap(apperrors.CodeUpstream, "기록을 불러오지 못했어요.", apperrors.Wrap(apperrors.CodeUnauthorized, "로그인이 만료되었어요.", nil)),
			status: http.StatusUnauthorized,
			code:   apperrors.CodeUnauthorized,
		},
		{
			name:   "upstream outage",
			err:    apperrors.Wrap(apperrors.CodeUpstream, "기록을 불러오지 못했어요.", errors.New("502")),
			status: http.StatusBadGateway,
			code:   apperrors.CodeUpstream,
		},
		{
			name:   "bad date",
			err:    apperrors.Wrap(apperrors.CodeInvalidInput, "date must be YYYY-MM-DD", nil),
			status: http.StatusBadRequest,
			code:   apperrors.CodeInvalidInput,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newRouterUnderTest(t)
			rt.days.fetch = func(context.Context, int64, string) (record.Day, error) { return record.Day{}, tc.err }

			rec := performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/days/2026-01-26", "", "alice")
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
		})
	}
}

func TestRouter_GetMonthView(t *testing.T) {
	rt := newRouterUnderTest(t)

	rec := performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/months/2026/1?selected=2026-01-05", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var view calendar.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "2026년 1월", view.Label)
	require.Len(t, view.Cells, 31)
	require.Equal(t, calendar.StatusRecorded, view.Cells[4].Status)
	require.True(t, view.Cells[4].IsSelected)
	require.Equal(t, calendar.StatusEmpty, view.Cells[5].Status)
	require.Equal(t, calendar.StatusUnknown, view.Cells[29].Status)
	require.True(t, view.Cells[25].IsToday)

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/months/2026/1?selected=2026-01-30", "", "alice")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/months/2026/13", "", "alice")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CreateAndUpdateRecord(t *testing.T) {
	rt := newRouterUnderTest(t)
	body := `{"date":"26.01.26","time":"18:05","diaper_type":"소변","amount":"많음"}`

	rec := performRequest(rt.server, http.MethodPost, "/api/v1/kids/7/records/diaper", body, "alice")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, rt.writer.created, 1)
	created := rt.writer.created[0].(*record.DiaperRecord)
	require.Equal(t, int64(7), created.KidID)
	require.Equal(t, "urine", created.DiaperType)
	require.Equal(t, "2026-01-26", created.RecordDate)

	rec = performRequest(rt.server, http.MethodPatch, "/api/v1/kids/7/records/diaper/55", body, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rt.writer.updated, 1)
	require.Equal(t, int64(55), rt.writer.updated[0].Base().ID)

	rec = performRequest(rt.server, http.MethodPost, "/api/v1/kids/7/records/bath", body, "alice")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(rt.server, http.MethodPost, "/api/v1/kids/7/records/diaper", `{"date":"26.01.26"}`, "alice")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apperrors.CodeInvalidInput, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_WriteFailureIsUpstream(t *testing.T) {
	rt := newRouterUnderTest(t)
	rt.writer.err = &todocapi.StatusError{Operation: "records.create", Status: http.StatusInternalServerError}

	rec := performRequest(rt.server, http.MethodPost, "/api/v1/kids/7/records/etc", `{"date":"26.01.26","title":"첫 뒤집기"}`, "alice")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, apperrors.CodeUpstream, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_DeleteRecord(t *testing.T) {
	rt := newRouterUnderTest(t)

	rec := performRequest(rt.server, http.MethodDelete, "/api/v1/kids/7/records/9", "", "alice")
	require.Equal(t, http.StatusConflict, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, apperrors.CodeConfirmationRequired, errBody["error"]["code"])
	require.Equal(t, record.DeletePrompt, errBody["error"]["message"])
	require.Empty(t, rt.writer.deleted)

	rec = performRequest(rt.server, http.MethodDelete, "/api/v1/kids/7/records/9?confirm=true", "", "alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []int64{9}, rt.writer.deleted)

	rec = performRequest(rt.server, http.MethodDelete, "/api/v1/kids/7/records/10?confirm=true&date=2026-01-26", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var day map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.Equal(t, "2026-01-26", day["date"])

	rt.writer.err = errors.New("connection reset")
	rec = performRequest(rt.server, http.MethodDelete, "/api/v1/kids/7/records/11?confirm=true", "", "alice")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, apperrors.CodeDeleteFailed, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_Intents(t *testing.T) {
	rt := newRouterUnderTest(t)

	raw := `{"id":31,"kid_id":7,"record_type":"diaper","record_date":"2026-01-25","diaper_type":"urine","diaper_datetime":"2026-01-25T09:30:00"}`
	rec := performRequest(rt.server, http.MethodPost, "/api/v1/records/edit-intent", raw, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var edit struct {
		Intent intentBody      `json:"intent"`
		Form   json.RawMessage `json:"form"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edit))
	require.Equal(t, "/record/diaper/add?date=2026-01-25&edit=31", edit.Intent.Route)
	require.True(t, edit.Intent.Edit)
	require.Contains(t, string(edit.Intent.Seed), `"diaper_type":"urine"`)
	require.Contains(t, string(edit.Form), `"diaper_type":"소변"`)

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/records/sleep/new-intent?date=2026-01-20", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var add struct {
		Intent intentBody `json:"intent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &add))
	require.Equal(t, "/record/sleep/add?date=2026-01-20", add.Intent.Route)
	require.False(t, add.Intent.Edit)
	require.Empty(t, add.Intent.Seed)
}

type intentBody struct {
	Route string          `json:"route"`
	Edit  bool            `json:"edit"`
	Seed  json.RawMessage `json:"seed"`
}

func TestRouter_ChatSessionsAreScopedPerUser(t *testing.T) {
	rt := newRouterUnderTest(t)
	rt.chat.reply = aisession.ChatReply{Reply: "미지근한 물로 닦아 주세요.", SessionID: "42", Title: "열"}

	rec := performRequest(rt.server, http.MethodPost, "/api/v1/ai/chat", `{"mode":"doctor","message":"열이 나요","kid_id":7}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var session aisession.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Equal(t, "42", session.ID)
	require.Len(t, session.Messages, 3)
	require.Equal(t, int64(7), *rt.chat.last.KidID)

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/ai/sessions", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Sessions []aisession.Session `json:"sessions"`
		Total    int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/ai/sessions", "", "bob")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 0, list.Total)

	rec = performRequest(rt.server, http.MethodPost, "/api/v1/ai/chat", `{"mode":"doctor","message":"해열제는요?","session_id":"42"}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "42", rt.chat.last.SessionID)
	require.Len(t, rt.chat.last.History, 4)

	rec = performRequest(rt.server, http.MethodDelete, "/api/v1/ai/sessions/42", "", "alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = performRequest(rt.server, http.MethodGet, "/api/v1/ai/sessions/42", "", "alice")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ChatFailure(t *testing.T) {
	rt := newRouterUnderTest(t)
	rt.chat.err = errors.New("timeout")

	rec := performRequest(rt.server, http.MethodPost, "/api/v1/ai/chat", `{"mode":"mom","message":"잠을 안 자요"}`, "alice")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, apperrors.CodeChatFailed, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(rt.server, http.MethodGet, "/api/v1/ai/sessions", "", "alice")
	require.Contains(t, rec.Body.String(), `"total":0`)
}

func TestRouter_PutSessionAndServerSource(t *testing.T) {
	rt := newRouterUnderTest(t)

	rec := performRequest(rt.server, http.MethodPut, "/api/v1/ai/sessions/local-1", `{"mode":"nutrition","title":"이유식"}`, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = performRequest(rt.server, http.MethodGet, "/api/v1/ai/sessions/local-1", "", "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"이유식"`)

	rec = performRequest(rt.server, http.MethodDelete, "/api/v1/ai/sessions/5?source=server", "", "alice")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apperrors.CodeUnsupported, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	rt := newRouterUnderTest(t)

	rec := performRequest(rt.server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performRequest(rt.server, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "todoc_session_cache_corrupt_total")
}

func TestRouter_PreflightSkipsAuth(t *testing.T) {
	rt := newRouterUnderTest(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/kids", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	rt.server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithRetry_ReplaysLocalReadsOnly(t *testing.T) {
	var calls int
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	cfg := config.RetryConfig{Enabled: true, MaxAttempts: 2, BaseBackoff: time.Millisecond}
	handler := withRetry(flaky, cfg, servedLocally("/metrics"), newTestLogger())

	cases := []struct {
		method string
		target string
		calls  int
		status int
	}{
		{http.MethodGet, "/api/v1/ai/sessions", 2, http.StatusOK},
		{http.MethodGet, "/api/v1/ai/sessions/77", 2, http.StatusOK},
		{http.MethodGet, "/healthz", 2, http.StatusOK},
		{http.MethodGet, "/api/v1/ai/sessions?source=server", 1, http.StatusInternalServerError},
		{http.MethodGet, "/api/v1/kids", 1, http.StatusInternalServerError},
		{http.MethodGet, "/api/v1/kids/1/days/2026-01-26", 1, http.StatusInternalServerError},
		{http.MethodGet, "/api/v1/kids/1/months/2026/1", 1, http.StatusInternalServerError},
		{http.MethodDelete, "/api/v1/ai/sessions/77", 1, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			calls = 0
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.calls, calls)
		})
	}
}

func TestRouter_FailedDayIsFetchedOnce(t *testing.T) {
	rt := newRouterUnderTest(t, func(cfg *config.Config) {
		cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, BaseBackoff: time.Millisecond}
	})
	var fetches int
	rt.days.fetch = func(context.Context, int64, string) (record.Day, error) {
		fetches++
		return record.Day{}, apperrors.Wrap(apperrors.CodeUpstream, "기록을 불러오지 못했어요.", errors.New("503"))
	}

	rec := performRequest(rt.server, http.MethodGet, "/api/v1/kids/1/days/2026-01-26", "", "alice")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, 1, fetches)
}

func TestIPRateLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2}, func() time.Time { return now })

	require.True(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.1"))
	require.False(t, limiter.allow("10.0.0.1"))
	require.True(t, limiter.allow("10.0.0.2"))

	now = now.Add(time.Second)
	require.True(t, limiter.allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	require.True(t, limiter.allow("10.0.0.2"))
	require.Len(t, limiter.visitors, 1)
}

func performRequest(server *http.Server, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

type routerUnderTest struct {
	server *http.Server
	auth   *stubAuth
	days   *stubDays
	writer *stubWriter
	chat   *stubChat
}

func newRouterUnderTest(t *testing.T, opts ...func(*config.Config)) *routerUnderTest {
	t.Helper()
	logger := newTestLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	rt := &routerUnderTest{
		auth:   &stubAuth{},
		days:   &stubDays{},
		writer: &stubWriter{},
		chat:   &stubChat{},
	}
	months := &stubMonths{dates: map[string]bool{"2026-01-05": true, "2026-01-06": false}}
	cache := aisession.NewCache(newMemKV(), "", m, logger)
	chat := aisession.NewChatService(rt.chat, logger)
	remote := aisession.NewRemote(stubRemote{})

	handler := NewHandler(rt.days, months, rt.writer, stubKids{}, logger)
	sessions := NewSessionHandler(cache, remote, chat, logger)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:        ":0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	rt.server = NewRouter(cfg, handler, sessions, rt.auth, reg, logger)
	return rt
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

// stubAuth treats the bearer token as the subject.
type stubAuth struct {
	err error
}

func (s *stubAuth) Inspect(_ context.Context, token string) (auth.Claims, error) {
	if s.err != nil {
		return auth.Claims{}, s.err
	}
	return auth.Claims{Subject: token, TokenType: "access"}, nil
}

type stubDays struct {
	fetch func(ctx context.Context, kidID int64, date string) (record.Day, error)
}

func (s *stubDays) FetchDay(ctx context.Context, kidID int64, date string) (record.Day, error) {
	if s.fetch != nil {
		return s.fetch(ctx, kidID, date)
	}
	return record.Day{KidID: kidID, Date: date}, nil
}

func (s *stubDays) Location() *time.Location { return kst }

type stubMonths struct {
	dates map[string]bool
}

func (s *stubMonths) FetchMonth(_ context.Context, kidID int64, month calendar.Month) (calendar.MonthMap, error) {
	return calendar.BuildMonthMap(kidID, month, s.dates, testToday), nil
}

func (s *stubMonths) Today() string { return testToday }

type stubWriter struct {
	mu      sync.Mutex
	created []record.Record
	updated []record.Record
	deleted []int64
	err     error
}

func (s *stubWriter) CreateRecord(_ context.Context, _ int64, rec record.Record) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, rec)
	return rec, nil
}

func (s *stubWriter) UpdateRecord(_ context.Context, _ int64, rec record.Record) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.updated = append(s.updated, rec)
	return rec, nil
}

func (s *stubWriter) DeleteRecord(_ context.Context, _ int64, recordID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, recordID)
	return nil
}

type stubKids struct{}

func (stubKids) Kids(context.Context) ([]todocapi.Kid, error) {
	return []todocapi.Kid{{ID: 7, Name: "하루"}}, nil
}

type stubChat struct {
	reply aisession.ChatReply
	err   error
	last  aisession.ChatRequest
}

func (s *stubChat) Chat(_ context.Context, req aisession.ChatRequest) (aisession.ChatReply, error) {
	s.last = req
	return s.reply, s.err
}

type stubRemote struct{}

func (stubRemote) ListSessions(context.Context) ([]aisession.Session, error) {
	return []aisession.Session{}, nil
}

func (stubRemote) GetSession(context.Context, string) (aisession.Session, bool, error) {
	return aisession.Session{}, false, nil
}

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
