package todocapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/yanqian/todoc/internal/domain/aisession"
	"github.com/yanqian/todoc/internal/domain/auth"
	"github.com/yanqian/todoc/internal/domain/calendar"
	"github.com/yanqian/todoc/internal/domain/record"
	apperrors "github.com/yanqian/todoc/pkg/errors"
	"github.com/yanqian/todoc/pkg/metrics"
)

var (
	_ record.API          = (*Client)(nil)
	_ calendar.API        = (*Client)(nil)
	_ aisession.ChatAPI   = (*Client)(nil)
	_ aisession.RemoteAPI = (*Client)(nil)
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(Config{BaseURL: srv.URL + "/api/", Token: token}, m, logger), m
}

func TestRecordsByDateDecodesVariants(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/kids/3/records/date/2026-01-26", r.URL.Path)
		require.Equal(t, "Bearer fallback", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"date":"2026-01-26","records":[
			{"id":1,"record_type":"growth","record_date":"2026-01-26","height_cm":"65.2","weight_kg":7.4},
			{"id":2,"record_type":"diaper","record_date":"2026-01-26","diaper_datetime":"2026-01-26T09:00:00","diaper_type":"poop"},
			{"id":3,"record_type":"mystery","record_date":"2026-01-26"}
		]}`)
	}, "fallback")

	recs, err := client.RecordsByDate(context.Background(), 3, "2026-01-26")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	growth, ok := recs[0].(*record.GrowthRecord)
	require.True(t, ok)
	require.Equal(t, record.Decimal(65.2), *growth.HeightCM)
	require.Equal(t, record.TypeDiaper, recs[1].Type())
	require.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("records.by_date", "ok")))
}

func TestListRecordsQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "/api/kids/3/records", r.URL.Path)
		require.Equal(t, "growth", q.Get("record_type"))
		require.Equal(t, "2026-01-26", q.Get("end_date"))
		require.Equal(t, "1", q.Get("limit"))
		require.Equal(t, "2", q.Get("page"))
		require.Empty(t, q.Get("start_date"))
		_, _ = io.WriteString(w, `{"records":[],"total":0,"page":2,"limit":1}`)
	}, "")

	recs, err := client.ListRecords(context.Background(), 3, record.ListQuery{
		RecordType: record.TypeGrowth, EndDate: "2026-01-26", Limit: 1, Page: 2,
	})
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestContextTokenWins(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer from-request", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"kids":[{"id":9,"name":"하늘","birth_date":"2025-06-01"},{"id":10,"name":"바다","birth_date":"2026-01-01"}],"total":2}`)
	}, "fallback")

	id, err := client.DefaultKid(auth.WithToken(context.Background(), "from-request"))
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
}

func TestBearerGoesThroughOAuth2Transport(t *testing.T) {
	var sawAuth []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"kids":[],"total":0}`)
	}, "")

	require.Same(t, client.httpClient, client.clientFor(nil))
	withToken := client.clientFor(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"})
	require.IsType(t, &oauth2.Transport{}, withToken.Transport)
	require.Equal(t, client.httpClient.Timeout, withToken.Timeout)

	_, err := client.Kids(context.Background())
	require.NoError(t, err)
	_, err = client.Kids(auth.WithToken(context.Background(), "abc"))
	require.NoError(t, err)
	require.Equal(t, []string{"", "Bearer abc"}, sawAuth)
}

func TestUnauthorizedAndNotFound(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ai/sessions/77" {
			http.Error(w, `{"detail":"세션을 찾을 수 없습니다"}`, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}, "")
	ctx := context.Background()

	_, err := client.MonthlyDates(ctx, 3, 2026, 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	require.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("records.monthly", "error")))

	_, ok, err := client.GetSession(ctx, "77")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServerErrorIsStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, "")

	err := client.DeleteRecord(context.Background(), 3, 5)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestCreateAndUpdateRecord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "etc", body["record_type"])
		switch r.Method {
		case http.MethodPost:
			require.Equal(t, "/api/kids/3/records/etc", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":41,"record_type":"etc","record_date":"2026-01-26","title":"첫 뒤집기"}`)
		case http.MethodPatch:
			require.Equal(t, "/api/kids/3/records/etc/41", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}
	}, "")
	ctx := context.Background()

	rec := &record.EtcRecord{Common: record.Common{RecordType: record.TypeEtc, RecordDate: "2026-01-26"}, Title: "첫 뒤집기"}
	saved, err := client.CreateRecord(ctx, 3, rec)
	require.NoError(t, err)
	require.Equal(t, int64(41), saved.Base().ID)

	updated, err := client.UpdateRecord(ctx, 3, saved)
	require.NoError(t, err)
	require.Same(t, saved, updated)

	_, err = client.UpdateRecord(ctx, 3, rec)
	require.Error(t, err)
}

func TestChatForwardsNumericSessionIDsOnly(t *testing.T) {
	var seen []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ai/chat", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen = append(seen, body)
		_, _ = io.WriteString(w, `{"reply":"안녕하세요","session_id":12,"mode":"mom","date_label":"01.26 오늘","title":"첫 질문"}`)
	}, "")
	ctx := context.Background()

	reply, err := client.Chat(ctx, aisession.ChatRequest{Mode: aisession.ModeMom, Message: "hi", SessionID: "local-1"})
	require.NoError(t, err)
	require.Equal(t, "12", reply.SessionID)
	require.Equal(t, "첫 질문", reply.Title)
	require.Empty(t, reply.QuestionSnippet)
	require.Nil(t, seen[0]["session_id"])
	require.Equal(t, []any{}, seen[0]["history"])

	_, err = client.Chat(ctx, aisession.ChatRequest{Mode: aisession.ModeMom, Message: "again", SessionID: "12"})
	require.NoError(t, err)
	require.Equal(t, 12.0, seen[1]["session_id"])
}

func TestGetSessionMapsMessages(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"session":{"id":5,"title":"수면","question_snippet":"밤에 자꾸 깨요","date_label":"01.25 어제","mode":"doctor","kid_id":3},
			"messages":[{"id":100,"session_id":5,"sender":"user","content":"밤에 자꾸 깨요","created_at":"2026-01-25T21:00:00"},
			{"id":101,"session_id":5,"sender":"ai","content":"걱정되시죠","created_at":"2026-01-25T21:00:05"}]}`)
	}, "")

	s, ok, err := client.GetSession(context.Background(), "5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "5", s.ID)
	require.Equal(t, aisession.ModeDoctor, s.Mode)
	require.Equal(t, int64(3), *s.KidID)
	require.Len(t, s.Messages, 2)
	require.Equal(t, "101", s.Messages[1].ID)
	require.Equal(t, "걱정되시죠", s.Messages[1].Text)
}
