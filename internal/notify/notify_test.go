package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/kaizoku/internal/notify"
	"github.com/vmunix/kaizoku/internal/notify/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func TestChapterMessage(t *testing.T) {
	m := notify.ChapterMessage("One Piece", 0, "[0001]_Romance_Dawn.cbz", "mangadex", ptr("https://example.com/op"))
	assert.Equal(t, "Chapter grabbed", m.Title)
	assert.Equal(t, "Chapter #1 downloaded as [0001]_Romance_Dawn.cbz for One Piece from mangadex", m.Body)
	assert.Equal(t, "https://example.com/op", m.URL)

	assert.Empty(t, notify.ChapterMessage("x", 1, "f", "s", nil).URL)
}

func TestTelegram_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret-token/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		assert.Equal(t, "HTML", body["parse_mode"])
		assert.Equal(t, "<b>Chapter grabbed</b>\n\nTom &amp; Jerry\n\nhttps://x.y", body["text"])

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := notify.NewTelegram(server.URL, "secret-token", "42")
	err := tg.Send(context.Background(), notify.Message{Title: "Chapter grabbed", Body: "Tom & Jerry", URL: "https://x.y"})
	require.NoError(t, err)
}

func TestTelegram_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	err := notify.NewTelegram(server.URL, "t", "0").Send(context.Background(), notify.Message{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, notify.ErrRejected)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := notify.NewTelegram(server.URL, "t", "0").Send(context.Background(), notify.Message{Title: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, notify.ErrRejected))
}

func TestTelegram_RateLimitedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := notify.NewTelegram(server.URL, "t", "0").Send(context.Background(), notify.Message{Title: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, notify.ErrRejected))
}

func TestWebhook_Send(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	wh := notify.NewWebhook(server.URL, map[string]string{"Authorization": "Bearer abc"})
	require.NoError(t, wh.Send(context.Background(), notify.Message{Title: "T", Body: "B"}))
	assert.Equal(t, map[string]string{"title": "T", "body": "B"}, got)
}

func TestNotifier_SendsToAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockSender(ctrl)
	b := mocks.NewMockSender(ctrl)
	msg := notify.Message{Title: "T"}

	a.EXPECT().Send(gomock.Any(), msg).Return(errors.New("down"))
	a.EXPECT().Name().Return("a").AnyTimes()
	b.EXPECT().Send(gomock.Any(), msg).Return(nil)
	b.EXPECT().Name().Return("b").AnyTimes()

	n := notify.NewNotifier(testLogger(), a, b)
	assert.True(t, n.Enabled())
	err := n.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: down")
}

func TestNotifier_NoSenders(t *testing.T) {
	n := notify.NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), notify.Message{}))
}
