package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sinfolonokojo/mt5-monitor/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func TestAllowListFiltersEvents(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := New([]Sender{sender}, []string{"versus_error"}, testLogger())

	require.NoError(t, n.Notify(context.Background(), "agent_recovery", "ignored", "m"))
	assert.Empty(t, sender.titles)

	require.NoError(t, n.Notify(context.Background(), "versus_error", "delivered", "m"))
	assert.Equal(t, []string{"delivered"}, sender.titles)
}

func TestEmptyAllowListPassesEverything(t *testing.T) {
	sender := &recordingSender{name: "test"}
	n := New([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, sender.titles, 1)
}

func TestOneFailingSenderDoesNotBlockOthers(t *testing.T) {
	broken := &recordingSender{name: "broken", err: errors.New("boom")}
	healthy := &recordingSender{name: "healthy"}
	n := New([]Sender{broken, healthy}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, healthy.titles, 1)
}

func TestNoSendersIsANoOp(t *testing.T) {
	n := New(nil, nil, testLogger())
	assert.NoError(t, n.NotifyAll(context.Background(), "t", "m"))
}

func TestFromConfigSkipsUnconfiguredChannels(t *testing.T) {
	n := FromConfig(config.NotifyConfig{}, testLogger())
	assert.Empty(t, n.senders)

	n = FromConfig(config.NotifyConfig{DiscordWebhookURL: "http://hook.test"}, testLogger())
	assert.Len(t, n.senders, 1)
}

func TestDiscordSendPostsWebhook(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	d := NewDiscord(srv.URL)
	require.NoError(t, d.Send(context.Background(), "Alert", "something happened"))
	assert.Contains(t, got, "**Alert**")
	assert.Contains(t, got, "something happened")
}

func TestDiscordSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	d := NewDiscord(srv.URL)
	err := d.Send(context.Background(), "Alert", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
