// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	return newTestClientWith(t, &Config{}, handler)
}

func newTestClientWith(t *testing.T, cfg *Config, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/"
	return NewClient(cfg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultMaxResponseBytes, c.maxBody)

	c = NewClient(&Config{BaseURL: "http://gw:9000///"})
	assert.Equal(t, "http://gw:9000", c.BaseURL())
}

func TestCapabilities_MissingFlagsDefaultTrue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/capabilities", r.URL.Path)
		writeJSON(w, 200, map[string]any{"image_generation": false})
	})

	caps, err := c.Capabilities(context.Background())
	require.NoError(t, err)
	assert.True(t, caps.Chat)
	assert.False(t, caps.ImageGeneration)
}

func TestModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{
			"models":             map[string][]string{"microsoft/phi-4": {"g4f.Provider.DeepInfra"}},
			"image_models":       []string{"flux", "sdxl"},
			"total_models":       1,
			"total_image_models": 2,
		})
	})

	resp, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"g4f.Provider.DeepInfra"}, resp.Models["microsoft/phi-4"])
	assert.Equal(t, []string{"flux", "sdxl"}, resp.ImageModels)
	assert.Equal(t, 2, resp.TotalImageModels)
}

func TestPing_SendsNoStoreAndRequestID(t *testing.T) {
	var gotCache, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCache = r.Header.Get("Cache-Control")
		gotID = r.Header.Get("X-Request-ID")
		writeJSON(w, 200, map[string]any{"models": map[string]any{}})
	})

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "no-store", gotCache)
	assert.Len(t, gotID, 36)
}

func TestPing_ServerErrorIsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrServer)
}

func TestChat_RequestAndResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "microsoft/phi-4", body["model"])
		assert.Equal(t, 0.0, body["temperature"])
		assert.Equal(t, 100.0, body["max_tokens"])
		assert.NotContains(t, body, "provider")
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1)
		assert.NotContains(t, msgs[0].(map[string]any), "timestamp")

		writeJSON(w, 200, map[string]any{
			"message":   "Hello!",
			"model":     "microsoft/phi-4",
			"provider":  "g4f.Provider.DeepInfra",
			"timestamp": "2025-03-04T05:06:07.123456",
			"usage":     map[string]int{"tokens": 1},
		})
	})

	resp, err := c.Chat(context.Background(), &ChatRequest{
		Model:     "microsoft/phi-4",
		Messages:  []Message{{Role: "user", Content: "Hi"}},
		MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Message)
	assert.Equal(t, "g4f.Provider.DeepInfra", resp.Provider)
	assert.Equal(t, 2025, resp.Timestamp.Year())
	assert.Equal(t, 123456000, resp.Timestamp.Nanosecond())
}

func TestChat_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apierr.Kind
	}{
		{"408", 408, `{"detail":"Request timeout"}`, apierr.KindTimeout},
		{"500", 500, `{"detail":"Error generating response: boom"}`, apierr.KindServer},
		{"501 on chat", 501, ``, apierr.KindServer},
		{"400", 400, `{"detail":"Model x not available"}`, apierr.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Chat(context.Background(), &ChatRequest{Model: "m"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apierr.KindOf(err))
		})
	}
}

func TestGenerateImage_Unsupported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})

	_, err := c.GenerateImage(context.Background(), &ImageRequest{Prompt: "cat", Model: "flux"})
	require.Error(t, err)
	assert.True(t, apierr.ForcesChatMode(err))
}

func TestGenerateImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 512, req.Width)
		assert.Equal(t, "hd", req.Quality)
		writeJSON(w, 200, map[string]any{
			"image_url": "https://img.example/1.png",
			"model":     req.Model,
			"provider":  "g4f-client",
			"timestamp": "2025-03-04T05:06:07+00:00",
			"prompt":    req.Prompt,
		})
	})

	resp, err := c.GenerateImage(context.Background(), &ImageRequest{
		Prompt: "a fox", Model: "flux", Width: 512, Height: 512, Quality: "hd", Style: "natural",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", resp.ImageURL)
	assert.Equal(t, "a fox", resp.Prompt)
}

func TestTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, &ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrTimeout)
	assert.Equal(t, apierr.MsgClientTimeout, apierr.UserMessage(err))
}

func TestPing_BypassesRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			writeJSON(w, http.StatusOK, map[string]string{"message": "hi", "model": "m"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"models": map[string][]string{}})
		}
	}))
	t.Cleanup(srv.Close)
	c := NewClient(&Config{BaseURL: srv.URL, RequestsPerSecond: 0.2, Burst: 1})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "m"})
	require.NoError(t, err)

	// The next limiter token is five seconds away; a probe must not wait for it.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.Ping(ctx))
}

func TestRateLimitBeyondDeadlineIsTimeout(t *testing.T) {
	c := newTestClientWith(t, &Config{RequestsPerSecond: 0.2, Burst: 1}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": map[string][]string{}})
	})

	_, err := c.Models(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.Models(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apierr.ErrTimeout)
	assert.Equal(t, apierr.KindTimeout, apierr.KindOf(err))
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(&Config{BaseURL: url})
	err := c.Ping(context.Background())
	assert.ErrorIs(t, err, apierr.ErrNetwork)
}

func TestCreateSession_UsesQueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sessions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Hello there", q.Get("title"))
		assert.Equal(t, "microsoft/phi-4", q.Get("model"))
		assert.Equal(t, "g4f.Provider.DeepInfra", q.Get("provider"))
		writeJSON(w, 200, map[string]any{
			"id": "sess-1", "title": q.Get("title"), "messages": []any{},
			"model": q.Get("model"), "provider": q.Get("provider"),
			"created_at": "2025-01-01T00:00:00", "updated_at": "2025-01-01T00:00:00",
		})
	})

	s, err := c.CreateSession(context.Background(), "Hello there", "microsoft/phi-4", "g4f.Provider.DeepInfra")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.ID)
}

func TestCreateSession_MissingID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"title": "x"})
	})

	_, err := c.CreateSession(context.Background(), "x", "m", "p")
	assert.ErrorIs(t, err, apierr.ErrServer)
}

func TestSessionEndpoints(t *testing.T) {
	var appended Message
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sessions/a%2Fb/messages",
			r.Method == http.MethodPost && r.URL.Path == "/api/sessions/a/b/messages":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&appended))
			writeJSON(w, 200, map[string]string{"message": "Message added successfully"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/sessions":
			writeJSON(w, 200, []map[string]any{{"id": "s1", "title": "t", "messages": []any{}}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/sessions/s1":
			writeJSON(w, 200, map[string]any{"id": "s1", "messages": []map[string]any{
				{"role": "user", "content": "hi", "timestamp": "2025-01-01T00:00:00.5"},
			}})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/sessions/missing":
			writeJSON(w, 404, map[string]string{"detail": "Session not found"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()

	require.NoError(t, c.AppendMessage(ctx, "a/b", Message{Role: "user", Content: "hi"}))
	assert.Equal(t, "hi", appended.Content)

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	s, err := c.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, s.Messages, 1)
	require.NotNil(t, s.Messages[0].Timestamp)
	assert.Equal(t, 500*time.Millisecond, time.Duration(s.Messages[0].Timestamp.Nanosecond()))

	err = c.DeleteSession(ctx, "missing")
	require.Error(t, err)
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 404, ae.Status)
	assert.Equal(t, "Session not found", ae.Detail)
}

func TestModelsHealth_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"a", "b"}, r.URL.Query()["models"])
		assert.Equal(t, "2.5", r.URL.Query().Get("per_model_timeout"))
		writeJSON(w, 200, map[string]any{
			"results":       []map[string]any{{"model": "a", "ok": true}, {"model": "b", "ok": false, "error": "x"}},
			"working":       []string{"a"},
			"count_working": 1,
		})
	})

	resp, err := c.ModelsHealth(context.Background(), []string{"a", "b"}, 2500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CountWorking)
	assert.False(t, resp.Results[1].OK)
}

func TestProviders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"providers": []string{"p1", "p2"}, "total_providers": 2})
	})

	resp, err := c.Providers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalProviders)
}

func TestResponseSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"` + string(make([]byte, 64)) + `"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, MaxResponseBytes: 16})
	_, err := c.Chat(context.Background(), &ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, apierr.ErrServer)
}

func TestInvalidJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})

	_, err := c.Models(context.Background())
	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apierr.KindServer, ae.Kind)
	assert.Equal(t, "invalid response body", ae.Detail)
}

func TestTimestamp_RoundTrip(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-06-01T12:00:00Z"`), &ts))
	assert.Equal(t, time.UTC, ts.Location())

	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))

	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
