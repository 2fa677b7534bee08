// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/apierr"
	"github.com/jeranaias/nexus-tui/internal/catalog"
	"github.com/jeranaias/nexus-tui/internal/conversation"
	"github.com/jeranaias/nexus-tui/internal/gateway"
)

// fakeGateway records every call and fails the append numbered failOn (1-based).
type fakeGateway struct {
	mu        sync.Mutex
	calls     []string
	creates   int
	appended  map[string][]gateway.Message
	failOn    int
	appendNum int
	nextID    int
	createErr error

	sessions []gateway.Session
	listErr  error
	getErr   error
	deleted  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{appended: map[string][]gateway.Message{}}
}

func (f *fakeGateway) CreateSession(ctx context.Context, title, model, provider string) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+title)
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	id := "sess-" + string(rune('0'+f.nextID))
	return &gateway.Session{ID: id, Title: title, Model: model, Provider: provider}, nil
}

func (f *fakeGateway) AppendMessage(ctx context.Context, id string, msg gateway.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendNum++
	f.calls = append(f.calls, "append:"+id+":"+msg.Content)
	if f.failOn > 0 && f.appendNum == f.failOn {
		return apierr.FromStatus(apierr.OpSession, 500, nil)
	}
	f.appended[id] = append(f.appended[id], msg)
	return nil
}

func (f *fakeGateway) ListSessions(ctx context.Context) ([]gateway.Session, error) {
	return f.sessions, f.listErr
}

func (f *fakeGateway) GetSession(ctx context.Context, id string) (*gateway.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, s := range f.sessions {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, apierr.FromStatus(apierr.OpSession, 404, []byte(`{"detail":"Session not found"}`))
}

func (f *fakeGateway) DeleteSession(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

// memArchive is an in-memory Archive.
type memArchive struct {
	sessions map[string]gateway.Session
	order    []string
}

func newMemArchive() *memArchive {
	return &memArchive{sessions: map[string]gateway.Session{}}
}

func (a *memArchive) Put(ctx context.Context, s gateway.Session) error {
	if _, ok := a.sessions[s.ID]; !ok {
		a.order = append(a.order, s.ID)
	}
	a.sessions[s.ID] = s
	return nil
}

func (a *memArchive) Get(ctx context.Context, id string) (*gateway.Session, error) {
	s, ok := a.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &s, nil
}

func (a *memArchive) List(ctx context.Context) ([]gateway.Session, error) {
	var out []gateway.Session
	for _, id := range a.order {
		if s, ok := a.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (a *memArchive) Delete(ctx context.Context, id string) error {
	delete(a.sessions, id)
	return nil
}

func chat(n int) []conversation.Message {
	msgs := make([]conversation.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			msgs = append(msgs, conversation.NewUserMessage("question "+string(rune('a'+i))))
		} else {
			msgs = append(msgs, conversation.NewAssistantMessage("answer "+string(rune('a'+i)), "m", "p", time.Time{}))
		}
	}
	return msgs
}

var sel = catalog.Selection{Model: "microsoft/phi-4", Provider: "g4f.Provider.DeepInfra"}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSave_EmptyConversationMakesNoCalls(t *testing.T) {
	gw := newFakeGateway()
	_, err := NewSaver(gw).Save(context.Background(), nil, "", sel)

	require.ErrorIs(t, err, apierr.ErrEmptyConversation)
	assert.Equal(t, apierr.MsgEmpty, apierr.UserMessage(err))
	assert.Empty(t, gw.calls)
}

func TestSave_AppendsSequentiallyByID(t *testing.T) {
	gw := newFakeGateway()
	msgs := chat(4)

	res, err := NewSaver(gw).Save(context.Background(), msgs, "", sel)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", res.SessionID)
	assert.Equal(t, "question a...", res.Title)
	assert.Equal(t, 4, res.Saved)
	assert.Equal(t, []string{
		"create:question a...",
		"append:sess-1:question a",
		"append:sess-1:answer b",
		"append:sess-1:question c",
		"append:sess-1:answer d",
	}, gw.calls)
	assert.Equal(t, "user", gw.appended["sess-1"][0].Role)
	assert.Equal(t, "assistant", gw.appended["sess-1"][1].Role)
}

func TestSave_SameTitleDifferentSessions(t *testing.T) {
	gw := newFakeGateway()
	saver := NewSaver(gw)

	first := []conversation.Message{conversation.NewUserMessage("same")}
	second := []conversation.Message{conversation.NewUserMessage("same"), conversation.NewUserMessage("more")}

	r1, err := saver.Save(context.Background(), first, "", sel)
	require.NoError(t, err)
	r2, err := saver.Save(context.Background(), second, "", sel)
	require.NoError(t, err)

	assert.NotEqual(t, r1.SessionID, r2.SessionID)
	assert.Len(t, gw.appended[r1.SessionID], 1)
	assert.Len(t, gw.appended[r2.SessionID], 2)
}

func TestSave_PartialFailure(t *testing.T) {
	for k := 1; k <= 5; k++ {
		gw := newFakeGateway()
		gw.failOn = k

		_, err := NewSaver(gw).Save(context.Background(), chat(5), "Title", sel)
		require.ErrorIs(t, err, apierr.ErrPartialSave, "k=%d", k)

		var ae *apierr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, k-1, ae.Saved)
		assert.Equal(t, 5, ae.Total)
		assert.Equal(t, "sess-1", ae.SessionID)
		assert.Len(t, gw.appended["sess-1"], k-1, "no rollback, no retry")
		assert.Equal(t, k, gw.appendNum, "stops at the failing append")
	}
}

func TestSave_CreateFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.createErr = errors.New("dial tcp: connection refused")

	_, err := NewSaver(gw).Save(context.Background(), chat(2), "", sel)
	require.ErrorIs(t, err, apierr.ErrNetwork)
	assert.Equal(t, 0, gw.appendNum)
}

func TestSave_UsesGivenTitleAndSelection(t *testing.T) {
	gw := newFakeGateway()
	res, err := NewSaver(gw).Save(context.Background(), chat(1), "My title", sel)
	require.NoError(t, err)
	assert.Equal(t, "My title", res.Title)
	assert.Equal(t, "create:My title", gw.calls[0])
}

func TestSave_MirrorsToArchive(t *testing.T) {
	gw := newFakeGateway()
	archive := newMemArchive()

	res, err := NewSaver(gw).WithArchive(archive).Save(context.Background(), chat(2), "", sel)
	require.NoError(t, err)

	got, err := archive.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, sel.Model, got.Model)
}

func TestSave_PerCallTimeout(t *testing.T) {
	var deadlines []time.Time
	gw := &deadlineRemote{record: func(ctx context.Context) {
		d, _ := ctx.Deadline()
		deadlines = append(deadlines, d)
	}}

	start := time.Now()
	_, err := NewSaver(gw).WithCallTimeout(time.Hour).Save(context.Background(), chat(2), "", sel)
	require.NoError(t, err)
	require.Len(t, deadlines, 3)
	for _, d := range deadlines {
		assert.WithinDuration(t, start.Add(time.Hour), d, time.Minute)
	}
}

type deadlineRemote struct {
	record func(ctx context.Context)
}

func (d *deadlineRemote) CreateSession(ctx context.Context, title, model, provider string) (*gateway.Session, error) {
	d.record(ctx)
	return &gateway.Session{ID: "x"}, nil
}

func (d *deadlineRemote) AppendMessage(ctx context.Context, id string, msg gateway.Message) error {
	d.record(ctx)
	return nil
}

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("x", 60)
	tests := []struct {
		name string
		msgs []conversation.Message
		want string
	}{
		{"short", []conversation.Message{conversation.NewUserMessage("hello")}, "hello..."},
		{"exactly fifty", []conversation.Message{conversation.NewUserMessage(long[:50])}, long[:50] + "..."},
		{"long", []conversation.Message{conversation.NewUserMessage(long)}, long[:50] + "..."},
		{"skips assistant", []conversation.Message{
			conversation.NewAssistantMessage("welcome", "", "", time.Time{}),
			conversation.NewUserMessage("real question"),
		}, "real question..."},
		{"folds whitespace", []conversation.Message{conversation.NewUserMessage("  a\n\nb\tc ")}, "a b c..."},
		{"no user content", []conversation.Message{conversation.NewUserMessage("   ")}, PlaceholderTitle},
		{"empty", nil, PlaceholderTitle},
		{"runes not bytes", []conversation.Message{conversation.NewUserMessage(strings.Repeat("é", 51))}, strings.Repeat("é", 50) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.msgs))
		})
	}
}

func TestDeriveTitle_NormalizesNFC(t *testing.T) {
	decomposed := "cafe\u0301"
	assert.Equal(t, "caf\u00e9...", DeriveTitle([]conversation.Message{conversation.NewUserMessage(decomposed)}))
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestHistory_ListFromGateway(t *testing.T) {
	gw := newFakeGateway()
	gw.sessions = []gateway.Session{{ID: "a"}, {ID: "b"}}

	list, src, err := NewHistory(gw).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FromGateway, src)
	assert.Len(t, list, 2)
}

func TestHistory_ListFallsBackWhenUnreachable(t *testing.T) {
	gw := newFakeGateway()
	gw.listErr = apierr.FromTransport(apierr.OpSession, errors.New("refused"))
	archive := newMemArchive()
	require.NoError(t, archive.Put(context.Background(), gateway.Session{ID: "cached"}))

	list, src, err := NewHistory(gw).WithArchive(archive).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FromArchive, src)
	require.Len(t, list, 1)
	assert.Equal(t, "cached", list[0].ID)
}

func TestHistory_ServerErrorDoesNotFallBack(t *testing.T) {
	gw := newFakeGateway()
	gw.listErr = apierr.FromStatus(apierr.OpSession, 500, nil)

	_, _, err := NewHistory(gw).WithArchive(newMemArchive()).List(context.Background())
	assert.ErrorIs(t, err, apierr.ErrServer)
}

func TestHistory_GetMirrorsAndFallsBack(t *testing.T) {
	gw := newFakeGateway()
	gw.sessions = []gateway.Session{{ID: "s1", Title: "remote", Messages: []gateway.Message{{Role: "user", Content: "x"}}}}
	archive := newMemArchive()
	h := NewHistory(gw).WithArchive(archive)

	got, src, err := h.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, FromGateway, src)
	assert.Equal(t, "remote", got.Title)
	_, err = archive.Get(context.Background(), "s1")
	require.NoError(t, err, "mirrored")

	gw.getErr = apierr.FromTransport(apierr.OpSession, context.DeadlineExceeded)
	got, src, err = h.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, FromArchive, src)
	assert.Len(t, got.Messages, 1)

	_, _, err = h.Get(context.Background(), "never-seen")
	assert.ErrorIs(t, err, apierr.ErrTimeout)
}

func TestHistory_GetNotFound(t *testing.T) {
	gw := newFakeGateway()
	_, _, err := NewHistory(gw).Get(context.Background(), "missing")

	var ae *apierr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 404, ae.Status)
}

func TestHistory_DeleteRemovesArchivedCopy(t *testing.T) {
	gw := newFakeGateway()
	archive := newMemArchive()
	require.NoError(t, archive.Put(context.Background(), gateway.Session{ID: "s1"}))

	require.NoError(t, NewHistory(gw).WithArchive(archive).Delete(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, gw.deleted)
	_, err := archive.Get(context.Background(), "s1")
	assert.Error(t, err)
}

func TestFilterAndModels(t *testing.T) {
	sessions := []gateway.Session{
		{ID: "1", Title: "Go concurrency", Model: "microsoft/phi-4"},
		{ID: "2", Title: "Pasta recipes", Model: "google/gemma-3-4b-it"},
		{ID: "3", Title: "goroutine leaks", Model: "microsoft/phi-4"},
	}

	ids := func(ss []gateway.Session) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(Filter(sessions, "", AllModels)))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(sessions, "GO", "")))
	assert.Equal(t, []string{"2"}, ids(Filter(sessions, "", "google/gemma-3-4b-it")))
	assert.Empty(t, Filter(sessions, "pasta", "microsoft/phi-4"))

	assert.Equal(t, []string{"microsoft/phi-4", "google/gemma-3-4b-it"}, Models(sessions))
}
