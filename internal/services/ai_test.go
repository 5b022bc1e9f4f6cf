package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	title, body string
	err         error
	calls       int
}

func (g *stubGenerator) Generate(_ context.Context, _, _ string) (string, string, error) {
	g.calls++
	return g.title, g.body, g.err
}

func TestLLMClient_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "Write about knee rehab", req.Messages[1].Content)

		resp := ChatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message ChatMessage `json:"message"`
		}{Message: ChatMessage{Role: "assistant", Content: "# Knee rehab basics\n\nStart slow."}})
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewLLMClient(server.URL+"/v1", "test-token", "test-model", time.Second)
	title, body, err := client.Generate(context.Background(), "req-1", "Write about knee rehab")
	require.NoError(t, err)
	assert.Equal(t, "Knee rehab basics", title)
	assert.Equal(t, "Start slow.", body)
}

func TestLLMClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, _, err := NewLLMClient(server.URL, "", "m", time.Second).Generate(context.Background(), "r", "p")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)

	_, _, err = NewLLMClient("", "", "m", time.Second).Generate(context.Background(), "r", "p")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)
}

func TestGeneratePost(t *testing.T) {
	f := newFixture(t)
	gen := &stubGenerator{title: "Recovery timeline", body: "Week one..."}
	ai := NewAIService(f.db, f.guard, f.content, gen, zap.NewNop())
	ctx := context.Background()

	member := f.user(t, "member", rbac.RoleUser)
	contributor := f.user(t, "contrib", rbac.RoleContributor)
	admin := f.user(t, "admin", rbac.RoleAdmin)

	for _, actor := range []*rbac.Actor{member.Actor(), contributor.Actor()} {
		_, err := ai.GeneratePost(ctx, actor, "anything", nil)
		assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)
	}
	assert.Zero(t, gen.calls)

	_, err := ai.GeneratePost(ctx, admin.Actor(), "  ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	post, err := ai.GeneratePost(ctx, admin.Actor(), "recovery timeline", nil)
	require.NoError(t, err)
	assert.True(t, post.IsAIGenerated)
	assert.Equal(t, admin.ID, post.UserID)
	assert.Equal(t, "Recovery timeline", post.Title)

	gen.err = errors.New("boom")
	_, err = ai.GeneratePost(ctx, admin.Actor(), "again", nil)
	assert.Error(t, err)
}

func TestSaveSchedule(t *testing.T) {
	f := newFixture(t)
	ai := NewAIService(f.db, f.guard, f.content, &stubGenerator{}, zap.NewNop())
	ai.now = func() time.Time { return time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	admin := f.user(t, "admin", rbac.RoleAdmin)
	root := f.user(t, "root", rbac.RoleSuperAdmin)

	in := ScheduleInput{Name: "daily", Cron: "0 9 * * *", Prompt: "daily tip", Enabled: true}
	_, err := ai.SaveSchedule(ctx, admin.Actor(), in)
	assert.ErrorIs(t, err, rbac.ErrInsufficientPermission)

	bad := in
	bad.Cron = "every morning"
	_, err = ai.SaveSchedule(ctx, root.Actor(), bad)
	assert.ErrorIs(t, err, ErrInvalidInput)

	saved, err := ai.SaveSchedule(ctx, root.Actor(), in)
	require.NoError(t, err)
	require.NotNil(t, saved.NextRun)
	assert.Equal(t, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), *saved.NextRun)

	in.Enabled = false
	in.Cron = "0 18 * * 1"
	updated, err := ai.SaveSchedule(ctx, root.Actor(), in)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Nil(t, updated.NextRun)

	list, err := ai.ListSchedules(ctx, root.Actor())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)
	assert.Equal(t, "0 18 * * 1", list[0].Cron)

	require.NoError(t, ai.DeleteSchedule(ctx, root.Actor(), saved.ID))
	assert.ErrorIs(t, ai.DeleteSchedule(ctx, root.Actor(), saved.ID), ErrNotFound)
}

func TestSaveSchedule_DisabledOnCreate(t *testing.T) {
	f := newFixture(t)
	ai := NewAIService(f.db, f.guard, f.content, &stubGenerator{}, zap.NewNop())
	root := f.user(t, "root", rbac.RoleSuperAdmin)

	_, err := ai.SaveSchedule(context.Background(), root.Actor(), ScheduleInput{Name: "paused", Cron: "@daily", Prompt: "p"})
	require.NoError(t, err)

	list, err := ai.ListSchedules(context.Background(), root.Actor())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)
}
