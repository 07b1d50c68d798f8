package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chatServer(t *testing.T, content string, seen *ChatRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("Expected Bearer test-token, got %s", r.Header.Get("Authorization"))
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}

		var resp ChatResponse
		resp.Choices = make([]struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}, 1)
		resp.Choices[0].Message.Content = content
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAssistantReplyFromUpstream(t *testing.T) {
	var seen ChatRequest
	server := chatServer(t, "  Polls open at 8am.  ", &seen)

	cands := NewCandidateRegistry(selectorWith(nil, newFallback(t)), time.Minute, zap.NewNop())
	a := NewAssistant(AssistantConfig{BaseURL: server.URL, Token: "test-token", Model: "test-model"}, cands, zap.NewNop())

	reply, err := a.Reply(context.Background(), "When do polls open?")
	require.NoError(t, err)
	assert.Equal(t, "llm", reply.Source)
	assert.Equal(t, "Polls open at 8am.", reply.Reply)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Contains(t, seen.Messages[0].Content, "Sarah Johnson")
	assert.NotContains(t, seen.Messages[0].Content, "<p>")
	assert.Equal(t, "When do polls open?", seen.Messages[1].Content)
}

func TestAssistantFallsBackOnUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := NewAssistant(AssistantConfig{BaseURL: server.URL, Token: "test-token"}, nil, zap.NewNop())
	reply, err := a.Reply(context.Background(), "How do I file a complaint?")
	require.NoError(t, err)
	assert.Equal(t, "canned", reply.Source)
	assert.True(t, strings.HasPrefix(reply.Reply, "File a complaint"))
}

func TestAssistantEmptyUpstreamAnswer(t *testing.T) {
	server := chatServer(t, "", nil)
	a := NewAssistant(AssistantConfig{BaseURL: server.URL, Token: "test-token"}, nil, zap.NewNop())
	reply, err := a.Reply(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "canned", reply.Source)
	assert.Equal(t, defaultReply, reply.Reply)
}

func TestAssistantDisabled(t *testing.T) {
	a := NewAssistant(AssistantConfig{}, nil, zap.NewNop())
	reply, err := a.Reply(context.Background(), "Which PARTY is Sarah in?")
	require.NoError(t, err)
	assert.Equal(t, "canned", reply.Source)
	assert.Contains(t, reply.Reply, "Candidates page")

	_, err = a.Reply(context.Background(), "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCannedReply(t *testing.T) {
	tests := map[string]string{
		"how do I vote":            "You can cast one vote",
		"upload a certificate":     "Upload your document",
		"report a broken light":    "File a complaint",
		"what is the weather like": "I can help with",
	}
	for msg, prefix := range tests {
		if got := CannedReply(msg); !strings.HasPrefix(got, prefix) {
			t.Errorf("CannedReply(%q) = %q, want prefix %q", msg, got, prefix)
		}
	}
}

func TestStaticInsights(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	in := StaticInsights(now)
	assert.Equal(t, now, in.GeneratedAt)
	require.Len(t, in.ElectionPredictions, 4)
	assert.Equal(t, "Sarah Johnson", in.ElectionPredictions[0].Candidate)
	assert.Equal(t, "+17%", in.ComplaintAnalytics.ResolutionTrends.Improvement)
}
