package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"govportal/internal/utils"

	"go.uber.org/zap"
)

const systemPrompt = "You are the citizen services assistant for a government portal. " +
	"Answer briefly and only about voting, candidates, complaints and document registration."

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type AssistantReply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"` // llm, canned
}

// CandidateSource supplies the candidate list the assistant summarises.
type CandidateSource interface {
	List(ctx context.Context) (*CandidateList, error)
}

type AssistantConfig struct {
	BaseURL string
	Token   string
	Model   string
}

// Assistant answers citizen questions through an OpenAI-compatible chat
// endpoint, falling back to canned replies.
type Assistant struct {
	cfg        AssistantConfig
	client     *http.Client
	candidates CandidateSource
	log        *zap.Logger
}

func NewAssistant(cfg AssistantConfig, candidates CandidateSource, log *zap.Logger) *Assistant {
	return &Assistant{
		cfg:        cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
		candidates: candidates,
		log:        log,
	}
}

func (a *Assistant) enabled() bool {
	return a.cfg.BaseURL != "" && a.cfg.Token != ""
}

// Reply never fails on upstream trouble; it degrades to a canned answer.
func (a *Assistant) Reply(ctx context.Context, message string) (*AssistantReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalid("message is required")
	}
	if a.enabled() {
		answer, err := a.complete(ctx, message)
		if err == nil && answer != "" {
			return &AssistantReply{Reply: answer, Source: "llm"}, nil
		}
		a.log.Warn("assistant upstream failed, using canned reply", zap.Error(err))
	}
	return &AssistantReply{Reply: CannedReply(message), Source: "canned"}, nil
}

func (a *Assistant) complete(ctx context.Context, message string) (string, error) {
	req := ChatRequest{
		Model: a.cfg.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: a.systemMessage(ctx)},
			{Role: "user", Content: message},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.Token)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d", resp.StatusCode)
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// systemMessage builds the system prompt with a short summary per candidate.
func (a *Assistant) systemMessage(ctx context.Context) string {
	if a.candidates == nil {
		return systemPrompt
	}
	list, err := a.candidates.List(ctx)
	if err != nil || len(list.Candidates) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nCandidates:\n")
	for _, c := range list.Candidates {
		fmt.Fprintf(&b, "- %s (%s, voting id %d): %s\n", c.Name, c.Party, c.VotingID, utils.Excerpt(c.PromisesHTML, 160))
	}
	return b.String()
}

var cannedReplies = []struct {
	keywords []string
	reply    string
}{
	{[]string{"vote", "voting", "ballot", "election"},
		"You can cast one vote per account from the Elections page. Pick a candidate and confirm; votes cannot be changed once recorded."},
	{[]string{"complaint", "grievance", "issue", "report"},
		"File a complaint from the Complaints page with its type, area, description and a contact number. You can follow its status there as officers review it."},
	{[]string{"document", "ipfs", "certificate", "upload"},
		"Upload your document to IPFS, then register its content hash on the Documents page. Registered documents are verified by an officer."},
	{[]string{"candidate", "party", "manifesto", "promise"},
		"The Candidates page lists every registered candidate with their party, promises and current vote count."},
}

const defaultReply = "I can help with voting, candidates, complaints and document registration. What would you like to know?"

// CannedReply picks a static answer by keyword.
func CannedReply(message string) string {
	m := strings.ToLower(message)
	for _, c := range cannedReplies {
		for _, k := range c.keywords {
			if strings.Contains(m, k) {
				return c.reply
			}
		}
	}
	return defaultReply
}

type ElectionPrediction struct {
	Candidate          string  `json:"candidate"`
	PredictedVoteShare float64 `json:"predictedVoteShare"`
	Confidence         float64 `json:"confidence"`
	TrendDirection     string  `json:"trendDirection"`
}

type TopicSentiment struct {
	Topic     string  `json:"topic"`
	Sentiment float64 `json:"sentiment"`
	Mentions  int     `json:"mentions"`
}

type IssueStat struct {
	Type              string `json:"type"`
	Count             int    `json:"count"`
	AvgResolutionTime string `json:"avgResolutionTime"`
}

type Insights struct {
	ElectionPredictions []ElectionPrediction `json:"electionPredictions"`
	SentimentAnalysis   struct {
		Overall string           `json:"overall"`
		Score   float64          `json:"score"`
		Topics  []TopicSentiment `json:"topics"`
	} `json:"sentimentAnalysis"`
	ComplaintAnalytics struct {
		MostCommonIssues []IssueStat `json:"mostCommonIssues"`
		ResolutionTrends struct {
			ThisMonth   int    `json:"thisMonth"`
			LastMonth   int    `json:"lastMonth"`
			Improvement string `json:"improvement"`
		} `json:"resolutionTrends"`
	} `json:"complaintAnalytics"`
	GeneratedAt   time.Time `json:"generatedAt"`
	DataFreshness string    `json:"dataFreshness"`
	Confidence    float64   `json:"confidence"`
}

// StaticInsights returns the fixed election and complaint insight report.
func StaticInsights(now time.Time) Insights {
	var in Insights
	in.ElectionPredictions = []ElectionPrediction{
		{"Sarah Johnson", 35.2, 0.87, "up"},
		{"Michael Chen", 28.8, 0.82, "stable"},
		{"Dr. Emily Rodriguez", 24.1, 0.79, "up"},
		{"James Thompson", 12.0, 0.74, "down"},
	}
	in.SentimentAnalysis.Overall = "positive"
	in.SentimentAnalysis.Score = 0.72
	in.SentimentAnalysis.Topics = []TopicSentiment{
		{"Healthcare", 0.81, 245},
		{"Economy", 0.65, 189},
		{"Education", 0.78, 156},
		{"Infrastructure", 0.58, 134},
	}
	in.ComplaintAnalytics.MostCommonIssues = []IssueStat{
		{"Infrastructure", 45, "7 days"},
		{"Sanitation", 32, "3 days"},
		{"Water Supply", 28, "5 days"},
		{"Electricity", 21, "2 days"},
	}
	in.ComplaintAnalytics.ResolutionTrends.ThisMonth = 89
	in.ComplaintAnalytics.ResolutionTrends.LastMonth = 76
	in.ComplaintAnalytics.ResolutionTrends.Improvement = "+17%"
	in.GeneratedAt = now
	in.DataFreshness = "Real-time"
	in.Confidence = 0.85
	return in
}
