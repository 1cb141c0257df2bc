// Package ai is the optional generative-insight enrichment layer: a
// strictly grounded, JSON-only OpenAI-compatible chat client that turns a
// period's facts (plus the user's long-term profile, if any) into a short
// narrative report.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/monoledger/monoledger/analytics"
	"github.com/monoledger/monoledger/profile"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	requestTimeout = 30 * time.Second
)

// Report is the structured insight the model is required to return.
type Report struct {
	Summary  string   `json:"summary"`
	Changes  []string `json:"changes"`
	Recs     []string `json:"recs"`
	NextStep string   `json:"next_step"`
}

func (r *Report) clean() {
	r.Summary = strings.TrimSpace(r.Summary)
	r.NextStep = strings.TrimSpace(r.NextStep)
	r.Changes = trimNonEmpty(r.Changes, 5)
	r.Recs = trimNonEmpty(r.Recs, 7)
}

func trimNonEmpty(items []string, max int) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Client is a pooled OpenAI-compatible chat-completions client scoped to
// one API key and model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient builds a Client. baseURL defaults to the OpenAI API if empty,
// so any OpenAI-compatible endpoint can be substituted via configuration.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: requestTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: upstream returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("ai: empty choices in response")
	}
	return cr.Choices[0].Message.Content, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

func extractJSONObject(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	if m := jsonObjectRe.FindString(s); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

func parseReport(raw string) (*Report, error) {
	var rep Report
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &rep); err == nil && rep.Summary != "" {
		rep.clean()
		return &rep, nil
	}

	extracted := extractJSONObject(raw)
	if extracted == "" {
		return nil, fmt.Errorf("ai: no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(extracted), &rep); err != nil {
		return nil, fmt.Errorf("ai: invalid JSON in model output: %w", err)
	}
	rep.clean()
	if rep.Summary == "" || rep.NextStep == "" {
		return nil, fmt.Errorf("ai: model output missing required fields")
	}
	return &rep, nil
}

const systemPrompt = "Ти — помічник з фінансової грамотності.\n" +
	"Працюй у режимі grounded: використовуй ТІЛЬКИ дані з facts JSON.\n" +
	"Не вигадуй дані і не припускай того, чого немає у facts.\n" +
	"Не давай інвестиційних, кредитних або юридичних порад.\n" +
	"Не обіцяй гарантованих результатів.\n" +
	"У facts є period_facts (поточний період) і, можливо, user_profile (довгострокова норма).\n" +
	"Якщо user_profile не порожній — використай його мінімум в одній рекомендації або в summary.\n" +
	"Поверни ВИКЛЮЧНО валідний JSON без markdown: {\"summary\":...,\"changes\":[...],\"recs\":[...],\"next_step\":...}."

const repairSystemPrompt = "Ти — JSON-ремонтник. Перетвори текст у ВАЛІДНИЙ JSON за заданою схемою. " +
	"Поверни ТІЛЬКИ JSON, без markdown."

func buildUserPrompt(periodLabel string, facts analytics.Facts, prof *profile.Profile) (string, error) {
	factsJSON, err := json.Marshal(struct {
		PeriodFacts analytics.Facts   `json:"period_facts"`
		UserProfile *profile.Profile  `json:"user_profile,omitempty"`
	}{PeriodFacts: facts, UserProfile: prof})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Період: %s\n\n"+
			"Згенеруй персоналізований інсайт як JSON з полями summary, changes, recs, next_step.\n"+
			"Відсотки бери ТІЛЬКИ з category_shares_real_spend або top_merchants_shares_real_spend; не рахуй сам.\n"+
			"Не називай перекази витратами — фокусуйся на real_spend_total_uah.\n\n"+
			"facts: %s",
		periodLabel, string(factsJSON),
	), nil
}

// GenerateReport asks the model for a grounded insight, with one repair
// attempt if the first response is not valid JSON.
func (c *Client) GenerateReport(ctx context.Context, periodLabel string, facts analytics.Facts, prof *profile.Profile) (*Report, error) {
	userPrompt, err := buildUserPrompt(periodLabel, facts, prof)
	if err != nil {
		return nil, err
	}

	raw, err := c.chat(ctx, systemPrompt, userPrompt, 0.2)
	if err != nil {
		return nil, err
	}
	if rep, err := parseReport(raw); err == nil {
		return rep, nil
	}

	repairPrompt := "Виправ відповідь так, щоб це був валідний JSON об'єкт зі схемою " +
		"{summary, changes, recs, next_step}. Не повторюй проблемний текст як є, а перетвори його у JSON:\n\n" + raw
	raw2, err := c.chat(ctx, repairSystemPrompt, repairPrompt, 0.0)
	if err != nil {
		return nil, err
	}
	return parseReport(raw2)
}

// Enrich degrades gracefully: any failure (disabled client, network error,
// unparsable output) yields ok=false rather than propagating an error, so
// a caller can always fall back to the plain facts-only report.
func Enrich(ctx context.Context, c *Client, periodLabel string, facts analytics.Facts, prof *profile.Profile) (report *Report, ok bool) {
	if c == nil {
		return nil, false
	}
	rep, err := c.GenerateReport(ctx, periodLabel, facts, prof)
	if err != nil {
		return nil, false
	}
	return rep, true
}
