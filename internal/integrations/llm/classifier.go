package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"triagebot/internal/domain"
	"triagebot/internal/httpx"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

const maxBodyChars = 2000

// Decision is the model's placement of one email.
type Decision struct {
	Category   domain.Category
	Confidence float64
	Reasoning  string
}

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Classifier places emails the deterministic rules could not. A nil
// Classifier (no API key configured) is valid; Classify then returns an
// error and callers leave the item unclassified.
type Classifier struct {
	apiKey string
	model  string
}

func NewClassifier(apiKey, model string) *Classifier {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Classifier{apiKey: apiKey, model: model}
}

func (c *Classifier) Classify(ctx context.Context, e domain.Email) (Decision, Usage, error) {
	if c == nil {
		return Decision{}, Usage{}, fmt.Errorf("no classifier configured")
	}

	userPrompt := buildEmailPrompt(e)
	log.Printf("llm classify model=%s email=%d subject_len=%d", c.model, e.ID, len(e.Subject))

	responseText, usage, err := c.callAnthropic(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Decision{}, usage, err
	}

	decision, err := parseDecision(responseText)
	if err != nil {
		return Decision{}, usage, err
	}
	return decision, usage, nil
}

const systemPrompt = `You triage a single user's inbox. Assign each email exactly one category:

1: Blocking - someone is blocked waiting on the user
2: Action Required - the user must do something
3: Waiting On - the user is waiting on someone else
4: Time-Sensitive - deadline-driven, loses value if ignored
5: FYI - informational, directed at the user
6: Marketing - promotional or bulk mail
7: Notification - automated system notification
8: Calendar - meeting invite or calendar update
9: Group FYI - broadcast to a group, user not singled out
11: Travel - itineraries, bookings, check-in reminders

Respond with JSON only, no prose:
{"category_id": <int>, "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`

func buildEmailPrompt(e domain.Email) string {
	body := e.Body
	if body == "" {
		body = e.BodyPreview
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars] + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", e.FromName, e.FromAddress)
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	fmt.Fprintf(&b, "To: %d recipient(s), Cc: %d\n", len(e.ToRecipients), len(e.CcRecipients))
	if e.Importance != "" && e.Importance != domain.ImportanceNormal {
		fmt.Fprintf(&b, "Importance: %s\n", e.Importance)
	}
	if e.HasAttachments {
		b.WriteString("Has attachments\n")
	}
	b.WriteString("\n")
	b.WriteString(body)
	return b.String()
}

func (c *Classifier) callAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithHTTPClient(httpx.ExternalHTTPClient()),
	)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", Usage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := Usage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d", len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}

type rawDecision struct {
	CategoryID int     `json:"category_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func parseDecision(responseText string) (Decision, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var raw rawDecision
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		return Decision{}, fmt.Errorf("parsing LLM response: %w (response: %s)", err, responseText)
	}

	category := domain.Category(raw.CategoryID)
	if !category.IsWork() && !category.IsOther() {
		return Decision{}, fmt.Errorf("LLM returned invalid category_id %d", raw.CategoryID)
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Decision{
		Category:   category,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(raw.Reasoning),
	}, nil
}
