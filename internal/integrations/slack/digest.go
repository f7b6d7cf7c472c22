package slack

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"triagebot/internal/domain"
	"triagebot/internal/httpx"
	"triagebot/internal/pipeline"
)

// Digest posts a one-message triage summary after each pipeline run. A nil
// Digest is valid and posts nothing.
type Digest struct {
	api       *slack.Client
	channelID string
}

func NewDigest(botToken, channelID string) *Digest {
	if botToken == "" || channelID == "" {
		return nil
	}
	return &Digest{
		api:       slack.New(botToken, slack.OptionHTTPClient(httpx.ExternalHTTPClient())),
		channelID: channelID,
	}
}

func (d *Digest) Post(report *pipeline.Report) error {
	if d == nil {
		return nil
	}

	header, body := formatDigest(report)
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, header, false, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, body, false, false),
			nil, nil,
		),
	}

	_, _, err := d.api.PostMessage(d.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(report.Summary(), false),
	)
	if err != nil {
		log.Printf("digest post error: %v", err)
		return fmt.Errorf("posting digest: %w", err)
	}
	log.Printf("digest posted channel=%s", d.channelID)
	return nil
}

func formatDigest(report *pipeline.Report) (string, string) {
	header := fmt.Sprintf("Inbox triage — %s", report.StartedAt.Format("Mon Jan 2 15:04"))

	var b strings.Builder
	fmt.Fprintf(&b, "*%d* items processed in %s\n", report.Candidates, report.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "• Rules: %d   • AI: %d   • Overridden: %d   • Left for next run: %d\n",
		report.Deterministic, report.AIClassified, report.Overridden, report.Unclassified)

	if len(report.Categories) > 0 {
		labels := make([]string, 0, len(report.Categories))
		for label := range report.Categories {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		var parts []string
		for _, label := range labels {
			parts = append(parts, fmt.Sprintf("%s %d", label, report.Categories[label]))
		}
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(parts, ", "))
	}

	if report.Scored > 0 {
		fmt.Fprintf(&b, "Scheduled: %d today, %d tomorrow, %d this week, %d next week, %d undated\n",
			report.Assignment.BySlot[domain.SlotToday],
			report.Assignment.BySlot[domain.SlotTomorrow],
			report.Assignment.BySlot[domain.SlotThisWeek],
			report.Assignment.BySlot[domain.SlotNextWeek],
			report.Assignment.BySlot[domain.SlotNoDate],
		)
		if report.Assignment.FloorOverflow {
			b.WriteString(":warning: floor pool exceeds the daily task limit\n")
		}
	}

	if report.Errors > 0 {
		fmt.Fprintf(&b, ":warning: %d item errors, see logs\n", report.Errors)
	}
	if report.Usage.TotalTokens() > 0 {
		fmt.Fprintf(&b, "_LLM tokens: %d in / %d out_", report.Usage.InputTokens, report.Usage.OutputTokens)
	}
	return header, strings.TrimRight(b.String(), "\n")
}
