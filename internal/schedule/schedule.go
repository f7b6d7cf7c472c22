package schedule

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	slackbot "triagebot/internal/integrations/slack"
	"triagebot/internal/pipeline"
)

// StartTriageScheduler runs the pipeline on a cron schedule and posts the
// digest after each run. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 7 * * *" (daily 7am), "0 7,12 * * 1-5" (weekdays 7am and noon).
func StartTriageScheduler(schedule string, loc *time.Location, p *pipeline.Pipeline, digest *slackbot.Digest) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("Scheduled triage disabled (triage_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid triage_schedule '%s': %v — scheduled triage disabled", schedule, err)
		return
	}
	log.Printf("Triage scheduled (cron: %s, tz: %s)", schedule, loc)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next triage run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			RunOnce(p, digest, time.Now().In(loc))
		}
	}()
}

// RunOnce executes a single pipeline pass and posts the digest.
func RunOnce(p *pipeline.Pipeline, digest *slackbot.Digest, now time.Time) {
	report, err := p.Run(context.Background(), now)
	if err != nil {
		log.Printf("Triage run error: %v", err)
		return
	}
	if postErr := digest.Post(report); postErr != nil {
		log.Printf("Triage digest post error: %v", postErr)
	}
}
