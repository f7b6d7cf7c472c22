package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"triagebot/internal/assign"
	"triagebot/internal/classify"
	"triagebot/internal/domain"
	"triagebot/internal/integrations/llm"
	"triagebot/internal/scoring"
	"triagebot/internal/storage/sqlite"
)

// AIClassifier is the fallback for items the rules cannot place. A nil
// *llm.Classifier satisfies it and reports itself unavailable.
type AIClassifier interface {
	Classify(ctx context.Context, e domain.Email) (llm.Decision, llm.Usage, error)
}

type Pipeline struct {
	DB     *sql.DB
	Rules  *classify.Rules
	User   classify.User
	Scorer *scoring.Scorer
	AI     AIClassifier

	Settings        domain.AssignSettings
	MaxItemAge      time.Duration
	ReclassifyAfter time.Duration
	MinAIConfidence float64
}

// Report is one run's phase summary.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Candidates    int
	Deterministic int
	Overridden    int
	AIClassified  int
	Unclassified  int
	Scored        int
	ForcedToday   int
	FloorCount    int
	Errors        int

	Categories map[string]int
	Assignment domain.AssignmentSummary
	Usage      llm.Usage
}

func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary renders the one-line run digest.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "triage run: %d candidates, %d rule-classified, %d overridden, %d ai-classified, %d left unclassified, %d scored",
		r.Candidates, r.Deterministic, r.Overridden, r.AIClassified, r.Unclassified, r.Scored)
	fmt.Fprintf(&b, ", %d today (%d floor, %d forced)", r.Assignment.BySlot[domain.SlotToday], r.FloorCount, r.ForcedToday)
	if r.Errors > 0 {
		fmt.Fprintf(&b, ", %d errors", r.Errors)
	}
	fmt.Fprintf(&b, " in %s", r.Duration().Round(time.Millisecond))
	return b.String()
}

// Run executes one full triage pass: load candidates, classify, check
// overrides, fall back to the AI for the rest, score Work items, assign due
// dates. Each item commits independently; a failure logs and moves on.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{StartedAt: now, Categories: map[string]int{}}

	reclassifyBefore := now.Add(-p.ReclassifyAfter)
	candidates, err := sqlite.GetTriageCandidates(p.DB, now, p.MaxItemAge, reclassifyBefore)
	if err != nil {
		return nil, fmt.Errorf("loading triage candidates: %w", err)
	}
	report.Candidates = len(candidates)
	log.Printf("pipeline: %d candidates", len(candidates))

	lookup := sqlite.NewLookup(p.DB)

	// Phase 1: deterministic rules, with an immediate override check on
	// anything the rules filed as non-work.
	var needAI []domain.Email
	for i := range candidates {
		e := &candidates[i]
		cls := classify.Deterministic(*e, p.User.Address, p.Rules)
		if cls == nil {
			needAI = append(needAI, *e)
			continue
		}

		override := classify.CheckOverride(*e, cls.Category, p.User, lookup, p.Rules)
		if override.Override {
			report.Overridden++
			if err := p.recordOverride(e, cls, override); err != nil {
				p.itemError(report, e.ID, "override", err)
			}
			needAI = append(needAI, *e)
			continue
		}

		if err := p.recordClassification(e, cls.Category, cls.Confidence, cls.Rule, domain.ClassifierDeterministic, now); err != nil {
			p.itemError(report, e.ID, "classify", err)
			continue
		}
		report.Deterministic++
		report.Categories[cls.Category.Label()]++
	}

	// Phase 2: AI fallback for everything the rules left open.
	for i := range needAI {
		e := &needAI[i]
		decision, usage, err := p.AI.Classify(ctx, *e)
		report.Usage.Add(usage)
		if err != nil {
			log.Printf("pipeline: ai classify email=%d: %v", e.ID, err)
			report.Unclassified++
			continue
		}
		if decision.Confidence < p.MinAIConfidence {
			log.Printf("pipeline: ai confidence %.2f below %.2f email=%d, leaving unclassified", decision.Confidence, p.MinAIConfidence, e.ID)
			report.Unclassified++
			continue
		}
		if err := p.recordClassification(e, decision.Category, decision.Confidence, "ai:"+decision.Reasoning, domain.ClassifierAI, now); err != nil {
			p.itemError(report, e.ID, "ai classify", err)
			continue
		}
		report.AIClassified++
		report.Categories[decision.Category.Label()]++
	}

	// Phase 3: score Work items; clear scores on anything filed as Other.
	// The needAI copies carry the fresher state for items that went through
	// phase 2, so they go first and win the dedupe.
	classified := append(append([]domain.Email{}, needAI...), candidates...)
	var scored []domain.ScoredItem
	seen := map[int64]bool{}
	for i := range classified {
		e := &classified[i]
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true

		if !e.Category.IsWork() {
			if e.Category.IsOther() {
				if err := p.clearScoring(e.ID); err != nil {
					p.itemError(report, e.ID, "clear scoring", err)
				}
			}
			continue
		}

		result := p.Scorer.Score(*e, e.Category, now)
		if err := sqlite.UpsertUrgencyScore(p.DB, e.ID, result); err != nil {
			p.itemError(report, e.ID, "persist score", err)
			continue
		}
		if err := sqlite.UpdateUrgencyScore(p.DB, e.ID, result.UrgencyScore); err != nil {
			p.itemError(report, e.ID, "persist score", err)
			continue
		}
		report.Scored++
		if result.ForceToday {
			report.ForcedToday++
		}
		scored = append(scored, domain.ScoredItem{
			EmailID:       e.ID,
			UrgencyScore:  result.UrgencyScore,
			FloorOverride: result.FloorOverride,
			ForceToday:    result.ForceToday,
		})
	}

	// Phase 4: whole-batch due-date assignment.
	assignments := assign.DueDates(scored, p.Settings, now)
	dueDates := make(map[int64]*time.Time, len(assignments))
	for _, a := range assignments {
		dueDates[a.EmailID] = a.DueDate
		if a.Pool == domain.PoolFloor {
			report.FloorCount++
		}
	}
	if len(dueDates) > 0 {
		if err := sqlite.UpdateDueDates(p.DB, dueDates); err != nil {
			log.Printf("pipeline: persisting due dates: %v", err)
			report.Errors++
		}
	}
	report.Assignment = assign.Summarize(assignments, p.Settings.TaskLimit)
	if report.Assignment.FloorOverflow {
		log.Printf("pipeline: floor pool (%d) exceeds task limit (%d), today is oversubscribed", report.FloorCount, p.Settings.TaskLimit)
	}

	report.FinishedAt = time.Now()
	if report.FinishedAt.Before(now) {
		report.FinishedAt = now
	}
	log.Printf("pipeline: %s", report.Summary())
	return report, nil
}

func (p *Pipeline) recordClassification(e *domain.Email, category domain.Category, confidence float64, rule, classifierType string, now time.Time) error {
	if err := sqlite.UpdateClassification(p.DB, e.ID, category, confidence, classifierType, now); err != nil {
		return err
	}
	e.Category = category
	e.Confidence = confidence
	e.ClassifierType = classifierType
	e.Status = domain.StatusClassified
	return sqlite.InsertClassificationLog(p.DB, []domain.ClassificationRecord{{
		EmailID:        e.ID,
		Category:       category,
		Rule:           rule,
		ClassifierType: classifierType,
		Confidence:     confidence,
	}})
}

func (p *Pipeline) recordOverride(e *domain.Email, cls *domain.Classification, override domain.OverrideResult) error {
	log.Printf("pipeline: override email=%d category=%s trigger=%s", e.ID, cls.Category.Label(), override.Trigger)
	if err := sqlite.InsertOverrideLog(p.DB, domain.OverrideRecord{
		EmailID:          e.ID,
		OriginalCategory: cls.Category,
		Trigger:          override.Trigger,
		Reason:           override.Reason,
	}); err != nil {
		return err
	}
	return sqlite.ResetClassification(p.DB, e.ID)
}

// clearScoring drops score and due date for items that landed outside the
// Work buckets.
func (p *Pipeline) clearScoring(id int64) error {
	if err := sqlite.UpdateUrgencyScore(p.DB, id, 0); err != nil {
		return err
	}
	return sqlite.UpdateDueDates(p.DB, map[int64]*time.Time{id: nil})
}

func (p *Pipeline) itemError(report *Report, id int64, phase string, err error) {
	log.Printf("pipeline: %s email=%d: %v", phase, id, err)
	report.Errors++
}
