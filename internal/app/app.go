package app

import (
	"log"
	"time"

	"triagebot/internal/classify"
	"triagebot/internal/config"
	"triagebot/internal/domain"
	"triagebot/internal/httpx"
	"triagebot/internal/integrations/llm"
	slackbot "triagebot/internal/integrations/slack"
	"triagebot/internal/pipeline"
	"triagebot/internal/schedule"
	"triagebot/internal/scoring"
	"triagebot/internal/storage/sqlite"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. User=%s VIPs=%d TaskLimit=%d UrgencyFloor=%d Timezone=%s LLMConfidenceThreshold=%.2f ExternalHTTPTimeout=%s",
		cfg.UserAddress,
		len(cfg.VIPSenders)+len(cfg.VIPDomains),
		cfg.TaskLimit,
		cfg.UrgencyFloor,
		cfg.Timezone,
		cfg.LLMConfidence,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	rules := classify.DefaultRules()
	rules.AddVIPs(cfg.VIPSenders, cfg.VIPDomains)

	lookup := sqlite.NewLookup(db)
	scorer := scoring.NewScorer(rules, lookup, cfg.UserDomain())
	scorer.UrgencyFloor = cfg.UrgencyFloor
	scorer.StaleEscalation = !cfg.DisableStaleEscalation

	p := &pipeline.Pipeline{
		DB:     db,
		Rules:  rules,
		User:   classify.User{Address: cfg.UserAddress, FirstName: cfg.UserFirstName},
		Scorer: scorer,
		AI:     llm.NewClassifier(cfg.AnthropicAPIKey, cfg.LLMModel),
		Settings: domain.AssignSettings{
			TaskLimit:             cfg.TaskLimit,
			UrgencyFloor:          cfg.UrgencyFloor,
			TimePressureThreshold: cfg.TimePressureThreshold,
		},
		MaxItemAge:      time.Duration(cfg.MaxItemAgeDays) * 24 * time.Hour,
		ReclassifyAfter: time.Duration(cfg.ReclassifyAfterDays) * 24 * time.Hour,
		MinAIConfidence: cfg.LLMConfidence,
	}

	digest := slackbot.NewDigest(cfg.SlackBotToken, cfg.DigestChannelID)

	log.Println("Starting Inbox Triage Bot...")
	schedule.RunOnce(p, digest, time.Now().In(cfg.Location))

	if cfg.TriageSchedule == "" {
		log.Println("No triage_schedule configured, exiting after single run")
		return
	}
	schedule.StartTriageScheduler(cfg.TriageSchedule, cfg.Location, p, digest)
	select {}
}
