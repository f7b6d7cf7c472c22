package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"triagebot/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "triagebot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitDBHasFolderColumn(t *testing.T) {
	db := newTestDB(t)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('emails') WHERE name = 'folder'`).Scan(&count); err != nil {
		t.Fatalf("query pragma_table_info failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected folder column to exist, count=%d", count)
	}
}

func TestEmailRoundTrip(t *testing.T) {
	db := newTestDB(t)
	received := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	e := domain.Email{
		MessageID:      "msg-1",
		FromAddress:    "alice@corp.example",
		FromName:       "Alice",
		Subject:        "Quarterly numbers",
		Body:           "Can you review before Friday?",
		BodyPreview:    "Can you review",
		ReceivedAt:     received,
		Importance:     domain.ImportanceHigh,
		ConversationID: "conv-1",
		ToRecipients:   []domain.Recipient{{Address: "me@corp.example", Name: "Me"}},
		CcRecipients:   []domain.Recipient{{Address: "bob@corp.example"}},
		HasAttachments: true,
		Headers:        map[string]string{"List-Unsubscribe": ""},
	}
	id, err := InsertEmail(db, e)
	if err != nil {
		t.Fatalf("InsertEmail failed: %v", err)
	}

	got, err := GetEmailByID(db, id)
	if err != nil {
		t.Fatalf("GetEmailByID failed: %v", err)
	}
	if got.MessageID != "msg-1" || got.FromAddress != "alice@corp.example" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.ReceivedAt.Equal(received) {
		t.Fatalf("received_at = %v, want %v", got.ReceivedAt, received)
	}
	if len(got.ToRecipients) != 1 || got.ToRecipients[0].Address != "me@corp.example" {
		t.Fatalf("to recipients not preserved: %+v", got.ToRecipients)
	}
	if len(got.CcRecipients) != 1 {
		t.Fatalf("cc recipients not preserved: %+v", got.CcRecipients)
	}
	if !got.HasAttachments {
		t.Fatal("has_attachments not preserved")
	}
	if got.Status != domain.StatusUnprocessed {
		t.Fatalf("status = %q, want unprocessed", got.Status)
	}
	if got.DueDate != nil {
		t.Fatalf("fresh row has due date %v", got.DueDate)
	}

	exists, err := MessageIDExists(db, "msg-1")
	if err != nil || !exists {
		t.Fatalf("MessageIDExists = %v, %v", exists, err)
	}
}

func TestInsertEmailsSkipsDuplicates(t *testing.T) {
	db := newTestDB(t)
	received := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	batch := []domain.Email{
		{MessageID: "m1", FromAddress: "a@x.example", ReceivedAt: received},
		{MessageID: "m2", FromAddress: "b@x.example", ReceivedAt: received},
	}
	if n, err := InsertEmails(db, batch); err != nil || n != 2 {
		t.Fatalf("first batch: n=%d err=%v", n, err)
	}
	// Same message ids again: nothing new.
	if n, err := InsertEmails(db, batch); err != nil || n != 0 {
		t.Fatalf("second batch: n=%d err=%v, want 0", n, err)
	}
}

func TestGetTriageCandidates(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	maxAge := 45 * 24 * time.Hour
	reclassifyBefore := now.Add(-3 * 24 * time.Hour)

	fresh := domain.Email{MessageID: "fresh", FromAddress: "a@x.example", ReceivedAt: now.Add(-2 * time.Hour)}
	ancient := domain.Email{MessageID: "ancient", FromAddress: "a@x.example", ReceivedAt: now.Add(-50 * 24 * time.Hour)}
	freshID, err := InsertEmail(db, fresh)
	if err != nil {
		t.Fatalf("insert fresh: %v", err)
	}
	if _, err := InsertEmail(db, ancient); err != nil {
		t.Fatalf("insert ancient: %v", err)
	}

	recentID, err := InsertEmail(db, domain.Email{MessageID: "recent-classified", FromAddress: "a@x.example", ReceivedAt: now.Add(-4 * time.Hour)})
	if err != nil {
		t.Fatalf("insert recent-classified: %v", err)
	}
	if err := UpdateClassification(db, recentID, domain.CategoryFYI, 0.9, domain.ClassifierDeterministic, now.Add(-1*time.Hour)); err != nil {
		t.Fatalf("UpdateClassification failed: %v", err)
	}

	staleID, err := InsertEmail(db, domain.Email{MessageID: "stale-classified", FromAddress: "a@x.example", ReceivedAt: now.Add(-10 * 24 * time.Hour)})
	if err != nil {
		t.Fatalf("insert stale-classified: %v", err)
	}
	if err := UpdateClassification(db, staleID, domain.CategoryFYI, 0.9, domain.ClassifierDeterministic, now.Add(-5*24*time.Hour)); err != nil {
		t.Fatalf("UpdateClassification failed: %v", err)
	}

	if _, err := InsertSentEmail(db, domain.Email{MessageID: "sent", FromAddress: "me@x.example", ReceivedAt: now.Add(-1 * time.Hour)}); err != nil {
		t.Fatalf("InsertSentEmail failed: %v", err)
	}

	candidates, err := GetTriageCandidates(db, now, maxAge, reclassifyBefore)
	if err != nil {
		t.Fatalf("GetTriageCandidates failed: %v", err)
	}
	got := map[string]bool{}
	for _, c := range candidates {
		got[c.MessageID] = true
	}
	if len(candidates) != 2 || !got["fresh"] || !got["stale-classified"] {
		t.Fatalf("candidates = %v, want fresh + stale-classified", got)
	}
	_ = freshID
}

func TestUpdateAndResetClassification(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := InsertEmail(db, domain.Email{MessageID: "m1", FromAddress: "a@x.example", ReceivedAt: now})
	if err != nil {
		t.Fatalf("InsertEmail failed: %v", err)
	}

	if err := UpdateClassification(db, id, domain.CategoryMarketing, 0.85, domain.ClassifierDeterministic, now); err != nil {
		t.Fatalf("UpdateClassification failed: %v", err)
	}
	got, err := GetEmailByID(db, id)
	if err != nil {
		t.Fatalf("GetEmailByID failed: %v", err)
	}
	if got.Category != domain.CategoryMarketing || got.Status != domain.StatusClassified {
		t.Fatalf("after classify: %+v", got)
	}
	if got.ClassifierType != domain.ClassifierDeterministic || got.Confidence != 0.85 {
		t.Fatalf("classifier fields: %+v", got)
	}

	if err := ResetClassification(db, id); err != nil {
		t.Fatalf("ResetClassification failed: %v", err)
	}
	got, err = GetEmailByID(db, id)
	if err != nil {
		t.Fatalf("GetEmailByID failed: %v", err)
	}
	if got.Category != domain.CategoryNone || got.Status != domain.StatusUnprocessed || got.Confidence != 0 {
		t.Fatalf("after reset: %+v", got)
	}
}

func TestDueDateAndScoreUpdates(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	id1, _ := InsertEmail(db, domain.Email{MessageID: "m1", FromAddress: "a@x.example", ReceivedAt: now})
	id2, _ := InsertEmail(db, domain.Email{MessageID: "m2", FromAddress: "b@x.example", ReceivedAt: now})

	due := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if err := UpdateDueDates(db, map[int64]*time.Time{id1: &due, id2: nil}); err != nil {
		t.Fatalf("UpdateDueDates failed: %v", err)
	}
	if err := UpdateUrgencyScore(db, id1, 72); err != nil {
		t.Fatalf("UpdateUrgencyScore failed: %v", err)
	}

	got, err := GetEmailByID(db, id1)
	if err != nil {
		t.Fatalf("GetEmailByID failed: %v", err)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date = %v, want %v", got.DueDate, due)
	}
	if got.UrgencyScore != 72 {
		t.Fatalf("urgency score = %d, want 72", got.UrgencyScore)
	}

	got2, err := GetEmailByID(db, id2)
	if err != nil {
		t.Fatalf("GetEmailByID failed: %v", err)
	}
	if got2.DueDate != nil {
		t.Fatalf("nil due date written as %v", got2.DueDate)
	}
}

func TestClassificationAndOverrideLogs(t *testing.T) {
	db := newTestDB(t)

	records := []domain.ClassificationRecord{
		{EmailID: 1, Category: domain.CategoryMarketing, Rule: "sender_pattern:^noreply@", ClassifierType: domain.ClassifierDeterministic, Confidence: 0.85},
		{EmailID: 1, Category: domain.CategoryActionRequired, Rule: "ai", ClassifierType: domain.ClassifierAI, Confidence: 0.7},
	}
	if err := InsertClassificationLog(db, records); err != nil {
		t.Fatalf("InsertClassificationLog failed: %v", err)
	}
	if err := InsertClassificationLog(db, nil); err != nil {
		t.Fatalf("empty log batch must be a no-op: %v", err)
	}

	log, err := GetClassificationLog(db, 1)
	if err != nil {
		t.Fatalf("GetClassificationLog failed: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("got %d log rows, want 2", len(log))
	}
	if log[0].Category != domain.CategoryMarketing || log[1].ClassifierType != domain.ClassifierAI {
		t.Fatalf("rows out of order: %+v", log)
	}

	if err := InsertOverrideLog(db, domain.OverrideRecord{
		EmailID:          1,
		OriginalCategory: domain.CategoryMarketing,
		Trigger:          domain.TriggerVIPSender,
		Reason:           "sender is a configured VIP",
	}); err != nil {
		t.Fatalf("InsertOverrideLog failed: %v", err)
	}
	overrides, err := GetOverrideLog(db, 1)
	if err != nil {
		t.Fatalf("GetOverrideLog failed: %v", err)
	}
	if len(overrides) != 1 || overrides[0].Trigger != domain.TriggerVIPSender {
		t.Fatalf("override rows: %+v", overrides)
	}
	if overrides[0].OriginalCategory != domain.CategoryMarketing {
		t.Fatalf("original category = %v", overrides[0].OriginalCategory)
	}
}

func TestUpsertUrgencyScoreReplaces(t *testing.T) {
	db := newTestDB(t)

	first := domain.ScoreResult{
		UrgencyScore:  40,
		RawScore:      40,
		AdjustedScore: 40,
		Signals:       map[string]int{"explicit_deadline": 55},
		Breakdown:     map[string]float64{"explicit_deadline": 13.75},
	}
	if err := UpsertUrgencyScore(db, 7, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := first
	second.UrgencyScore = 92
	second.StaleBonus = 50
	second.StaleDays = 10
	second.FloorOverride = true
	if err := UpsertUrgencyScore(db, 7, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := GetUrgencyScore(db, 7)
	if err != nil {
		t.Fatalf("GetUrgencyScore failed: %v", err)
	}
	if got.UrgencyScore != 92 || got.StaleBonus != 50 || !got.FloorOverride {
		t.Fatalf("upsert did not replace: %+v", got)
	}
	if got.Signals["explicit_deadline"] != 55 {
		t.Fatalf("signals not preserved: %+v", got.Signals)
	}

	var rowCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM urgency_scores WHERE email_id = 7`).Scan(&rowCount); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("got %d score rows, want 1", rowCount)
	}
}

func TestLookupQueries(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	since := now.Add(-24 * time.Hour)

	inConv := func(msgID string, at time.Time) domain.Email {
		return domain.Email{MessageID: msgID, FromAddress: "alice@x.example", ConversationID: "conv-1", ReceivedAt: at}
	}
	if _, err := InsertEmail(db, inConv("t1", now.Add(-2*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if _, err := InsertEmail(db, inConv("t2", now.Add(-5*time.Hour))); err != nil {
		t.Fatal(err)
	}
	// Outside the window.
	if _, err := InsertEmail(db, inConv("t3", now.Add(-30*time.Hour))); err != nil {
		t.Fatal(err)
	}
	// Different conversation.
	if _, err := InsertEmail(db, domain.Email{MessageID: "o1", FromAddress: "bob@x.example", ConversationID: "conv-2", ReceivedAt: now.Add(-1 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	lookup := NewLookup(db)
	count, err := lookup.CountRecent("conv-1", since)
	if err != nil {
		t.Fatalf("CountRecent failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountRecent = %d, want 2", count)
	}
	if count, _ := lookup.CountRecent("", since); count != 0 {
		t.Fatalf("empty conversation id counted %d", count)
	}

	sent, err := lookup.UserHasSent("conv-1", "me@x.example")
	if err != nil {
		t.Fatalf("UserHasSent failed: %v", err)
	}
	if sent {
		t.Fatal("user has not sent in conv-1 yet")
	}

	if _, err := InsertSentEmail(db, domain.Email{MessageID: "s1", FromAddress: "Me@x.example", ConversationID: "conv-1", ReceivedAt: now.Add(-3 * time.Hour)}); err != nil {
		t.Fatalf("InsertSentEmail failed: %v", err)
	}
	sent, err = lookup.UserHasSent("conv-1", "me@x.example")
	if err != nil {
		t.Fatalf("UserHasSent failed: %v", err)
	}
	if !sent {
		t.Fatal("case-insensitive sender match expected")
	}
	if sent, _ := lookup.UserHasSent("conv-2", "me@x.example"); sent {
		t.Fatal("participation must be scoped to the conversation")
	}
}
