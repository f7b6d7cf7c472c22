package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"triagebot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS emails (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id      TEXT NOT NULL UNIQUE,
		from_address    TEXT NOT NULL,
		from_name       TEXT DEFAULT '',
		subject         TEXT DEFAULT '',
		body            TEXT DEFAULT '',
		body_preview    TEXT DEFAULT '',
		received_at     DATETIME,
		importance      TEXT DEFAULT 'normal',
		conversation_id TEXT DEFAULT '',
		to_recipients   TEXT DEFAULT '[]',
		cc_recipients   TEXT DEFAULT '[]',
		has_attachments INTEGER DEFAULT 0,
		headers         TEXT DEFAULT '{}',
		folder          TEXT DEFAULT 'inbox',
		category        INTEGER DEFAULT 0,
		confidence      REAL DEFAULT 0,
		classifier_type TEXT DEFAULT '',
		urgency_score   INTEGER DEFAULT 0,
		due_date        DATETIME,
		status          TEXT DEFAULT 'unprocessed',
		classified_at   DATETIME,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at);
	CREATE INDEX IF NOT EXISTS idx_emails_conversation ON emails(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_emails_status ON emails(status);

	CREATE TABLE IF NOT EXISTS classification_log (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		email_id        INTEGER NOT NULL,
		category        INTEGER NOT NULL,
		rule            TEXT DEFAULT '',
		classifier_type TEXT DEFAULT '',
		confidence      REAL NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_cl_email ON classification_log(email_id);
	CREATE INDEX IF NOT EXISTS idx_cl_date ON classification_log(created_at);

	CREATE TABLE IF NOT EXISTS override_log (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		email_id          INTEGER NOT NULL,
		original_category INTEGER NOT NULL,
		trigger_name      TEXT NOT NULL,
		reason            TEXT DEFAULT '',
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ol_email ON override_log(email_id);

	CREATE TABLE IF NOT EXISTS urgency_scores (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		email_id       INTEGER NOT NULL UNIQUE,
		urgency_score  INTEGER NOT NULL,
		raw_score      REAL NOT NULL,
		adjusted_score REAL NOT NULL,
		stale_bonus    INTEGER DEFAULT 0,
		stale_days     INTEGER DEFAULT 0,
		force_today    INTEGER DEFAULT 0,
		floor_override INTEGER DEFAULT 0,
		signals        TEXT DEFAULT '{}',
		breakdown      TEXT DEFAULT '{}',
		scored_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Migration: add folder column if missing.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('emails') WHERE name = 'folder'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE emails ADD COLUMN folder TEXT DEFAULT 'inbox'`)
	}

	return db, nil
}

const emailColumns = `id, message_id, from_address, from_name, subject, body, body_preview,
	received_at, importance, conversation_id, to_recipients, cc_recipients,
	has_attachments, headers, category, confidence, classifier_type,
	urgency_score, due_date, status`

func InsertEmail(db *sql.DB, e domain.Email) (int64, error) {
	to, cc, headers := encodeLists(e)
	res, err := db.Exec(
		`INSERT INTO emails (message_id, from_address, from_name, subject, body, body_preview,
		   received_at, importance, conversation_id, to_recipients, cc_recipients,
		   has_attachments, headers, category, confidence, classifier_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.MessageID, e.FromAddress, e.FromName, e.Subject, e.Body, e.BodyPreview,
		nullTime(e.ReceivedAt), e.Importance, e.ConversationID, to, cc,
		e.HasAttachments, headers, int(e.Category), e.Confidence, e.ClassifierType,
		statusOrDefault(e.Status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func InsertEmails(db *sql.DB, emails []domain.Email) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO emails (message_id, from_address, from_name, subject, body, body_preview,
		   received_at, importance, conversation_id, to_recipients, cc_recipients,
		   has_attachments, headers, category, confidence, classifier_type, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range emails {
		to, cc, headers := encodeLists(e)
		res, err := stmt.Exec(
			e.MessageID, e.FromAddress, e.FromName, e.Subject, e.Body, e.BodyPreview,
			nullTime(e.ReceivedAt), e.Importance, e.ConversationID, to, cc,
			e.HasAttachments, headers, int(e.Category), e.Confidence, e.ClassifierType,
			statusOrDefault(e.Status),
		)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// InsertSentEmail records a message the user sent, kept for reply-chain
// participation checks. Sent items never enter the triage pipeline.
func InsertSentEmail(db *sql.DB, e domain.Email) (int64, error) {
	to, cc, headers := encodeLists(e)
	res, err := db.Exec(
		`INSERT INTO emails (message_id, from_address, from_name, subject, body, body_preview,
		   received_at, importance, conversation_id, to_recipients, cc_recipients,
		   has_attachments, headers, folder, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'sent', 'classified')`,
		e.MessageID, e.FromAddress, e.FromName, e.Subject, e.Body, e.BodyPreview,
		nullTime(e.ReceivedAt), e.Importance, e.ConversationID, to, cc,
		e.HasAttachments, headers,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func MessageIDExists(db *sql.DB, messageID string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM emails WHERE message_id = ?", messageID).Scan(&count)
	return count > 0, err
}

func GetEmailByID(db *sql.DB, id int64) (domain.Email, error) {
	row := db.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id)
	return scanEmail(row)
}

// GetTriageCandidates returns inbox items eligible for a pipeline run: not
// older than maxAge, and either never classified or last classified before
// reclassifyBefore.
func GetTriageCandidates(db *sql.DB, now time.Time, maxAge time.Duration, reclassifyBefore time.Time) ([]domain.Email, error) {
	cutoff := now.Add(-maxAge)
	rows, err := db.Query(
		`SELECT `+emailColumns+` FROM emails
		 WHERE folder = 'inbox' AND received_at >= ?
		   AND (status = 'unprocessed' OR classified_at IS NULL OR classified_at < ?)
		 ORDER BY received_at DESC, id DESC`,
		cutoff, reclassifyBefore,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmails(rows)
}

func GetEmailsByStatus(db *sql.DB, status string) ([]domain.Email, error) {
	rows, err := db.Query(
		`SELECT `+emailColumns+` FROM emails WHERE folder = 'inbox' AND status = ? ORDER BY received_at DESC, id DESC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmails(rows)
}

// UpdateClassification writes a classification decision back and stamps
// classified_at.
func UpdateClassification(db *sql.DB, id int64, category domain.Category, confidence float64, classifierType string, at time.Time) error {
	_, err := db.Exec(
		`UPDATE emails
		 SET category = ?, confidence = ?, classifier_type = ?, status = ?, classified_at = ?
		 WHERE id = ?`,
		int(category), confidence, classifierType, domain.StatusClassified, at, id,
	)
	return err
}

// ResetClassification reverts an item to unprocessed after an override.
func ResetClassification(db *sql.DB, id int64) error {
	_, err := db.Exec(
		`UPDATE emails
		 SET category = 0, confidence = 0, classifier_type = '', status = ?, classified_at = NULL
		 WHERE id = ?`,
		domain.StatusUnprocessed, id,
	)
	return err
}

func UpdateDueDates(db *sql.DB, dueDates map[int64]*time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE emails SET due_date = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, due := range dueDates {
		var v interface{}
		if due != nil {
			v = *due
		}
		if _, err := stmt.Exec(v, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func UpdateUrgencyScore(db *sql.DB, id int64, score int) error {
	_, err := db.Exec("UPDATE emails SET urgency_score = ? WHERE id = ?", score, id)
	return err
}

// --- Classification Log ---

func InsertClassificationLog(db *sql.DB, records []domain.ClassificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO classification_log (email_id, category, rule, classifier_type, confidence)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.EmailID, int(r.Category), r.Rule, r.ClassifierType, r.Confidence); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func GetClassificationLog(db *sql.DB, emailID int64) ([]domain.ClassificationRecord, error) {
	rows, err := db.Query(
		`SELECT id, email_id, category, rule, classifier_type, confidence, created_at
		 FROM classification_log WHERE email_id = ? ORDER BY id`,
		emailID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassificationRecord
	for rows.Next() {
		var r domain.ClassificationRecord
		var cat int
		if err := rows.Scan(&r.ID, &r.EmailID, &cat, &r.Rule, &r.ClassifierType, &r.Confidence, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Category = domain.Category(cat)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Override Log ---

func InsertOverrideLog(db *sql.DB, r domain.OverrideRecord) error {
	_, err := db.Exec(
		`INSERT INTO override_log (email_id, original_category, trigger_name, reason)
		 VALUES (?, ?, ?, ?)`,
		r.EmailID, int(r.OriginalCategory), r.Trigger, r.Reason,
	)
	return err
}

func GetOverrideLog(db *sql.DB, emailID int64) ([]domain.OverrideRecord, error) {
	rows, err := db.Query(
		`SELECT id, email_id, original_category, trigger_name, reason, created_at
		 FROM override_log WHERE email_id = ? ORDER BY id`,
		emailID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OverrideRecord
	for rows.Next() {
		var r domain.OverrideRecord
		var cat int
		if err := rows.Scan(&r.ID, &r.EmailID, &cat, &r.Trigger, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.OriginalCategory = domain.Category(cat)
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Urgency Scores ---

// UpsertUrgencyScore keeps one row per email, replaced on re-score.
func UpsertUrgencyScore(db *sql.DB, emailID int64, r domain.ScoreResult) error {
	signals, _ := json.Marshal(r.Signals)
	breakdown, _ := json.Marshal(r.Breakdown)
	_, err := db.Exec(
		`INSERT INTO urgency_scores
		   (email_id, urgency_score, raw_score, adjusted_score, stale_bonus, stale_days,
		    force_today, floor_override, signals, breakdown, scored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(email_id) DO UPDATE SET
		   urgency_score = excluded.urgency_score,
		   raw_score = excluded.raw_score,
		   adjusted_score = excluded.adjusted_score,
		   stale_bonus = excluded.stale_bonus,
		   stale_days = excluded.stale_days,
		   force_today = excluded.force_today,
		   floor_override = excluded.floor_override,
		   signals = excluded.signals,
		   breakdown = excluded.breakdown,
		   scored_at = CURRENT_TIMESTAMP`,
		emailID, r.UrgencyScore, r.RawScore, r.AdjustedScore, r.StaleBonus, r.StaleDays,
		r.ForceToday, r.FloorOverride, string(signals), string(breakdown),
	)
	return err
}

func GetUrgencyScore(db *sql.DB, emailID int64) (domain.ScoreResult, error) {
	var r domain.ScoreResult
	var signals, breakdown string
	err := db.QueryRow(
		`SELECT urgency_score, raw_score, adjusted_score, stale_bonus, stale_days,
		        force_today, floor_override, signals, breakdown
		 FROM urgency_scores WHERE email_id = ?`,
		emailID,
	).Scan(&r.UrgencyScore, &r.RawScore, &r.AdjustedScore, &r.StaleBonus, &r.StaleDays,
		&r.ForceToday, &r.FloorOverride, &signals, &breakdown)
	if err != nil {
		return r, err
	}
	_ = json.Unmarshal([]byte(signals), &r.Signals)
	_ = json.Unmarshal([]byte(breakdown), &r.Breakdown)
	return r, nil
}

// --- helpers ---

func encodeLists(e domain.Email) (to, cc, headers string) {
	toB, _ := json.Marshal(recipientsOrEmpty(e.ToRecipients))
	ccB, _ := json.Marshal(recipientsOrEmpty(e.CcRecipients))
	h := e.Headers
	if h == nil {
		h = map[string]string{}
	}
	hB, _ := json.Marshal(h)
	return string(toB), string(ccB), string(hB)
}

func recipientsOrEmpty(rs []domain.Recipient) []domain.Recipient {
	if rs == nil {
		return []domain.Recipient{}
	}
	return rs
}

func statusOrDefault(status string) string {
	if status == "" {
		return domain.StatusUnprocessed
	}
	return status
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmail(row rowScanner) (domain.Email, error) {
	var e domain.Email
	var received, due sql.NullTime
	var to, cc, headers string
	var cat int
	err := row.Scan(
		&e.ID, &e.MessageID, &e.FromAddress, &e.FromName, &e.Subject, &e.Body,
		&e.BodyPreview, &received, &e.Importance, &e.ConversationID, &to, &cc,
		&e.HasAttachments, &headers, &cat, &e.Confidence, &e.ClassifierType,
		&e.UrgencyScore, &due, &e.Status,
	)
	if err != nil {
		return e, err
	}
	e.Category = domain.Category(cat)
	if received.Valid {
		e.ReceivedAt = received.Time
	}
	if due.Valid {
		d := due.Time
		e.DueDate = &d
	}
	_ = json.Unmarshal([]byte(to), &e.ToRecipients)
	_ = json.Unmarshal([]byte(cc), &e.CcRecipients)
	_ = json.Unmarshal([]byte(headers), &e.Headers)
	return e, nil
}

func scanEmails(rows *sql.Rows) ([]domain.Email, error) {
	var out []domain.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
