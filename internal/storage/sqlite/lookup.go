package sqlite

import (
	"database/sql"
	"time"
)

// Lookup answers thread-history queries against the emails table. Sent mail
// is synced into the same table under folder 'sent', so reply-chain
// participation is a plain sender match within the conversation.
type Lookup struct {
	DB *sql.DB
}

func NewLookup(db *sql.DB) *Lookup {
	return &Lookup{DB: db}
}

func (l *Lookup) CountRecent(conversationID string, since time.Time) (int, error) {
	if conversationID == "" {
		return 0, nil
	}
	var count int
	err := l.DB.QueryRow(
		`SELECT COUNT(*) FROM emails WHERE conversation_id = ? AND received_at >= ?`,
		conversationID, since,
	).Scan(&count)
	return count, err
}

func (l *Lookup) UserHasSent(conversationID, userAddress string) (bool, error) {
	if conversationID == "" || userAddress == "" {
		return false, nil
	}
	var count int
	err := l.DB.QueryRow(
		`SELECT COUNT(*) FROM emails
		 WHERE conversation_id = ? AND LOWER(from_address) = LOWER(?)`,
		conversationID, userAddress,
	).Scan(&count)
	return count > 0, err
}
