package store

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns records whose text contains keyword, ignoring ASCII case,
// oldest first.
func (db *DB) Search(keyword string, limit int) ([]ConversationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT `+recordColumns+`
		FROM conversation_clean
		WHERE message_text LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY utc_timestamp, rowid
		LIMIT ?`, likeEscaper.Replace(keyword), limit)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}
