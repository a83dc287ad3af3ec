package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// WriteCSV renders ledger entries as CSV for operator export.
func WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "actor_id", "action", "entity_type", "entity_id", "ip_address", "user_agent", "created_at"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		actor := ""
		if e.ActorID != nil {
			actor = strconv.FormatInt(*e.ActorID, 10)
		}
		ip, ua := "", ""
		if e.IPAddress != nil {
			ip = *e.IPAddress
		}
		if e.UserAgent != nil {
			ua = *e.UserAgent
		}
		record := []string{
			e.ID.String(),
			actor,
			string(e.Action),
			e.EntityType,
			e.EntityID,
			ip,
			ua,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
