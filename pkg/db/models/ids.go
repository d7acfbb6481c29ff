package models

import "github.com/google/uuid"

// ensureID assigns a random identifier before insert. Postgres also defaults
// ids through gen_random_uuid(), but rows created in Go carry their id so the
// outbox can reference it inside the same transaction.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
