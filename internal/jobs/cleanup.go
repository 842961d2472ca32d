package jobs

import (
	"time"

	"ledgerline/internal/document"
	"ledgerline/internal/services"
)

// SessionSweep removes sessions idle past their timeout
func SessionSweep(store *services.SessionStore) func() {
	return func() {
		store.SweepExpired(time.Now())
	}
}

// ExportCleanup removes downloaded and expired export artifacts
func ExportCleanup(docs *document.Service) func() {
	return func() {
		docs.Cleanup()
	}
}
