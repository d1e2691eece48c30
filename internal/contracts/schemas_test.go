package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvent_SyncRunCompleted(t *testing.T) {
	valid := []byte(`{
		"log_id": "5b7c8f0e-4a8f-4b7e-9b6e-1f0d0c2a3b4c",
		"sheet_id": "sheet-1",
		"direction": "PULL",
		"preview": false,
		"status": "PARTIAL",
		"started_at": "2026-10-17T10:00:00Z",
		"completed_at": "2026-10-17T10:00:05Z",
		"rows_total": 3,
		"rows_succeeded": 2,
		"rows_skipped": 0,
		"rows_failed": 1,
		"error_count": 1
	}`)
	require.NoError(t, ValidateEvent(SyncRunCompletedEvent, Version1, valid))

	t.Run("running status is not a completion", func(t *testing.T) {
		body := []byte(`{"log_id":"5b7c8f0e-4a8f-4b7e-9b6e-1f0d0c2a3b4c","sheet_id":"s","direction":"PULL","preview":false,
			"status":"RUNNING","started_at":"2026-10-17T10:00:00Z","completed_at":"2026-10-17T10:00:05Z",
			"rows_total":0,"rows_succeeded":0,"rows_skipped":0,"rows_failed":0,"error_count":0}`)
		assert.Error(t, ValidateEvent(SyncRunCompletedEvent, Version1, body))
	})

	t.Run("missing fields", func(t *testing.T) {
		assert.Error(t, ValidateEvent(SyncRunCompletedEvent, Version1, []byte(`{"sheet_id":"s"}`)))
	})
}

func TestValidateEvent_SyncCommand(t *testing.T) {
	assert.NoError(t, ValidateEvent(SyncCommand, Version1, []byte(`{"sheet_id":"s","direction":"push","preview":true}`)))
	assert.Error(t, ValidateEvent(SyncCommand, Version1, []byte(`{"sheet_id":"","direction":"PULL"}`)))
	assert.Error(t, ValidateEvent(SyncCommand, Version1, []byte(`{"sheet_id":"s","direction":"SIDEWAYS"}`)))
}

func TestValidateEvent_UnknownAndMalformed(t *testing.T) {
	err := ValidateEvent("Nope", Version1, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = ValidateEvent(SyncCommand, Version1, []byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid JSON")
}
