package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	WizardStarted           = "wizard.started"
	WizardURLSet            = "wizard.url.set"
	WizardAnalysisStarted   = "wizard.analysis.started"
	WizardAnalysisCompleted = "wizard.analysis.completed"
	WizardAnalysisRejected  = "wizard.analysis.rejected"
	WizardAnalysisFailed    = "wizard.analysis.failed"
	WizardConfigUpdated     = "wizard.config.updated"
	WizardNext              = "wizard.next"
	WizardBack              = "wizard.back"
	WizardBuildStarted      = "wizard.build.started"
	WizardBuildCompleted    = "wizard.build.completed"
	WizardBuildFailed       = "wizard.build.failed"
	WizardCredentialMissing = "wizard.credential.missing"
	WizardResumed           = "wizard.resumed"
	WizardRestart           = "wizard.restart"
	HistoryCleared          = "history.cleared"
	SessionCreated          = "session.created"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one event. A nil Writer DB makes it a no-op.
func (w Writer) Append(ctx context.Context, evtType, sessionID string, payload EventPayload) error {
	if w.DB == nil {
		return nil
	}
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,session_id,payload_json) VALUES (?,?,?,?)`,
		ts, evtType, nullable(sessionID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
