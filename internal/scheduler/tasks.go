package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadStateChanged = "leads.state_changed"

const TaskStatusAudit = "leads.status_audit"

const statusAuditUniqueTTL = 30 * time.Minute

type LeadStateChangedPayload struct {
	LeadID string `json:"leadId"`
}

func NewLeadStateChangedTask(payload LeadStateChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadStateChanged, data), nil
}

func ParseLeadStateChangedPayload(task *asynq.Task) (LeadStateChangedPayload, error) {
	var payload LeadStateChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadStateChangedPayload{}, err
	}
	return payload, nil
}

// NewStatusAuditTask builds the payload-less audit task.
func NewStatusAuditTask() *asynq.Task {
	return asynq.NewTask(TaskStatusAudit, nil)
}
