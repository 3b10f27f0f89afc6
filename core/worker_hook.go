package core

import (
	"context"
	"strings"
)

// serviceWorkerHook reports queue worker events through the service logger
// and metrics recorder as mapping.worker.<event>.total.
type serviceWorkerHook struct {
	service *Service
}

// WorkerHook returns a JobWorkerHook that observes invalidation workers.
func (s *Service) WorkerHook() JobWorkerHook {
	return serviceWorkerHook{service: s}
}

func (h serviceWorkerHook) OnStart(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "start", event)
}

func (h serviceWorkerHook) OnSuccess(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "success", event)
}

func (h serviceWorkerHook) OnFailure(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "failure", event)
}

func (h serviceWorkerHook) OnRetry(ctx context.Context, event JobWorkerEvent) {
	h.record(ctx, "retry", event)
}

func (h serviceWorkerHook) record(ctx context.Context, stage string, event JobWorkerEvent) {
	if h.service == nil {
		return
	}
	jobID := ""
	fields := map[string]any{
		"event_type": "worker." + stage,
		"attempt":    event.Attempt,
	}
	if event.Message != nil {
		jobID = strings.TrimSpace(event.Message.JobID)
		fields["job_id"] = jobID
		fields["idempotency_key"] = event.Message.IdempotencyKey
	}
	if event.Delay > 0 {
		fields["delay_ms"] = event.Delay.Milliseconds()
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}

	h.service.recordCounter(ctx, "mapping.worker."+stage+".total", 1, map[string]string{"job_id": jobID})
	if event.Err != nil {
		fields["error"] = event.Err.Error()
		enrichErrorFields(fields, event.Err)
		h.service.logError(ctx, "worker "+stage, fields)
		return
	}
	h.service.logInfo(ctx, "worker "+stage, fields)
}
