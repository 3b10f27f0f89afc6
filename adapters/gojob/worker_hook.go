package gojob

import (
	"context"

	"github.com/goliatone/go-mapping/core"

	"github.com/goliatone/go-job/queue/worker"
)

type workerStage int

const (
	stageStart workerStage = iota
	stageSuccess
	stageFailure
	stageRetry
)

// WorkerHook forwards go-job worker lifecycle events to a mapping hook,
// usually Service.WorkerHook.
type WorkerHook struct {
	hook core.JobWorkerHook
}

func NewWorkerHook(hook core.JobWorkerHook) *WorkerHook {
	return &WorkerHook{hook: hook}
}

func (h *WorkerHook) OnStart(ctx context.Context, event worker.Event) {
	h.forward(ctx, stageStart, event)
}

func (h *WorkerHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.forward(ctx, stageSuccess, event)
}

func (h *WorkerHook) OnFailure(ctx context.Context, event worker.Event) {
	h.forward(ctx, stageFailure, event)
}

func (h *WorkerHook) OnRetry(ctx context.Context, event worker.Event) {
	h.forward(ctx, stageRetry, event)
}

func (h *WorkerHook) forward(ctx context.Context, stage workerStage, event worker.Event) {
	if h == nil || h.hook == nil {
		return
	}
	converted := toWorkerEvent(event)
	switch stage {
	case stageStart:
		h.hook.OnStart(ctx, converted)
	case stageSuccess:
		h.hook.OnSuccess(ctx, converted)
	case stageFailure:
		h.hook.OnFailure(ctx, converted)
	case stageRetry:
		h.hook.OnRetry(ctx, converted)
	}
}

func toWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

var _ worker.Hook = (*WorkerHook)(nil)
