package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/sse"
	"github.com/synthsense/synthsense-backend/internal/types"
)

// Notifier pushes lifecycle events to the owner's SSE channel. All methods
// are fire-and-forget; a missing listener is not an error.
type Notifier interface {
	UserNameChanged(userID uuid.UUID, user *types.User)

	PersonaJobCreated(userID uuid.UUID, job *types.PersonaGenerationJob)
	PersonaJobProgress(userID uuid.UUID, job *types.PersonaGenerationJob, generated, total int)
	PersonaJobCompleted(userID uuid.UUID, job *types.PersonaGenerationJob)
	PersonaJobFailed(userID uuid.UUID, job *types.PersonaGenerationJob, errorMessage string)

	ExperimentCreated(userID uuid.UUID, experiment *types.Experiment)
	ExperimentRunStarted(userID uuid.UUID, experiment *types.Experiment)
	ExperimentRunProgress(userID uuid.UUID, experimentID uuid.UUID, completed, failed, total int)
	ExperimentCompleted(userID uuid.UUID, experiment *types.Experiment)
	ExperimentFailed(userID uuid.UUID, experiment *types.Experiment, errorMessage string)
	ExperimentDeleted(userID uuid.UUID, experimentID uuid.UUID)
}

type notifier struct {
	emitter SSEEmitter
}

func NewNotifier(emitter SSEEmitter) Notifier {
	return &notifier{emitter: emitter}
}

func (n *notifier) broadcast(userID uuid.UUID, event sse.SSEEvent, data any) {
	if n == nil || n.emitter == nil || userID == uuid.Nil {
		return
	}
	n.emitter.Emit(context.Background(), sse.SSEMessage{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}

func (n *notifier) UserNameChanged(userID uuid.UUID, user *types.User) {
	n.broadcast(userID, sse.SSEEventUserNameChanged, map[string]any{"user": user})
}

func (n *notifier) PersonaJobCreated(userID uuid.UUID, job *types.PersonaGenerationJob) {
	n.broadcast(userID, sse.SSEEventPersonaJobCreated, map[string]any{"job": job})
}

func (n *notifier) PersonaJobProgress(userID uuid.UUID, job *types.PersonaGenerationJob, generated, total int) {
	n.broadcast(userID, sse.SSEEventPersonaJobProgress, map[string]any{
		"job_id":    job.ID,
		"generated": generated,
		"total":     total,
	})
}

func (n *notifier) PersonaJobCompleted(userID uuid.UUID, job *types.PersonaGenerationJob) {
	n.broadcast(userID, sse.SSEEventPersonaJobCompleted, map[string]any{"job": job})
}

func (n *notifier) PersonaJobFailed(userID uuid.UUID, job *types.PersonaGenerationJob, errorMessage string) {
	n.broadcast(userID, sse.SSEEventPersonaJobFailed, map[string]any{
		"job_id": job.ID,
		"error":  errorMessage,
	})
}

func (n *notifier) ExperimentCreated(userID uuid.UUID, experiment *types.Experiment) {
	n.broadcast(userID, sse.SSEEventExperimentCreated, map[string]any{"experiment": experiment})
}

func (n *notifier) ExperimentRunStarted(userID uuid.UUID, experiment *types.Experiment) {
	n.broadcast(userID, sse.SSEEventExperimentRunStarted, map[string]any{"experiment": experiment})
}

func (n *notifier) ExperimentRunProgress(userID uuid.UUID, experimentID uuid.UUID, completed, failed, total int) {
	n.broadcast(userID, sse.SSEEventExperimentRunProgress, map[string]any{
		"experiment_id": experimentID,
		"completed":     completed,
		"failed":        failed,
		"total":         total,
	})
}

func (n *notifier) ExperimentCompleted(userID uuid.UUID, experiment *types.Experiment) {
	n.broadcast(userID, sse.SSEEventExperimentCompleted, map[string]any{"experiment": experiment})
}

func (n *notifier) ExperimentFailed(userID uuid.UUID, experiment *types.Experiment, errorMessage string) {
	n.broadcast(userID, sse.SSEEventExperimentFailed, map[string]any{
		"experiment_id": experiment.ID,
		"error":         errorMessage,
	})
}

func (n *notifier) ExperimentDeleted(userID uuid.UUID, experimentID uuid.UUID) {
	n.broadcast(userID, sse.SSEEventExperimentDeleted, map[string]any{"experiment_id": experimentID})
}
