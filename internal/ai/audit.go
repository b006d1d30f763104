package ai

import (
	"context"

	"github.com/google/uuid"

	"github.com/synthsense/synthsense-backend/internal/logger"
	"github.com/synthsense/synthsense-backend/internal/repos"
	"github.com/synthsense/synthsense-backend/internal/requestdata"
	"github.com/synthsense/synthsense-backend/internal/types"
)

type callMetaKeyType struct{}

var callMetaKey = callMetaKeyType{}

type callMeta struct {
	CallType  string
	ContextID *uuid.UUID
}

// WithCallMeta tags ctx so the audit decorator can attribute completion calls
// to a call type (elicitation, rating, ...) and an owning record.
func WithCallMeta(ctx context.Context, callType string, contextID *uuid.UUID) context.Context {
	return context.WithValue(ctx, callMetaKey, callMeta{CallType: callType, ContextID: contextID})
}

// WithCallType retags the call type while keeping any owning record already
// on the context.
func WithCallType(ctx context.Context, callType string) context.Context {
	meta, _ := ctx.Value(callMetaKey).(callMeta)
	meta.CallType = callType
	return context.WithValue(ctx, callMetaKey, meta)
}

type auditedClient struct {
	inner Client
	repo  repos.AICallLogRepo
	log   *logger.Logger
}

// Audited wraps client so every completion call lands in ai_call_log. Audit
// write failures are logged and swallowed; they never fail the call itself.
func Audited(inner Client, repo repos.AICallLogRepo, log *logger.Logger) Client {
	return &auditedClient{inner: inner, repo: repo, log: log.With("service", "AuditedAIClient")}
}

func (c *auditedClient) Model() string { return c.inner.Model() }

func (c *auditedClient) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	content, err := c.inner.Complete(ctx, system, user, opts)

	row := &types.AICallLog{
		CallType: "completion",
		Model:    c.inner.Model(),
		Prompt:   user,
		Response: content,
		Success:  err == nil,
	}
	if err != nil {
		row.Error = err.Error()
	}
	if meta, ok := ctx.Value(callMetaKey).(callMeta); ok {
		if meta.CallType != "" {
			row.CallType = meta.CallType
		}
		row.ContextID = meta.ContextID
	}
	if rd := requestdata.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		userID := rd.UserID
		row.UserID = &userID
	}

	// Audit with a detached context so a canceled batch still records its calls.
	if _, logErr := c.repo.Create(context.WithoutCancel(ctx), nil, []*types.AICallLog{row}); logErr != nil {
		c.log.Warn("Failed to persist AI call log", "error", logErr)
	}
	return content, err
}
