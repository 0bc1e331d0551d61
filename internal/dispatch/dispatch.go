// Package dispatch orchestrates one request: envelope validation,
// authentication, method resolution, argument validation and execution.
package dispatch

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hornshoofs/scoring-api/internal/auth"
	"github.com/hornshoofs/scoring-api/internal/logging"
	"github.com/hornshoofs/scoring-api/internal/request"
	"github.com/hornshoofs/scoring-api/internal/scoring"
)

// Method names resolvable inside the envelope.
const (
	MethodOnlineScore      = "online_score"
	MethodClientsInterests = "clients_interests"
)

// Context carries per-request diagnostics recorded as a side channel for
// logging. It is never part of the response payload.
type Context struct {
	RequestID string
	// Has lists the argument keys supplied in the envelope, sorted.
	Has []string
	// NClients is the number of client ids requested, for
	// clients_interests.
	NClients int
}

// Handler resolves a method name to its schema and engine and runs the
// request to a terminal state.
type Handler struct {
	auth   *auth.Authenticator
	engine *scoring.Engine
	log    *logging.Logger
}

// NewHandler builds a dispatcher.
func NewHandler(a *auth.Authenticator, e *scoring.Engine, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{auth: a, engine: e, log: log}
}

// Handle runs one request. The int result is the response classification
// (an HTTP status). Validation and authentication faults are recovered
// into classified responses; a non-nil error marks an unexpected fault
// (store unavailability on the mandatory path) that the caller's outer
// guard classifies.
//
// For INVALID_REQUEST the payload carries the human-readable validation
// message; FORBIDDEN and NOT_FOUND carry no payload.
func (h *Handler) Handle(ctx context.Context, body map[string]any, rctx *Context) (any, int, error) {
	env, err := request.ParseEnvelope(body)
	if err != nil {
		return err.Error(), http.StatusUnprocessableEntity, nil
	}
	rctx.Has = env.ArgumentKeys()

	if !h.auth.Check(env.Account, env.Login, env.Token) {
		h.log.ForRequest(ctx).WithField("login", env.Login).Info("authentication failed")
		return nil, http.StatusForbidden, nil
	}

	switch env.Method {
	case MethodOnlineScore:
		return h.onlineScore(ctx, env)
	case MethodClientsInterests:
		return h.clientsInterests(ctx, env, rctx)
	default:
		return nil, http.StatusNotFound, nil
	}
}

func (h *Handler) onlineScore(ctx context.Context, env *request.Envelope) (any, int, error) {
	if h.auth.IsAdmin(env.Login) {
		return map[string]any{"score": scoring.AdminScore}, http.StatusOK, nil
	}
	args, err := request.ParseScoreArgs(env.Arguments)
	if err != nil {
		return err.Error(), http.StatusUnprocessableEntity, nil
	}
	score := h.engine.Score(ctx, args)
	return map[string]any{"score": score}, http.StatusOK, nil
}

func (h *Handler) clientsInterests(ctx context.Context, env *request.Envelope, rctx *Context) (any, int, error) {
	args, err := request.ParseInterestsArgs(env.Arguments)
	if err != nil {
		return err.Error(), http.StatusUnprocessableEntity, nil
	}
	rctx.NClients = len(args.ClientIDs)

	interests := make(map[string][]string, len(args.ClientIDs))
	for _, id := range args.ClientIDs {
		values, err := h.engine.Interests(ctx, id)
		if err != nil {
			// Mandatory-path store faults are not recovered here.
			return nil, 0, err
		}
		interests[strconv.FormatInt(id, 10)] = values
	}
	return map[string]any{"interests": interests}, http.StatusOK, nil
}
