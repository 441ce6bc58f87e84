package api

import (
	"context"
	"net/http"

	"github.com/okian/bodytrack/internal/domain/types"
)

// SessionDependencies drives the record/stop/save lifecycle.
type SessionDependencies interface {
	Session(ctx context.Context) (types.SessionStatus, error)
	StartRecording(ctx context.Context) (types.SessionStatus, error)
	StopRecording(ctx context.Context) (types.SessionStatus, error)
	DiscardRecording(ctx context.Context) (types.SessionStatus, error)
	SaveRecording(ctx context.Context, name string) (types.SaveResult, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps         SessionDependencies
	maxBodyBytes int64
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies, maxBodyBytes int64) *SessionHandler {
	return &SessionHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleGet handles GET /session requests.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Session(r.Context())
	if err != nil {
		writeKindError(w, Wrap("api.get_session", err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleStart handles POST /session/start requests.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "api.start", h.deps.StartRecording)
}

// HandleStop handles POST /session/stop requests.
func (h *SessionHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "api.stop", h.deps.StopRecording)
}

// HandleDiscard handles POST /session/discard requests.
func (h *SessionHandler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "api.discard", h.deps.DiscardRecording)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context) (types.SessionStatus, error),
) {
	if _, err := fn(r.Context()); err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	st, err := h.deps.Session(r.Context())
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleSave handles POST /session/save requests. The body is
// {"name": "..."}; a blank name is rejected and the session keeps waiting.
func (h *SessionHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save"
	var req types.SaveRequest
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.SaveRecording(r.Context(), req.Name)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
