package api

import (
	"context"
	"net/http"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/types"
)

// PoseDependencies accepts pose updates from a pose source.
type PoseDependencies interface {
	SubmitPose(ctx context.Context, u model.PoseUpdate) (types.PoseAck, error)
}

// PosesHandler handles single pose submissions.
type PosesHandler struct {
	deps         PoseDependencies
	maxBodyBytes int64
}

// NewPosesHandler creates a new poses handler.
func NewPosesHandler(deps PoseDependencies, maxBodyBytes int64) *PosesHandler {
	return &PosesHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandlePost handles POST /poses requests. A pose outside Recording is
// acknowledged with accepted=false, not rejected.
func (h *PosesHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pose"
	var u model.PoseUpdate
	if err := decodeBody(w, r, h.maxBodyBytes, &u); err != nil {
		writeKindError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ack, err := h.deps.SubmitPose(r.Context(), u)
	if err != nil {
		writeKindError(w, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if !ack.Accepted {
		status = http.StatusOK
	}
	writeJSON(w, status, ack)
}
