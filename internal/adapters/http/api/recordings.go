package api

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/okian/bodytrack/internal/domain/analysis"
	"github.com/okian/bodytrack/internal/domain/types"
)

// RecordingDependencies exposes the saved recordings catalog.
type RecordingDependencies interface {
	ListRecordings(ctx context.Context) ([]types.RecordingInfo, error)
	OpenRecording(ctx context.Context, name string) (*os.File, types.RecordingInfo, error)
	SummarizeRecording(ctx context.Context, name string) (analysis.Summary, error)
	DeleteRecording(ctx context.Context, name string) error
}

// RecordingsHandler handles catalog requests.
type RecordingsHandler struct {
	deps RecordingDependencies
}

// NewRecordingsHandler creates a new recordings handler.
func NewRecordingsHandler(deps RecordingDependencies) *RecordingsHandler {
	return &RecordingsHandler{deps: deps}
}

type recordingsResponse struct {
	Recordings []types.RecordingInfo `json:"recordings"`
}

// HandleList handles GET /recordings requests.
func (h *RecordingsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.ListRecordings(r.Context())
	if err != nil {
		writeKindError(w, Wrap("api.list_recordings", err))
		return
	}
	if list == nil {
		list = []types.RecordingInfo{}
	}
	writeJSON(w, http.StatusOK, recordingsResponse{Recordings: list})
}

// HandleDownload streams the CSV file. Range and conditional requests are
// served by http.ServeContent.
func (h *RecordingsHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.deps.OpenRecording(r.Context(), r.PathValue("name"))
	if err != nil {
		writeKindError(w, Wrap("api.download_recording", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name+".csv"))
	http.ServeContent(w, r, info.Name+".csv", info.Modified, f)
}

// HandleSummary handles GET /recordings/{name}/summary requests.
func (h *RecordingsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.SummarizeRecording(r.Context(), r.PathValue("name"))
	if err != nil {
		writeKindError(w, Wrap("api.summarize_recording", err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleDelete handles DELETE /recordings/{name} requests.
func (h *RecordingsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteRecording(r.Context(), r.PathValue("name")); err != nil {
		writeKindError(w, Wrap("api.delete_recording", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
