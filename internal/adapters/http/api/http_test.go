package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/bodytrack/internal/adapters/export"
	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/internal/adapters/repository"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/domain/analysis"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/recording"
	"github.com/okian/bodytrack/internal/domain/types"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps is a minimal in-memory recorder behind the API.
type mockDeps struct {
	mu      sync.Mutex
	state   recording.State
	frames  int
	saveErr error
	dir     string
}

func newMockDeps(t *testing.T) *mockDeps {
	return &mockDeps{dir: t.TempDir()}
}

func (m *mockDeps) status() types.SessionStatus {
	controls := []string{}
	for _, c := range recording.Controls(m.state) {
		controls = append(controls, string(c))
	}
	return types.SessionStatus{State: m.state.String(), Frames: m.frames, Rows: m.frames, Controls: controls}
}

func (m *mockDeps) move(from, to recording.State, op string) (types.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return m.status(), fmt.Errorf("%s from %s: %w", op, m.state, recording.ErrInvalidTransition)
	}
	m.state = to
	if to == recording.Recording || to == recording.Idle {
		m.frames = 0
	}
	return m.status(), nil
}

func (m *mockDeps) Session(context.Context) (types.SessionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status(), nil
}

func (m *mockDeps) StartRecording(context.Context) (types.SessionStatus, error) {
	return m.move(recording.Idle, recording.Recording, "start")
}

func (m *mockDeps) StopRecording(context.Context) (types.SessionStatus, error) {
	return m.move(recording.Recording, recording.AwaitingSave, "stop")
}

func (m *mockDeps) DiscardRecording(context.Context) (types.SessionStatus, error) {
	return m.move(recording.AwaitingSave, recording.Idle, "discard")
}

func (m *mockDeps) SaveRecording(_ context.Context, name string) (types.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != recording.AwaitingSave {
		return types.SaveResult{}, fmt.Errorf("save from %s: %w", m.state, recording.ErrInvalidTransition)
	}
	if strings.TrimSpace(name) == "" {
		return types.SaveResult{}, recording.ErrEmptyName
	}
	if m.saveErr != nil {
		return types.SaveResult{}, m.saveErr
	}
	path := filepath.Join(m.dir, name+".csv")
	if err := os.WriteFile(path, []byte(strings.Join(export.Header, ",")+"\n"), 0o644); err != nil {
		return types.SaveResult{}, err
	}
	res := types.SaveResult{Name: name, Path: path, Frames: m.frames, Rows: m.frames}
	m.state, m.frames = recording.Idle, 0
	return res, nil
}

func (m *mockDeps) SubmitPose(_ context.Context, u model.PoseUpdate) (types.PoseAck, error) {
	if _, err := u.ToFrame(1); err != nil {
		return types.PoseAck{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != recording.Recording {
		return types.PoseAck{State: m.state.String(), Frames: m.frames}, nil
	}
	m.frames++
	return types.PoseAck{Accepted: true, State: m.state.String(), Frames: m.frames}, nil
}

func (m *mockDeps) ListRecordings(context.Context) ([]types.RecordingInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var out []types.RecordingInfo
	for _, e := range entries {
		info, _ := e.Info()
		out = append(out, types.RecordingInfo{
			Name: strings.TrimSuffix(e.Name(), ".csv"), Size: info.Size(), Modified: info.ModTime(),
		})
	}
	return out, nil
}

func (m *mockDeps) OpenRecording(_ context.Context, name string) (*os.File, types.RecordingInfo, error) {
	if strings.Contains(name, "..") {
		return nil, types.RecordingInfo{}, repository.ErrInvalidName
	}
	f, err := os.Open(filepath.Join(m.dir, name+".csv"))
	if err != nil {
		return nil, types.RecordingInfo{}, repository.ErrNotFound
	}
	st, _ := f.Stat()
	return f, types.RecordingInfo{Name: name, Size: st.Size(), Modified: st.ModTime()}, nil
}

func (m *mockDeps) SummarizeRecording(_ context.Context, name string) (analysis.Summary, error) {
	if _, err := os.Stat(filepath.Join(m.dir, name+".csv")); err != nil {
		return analysis.Summary{}, repository.ErrNotFound
	}
	return analysis.Summary{Frames: 0}, nil
}

func (m *mockDeps) DeleteRecording(_ context.Context, name string) error {
	if err := os.Remove(filepath.Join(m.dir, name+".csv")); err != nil {
		return repository.ErrNotFound
	}
	return nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	opts = append([]api.Option{api.WithLogger(logger.Nop())}, opts...)
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"state": "idle"}}, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeStatus(w *httptest.ResponseRecorder) types.SessionStatus {
	var st types.SessionStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	return st
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

const headPose = `{"frame_id":"f1","timestamp":1.5,"joints":{"head":{"position":{"x":1,"y":2,"z":3}}}}`

func TestHealthAndStats(t *testing.T) {
	Convey("Given a registered API", t, func() {
		mux := newMux(newMockDeps(t))

		Convey("Then /healthz answers JSON by default", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then /healthz answers Prometheus text when asked", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "bodytrack_")
		})

		Convey("Then /metrics exposes the registry", func() {
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "bodytrack_")
		})

		Convey("Then /stats returns the provider's map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"state":"idle"`)
		})

		Convey("Then unknown routes are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are rejected", func() {
			So(do(mux, http.MethodGet, "/session/start", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given an idle recorder", t, func() {
		deps := newMockDeps(t)
		mux := newMux(deps)

		Convey("When the session is read", func() {
			st := decodeStatus(do(mux, http.MethodGet, "/session", ""))

			Convey("Then only record is offered", func() {
				So(st.State, ShouldEqual, "idle")
				So(st.Controls, ShouldResemble, []string{"record"})
			})
		})

		Convey("When a pose arrives before recording", func() {
			w := do(mux, http.MethodPost, "/poses", headPose)

			Convey("Then it is acknowledged but not kept", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"accepted":false`)
			})
		})

		Convey("When stop is pressed while idle", func() {
			w := do(mux, http.MethodPost, "/session/stop", "")

			Convey("Then it conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "invalid_transition")
			})
		})

		Convey("When recording, streaming two poses and stopping", func() {
			So(do(mux, http.MethodPost, "/session/start", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodPost, "/poses", headPose).Code, ShouldEqual, http.StatusAccepted)
			So(do(mux, http.MethodPost, "/poses", headPose).Code, ShouldEqual, http.StatusAccepted)
			w := do(mux, http.MethodPost, "/session/stop", "")
			st := decodeStatus(w)

			Convey("Then the recorder awaits a name", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(st.State, ShouldEqual, "awaiting_save")
				So(st.Frames, ShouldEqual, 2)
				So(st.Controls, ShouldResemble, []string{"name", "save", "discard"})
			})

			Convey("And a blank name is rejected", func() {
				w := do(mux, http.MethodPost, "/session/save", `{"name":"   "}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "empty_name")
				So(decodeStatus(do(mux, http.MethodGet, "/session", "")).State, ShouldEqual, "awaiting_save")
			})

			Convey("And a malformed body is rejected", func() {
				w := do(mux, http.MethodPost, "/session/save", `{"name":`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})

			Convey("And a write failure keeps the recording", func() {
				deps.saveErr = fmt.Errorf("save %q: %w", "walk", export.ErrWrite)
				w := do(mux, http.MethodPost, "/session/save", `{"name":"walk"}`)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "write_failed")
				So(decodeStatus(do(mux, http.MethodGet, "/session", "")).Frames, ShouldEqual, 2)
			})

			Convey("And an unavailable document root maps to 503", func() {
				deps.saveErr = export.ErrStorageUnavailable
				w := do(mux, http.MethodPost, "/session/save", `{"name":"walk"}`)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})

			Convey("And saving writes the recording and returns to idle", func() {
				w := do(mux, http.MethodPost, "/session/save", `{"name":"walk"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				var res types.SaveResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Name, ShouldEqual, "walk")
				So(res.Frames, ShouldEqual, 2)
				So(decodeStatus(do(mux, http.MethodGet, "/session", "")).State, ShouldEqual, "idle")
			})

			Convey("And discarding returns to idle", func() {
				w := do(mux, http.MethodPost, "/session/discard", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeStatus(w).State, ShouldEqual, "idle")
			})
		})

		Convey("When an invalid pose is posted", func() {
			w := do(mux, http.MethodPost, "/poses", `{"joints":{"head":{}}}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})

	Convey("Given a tight body limit", t, func() {
		mux := newMux(newMockDeps(t), api.WithMaxBodyBytes(16))

		Convey("When a large pose is posted", func() {
			w := do(mux, http.MethodPost, "/poses", headPose)

			Convey("Then it is rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(errorCode(w), ShouldEqual, "too_large")
			})
		})
	})
}

func TestRecordings(t *testing.T) {
	Convey("Given a saved recording", t, func() {
		deps := newMockDeps(t)
		mux := newMux(deps)
		do(mux, http.MethodPost, "/session/start", "")
		do(mux, http.MethodPost, "/session/stop", "")
		So(do(mux, http.MethodPost, "/session/save", `{"name":"walk"}`).Code, ShouldEqual, http.StatusCreated)

		Convey("Then it is listed", func() {
			w := do(mux, http.MethodGet, "/recordings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"walk"`)
		})

		Convey("Then it downloads as CSV", func() {
			w := do(mux, http.MethodGet, "/recordings/walk", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "text/csv")
			So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, "walk.csv")
			So(w.Body.String(), ShouldStartWith, "Frame,JointName,Timestamp")
		})

		Convey("Then its summary is served", func() {
			So(do(mux, http.MethodGet, "/recordings/walk/summary", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then deleting removes it", func() {
			So(do(mux, http.MethodDelete, "/recordings/walk", "").Code, ShouldEqual, http.StatusNoContent)
			w := do(mux, http.MethodGet, "/recordings/walk", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "not_found")
		})
	})

	Convey("Given an empty catalog", t, func() {
		mux := newMux(newMockDeps(t))

		Convey("Then the list is an empty array", func() {
			w := do(mux, http.MethodGet, "/recordings", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"recordings":[]`)
		})
	})
}

func TestPoseStream(t *testing.T) {
	Convey("Given a recording session behind a websocket", t, func() {
		deps := newMockDeps(t)
		mux := newMux(deps, api.WithStreamIdleTimeout(2*time.Second))
		srv := httptest.NewServer(mux)
		defer srv.Close()
		_, err := deps.StartRecording(context.Background())
		So(err, ShouldBeNil)

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/poses/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("When poses are streamed", func() {
			var acks []types.PoseAck
			for i := 0; i < 3; i++ {
				So(conn.WriteMessage(websocket.TextMessage, []byte(headPose)), ShouldBeNil)
				var ack types.PoseAck
				So(conn.ReadJSON(&ack), ShouldBeNil)
				acks = append(acks, ack)
			}

			Convey("Then each is acknowledged in order", func() {
				So(acks[2].Accepted, ShouldBeTrue)
				So(acks[2].Frames, ShouldEqual, 3)
				So(acks[2].State, ShouldEqual, "recording")
			})
		})

		Convey("When a garbage message is sent", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("not json")), ShouldBeNil)
			var body map[string]string
			So(conn.ReadJSON(&body), ShouldBeNil)

			Convey("Then an error object comes back and the stream stays open", func() {
				So(body["code"], ShouldEqual, "bad_request")
				So(conn.WriteMessage(websocket.TextMessage, []byte(headPose)), ShouldBeNil)
				var ack types.PoseAck
				So(conn.ReadJSON(&ack), ShouldBeNil)
				So(ack.Accepted, ShouldBeTrue)
			})
		})
	})
}

func TestServiceNotStarted(t *testing.T) {
	Convey("Given an API over a service that has not started", t, func() {
		mux := newMux(service.New(service.WithLogger(logger.Nop())))

		Convey("Then session and recording routes answer 503", func() {
			for _, path := range []string{"/session", "/recordings"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, `"code":"not_started"`)
			}
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("eof")

		Convey("Then WrapKind keeps both the kind and the cause", func() {
			err := api.WrapKind("op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then WrapKind without a cause is just the kind", func() {
			So(errors.Is(api.WrapKind("op", api.ErrTooLarge, nil), api.ErrTooLarge), ShouldBeTrue)
		})

		Convey("Then Wrap leaves nil alone", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
