package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nodecanvas/internal/codec"
	"nodecanvas/internal/domain"
	"nodecanvas/internal/drag"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/hub"
	"nodecanvas/internal/repository"
	"nodecanvas/internal/repository/sqlite"
	"nodecanvas/internal/service"
	"nodecanvas/internal/surface"
)

type testServer struct {
	*httptest.Server
	svc  *service.SurfaceService
	repo *sqlite.Repository
	hub  *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop().Sugar()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)

	bus := service.NewEventBus()
	svc := service.NewSurfaceService(surface.New(surface.WithLogger(log)), bus,
		service.WithRepository(repo), service.WithLogger(log))

	ctx, cancel := context.WithCancel(context.Background())
	h := hub.New(hub.WithLogger(log))
	go h.Run(ctx)
	go Relay(ctx, bus, h)

	sh := NewSurfaceHandler(svc)
	sh.log = log
	ws := NewSocketHandler(svc, h)
	ws.log = log
	srv := httptest.NewServer(NewRouter(sh, ws, h, log))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		repo.Close()
	})
	return &testServer{Server: srv, svc: svc, repo: repo, hub: h}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	for _, body := range []string{
		`{"id":1,"label":"hi","x":0,"y":0}`,
		`{"id":2,"label":"there","x":300,"y":0}`,
	} {
		resp, _ := s.do(t, http.MethodPost, "/api/nodes", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, _ := s.do(t, http.MethodPost, "/api/edges", `{"source":1,"target":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown node", errors.Wrap(errors.ErrUnknownNode, "x"), http.StatusNotFound},
		{"unknown edge", errors.ErrUnknownEdge, http.StatusNotFound},
		{"duplicate", errors.ErrDuplicateID, http.StatusConflict},
		{"dangling", errors.ErrDanglingEdge, http.StatusConflict},
		{"geometry", errors.ErrInvalidGeometry, http.StatusBadRequest},
		{"input", service.ErrUnknownInput, http.StatusBadRequest},
		{"format", codec.ErrUnknownFormat, http.StatusBadRequest},
		{"malformed", codec.ErrMalformed, http.StatusBadRequest},
		{"strategy", repository.ErrUnknownStrategy, http.StatusBadRequest},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestNodeAndEdgeEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	t.Run("get node", func(t *testing.T) {
		resp, body := s.do(t, http.MethodGet, "/api/nodes/1", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var n domain.GraphNode
		require.NoError(t, json.Unmarshal(body, &n))
		assert.Equal(t, 80.0, n.Width)
		assert.Equal(t, 32.0, n.Height)
	})

	t.Run("bad id", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/api/nodes/abc", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing node", func(t *testing.T) {
		resp, body := s.do(t, http.MethodGet, "/api/nodes/99", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var e ErrorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.Contains(t, e.Details, "unknown node")
	})

	t.Run("duplicate node", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/nodes", `{"id":1,"label":"again"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/nodes", `{"id":5,"label":"x","width":10}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("dangling edge", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/edges", `{"source":1,"target":42}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("update node", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/nodes/1", `{"x":100}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var n domain.GraphNode
		require.NoError(t, json.Unmarshal(body, &n))
		assert.Equal(t, 100.0, n.X)

		resp, body = s.do(t, http.MethodGet, "/api/edges", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var edges []domain.GraphEdge
		require.NoError(t, json.Unmarshal(body, &edges))
		require.Len(t, edges, 1)
		assert.Equal(t, domain.PathPoint{X: 180, Y: 16}, edges[0].Path[0])
	})

	t.Run("delete edge", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodDelete, "/api/edges/1/2", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp, _ = s.do(t, http.MethodDelete, "/api/edges/1/2", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete node", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodDelete, "/api/nodes/2", "")
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp, body := s.do(t, http.MethodGet, "/api/nodes", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var nodes []domain.GraphNode
		require.NoError(t, json.Unmarshal(body, &nodes))
		assert.Len(t, nodes, 1)
	})
}

func TestInputEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	for _, ev := range []string{
		`{"type":"drag_start","node_id":1}`,
		`{"type":"drag_move","node_id":1,"x":40,"y":16}`,
		`{"type":"drag_move","node_id":1,"x":140,"y":16}`,
		`{"type":"drag_end","node_id":1}`,
	} {
		resp, body := s.do(t, http.MethodPost, "/api/input", ev)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	stored, err := s.repo.GetNode(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.X)

	resp, _ := s.do(t, http.MethodPost, "/api/input", `{"type":"zoom","zoom":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/input", `{"type":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFrameEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	resp, body := s.do(t, http.MethodGet, "/api/frame", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frame struct {
		Sequence uint64 `json:"sequence"`
		Commands []struct {
			Kind string `json:"kind"`
		} `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(body, &frame))
	require.Len(t, frame.Commands, 9)
	assert.Equal(t, "edge", frame.Commands[0].Kind)
}

func TestImportExportEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	resp, body := s.do(t, http.MethodGet, "/api/formats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"import":["json","yaml"],"export":["json","png","yaml"]}`, string(body))

	resp, body = s.do(t, http.MethodGet, "/api/export/png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))

	resp, body = s.do(t, http.MethodGet, "/api/export/yaml", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	exported := string(body)
	assert.Contains(t, exported, "label: hi")

	resp, _ = s.do(t, http.MethodGet, "/api/export/svg", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/api/import/yaml?strategy=replace", "nodes:\n  - {id: 7, label: seven, x: 0, y: 0}\nedges: []\n")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	nodes, edges := s.svc.Surface().Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)

	resp, _ = s.do(t, http.MethodPost, "/api/import/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/import/yaml?strategy=overwrite", exported)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "nodecanvas_")
}

func dialSocket(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

// readUntil reads socket messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == eventType {
			return msg.Data
		}
	}
}

func TestSocketInput(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	conn := dialSocket(t, s)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(service.InputEvent{Type: service.InputDragStart, NodeID: 2}))
	var res service.InputResult
	require.NoError(t, json.Unmarshal(readUntil(t, conn, EventInputResult), &res))
	assert.True(t, res.Applied)

	require.NoError(t, conn.WriteJSON(service.InputEvent{Type: service.InputDragMove, NodeID: 2, X: 310, Y: 10}))
	require.NoError(t, json.Unmarshal(readUntil(t, conn, EventInputResult), &res))
	assert.True(t, res.Started)

	// Hub events arrive on the same connection.
	readUntil(t, conn, "frame")

	require.NoError(t, conn.WriteJSON(service.InputEvent{Type: "bogus"}))
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(readUntil(t, conn, EventInputError), &e))
	assert.Contains(t, e.Details, "unknown input type")
}

func TestSocketDisconnectCancelsDrag(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	conn := dialSocket(t, s)
	for _, ev := range []service.InputEvent{
		{Type: service.InputDragStart, NodeID: 1},
		{Type: service.InputDragMove, NodeID: 1, X: 10, Y: 10},
		{Type: service.InputDragMove, NodeID: 1, X: 30, Y: 10},
	} {
		require.NoError(t, conn.WriteJSON(ev))
		readUntil(t, conn, EventInputResult)
	}
	assert.Equal(t, drag.Grabbed, s.svc.Surface().DragState())

	conn.Close()
	require.Eventually(t, func() bool {
		return s.svc.Surface().DragState() == drag.Idle
	}, 2*time.Second, 10*time.Millisecond)

	// The position reached before the disconnect is kept and stored.
	require.Eventually(t, func() bool {
		stored, err := s.repo.GetNode(context.Background(), 1)
		return err == nil && stored != nil && stored.X == 20
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketDisconnectLeavesOtherClientsDrag(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	first := dialSocket(t, s)
	require.NoError(t, first.WriteJSON(service.InputEvent{Type: service.InputDragStart, NodeID: 1}))
	readUntil(t, first, EventInputResult)

	second := dialSocket(t, s)
	defer second.Close()
	require.NoError(t, second.WriteJSON(service.InputEvent{Type: service.InputDragStart, NodeID: 2}))
	readUntil(t, second, EventInputResult)

	first.Close()
	assert.Never(t, func() bool {
		target, ok := s.svc.Surface().DragTarget()
		return !ok || target != 2
	}, 300*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, drag.Armed, s.svc.Surface().DragState())
}

func TestEventsStream(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	s.seed(t)

	buf := make([]byte, 4096)
	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(got.String(), "node_created") {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, got.String(), `"type":"node_created"`)
}
