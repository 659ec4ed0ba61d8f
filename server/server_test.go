package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/flowcanvas"
	"github.com/meikuraledutech/flowcanvas/backend"
	"github.com/meikuraledutech/flowcanvas/conversation"
	"github.com/meikuraledutech/flowcanvas/logging"
	"github.com/meikuraledutech/flowcanvas/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, backendURL string) *fiber.App {
	t.Helper()
	_, app := newTestServer(t, backendURL)
	return app
}

func newTestServer(t *testing.T, backendURL string) (*server, *fiber.App) {
	t.Helper()
	if backendURL == "" {
		backendURL = "http://127.0.0.1:1"
	}
	store := memory.New()
	s := &server{
		store:     store,
		canvases:  newCanvasRegistry(store),
		history:   conversation.NewHistory(conversation.NewFileStore(t.TempDir())),
		workflows: backend.NewWorkflowClient(backendURL, time.Second),
		insights:  backend.NewInsightClient(backendURL, time.Second),
		log:       logging.NewNop(),
	}
	return s, newApp(s)
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	status, out, err := send(app, method, path, body)
	require.NoError(t, err)
	return status, out
}

// send is call without the test assertions, for use off the test goroutine.
func send(app *fiber.App, method, path string, body any) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// seedWorkflow stores A at (0,0) and B at (300,100).
func seedWorkflow(t *testing.T, app *fiber.App) flowcanvas.Workflow {
	t.Helper()
	status, body := call(t, app, "POST", "/workflows", flowcanvas.Workflow{
		Name: "Invoice intake",
		Nodes: []flowcanvas.Node{
			{ID: "a", Category: flowcanvas.CategoryTrigger, Title: "Invoice received"},
			{ID: "b", Category: flowcanvas.CategoryAction, Title: "Run OCR", Position: flowcanvas.Point{X: 300, Y: 100}},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[flowcanvas.Workflow](t, body)
}

func getWorkflow(t *testing.T, app *fiber.App, id string) flowcanvas.Workflow {
	t.Helper()
	status, body := call(t, app, "GET", "/workflows/"+id, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[flowcanvas.Workflow](t, body)
}

func pointer(t *testing.T, app *fiber.App, id, typ string, x, y float64) pointerResponse {
	t.Helper()
	status, body := call(t, app, "POST", "/workflows/"+id+"/canvas/pointer", pointerRequest{Type: typ, X: x, Y: y})
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[pointerResponse](t, body)
}

func TestWorkflowCRUD(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)
	assert.NotEmpty(t, w.ID)

	status, body := call(t, app, "GET", "/workflows", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[[]flowcanvas.WorkflowSummary](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].NodeCount)

	w.Name = "Invoice intake v2"
	status, body = call(t, app, "PUT", "/workflows/"+w.ID, w)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Invoice intake v2", getWorkflow(t, app, w.ID).Name)

	status, _ = call(t, app, "DELETE", "/workflows/"+w.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, "GET", "/workflows/"+w.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, app, "PUT", "/workflows/"+w.ID, w)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWorkflowCycleRejected(t *testing.T) {
	app := newTestApp(t, "")
	status, body := call(t, app, "POST", "/workflows", flowcanvas.Workflow{
		Nodes: []flowcanvas.Node{{ID: "a"}, {ID: "b"}},
		Edges: []flowcanvas.Edge{{SourceID: "a", TargetID: "b"}, {SourceID: "b", TargetID: "a"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status, string(body))

	status, _ = call(t, app, "POST", "/workflows", "not a workflow")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEdgeRoutes(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	status, body := call(t, app, "POST", "/workflows/"+w.ID+"/edges", flowcanvas.Edge{SourceID: "a", TargetID: "b"})
	require.Equal(t, http.StatusCreated, status, string(body))
	edgeID := decode[map[string]string](t, body)["id"]

	status, body = call(t, app, "POST", "/workflows/"+w.ID+"/edges", flowcanvas.Edge{SourceID: "b", TargetID: "a"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	rejected := decode[map[string]string](t, body)
	assert.Equal(t, "circular dependency", rejected["reason"])
	assert.Equal(t, "error", rejected["severity"])

	status, body = call(t, app, "POST", "/workflows/"+w.ID+"/edges", flowcanvas.Edge{SourceID: "a", TargetID: "b"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "warning", decode[map[string]string](t, body)["severity"])

	status, _ = call(t, app, "PUT", "/edges/"+edgeID, flowcanvas.Edge{SourceID: "a", TargetID: "b", Condition: "amount >"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = call(t, app, "POST", "/workflows/"+w.ID+"/connections/validate", map[string]string{"source_id": "b", "target_id": "b"})
	require.Equal(t, http.StatusOK, status)
	d := decode[flowcanvas.Decision](t, body)
	assert.False(t, d.Accepted)
	assert.Equal(t, flowcanvas.ReasonSelfConnection, d.Reason)

	status, _ = call(t, app, "DELETE", "/edges/"+edgeID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, "GET", "/edges/"+edgeID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNodeRoutes(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	status, body := call(t, app, "POST", "/workflows/"+w.ID+"/nodes", flowcanvas.Node{Category: flowcanvas.CategoryFlow, Title: "Wait"})
	require.Equal(t, http.StatusCreated, status, string(body))
	id := decode[map[string]string](t, body)["id"]

	status, body = call(t, app, "GET", "/nodes/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Wait", decode[flowcanvas.Node](t, body).Title)

	status, _ = call(t, app, "PUT", "/nodes/missing", flowcanvas.Node{Title: "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, "POST", "/workflows/missing/nodes", flowcanvas.Node{Title: "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, "POST", "/workflows/"+w.ID+"/nodes", flowcanvas.Node{ID: "a", Title: "again"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = call(t, app, "DELETE", "/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Len(t, getWorkflow(t, app, w.ID).Nodes, 2)
}

func TestLayoutAndExport(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)
	status, _ := call(t, app, "POST", "/workflows/"+w.ID+"/edges", flowcanvas.Edge{SourceID: "a", TargetID: "b"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, "POST", "/workflows/"+w.ID+"/layout", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	laid := decode[flowcanvas.Workflow](t, body)
	a, _ := laid.Node("a")
	b, _ := laid.Node("b")
	assert.Equal(t, a.Position.Y, b.Position.Y)
	assert.Less(t, a.Position.X, b.Position.X)

	req := httptest.NewRequest("GET", "/workflows/"+w.ID+"/export", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	yml, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(yml), "name: Invoice intake")

	assert.Contains(t, string(yml), "source: a")
}

func TestImportYAML(t *testing.T) {
	app := newTestApp(t, "")
	doc := `id: receipts
name: Receipt filing
version: 1
nodes:
  - id: upload
    category: trigger
    title: Receipt uploaded
    position: {x: 0, y: 0}
  - id: file
    category: integration
    title: File to ledger
    position: {x: 300, y: 0}
edges:
  - source: upload
    target: file
`
	req := httptest.NewRequest("POST", "/workflows/import", strings.NewReader(doc))
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, getWorkflow(t, app, "receipts").Edges, 1)

	req = httptest.NewRequest("POST", "/workflows/import", strings.NewReader("nodes: [{id: x, colour: red}]"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCanvasConnectGesture(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	// A's output handle is at (200,40), B's input handle at (300,140).
	down := pointer(t, app, w.ID, "down", 200, 40)
	require.NotNil(t, down.Started)
	assert.True(t, *down.Started)
	assert.Equal(t, flowcanvas.DrawingConnection, down.Session)

	status, body := call(t, app, "GET", "/workflows/"+w.ID+"/canvas", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, decode[flowcanvas.DrawList](t, body).Preview)

	pointer(t, app, w.ID, "move", 300, 140)
	up := pointer(t, app, w.ID, "up", 300, 140)
	require.NotNil(t, up.Outcome)
	assert.True(t, up.Outcome.Changed)
	require.NotNil(t, up.Outcome.Decision)
	assert.True(t, up.Outcome.Decision.Accepted)
	assert.Equal(t, flowcanvas.Idle, up.Session)

	saved := getWorkflow(t, app, w.ID)
	require.Len(t, saved.Edges, 1)
	assert.Equal(t, "a", saved.Edges[0].SourceID)
	assert.Equal(t, "b", saved.Edges[0].TargetID)

	// B's output handle is at (500,140), A's input handle at (0,40).
	pointer(t, app, w.ID, "down", 500, 140)
	up = pointer(t, app, w.ID, "up", 0, 40)
	require.NotNil(t, up.Outcome)
	assert.False(t, up.Outcome.Changed)
	require.NotNil(t, up.Outcome.Decision)
	assert.Equal(t, flowcanvas.ReasonCircular, up.Outcome.Decision.Reason)
	assert.Len(t, getWorkflow(t, app, w.ID).Edges, 1)
}

func TestCanvasMoveGesture(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	assert.True(t, *pointer(t, app, w.ID, "down", 100, 40).Started)
	// A second gesture can't start while one is active.
	assert.False(t, *pointer(t, app, w.ID, "down", 400, 140).Started)

	pointer(t, app, w.ID, "move", 130, 50)
	assert.Equal(t, flowcanvas.Point{}, getWorkflow(t, app, w.ID).Nodes[0].Position)

	out := pointer(t, app, w.ID, "leave", 150, 60).Outcome
	require.NotNil(t, out)
	assert.True(t, out.Changed)
	assert.Equal(t, &flowcanvas.Point{X: 50, Y: 20}, out.Position)
	assert.Equal(t, flowcanvas.Point{X: 50, Y: 20}, getWorkflow(t, app, w.ID).Nodes[0].Position)
}

func TestCanvasViewportDropAndDelete(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	status, body := call(t, app, "POST", "/workflows/"+w.ID+"/canvas/viewport", map[string]float64{"x": 0, "y": 0, "factor": 2})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, 2.0, decode[flowcanvas.Viewport](t, body).Zoom)

	status, body = call(t, app, "POST", "/workflows/"+w.ID+"/canvas/viewport", map[string]float64{"zoom": 50})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, flowcanvas.MaxZoom, decode[flowcanvas.Viewport](t, body).Zoom)

	status, _ = call(t, app, "POST", "/workflows/"+w.ID+"/canvas/viewport", map[string]float64{"zoom": 1})
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, app, "POST", "/workflows/"+w.ID+"/canvas/drop", dropRequest{Category: "logic", X: 400, Y: 400})
	require.Equal(t, http.StatusCreated, status, string(body))
	node := decode[flowcanvas.Node](t, body)
	assert.Equal(t, flowcanvas.Point{X: 300, Y: 360}, node.Position)
	assert.Equal(t, "Logic", node.Title)
	assert.Len(t, getWorkflow(t, app, w.ID).Nodes, 3)

	status, _ = call(t, app, "POST", "/workflows/"+w.ID+"/canvas/drop", dropRequest{Category: "teleport"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, "PUT", "/workflows/"+w.ID+"/canvas/selection", flowcanvas.Selection{NodeIDs: []string{node.ID}})
	require.Equal(t, http.StatusOK, status)
	status, body = call(t, app, "DELETE", "/workflows/"+w.ID+"/canvas/selection", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, decode[map[string]bool](t, body)["deleted"])
	assert.Len(t, getWorkflow(t, app, w.ID).Nodes, 2)
}

func TestCanvasErrors(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	status, _ := call(t, app, "GET", "/workflows/missing/canvas", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, "POST", "/workflows/"+w.ID+"/canvas/pointer", pointerRequest{Type: "wiggle"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCanvasSeesRESTChanges(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	status, _ := call(t, app, "GET", "/workflows/"+w.ID+"/canvas", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, "POST", "/workflows/"+w.ID+"/nodes", flowcanvas.Node{ID: "c", Title: "Archive"})
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, "GET", "/workflows/"+w.ID+"/canvas", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[flowcanvas.DrawList](t, body).Nodes, 3)
}

func TestIDsSurviveLaterRequests(t *testing.T) {
	s, app := newTestServer(t, "")
	w := seedWorkflow(t, app)

	status, body := call(t, app, "POST", "/workflows/"+w.ID+"/nodes", flowcanvas.Node{Category: flowcanvas.CategoryFlow, Title: "Wait"})
	require.Equal(t, http.StatusCreated, status, string(body))
	id := decode[map[string]string](t, body)["id"]

	status, _ = call(t, app, "GET", "/nodes/"+strings.Repeat("z", len(w.ID)), nil)
	require.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, "DELETE", "/nodes/"+id, nil)
	assert.Equal(t, http.StatusNoContent, status, string(body))
	assert.Len(t, getWorkflow(t, app, w.ID).Nodes, 2)

	status, _ = call(t, app, "GET", "/workflows/"+w.ID+"/canvas", nil)
	require.Equal(t, http.StatusOK, status)
	call(t, app, "GET", "/workflows/"+strings.Repeat("y", len(w.ID))+"/"+strings.Repeat("z", 8), nil)

	s.canvases.mu.Lock()
	_, ok := s.canvases.open[w.ID]
	n := len(s.canvases.open)
	s.canvases.mu.Unlock()
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestCanvasCommitsKeepConcurrentRESTChanges(t *testing.T) {
	app := newTestApp(t, "")
	w := seedWorkflow(t, app)

	const rounds = 10
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			status, body, err := send(app, "POST", "/workflows/"+w.ID+"/nodes", flowcanvas.Node{Category: flowcanvas.CategoryAction, Title: "rest"})
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusCreated, status, string(body))
			}
		}()
		go func() {
			defer wg.Done()
			status, body, err := send(app, "POST", "/workflows/"+w.ID+"/canvas/drop", dropRequest{Category: "action", X: 10, Y: 10})
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusCreated, status, string(body))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, getWorkflow(t, app, w.ID).Nodes, 2+2*rounds)
}

func TestConversationRoutes(t *testing.T) {
	app := newTestApp(t, "")

	status, body := call(t, app, "GET", "/conversations", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]conversation.Conversation](t, body), 2)

	status, body = call(t, app, "POST", "/conversations", map[string]string{"title": "Audit prep"})
	require.Equal(t, http.StatusCreated, status)
	conv := decode[conversation.Conversation](t, body)

	status, body = call(t, app, "POST", "/conversations/"+conv.ID+"/messages", conversation.Message{Role: "user", Content: "Which receipts are missing?"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Len(t, decode[conversation.Conversation](t, body).Messages, 1)

	status, _ = call(t, app, "POST", "/conversations/"+conv.ID+"/messages", conversation.Message{Role: "robot", Content: "beep"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, "DELETE", "/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, "GET", "/conversations/"+conv.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBackendProxy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/workflows/wf-1/executions":
			w.Write([]byte(`[{"id":"ex-1","status":"paused","started_at":"2024-03-14T09:00:00Z"}]`))
		case "/documents/doc-1/summary":
			w.Write([]byte(`{"summary":"Two-page lease agreement."}`))
		case "/documents/doc-1/key-terms":
			w.Write([]byte(`["lease term","deposit"]`))
		default:
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	app := newTestApp(t, srv.URL)

	status, body := call(t, app, "GET", "/workflows/wf-1/executions?limit=3", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	list := decode[[]backend.Execution](t, body)
	require.Len(t, list, 1)
	assert.Equal(t, backend.StatusPaused, list[0].Status)

	status, body = call(t, app, "GET", "/documents/doc-1/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Two-page lease agreement.", decode[map[string]any](t, body)["summary"])

	status, body = call(t, app, "GET", "/documents/doc-1/key-terms", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, []string{"lease term", "deposit"}, decode[[]string](t, body))

	status, body = call(t, app, "POST", "/workflows/wf-1/execute", backend.ExecuteRequest{})
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, decode[map[string]string](t, body)["error"], "status 500")

	status, _ = call(t, app, "POST", "/documents/generate", backend.GenerateRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBackendUnreachable(t *testing.T) {
	app := newTestApp(t, "")
	status, _ := call(t, app, "GET", "/documents/doc-1/insights", nil)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestMetricsAndHealth(t *testing.T) {
	app := newTestApp(t, "")

	status, _ := call(t, app, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := call(t, app, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "flowcanvas_canvas_open")
}
