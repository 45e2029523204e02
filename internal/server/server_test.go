package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atelier/internal/doc"
	"github.com/roach88/atelier/internal/project"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	m, err := project.Open(context.Background(), t.TempDir(), project.Options{Debounce: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return New(m)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

// rootID fetches the active page's root node id.
func rootID(t *testing.T, s *Server) string {
	t.Helper()
	w := doJSON(t, s, http.MethodGet, "/api/v1/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := decode[doc.Document](t, w)
	return d.Pages[d.ActivePageID].RootID
}

func TestGetDocument(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/document", nil)
	require.Equal(t, http.StatusOK, w.Code)

	d := decode[doc.Document](t, w)
	assert.Len(t, d.Pages, 1)
	assert.NotEmpty(t, d.ActivePageID)
	assert.Equal(t, "web", d.DesignType)
}

func TestNodeLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	root := rootID(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/v1/nodes", map[string]any{
		"parentId":    root,
		"tag":         "section",
		"classes":     []string{"hero"},
		"textContent": "Welcome",
	})
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[doc.Node](t, w)
	assert.Equal(t, "section", created.Tag)
	assert.Equal(t, root, created.ParentID)

	w = doJSON(t, s, http.MethodPatch, "/api/v1/nodes/"+created.ID, map[string]any{
		"textContent": "Changed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[doc.Node](t, w)
	assert.Equal(t, "Changed", updated.TextContent)
	assert.Equal(t, []string{"hero"}, updated.Classes)

	w = doJSON(t, s, http.MethodGet, "/api/v1/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/v1/nodes/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[map[string]int](t, w)
	assert.Equal(t, 1, result["removedCount"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/nodes/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSubtreeOverHTTP(t *testing.T) {
	s := newTestServer(t)
	root := rootID(t, s)

	w := doJSON(t, s, http.MethodPost, "/api/v1/nodes/subtree", map[string]any{
		"parentId": root,
		"nodes": []map[string]any{
			{"tag": "section", "children": []map[string]any{
				{"tag": "h1", "textContent": "Title"},
			}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[map[string]any](t, w)
	assert.Equal(t, float64(2), result["count"])
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	// Unknown id: NOT_FOUND becomes 404.
	w := doJSON(t, s, http.MethodGet, "/api/v1/nodes/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[map[string]string](t, w)
	assert.Contains(t, body["error"], "ghost")

	// Deleting the last page: INVALID_OPERATION becomes 409.
	doc := decode[map[string]json.RawMessage](t, doJSON(t, s, http.MethodGet, "/api/v1/document", nil))
	var activePageID string
	require.NoError(t, json.Unmarshal(doc["activePageId"], &activePageID))
	w = doJSON(t, s, http.MethodDelete, "/api/v1/pages/"+activePageID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unparseable body: 400.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/nodes", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStylesAndTokensOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/tokens", map[string]any{
		"category": "colors",
		"values":   map[string]string{"primary": "#ff0000"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/styles", map[string]any{
		"selector":   ".hero",
		"properties": map[string]string{"color": "#ff0000"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/tokens/propagate", map[string]any{
		"category": "colors",
		"key":      "primary",
		"value":    "#cc0000",
	})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[map[string]int](t, w)
	assert.Equal(t, 1, result["updatedCount"])

	d := decode[doc.Document](t, doJSON(t, s, http.MethodGet, "/api/v1/document", nil))
	assert.Equal(t, "#cc0000", d.Styles[".hero"]["color"])

	// Unknown category: 409.
	w = doJSON(t, s, http.MethodPost, "/api/v1/tokens", map[string]any{
		"category": "shadows",
		"values":   map[string]string{"low": "x"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProjectsOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/projects", map[string]any{"name": "Site"})
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[project.Info](t, w)
	assert.Equal(t, "site", info.Slug)

	w = doJSON(t, s, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[map[string]json.RawMessage](t, w)
	var projects []project.Info
	require.NoError(t, json.Unmarshal(list["projects"], &projects))
	assert.Len(t, projects, 2)
	var activeID string
	require.NoError(t, json.Unmarshal(list["activeProjectId"], &activeID))
	assert.Equal(t, info.ID, activeID, "create switches to the new project")

	w = doJSON(t, s, http.MethodPost, "/api/v1/projects/ghost/switch", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// wsEvent mirrors the frames the hub writes.
type wsEvent struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev wsEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestWebsocketSnapshotThenOrderedDeltas(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// First frame is always the snapshot.
	first := readEvent(t, conn)
	require.Equal(t, "full-state", first.Kind)
	var snapshot struct {
		Document doc.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(first.Payload, &snapshot))
	root := snapshot.Document.Pages[snapshot.Document.ActivePageID].RootID
	require.NotEmpty(t, root)

	// Mutations arrive afterwards, in order.
	for _, text := range []string{"one", "two", "three"} {
		w := doJSON(t, s, http.MethodPost, "/api/v1/nodes", map[string]any{
			"parentId":    root,
			"tag":         "div",
			"textContent": text,
		})
		require.Equal(t, http.StatusOK, w.Code)
	}
	for _, want := range []string{"one", "two", "three"} {
		ev := readEvent(t, conn)
		require.Equal(t, "node-created", ev.Kind)
		var n doc.Node
		require.NoError(t, json.Unmarshal(ev.Payload, &n))
		assert.Equal(t, want, n.TextContent)
	}
}

func TestWebsocketObserverCount(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub().Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
