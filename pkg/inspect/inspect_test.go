package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fnr1r/wayland-go/pkg/interfaces"
	"github.com/fnr1r/wayland-go/pkg/server"
)

func newTestServer(t *testing.T) (*Server, *server.EventLoop) {
	t.Helper()
	loop, err := server.NewEventLoop()
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	t.Cleanup(loop.Close)

	reg := prometheus.NewRegistry()
	ins := New(loop, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	t.Cleanup(ins.Close)
	return ins, loop
}

func getJSON(t *testing.T, ts *httptest.Server, path string, v any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

// waitForSubscriber blocks until the stream handler has registered the
// dialed connection; the handshake completes slightly before that.
func waitForSubscriber(t *testing.T, tp *tap) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tp.mu.RLock()
		n := len(tp.conns)
		tp.mu.RUnlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("stream subscriber never registered")
}

func TestHealthEndpoint(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	var out map[string]string
	getJSON(t, ts, "/healthz", &out)
	if out["status"] != "ok" {
		t.Fatalf("health = %v", out)
	}
}

func TestClientsEndpointTracksHooks(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	hooks := ins.Hooks()
	c := &server.Client{TraceID: "conn-1"}
	hooks.ClientConnected(c)
	hooks.MessageDispatched(c, "wl_display", "sync", 0, time.Microsecond)
	hooks.MessageDispatched(c, "wl_display", "sync", 0, time.Microsecond)

	var out []clientInfo
	getJSON(t, ts, "/clients", &out)
	if len(out) != 1 {
		t.Fatalf("clients = %d, want 1", len(out))
	}
	if out[0].TraceID != "conn-1" || out[0].Requests != 2 {
		t.Fatalf("client record = %+v", out[0])
	}

	hooks.ClientClosed(c, nil)
	getJSON(t, ts, "/clients", &out)
	if len(out) != 0 {
		t.Fatalf("clients after close = %d, want 0", len(out))
	}
}

func TestGlobalsEndpoint(t *testing.T) {
	ins, loop := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	if _, err := loop.RegisterGlobal(interfaces.Display, 1, nil, nil); err != nil {
		t.Fatalf("RegisterGlobal: %v", err)
	}

	var out []globalInfo
	getJSON(t, ts, "/globals", &out)
	if len(out) != 1 {
		t.Fatalf("globals = %d, want 1", len(out))
	}
	if out[0].Interface != "wl_display" || out[0].Version != 1 {
		t.Fatalf("global record = %+v", out[0])
	}
}

func TestStatsEndpoint(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	var out map[string]any
	getJSON(t, ts, "/stats", &out)
	if _, ok := out["DispatchCycles"]; !ok {
		t.Fatalf("stats missing DispatchCycles: %v", out)
	}
}

func TestStreamDeliversTapMessages(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, ins.tap)
	hooks := ins.Hooks()
	c := &server.Client{TraceID: "conn-1"}
	hooks.MessageDispatched(c, "wl_registry", "bind", 0, 5*time.Microsecond)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal stream message: %v", err)
	}
	if msg.Type != "request" || msg.Interface != "wl_registry" || msg.Message != "bind" {
		t.Fatalf("stream message = %+v", msg)
	}
}

func TestStreamProtocolErrorRecord(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, ins.tap)
	hooks := ins.Hooks()
	hooks.ProtocolError(&server.Client{TraceID: "conn-1"}, 4, 1, "bad method")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "protocol_error" || msg.Object != 4 || msg.Code != 1 {
		t.Fatalf("stream message = %+v", msg)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	ins, _ := newTestServer(t)
	ts := httptest.NewServer(ins.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}
