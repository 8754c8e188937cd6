package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stocktracker/internal/monitor"
)

type fakeMonitor struct {
	status    monitor.Status
	added     []string
	removed   []string
	threshold float64
}

func (f *fakeMonitor) Status() monitor.Status { return f.status }

func (f *fakeMonitor) AddSymbol(ctx context.Context, symbol string) error {
	f.added = append(f.added, symbol)
	return nil
}

func (f *fakeMonitor) RemoveSymbol(symbol string) {
	f.removed = append(f.removed, symbol)
}

func (f *fakeMonitor) SetChangeThreshold(threshold float64) error {
	f.threshold = threshold
	return nil
}

type fakeTriggers struct {
	stocks, news, full int
}

func (f *fakeTriggers) TriggerStockRefresh(ctx context.Context)      { f.stocks++ }
func (f *fakeTriggers) TriggerNewsRefresh(ctx context.Context) error { f.news++; return nil }
func (f *fakeTriggers) TriggerFull(ctx context.Context) error        { f.full++; return nil }

type fakeLinker struct {
	created int
}

func (f *fakeLinker) LinkExisting(ctx context.Context) (int, error) {
	return f.created, nil
}

func newRouter(mon *fakeMonitor, trig *fakeTriggers, lk *fakeLinker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	(&MonitorHandler{Monitor: mon}).Register(r)
	(&ETLHandler{Scheduler: trig, Resolver: lk, Logger: zap.NewNop()}).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestMonitorStatus(t *testing.T) {
	mon := &fakeMonitor{status: monitor.Status{Running: true, Symbols: []string{"AAPL"}}}
	r := newRouter(mon, &fakeTriggers{}, &fakeLinker{})

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/monitor/status", "")
	if w.Code != http.StatusOK || resp.Code != 0 {
		t.Fatalf("unexpected response: %d %+v", w.Code, resp)
	}
}

func TestMonitorAddSymbol(t *testing.T) {
	mon := &fakeMonitor{}
	r := newRouter(mon, &fakeTriggers{}, &fakeLinker{})

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/monitor/symbols", `{"symbol":"NVDA"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(mon.added) != 1 || mon.added[0] != "NVDA" {
		t.Fatalf("expected NVDA added, got %v", mon.added)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/monitor/symbols", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing symbol must 400, got %d", w.Code)
	}
}

func TestMonitorRemoveSymbol(t *testing.T) {
	mon := &fakeMonitor{}
	r := newRouter(mon, &fakeTriggers{}, &fakeLinker{})

	w, _ := doJSON(t, r, http.MethodDelete, "/api/v1/monitor/symbols/TSLA", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(mon.removed) != 1 || mon.removed[0] != "TSLA" {
		t.Fatalf("expected TSLA removed, got %v", mon.removed)
	}
}

func TestMonitorSetThreshold(t *testing.T) {
	mon := &fakeMonitor{}
	r := newRouter(mon, &fakeTriggers{}, &fakeLinker{})

	w, _ := doJSON(t, r, http.MethodPut, "/api/v1/monitor/threshold", `{"threshold":0.05}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mon.threshold != 0.05 {
		t.Fatalf("expected threshold 0.05, got %v", mon.threshold)
	}

	w, _ = doJSON(t, r, http.MethodPut, "/api/v1/monitor/threshold", `{"nope":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing threshold must 400, got %d", w.Code)
	}
}

func TestLinkExisting(t *testing.T) {
	lk := &fakeLinker{created: 7}
	r := newRouter(&fakeMonitor{}, &fakeTriggers{}, lk)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/etl/link-existing", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data: %v", resp.Data)
	}
	if got := data["links_created"]; got != float64(7) {
		t.Fatalf("expected 7 links, got %v", got)
	}
}
