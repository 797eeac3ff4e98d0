package httpapi

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/abc", nil))

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte("relax3d_http_requests_total")) || !bytes.Contains(body, []byte(`path="/runs/{id}"`)) {
		preview := body
		if len(preview) > 400 {
			preview = preview[:400]
		}
		t.Fatalf("expected relax3d_http_requests_total labelled by pattern; got: %q", string(preview))
	}
}

func TestMetricsMiddleware_InflightIsUnlabelled(t *testing.T) {
	before := testutil.ToFloat64(httpInflight)
	var during float64
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(httpInflight)
		w.WriteHeader(http.StatusOK)
	})
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))
	}
	if during != before+1 {
		t.Fatalf("inflight during request = %v, want %v", during, before+1)
	}
	if got := testutil.ToFloat64(httpInflight); got != before {
		t.Fatalf("inflight after requests = %v, want %v", got, before)
	}
	if n := testutil.CollectAndCount(httpInflight); n != 1 {
		t.Fatalf("inflight series = %d, want 1", n)
	}
}

func TestIncrementRejected(t *testing.T) {
	before := testutil.ToFloat64(runsRejectedTotal.WithLabelValues("busy"))
	IncrementRejected("busy")
	IncrementRejected("")
	if got := testutil.ToFloat64(runsRejectedTotal.WithLabelValues("busy")); got != before+1 {
		t.Fatalf("busy counter = %v, want %v", got, before+1)
	}
	if testutil.ToFloat64(runsRejectedTotal.WithLabelValues("unspecified")) < 1 {
		t.Fatal("empty reason not counted as unspecified")
	}
}

func TestJoinContexts(t *testing.T) {
	base, stopBase := context.WithCancel(context.Background())
	j, cancel := joinContexts(base, context.Background())
	defer cancel()
	stopBase()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when base was cancelled")
	}

	req, stopReq := context.WithCancel(context.Background())
	j2, cancel2 := joinContexts(context.Background(), req)
	defer cancel2()
	stopReq()
	if j2.Err() == nil {
		t.Fatal("joined context not cancelled with the request")
	}
}

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	SetBaseContext(ctx)
	// nolint:staticcheck // nil is the documented reset
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatal("base context not reset")
	}
}

func TestSetMaxBodyBytes(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 64<<10 {
		t.Fatalf("expected default, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(16)
	w := post(t, NewMux(&mockService{}), "/runs/relax", `{"option":"L","padding":"xxxxxxxxxxxxxxxxxxxx"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body status=%d", w.Code)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"ERROR": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	r := httptest.NewRequest(http.MethodGet, "/events?log=1", nil)
	if requestLogLevel(r) != LevelDebug {
		t.Fatal("?log=1 should mean debug")
	}
	r = httptest.NewRequest(http.MethodGet, "/events", nil)
	r.Header.Set("X-Log-Level", "error")
	if requestLogLevel(r) != LevelError {
		t.Fatal("header override ignored")
	}
}

func TestLoggingLineWriter_SplitsLines(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	defer log.SetOutput(orig)
	log.SetOutput(&buf)

	lw := &loggingLineWriter{}
	_, _ = lw.Write([]byte(`{"kind":"info"}` + "\n" + `{"kind":`))
	_, _ = lw.Write([]byte(`"run_done"}` + "\n"))

	out := buf.String()
	if !strings.Contains(out, `event> {"kind":"info"}`) || !strings.Contains(out, `event> {"kind":"run_done"}`) {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestMountSwagger(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
}
