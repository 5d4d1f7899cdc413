package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveRebuild("succeeded", 120*time.Millisecond)
	pr.ObserveRebuild("skipped", time.Millisecond)
	pr.ObserveCompile(true, 10*time.Millisecond)
	pr.ObserveCompile(false, 5*time.Millisecond)
	pr.IncReloadBroadcast()
	pr.SetReloadClients(3)
	pr.SetGraphDocuments(7)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 7 {
		t.Fatalf("expected 7 metric families, got %d", len(mfs))
	}
}

func TestPrometheusHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncReloadBroadcast()

	srv := httptest.NewServer(pr.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "xo_reload_broadcasts_total 1") {
		t.Errorf("exposition missing broadcast counter:\n%s", body)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRebuild("failed", time.Second)
	r.ObserveCompile(false, time.Second)
	r.IncReloadBroadcast()
	r.SetReloadClients(1)
	r.SetGraphDocuments(1)
}
