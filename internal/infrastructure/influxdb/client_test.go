package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
	"github.com/nerrad567/inventory-core/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	bodies []string
	query  string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(body))
		f.query = r.URL.RawQuery
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.bodies, "\n")
}

func newFakeClient(t *testing.T) (*influxdb.Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := influxdb.Connect(config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "lab",
		Bucket:        "inventory",
		BatchSize:     10,
		FlushInterval: 1,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, fake
}

// waitForWrite flushes until the fake server has seen want.
func waitForWrite(t *testing.T, client *influxdb.Client, fake *fakeInflux, want string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		client.Flush()
		if got := fake.written(); strings.Contains(got, want) {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("line protocol containing %q never written; got %q", want, fake.written())
	return ""
}

func TestConnect_Disabled(t *testing.T) {
	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: true, URL: url, Bucket: "b"})
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := influxdb.Connect(config.InfluxDBConfig{Enabled: true, URL: srv.URL, Bucket: "b", BatchSize: -1, FlushInterval: 0})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestHealthCheck(t *testing.T) {
	client, _ := newFakeClient(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	client.Close()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
}

func TestWriteDeviceEvent(t *testing.T) {
	client, fake := newFakeClient(t)

	client.WriteDeviceEvent("taken", "in_use", "00", "03", time.Unix(1700000000, 0))

	got := waitForWrite(t, client, fake, "device_events,action=taken,status=in_use")
	for _, want := range []string{`device_id="00"`, `user_id="03"`, "count=1i", "1700000000000000000"} {
		if !strings.Contains(got, want) {
			t.Errorf("line protocol %q missing %q", got, want)
		}
	}

	fake.mu.Lock()
	query := fake.query
	fake.mu.Unlock()
	if !strings.Contains(query, "bucket=inventory") || !strings.Contains(query, "org=lab") {
		t.Errorf("write query = %q, want org and bucket", query)
	}
}

func TestWriteDeviceEvent_NoUser(t *testing.T) {
	client, fake := newFakeClient(t)

	client.WriteDeviceEvent("registered", "unused", "05", "", time.Now())

	got := waitForWrite(t, client, fake, "action=registered")
	if strings.Contains(got, "user_id") {
		t.Errorf("line protocol %q should not carry user_id", got)
	}
}

func TestWriteInventoryStats(t *testing.T) {
	client, fake := newFakeClient(t)

	client.WriteInventoryStats(3, 2, map[string]int{"unused": 1, "in_use": 2}, time.Now())

	got := waitForWrite(t, client, fake, "inventory_stats")
	for _, want := range []string{"devices=3i", "users=2i", "status_unused=1i", "status_in_use=2i"} {
		if !strings.Contains(got, want) {
			t.Errorf("line protocol %q missing %q", got, want)
		}
	}
}

func TestWrite_AfterCloseIsDropped(t *testing.T) {
	client, fake := newFakeClient(t)
	client.Close()

	client.WritePoint("custom", nil, map[string]any{"v": 1})
	client.Flush()

	if got := fake.written(); got != "" {
		t.Errorf("write after Close reached server: %q", got)
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
	if client.IsConnected() {
		t.Error("nil client should not report connected")
	}
}

func TestConnect_DefaultTags(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := influxdb.Connect(config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Bucket:        "inventory",
		FlushInterval: 1,
		Tags:          map[string]string{"site": "lab-1"},
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteDeviceEvent("returned", "in_storage", "02", "01", time.Now())

	got := waitForWrite(t, client, fake, "action=returned")
	if !strings.Contains(got, "site=lab-1") {
		t.Errorf("line protocol %q missing default site tag", got)
	}
}

func TestStats_Counters(t *testing.T) {
	client, fake := newFakeClient(t)

	client.WriteDeviceEvent("taken", "in_use", "00", "03", time.Now())
	client.WriteInventoryStats(1, 1, nil, time.Now())
	waitForWrite(t, client, fake, "inventory_stats")

	if s := client.Stats(); s.Queued != 2 || s.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 2 queued", s)
	}

	client.Close()
	client.WritePoint("custom", nil, map[string]any{"v": 1})
	if s := client.Stats(); s.Queued != 2 || s.Dropped != 1 {
		t.Errorf("Stats() after Close = %+v, want 1 dropped", s)
	}

	var nilClient *influxdb.Client
	if s := nilClient.Stats(); s != (influxdb.Stats{}) {
		t.Errorf("nil Stats() = %+v", s)
	}
}
