/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// collector records every request an httptest server receives.
type collector struct {
	mu     sync.Mutex
	bodies map[string][][]byte
	auth   []string
	status int
}

func newCollector(status int) (*collector, *httptest.Server) {
	c := &collector{bodies: map[string][][]byte{}, status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies[r.URL.Path] = append(c.bodies[r.URL.Path], b)
		c.auth = append(c.auth, r.Header.Get("Authorization"))
		c.mu.Unlock()
		w.WriteHeader(c.status)
	}))
	return c, srv
}

func (c *collector) payloads(t *testing.T, path string) []Payload {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Payload, 0, len(c.bodies[path]))
	for _, b := range c.bodies[path] {
		var p Payload
		if err := json.Unmarshal(b, &p); err != nil {
			t.Fatalf("bad event json %q: %v", b, err)
		}
		out = append(out, p)
	}
	return out
}

func (c *collector) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies[path])
}

func TestSessionEventsAreDelivered(t *testing.T) {
	col, srv := newCollector(http.StatusNoContent)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Token: "secret", Timeout: time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.SessionStart("pattern", "headless", 640, 480)
	c.DrawingSaved([]string{"png"})
	c.SessionEnd(1500*time.Millisecond, 42)
	c.Flush(context.Background())

	got := col.payloads(t, "/events")
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	names := []string{EventSessionStart, EventDrawingSaved, EventSessionEnd}
	for i, p := range got {
		if p.Name != names[i] {
			t.Fatalf("event %d name = %q, want %q", i, p.Name, names[i])
		}
		if p.Session == "" || p.Platform == "" || p.Time.IsZero() {
			t.Fatalf("event %d missing envelope fields: %+v", i, p)
		}
		if col.auth[i] != "Bearer secret" {
			t.Fatalf("event %d auth header = %q", i, col.auth[i])
		}
	}
	if got[0].Props["width"] != float64(640) || got[0].Props["source"] != "pattern" {
		t.Fatalf("session_start props mismatch: %v", got[0].Props)
	}
	if got[2].Props["frames"] != float64(42) || got[2].Props["duration_ms"] != float64(1500) {
		t.Fatalf("session_end props mismatch: %v", got[2].Props)
	}
	if s := c.Stats(); s.Sent != 3 || s.Failed != 0 || s.Dropped != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestCrashUploadIsSynchronous(t *testing.T) {
	col, srv := newCollector(http.StatusOK)
	defer srv.Close()

	c := New(Config{OptIn: true, CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	c.UploadCrash([]byte("STACKTRACE"))
	if col.count("/crash") != 1 {
		t.Fatalf("crash report not uploaded before return")
	}
	if c.Enabled() {
		t.Fatalf("no events url, events must stay disabled")
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	col, srv := newCollector(http.StatusOK)
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(context.Background())

	if n := col.count("/events") + col.count("/crash"); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestFailuresAreCounted(t *testing.T) {
	_, srv := newCollector(http.StatusInternalServerError)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second, DebugLogging: true})
	defer c.Close()
	c.Event("boom", map[string]any{"a": 1})
	c.Flush(context.Background())
	if s := c.Stats(); s.Failed != 1 || s.Sent != 0 {
		t.Fatalf("stats = %+v", s)
	}

	down := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond, DebugLogging: true})
	defer down.Close()
	down.Event("err", nil)
	down.Flush(context.Background())
	down.UploadCrash([]byte("oops"))
	if s := down.Stats(); s.Failed != 1 {
		t.Fatalf("unreachable endpoint stats = %+v", s)
	}
}

func TestEventsAfterCloseAreDropped(t *testing.T) {
	col, srv := newCollector(http.StatusOK)
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	c.Close()
	c.Close()
	c.Event("late", nil)
	c.Flush(context.Background())
	if col.count("/") != 0 {
		t.Fatalf("closed client must not send")
	}
	if c.Stats().Dropped != 1 {
		t.Fatalf("stats = %+v", c.Stats())
	}
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv(EnvOptIn, "yes")
	t.Setenv(EnvURL, " http://127.0.0.1:0 ")
	t.Setenv(EnvCrashURL, "")
	t.Setenv(EnvTimeout, "100")
	t.Setenv(EnvDebug, "")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://127.0.0.1:0" || cfg.Timeout != 100*time.Millisecond || cfg.DebugLogging {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}

	t.Setenv(EnvTimeout, "soon")
	if FromEnv().Timeout != defaultTimeout {
		t.Fatalf("bad timeout should fall back to the default")
	}

	c := NewDefault(cfg)
	defer c.Close()
	if Default() != c || !Enabled() {
		t.Fatalf("default client not installed")
	}
}
