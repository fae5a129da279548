/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends anonymous, opt-in session metrics and crash reports.
// Nothing is sent unless the user opted in and an endpoint is configured;
// events never carry drawing content.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "livedoodle/internal/log"
	"livedoodle/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn    = "DOODLE_TELEMETRY_OPT_IN"
	EnvURL      = "DOODLE_TELEMETRY_URL"
	EnvCrashURL = "DOODLE_CRASH_UPLOAD_URL"
	EnvTimeout  = "DOODLE_TELEMETRY_TIMEOUT_MS"
	EnvDebug    = "DOODLE_TELEMETRY_DEBUG"
)

// Config controls the client. Token comes from the keychain and is sent as a
// bearer token.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Token        string
	Timeout      time.Duration
	DebugLogging bool
}

// Event names.
const (
	EventSessionStart = "session_start"
	EventDrawingSaved = "drawing_saved"
	EventSessionEnd   = "session_end"
)

const (
	queueSize      = 64
	defaultTimeout = 1500 * time.Millisecond
	flushCap       = time.Second
)

// FromEnv reads Config from the DOODLE_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        truthy(os.Getenv(EnvOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeout))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Payload is the JSON body of one event.
type Payload struct {
	Name     string         `json:"name"`
	Time     time.Time      `json:"ts"`
	Session  string         `json:"session"`
	Version  string         `json:"version"`
	Platform string         `json:"platform"`
	Props    map[string]any `json:"props,omitempty"`
}

// Stats counts what happened to submitted events.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Client posts events from a background goroutine. Event never blocks: when
// the queue is full the event is dropped.
type Client struct {
	cfg     Config
	log     *slog.Logger
	hc      *http.Client
	queue   chan Payload
	pending atomic.Int64 // queued plus in-flight

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	sent, failed, dropped atomic.Int64
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// NewDefault installs a client built from cfg as the package default and
// returns it.
func NewDefault(cfg Config) *Client {
	c := New(cfg)
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
	return c
}

// Default returns the package client, creating one from the environment when
// none was installed.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// New starts a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		hc:     &http.Client{Timeout: cfg.Timeout},
		queue:  make(chan Payload, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.run()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client sends events.
func Enabled() bool { return Default().Enabled() }

// Stats returns delivery counters.
func (c *Client) Stats() Stats {
	return Stats{Sent: c.sent.Load(), Failed: c.failed.Load(), Dropped: c.dropped.Load()}
}

// Event queues a named event. Props must not identify the user.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	if c.ctx.Err() != nil {
		c.dropped.Add(1)
		return
	}
	p := Payload{
		Name:     name,
		Time:     time.Now().UTC(),
		Session:  applog.Session(),
		Version:  version.String(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if len(props) > 0 {
		p.Props = make(map[string]any, len(props))
		for k, v := range props {
			p.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.queue <- p:
	default:
		c.pending.Add(-1)
		c.dropped.Add(1)
	}
}

// Event queues name on the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// Flush waits until queued events are delivered, ctx is done or a second has
// passed, whichever comes first.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, flushCap)
	defer cancel()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// Close stops delivery. In-flight requests are cancelled and queued events
// are discarded.
func (c *Client) Close() { c.once.Do(c.cancel) }

func (c *Client) run() {
	for {
		select {
		case <-c.ctx.Done():
			for {
				select {
				case <-c.queue:
					c.pending.Add(-1)
					c.dropped.Add(1)
				default:
					return
				}
			}
		case p := <-c.queue:
			body, err := json.Marshal(p)
			if err == nil {
				err = c.post(c.ctx, c.cfg.EventsURL, "application/json", body)
			}
			if err != nil {
				c.failed.Add(1)
				c.debug("event not delivered", slog.String("event", p.Name), slog.Any("err", err))
			} else {
				c.sent.Add(1)
				c.debug("event delivered", slog.String("event", p.Name))
			}
			c.pending.Add(-1)
		}
	}
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}

func (c *Client) debug(msg string, attrs ...any) {
	if c.cfg.DebugLogging {
		c.log.Debug(msg, attrs...)
	}
}

// SessionStart reports a new drawing session.
func (c *Client) SessionStart(source, display string, width, height int) {
	c.Event(EventSessionStart, map[string]any{"source": source, "display": display, "width": width, "height": height})
}

// DrawingSaved reports a save with the formats written.
func (c *Client) DrawingSaved(formats []string) {
	c.Event(EventDrawingSaved, map[string]any{"formats": formats})
}

// SessionEnd reports how long the session ran and how many frames it showed.
func (c *Client) SessionEnd(d time.Duration, frames int64) {
	c.Event(EventSessionEnd, map[string]any{"duration_ms": d.Milliseconds(), "frames": frames})
}

// UploadCrash posts a crash report and waits for the answer, since the
// process is usually about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	if err := c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.debug("crash upload failed", slog.Any("err", err))
		return
	}
	c.debug("crash report uploaded")
}

// UploadCrash posts report with the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
