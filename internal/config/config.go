/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: defaults, then the YAML file,
// then DOODLE_* environment overrides. The merged result is validated against
// an embedded JSON Schema. Secrets never touch the file; they live in the OS
// keychain.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a config that failed to parse or validate.
var ErrInvalid = errors.New("config: invalid")

//go:embed schema.json
var schemaJSON []byte

type CameraConfig struct {
	Source   string `yaml:"source" json:"source"` // pattern | images | camera
	Device   string `yaml:"device" json:"device"`
	ImageDir string `yaml:"image_dir" json:"image_dir"`
	Loop     bool   `yaml:"loop" json:"loop"`
	Width    int    `yaml:"width" json:"width"`
	Height   int    `yaml:"height" json:"height"`
	FPS      int    `yaml:"fps" json:"fps"`
}

type CanvasConfig struct {
	HistoryCap int `yaml:"history_cap" json:"history_cap"`
	BrushSize  int `yaml:"brush_size" json:"brush_size"`
	// Seed makes spray reproducible; 0 seeds from the clock.
	Seed uint64 `yaml:"seed" json:"seed"`
	// Tool is active at start, by name: brush, eraser, line, ...
	Tool string `yaml:"tool" json:"tool"`
}

type DisplayConfig struct {
	Backend     string `yaml:"backend" json:"backend"` // headless | terminal | sdl2 | fyne
	Title       string `yaml:"title" json:"title"`
	Scale       int    `yaml:"scale" json:"scale"`
	ShowHelp    bool   `yaml:"show_help" json:"show_help"`
	ShowPalette bool   `yaml:"show_palette" json:"show_palette"`
	ShowStats   bool   `yaml:"show_stats" json:"show_stats"`
	PollMs      int    `yaml:"poll_ms" json:"poll_ms"`
	Keymap      string `yaml:"keymap" json:"keymap"` // default | basic
}

type ExportConfig struct {
	Dir         string   `yaml:"dir" json:"dir"`
	Preset      string   `yaml:"preset" json:"preset"`
	Formats     []string `yaml:"formats" json:"formats"`
	JPEGQuality int      `yaml:"jpeg_quality" json:"jpeg_quality"`
}

type GalleryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	// PGDSN enables the Postgres mirror. The password is read from the keychain
	// when the DSN carries none.
	PGDSN string `yaml:"pg_dsn" json:"pg_dsn"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in" json:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url" json:"telemetry_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Source bool   `yaml:"source" json:"source"`
	File   string `yaml:"file" json:"file"`
}

// AppConfig is the user-editable configuration.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" json:"config_version"`
	Camera        CameraConfig  `yaml:"camera" json:"camera"`
	Canvas        CanvasConfig  `yaml:"canvas" json:"canvas"`
	Display       DisplayConfig `yaml:"display" json:"display"`
	Export        ExportConfig  `yaml:"export" json:"export"`
	Gallery       GalleryConfig `yaml:"gallery" json:"gallery"`
	General       GeneralConfig `yaml:"general" json:"general"`
	Logging       LoggingConfig `yaml:"logging" json:"logging"`
}

// Secrets are kept in the OS keychain, never in the YAML file.
type Secrets struct {
	PGPassword     string
	TelemetryToken string
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Camera:        CameraConfig{Source: "pattern", Width: 640, Height: 480, FPS: 30},
		Canvas:        CanvasConfig{HistoryCap: 20, BrushSize: 3, Tool: "brush"},
		Display:       DisplayConfig{Backend: "terminal", Title: "Live Doodle", Scale: 1, ShowHelp: true, ShowPalette: true, PollMs: 1, Keymap: "default"},
		Export:        ExportConfig{Dir: ".", Preset: "web", JPEGQuality: 90},
		Gallery:       GalleryConfig{Enabled: true},
		General:       GeneralConfig{TelemetryOptIn: false},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvSource         = "DOODLE_SOURCE"
	EnvDevice         = "DOODLE_DEVICE"
	EnvImageDir       = "DOODLE_IMAGE_DIR"
	EnvFPS            = "DOODLE_FPS"
	EnvHistoryCap     = "DOODLE_HISTORY_CAP"
	EnvBrushSize      = "DOODLE_BRUSH_SIZE"
	EnvSeed           = "DOODLE_SEED"
	EnvDisplay        = "DOODLE_DISPLAY"
	EnvShowStats      = "DOODLE_SHOW_STATS"
	EnvKeymap         = "DOODLE_KEYMAP"
	EnvTool           = "DOODLE_TOOL"
	EnvExportDir      = "DOODLE_EXPORT_DIR"
	EnvExportPreset   = "DOODLE_EXPORT_PRESET"
	EnvGalleryEnabled = "DOODLE_GALLERY"
	EnvPGDSN          = "DOODLE_PG_DSN"
	EnvTelemetryOptIn = "DOODLE_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "DOODLE_TELEMETRY_URL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DOODLE_LOG_LEVEL"
	EnvLogFormat = "DOODLE_LOG_FORMAT"
	EnvLogSource = "DOODLE_LOG_SOURCE"
	EnvLogFile   = "DOODLE_LOG_FILE"
)

// override binds one config key to its env var.
type override struct {
	key   string
	env   string
	apply func(cfg *AppConfig, v string) error
}

var overrides = []override{
	{"camera.source", EnvSource, func(c *AppConfig, v string) error { c.Camera.Source = strings.ToLower(v); return nil }},
	{"camera.device", EnvDevice, func(c *AppConfig, v string) error { c.Camera.Device = v; return nil }},
	{"camera.image_dir", EnvImageDir, func(c *AppConfig, v string) error { c.Camera.ImageDir = v; return nil }},
	{"camera.fps", EnvFPS, intField(func(c *AppConfig) *int { return &c.Camera.FPS })},
	{"canvas.history_cap", EnvHistoryCap, intField(func(c *AppConfig) *int { return &c.Canvas.HistoryCap })},
	{"canvas.brush_size", EnvBrushSize, intField(func(c *AppConfig) *int { return &c.Canvas.BrushSize })},
	{"canvas.seed", EnvSeed, func(c *AppConfig, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		c.Canvas.Seed = n
		return nil
	}},
	{"canvas.tool", EnvTool, func(c *AppConfig, v string) error { c.Canvas.Tool = strings.ToLower(v); return nil }},
	{"display.backend", EnvDisplay, func(c *AppConfig, v string) error { c.Display.Backend = strings.ToLower(v); return nil }},
	{"display.show_stats", EnvShowStats, func(c *AppConfig, v string) error { c.Display.ShowStats = truthy(v); return nil }},
	{"display.keymap", EnvKeymap, func(c *AppConfig, v string) error { c.Display.Keymap = strings.ToLower(v); return nil }},
	{"export.dir", EnvExportDir, func(c *AppConfig, v string) error { c.Export.Dir = v; return nil }},
	{"export.preset", EnvExportPreset, func(c *AppConfig, v string) error { c.Export.Preset = strings.ToLower(v); return nil }},
	{"gallery.enabled", EnvGalleryEnabled, func(c *AppConfig, v string) error { c.Gallery.Enabled = truthy(v); return nil }},
	{"gallery.pg_dsn", EnvPGDSN, func(c *AppConfig, v string) error { c.Gallery.PGDSN = v; return nil }},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, func(c *AppConfig, v string) error { c.General.TelemetryOptIn = truthy(v); return nil }},
	{"general.telemetry_url", EnvTelemetryURL, func(c *AppConfig, v string) error { c.General.TelemetryURL = v; return nil }},
	{"logging.level", EnvLogLevel, func(c *AppConfig, v string) error { c.Logging.Level = strings.ToLower(v); return nil }},
	{"logging.format", EnvLogFormat, func(c *AppConfig, v string) error { c.Logging.Format = strings.ToLower(v); return nil }},
	{"logging.source", EnvLogSource, func(c *AppConfig, v string) error { c.Logging.Source = truthy(v); return nil }},
	{"logging.file", EnvLogFile, func(c *AppConfig, v string) error { c.Logging.File = v; return nil }},
}

func intField(field func(*AppConfig) *int) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// Service/keys for OS keyring.
const (
	keyringService     = "LiveDoodle"
	keyringPGPassword  = "pg_password"
	keyringTelemetryTk = "telemetry_token"
)

// TokenStore abstracts the keyring, so tests can swap it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the secret store and returns a func restoring the
// previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "LiveDoodle")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "LiveDoodle")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "livedoodle")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "livedoodle")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config at path (the per-user path when empty), merges env
// overrides and validates the result. A missing file is not an error.
// Secrets are read from the keychain; absent entries stay empty.
func Load(path string) (AppConfig, Secrets, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, Secrets{}, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, Secrets{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, Secrets{}, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, Secrets{}, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, Secrets{}, err
	}
	return cfg, loadSecrets(), nil
}

func loadSecrets() Secrets {
	var s Secrets
	s.PGPassword, _ = tokenStore.Get(keyringService, keyringPGPassword)
	s.TelemetryToken, _ = tokenStore.Get(keyringService, keyringTelemetryTk)
	return s
}

// Save writes the YAML file and persists non-empty secrets into the keychain.
func Save(path string, cfg AppConfig, sec Secrets) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if sec.PGPassword != "" {
		if err := tokenStore.Set(keyringService, keyringPGPassword, sec.PGPassword); err != nil {
			return fmt.Errorf("store pg password: %w", err)
		}
	}
	if sec.TelemetryToken != "" {
		if err := tokenStore.Set(keyringService, keyringTelemetryTk, sec.TelemetryToken); err != nil {
			return fmt.Errorf("store telemetry token: %w", err)
		}
	}
	return nil
}

// Validate checks cfg against the embedded schema. Violations are joined into
// one error wrapping ErrInvalid.
func Validate(cfg AppConfig) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// mergeInto normalizes the decoded file config into dst. The file was decoded
// over a copy of the defaults, so absent keys already hold default values.
func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	src.Camera.Source = strings.ToLower(strings.TrimSpace(src.Camera.Source))
	dst.Camera = src.Camera
	src.Canvas.Tool = strings.ToLower(strings.TrimSpace(src.Canvas.Tool))
	dst.Canvas = src.Canvas
	src.Display.Backend = strings.ToLower(strings.TrimSpace(src.Display.Backend))
	src.Display.Keymap = strings.ToLower(strings.TrimSpace(src.Display.Keymap))
	dst.Display = src.Display
	src.Export.Preset = strings.ToLower(strings.TrimSpace(src.Export.Preset))
	dst.Export = src.Export
	dst.Gallery = src.Gallery
	dst.General = src.General
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) error {
	for _, o := range overrides {
		v := strings.TrimSpace(os.Getenv(o.env))
		if v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, o.env, v, err)
		}
	}
	return nil
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key && os.Getenv(o.env) != "" {
			return o.env, true
		}
	}
	return "", false
}

// OverrideKeys lists every key that an env var can override, in a stable order.
func OverrideKeys() []string {
	keys := make([]string, len(overrides))
	for i, o := range overrides {
		keys[i] = o.key
	}
	return keys
}
