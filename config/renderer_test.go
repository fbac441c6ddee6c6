// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/framegraph/renderers/surfelgi"
)

func TestParseRenderer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Renderer
	}{
		{"empty keeps defaults", "", DefaultRenderer()},
		{
			name: "partial override",
			src:  "surfel_cells = 4096\nbackend = \" software \"\n",
			want: Renderer{SurfelCells: 4096, SlotsPerCell: 8, ShaderRoot: ".", Backend: "software", LogLevel: slog.LevelInfo},
		},
		{
			name: "all keys",
			src: `surfel_cells = 64
slots_per_cell = 4
shader_root = "assets"
backend = "native"
log_level = "debug"
`,
			want: Renderer{SurfelCells: 64, SlotsPerCell: 4, ShaderRoot: "assets", Backend: "native", LogLevel: slog.LevelDebug},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRenderer([]byte(tt.src))
			if err != nil {
				t.Fatalf("ParseRenderer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseRenderer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRendererInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"zero cells", "surfel_cells = 0"},
		{"negative slots", "slots_per_cell = -1"},
		{"bad level", `log_level = "loud"`},
		{"unknown key", `surfel_count = 3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRenderer([]byte(tt.src)); !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseRenderer(%q) error = %v, want ErrInvalid", tt.src, err)
			}
		})
	}

	if _, err := ParseRenderer([]byte("surfel_cells = ")); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("ParseRenderer(malformed) error = %v, want a TOML syntax error", err)
	}
}

func TestLoadRenderer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renderer.toml")
	if err := os.WriteFile(path, []byte("surfel_cells = 1048576\nslots_per_cell = 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadRenderer(path)
	if err != nil {
		t.Fatalf("LoadRenderer() error = %v", err)
	}
	if cfg.SurfelGI() != surfelgi.DefaultConfig() {
		t.Errorf("SurfelGI() = %+v, want %+v", cfg.SurfelGI(), surfelgi.DefaultConfig())
	}

	if _, err := LoadRenderer(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadRenderer(missing) error = %v, want ErrNotExist", err)
	}
}
