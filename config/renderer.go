// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gogpu/framegraph/renderers/surfelgi"
)

// ErrInvalid is returned for configuration values outside their domain.
var ErrInvalid = errors.New("config: invalid value")

// Renderer configures a renderer process.
type Renderer struct {
	// SurfelCells is the number of surfel hash grid cells.
	SurfelCells uint64

	// SlotsPerCell is the number of surfels a grid cell can index.
	SlotsPerCell uint64

	// ShaderRoot is the directory shader paths are resolved against, with
	// the leading slash of a graph shader path removed.
	ShaderRoot string

	// Backend names the device backend. Empty selects the best available.
	Backend string

	// LogLevel is the minimum level of the process logger.
	LogLevel slog.Level
}

// DefaultRenderer returns the configuration used when no file is given.
func DefaultRenderer() Renderer {
	return Renderer{
		SurfelCells:  surfelgi.MaxSurfelCells,
		SlotsPerCell: surfelgi.MaxSurfelsPerCell,
		ShaderRoot:   ".",
		LogLevel:     slog.LevelInfo,
	}
}

// SurfelGI returns the surfel grid configuration.
func (r Renderer) SurfelGI() surfelgi.Config {
	return surfelgi.Config{Cells: r.SurfelCells, SlotsPerCell: r.SlotsPerCell}
}

// Shaders returns the shader file system rooted at ShaderRoot.
func (r Renderer) Shaders() fs.FS {
	return os.DirFS(r.ShaderRoot)
}

type rendererFile struct {
	SurfelCells  int64  `toml:"surfel_cells"`
	SlotsPerCell int64  `toml:"slots_per_cell"`
	ShaderRoot   string `toml:"shader_root"`
	Backend      string `toml:"backend"`
	LogLevel     string `toml:"log_level"`
}

// LoadRenderer reads a TOML renderer configuration from path.
func LoadRenderer(path string) (Renderer, error) {
	var raw rendererFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Renderer{}, fmt.Errorf("config: load renderer config: %w", err)
	}
	return applyRenderer(meta, raw)
}

// ParseRenderer parses a TOML renderer configuration.
func ParseRenderer(data []byte) (Renderer, error) {
	var raw rendererFile
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return Renderer{}, fmt.Errorf("config: parse renderer config: %w", err)
	}
	return applyRenderer(meta, raw)
}

func applyRenderer(meta toml.MetaData, raw rendererFile) (Renderer, error) {
	cfg := DefaultRenderer()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Renderer{}, fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("surfel_cells") {
		if raw.SurfelCells <= 0 {
			return Renderer{}, fmt.Errorf("%w: surfel_cells = %d", ErrInvalid, raw.SurfelCells)
		}
		cfg.SurfelCells = uint64(raw.SurfelCells)
	}

	if meta.IsDefined("slots_per_cell") {
		if raw.SlotsPerCell <= 0 {
			return Renderer{}, fmt.Errorf("%w: slots_per_cell = %d", ErrInvalid, raw.SlotsPerCell)
		}
		cfg.SlotsPerCell = uint64(raw.SlotsPerCell)
	}

	if meta.IsDefined("shader_root") {
		cfg.ShaderRoot = strings.TrimSpace(raw.ShaderRoot)
	}

	if meta.IsDefined("backend") {
		cfg.Backend = strings.TrimSpace(raw.Backend)
	}

	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Renderer{}, fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
		}
	}

	return cfg, nil
}
