// Package project reads and writes machine project files (.mmproj): which
// manual belongs to a machine, where its catalog lives and the defaults
// for new markers.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"manual-markers/internal/catalog"
	"manual-markers/pkg/colorutil"
)

// FileVersion is the current project file format.
const FileVersion = 1

// Extension is the project file suffix.
const Extension = ".mmproj"

// File is a machine project.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Manual is a URL, or a path relative to the project file.
	Manual string `json:"manual,omitempty"`
	// Catalog is the sqlite file, relative to the project file.
	Catalog string `json:"catalog,omitempty"`

	Defaults MarkerDefaults `json:"defaults"`
}

// MarkerDefaults seed the editor for a new marker.
type MarkerDefaults struct {
	Forma    string `json:"forma"`
	Color    string `json:"color"`
	SinBorde bool   `json:"sinBorde"`
}

// New creates a project for the machine name.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  FileVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Defaults: MarkerDefaults{
			Forma:    catalog.FormaRectangulo,
			Color:    colorutil.DefaultFill,
			SinBorde: true,
		},
	}
}

// Load reads a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if proj.Version > FileVersion {
		return nil, fmt.Errorf("%s: unsupported project version %d", path, proj.Version)
	}
	if proj.Defaults.Forma == "" {
		proj.Defaults.Forma = catalog.FormaRectangulo
	}
	if proj.Defaults.Color == "" {
		proj.Defaults.Color = colorutil.DefaultFill
	}
	return &proj, nil
}

// Save writes the project to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// SetManual records the manual. Local files are stored relative to the
// project; URLs are kept as given.
func (p *File) SetManual(projectPath, manual string) {
	p.Manual = manual
	if !isURL(manual) {
		if rel, err := filepath.Rel(filepath.Dir(projectPath), manual); err == nil {
			p.Manual = rel
		}
	}
	p.Modified = time.Now()
}

// ManualURL returns the manual as something pdfdoc.Fetcher resolves.
func (p *File) ManualURL(projectPath string) string {
	if p.Manual == "" || isURL(p.Manual) || filepath.IsAbs(p.Manual) {
		return p.Manual
	}
	return filepath.Join(filepath.Dir(projectPath), p.Manual)
}

// CatalogPath returns the absolute catalog path, defaulting to
// <project>_catalog.db next to the project file.
func (p *File) CatalogPath(projectPath string) string {
	if p.Catalog == "" {
		base := strings.TrimSuffix(projectPath, filepath.Ext(projectPath))
		return base + "_catalog.db"
	}
	if filepath.IsAbs(p.Catalog) {
		return p.Catalog
	}
	return filepath.Join(filepath.Dir(projectPath), p.Catalog)
}
