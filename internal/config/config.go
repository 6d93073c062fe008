// Package config holds the deliverable-generation settings: which master
// schedules to clone, which annotation field carries codes, how views and
// sheets are styled and laid out. Settings load from an optional YAML
// file with defaults applied first.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bvdk-tools/prefabgen/internal/codes"
)

// Placement is a position on a sheet, in sheet coordinates.
type Placement struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Config is the full recognized option set.
type Config struct {
	// MasterScheduleNames are the schedules duplicated per prefab package.
	MasterScheduleNames []string `yaml:"master_schedules"`

	// AnnotationFieldName is the element parameter codes are written to
	// and schedules filter on.
	AnnotationFieldName string `yaml:"annotation_field"`

	// SheetTitleBlock is the title-block family used for new sheets.
	SheetTitleBlock string `yaml:"sheet_title_block"`

	// ViewTemplateName is applied to generated plan views; empty skips it.
	ViewTemplateName string `yaml:"view_template"`

	// SeedPrefixKeyword is the keyword stripped from seed texts.
	SeedPrefixKeyword string `yaml:"seed_prefix"`

	// PairingPolicy controls tag numbering relative to host pipes.
	PairingPolicy string `yaml:"pairing_policy"`

	ViewScale      int    `yaml:"view_scale"`
	ViewDiscipline string `yaml:"view_discipline"`

	// Sheet layout: where the plan and 3D viewports land, where the first
	// schedule lands, and how far successive schedules step down.
	PlanViewport    Placement `yaml:"plan_viewport"`
	IsoViewport     Placement `yaml:"iso_viewport"`
	ScheduleOrigin  Placement `yaml:"schedule_origin"`
	ScheduleSpacing float64   `yaml:"schedule_spacing"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MasterScheduleNames: []string{"Pipe Schedule", "Fitting Schedule"},
		AnnotationFieldName: "Comments",
		SheetTitleBlock:     "A1 Metric",
		SeedPrefixKeyword:   "prefab",
		PairingPolicy:       string(codes.PairingIndependent),
		ViewScale:           25,
		ViewDiscipline:      "Mechanical",
		PlanViewport:        Placement{X: 0.30, Y: 0.55},
		IsoViewport:         Placement{X: 0.70, Y: 0.55},
		ScheduleOrigin:      Placement{X: 0.05, Y: 0.90},
		ScheduleSpacing:     0.12,
		LogLevel:            "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the option set for values the orchestrator cannot run
// with.
func (c Config) Validate() error {
	if len(c.MasterScheduleNames) == 0 {
		return fmt.Errorf("at least one master schedule is required")
	}
	if c.AnnotationFieldName == "" {
		return fmt.Errorf("annotation_field must not be empty")
	}
	if c.SheetTitleBlock == "" {
		return fmt.Errorf("sheet_title_block must not be empty")
	}
	if c.SeedPrefixKeyword == "" {
		return fmt.Errorf("seed_prefix must not be empty")
	}
	if _, err := codes.ParsePairingPolicy(c.PairingPolicy); err != nil {
		return err
	}
	if c.ViewScale <= 0 {
		return fmt.Errorf("view_scale must be positive, got %d", c.ViewScale)
	}
	if c.ScheduleSpacing <= 0 {
		return fmt.Errorf("schedule_spacing must be positive, got %v", c.ScheduleSpacing)
	}
	return nil
}

// Pairing returns the parsed pairing policy. Validate has already
// checked it; unknown values fall back to independent.
func (c Config) Pairing() codes.PairingPolicy {
	p, err := codes.ParsePairingPolicy(c.PairingPolicy)
	if err != nil {
		return codes.PairingIndependent
	}
	return p
}
