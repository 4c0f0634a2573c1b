package models

import "time"

const (
	GridUnitActive    = "active"
	GridUnitCompleted = "completed"
	GridUnitPaused    = "paused"
)

var GridUnitStatuses = []string{GridUnitActive, GridUnitCompleted, GridUnitPaused}

// GridUnit is one cell of an excavation grid, recorded from the mapping tool
// under the caller's full context.
type GridUnit struct {
	Base
	Code         string      `json:"code"`
	ExcavationID *string     `json:"excavation_id"`
	Description  string      `json:"description"`
	Coordinates  Coordinates `json:"coordinates"`
	SizeWidth    float64     `json:"size_width"`
	SizeHeight   float64     `json:"size_height"`
	Depth        float64     `json:"depth"`
	SoilType     string      `json:"soil_type"`
	Stratigraphy string      `json:"stratigraphy"`
	Notes        string      `json:"notes"`
	Status       string      `json:"status"`
	ProjectID    string      `json:"project_id"`
	AreaID       string      `json:"area_id"`
	SiteID       string      `json:"site_id"`
}

// Surface is width times height, zero when either side is unknown.
func (g GridUnit) Surface() float64 {
	if g.SizeWidth <= 0 || g.SizeHeight <= 0 {
		return 0
	}
	return g.SizeWidth * g.SizeHeight
}

func (g *GridUnit) Placement() (project, area, site string) {
	return g.ProjectID, g.AreaID, g.SiteID
}

func (m *Measurement) Placement() (project, area, site string) {
	return m.ProjectID, m.AreaID, m.SiteID
}

type MappingStats struct {
	TotalGridUnits     int     `json:"total_grid_units"`
	TotalMeasurements  int     `json:"total_measurements"`
	TotalFindings      int     `json:"total_findings"`
	TotalArea          float64 `json:"total_area"`
	ActiveGridUnits    int     `json:"active_grid_units"`
	CompletedGridUnits int     `json:"completed_grid_units"`
}

// MappingExport is the downloadable snapshot of the mapping tool for one site.
type MappingExport struct {
	ProjectID    string        `json:"project_id"`
	AreaID       string        `json:"area_id"`
	SiteID       string        `json:"site_id"`
	GridUnits    []GridUnit    `json:"grid_units"`
	Measurements []Measurement `json:"measurements"`
	Stats        MappingStats  `json:"stats"`
	ExportedAt   time.Time     `json:"exported_at"`
}
