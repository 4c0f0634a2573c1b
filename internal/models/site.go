package models

type Area struct {
	Base
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	ProjectID          string   `json:"project_id"`
	Countries          []string `json:"countries"`
	States             []string `json:"states"`
	Municipalities     []string `json:"municipalities"`
	NorthBound         *float64 `json:"north_bound"`
	SouthBound         *float64 `json:"south_bound"`
	EastBound          *float64 `json:"east_bound"`
	WestBound          *float64 `json:"west_bound"`
	ConservationStatus string   `json:"conservation_status"`
	Threats            []string `json:"threats"`
}

const (
	SiteActive    = "active"
	SiteCompleted = "completed"
	SitePlanning  = "planning"

	SiteTypeExcavation = "excavation"
	SiteTypeSurvey     = "survey"
	SiteTypeMonitoring = "monitoring"
)

var (
	SiteStatuses = []string{SiteActive, SiteCompleted, SitePlanning}
	SiteTypes    = []string{SiteTypeExcavation, SiteTypeSurvey, SiteTypeMonitoring}
)

type Site struct {
	Base
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Coordinates    Coordinates `json:"coordinates"`
	AreaID         *string     `json:"area_id"`
	ProjectID      *string     `json:"project_id"`
	Status         string      `json:"status"`
	Type           string      `json:"type"`
	FindingsCount  int         `json:"findings_count"`
	ArtifactsCount int         `json:"artifacts_count"`
	SamplesCount   int         `json:"samples_count"`
}
