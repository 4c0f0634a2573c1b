package models

const (
	FindingNew        = "new"
	FindingAnalyzed   = "analyzed"
	FindingDocumented = "documented"
	FindingArchived   = "archived"
)

var (
	FindingStatuses = []string{FindingNew, FindingAnalyzed, FindingDocumented, FindingArchived}
	FindingTypes    = []string{"artifact", "lithic", "ceramic", "bone", "other"}
)

type Dimensions struct {
	Length   *float64 `json:"length,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Diameter *float64 `json:"diameter,omitempty"`
}

type Finding struct {
	Base
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	Material      string      `json:"material"`
	Description   string      `json:"description"`
	Coordinates   Coordinates `json:"coordinates"`
	Depth         float64     `json:"depth"`
	Dimensions    Dimensions  `json:"dimensions"`
	Weight        float64     `json:"weight"`
	Condition     string      `json:"condition"`
	CatalogNumber string      `json:"catalog_number"`
	Context       string      `json:"context"`
	Associations  []string    `json:"associations"`
	Photos        []string    `json:"photos"`
	Drawings      []string    `json:"drawings"`

	SiteID             *string `json:"site_id"`
	AreaID             *string `json:"area_id"`
	ProjectID          *string `json:"project_id"`
	FieldworkSessionID *string `json:"fieldwork_session_id"`

	ConservationTreatment string `json:"conservation_treatment"`
	ConservationNotes     string `json:"conservation_notes"`
	CurrentLocation       string `json:"current_location"`

	Status         string `json:"status"`
	DiscoveredBy   string `json:"discovered_by"`
	DiscoveredDate string `json:"discovered_date"`
}
