package models

const (
	ExcavationPlanned    = "planned"
	ExcavationInProgress = "in_progress"
	ExcavationCompleted  = "completed"
	ExcavationSuspended  = "suspended"
	ExcavationCancelled  = "cancelled"
)

var ExcavationStatuses = []string{
	ExcavationPlanned, ExcavationInProgress, ExcavationCompleted, ExcavationSuspended, ExcavationCancelled,
}

type Excavation struct {
	Base
	ExcavationCode  string `json:"excavation_code"`
	SiteID          string `json:"site_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date,omitempty"`
	PlannedDuration int    `json:"planned_duration"`
	SeasonNumber    int    `json:"season_number"`

	Methodology      string `json:"methodology"`
	ExcavationMethod string `json:"excavation_method"`

	StratigraphicRecording    bool `json:"stratigraphic_recording"`
	ThreeDimensionalRecording bool `json:"three_dimensional_recording"`
	PhotographicDocumentation bool `json:"photographic_documentation"`
	FieldNotes                bool `json:"field_notes"`

	ObjectsRecovered       int     `json:"objects_recovered"`
	DatingSamplesCollected int     `json:"dating_samples_collected"`
	BudgetAllocated        float64 `json:"budget_allocated"`
}
