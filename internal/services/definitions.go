package services

import (
	"time"

	"arqueo-backend/internal/models"
)

const (
	TableProjects          = "archaeological_projects"
	TableMilestones        = "project_milestones"
	TableAreas             = "archaeological_areas"
	TableSites             = "archaeological_sites"
	TableExcavations       = "excavations"
	TableFindings          = "findings"
	TableResearchers       = "researchers"
	TableFieldworkSessions = "fieldwork_sessions"
	TableMeasurements      = "measurements"
	TableGridUnits         = "grid_units"
	TableProfiles          = "public_profiles"
)

var ProjectDefinition = Definition{
	Entity:     "project",
	Table:      TableProjects,
	Collection: "projects",
	Form:       "project",
	Mutable: []string{
		"name", "description", "methodology", "objectives", "start_date", "end_date",
		"budget", "team_size", "director", "site_id", "status", "progress",
	},
	Filters:       []string{"status", "site_id", "director"},
	SearchColumns: []string{"name", "description", "methodology", "director"},
	Stats:         map[string][]string{"status": models.ProjectStatuses},
	ExportColumns: []string{
		"id", "name", "description", "methodology", "objectives", "start_date", "end_date",
		"budget", "team_size", "director", "site_id", "status", "progress", "created_at", "updated_at",
	},
}

func prepareProject(p *models.Project, _ string, _ time.Time) {
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	if p.Objectives == nil {
		p.Objectives = []string{}
	}
	if p.Progress < 0 {
		p.Progress = 0
	}
	if p.Progress > 100 {
		p.Progress = 100
	}
}

var MilestoneDefinition = Definition{
	Entity:        "milestone",
	Table:         TableMilestones,
	Collection:    "milestones",
	Form:          "milestone",
	Mutable:       []string{"title", "description", "date", "status"},
	Filters:       []string{"project_id", "status"},
	SearchColumns: []string{"title", "description"},
	Stats:         map[string][]string{"status": models.MilestoneStatuses},
	ExportColumns: []string{"id", "project_id", "title", "description", "date", "status", "created_at", "updated_at"},
	Parents:       []Parent{{Column: "project_id", Table: TableProjects, NotFound: true}},
}

func prepareMilestone(m *models.Milestone, _ string, _ time.Time) {
	if m.Status == "" {
		m.Status = models.MilestonePending
	}
}

var AreaDefinition = Definition{
	Entity:     "area",
	Table:      TableAreas,
	Collection: "areas",
	Form:       "area",
	Mutable: []string{
		"name", "description", "countries", "states", "municipalities",
		"north_bound", "south_bound", "east_bound", "west_bound",
		"conservation_status", "threats",
	},
	Filters:       []string{"project_id", "conservation_status"},
	SearchColumns: []string{"name", "description"},
	ExportColumns: []string{
		"id", "name", "description", "project_id", "countries", "states", "municipalities",
		"north_bound", "south_bound", "east_bound", "west_bound", "conservation_status", "threats",
		"created_at", "updated_at",
	},
	Parents: []Parent{{Column: "project_id", Table: TableProjects}},
}

func prepareArea(a *models.Area, _ string, _ time.Time) {
	if a.Countries == nil {
		a.Countries = []string{}
	}
	if a.States == nil {
		a.States = []string{}
	}
	if a.Municipalities == nil {
		a.Municipalities = []string{}
	}
	if a.Threats == nil {
		a.Threats = []string{}
	}
}

var SiteDefinition = Definition{
	Entity:     "site",
	Table:      TableSites,
	Collection: "sites",
	Form:       "site",
	Mutable: []string{
		"name", "description", "coordinates", "area_id", "project_id", "status", "type",
		"findings_count", "artifacts_count", "samples_count",
	},
	Filters:       []string{"status", "type", "area_id", "project_id"},
	SearchColumns: []string{"name", "description"},
	Stats:         map[string][]string{"status": models.SiteStatuses, "type": models.SiteTypes},
	ExportColumns: []string{
		"id", "name", "description", "coordinates", "area_id", "project_id", "status", "type",
		"findings_count", "artifacts_count", "samples_count", "created_at", "updated_at",
	},
	Geometry: true,
	Parents: []Parent{
		{Column: "area_id", Table: TableAreas},
		{Column: "project_id", Table: TableProjects},
	},
}

func prepareSite(s *models.Site, _ string, _ time.Time) {
	if !s.Coordinates.Valid() {
		s.Coordinates = models.Coordinates{0, 0}
	}
	if s.Status == "" {
		s.Status = models.SitePlanning
	}
	if s.Type == "" {
		s.Type = models.SiteTypeExcavation
	}
}

var ExcavationDefinition = Definition{
	Entity:     "excavation",
	Table:      TableExcavations,
	Collection: "excavations",
	Form:       "excavation",
	Mutable: []string{
		"excavation_code", "site_id", "name", "description", "status", "start_date", "end_date",
		"planned_duration", "season_number", "methodology", "excavation_method",
		"stratigraphic_recording", "three_dimensional_recording", "photographic_documentation", "field_notes",
		"objects_recovered", "dating_samples_collected", "budget_allocated",
	},
	Filters:       []string{"status", "site_id", "season_number", "excavation_method"},
	SearchColumns: []string{"name", "description", "excavation_code"},
	Stats:         map[string][]string{"status": models.ExcavationStatuses},
	ExportColumns: []string{
		"id", "excavation_code", "site_id", "name", "description", "status", "start_date", "end_date",
		"planned_duration", "season_number", "methodology", "excavation_method",
		"stratigraphic_recording", "three_dimensional_recording", "photographic_documentation", "field_notes",
		"objects_recovered", "dating_samples_collected", "budget_allocated", "created_at", "updated_at",
	},
	Unique:  []string{"excavation_code"},
	Parents: []Parent{{Column: "site_id", Table: TableSites}},
}

func prepareExcavation(e *models.Excavation, _ string, _ time.Time) {
	if e.Status == "" {
		e.Status = models.ExcavationPlanned
	}
	if e.SeasonNumber == 0 {
		e.SeasonNumber = 1
	}
}

var FindingDefinition = Definition{
	Entity:     "finding",
	Table:      TableFindings,
	Collection: "findings",
	Form:       "finding",
	Mutable: []string{
		"name", "type", "material", "description", "coordinates", "depth", "dimensions", "weight",
		"condition", "catalog_number", "context", "associations", "photos", "drawings",
		"site_id", "area_id", "project_id", "fieldwork_session_id",
		"conservation_treatment", "conservation_notes", "current_location",
		"status", "discovered_by", "discovered_date",
	},
	Filters:       []string{"status", "type", "material", "site_id", "area_id", "project_id", "fieldwork_session_id"},
	SearchColumns: []string{"name", "description", "catalog_number", "material"},
	Stats:         map[string][]string{"status": models.FindingStatuses, "type": models.FindingTypes},
	ExportColumns: []string{
		"id", "name", "type", "material", "description", "coordinates", "depth", "dimensions", "weight",
		"condition", "catalog_number", "context", "associations", "photos", "drawings",
		"site_id", "area_id", "project_id", "fieldwork_session_id",
		"conservation_treatment", "conservation_notes", "current_location",
		"status", "discovered_by", "discovered_date", "created_at", "updated_at",
	},
	Geometry: true,
	Unique:   []string{"catalog_number"},
	Parents: []Parent{
		{Column: "site_id", Table: TableSites},
		{Column: "area_id", Table: TableAreas},
		{Column: "project_id", Table: TableProjects},
		{Column: "fieldwork_session_id", Table: TableFieldworkSessions},
	},
}

func prepareFinding(f *models.Finding, owner string, now time.Time) {
	if !f.Coordinates.Valid() {
		f.Coordinates = models.Coordinates{0, 0}
	}
	if f.Status == "" {
		f.Status = models.FindingNew
	}
	if f.Condition == "" {
		f.Condition = "unknown"
	}
	if f.DiscoveredBy == "" {
		f.DiscoveredBy = owner
	}
	if f.DiscoveredDate == "" {
		f.DiscoveredDate = now.Format("2006-01-02")
	}
	if f.Associations == nil {
		f.Associations = []string{}
	}
	if f.Photos == nil {
		f.Photos = []string{}
	}
	if f.Drawings == nil {
		f.Drawings = []string{}
	}
}

var ResearcherDefinition = Definition{
	Entity:        "researcher",
	Table:         TableResearchers,
	Collection:    "researchers",
	Form:          "researcher",
	Mutable:       []string{"first_name", "last_name", "email", "institution", "specialization"},
	Filters:       []string{"institution", "specialization"},
	SearchColumns: []string{"first_name", "last_name", "email", "institution", "specialization"},
	ExportColumns: []string{"id", "first_name", "last_name", "email", "institution", "specialization", "user_id", "created_at", "updated_at"},
}

func prepareResearcher(r *models.Researcher, owner string, _ time.Time) {
	r.UserID = owner
}

var FieldworkSessionDefinition = Definition{
	Entity:        "fieldwork_session",
	Table:         TableFieldworkSessions,
	Collection:    "fieldwork-sessions",
	Form:          "fieldwork_session",
	Mutable:       []string{"name", "date", "team_members", "weather", "notes", "status"},
	Filters:       []string{"project_id", "area_id", "site_id", "status", "date"},
	SearchColumns: []string{"name", "notes"},
	Stats:         map[string][]string{"status": models.SessionStatuses},
	ExportColumns: []string{
		"id", "name", "date", "project_id", "area_id", "site_id", "team_members",
		"weather", "notes", "status", "created_at", "updated_at",
	},
	Parents: []Parent{
		{Column: "project_id", Table: TableProjects},
		{Column: "area_id", Table: TableAreas},
		{Column: "site_id", Table: TableSites},
	},
}

func prepareFieldworkSession(f *models.FieldworkSession, _ string, _ time.Time) {
	if f.Status == "" {
		f.Status = models.SessionPlanned
	}
	if f.TeamMembers == nil {
		f.TeamMembers = []string{}
	}
}

var MeasurementDefinition = Definition{
	Entity:        "measurement",
	Table:         TableMeasurements,
	Collection:    "measurements",
	Form:          "measurement",
	Mutable:       []string{"name", "measurement_type", "value", "unit", "coordinates", "notes"},
	Filters:       []string{"project_id", "area_id", "site_id", "measurement_type"},
	SearchColumns: []string{"name", "notes"},
	Stats:         map[string][]string{"measurement_type": models.MeasurementTypes},
	ExportColumns: []string{
		"id", "name", "measurement_type", "value", "unit", "coordinates", "notes",
		"project_id", "area_id", "site_id", "created_at", "updated_at",
	},
	Geometry: true,
}

func prepareMeasurement(m *models.Measurement, _ string, _ time.Time) {
	if !m.Coordinates.Valid() {
		m.Coordinates = models.Coordinates{0, 0}
	}
}

var GridUnitDefinition = Definition{
	Entity:     "grid_unit",
	Table:      TableGridUnits,
	Collection: "grid-units",
	Form:       "grid_unit",
	Mutable: []string{
		"code", "excavation_id", "description", "coordinates", "size_width", "size_height",
		"depth", "soil_type", "stratigraphy", "notes", "status",
	},
	Filters:       []string{"project_id", "area_id", "site_id", "excavation_id", "status"},
	SearchColumns: []string{"code", "description", "notes"},
	Stats:         map[string][]string{"status": models.GridUnitStatuses},
	ExportColumns: []string{
		"id", "code", "excavation_id", "description", "coordinates", "size_width", "size_height",
		"depth", "soil_type", "stratigraphy", "notes", "status",
		"project_id", "area_id", "site_id", "created_at", "updated_at",
	},
	Geometry: true,
	Parents:  []Parent{{Column: "excavation_id", Table: TableExcavations}},
}

func prepareGridUnit(g *models.GridUnit, _ string, _ time.Time) {
	if g.Status == "" {
		g.Status = models.GridUnitActive
	}
	if !g.Coordinates.Valid() {
		g.Coordinates = models.Coordinates{0, 0}
	}
}
