package models

import "time"

type Researcher struct {
	Base
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Institution    string `json:"institution"`
	Specialization string `json:"specialization"`
	UserID         string `json:"user_id"`
}

const (
	SessionPlanned    = "planned"
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

var SessionStatuses = []string{SessionPlanned, SessionInProgress, SessionCompleted}

// FieldworkSession is one day (or campaign) of field work within a site.
type FieldworkSession struct {
	Base
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	ProjectID   string   `json:"project_id"`
	AreaID      string   `json:"area_id"`
	SiteID      string   `json:"site_id"`
	TeamMembers []string `json:"team_members"`
	Weather     string   `json:"weather"`
	Notes       string   `json:"notes"`
	Status      string   `json:"status"`
}

var MeasurementTypes = []string{"distance", "area", "elevation", "depth", "angle", "other"}

type Measurement struct {
	Base
	Name            string      `json:"name"`
	MeasurementType string      `json:"measurement_type"`
	Value           float64     `json:"value"`
	Unit            string      `json:"unit"`
	Coordinates     Coordinates `json:"coordinates"`
	Notes           string      `json:"notes"`
	ProjectID       string      `json:"project_id"`
	AreaID          string      `json:"area_id"`
	SiteID          string      `json:"site_id"`
}

// PublicProfile is keyed by user_id, one per account.
type PublicProfile struct {
	UserID             string            `json:"user_id"`
	IsPublic           bool              `json:"is_public"`
	DisplayName        string            `json:"display_name"`
	Bio                string            `json:"bio"`
	Specialization     string            `json:"specialization"`
	Institution        string            `json:"institution"`
	Location           string            `json:"location"`
	Email              string            `json:"email"`
	Website            string            `json:"website"`
	SocialMedia        map[string]string `json:"social_media"`
	CustomMessage      string            `json:"custom_message"`
	PublicProjects     []string          `json:"public_projects"`
	PublicFindings     []string          `json:"public_findings"`
	PublicReports      []string          `json:"public_reports"`
	PublicPublications []string          `json:"public_publications"`
	UpdatedAt          time.Time         `json:"updated_at"`
}
