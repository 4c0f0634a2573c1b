package models

const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

var ProjectStatuses = []string{ProjectPlanning, ProjectActive, ProjectCompleted, ProjectArchived}

type Project struct {
	Base
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Methodology string   `json:"methodology"`
	Objectives  []string `json:"objectives"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Budget      float64  `json:"budget"`
	TeamSize    int      `json:"team_size"`
	Director    string   `json:"director"`
	SiteID      *string  `json:"site_id"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
}

const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneCompleted  = "completed"
	MilestoneDelayed    = "delayed"
)

var MilestoneStatuses = []string{MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneDelayed}

type Milestone struct {
	Base
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Status      string `json:"status"`
}
