package models

// Envelope is the uniform JSON body of every API response.
type Envelope struct {
	Success    bool              `json:"success"`
	Data       interface{}       `json:"data,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	Message    string            `json:"message,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Statistics is the aggregate returned by every stats endpoint. Groups maps a
// column (status, type, ...) to counts for each fixed enum value.
type Statistics struct {
	Total  int                       `json:"total"`
	Groups map[string]map[string]int `json:"groups"`
}

type MediaResponse struct {
	URL     string   `json:"url"`
	Kind    string   `json:"kind"`
	Finding *Finding `json:"finding"`
}
