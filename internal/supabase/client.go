package supabase

import (
	"strings"

	"github.com/supabase-community/supabase-go"
)

// NewClient connects to the project's PostgREST and storage endpoints with
// the service key. Owner scoping is applied by Store, not by row-level
// security.
func NewClient(url, serviceKey string) (*supabase.Client, error) {
	return supabase.NewClient(strings.TrimRight(url, "/"), serviceKey, nil)
}
