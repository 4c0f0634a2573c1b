package forms_test

import (
	"testing"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/forms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema_CoversEveryForm(t *testing.T) {
	names := forms.Default().Names()
	for _, want := range []string{
		"project", "milestone", "area", "site", "excavation", "finding",
		"researcher", "fieldwork_session", "report", "measurement", "grid_unit", "public_profile",
	} {
		assert.Contains(t, names, want)
	}
}

func TestValidate(t *testing.T) {
	schema := forms.Default()

	tests := []struct {
		name   string
		form   string
		values map[string]interface{}
		want   map[string]string
	}{
		{
			name:   "site complete",
			form:   "site",
			values: map[string]interface{}{"name": "Test Site", "description": "x"},
			want:   map[string]string{},
		},
		{
			name:   "site blank description",
			form:   "site",
			values: map[string]interface{}{"name": "Test Site", "description": "   "},
			want:   map[string]string{"description": "required"},
		},
		{
			name:   "report empty",
			form:   "report",
			values: map[string]interface{}{},
			want:   map[string]string{"title": "required", "type": "required", "date": "required", "author": "required"},
		},
		{
			name:   "zero is a value",
			form:   "measurement",
			values: map[string]interface{}{"name": "depth", "measurement_type": "depth", "value": float64(0), "unit": "m"},
			want:   map[string]string{},
		},
		{
			name:   "null counts as missing",
			form:   "milestone",
			values: map[string]interface{}{"project_id": nil, "title": "t", "description": "d", "date": "2024-01-01"},
			want:   map[string]string{"project_id": "required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Validate(tt.form, tt.values))
		})
	}
}

func TestParse_RejectsUnknownContextPart(t *testing.T) {
	_, err := forms.Parse([]byte("forms:\n  x:\n    required: [a]\n    context:\n      a: region\n"))
	assert.Error(t, err)
}

func TestForm_PrefillKeepsExplicitValues(t *testing.T) {
	f, err := forms.Default().New("finding", map[string]interface{}{"site_id": "S-explicit"})
	require.NoError(t, err)

	f.Prefill(map[string]string{"project": "P1", "area": "A1", "site": "S1"})
	assert.Equal(t, "P1", f.Values()["project_id"])
	assert.Equal(t, "A1", f.Values()["area_id"])
	assert.Equal(t, "S-explicit", f.Values()["site_id"])
}

func TestForm_ListOperations(t *testing.T) {
	f, err := forms.Default().New("project", map[string]interface{}{"objectives": []interface{}{"map", "dig"}})
	require.NoError(t, err)

	require.NoError(t, f.AddItem("objectives", "publish"))
	require.NoError(t, f.UpdateItem("objectives", 0, "survey"))
	require.NoError(t, f.RemoveItem("objectives", 1))
	assert.Equal(t, []interface{}{"survey", "publish"}, f.Values()["objectives"])

	err = f.RemoveItem("objectives", 5)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = f.AddItem("name", "x")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestForm_SubmitPopulatesErrors(t *testing.T) {
	f, err := forms.Default().New("fieldwork_session", map[string]interface{}{"name": "Day 1"})
	require.NoError(t, err)

	_, err = f.Submit()
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, 400, e.Status())
	assert.Equal(t, "required", f.Errors()["date"])
	assert.Equal(t, "required", e.Fields["site_id"])

	f.Set("date", "2024-05-01")
	f.Prefill(map[string]string{"project": "P", "area": "A", "site": "S"})
	values, err := f.Submit()
	require.NoError(t, err)
	assert.Equal(t, "S", values["site_id"])
	assert.Empty(t, f.Errors())
}
