package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"arqueo-backend/internal/apperr"
)

const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
)

// ContentType returns the media type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/json"
	}
}

// CheckFormat rejects unknown formats before any byte is written.
func (s *EntityService[T, PT]) CheckFormat(format string) error {
	switch format {
	case FormatCSV, FormatJSON:
		return nil
	case FormatGeoJSON:
		if s.def.Geometry {
			return nil
		}
		return apperr.Validation(fmt.Sprintf("geojson export is not available for %s", s.def.Entity), map[string]string{"format": "unsupported"})
	default:
		return apperr.Validation("invalid export format. Supported formats: csv, json, geojson", map[string]string{"format": "unsupported"})
	}
}

// Export streams the caller's rows, newest first, to w.
func (s *EntityService[T, PT]) Export(ctx context.Context, owner, format string, w io.Writer) error {
	if err := s.CheckFormat(format); err != nil {
		return err
	}
	var enc rowEncoder
	switch format {
	case FormatCSV:
		enc = &csvEncoder{w: csv.NewWriter(w), columns: s.def.ExportColumns}
	case FormatGeoJSON:
		enc = &geoEncoder{w: w, columns: s.def.ExportColumns}
	default:
		enc = &jsonEncoder{w: w}
	}

	// Nothing reaches w before the first row, so a store failure up to that
	// point can still be reported as an error response.
	started := false
	err := s.store.Stream(ctx, s.def.scope(owner), func(raw json.RawMessage) error {
		var row map[string]interface{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return err
		}
		if !started {
			started = true
			if err := enc.begin(); err != nil {
				return err
			}
		}
		return enc.row(row)
	})
	if err != nil {
		return persistence(err)
	}
	if !started {
		if err := enc.begin(); err != nil {
			return err
		}
	}
	return enc.end()
}

type rowEncoder interface {
	begin() error
	row(map[string]interface{}) error
	end() error
}

type jsonEncoder struct {
	w     io.Writer
	count int
}

func (e *jsonEncoder) begin() error {
	_, err := io.WriteString(e.w, "[")
	return err
}

func (e *jsonEncoder) row(r map[string]interface{}) error {
	if e.count > 0 {
		if _, err := io.WriteString(e.w, ","); err != nil {
			return err
		}
	}
	e.count++
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = e.w.Write(raw)
	return err
}

func (e *jsonEncoder) end() error {
	_, err := io.WriteString(e.w, "]")
	return err
}

type csvEncoder struct {
	w       *csv.Writer
	columns []string
}

func (e *csvEncoder) begin() error {
	return e.w.Write(e.columns)
}

func csvCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

func (e *csvEncoder) row(r map[string]interface{}) error {
	record := make([]string, len(e.columns))
	for i, c := range e.columns {
		record[i] = csvCell(r[c])
	}
	return e.w.Write(record)
}

func (e *csvEncoder) end() error {
	e.w.Flush()
	return e.w.Error()
}

// geoEncoder writes a FeatureCollection of Points. Rows store [lat, lon];
// GeoJSON positions are [lon, lat].
type geoEncoder struct {
	w       io.Writer
	columns []string
	count   int
}

type feature struct {
	Type       string                 `json:"type"`
	Geometry   pointGeometry          `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type pointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func (e *geoEncoder) begin() error {
	_, err := io.WriteString(e.w, `{"type":"FeatureCollection","features":[`)
	return err
}

func (e *geoEncoder) row(r map[string]interface{}) error {
	lat, lon := 0.0, 0.0
	if c, ok := r["coordinates"].([]interface{}); ok && len(c) == 2 {
		lat, _ = c[0].(float64)
		lon, _ = c[1].(float64)
	}
	props := make(map[string]interface{}, len(e.columns))
	for _, col := range e.columns {
		if col == "coordinates" {
			continue
		}
		props[col] = r[col]
	}
	raw, err := json.Marshal(feature{
		Type:       "Feature",
		Geometry:   pointGeometry{Type: "Point", Coordinates: []float64{lon, lat}},
		Properties: props,
	})
	if err != nil {
		return err
	}
	if e.count > 0 {
		if _, err := io.WriteString(e.w, ","); err != nil {
			return err
		}
	}
	e.count++
	_, err = e.w.Write(raw)
	return err
}

func (e *geoEncoder) end() error {
	_, err := io.WriteString(e.w, "]}")
	return err
}
