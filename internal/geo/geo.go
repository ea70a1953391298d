// Package geo converts between GeoJSON, coordinates and the WKB blobs
// stored on routes and stops.
package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// SRID of every geometry we store.
const SRID = 4326

// GeoJSONToWKB parses a GeoJSON geometry string and returns WKB bytes.
// An empty string yields nil.
func GeoJSONToWKB(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// WKBToGeoJSON converts WKB bytes into a GeoJSON string
func WKBToGeoJSON(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return "", err
	}
	out, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// PointWKB encodes lat/lng as a WKB point (x = lng, y = lat).
func PointWKB(lat, lng float64) ([]byte, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("coordinates out of range: %f,%f", lat, lng)
	}
	pt := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(SRID)
	return wkb.Marshal(pt, binary.LittleEndian)
}

// PointFromWKB decodes a point written by PointWKB.
func PointFromWKB(b []byte) (lat, lng float64, err error) {
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return 0, 0, err
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, fmt.Errorf("expected point, got %T", g)
	}
	return pt.Y(), pt.X(), nil
}
