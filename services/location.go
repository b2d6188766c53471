package services

import (
	"math"
	"strconv"

	"kmz-server/models"

	"go.mongodb.org/mongo-driver/bson"
)

// coordinatesField is the field writers store the location under. The name is
// case-sensitive.
const coordinatesField = "Coordinates"

// location is one of the encodings found in the Coordinates field.
type location interface {
	coordinate() (models.Coordinate, bool)
}

// geoPointLocation is a GeoJSON point: {"type": "Point", "coordinates": [lon, lat]}.
type geoPointLocation struct {
	coordinates bson.Raw
}

func (g geoPointLocation) coordinate() (models.Coordinate, bool) {
	values, err := g.coordinates.Values()
	if err != nil || len(values) < 2 {
		return models.Coordinate{}, false
	}
	return newCoordinate(values[0], values[1])
}

// mappingLocation is a plain sub-document with longitude/latitude keys.
type mappingLocation struct {
	doc bson.Raw
}

func (m mappingLocation) coordinate() (models.Coordinate, bool) {
	return newCoordinate(m.doc.Lookup("longitude"), m.doc.Lookup("latitude"))
}

// pairLocation is a two element array. Writers of this shape store latitude
// first, unlike the other two shapes.
type pairLocation struct {
	lat, lon bson.RawValue
}

func (p pairLocation) coordinate() (models.Coordinate, bool) {
	return newCoordinate(p.lon, p.lat)
}

// classifyLocation picks the encoding of v, trying geo point, then mapping,
// then pair. It returns nil for anything else.
func classifyLocation(v bson.RawValue) location {
	switch v.Type {
	case bson.TypeEmbeddedDocument:
		doc, ok := v.DocumentOK()
		if !ok {
			return nil
		}
		if isGeoPoint(doc) {
			coords, _ := doc.Lookup("coordinates").ArrayOK()
			return geoPointLocation{coordinates: coords}
		}
		return mappingLocation{doc: doc}
	case bson.TypeArray:
		arr, ok := v.ArrayOK()
		if !ok {
			return nil
		}
		values, err := arr.Values()
		if err != nil || len(values) != 2 {
			return nil
		}
		return pairLocation{lat: values[0], lon: values[1]}
	default:
		return nil
	}
}

func isGeoPoint(doc bson.Raw) bool {
	kind, ok := doc.Lookup("type").StringValueOK()
	if !ok || kind != "Point" {
		return false
	}
	return doc.Lookup("coordinates").Type == bson.TypeArray
}

// normalizeRecord extracts the coordinate of a single record. ok is false when
// the record has no usable location and must be skipped.
func normalizeRecord(record bson.Raw) (coord models.Coordinate, ok bool) {
	value, err := record.LookupErr(coordinatesField)
	if err != nil {
		return models.Coordinate{}, false
	}
	loc := classifyLocation(value)
	if loc == nil {
		return models.Coordinate{}, false
	}
	return loc.coordinate()
}

func newCoordinate(lon, lat bson.RawValue) (models.Coordinate, bool) {
	x, ok := number(lon)
	if !ok {
		return models.Coordinate{}, false
	}
	y, ok := number(lat)
	if !ok {
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lon: x, Lat: y}, true
}

// number reads a finite float from a numeric BSON value. Null, missing and
// non-numeric values report false.
func number(v bson.RawValue) (float64, bool) {
	var f float64
	switch v.Type {
	case bson.TypeDouble:
		f = v.Double()
	case bson.TypeInt32:
		f = float64(v.Int32())
	case bson.TypeInt64:
		f = float64(v.Int64())
	case bson.TypeDecimal128:
		parsed, err := strconv.ParseFloat(v.Decimal128().String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
