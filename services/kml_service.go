package services

import (
	"strconv"
	"strings"

	"kmz-server/models"
)

const (
	kmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
`
	kmlFooter = `  </Document>
</kml>
`
)

// RenderKML builds a points-only KML document with one Placemark per
// coordinate, in input order. Empty input yields an empty Document.
func RenderKML(coords []models.Coordinate) string {
	var b strings.Builder
	b.Grow(len(kmlHeader) + len(kmlFooter) + len(coords)*96)

	b.WriteString(kmlHeader)
	for _, c := range coords {
		b.WriteString("    <Placemark>\n")
		b.WriteString("      <Point><coordinates>")
		b.WriteString(formatCoordinate(c))
		b.WriteString("</coordinates></Point>\n")
		b.WriteString("    </Placemark>\n")
	}
	b.WriteString(kmlFooter)
	return b.String()
}

// formatCoordinate writes lon,lat,0 with '.' decimals and no exponent.
func formatCoordinate(c models.Coordinate) string {
	buf := make([]byte, 0, 48)
	buf = strconv.AppendFloat(buf, c.Lon, 'f', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, c.Lat, 'f', -1, 64)
	buf = append(buf, ",0"...)
	return string(buf)
}
