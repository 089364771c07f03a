package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// earthRadiusKm is the mean Earth radius used for haversine distances.
const earthRadiusKm = 6371.0

// Point is a geographic coordinate. WKT order is longitude first.
type Point struct {
	Lat float64
	Lon float64
}

// WKT renders the point in well-known-text form: POINT(lon lat).
func (p Point) WKT() string {
	return "POINT(" + formatCoord(p.Lon) + " " + formatCoord(p.Lat) + ")"
}

// DistanceKm returns the great-circle distance to q in kilometres.
func (p Point) DistanceKm(q Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := q.Lat * math.Pi / 180
	dLat := (q.Lat - p.Lat) * math.Pi / 180
	dLon := (q.Lon - p.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Polygon is a closed ring of coordinates. The first and last points must
// be equal, matching WKT ring syntax.
type Polygon []Point

// WKT renders the polygon as POLYGON((lon lat, lon lat, ...)).
func (pg Polygon) WKT() string {
	parts := make([]string, len(pg))
	for i, p := range pg {
		parts[i] = formatCoord(p.Lon) + " " + formatCoord(p.Lat)
	}
	return "POLYGON((" + strings.Join(parts, ", ") + "))"
}

// Contains reports whether the point lies inside the polygon, using the
// ray-casting rule on the lon/lat plane. Points exactly on an edge may fall
// on either side.
func (pg Polygon) Contains(p Point) bool {
	if len(pg) < 4 {
		return false
	}
	inside := false
	// The ring is closed, so skip the duplicated last vertex.
	n := len(pg) - 1
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := pg[i], pg[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) &&
			p.Lon < (pj.Lon-pi.Lon)*(p.Lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// parseWKT parses the geometry inside a geography'...' literal. Only POINT
// and POLYGON with a single ring are accepted.
func parseWKT(s string) (Literal, error) {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "POINT"):
		body, err := wktBody(trimmed[len("POINT"):], 1)
		if err != nil {
			return Literal{}, fmt.Errorf("invalid POINT geometry %q: %w", s, err)
		}
		p, err := parseWKTCoord(body)
		if err != nil {
			return Literal{}, fmt.Errorf("invalid POINT geometry %q: %w", s, err)
		}
		return Literal{Kind: LitGeoPoint, Point: p}, nil

	case strings.HasPrefix(upper, "POLYGON"):
		body, err := wktBody(trimmed[len("POLYGON"):], 2)
		if err != nil {
			return Literal{}, fmt.Errorf("invalid POLYGON geometry %q: %w", s, err)
		}
		var ring Polygon
		for _, pair := range strings.Split(body, ",") {
			p, err := parseWKTCoord(pair)
			if err != nil {
				return Literal{}, fmt.Errorf("invalid POLYGON geometry %q: %w", s, err)
			}
			ring = append(ring, p)
		}
		if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
			return Literal{}, fmt.Errorf("invalid POLYGON geometry %q: ring must be closed with at least 4 points", s)
		}
		return Literal{Kind: LitGeoPolygon, Polygon: ring}, nil
	}

	return Literal{}, fmt.Errorf("unsupported geometry %q: expected POINT or POLYGON", s)
}

// wktBody strips `depth` levels of parentheses around the coordinate list.
func wktBody(s string, depth int) (string, error) {
	body := strings.TrimSpace(s)
	for i := 0; i < depth; i++ {
		if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
			return "", fmt.Errorf("malformed parentheses")
		}
		body = strings.TrimSpace(body[1 : len(body)-1])
	}
	return body, nil
}

func parseWKTCoord(pair string) (Point, error) {
	fields := strings.Fields(strings.TrimSpace(pair))
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("expected 'lon lat', got %q", pair)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("bad longitude %q", fields[0])
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("bad latitude %q", fields[1])
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("coordinate out of range: %q", pair)
	}
	return Point{Lat: lat, Lon: lon}, nil
}
