package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Authority codes of the built-in CRS definitions.
const (
	CodeWGS84             = "EPSG:4326"  // WGS 84
	CodeWGS84Geographic3D = "EPSG:4979"  // WGS 84 (3D)
	CodeWGS84Geocentric   = "EPSG:4978"  // WGS 84 geocentric
	CodeNAD27             = "EPSG:4267"  // NAD27
	CodeNAD83             = "EPSG:4269"  // NAD83
	CodeETRS89            = "EPSG:4258"  // ETRS89
	CodeDHDN              = "EPSG:4314"  // DHDN
	CodeETRS89UTM32N      = "EPSG:25832" // ETRS89 / UTM zone 32N
	CodeETRS89UTM33N      = "EPSG:25833" // ETRS89 / UTM zone 33N
	CodeDHDN3GK2          = "EPSG:31466" // DHDN / Gauß-Krüger zone 2
	CodeDHDN3GK3          = "EPSG:31467" // DHDN / Gauß-Krüger zone 3
	CodeWGS84UTM32N       = "EPSG:32632" // WGS 84 / UTM zone 32N
	CodeWorldMercator     = "EPSG:3395"  // WGS 84 / World Mercator
	CodeETRS89LCC         = "EPSG:3034"  // ETRS89 / LCC Europe
	CodeNTFParis          = "EPSG:4807"  // NTF (Paris)
	CodeNTFLambertII      = "EPSG:27572" // NTF (Paris) / Lambert zone II
	CodeNAVD88Height      = "EPSG:5703"  // NAVD88 height
	CodeEllipsoidalHeight = "REFSYS:EllipsoidalHeight"
	CodeGeneric2D         = "REFSYS:Generic2D"
	CodeGeneric3D         = "REFSYS:Generic3D"
)

const urnPrefix = "urn:ogc:def:crs:"

// ParseCode normalizes an authority code. It accepts "4326", "epsg:4326", "EPSG::4326"
// and "urn:ogc:def:crs:EPSG::4326", all of which become "EPSG:4326".
func ParseCode(s string) (string, error) {
	code := strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(code), urnPrefix) {
		code = code[len(urnPrefix):]
	}
	if code == "" {
		return "", fmt.Errorf("empty code: %w", ErrInvalidCode)
	}

	authority, value := "EPSG", code
	if i := strings.IndexByte(code, ':'); i >= 0 {
		authority = strings.ToUpper(code[:i])
		value = strings.TrimLeft(code[i+1:], ":")
		// URN form carries an optional version between the double colons.
		if j := strings.LastIndexByte(value, ':'); j >= 0 {
			value = value[j+1:]
		}
	}
	if authority == "" || value == "" {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidCode)
	}
	if authority == "EPSG" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%q: %w", s, ErrInvalidCode)
		}
		value = strconv.Itoa(n)
	}
	return authority + ":" + value, nil
}
