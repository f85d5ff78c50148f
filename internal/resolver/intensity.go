// ABOUTME: WMO weather code to intensity table and the wind volume curve
// ABOUTME: Both are pure functions of their inputs
package resolver

import "math"

// Intensity is the audible weather derived from a WMO weather code
type Intensity struct {
	Rain             float64
	Thunder          float64
	Snow             bool
	Fog              bool
	HasPrecipitation bool
}

var weatherTable = map[int]Intensity{
	// fog
	45: {Fog: true},
	48: {Fog: true},
	// drizzle
	51: {Rain: 0.1, HasPrecipitation: true},
	53: {Rain: 0.2, HasPrecipitation: true},
	55: {Rain: 0.3, HasPrecipitation: true},
	56: {Rain: 0.2, HasPrecipitation: true},
	57: {Rain: 0.3, HasPrecipitation: true},
	// rain
	61: {Rain: 0.4, HasPrecipitation: true},
	63: {Rain: 0.6, HasPrecipitation: true},
	65: {Rain: 0.9, HasPrecipitation: true},
	66: {Rain: 0.5, HasPrecipitation: true},
	67: {Rain: 0.8, HasPrecipitation: true},
	// snow
	71: {Snow: true, HasPrecipitation: true},
	73: {Snow: true, HasPrecipitation: true},
	75: {Snow: true, HasPrecipitation: true},
	77: {Snow: true, HasPrecipitation: true},
	85: {Snow: true, HasPrecipitation: true},
	86: {Snow: true, HasPrecipitation: true},
	// showers
	80: {Rain: 0.5, HasPrecipitation: true},
	81: {Rain: 0.7, HasPrecipitation: true},
	82: {Rain: 0.9, HasPrecipitation: true},
	// thunderstorm
	95: {Rain: 0.8, Thunder: 0.6, HasPrecipitation: true},
	96: {Rain: 0.9, Thunder: 0.8, HasPrecipitation: true},
	99: {Rain: 0.9, Thunder: 1.0, HasPrecipitation: true},
}

// IntensityFor maps a WMO weather code to its intensity. Clear sky codes
// and unknown codes produce no weather.
func IntensityFor(code int) Intensity {
	return weatherTable[code]
}

// WindVolume maps wind speed in kph onto [0.2, 1.0]. An unknown (NaN)
// speed is treated as calm.
func WindVolume(kph float64) float64 {
	switch {
	case math.IsNaN(kph) || kph < 10:
		return 0.2
	case kph < 25:
		return 0.2 + (kph-10)/15*0.3
	case kph < 40:
		return 0.5 + (kph-25)/15*0.3
	default:
		v := 0.8 + (kph-40)/40*0.2
		if v > 1 {
			v = 1
		}
		return v
	}
}
