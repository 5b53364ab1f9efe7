package weather

import (
	"hash/fnv"
	"math/rand"
	"time"
)

var simulatedConditions = []string{"Clear", "Partly Cloudy", "Cloudy", "Light Rain", "Sunny"}

// seededRand derives a deterministic generator from the location so repeated
// calls for the same place agree with each other.
func seededRand(location string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(location))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func simulatedTempRange(units string) (min, max int) {
	switch units {
	case "metric":
		return 7, 29
	case "kelvin":
		return 280, 302
	default:
		return 45, 85
	}
}

func simulateCurrent(location, units string) map[string]any {
	rng := seededRand(location)
	lo, hi := simulatedTempRange(units)
	temp := lo + rng.Intn(hi-lo+1)
	tempUnit, speedUnit := unitLabels(units)

	return map[string]any{
		"location":    location,
		"conditions":  simulatedConditions[rng.Intn(len(simulatedConditions))],
		"temperature": float64(temp),
		"feels_like":  float64(temp + rng.Intn(7) - 3),
		"humidity":    30 + rng.Intn(51),
		"wind_speed":  float64(3 + rng.Intn(13)),
		"units":       units,
		"temp_unit":   tempUnit,
		"speed_unit":  speedUnit,
		"simulated":   true,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	}
}

func simulateForecast(location string, days int, units string) map[string]any {
	rng := seededRand(location)
	tempUnit, _ := unitLabels(units)

	forecast := make([]map[string]any, 0, days)
	for i := 0; i < days; i++ {
		lo, hi := simulatedTempRange(units)
		high := hi - rng.Intn((hi-lo)/2+1)
		low := high - (10 + rng.Intn(11))
		forecast = append(forecast, map[string]any{
			"date":       time.Now().UTC().AddDate(0, 0, i).Format("2006-01-02"),
			"high":       float64(high),
			"low":        float64(low),
			"conditions": simulatedConditions[rng.Intn(len(simulatedConditions))],
		})
	}

	return map[string]any{
		"location":  location,
		"days":      forecast,
		"units":     units,
		"temp_unit": tempUnit,
		"simulated": true,
	}
}
