package solver

import "math"

// sqrtf is a float32 math.Sqrt.
func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// absf is a float32 math.Abs.
func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// clampMagnitude scales (vx, vy) down so its magnitude does not exceed
// limit. The squared comparison keeps the sqrt off the common path.
func clampMagnitude(vx, vy, limit float32) (float32, float32) {
	magSq := vx*vx + vy*vy
	if magSq <= limit*limit {
		return vx, vy
	}
	scale := limit / sqrtf(magSq)
	return vx * scale, vy * scale
}
