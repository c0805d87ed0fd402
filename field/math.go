package field

import "math"

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// floorf is a float32 math.Floor.
func floorf(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

// sqrtf is a float32 math.Sqrt.
func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// magnitude returns the length of the vector (x, y).
func magnitude(x, y float32) float32 {
	return sqrtf(x*x + y*y)
}
