package helpers

import "math"

// MinMax returns the smallest and largest value in list, or (0, 0) for an empty list.
func MinMax(list []float64) (float64, float64) {
	if len(list) == 0 {
		return 0, 0
	}
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, item := range list {
		if item < min {
			min = item
		}
		if item > max {
			max = item
		}
	}
	return min, max
}

func Sum(numbers []float64) (total float64) {
	for _, x := range numbers {
		total += x
	}
	return total
}

func ClampInt(value, low, high int) int {
	if high < low {
		high = low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func PctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to/from - 1) * 100
}
