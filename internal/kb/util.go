package kb

import "strconv"

func formatDegree(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}
