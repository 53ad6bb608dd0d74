package importer

import (
	"math"

	"github.com/SteelMorgan/sqldump-importer/internal/domain"
)

const (
	// unknownSizePercent is reported while a stream of unknown size is still running
	unknownSizePercent = 99.0
	// continueCeiling keeps unfinished sessions below 100
	continueCeiling = 99.99
)

// Percent estimates completion from the resume offset. It is advisory only.
func Percent(offset, size int64, status domain.Status) float64 {
	if status == domain.StatusFinished {
		return 100
	}
	if size <= 0 {
		return unknownSizePercent
	}

	pct := math.Round(float64(offset)/float64(size)*100*100) / 100
	if pct < 0 {
		return 0
	}
	if pct > continueCeiling {
		return continueCeiling
	}
	return pct
}
