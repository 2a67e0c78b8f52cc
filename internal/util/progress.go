package util

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/idisk/backend/pkg/logger"
)

// DefaultProgressEvery is the number of scanned pairs between two progress
// lines of a connection scan.
const DefaultProgressEvery int64 = 1_000_000

// PairProgress reports the state of a long pair scan. It logs when the
// scanned count is a multiple of Every, starting with zero.
type PairProgress struct {
	Label string
	Total int64
	Every int64
}

// EstimatePairs approximates n choose 2 the same way the progress output has
// always done it, n²/2 - n, clamped at zero.
func EstimatePairs(n int) int64 {
	total := int64(n)*int64(n)/2 - int64(n)
	return max(total, 0)
}

func NewPairProgress(label string, n int, every int64) *PairProgress {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	return &PairProgress{
		Label: label,
		Total: EstimatePairs(n),
		Every: every,
	}
}

// Tick is called before testing pair number scanned.
func (p *PairProgress) Tick(scanned, found int64) {
	if p == nil || scanned%p.Every != 0 {
		return
	}
	logger.Info(p.Label, "scanned", fmt.Sprintf("%d/%d", scanned, p.Total), "connections", found)
}

func (p *PairProgress) Done(found int64) {
	if p == nil {
		return
	}
	logger.Info(p.Label+" done", "connections", found)
}

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
