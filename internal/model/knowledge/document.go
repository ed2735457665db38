package knowledge

import (
	"math"
	"strconv"
	"time"
)

// Document is a user-supplied text blob whose full content rides along with
// every chat turn while it remains in the store.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	Size       int       `json:"size"`
	SizeLabel  string    `json:"sizeLabel"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Unit labels for FormatSize; the scale caps at MB.
var sizeUnits = []string{"Bytes", "KB", "MB"}

// FormatSize renders a byte count as a human-readable label by repeated
// division by 1024, rounded to two decimals with trailing zeros dropped.
func FormatSize(size int) string {
	if size <= 0 {
		return "0 Bytes"
	}

	value := float64(size)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}
