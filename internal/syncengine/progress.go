package syncengine

import (
	"fmt"
	"strings"
)

const progressBarWidth = 50

// moodGlyphs is the fixed 13-glyph table spec.md §4.8 calls for, indexed by
// round(percent*12): a deadpan face at 0% sliding to delighted at 100%.
var moodGlyphs = [13]string{
	":(", ":|", ":|", ":/", ":/", ":-|", ":-|", ":-)", ":-)", ":)", ":)", ":D", ":D",
}

// Progress is the Progress Reporter (C8): a pure function from (done,
// total) to a 50-cell bar, a percent label, and a mood glyph. It never
// errors; total=0 is defined as 100% complete rather than a division by
// zero, since a table with no known unit of work has nothing left to do.
func Progress(done, total int) string {
	var percent float64
	if total <= 0 {
		percent = 1
	} else {
		percent = float64(done) / float64(total)
		if percent > 1 {
			percent = 1
		}
		if percent < 0 {
			percent = 0
		}
	}

	filled := int(percent*progressBarWidth + 0.5)
	bar := strings.Repeat("*", filled) + strings.Repeat("·", progressBarWidth-filled)

	glyphIndex := int(percent*12 + 0.5)
	if glyphIndex > 12 {
		glyphIndex = 12
	}
	if glyphIndex < 0 {
		glyphIndex = 0
	}

	return fmt.Sprintf("[%s] %3.0f%% %s", bar, percent*100, moodGlyphs[glyphIndex])
}
