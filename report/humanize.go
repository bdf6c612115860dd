package report

import (
	"fmt"
	"strconv"
	"time"
)

var (
	byteUnits      = [...]string{`KiB`, `MiB`, `GiB`, `TiB`, `PiB`}
	operationUnits = [...]string{`Kop`, `Mop`, `Gop`, `Top`, `Pop`}
)

// HumanizeBytes formats n with a binary unit, switching to the next unit
// once the value reaches 768 of the current one, e.g. "767 bytes",
// "0.75 KiB", "1.50 MiB".
func HumanizeBytes(n uint64) string {
	if n < 768 {
		return strconv.FormatUint(n, 10) + ` bytes`
	}
	return humanize(float64(n), 768, 1024, byteUnits[:])
}

// HumanizeOperations formats n with a decimal unit, switching to the next
// unit once the value reaches 700 of the current one, e.g.
// "699 operations", "0.70 Kop", "1.50 Mop".
func HumanizeOperations(n uint64) string {
	if n < 700 {
		return strconv.FormatUint(n, 10) + ` operations`
	}
	return humanize(float64(n), 700, 1000, operationUnits[:])
}

func humanize(v, threshold, base float64, units []string) string {
	v /= base
	i := 0
	for ; i < len(units)-1 && v >= threshold; i++ {
		v /= base
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + ` ` + units[i]
}

// HumanizeDuration formats d as hours, minutes, and seconds (hh:mm:ss),
// rounded to the nearest second.
func HumanizeDuration(d time.Duration) string {
	s := int64(d.Round(time.Second) / time.Second)
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf(`%02d:%02d:%02d`, s/3600, s/60%60, s%60)
}
