package timing

import (
	"fmt"
	"io"
	"time"
)

// PrintTrainTime writes the elapsed wall time between start and end for the
// given device and returns it. An empty device prints as "unspecified device".
func PrintTrainTime(w io.Writer, start, end time.Time, device string) time.Duration {
	total := end.Sub(start)
	if device == "" {
		device = "unspecified device"
	}
	fmt.Fprintf(w, "\nTrain time on %s: %.3f seconds\n", device, total.Seconds())
	return total
}
