package jobrun

import (
	"bytes"
	"regexp"
	"strconv"
	"time"
)

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	max   int
	lines []string
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = DefaultTailLines
	}
	return &tailBuffer{max: max, lines: make([]string, 0, max)}
}

func (b *tailBuffer) add(line string) {
	if len(b.lines) == b.max {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:b.max-1]
	}
	b.lines = append(b.lines, line)
}

func (b *tailBuffer) snapshot() []string {
	return append([]string(nil), b.lines...)
}

// maxEncoderLine caps a single token; longer runs without a line break are
// emitted in pieces.
const maxEncoderLine = 64 * 1024

// scanEncoderLines splits on \n or \r; ffmpeg redraws its status line with
// carriage returns.
func scanEncoderLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 && i <= maxEncoderLine {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxEncoderLine {
		return maxEncoderLine, data[:maxEncoderLine], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var progressTime = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseProgressTime extracts the media position from an ffmpeg status line.
func parseProgressTime(line string) (time.Duration, bool) {
	m := progressTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	total += time.Duration(seconds * float64(time.Second))
	return total, true
}
