package market

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadBars reads a historical candle CSV: a header line (discarded) followed by
// comma-separated timestamp,open,high,low,close,volume rows. Rows that fail to
// parse any required field are skipped rather than aborting the load. Returns an
// error when the file cannot be opened or no usable rows remain.
func LoadBars(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	bars := make([]Bar, 0, 4096)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		bar, ok := parseBarLine(line)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable bars in %s", path)
	}
	return bars, nil
}

func parseBarLine(line string) (Bar, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return Bar{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Bar{}, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Bar{}, false
		}
		vals[i] = v
	}
	return Bar{
		OpenTime: ts,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, true
}
