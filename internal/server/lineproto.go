package server

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// maxLineLength bounds one request line, matching the teacher's SMTP
// reader's defense against unbounded-memory lines.
const maxLineLength = 1000

// readLine reads one newline-terminated request line. A line longer
// than maxLineLength is drained up to its newline, so the connection's
// framing stays intact, and then rejected with a "line too long" error.
func readLine(r *bufio.Reader) (string, error) {
	l, more, err := r.ReadLine()
	if err != nil {
		return "", err
	}
	if len(l) > maxLineLength || more {
		for more && err == nil {
			_, more, err = r.ReadLine()
		}
		return "", fmt.Errorf("line too long")
	}
	return string(l), nil
}

// writeResponse writes a single- or multi-line response: the first N-1
// lines (split on "\n" in msg) use "<code>-<text>", the continuation
// code, and the last line uses "<code> <text>", the terminal code.
func writeResponse(w *bufio.Writer, code, contCode int, msg string) error {
	defer w.Flush()

	lines := strings.Split(msg, "\n")
	for i := 0; i < len(lines)-1; i++ {
		if _, err := fmt.Fprintf(w, "%d-%s\n", contCode, lines[i]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d %s\n", code, lines[len(lines)-1])
	return err
}

// formatFloat renders a statistics value with the minimal precision
// that round-trips, avoiding noisy float64 tails in stats lines.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
