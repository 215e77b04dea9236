// Package progressbar prints a progress bar to a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar is a progress bar that must be managed manually: Display
// must be called whenever the bar should be redrawn. ProgressBar is not
// safe for concurrent use.
type ProgressBar struct {
	out       io.Writer
	width     int
	max       int
	current   int
	startTime time.Time
	bar       strings.Builder
}

// New returns a new ProgressBar which is width characters wide and
// reaches 100% after max increments
func New(out io.Writer, width, max int) *ProgressBar {
	if width <= 0 || max <= 0 {
		panic(fmt.Sprintf("new: width and max must be positive but got "+
			"%v and %v", width, max))
	}
	return &ProgressBar{
		out:       out,
		width:     width,
		max:       max,
		startTime: time.Now(),
	}
}

// Increment records one more unit of progress
func (p *ProgressBar) Increment() {
	if p.current < p.max {
		p.current++
	}
}

// Done returns whether the bar has reached 100%
func (p *ProgressBar) Done() bool {
	return p.current >= p.max
}

// String returns the bar as it would be displayed
func (p *ProgressBar) String() string {
	p.bar.Reset()
	filled := p.current * p.width / p.max

	p.bar.WriteString("|")
	p.bar.WriteString(strings.Repeat("█", filled))
	p.bar.WriteString(strings.Repeat(" ", p.width-filled))
	p.bar.WriteString(fmt.Sprintf("| %v/%v [%.2f%% | elapsed: %v]",
		p.current, p.max, float64(p.current)/float64(p.max)*100,
		time.Since(p.startTime).Truncate(time.Second)))

	return p.bar.String()
}

// Display redraws the bar over the current terminal line
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\r\033[K%v", p.String())
}

// Close moves the terminal past the bar
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}
