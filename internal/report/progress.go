package report

// Progress receives coarse percentage and message updates.
type Progress interface {
	Update(percent int, message string)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(percent int, message string)

// Update calls f.
func (f ProgressFunc) Update(percent int, message string) {
	f(percent, message)
}

// Ticker reports progress over a known number of items, emitting an update
// only when the integer percentage changes.
type Ticker struct {
	report  *Report
	message string
	total   int
	done    int
	last    int
	from    int
	span    int
}

// Ticker maps total items onto the percentage range [from, from+span].
func (r *Report) Ticker(message string, total, from, span int) *Ticker {
	return &Ticker{report: r, message: message, total: total, from: from, span: span, last: -1}
}

// Tick marks one more item done.
func (t *Ticker) Tick() {
	t.done++
	if t.total <= 0 {
		return
	}
	pct := t.from + t.done*t.span/t.total
	if pct != t.last {
		t.last = pct
		t.report.Step(pct, t.message)
	}
}
