// Package report collects the recoverable failures of an import or export
// and forwards progress to an optional listener.
package report

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Severity of a report entry.
type Severity int

// Severities.
const (
	SeverityWarn Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warn"
}

// MarshalText renders the severity by name in JSON and YAML.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind classifies a failure.
type Kind int

// Failure kinds.
const (
	// KindMalformed object: skipped, document continues.
	KindMalformed Kind = iota
	// KindMissingRef node or style id: default substituted.
	KindMissingRef
	// KindStructure failure: import aborted, partial result kept.
	KindStructure
	// KindIO failure of stream or archive.
	KindIO
)

var kindNames = [...]string{
	KindMalformed:  "malformed",
	KindMissingRef: "missing-ref",
	KindStructure:  "structure",
	KindIO:         "io",
}

var kindMessages = [...]string{
	KindMalformed:  "Skipped malformed data",
	KindMissingRef: "Substituted missing reference",
	KindStructure:  "Document aborted",
	KindIO:         "I/O failure",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

func (k Kind) message() string {
	if k < 0 || int(k) >= len(kindMessages) {
		return "Recorded failure"
	}
	return kindMessages[k]
}

// MarshalText renders the kind by name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is one recorded failure.
type Entry struct {
	Err      error    `json:"-" yaml:"-"`
	Message  string   `json:"message" yaml:"message"`
	Object   string   `json:"object,omitempty" yaml:"object,omitempty"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Report accumulates entries for one operation. It is safe for concurrent use.
type Report struct {
	Progress Progress
	logger   zerolog.Logger
	Format   string
	entries  []Entry
	mu       sync.Mutex
}

// New creates a report logging through the global logger.
func New(format string) *Report {
	return &Report{
		Format: format,
		logger: log.Logger.With().Str("format", format).Logger(),
	}
}

// WithLogger replaces the logger entries are written to.
func (r *Report) WithLogger(l zerolog.Logger) *Report {
	r.logger = l.With().Str("format", r.Format).Logger()
	return r
}

// Malformed records an unparseable object that was skipped.
func (r *Report) Malformed(object string, err error) {
	r.Add(SeverityError, KindMalformed, object, err)
}

// MissingRef records an unresolved reference replaced by a default.
func (r *Report) MissingRef(object string, err error) {
	r.Add(SeverityWarn, KindMissingRef, object, err)
}

// Warn records a recoverable, low-impact malformed fragment.
func (r *Report) Warn(object string, err error) {
	r.Add(SeverityWarn, KindMalformed, object, err)
}

// Fail records a fatal document or I/O failure and returns err.
func (r *Report) Fail(err error) error {
	if err == nil {
		return nil
	}
	kind := KindStructure
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		kind = KindIO
	}
	r.Add(SeverityError, kind, "", err)
	return err
}

// Add records an entry and logs it.
func (r *Report) Add(sev Severity, kind Kind, object string, err error) {
	e := Entry{
		Severity: sev,
		Kind:     kind,
		Object:   object,
		Err:      err,
	}
	if err != nil {
		e.Message = err.Error()
	}

	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()

	ev := r.logger.Warn()
	if sev == SeverityError {
		ev = r.logger.Error()
	}
	ev.Err(err).
		Str("kind", kind.String()).
		Str("object", object).
		Msg(kind.message())
}

// Entries returns a copy of all entries.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Errors counts error entries.
func (r *Report) Errors() int {
	return r.count(SeverityError)
}

// Warnings counts warning entries.
func (r *Report) Warnings() int {
	return r.count(SeverityWarn)
}

func (r *Report) count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// Step forwards progress to the listener, if any.
func (r *Report) Step(percent int, message string) {
	if r == nil || r.Progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	r.Progress.Update(percent, message)
}
