package vsfsck

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// Summary aggregates one run's findings into machine-readable counts.
type Summary struct {
	Errors     int            `yaml:"errors"`
	Findings   map[string]int `yaml:"findings,omitempty"`
	Consistent bool           `yaml:"consistent"`
}

// Summarize builds a Summary from a run recorded by rec.
func Summarize(rec *Recorder) Summary {
	s := Summary{Consistent: len(rec.Findings) == 0}
	if len(rec.Findings) == 0 {
		return s
	}
	s.Findings = make(map[string]int)
	for _, f := range rec.Findings {
		s.Errors++
		s.Findings[f.Kind.String()]++
	}
	return s
}

// WriteSummary writes the YAML summary of a recorded run to w.
func WriteSummary(w io.Writer, rec *Recorder) error {
	b, err := yaml.Marshal(Summarize(rec))
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}
