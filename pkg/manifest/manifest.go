package manifest

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the summary file written next to every bundle.
const FileName = "summary.yaml"

// Failure kinds produced outside fetcher and repository.
const (
	KindRobotsDisallowed = "robots_disallowed"
	KindExtract          = "extract_error"
	KindError            = "error"
)

// Classifier is implemented by per-item errors that carry a failure kind.
type Classifier interface {
	Classify() (kind string, statusCode int)
}

// Failure is one non-fatal failure of a run.
type Failure struct {
	Target     string `json:"target" yaml:"target"`
	Kind       string `json:"kind" yaml:"kind"`
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string `json:"message" yaml:"message"`
}

// Summary aggregates the outcome of one run. It is safe for concurrent use.
type Summary struct {
	mu sync.Mutex

	Source       string         `json:"source" yaml:"source"`
	Kind         string         `json:"kind" yaml:"kind"`
	StartedAt    time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time      `json:"finished_at" yaml:"finished_at"`
	Duration     string         `json:"duration" yaml:"duration"`
	Pages        int            `json:"pages" yaml:"pages"`
	FilesWritten int            `json:"files_written" yaml:"files_written"`
	OutputDir    string         `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Counts       map[string]int `json:"failure_counts" yaml:"failure_counts"`
	Failures     []Failure      `json:"failures" yaml:"failures"`
}

func NewSummary(source, kind string) *Summary {
	return &Summary{
		Source:    source,
		Kind:      kind,
		StartedAt: time.Now(),
		Counts:    map[string]int{},
		Failures:  []Failure{},
	}
}

// Record appends a failure with an explicit kind.
func (s *Summary) Record(target, kind string, statusCode int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures = append(s.Failures, Failure{Target: target, Kind: kind, StatusCode: statusCode, Message: message})
	s.Counts[kind]++
}

// RecordError appends err as a failure of target, taking kind and status from
// a Classifier in err's chain when present.
func (s *Summary) RecordError(target string, err error) {
	if err == nil {
		return
	}
	kind, status := KindError, 0
	var c Classifier
	if errors.As(err, &c) {
		kind, status = c.Classify()
	}
	s.Record(target, kind, status, err.Error())
}

// Finish stamps the end of the run and the number of pages produced.
func (s *Summary) Finish(pages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pages = pages
	s.FinishedAt = time.Now()
	s.Duration = s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
}

// FailureCount returns the number of recorded failures.
func (s *Summary) FailureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Failures)
}

// HasFailures reports whether any non-fatal failure was recorded.
func (s *Summary) HasFailures() bool {
	return s.FailureCount() > 0
}

// Kinds returns the recorded failure kinds, sorted.
func (s *Summary) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]string, 0, len(s.Counts))
	for k := range s.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Count returns the number of failures of kind.
func (s *Summary) Count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Counts[kind]
}

// Marshal renders the summary as YAML.
func (s *Summary) Marshal() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error marshalling summary: %w", err)
	}
	return data, nil
}
