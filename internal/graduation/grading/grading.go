// Package grading computes CGPA and maps it to a degree classification.
// Normally the upstream academic records system runs this computation and
// the handoff carries the result; these helpers exist for institutions that
// hand off raw course results instead.
package grading

import (
	"math"

	"credence/internal/platform/config"
)

// ResultStatus marks whether a course result counts toward the CGPA.
type ResultStatus string

const (
	ResultApproved  ResultStatus = "APPROVED"
	ResultPublished ResultStatus = "PUBLISHED"
	ResultPending   ResultStatus = "PENDING"
	ResultWithheld  ResultStatus = "WITHHELD"
)

// CourseResult is one graded course.
type CourseResult struct {
	CourseCode string
	Credits    int
	GradePoint float64
	Status     ResultStatus
}

// Countable reports whether the result participates in CGPA computation.
// Only settled results do; pending or withheld grades are excluded.
func (r CourseResult) Countable() bool {
	return r.Status == ResultApproved || r.Status == ResultPublished
}

// ComputeCGPA returns the credit-weighted grade point average over the
// countable results, rounded to two decimals. Zero when no result counts.
func ComputeCGPA(results []CourseResult) float64 {
	var weighted float64
	var credits int
	for _, r := range results {
		if !r.Countable() {
			continue
		}
		weighted += r.GradePoint * float64(r.Credits)
		credits += r.Credits
	}
	if credits == 0 {
		return 0
	}
	return math.Round(weighted/float64(credits)*100) / 100
}

// TotalCredits sums the credits of countable results.
func TotalCredits(results []CourseResult) int {
	var credits int
	for _, r := range results {
		if r.Countable() {
			credits += r.Credits
		}
	}
	return credits
}

// Classify maps a CGPA to a degree classification using the configured
// thresholds. Thresholds are inclusive lower bounds checked highest first.
func Classify(cgpa float64, thresholds config.GradingConfig) string {
	switch {
	case cgpa >= thresholds.FirstClass:
		return "First Class"
	case cgpa >= thresholds.SecondUpper:
		return "Second Class Upper"
	case cgpa >= thresholds.SecondLower:
		return "Second Class Lower"
	case cgpa >= thresholds.ThirdClass:
		return "Third Class"
	case cgpa >= thresholds.Pass:
		return "Pass"
	default:
		return "Fail"
	}
}
