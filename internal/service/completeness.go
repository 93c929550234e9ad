package service

import (
	"math"
	"strings"

	"github.com/stemsi/exstem-wizard/internal/model"
)

// WizardSteps is the number of configuration steps of the exam wizard.
const WizardSteps = 6

// Completeness evaluates the wizard step predicates over a loaded aggregate.
// Every method is pure; the zero value is not usable, build it with
// NewCompleteness.
type Completeness struct {
	agg *model.ExamAggregate
}

// NewCompleteness wraps a fully-loaded aggregate.
func NewCompleteness(agg *model.ExamAggregate) Completeness {
	return Completeness{agg: agg}
}

// StepComplete reports whether wizard step n (1..6) is complete.
func (c Completeness) StepComplete(n int) bool {
	switch n {
	case 1:
		return c.basicsComplete()
	case 2:
		return len(c.agg.SubTests) > 0
	case 3:
		return len(c.agg.Tracks) > 0
	case 4:
		return c.rulesComplete()
	case 5:
		return c.questionsComplete()
	case 6:
		return c.scheduleComplete()
	default:
		return false
	}
}

// Steps returns the completion flag of every step keyed by step number.
func (c Completeness) Steps() map[int]bool {
	steps := make(map[int]bool, WizardSteps)
	for n := 1; n <= WizardSteps; n++ {
		steps[n] = c.StepComplete(n)
	}
	return steps
}

// Overall is the rounded percentage of complete steps.
func (c Completeness) Overall() int {
	done := 0
	for n := 1; n <= WizardSteps; n++ {
		if c.StepComplete(n) {
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / WizardSteps))
}

// CanEnterStep reports whether every step before n is complete.
func (c Completeness) CanEnterStep(n int) bool {
	if n <= 1 {
		return true
	}
	if n > WizardSteps {
		return false
	}
	for i := 1; i < n; i++ {
		if !c.StepComplete(i) {
			return false
		}
	}
	return true
}

// NextIncompleteStep returns the lowest incomplete step, or 0 when all are complete.
func (c Completeness) NextIncompleteStep() int {
	for n := 1; n <= WizardSteps; n++ {
		if !c.StepComplete(n) {
			return n
		}
	}
	return 0
}

// IncompleteSteps lists every incomplete step in ascending order.
func (c Completeness) IncompleteSteps() []int {
	var missing []int
	for n := 1; n <= WizardSteps; n++ {
		if !c.StepComplete(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// CompletedPrefix is the number of leading complete steps.
func (c Completeness) CompletedPrefix() int {
	n := c.NextIncompleteStep()
	if n == 0 {
		return WizardSteps
	}
	return n - 1
}

func (c Completeness) basicsComplete() bool {
	e := c.agg.Exam
	return strings.TrimSpace(e.Code) != "" &&
		e.TypeID != nil &&
		strings.TrimSpace(e.Title) != "" &&
		strings.TrimSpace(e.Description) != ""
}

// rulesComplete requires exactly one rule for every track × sub-test pair.
func (c Completeness) rulesComplete() bool {
	if len(c.agg.Tracks) == 0 || len(c.agg.SubTests) == 0 {
		return false
	}
	type pair struct{ track, subTest int64 }
	counts := make(map[pair]int, len(c.agg.Rules))
	for _, r := range c.agg.Rules {
		counts[pair{r.TrackID, r.SubTestID}]++
	}
	for _, t := range c.agg.Tracks {
		for _, st := range c.agg.SubTests {
			if counts[pair{t.ID, st.ID}] != 1 {
				return false
			}
		}
	}
	return true
}

func (c Completeness) questionsComplete() bool {
	if len(c.agg.SubTests) == 0 {
		return false
	}
	perSubTest := make(map[int64]int, len(c.agg.SubTests))
	for _, a := range c.agg.Assignments {
		perSubTest[a.SubTestID]++
	}
	for _, st := range c.agg.SubTests {
		if perSubTest[st.ID] == 0 {
			return false
		}
	}
	return true
}

func (c Completeness) scheduleComplete() bool {
	e := c.agg.Exam
	if e.ValidFrom == nil || e.ValidUntil == nil {
		return false
	}
	window := e.ValidUntil.Sub(*e.ValidFrom)
	if window <= 0 {
		return false
	}
	return window.Minutes() >= float64(e.TimeLimitMinutes)
}

// advanceWizardStep applies the never-decreasing wizard step rule.
func advanceWizardStep(exam *model.Exam, agg *model.ExamAggregate) bool {
	reached := NewCompleteness(agg).CompletedPrefix()
	if reached > exam.WizardStep {
		exam.WizardStep = reached
		return true
	}
	return false
}
