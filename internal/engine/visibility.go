package engine

import (
	"math"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// ShouldShow evaluates a question's conditional against the current answers.
// It is recomputed on every call; answers change during an editing session.
func ShouldShow(q *models.Question, answers models.FlatAnswers) bool {
	if q == nil {
		return false
	}
	if q.Conditional == nil {
		return true
	}
	a, ok := answers[q.Conditional.QuestionID]
	if !ok || !a.Answered() {
		return false
	}
	for _, v := range q.Conditional.ShowIf {
		if a.Answer == v {
			return true
		}
	}
	return false
}

// VisibleQuestions returns the visible questions in declaration order. A
// conditional parent counts as answered only while it is visible itself, so
// hiding a question also hides everything chained to it.
func VisibleQuestions(t *models.Template, answers models.FlatAnswers) []*models.Question {
	visible := visibleSet(t, answers)
	var out []*models.Question
	for _, loc := range AllQuestions(t) {
		if visible[loc.Question.ID] {
			out = append(out, loc.Question)
		}
	}
	return out
}

// visibleSet resolves visibility for every question of t. Questions on a
// conditional cycle, or pointing at an id the template lacks, are hidden.
func visibleSet(t *models.Template, answers models.FlatAnswers) map[string]bool {
	idx := QuestionIndex(t)
	resolved := make(map[string]bool, len(idx))
	visiting := map[string]bool{}
	var resolve func(id string) bool
	resolve = func(id string) bool {
		if v, ok := resolved[id]; ok {
			return v
		}
		loc, ok := idx[id]
		if !ok || visiting[id] {
			return false
		}
		q := loc.Question
		visiting[id] = true
		show := ShouldShow(q, answers)
		if show && q.Conditional != nil {
			show = resolve(q.Conditional.QuestionID)
		}
		delete(visiting, id)
		resolved[id] = show
		return show
	}
	for id := range idx {
		resolve(id)
	}
	return resolved
}

// Progress is the answered share of currently visible questions.
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// ComputeProgress counts against the current snapshot, so it may move
// backwards when an answer hides questions. No visible questions is 100%.
func ComputeProgress(t *models.Template, answers models.FlatAnswers) Progress {
	visible := VisibleQuestions(t, answers)
	p := Progress{Total: len(visible)}
	for _, q := range visible {
		if answers[q.ID].Answered() {
			p.Answered++
		}
	}
	if p.Total == 0 {
		p.Percent = 100
		return p
	}
	p.Percent = int(math.Round(100 * float64(p.Answered) / float64(p.Total)))
	return p
}

// ValidationGaps lists visible required questions that are still unanswered.
// Submission is allowed with gaps; callers report them, never reject.
func ValidationGaps(t *models.Template, answers models.FlatAnswers) []string {
	var gaps []string
	for _, q := range VisibleQuestions(t, answers) {
		if q.Required && !answers[q.ID].Answered() {
			gaps = append(gaps, q.ID)
		}
	}
	return gaps
}
