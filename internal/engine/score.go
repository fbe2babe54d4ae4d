package engine

import (
	"math"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// Status labels used in reports.
const (
	LabelMet          = "Met"
	LabelPartiallyMet = "Partially Met"
	LabelNotMet       = "Not Met"
	LabelNA           = "N/A"
	LabelNoResponse   = "No Response"
)

// MaxPoints is the value of a Yes answer and the per-question ceiling.
const MaxPoints = 2

// Points maps an answer to its score value. Not Applicable and unanswered
// both score 0; callers decide whether the question is applicable.
func Points(v models.AnswerValue) int {
	switch v {
	case models.AnswerYes:
		return 2
	case models.AnswerInProgress:
		return 1
	default:
		return 0
	}
}

// StatusLabel maps an answer to its report label.
func StatusLabel(v models.AnswerValue) string {
	switch v {
	case models.AnswerYes:
		return LabelMet
	case models.AnswerInProgress:
		return LabelPartiallyMet
	case models.AnswerNo:
		return LabelNotMet
	case models.AnswerNotApplicable:
		return LabelNA
	default:
		return LabelNoResponse
	}
}

// Score aggregates a set of questions.
type Score struct {
	Questions     int            `json:"questions"`
	Applicable    int            `json:"applicable"`
	TotalPossible int            `json:"totalPossible"`
	TotalPoints   int            `json:"totalPoints"`
	YesPoints     int            `json:"yesPoints"`
	Completeness  float64        `json:"completeness"`
	Compliance    float64        `json:"compliance"`
	Counts        map[string]int `json:"counts"`
}

// SectionScore is the score of one section.
type SectionScore struct {
	SectionID string `json:"sectionId"`
	Title     string `json:"title"`
	Weight    int    `json:"weight"`
	Score
}

// Report is the scoring of a whole response.
type Report struct {
	TemplateID string         `json:"templateId,omitempty"`
	Sections   []SectionScore `json:"sections"`
	Overall    Score          `json:"overall"`
}

// ScoreQuestions scores questions against answers. Unanswered questions stay
// in the denominator; only Not Applicable leaves it.
func ScoreQuestions(questions []*models.Question, answers models.FlatAnswers) Score {
	s := Score{Counts: map[string]int{}}
	for _, q := range questions {
		s.Questions++
		v := answers[q.ID].Answer
		s.Counts[StatusLabel(v)]++
		if v == models.AnswerNotApplicable {
			continue
		}
		s.Applicable++
		s.TotalPoints += Points(v)
		if v == models.AnswerYes {
			s.YesPoints += MaxPoints
		}
	}
	s.TotalPossible = s.Applicable * MaxPoints
	s.Completeness = percent(s.TotalPoints, s.TotalPossible)
	s.Compliance = percent(s.YesPoints, s.TotalPossible)
	return s
}

// ScoreSection scores one section.
func ScoreSection(sec *models.Section, answers models.FlatAnswers) SectionScore {
	return SectionScore{
		SectionID: sec.SectionID,
		Title:     sec.Title,
		Weight:    sec.Weight(),
		Score:     ScoreQuestions(sectionQuestions(sec), answers),
	}
}

// ScoreTemplate scores every section and the response as a whole. The
// overall figures are computed over all applicable questions rather than by
// averaging section percentages, so small sections are not over-weighted.
func ScoreTemplate(t *models.Template, answers models.FlatAnswers) Report {
	r := Report{TemplateID: t.ID}
	var all []*models.Question
	for si := range t.Sections {
		sec := &t.Sections[si]
		r.Sections = append(r.Sections, ScoreSection(sec, answers))
		all = append(all, sectionQuestions(sec)...)
	}
	r.Overall = ScoreQuestions(all, answers)
	return r
}

func percent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return round1(100 * float64(num) / float64(den))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
