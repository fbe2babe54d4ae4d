package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

func section(ids ...string) *models.Section {
	sub := models.Subsection{SubsectionID: "ss"}
	for _, id := range ids {
		sub.Questions = append(sub.Questions, models.Question{ID: id})
	}
	return &models.Section{SectionID: "s", Subsections: []models.Subsection{sub}}
}

func TestPointsAndLabels(t *testing.T) {
	cases := []struct {
		v      models.AnswerValue
		points int
		label  string
	}{
		{models.AnswerYes, 2, LabelMet},
		{models.AnswerInProgress, 1, LabelPartiallyMet},
		{models.AnswerNo, 0, LabelNotMet},
		{models.AnswerNotApplicable, 0, LabelNA},
		{"", 0, LabelNoResponse},
	}
	for _, c := range cases {
		assert.Equal(t, c.points, Points(c.v), "points for %q", c.v)
		assert.Equal(t, c.label, StatusLabel(c.v), "label for %q", c.v)
	}
}

func TestScoreSectionBoundary(t *testing.T) {
	sec := section("a", "b", "c")
	answers := models.FlatAnswers{
		"a": ans(models.AnswerYes),
		"b": ans(models.AnswerInProgress),
		"c": ans(models.AnswerNotApplicable),
	}

	s := ScoreSection(sec, answers)
	assert.Equal(t, 2, s.Applicable)
	assert.Equal(t, 4, s.TotalPossible)
	assert.Equal(t, 3, s.TotalPoints)
	assert.Equal(t, 75.0, s.Completeness)
	assert.Equal(t, 50.0, s.Compliance)
	assert.Equal(t, map[string]int{LabelMet: 1, LabelPartiallyMet: 1, LabelNA: 1}, s.Counts)
}

func TestScoreSectionAllNotApplicable(t *testing.T) {
	sec := section("a", "b")
	answers := models.FlatAnswers{"a": ans(models.AnswerNotApplicable), "b": ans(models.AnswerNotApplicable)}

	s := ScoreSection(sec, answers)
	assert.Equal(t, 0, s.TotalPossible)
	assert.Equal(t, 0.0, s.Completeness)
	assert.Equal(t, 0.0, s.Compliance)
}

func TestScoreUnansweredStaysInDenominator(t *testing.T) {
	sec := section("a", "b", "c")
	s := ScoreSection(sec, models.FlatAnswers{"a": ans(models.AnswerYes)})
	assert.Equal(t, 3, s.Applicable)
	assert.Equal(t, 6, s.TotalPossible)
	assert.Equal(t, 33.3, s.Completeness)
	assert.Equal(t, 33.3, s.Compliance)
	assert.Equal(t, 2, s.Counts[LabelNoResponse])
}

func TestScoreTemplateOverallIsNotAnAverage(t *testing.T) {
	tpl := mustSample(t)
	answers := models.FlatAnswers{
		"Q1": ans(models.AnswerYes),
		"Q2": ans(models.AnswerYes),
		"Q3": ans(models.AnswerYes),
		"Q4": ans(models.AnswerNo),
		"Q5": ans(models.AnswerInProgress),
	}

	r := ScoreTemplate(tpl, answers)
	require.Len(t, r.Sections, 2)
	assert.Equal(t, 100.0, r.Sections[0].Completeness)
	assert.Equal(t, 3, r.Sections[0].Weight)
	assert.Equal(t, 25.0, r.Sections[1].Completeness)
	// (6+0+1)/10, not the 62.5 mean of the section figures
	assert.Equal(t, 70.0, r.Overall.Completeness)
	assert.Equal(t, 60.0, r.Overall.Compliance)
	assert.Equal(t, 5, r.Overall.Questions)
}

func TestHighRisk(t *testing.T) {
	tpl := mustSample(t)
	idx := QuestionIndex(tpl)

	assert.True(t, IsHighRisk(idx["Q3"].Question, models.AnswerNo))
	assert.False(t, IsHighRisk(idx["Q3"].Question, models.AnswerYes))
	assert.False(t, IsHighRisk(idx["Q3"].Question, ""))
	assert.False(t, IsHighRisk(idx["Q4"].Question, models.AnswerNo), "no riskAnswers means never high risk")

	assert.Equal(t, []string{"Q3"}, HighRiskQuestions(tpl, models.FlatAnswers{"Q3": ans(models.AnswerNo), "Q4": ans(models.AnswerNo)}))
}
