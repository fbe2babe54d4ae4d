package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

func TestStructurePrunesEmptyBranches(t *testing.T) {
	tpl := mustSample(t)
	flat := models.FlatAnswers{
		"Q1": {Answer: models.AnswerYes, Evidence: "https://files/e1.pdf"},
		"Q2": ans(models.AnswerInProgress),
		"ZZ": ans(models.AnswerYes),
	}

	nested := Structure(flat, tpl)

	require.Len(t, nested, 1, "section S2 has no answers and must be dropped")
	require.Contains(t, nested, "S1")
	assert.Len(t, nested["S1"], 1, "subsection S1.2 has no answers and must be dropped")
	assert.Equal(t, flat["Q1"], nested["S1"]["S1.1"]["Q1"])
	assert.Equal(t, flat["Q2"], nested["S1"]["S1.1"]["Q2"])
}

func TestStructureRoundTrip(t *testing.T) {
	tpl := mustSample(t)
	flat := models.FlatAnswers{
		"Q1": {Answer: models.AnswerNotApplicable, Justification: "no manual needed"},
		"Q3": ans(models.AnswerNo),
		"Q4": ans(models.AnswerYes),
		"Q5": {FunderFeedback: "please answer"},
	}

	back := Unstructure(Structure(flat, tpl))
	assert.Equal(t, flat, back)
}

func TestStructureEmpty(t *testing.T) {
	tpl := mustSample(t)
	assert.Empty(t, Structure(nil, tpl))
	assert.Empty(t, Structure(models.FlatAnswers{}, tpl))
	assert.Empty(t, Unstructure(nil))
}

func TestStructureSkipsClearedAnswers(t *testing.T) {
	tpl := mustSample(t)
	flat := models.FlatAnswers{
		"Q1": ans(models.AnswerYes),
		"Q3": {},
		"Q4": {Answer: ""},
	}

	nested := Structure(flat, tpl)

	require.Len(t, nested, 1, "S2 only held a cleared answer")
	assert.Equal(t, models.FlatAnswers{"Q1": ans(models.AnswerYes)}, Unstructure(nested))
}
