package engine

import "github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"

// IsHighRisk reports whether v is one of the question's declared risk
// answers. Questions without riskAnswers are never high risk.
func IsHighRisk(q *models.Question, v models.AnswerValue) bool {
	if q == nil || len(q.RiskAnswers) == 0 {
		return false
	}
	for _, r := range q.RiskAnswers {
		if r == v {
			return true
		}
	}
	return false
}

// HighRiskQuestions lists question ids whose current answer is high risk.
func HighRiskQuestions(t *models.Template, answers models.FlatAnswers) []string {
	var out []string
	for _, loc := range AllQuestions(t) {
		a, ok := answers[loc.Question.ID]
		if !ok {
			continue
		}
		if IsHighRisk(loc.Question, a.Answer) {
			out = append(out, loc.Question.ID)
		}
	}
	return out
}
