package services

import (
	"context"
	"sort"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

type AnalyticsService struct {
	responses ResponseStore
	templates TemplateProvider
}

type QuestionStats struct {
	ID     string         `json:"id"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ReliabilitySummary describes how a template performs across submissions.
type ReliabilitySummary struct {
	TemplateID     string                `json:"templateId"`
	TotalResponses int                   `json:"totalResponses"`
	Questions      []QuestionStats       `json:"questions"`
	Timeseries     []AnalyticsTimeseries `json:"timeseries"`
	Alpha          float64               `json:"alpha"`
	N              int                   `json:"n"`
}

func NewAnalyticsService(responses ResponseStore, templates TemplateProvider) *AnalyticsService {
	return &AnalyticsService{responses: responses, templates: templates}
}

// Reliability aggregates submitted records of a template version and computes
// Cronbach's alpha over per-question points. Records with a Not Applicable or
// missing answer are left out of the alpha matrix.
func (s *AnalyticsService) Reliability(ctx context.Context, sess models.Session, templateID string) (*ReliabilitySummary, error) {
	if sess.Role != models.RoleAdmin {
		return nil, NewForbiddenError("forbidden")
	}
	t, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	recs, err := s.responses.ListResponsesByTemplate(ctx, t.TemplateCode, t.Version)
	if err != nil {
		return nil, persistErr("list responses", err)
	}
	submitted := recs[:0:0]
	for _, r := range recs {
		if r.Status == models.StatusSubmitted || r.Status == models.StatusReturnedForFixes {
			submitted = append(submitted, r)
		}
	}
	questions := engine.AllQuestions(t)
	flats := make([]models.FlatAnswers, 0, len(submitted))
	for _, r := range submitted {
		flats = append(flats, engine.Unstructure(r.Answers))
	}
	matrix := buildAlphaMatrix(questions, flats)
	return &ReliabilitySummary{
		TemplateID:     t.ID,
		TotalResponses: len(submitted),
		Questions:      buildQuestionStats(questions, flats),
		Timeseries:     buildTimeseries(submitted),
		Alpha:          CronbachAlpha(matrix),
		N:              len(matrix),
	}, nil
}

func buildQuestionStats(questions []engine.Location, flats []models.FlatAnswers) []QuestionStats {
	out := make([]QuestionStats, 0, len(questions))
	for _, loc := range questions {
		qs := QuestionStats{ID: loc.Question.ID, Counts: map[string]int{}}
		for _, f := range flats {
			qs.Counts[engine.StatusLabel(f[loc.Question.ID].Answer)]++
			qs.Total++
		}
		out = append(out, qs)
	}
	return out
}

func buildAlphaMatrix(questions []engine.Location, flats []models.FlatAnswers) [][]float64 {
	matrix := make([][]float64, 0, len(flats))
	for _, f := range flats {
		row := make([]float64, 0, len(questions))
		complete := true
		for _, loc := range questions {
			a := f[loc.Question.ID]
			if !a.Answered() || a.Answer == models.AnswerNotApplicable {
				complete = false
				break
			}
			row = append(row, float64(engine.Points(a.Answer)))
		}
		if complete {
			matrix = append(matrix, row)
		}
	}
	return matrix
}

func buildTimeseries(recs []*models.ResponseRecord) []AnalyticsTimeseries {
	counts := map[string]int{}
	for _, r := range recs {
		at := r.LastUpdated
		if r.SubmittedAt != nil {
			at = *r.SubmittedAt
		}
		counts[at.UTC().Format("2006-01-02")]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
