package engine

import "github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"

// Location points at a question inside its template.
type Location struct {
	Section    *models.Section
	Subsection *models.Subsection
	Question   *models.Question
}

// AllQuestions flattens the template in declaration order.
func AllQuestions(t *models.Template) []Location {
	if t == nil {
		return nil
	}
	var out []Location
	for si := range t.Sections {
		sec := &t.Sections[si]
		for ssi := range sec.Subsections {
			sub := &sec.Subsections[ssi]
			for qi := range sub.Questions {
				out = append(out, Location{Section: sec, Subsection: sub, Question: &sub.Questions[qi]})
			}
		}
	}
	return out
}

// QuestionIndex maps question ids to their location.
func QuestionIndex(t *models.Template) map[string]Location {
	locs := AllQuestions(t)
	idx := make(map[string]Location, len(locs))
	for _, loc := range locs {
		idx[loc.Question.ID] = loc
	}
	return idx
}

func sectionQuestions(sec *models.Section) []*models.Question {
	var out []*models.Question
	for ssi := range sec.Subsections {
		sub := &sec.Subsections[ssi]
		for qi := range sub.Questions {
			out = append(out, &sub.Questions[qi])
		}
	}
	return out
}
