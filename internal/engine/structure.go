package engine

import "github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"

// Structure folds a flat answer map into the template's section/subsection
// shape. Entries with neither a value nor funder feedback are skipped,
// subsections left without entries are dropped, then sections left empty.
// Answers for ids the template does not declare are discarded.
func Structure(flat models.FlatAnswers, t *models.Template) models.NestedAnswers {
	out := models.NestedAnswers{}
	if t == nil {
		return out
	}
	for si := range t.Sections {
		sec := &t.Sections[si]
		subs := map[string]map[string]models.Answer{}
		for ssi := range sec.Subsections {
			sub := &sec.Subsections[ssi]
			qs := map[string]models.Answer{}
			for qi := range sub.Questions {
				a, ok := flat[sub.Questions[qi].ID]
				if !ok || (!a.Answered() && a.FunderFeedback == "") {
					continue
				}
				qs[sub.Questions[qi].ID] = a
			}
			if len(qs) == 0 {
				continue
			}
			subs[sub.SubsectionID] = qs
		}
		if len(subs) == 0 {
			continue
		}
		out[sec.SectionID] = subs
	}
	return out
}

// Unstructure flattens nested answers back to a map keyed by question id.
func Unstructure(nested models.NestedAnswers) models.FlatAnswers {
	out := models.FlatAnswers{}
	for _, subs := range nested {
		for _, qs := range subs {
			for qid, a := range qs {
				out[qid] = a
			}
		}
	}
	return out
}
