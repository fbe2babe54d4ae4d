package engine

import (
	"fmt"
	"time"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// Event drives the response lifecycle.
type Event string

const (
	EventSave           Event = "save"
	EventSubmit         Event = "submit"
	EventReturnForFixes Event = "returnForFixes"
)

// Transition returns the status reached by applying ev to from. An empty
// from means the record does not exist yet.
func Transition(from models.Status, ev Event) (models.Status, error) {
	switch ev {
	case EventSave:
		switch from {
		case "", models.StatusSaved, models.StatusReturnedForFixes:
			return models.StatusSaved, nil
		}
	case EventSubmit:
		switch from {
		case "", models.StatusSaved, models.StatusReturnedForFixes:
			return models.StatusSubmitted, nil
		}
	case EventReturnForFixes:
		if from == models.StatusSubmitted {
			return models.StatusReturnedForFixes, nil
		}
	}
	return from, &InvalidTransitionError{From: from, Event: ev}
}

// IsLocked reports whether the grantee editor must be read-only.
func IsLocked(s models.Status) bool { return s == models.StatusSubmitted }

// ReturnOutcome describes what ApplyReturnForFixes did.
type ReturnOutcome struct {
	AlreadyReturned bool
	Updated         int
}

// ApplyReturnForFixes merges per-question funder feedback into rec and moves
// it to RETURNED_FOR_FIXES. Answer values are kept verbatim. A record that is
// already returned is left untouched and reported as such.
func ApplyReturnForFixes(rec *models.ResponseRecord, t *models.Template, feedback map[string]string, grantorID string, now time.Time) (ReturnOutcome, error) {
	if rec.Status == models.StatusReturnedForFixes {
		return ReturnOutcome{AlreadyReturned: true}, nil
	}
	next, err := Transition(rec.Status, EventReturnForFixes)
	if err != nil {
		return ReturnOutcome{}, err
	}
	idx := QuestionIndex(t)
	for qid := range feedback {
		if _, ok := idx[qid]; !ok {
			return ReturnOutcome{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, qid)
		}
	}

	answers := rec.Answers.Clone()
	if answers == nil {
		answers = models.NestedAnswers{}
	}
	for qid, text := range feedback {
		loc := idx[qid]
		sid, ssid := loc.Section.SectionID, loc.Subsection.SubsectionID
		if answers[sid] == nil {
			answers[sid] = map[string]map[string]models.Answer{}
		}
		if answers[sid][ssid] == nil {
			answers[sid][ssid] = map[string]models.Answer{}
		}
		a := answers[sid][ssid][qid]
		a.FunderFeedback = text
		answers[sid][ssid][qid] = a
	}

	rec.Answers = answers
	rec.Status = next
	rec.ReturnedBy = grantorID
	rec.LastUpdated = now
	return ReturnOutcome{Updated: len(feedback)}, nil
}
