package models

import "time"

// Status is the lifecycle state of a response record.
type Status string

const (
	StatusSaved            Status = "SAVED"
	StatusSubmitted        Status = "SUBMITTED"
	StatusReturnedForFixes Status = "RETURNED_FOR_FIXES"
)

// Answer is a grantee's answer to one question.
type Answer struct {
	Answer         AnswerValue `json:"answer,omitempty"`
	Justification  string      `json:"justification,omitempty"`
	Evidence       string      `json:"evidence,omitempty"`
	FunderFeedback string      `json:"funderFeedback,omitempty"`
}

// WithValue returns a copy with the answer changed. Justification only
// survives on Not Applicable and evidence only on Yes.
func (a Answer) WithValue(v AnswerValue) Answer {
	a.Answer = v
	if v != AnswerNotApplicable {
		a.Justification = ""
	}
	if v != AnswerYes {
		a.Evidence = ""
	}
	return a
}

// Answered reports whether a value was chosen.
func (a Answer) Answered() bool { return a.Answer != "" }

// FlatAnswers maps question id to answer.
type FlatAnswers map[string]Answer

// NestedAnswers mirrors the template hierarchy: section -> subsection -> question.
type NestedAnswers map[string]map[string]map[string]Answer

// ResponseKey identifies one grantee response slot.
type ResponseKey struct {
	UserID       string
	Structure    StructureKey
	TemplateCode string
	Version      string
}

// ResponseRecord is a persisted draft or submission.
type ResponseRecord struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Structure    StructureKey  `json:"structure"`
	TemplateID   string        `json:"templateId"`
	TemplateCode string        `json:"templateCode"`
	Version      string        `json:"version"`
	Status       Status        `json:"status"`
	Answers      NestedAnswers `json:"answers"`
	LastUpdated  time.Time     `json:"lastUpdated"`
	SubmittedAt  *time.Time    `json:"submittedAt,omitempty"`
	Completeness *float64      `json:"completeness,omitempty"`
	Compliance   *float64      `json:"compliance,omitempty"`
	InviteID     string        `json:"inviteId,omitempty"`
	ReturnedBy   string        `json:"returnedBy,omitempty"`
}

func (r *ResponseRecord) Key() ResponseKey {
	return ResponseKey{UserID: r.UserID, Structure: r.Structure, TemplateCode: r.TemplateCode, Version: r.Version}
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (r *ResponseRecord) Clone() *ResponseRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Answers = r.Answers.Clone()
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		cp.SubmittedAt = &t
	}
	if r.Completeness != nil {
		v := *r.Completeness
		cp.Completeness = &v
	}
	if r.Compliance != nil {
		v := *r.Compliance
		cp.Compliance = &v
	}
	return &cp
}

func (n NestedAnswers) Clone() NestedAnswers {
	if n == nil {
		return nil
	}
	out := make(NestedAnswers, len(n))
	for sid, subs := range n {
		cs := make(map[string]map[string]Answer, len(subs))
		for ssid, qs := range subs {
			cq := make(map[string]Answer, len(qs))
			for qid, a := range qs {
				cq[qid] = a
			}
			cs[ssid] = cq
		}
		out[sid] = cs
	}
	return out
}

// Evidence describes an uploaded supporting document.
type Evidence struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuestionID  string    `json:"questionId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Digest      string    `json:"digest"`
	URL         string    `json:"fileUrl"`
	UploadedAt  time.Time `json:"uploadedAt"`
}
