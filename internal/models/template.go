package models

import (
	"fmt"
	"time"
)

// StructureType is the questionnaire family a grantee is assessed under.
type StructureType string

const (
	StructureFoundation StructureType = "foundation"
	StructureAdvanced   StructureType = "advanced"
	StructureTiered     StructureType = "tiered"
)

// TieredLevel sub-classifies the tiered structure.
type TieredLevel string

const (
	TierPlatinum TieredLevel = "platinum"
	TierGold     TieredLevel = "gold"
	TierSilver   TieredLevel = "silver"
	TierBronze   TieredLevel = "bronze"
)

func (s StructureType) Valid() bool {
	switch s {
	case StructureFoundation, StructureAdvanced, StructureTiered:
		return true
	}
	return false
}

func (l TieredLevel) Valid() bool {
	switch l {
	case TierPlatinum, TierGold, TierSilver, TierBronze:
		return true
	}
	return false
}

// StructureKey identifies a structure, with the tiered level only for tiered.
type StructureKey struct {
	StructureType StructureType `json:"structureType"`
	TieredLevel   TieredLevel   `json:"tieredLevel,omitempty"`
}

// Validate enforces that tieredLevel is present iff the structure is tiered.
func (k StructureKey) Validate() error {
	if !k.StructureType.Valid() {
		return fmt.Errorf("unknown structure type %q", k.StructureType)
	}
	if k.StructureType == StructureTiered {
		if !k.TieredLevel.Valid() {
			return fmt.Errorf("tiered structure requires a tiered level, got %q", k.TieredLevel)
		}
		return nil
	}
	if k.TieredLevel != "" {
		return fmt.Errorf("tiered level %q is only allowed for tiered structures", k.TieredLevel)
	}
	return nil
}

func (k StructureKey) String() string {
	if k.TieredLevel == "" {
		return string(k.StructureType)
	}
	return string(k.StructureType) + "/" + string(k.TieredLevel)
}

// AnswerValue is one of the fixed single-choice options. Empty means unanswered.
type AnswerValue string

const (
	AnswerYes           AnswerValue = "Yes"
	AnswerInProgress    AnswerValue = "In-progress"
	AnswerNo            AnswerValue = "No"
	AnswerNotApplicable AnswerValue = "Not Applicable"
)

// AnswerOptions is the option set offered by every question.
var AnswerOptions = []AnswerValue{AnswerYes, AnswerInProgress, AnswerNo, AnswerNotApplicable}

func (v AnswerValue) Valid() bool {
	switch v {
	case AnswerYes, AnswerInProgress, AnswerNo, AnswerNotApplicable:
		return true
	}
	return false
}

// Template is one published version of a questionnaire.
type Template struct {
	ID            string        `json:"id"`
	TemplateCode  string        `json:"templateCode"`
	Version       string        `json:"version"`
	Title         string        `json:"title"`
	StructureType StructureType `json:"structureType"`
	TieredLevel   TieredLevel   `json:"tieredLevel,omitempty"`
	Sections      []Section     `json:"sections"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (t *Template) Key() StructureKey {
	return StructureKey{StructureType: t.StructureType, TieredLevel: t.TieredLevel}
}

type Section struct {
	SectionID   string       `json:"sectionId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Subsections []Subsection `json:"subsections"`
}

// Weight is the sum of its subsections' weights.
func (s *Section) Weight() int {
	w := 0
	for i := range s.Subsections {
		w += s.Subsections[i].Weight()
	}
	return w
}

type Subsection struct {
	SubsectionID string     `json:"subsectionId"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Questions    []Question `json:"questions"`
}

// Weight counts one per question.
func (s *Subsection) Weight() int { return len(s.Questions) }

type Question struct {
	ID             string        `json:"id"`
	QuestionText   string        `json:"questionText"`
	Required       bool          `json:"required"`
	UploadEvidence bool          `json:"uploadEvidence"`
	Guidance       string        `json:"guidance,omitempty"`
	Conditional    *Conditional  `json:"conditional,omitempty"`
	RiskAnswers    []AnswerValue `json:"riskAnswers,omitempty"`
}

// Options returns the fixed option set regardless of template content.
func (q *Question) Options() []AnswerValue {
	return append([]AnswerValue(nil), AnswerOptions...)
}

// Conditional makes a question visible only when another question's answer is in ShowIf.
type Conditional struct {
	QuestionID string        `json:"questionId"`
	ShowIf     []AnswerValue `json:"showIf"`
}
