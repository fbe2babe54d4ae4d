package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

// rawEnvelope is the template document as served by the template collaborator.
// Content may be an object or a JSON string holding the object.
type rawEnvelope struct {
	ID            string          `json:"id"`
	TemplateCode  string          `json:"templateCode"`
	Version       json.RawMessage `json:"version"`
	Title         string          `json:"title"`
	StructureType string          `json:"structureType"`
	TieredLevel   string          `json:"tieredLevel"`
	Content       json.RawMessage `json:"content"`
}

type rawContent struct {
	Sections []rawSection `json:"sections"`
}

type rawSection struct {
	SectionID   string          `json:"sectionId"`
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Subsections []rawSubsection `json:"subsections"`
}

type rawSubsection struct {
	SubsectionID string        `json:"subsectionId"`
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Questions    []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	ID             string               `json:"id"`
	QuestionText   string               `json:"questionText"`
	Required       bool                 `json:"required"`
	UploadEvidence bool                 `json:"uploadEvidence"`
	Guidance       string               `json:"guidance"`
	Conditional    *models.Conditional  `json:"conditional"`
	RiskAnswers    []models.AnswerValue `json:"riskAnswers"`
}

// ParseTemplate validates a raw template document once at load time and
// returns its normalized form. Section and subsection ids are generated when
// absent; question ids are mandatory.
func ParseTemplate(raw []byte) (*models.Template, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, malformed("empty document", nil)
	}
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, malformed("decode envelope", err)
	}
	content, err := decodeContent(env.Content)
	if err != nil {
		return nil, err
	}
	version, err := decodeVersion(env.Version)
	if err != nil {
		return nil, err
	}

	t := &models.Template{
		ID:            env.ID,
		TemplateCode:  strings.TrimSpace(env.TemplateCode),
		Version:       version,
		Title:         env.Title,
		StructureType: models.StructureType(strings.ToLower(strings.TrimSpace(env.StructureType))),
		TieredLevel:   models.TieredLevel(strings.ToLower(strings.TrimSpace(env.TieredLevel))),
	}
	if t.StructureType != "" {
		if err := t.Key().Validate(); err != nil {
			return nil, malformed("structure", err)
		}
	}

	seenQuestions := map[string]bool{}
	seenSections := map[string]bool{}
	for si, rs := range content.Sections {
		sec := models.Section{
			SectionID:   firstNonEmpty(rs.SectionID, rs.ID),
			Title:       rs.Title,
			Description: rs.Description,
		}
		if sec.SectionID == "" {
			sec.SectionID = uuid.NewString()
		}
		if seenSections[sec.SectionID] {
			return nil, malformed(fmt.Sprintf("duplicate section id %q", sec.SectionID), nil)
		}
		seenSections[sec.SectionID] = true

		seenSubs := map[string]bool{}
		for ssi, rss := range rs.Subsections {
			sub := models.Subsection{
				SubsectionID: firstNonEmpty(rss.SubsectionID, rss.ID),
				Title:        rss.Title,
				Description:  rss.Description,
			}
			if sub.SubsectionID == "" {
				sub.SubsectionID = uuid.NewString()
			}
			if seenSubs[sub.SubsectionID] {
				return nil, malformed(fmt.Sprintf("duplicate subsection id %q in section %q", sub.SubsectionID, sec.SectionID), nil)
			}
			seenSubs[sub.SubsectionID] = true

			for qi, rq := range rss.Questions {
				id := strings.TrimSpace(rq.ID)
				if id == "" {
					return nil, malformed(fmt.Sprintf("question %d of section %d subsection %d has no id", qi+1, si+1, ssi+1), nil)
				}
				if seenQuestions[id] {
					return nil, malformed(fmt.Sprintf("duplicate question id %q", id), nil)
				}
				seenQuestions[id] = true
				if err := validateValues(id, "riskAnswers", rq.RiskAnswers); err != nil {
					return nil, err
				}
				sub.Questions = append(sub.Questions, models.Question{
					ID:             id,
					QuestionText:   rq.QuestionText,
					Required:       rq.Required,
					UploadEvidence: rq.UploadEvidence,
					Guidance:       rq.Guidance,
					Conditional:    rq.Conditional,
					RiskAnswers:    rq.RiskAnswers,
				})
			}
			sec.Subsections = append(sec.Subsections, sub)
		}
		t.Sections = append(t.Sections, sec)
	}

	// conditionals may point forward, so resolve them after every id is known
	for _, loc := range AllQuestions(t) {
		c := loc.Question.Conditional
		if c == nil {
			continue
		}
		if !seenQuestions[c.QuestionID] {
			return nil, malformed(fmt.Sprintf("question %q depends on unknown question %q", loc.Question.ID, c.QuestionID), nil)
		}
		if c.QuestionID == loc.Question.ID {
			return nil, malformed(fmt.Sprintf("question %q depends on itself", loc.Question.ID), nil)
		}
		if err := validateValues(loc.Question.ID, "showIf", c.ShowIf); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseTemplateYAML accepts the same document authored as YAML.
func ParseTemplateYAML(raw []byte) (*models.Template, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, malformed("decode yaml", err)
	}
	if doc == nil {
		return nil, malformed("empty document", nil)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, malformed("convert yaml", err)
	}
	return ParseTemplate(b)
}

func decodeContent(raw json.RawMessage) (*rawContent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, malformed("content missing", nil)
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, malformed("decode content string", err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, malformed("content missing", nil)
		}
		trimmed = []byte(s)
	}
	var c rawContent
	if err := json.Unmarshal(trimmed, &c); err != nil {
		return nil, malformed("decode content", err)
	}
	return &c, nil
}

func decodeVersion(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", malformed("decode version", err)
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", malformed("decode version", err)
	}
	return n.String(), nil
}

func validateValues(questionID, field string, values []models.AnswerValue) error {
	for _, v := range values {
		if !v.Valid() {
			return malformed(fmt.Sprintf("question %q: %s contains unknown answer %q", questionID, field, v), nil)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
