package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

const sampleTemplate = `{
  "id": "tpl-foundation-1",
  "templateCode": "GFGP-F",
  "version": 1,
  "title": "GFGP Foundation",
  "structureType": "foundation",
  "content": {
    "sections": [
      {
        "sectionId": "S1",
        "title": "Financial Management",
        "subsections": [
          {
            "subsectionId": "S1.1",
            "title": "Policies",
            "questions": [
              {"id": "Q1", "questionText": "Is there a finance manual?", "required": true, "uploadEvidence": true},
              {"id": "Q2", "questionText": "Is the manual approved by the board?", "conditional": {"questionId": "Q1", "showIf": ["Yes"]}}
            ]
          },
          {
            "subsectionId": "S1.2",
            "title": "Controls",
            "questions": [
              {"id": "Q3", "questionText": "Are bank reconciliations done monthly?", "riskAnswers": ["No"]}
            ]
          }
        ]
      },
      {
        "sectionId": "S2",
        "title": "Procurement",
        "subsections": [
          {
            "subsectionId": "S2.1",
            "title": "Process",
            "questions": [
              {"id": "Q4", "questionText": "Is there a procurement policy?", "required": true},
              {"id": "Q5", "questionText": "Are quotes retained?"}
            ]
          }
        ]
      }
    ]
  }
}`

func mustSample(t *testing.T) *models.Template {
	t.Helper()
	tpl, err := ParseTemplate([]byte(sampleTemplate))
	require.NoError(t, err)
	return tpl
}

func ans(v models.AnswerValue) models.Answer { return models.Answer{Answer: v} }
