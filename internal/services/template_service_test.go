package services

import (
	"context"
	"testing"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

type countingCache struct {
	items map[string]*models.Template
	hits  int
}

func (c *countingCache) Get(_ context.Context, id string) (*models.Template, bool) {
	t, ok := c.items[id]
	if ok {
		c.hits++
	}
	return t, ok
}

func (c *countingCache) Set(_ context.Context, t *models.Template) { c.items[t.ID] = t }

const yamlTemplate = `
templateCode: GFGP-T
version: 2
title: Tiered gold
structureType: tiered
tieredLevel: gold
content:
  sections:
    - sectionId: A
      title: Governance
      subsections:
        - subsectionId: A.1
          title: Board
          questions:
            - id: T1
              questionText: Board exists?
`

func TestPublishTemplate(t *testing.T) {
	st := newStubStore()
	cache := &countingCache{items: map[string]*models.Template{}}
	svc := NewTemplateService(st, cache, NewAuditor(st))
	ctx := context.Background()

	tpl, err := svc.Publish(ctx, admin, []byte(yamlTemplate), FormatYAML)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if tpl.ID == "" || tpl.Version != "2" || tpl.Key().String() != "tiered/gold" {
		t.Fatalf("template: %+v", tpl)
	}
	got, err := svc.Get(ctx, tpl.ID)
	if err != nil || got.ID != tpl.ID || cache.hits != 1 {
		t.Fatalf("get: %v hits=%d", err, cache.hits)
	}
	latest, err := svc.Latest(ctx, models.StructureKey{StructureType: models.StructureTiered, TieredLevel: models.TierGold})
	if err != nil || latest.ID != tpl.ID {
		t.Fatalf("latest: %v", err)
	}
	if _, err := svc.Publish(ctx, admin, []byte(yamlTemplate), FormatYAML); !isCode(err, ErrorConflict) {
		t.Fatalf("republish: %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 {
		t.Fatalf("list: %d", len(list))
	}
}

func TestPublishTemplateRejects(t *testing.T) {
	st := newStubStore()
	svc := NewTemplateService(st, nil, nil)
	ctx := context.Background()
	if _, err := svc.Publish(ctx, grantor, []byte(sampleTemplateJSON), FormatJSON); !isCode(err, ErrorForbidden) {
		t.Fatalf("grantor: %v", err)
	}
	if _, err := svc.Publish(ctx, admin, []byte(`{"templateCode":"X","version":"1","structureType":"foundation"}`), FormatJSON); !engine.IsMalformed(err) {
		t.Fatalf("missing content: %v", err)
	}
	if _, err := svc.Publish(ctx, admin, []byte(`{"version":"1","structureType":"foundation","content":{"sections":[]}}`), FormatJSON); !isCode(err, ErrorInvalid) {
		t.Fatalf("missing code: %v", err)
	}
	if _, err := svc.Publish(ctx, admin, []byte(`{"templateCode":"X","version":"1","content":{"sections":[]}}`), FormatJSON); !isCode(err, ErrorInvalid) {
		t.Fatalf("missing structure: %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); !isCode(err, ErrorNotFound) {
		t.Fatalf("get missing: %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want TemplateFormat
	}{
		{"t.yaml", "{}", FormatYAML},
		{"t.YML", "", FormatYAML},
		{"t.json", "a: b", FormatJSON},
		{"", " {\"a\":1}", FormatJSON},
		{"", "a: b", FormatYAML},
	}
	for _, c := range cases {
		if got := DetectFormat(c.name, []byte(c.raw)); got != c.want {
			t.Fatalf("DetectFormat(%q, %q) = %s, want %s", c.name, c.raw, got, c.want)
		}
	}
}
