package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/engine"
	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

func TestReportForOwnerAndInvitingGrantor(t *testing.T) {
	f := newFixture(t)
	rec := submitted(t, f)
	ctx := context.Background()
	for _, sess := range []models.Session{grantee, grantor, admin} {
		rep, err := f.reports.Report(ctx, sess, rec.ID)
		if err != nil {
			t.Fatalf("%s: %v", sess.Role, err)
		}
		if rep.Title != "Foundation" {
			t.Fatalf("title: %q", rep.Title)
		}
		if !reflect.DeepEqual(rep.HighRisk, []string{"Q3"}) {
			t.Fatalf("high risk: %v", rep.HighRisk)
		}
		if rep.Labels["Q1"] != engine.LabelMet || rep.Labels["Q3"] != engine.LabelNotMet || rep.Labels["Q4"] != engine.LabelNoResponse {
			t.Fatalf("labels: %v", rep.Labels)
		}
		if len(rep.Report.Sections) != 2 {
			t.Fatalf("sections: %+v", rep.Report.Sections)
		}
	}
	if _, err := f.reports.Report(ctx, grantee2, rec.ID); !isCode(err, ErrorForbidden) {
		t.Fatalf("other grantee: %v", err)
	}
	if _, err := f.reports.Report(ctx, grantorB, rec.ID); !isCode(err, ErrorForbidden) {
		t.Fatalf("uninvited grantor: %v", err)
	}
}

func TestCompareGrantees(t *testing.T) {
	f := newFixture(t)
	submitted(t, f)
	ctx := context.Background()
	if _, err := f.invites.Create(ctx, grantor, CreateInviteRequest{GranteeID: grantee2.UserID, Structure: foundation}); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := f.responses.SaveDraft(ctx, grantee2, SaveDraftRequest{Structure: foundation, Answers: models.FlatAnswers{"Q3": ans(models.AnswerNo)}}); err != nil {
		t.Fatalf("draft: %v", err)
	}
	cmp, err := f.reports.Compare(ctx, grantor, CompareRequest{TemplateID: "T1", GranteeIDs: []string{grantee.UserID, grantee2.UserID, grantee.UserID}})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Questions) != 4 || !cmp.Questions[2].Risky || cmp.Questions[0].Risky {
		t.Fatalf("questions: %+v", cmp.Questions)
	}
	if len(cmp.Grantees) != 2 {
		t.Fatalf("grantees: %+v", cmp.Grantees)
	}
	first := cmp.Grantees[0]
	if first.Status != models.StatusSubmitted || first.Overall == nil || !reflect.DeepEqual(first.HighRisk, []string{"Q3"}) {
		t.Fatalf("first: %+v", first)
	}
	// drafts are not compared
	if second := cmp.Grantees[1]; second.Overall != nil || second.ResponseID != "" {
		t.Fatalf("second: %+v", second)
	}

	if _, err := f.reports.Compare(ctx, grantorB, CompareRequest{TemplateID: "T1", GranteeIDs: []string{grantee.UserID}}); !isCode(err, ErrorForbidden) {
		t.Fatalf("uninvited: %v", err)
	}
	if _, err := f.reports.Compare(ctx, grantor, CompareRequest{TemplateID: "T1"}); !isCode(err, ErrorInvalid) {
		t.Fatalf("empty grantees: %v", err)
	}
}
