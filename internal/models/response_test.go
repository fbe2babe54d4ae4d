package models

import "testing"

func TestAnswerWithValueClearsJustification(t *testing.T) {
	a := Answer{Answer: AnswerNotApplicable, Justification: "not relevant to our size"}
	got := a.WithValue(AnswerNo)
	if got.Justification != "" {
		t.Fatalf("justification = %q, want cleared", got.Justification)
	}
	if got.Answer != AnswerNo {
		t.Fatalf("answer = %q, want No", got.Answer)
	}
	if a.Justification == "" {
		t.Fatalf("WithValue must not mutate the receiver")
	}
}

func TestAnswerWithValueClearsEvidence(t *testing.T) {
	a := Answer{Answer: AnswerYes, Evidence: "https://files/policy.pdf", FunderFeedback: "ok"}
	got := a.WithValue(AnswerInProgress)
	if got.Evidence != "" {
		t.Fatalf("evidence = %q, want cleared", got.Evidence)
	}
	if got.FunderFeedback != "ok" {
		t.Fatalf("funder feedback should survive an answer change, got %q", got.FunderFeedback)
	}
}

func TestAnswerWithValueKeepsMatchingFields(t *testing.T) {
	a := Answer{Answer: AnswerYes, Evidence: "e"}
	if got := a.WithValue(AnswerYes); got.Evidence != "e" {
		t.Fatalf("evidence should survive Yes -> Yes, got %q", got.Evidence)
	}
	n := Answer{Answer: AnswerNotApplicable, Justification: "j"}
	if got := n.WithValue(AnswerNotApplicable); got.Justification != "j" {
		t.Fatalf("justification should survive N/A -> N/A, got %q", got.Justification)
	}
}

func TestStructureKeyValidate(t *testing.T) {
	cases := []struct {
		key StructureKey
		ok  bool
	}{
		{StructureKey{StructureType: StructureFoundation}, true},
		{StructureKey{StructureType: StructureAdvanced}, true},
		{StructureKey{StructureType: StructureTiered, TieredLevel: TierBronze}, true},
		{StructureKey{StructureType: StructureTiered}, false},
		{StructureKey{StructureType: StructureFoundation, TieredLevel: TierGold}, false},
		{StructureKey{StructureType: "basic"}, false},
	}
	for _, c := range cases {
		err := c.key.Validate()
		if (err == nil) != c.ok {
			t.Fatalf("Validate(%v) err=%v, want ok=%v", c.key, err, c.ok)
		}
	}
	if got := (StructureKey{StructureType: StructureTiered, TieredLevel: TierGold}).String(); got != "tiered/gold" {
		t.Fatalf("String() = %q, want tiered/gold", got)
	}
}

func TestResponseRecordClone(t *testing.T) {
	score := 50.0
	r := &ResponseRecord{ID: "r1", Answers: NestedAnswers{"s": {"ss": {"q": {Answer: AnswerYes}}}}, Completeness: &score}
	cp := r.Clone()
	cp.Answers["s"]["ss"]["q"] = Answer{Answer: AnswerNo}
	*cp.Completeness = 10
	if r.Answers["s"]["ss"]["q"].Answer != AnswerYes {
		t.Fatalf("clone shares answer maps with the original")
	}
	if *r.Completeness != 50 {
		t.Fatalf("clone shares score pointers with the original")
	}
}
