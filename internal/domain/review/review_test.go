package review

import (
	"errors"
	"strings"
	"testing"

	"github.com/safedesk/safedesk/internal/domain/draft"
)

func TestNewInput_CarriesDraftOnly(t *testing.T) {
	a := &draft.Answer{
		Text:      "Your order shipped yesterday.",
		Responder: draft.DomainOrder,
		Citations: []draft.Citation{{Source: "orders/ORD-123"}},
	}
	in := NewInput(a)
	if in.Text != a.Text || in.Responder != a.Responder || len(in.Citations) != 1 {
		t.Errorf("input does not mirror draft: %+v", in)
	}
}

func TestQuickCheck(t *testing.T) {
	r := PresetDefault()

	tests := []struct {
		name string
		text string
		want []Violation
	}{
		{
			"clean",
			"Your order ORD-123 shipped yesterday and should arrive within three business days.",
			nil,
		},
		{
			"forbidden phrase case insensitive",
			"Honestly, THAT'S NOT MY PROBLEM, please check the tracking page yourself and wait.",
			[]Violation{ViolationForbiddenPhrase},
		},
		{
			"forbidden promise",
			"We guarantee the package arrives tomorrow, so there is nothing to worry about here.",
			[]Violation{ViolationForbiddenPromise},
		},
		{
			"too short",
			"Shipped.",
			[]Violation{ViolationTooShort},
		},
		{
			"phrase and promise together",
			"You're wrong about the date but I promise the package arrives tomorrow regardless.",
			[]Violation{ViolationForbiddenPhrase, ViolationForbiddenPromise},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.QuickCheck(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("violations = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("violation[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQuickCheck_TooLong(t *testing.T) {
	r := PresetDefault()
	long := strings.Repeat("x", r.MaxLength+1)
	got := r.QuickCheck(long)
	if len(got) != 1 || got[0] != ViolationTooLong {
		t.Errorf("violations = %v, want [too_long]", got)
	}
}

func TestScrub(t *testing.T) {
	r := PresetDefault()

	in := "We guarantee a 100% refund, and that's final."
	out := r.Scrub(in)
	lower := strings.ToLower(out)
	if strings.Contains(lower, "we guarantee") || strings.Contains(lower, "100% refund") {
		t.Errorf("forbidden content survived scrub: %q", out)
	}
	if r.QuickCheck(out) != nil && containsViolation(r.QuickCheck(out), ViolationForbiddenPromise) {
		t.Errorf("scrubbed text still violates promise rule: %q", out)
	}

	if got := r.Scrub("Nothing forbidden here at all."); got != "Nothing forbidden here at all." {
		t.Errorf("clean text altered by scrub: %q", got)
	}
}

func TestRubricValidate(t *testing.T) {
	tests := []struct {
		name   string
		rubric Rubric
		want   error
	}{
		{"valid", Rubric{Name: "ok", MinLength: 10, MaxLength: 100}, nil},
		{"missing name", Rubric{MinLength: 10}, ErrRubricNameRequired},
		{"negative length", Rubric{Name: "bad", MinLength: -1}, ErrRubricNegativeLength},
		{"inverted bounds", Rubric{Name: "bad", MinLength: 100, MaxLength: 10}, ErrRubricLengthBounds},
		{"zero max means unbounded", Rubric{Name: "ok", MinLength: 100, MaxLength: 0}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rubric.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	def := PresetDefault()
	strict := PresetStrict()

	if strict.MaxLength >= def.MaxLength {
		t.Error("strict preset should have a tighter length bound than default")
	}
	if len(strict.ForbiddenPromises) <= len(def.ForbiddenPromises) {
		t.Error("strict preset should forbid more promises than default")
	}
	for name, r := range Presets() {
		if err := r.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
		if r.Name != name {
			t.Errorf("preset key %s does not match rubric name %s", name, r.Name)
		}
	}
}

func containsViolation(vs []Violation, want Violation) bool {
	for _, v := range vs {
		if v == want {
			return true
		}
	}
	return false
}
