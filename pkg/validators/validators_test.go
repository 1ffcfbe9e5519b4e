package validators

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-formstate/pkg/condition"
	"github.com/goliatone/go-formstate/pkg/form"
)

func kinds(v form.Validator, value any) []string {
	return v.Validate(value, nil).Kinds()
}

func TestFieldValidators(t *testing.T) {
	t.Parallel()

	pattern, err := Pattern(`[A-Z]{3}`, "")
	if err != nil {
		t.Fatalf("Pattern: %v", err)
	}

	cases := []struct {
		name  string
		v     form.Validator
		value any
		want  []string
	}{
		{"required blank", Required(""), "  ", []string{form.KindRequired}},
		{"required zero number", Required(""), 0, nil},
		{"pattern anchored", pattern, "ABCD", []string{form.KindPattern}},
		{"pattern match", pattern, "ABC", nil},
		{"pattern blank passes", pattern, "", nil},
		{"min below", Min(decimal.Zero, ""), -1, []string{form.KindMin}},
		{"min numeric string", Min(decimal.Zero, ""), "0.00", nil},
		{"min blank passes", Min(decimal.Zero, ""), "", nil},
		{"max above", Max(decimal.NewFromInt(100), ""), 150, []string{form.KindMax}},
		{"max boundary", Max(decimal.NewFromInt(100), ""), 100.0, nil},
		{"min length", MinLength(3, ""), "ab", []string{form.KindMinLength}},
		{"min length runes", MinLength(3, ""), "äöü", nil},
		{"max length", MaxLength(2, ""), "abc", []string{form.KindMaxLength}},
	}

	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, kinds(tc.v, tc.value)); diff != "" {
			t.Fatalf("%s: kinds mismatch (-want +got):\n%s", tc.name, diff)
		}
	}

	if _, err := Pattern(`[`, ""); err == nil {
		t.Fatalf("expected invalid pattern error")
	}
}

func TestTagValidator(t *testing.T) {
	t.Parallel()

	email, err := Tag("email", "")
	if err != nil {
		t.Fatalf("Tag(email): %v", err)
	}
	if email.Kind() != "email" {
		t.Fatalf("unexpected kind %q", email.Kind())
	}
	if diff := cmp.Diff([]string{"email"}, kinds(email, "not-an-email")); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if got := kinds(email, "ops@example.com"); got != nil {
		t.Fatalf("expected valid email, got %v", got)
	}
	if got := kinds(email, ""); got != nil {
		t.Fatalf("blank values must pass non-required tags, got %v", got)
	}

	oneof, err := Tag("oneof=annual sick", "pick one")
	if err != nil {
		t.Fatalf("Tag(oneof): %v", err)
	}
	if got := oneof.Validate("unpaid", nil); got["oneof"] != "pick one" {
		t.Fatalf("unexpected violation %v", got)
	}

	if _, err := Tag("definitely_not_a_tag", ""); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
}

func TestShortfallTolerance(t *testing.T) {
	t.Parallel()

	declared := decimal.NewFromInt(8)
	cases := []struct {
		computed string
		want     bool
	}{
		{"8", false},
		{"9.5", false},
		{"7.9", false},
		{"7.95", false},
		{"7.89", true},
		{"6", true},
	}
	for _, tc := range cases {
		got := Shortfall(declared, decimal.RequireFromString(tc.computed), DefaultTolerance)
		if got != tc.want {
			t.Fatalf("Shortfall(8, %s) = %v, want %v", tc.computed, got, tc.want)
		}
	}
}

func TestHours(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"08:30":    "8.5",
		"17:45:00": "17.75",
		"7.5":      "7.5",
	}
	for in, want := range cases {
		got, ok := Hours(in)
		if !ok || !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("Hours(%q) = %s (%v), want %s", in, got, ok, want)
		}
	}
	for _, bad := range []string{"8:75", "x:10", "1:2:3:4", ""} {
		if _, ok := Hours(bad); ok {
			t.Fatalf("Hours(%q) expected failure", bad)
		}
	}
}

func newShiftRecord() *form.Record {
	rec := form.NewRecord("shift")
	rec.AddField("start", form.WithValue("08:00"))
	rec.AddField("end", form.WithValue("16:00"))
	rec.AddField("hours", form.WithType(form.FieldTypeNumber), form.WithValue(8))
	rec.AddValidators(DurationShortfall("hours", "start", "end"))
	return rec
}

func TestDurationShortfallIsAsymmetric(t *testing.T) {
	t.Parallel()

	rec := newShiftRecord()
	hours, _ := rec.Field("hours")
	end, _ := rec.Field("end")

	end.SetValue("15:55")
	if hours.Errors().Has(KindDurationShortfall) {
		t.Fatalf("span within tolerance must not flag")
	}

	end.SetValue("15:30")
	if !hours.Errors().Has(KindDurationShortfall) {
		t.Fatalf("expected shortfall violation, got %v", hours.Errors())
	}

	end.SetValue("20:00")
	if hours.Errors().Has(KindDurationShortfall) {
		t.Fatalf("overage must never flag")
	}

	start, _ := rec.Field("start")
	start.SetValue("22:00")
	end.SetValue("06:00")
	if hours.Errors().Has(KindDurationShortfall) {
		t.Fatalf("overnight span of 8h must not flag, got %v", hours.Errors())
	}
}

func newLeaveRecord() *form.Record {
	rec := form.NewRecord("leave_type")
	rec.AddField("allow_carryover", form.WithType(form.FieldTypeBoolean), form.WithValue(true))
	rec.AddField("limit", form.WithType(form.FieldTypeInteger), form.WithValue(10),
		form.WithValidators(Required("")))
	rec.AddField("carryover_days", form.WithType(form.FieldTypeInteger), form.WithValue(0))
	rec.AddValidators(ExceedsLimit("carryover_days", "limit", When(condition.Truthy("allow_carryover"))))
	return rec
}

func TestExceedsLimitToggleIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := newLeaveRecord()
	carry, _ := rec.Field("carryover_days")
	toggle, _ := rec.Field("allow_carryover")

	carry.SetValue(12)
	before := carry.Errors().Kinds()
	if diff := cmp.Diff([]string{KindExceedsLimit}, before); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}

	toggle.SetValue(false)
	if carry.Errors().Has(KindExceedsLimit) {
		t.Fatalf("expected violation cleared when the condition turns off")
	}

	toggle.SetValue(true)
	if diff := cmp.Diff(before, carry.Errors().Kinds()); diff != "" {
		t.Fatalf("toggle round-trip changed violations (-want +got):\n%s", diff)
	}
}

func TestExceedsLimitClearsOnlyWhenLimitIsValid(t *testing.T) {
	t.Parallel()

	rec := newLeaveRecord()
	carry, _ := rec.Field("carryover_days")
	limit, _ := rec.Field("limit")

	carry.SetValue(12)
	limit.SetValue("")
	if !carry.Errors().Has(KindExceedsLimit) {
		t.Fatalf("violation must persist while the limit field is itself invalid")
	}

	limit.SetValue(20)
	if carry.Errors().Has(KindExceedsLimit) {
		t.Fatalf("expected violation cleared once the limit is valid and not exceeded")
	}
}

func TestRangeOrder(t *testing.T) {
	t.Parallel()

	rec := form.NewRecord("delegation")
	from := rec.AddField("from", form.WithValue("2026-01-10"))
	to := rec.AddField("to", form.WithValue("2026-01-20"))
	rec.AddValidators(RangeOrder("from", "to"))

	from.SetValue("2026-02-01")
	if !to.Errors().Has(KindRangeOrder) {
		t.Fatalf("expected rangeOrder violation on the end field")
	}
	to.SetValue("")
	if to.Errors().Has(KindRangeOrder) {
		t.Fatalf("blank end must clear the violation")
	}
}
