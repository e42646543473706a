// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package labparse

import (
	"errors"
	"math"
	"testing"
)

func TestParseSex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Sex
	}{
		{in: "Female", want: SexFemale},
		{in: " f ", want: SexFemale},
		{in: "MALE", want: SexMale},
		{in: "m", want: SexMale},
		{in: "", want: SexUnknown},
		{in: "other", want: SexUnknown},
	}

	for _, tc := range cases {
		if got := ParseSex(tc.in); got != tc.want {
			t.Fatalf("ParseSex(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestParseUnknownSexPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want UnknownSexPolicy
	}{
		{in: "", want: PolicyIndeterminate},
		{in: "indeterminate", want: PolicyIndeterminate},
		{in: "Male", want: PolicyMale},
		{in: " widest ", want: PolicyWidest},
	}

	for _, tc := range cases {
		got, err := ParseUnknownSexPolicy(tc.in)
		if err != nil {
			t.Fatalf("ParseUnknownSexPolicy(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseUnknownSexPolicy(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}

	if _, err := ParseUnknownSexPolicy("female"); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestRangeClassifyBoundaries(t *testing.T) {
	t.Parallel()

	r := Range{Min: 70, Max: 99}
	const eps = 1e-9

	cases := []struct {
		value float64
		want  Status
	}{
		{value: 70, want: StatusNormal},
		{value: 99, want: StatusNormal},
		{value: 70 - eps, want: StatusLow},
		{value: 99 + eps, want: StatusHigh},
		{value: math.NaN(), want: StatusInvalid},
	}

	for _, tc := range cases {
		if got := r.Classify(tc.value); got != tc.want {
			t.Fatalf("Classify(%v): expected %s, got %s", tc.value, tc.want, got)
		}
	}
}

func TestNormalRangeFor(t *testing.T) {
	t.Parallel()

	male := Range{Min: 13.5, Max: 17.5}
	female := Range{Min: 12.0, Max: 15.5}
	bySex := BySex(male, female)
	def := Default(4.5, 11)

	cases := []struct {
		name   string
		rng    NormalRange
		sex    Sex
		policy UnknownSexPolicy
		want   Range
		ok     bool
	}{
		{name: "default ignores sex", rng: def, sex: SexFemale, policy: PolicyIndeterminate, want: Range{Min: 4.5, Max: 11}, ok: true},
		{name: "default with unknown sex", rng: def, sex: SexUnknown, policy: PolicyIndeterminate, want: Range{Min: 4.5, Max: 11}, ok: true},
		{name: "male", rng: bySex, sex: SexMale, policy: PolicyIndeterminate, want: male, ok: true},
		{name: "female", rng: bySex, sex: SexFemale, policy: PolicyMale, want: female, ok: true},
		{name: "unknown indeterminate", rng: bySex, sex: SexUnknown, policy: PolicyIndeterminate, ok: false},
		{name: "unknown male policy", rng: bySex, sex: SexUnknown, policy: PolicyMale, want: male, ok: true},
		{name: "unknown widest", rng: bySex, sex: SexUnknown, policy: PolicyWidest, want: Range{Min: 12.0, Max: 17.5}, ok: true},
	}

	for _, tc := range cases {
		got, ok := tc.rng.For(tc.sex, tc.policy)
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.ok, ok)
		}
		if ok && got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}
