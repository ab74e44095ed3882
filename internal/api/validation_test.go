package api

import (
	"strings"
	"testing"
	"time"
)

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"11988887777", true},
		{"(11) 98888-7777", true},
		{"1133334444", true},
		{"988887777", false},
		{"119888877771", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidatePhone(c.in)
		if c.ok && err != nil {
			t.Errorf("ValidatePhone(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidatePhone(%q): expected error", c.in)
		}
	}
}

func TestValidateBirthDate(t *testing.T) {
	future := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	tooOld := time.Now().AddDate(-131, 0, 0).Format("2006-01-02")
	cases := []struct {
		in string
		ok bool
	}{
		{"1990-05-20", true},
		{"2020-01-01", true},
		{future, false},
		{tooOld, false},
		{"20/05/1990", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidateBirthDate(c.in)
		if c.ok && err != nil {
			t.Errorf("ValidateBirthDate(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateBirthDate(%q): expected error", c.in)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"150.00", true},
		{"150", true},
		{"0.50", true},
		{"0", false},
		{"0.00", false},
		{"-10", false},
		{"abc", false},
		{"10.999", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidateAmount(c.in)
		if c.ok && err != nil {
			t.Errorf("ValidateAmount(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateAmount(%q): expected error", c.in)
		}
	}
}

func TestValidatePaymentDate(t *testing.T) {
	future := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-01-15", true},
		{future, false},
		{"15/01/2026", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidatePaymentDate(c.in)
		if c.ok && err != nil {
			t.Errorf("ValidatePaymentDate(%q): unexpected error %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidatePaymentDate(%q): expected error", c.in)
		}
	}
}

func TestValidateStatus(t *testing.T) {
	for _, s := range []string{"SCHEDULED", "COMPLETED", "CANCELLED", "NO_SHOW"} {
		if err := ValidateStatus(s); err != nil {
			t.Errorf("ValidateStatus(%q): %v", s, err)
		}
	}
	for _, s := range []string{"scheduled", "DONE", ""} {
		if err := ValidateStatus(s); err == nil {
			t.Errorf("ValidateStatus(%q): expected error", s)
		}
	}
}

func TestValidateAppointmentType(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"sessão", true},
		{strings.Repeat("x", 100), true},
		{strings.Repeat("x", 101), false},
		{strings.Repeat("x", 10000), false},
		{"", false},
		{"   ", false},
	}
	for _, c := range cases {
		err := ValidateAppointmentType(c.in)
		if c.ok && err != nil {
			t.Errorf("ValidateAppointmentType(%d chars): unexpected error %v", len(c.in), err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateAppointmentType(%d chars): expected error", len(c.in))
		}
	}
}

func TestValidateNotes(t *testing.T) {
	short := "acompanhamento quinzenal"
	atLimit := strings.Repeat("n", 2000)
	tooLong := strings.Repeat("n", 2001)
	if err := ValidateNotes(nil); err != nil {
		t.Errorf("nil notes: %v", err)
	}
	if err := ValidateNotes(&short); err != nil {
		t.Errorf("short notes: %v", err)
	}
	if err := ValidateNotes(&atLimit); err != nil {
		t.Errorf("2000-char notes: %v", err)
	}
	if err := ValidateNotes(&tooLong); err == nil {
		t.Error("2001-char notes: expected error")
	}
}

func TestValidateAppointmentTimes(t *testing.T) {
	start := time.Date(2027, 1, 10, 14, 0, 0, 0, time.UTC)
	endOK := start.Add(50 * time.Minute)
	endBad := start.Add(-time.Minute)
	if err := ValidateAppointmentTimes(start, &endOK); err != nil {
		t.Errorf("valid times: %v", err)
	}
	if err := ValidateAppointmentTimes(start, nil); err != nil {
		t.Errorf("nil end must be ok: %v", err)
	}
	if err := ValidateAppointmentTimes(start, &endBad); err == nil {
		t.Error("end before start must fail")
	}
	if err := ValidateAppointmentTimes(time.Time{}, nil); err == nil {
		t.Error("zero start must fail")
	}
}
