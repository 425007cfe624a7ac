package wallclock

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "9:05", want: 545},
		{in: "23:59", want: 1439},
		{in: "24:00", want: EndOfDay},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "0900", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if s := Clock(545).String(); s != "09:05" {
		t.Fatalf("expected 09:05, got %s", s)
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-03-02")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Weekday() != 1 {
		t.Fatalf("2026-03-02 is a Monday, got weekday %d", d.Weekday())
	}
	if next := d.AddDays(-2).String(); next != "2026-02-28" {
		t.Fatalf("expected 2026-02-28, got %s", next)
	}
	if _, err := ParseDate("2026-02-30"); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if !d.Before(d.AddDays(1)) || d.After(d) {
		t.Fatalf("unexpected ordering")
	}
}

func TestDateAtZone(t *testing.T) {
	loc, err := LoadZone("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	got := MustDate("2026-01-15").At(MustClock("09:00"), loc)
	want := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.UTC())
	}
	if end := MustDate("2026-01-15").At(EndOfDay, time.UTC); !end.Equal(time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("24:00 should roll to next midnight, got %s", end)
	}
}

func TestLoadZone(t *testing.T) {
	if loc, err := LoadZone(""); err != nil || loc != time.UTC {
		t.Fatalf("blank zone should be UTC, got %v err=%v", loc, err)
	}
	if _, err := LoadZone("Mars/Olympus"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestFormatting(t *testing.T) {
	if s := FormatLongDate(MustDate("2026-03-02")); s != "Monday, March 2, 2026" {
		t.Fatalf("unexpected long date %q", s)
	}
	if s := FormatKitchen(MustClock("14:05")); s != "2:05 PM" {
		t.Fatalf("unexpected kitchen time %q", s)
	}
}

func TestJSON(t *testing.T) {
	var v struct {
		Date Date  `json:"date"`
		At   Clock `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2026-03-02","at":"10:30"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"date":"2026-03-02","at":"10:30"}` {
		t.Fatalf("unexpected json %s", out)
	}
}
