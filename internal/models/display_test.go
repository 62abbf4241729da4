package models

import "testing"

func TestOrdinal(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "1st"},
		{2, "2nd"},
		{3, "3rd"},
		{4, "4th"},
		{11, "11th"},
		{12, "12th"},
		{13, "13th"},
		{21, "21st"},
		{102, "102nd"},
		{111, "111th"},
	}

	for _, tt := range tests {
		if got := Ordinal(tt.n); got != tt.want {
			t.Errorf("Ordinal(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestCountLine(t *testing.T) {
	ab := AtBat{Balls: 3, Strikes: 2, Outs: 2, Inning: 9, HalfInning: "Top"}
	if got := ab.CountLine(); got != "3-2, 2 outs, top of 9th" {
		t.Errorf("unexpected count line %q", got)
	}

	ab = AtBat{Balls: 0, Strikes: 1, Outs: 1, Inning: 2, HalfInning: "bottom"}
	if got := ab.CountLine(); got != "0-1, 1 out, bottom of 2nd" {
		t.Errorf("unexpected count line %q", got)
	}
}

func TestPitchLine(t *testing.T) {
	ab := AtBat{StartSpeed: 95.0, EndSpeed: 87.0, PitchName: "Four-Seam Fastball"}
	if got := ab.PitchLine(); got != "91.0 mph four-seam fastball" {
		t.Errorf("unexpected pitch line %q", got)
	}
}

func TestPlayerDisplayLine(t *testing.T) {
	p := Player{ID: 12345, Name: "Hunter Greene", Hand: "R", Team: "Cincinnati Reds"}
	if got := p.DisplayLine(); got != "Hunter Greene (R) - Cincinnati Reds" {
		t.Errorf("unexpected display line %q", got)
	}
}
