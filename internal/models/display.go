package models

import (
	"fmt"
	"strings"
)

// Ordinal renders n as an English ordinal ("1st", "2nd", "11th").
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
		// teens take "th" regardless of the last digit
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// CountLine renders the at-bat state, e.g. "3-2, 2 outs, top of 9th".
func (ab *AtBat) CountLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d-%d, %d out", ab.Balls, ab.Strikes, ab.Outs)
	if ab.Outs != 1 {
		b.WriteByte('s')
	}
	fmt.Fprintf(&b, ", %s of %s", strings.ToLower(ab.HalfInning), Ordinal(ab.Inning))
	return b.String()
}

// PitchLine renders the pitch, e.g. "93.4 mph four-seam fastball". The
// effective speed is the midpoint of release and plate-crossing speed.
func (ab *AtBat) PitchLine() string {
	effective := (ab.StartSpeed + ab.EndSpeed) / 2.0
	return fmt.Sprintf("%.1f mph %s", effective, strings.ToLower(ab.PitchName))
}

// DisplayLine renders a participant, e.g. "Jazz Chisholm Jr. (L) - Yankees".
func (p *Player) DisplayLine() string {
	return fmt.Sprintf("%s (%s) - %s", p.Name, p.Hand, p.Team)
}
