package models

// TeamLine holds one side of a final box score.
type TeamLine struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// Game is the parent grouping an event belongs to, shaped from the MLB
// schedule response. Link is the relative live-feed path the schedule hands
// back for the game.
type Game struct {
	GamePk            int      `json:"game_pk"`
	Date              string   `json:"date"` // YYYY-MM-DD
	SeriesDescription string   `json:"series_description"`
	Link              string   `json:"link"`
	Home              TeamLine `json:"home"`
	Away              TeamLine `json:"away"`
}

// Winner returns the winning and losing team lines. Ties go to the home
// team, which regulation baseball does not produce.
func (g *Game) Winner() (winner, loser TeamLine) {
	if g.Home.Score >= g.Away.Score {
		return g.Home, g.Away
	}
	return g.Away, g.Home
}

// Player identifies a participant in a play.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Hand string `json:"hand"` // batting or throwing side code, "L" / "R"
	Team string `json:"team"`
}

// AtBat captures the state of the at-bat at the moment of the final pitch.
type AtBat struct {
	Balls      int     `json:"balls"`
	Strikes    int     `json:"strikes"`
	Outs       int     `json:"outs"`
	Inning     int     `json:"inning"`
	HalfInning string  `json:"half_inning"` // "top" or "bottom"
	StartSpeed float64 `json:"start_speed"`
	EndSpeed   float64 `json:"end_speed"`
	PitchName  string  `json:"pitch_name"`
	PlateX     float64 `json:"plate_x"`
	PlateZ     float64 `json:"plate_z"`
}

// Play is a discovered hit-by-pitch occurrence before persistence, carrying
// the display detail that never reaches the store.
type Play struct {
	PlayID      string `json:"play_id"`
	GamePk      int    `json:"game_pk"`
	Batter      Player `json:"batter"`
	Pitcher     Player `json:"pitcher"`
	AtBat       AtBat  `json:"at_bat"`
	Description string `json:"description"`
}

// Event shapes the play into its durable representation with all lifecycle
// flags false.
func (p *Play) Event(g *Game) Event {
	return Event{
		PlayID:    p.PlayID,
		GamePk:    g.GamePk,
		GameDate:  g.Date,
		PitcherID: p.Pitcher.ID,
		BatterID:  p.Batter.ID,
		EndSpeed:  p.AtBat.EndSpeed,
		PlateX:    p.AtBat.PlateX,
		PlateZ:    p.AtBat.PlateZ,
	}
}

// Attachment bundles the optional media accompanying a post: zero or one
// video and zero or more analysis images with captions.
type Attachment struct {
	VideoPath string            `json:"video_path,omitempty"`
	Images    []ImageAttachment `json:"images,omitempty"`
}

// ImageAttachment is an analysis image plus its alt-text caption.
type ImageAttachment struct {
	Path string `json:"path"`
	Alt  string `json:"alt"`
}
