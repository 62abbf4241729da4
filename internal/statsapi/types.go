package statsapi

import "github.com/plunkbot/plunkbot/internal/models"

// Wire types for the two Stats API endpoints the collector consumes. Only the
// fields the pipeline reads are declared; required-but-optional fields are
// pointers so a malformed play can be detected and skipped.

type scheduleResponse struct {
	Dates []struct {
		Games []scheduleGame `json:"games"`
	} `json:"dates"`
}

type scheduleGame struct {
	GamePk            int           `json:"gamePk"`
	Link              string        `json:"link"`
	OfficialDate      string        `json:"officialDate"`
	SeriesDescription string        `json:"seriesDescription"`
	Teams             scheduleTeams `json:"teams"`
}

type scheduleTeams struct {
	Home scheduleTeam `json:"home"`
	Away scheduleTeam `json:"away"`
}

type scheduleTeam struct {
	Score int `json:"score"`
	Team  struct {
		Name string `json:"name"`
	} `json:"team"`
	LeagueRecord struct {
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
	} `json:"leagueRecord"`
}

func (t scheduleTeam) teamLine() models.TeamLine {
	return models.TeamLine{
		Name:   t.Team.Name,
		Score:  t.Score,
		Wins:   t.LeagueRecord.Wins,
		Losses: t.LeagueRecord.Losses,
	}
}

type liveFeedResponse struct {
	LiveData struct {
		Plays struct {
			AllPlays []feedPlay `json:"allPlays"`
		} `json:"plays"`
	} `json:"liveData"`
}

type feedPlay struct {
	Result struct {
		Event       string `json:"event"`
		Description string `json:"description"`
	} `json:"result"`
	About struct {
		Inning     int    `json:"inning"`
		HalfInning string `json:"halfInning"`
	} `json:"about"`
	Matchup struct {
		Batter    feedPlayer `json:"batter"`
		Pitcher   feedPlayer `json:"pitcher"`
		BatSide   sideCode   `json:"batSide"`
		PitchHand sideCode   `json:"pitchHand"`
	} `json:"matchup"`
	PlayEvents []playEvent `json:"playEvents"`
}

type feedPlayer struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
}

type sideCode struct {
	Code string `json:"code"`
}

type playEvent struct {
	IsPitch bool   `json:"isPitch"`
	PlayID  string `json:"playId"`
	Count   struct {
		Balls   int `json:"balls"`
		Strikes int `json:"strikes"`
		Outs    int `json:"outs"`
	} `json:"count"`
	PitchData *pitchData `json:"pitchData"`
	Details   struct {
		Type *struct {
			Description string `json:"description"`
		} `json:"type"`
	} `json:"details"`
}

type pitchData struct {
	StartSpeed  float64 `json:"startSpeed"`
	EndSpeed    float64 `json:"endSpeed"`
	Coordinates struct {
		PX float64 `json:"pX"`
		PZ float64 `json:"pZ"`
	} `json:"coordinates"`
}
