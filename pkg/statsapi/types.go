package statsapi

// Raw wire types for the MLB Stats API. Only the fields we read.

type scheduleResponse struct {
	Dates []scheduleDate `json:"dates"`
}

type scheduleDate struct {
	Date  string         `json:"date"`
	Games []scheduleGame `json:"games"`
}

type scheduleGame struct {
	GamePK       int    `json:"gamePk"`
	GameDate     string `json:"gameDate"` // RFC3339
	OfficialDate string `json:"officialDate"`
	Status       struct {
		StatusCode    string `json:"statusCode"`
		DetailedState string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Home scheduleTeam `json:"home"`
		Away scheduleTeam `json:"away"`
	} `json:"teams"`
	Linescore struct {
		CurrentInning int    `json:"currentInning"`
		InningHalf    string `json:"inningHalf"`
		InningState   string `json:"inningState"`
	} `json:"linescore"`
}

type scheduleTeam struct {
	Score int `json:"score"`
	Team  struct {
		Abbreviation string `json:"abbreviation"`
		Name         string `json:"name"`
	} `json:"team"`
}

type liveFeedResponse struct {
	LiveData struct {
		Plays struct {
			AllPlays []feedPlay `json:"allPlays"`
		} `json:"plays"`
	} `json:"liveData"`
}

type feedPlay struct {
	About struct {
		AtBatIndex        int     `json:"atBatIndex"`
		Inning            int     `json:"inning"`
		HalfInning        string  `json:"halfInning"`
		IsComplete        bool    `json:"isComplete"`
		LeverageIndex     float64 `json:"leverageIndex"`
		HomeWinExpectancy float64 `json:"homeWinExpectancy"`
		AwayWinExpectancy float64 `json:"awayWinExpectancy"`
		StartTime         string  `json:"startTime"`
	} `json:"about"`
	Result struct {
		Event       string  `json:"event"`
		Description string  `json:"description"`
		HomeScore   int     `json:"homeScore"`
		AwayScore   int     `json:"awayScore"`
		WPA         float64 `json:"wpa"`
	} `json:"result"`
	Matchup struct {
		Batter struct {
			FullName string `json:"fullName"`
		} `json:"batter"`
		Pitcher struct {
			FullName string `json:"fullName"`
		} `json:"pitcher"`
	} `json:"matchup"`
}
