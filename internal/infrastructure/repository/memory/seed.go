package memory

import (
	"time"

	"github.com/riskibarqy/score-tracker/internal/domain/match"
)

// SeedMatches returns a small fixture list for running the service without a
// database. Kickoffs are relative to now so every scheduler tier has work.
func SeedMatches(now time.Time) []match.Match {
	now = now.UTC().Truncate(time.Minute)
	seed := []match.Match{
		{
			ID:        "seed-livescore-live",
			HomeTeam:  "Arsenal",
			AwayTeam:  "Chelsea",
			Source:    match.SourceLiveScore,
			Locator:   "https://www.livescore.com/en/football/england/premier-league/arsenal-vs-chelsea/1250001/",
			KickoffAt: now.Add(-35 * time.Minute),
			Status:    match.StatusInPlay,
			ScoreHome: match.IntPtr(1),
			ScoreAway: match.IntPtr(0),
		},
		{
			ID:        "seed-onefootball-near",
			HomeTeam:  "Persija Jakarta",
			AwayTeam:  "Persib Bandung",
			Source:    match.SourceOneFootball,
			Locator:   "https://onefootball.com/en/match/2600001",
			KickoffAt: now.Add(20 * time.Minute),
			Status:    match.StatusScheduled,
		},
		{
			ID:        "seed-livescore-far",
			HomeTeam:  "Real Madrid",
			AwayTeam:  "Barcelona",
			Source:    match.SourceLiveScore,
			Locator:   "https://www.livescore.com/en/football/spain/laliga/real-madrid-vs-barcelona/1250002/",
			KickoffAt: now.Add(6 * time.Hour),
			Status:    match.StatusScheduled,
		},
	}

	for i := range seed {
		seed[i].TrackingEnabled = true
		seed[i].CreatedAt = now
		seed[i].UpdatedAt = now
	}
	return seed
}
