package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// SeasonLengthDays is the width of the date-assignment window, per spec §4.5.
const SeasonLengthDays = 180

// MaxGamesPerDay caps how many games may land on the same calendar day
// during the primary date-assignment pass.
const MaxGamesPerDay = 8

// dateAssignAttempts is how many random days are tried before falling back
// to an uncapped random day, per spec §4.5.
const dateAssignAttempts = 100

// Matchup is one unordered pair of teams and the number of games they play.
type Matchup struct {
	teamA, teamB string
	games        int
}

// TeamA returns the first team in the pair.
func (m Matchup) TeamA() string { return m.teamA }

// TeamB returns the second team in the pair.
func (m Matchup) TeamB() string { return m.teamB }

// Games returns the number of games the pair plays in the season.
func (m Matchup) Games() int { return m.games }

// BuildMatchupCounts computes, for every unordered pair of distinct teams in
// s, the number of games they play in a season per spec §4.5's tiered rule:
// 4 within a division, 4 or 3 between conference rivals depending on the
// (A[i], B[(i+d) mod 5]) rotation, 2 across conferences.
func BuildMatchupCounts(s *Structure) []Matchup {
	rival := map[[2]string]bool{}

	for _, conf := range s.Conferences {
		var divKeys []string
		for _, d := range conf.Divisions {
			divKeys = append(divKeys, conf.Name+"/"+d.Name)
		}
		for ai := 0; ai < len(divKeys); ai++ {
			for bi := ai + 1; bi < len(divKeys); bi++ {
				a := s.TeamsInDivision(divKeys[ai])
				b := s.TeamsInDivision(divKeys[bi])
				for i := 0; i < len(a); i++ {
					for d := 0; d < 3; d++ {
						j := (i + d) % len(b)
						rival[pairKey(a[i], b[j])] = true
					}
				}
			}
		}
	}

	teamIDs := s.TeamIDs()
	var out []Matchup
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			a, b := teamIDs[i], teamIDs[j]
			var games int
			switch {
			case s.SameDivision(a, b):
				games = 4
			case s.SameConference(a, b):
				if rival[pairKey(a, b)] {
					games = 4
				} else {
					games = 3
				}
			default:
				games = 2
			}
			out = append(out, Matchup{teamA: a, teamB: b, games: games})
		}
	}
	return out
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// gameStub is a (home, away) assignment awaiting a date.
type gameStub struct {
	home, away string
}

// assignHomeAway expands matchups into individual (home, away) game stubs,
// splitting each pair's games as evenly as possible. On an odd count the
// extra home game goes to whichever team currently has fewer accumulated
// home games, ties broken in favor of the first-listed team (teamA), per
// spec §4.5.
func assignHomeAway(matchups []Matchup, teamOrder []string) []gameStub {
	homeCount := make(map[string]int, len(teamOrder))
	for _, t := range teamOrder {
		homeCount[t] = 0
	}

	var stubs []gameStub
	for _, m := range matchups {
		homeForA := m.games / 2
		homeForB := m.games / 2
		if m.games%2 == 1 {
			if homeCount[m.teamA] <= homeCount[m.teamB] {
				homeForA++
			} else {
				homeForB++
			}
		}
		for i := 0; i < homeForA; i++ {
			stubs = append(stubs, gameStub{home: m.teamA, away: m.teamB})
		}
		for i := 0; i < homeForB; i++ {
			stubs = append(stubs, gameStub{home: m.teamB, away: m.teamA})
		}
		homeCount[m.teamA] += homeForA
		homeCount[m.teamB] += homeForB
	}
	return stubs
}

// assignDates places each game stub on a date within the season window,
// following spec §4.5's try-up-to-100-random-days algorithm with an
// uncapped random fallback.
func assignDates(rng *rand.Rand, stubs []gameStub, seasonYear int) []repository.ScheduleGame {
	windowStart := time.Date(seasonYear, time.October, 19, 0, 0, 0, 0, time.UTC)

	order := rng.Perm(len(stubs))

	gamesOnDay := map[string]int{}
	teamBusyOnDay := map[string]map[string]bool{}

	seasonID := ids.SeasonIDFromYear(seasonYear)
	games := make([]repository.ScheduleGame, len(stubs))

	for _, idx := range order {
		s := stubs[idx]

		place := func(day time.Time, enforceCaps bool) bool {
			key := day.Format("2006-01-02")
			if enforceCaps {
				if gamesOnDay[key] >= MaxGamesPerDay {
					return false
				}
				if teamBusyOnDay[key][s.home] || teamBusyOnDay[key][s.away] {
					return false
				}
			}
			gamesOnDay[key]++
			if teamBusyOnDay[key] == nil {
				teamBusyOnDay[key] = map[string]bool{}
			}
			teamBusyOnDay[key][s.home] = true
			teamBusyOnDay[key][s.away] = true

			games[idx] = repository.ScheduleGame{
				GameID:     fmt.Sprintf("%s_%s_%s", key, s.home, s.away),
				Date:       key,
				HomeTeamID: s.home,
				AwayTeamID: s.away,
				Status:     "scheduled",
				SeasonID:   seasonID,
				Phase:      "regular",
			}
			return true
		}

		placed := false
		for attempt := 0; attempt < dateAssignAttempts; attempt++ {
			offset := rng.Intn(SeasonLengthDays)
			day := windowStart.AddDate(0, 0, offset)
			if place(day, true) {
				placed = true
				break
			}
		}
		if !placed {
			offset := rng.Intn(SeasonLengthDays)
			day := windowStart.AddDate(0, 0, offset)
			place(day, false)
		}
	}

	return games
}

// BuildMasterSchedule implements spec §4.5's build_master_schedule(season_year):
// computes matchup counts, balances home/away, assigns dates within the
// season window, persists the games, and applies the two documented side
// effects (trade-deadline persistence, draft-pick seeding).
func BuildMasterSchedule(ctx context.Context, lc *leaguectx.Context, seasonYear int, structure *Structure) error {
	if structure == nil {
		structure = LeagueStructure
	}

	teamIDs := structure.TeamIDs()
	sort.Strings(teamIDs)

	matchups := BuildMatchupCounts(structure)
	stubs := assignHomeAway(matchups, teamIDs)

	expected := len(teamIDs) * 41
	if len(stubs) != expected {
		return fmt.Errorf("build_master_schedule: expected %d games, computed %d", expected, len(stubs))
	}

	rng := rand.New(rand.NewSource(int64(seasonYear)))
	games := assignDates(rng, stubs, seasonYear)

	yearsAhead := lc.TradeRules.MaxPickYearsAhead
	if lc.TradeRules.StepienLookahead+1 > yearsAhead {
		yearsAhead = lc.TradeRules.StepienLookahead + 1
	}

	deadline := fmt.Sprintf("%04d-02-05", seasonYear+1)

	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.InsertScheduleGames(ctx, tx, games); err != nil {
			return fmt.Errorf("build_master_schedule: %w", err)
		}
		if err := repository.SetLeagueSetting(ctx, tx, "trade_deadline", deadline, lc.Now); err != nil {
			return fmt.Errorf("build_master_schedule: %w", err)
		}
		if err := repository.EnsureDraftPicksSeeded(ctx, tx, seasonYear, teamIDs, yearsAhead, lc.Now); err != nil {
			return fmt.Errorf("build_master_schedule: %w", err)
		}
		return nil
	})
}
