// Package schedule implements the master schedule builder of spec.md §4.5:
// matchup counts by division/conference tier, home/away balancing, and
// randomized date assignment within the season window.
package schedule

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"stormlightlabs.org/leaguecore/internal/ids"
)

//go:embed league_teams.json
var leagueTeamsJSON []byte

// Team is one league-structure team entry.
type Team struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
}

// Division groups five teams within a conference.
type Division struct {
	Name  string `json:"name"`
	Teams []Team `json:"teams"`
}

// Conference groups three divisions (15 teams).
type Conference struct {
	Name       string     `json:"name"`
	Divisions  []Division `json:"divisions"`
}

// leagueFile is the on-disk shape of league_teams.json.
type leagueFile struct {
	Conferences []Conference `json:"conferences"`
}

// Structure is a fully-loaded league structure: every team id, its division,
// and its conference, plus reverse-lookup maps built once at load time.
//
// spec.md doesn't enumerate concrete team ids (§4.5's inputs are "list of 30
// team ids, division/conference mapping"); this table is the implementation
// detail that supplies them, documented in SPEC_FULL.md §5. Callers may
// substitute a smaller or different Structure (e.g. in tests) via Load.
type Structure struct {
	Conferences []Conference

	teamDivision   map[string]string
	teamConference map[string]string
	divisionTeams  map[string][]string
	teamIDs        []string
}

// LeagueStructure is the default 30-team, 6-division, 2-conference league,
// loaded once from the embedded league_teams.json.
var LeagueStructure = MustLoad(leagueTeamsJSON)

// Load parses a league structure from raw JSON in the shape of
// league_teams.json and indexes it for fast division/conference lookups. It
// also registers every team id with internal/ids so NormalizeTeamID accepts
// them.
func Load(raw []byte) (*Structure, error) {
	var file leagueFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("schedule.Load: %w", err)
	}

	s := &Structure{
		Conferences:    file.Conferences,
		teamDivision:   map[string]string{},
		teamConference: map[string]string{},
		divisionTeams:  map[string][]string{},
	}

	for _, conf := range file.Conferences {
		for _, div := range conf.Divisions {
			key := conf.Name + "/" + div.Name
			for _, t := range div.Teams {
				s.teamDivision[t.TeamID] = key
				s.teamConference[t.TeamID] = conf.Name
				s.divisionTeams[key] = append(s.divisionTeams[key], t.TeamID)
				s.teamIDs = append(s.teamIDs, t.TeamID)
				ids.RegisterTeam(t.TeamID)
			}
		}
	}

	if err := ids.AssertUniqueIDs(s.teamIDs, "team"); err != nil {
		return nil, fmt.Errorf("schedule.Load: %w", err)
	}

	return s, nil
}

// MustLoad is Load but panics on error, used for the package-level default
// LeagueStructure at init time.
func MustLoad(raw []byte) *Structure {
	s, err := Load(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// TeamIDs returns every team id in the structure, in load order.
func (s *Structure) TeamIDs() []string {
	out := make([]string, len(s.teamIDs))
	copy(out, s.teamIDs)
	return out
}

// DivisionOf returns the "Conference/Division" key a team belongs to.
func (s *Structure) DivisionOf(teamID string) string {
	return s.teamDivision[teamID]
}

// ConferenceOf returns the conference name a team belongs to.
func (s *Structure) ConferenceOf(teamID string) string {
	return s.teamConference[teamID]
}

// SameDivision reports whether a and b share a division.
func (s *Structure) SameDivision(a, b string) bool {
	return s.teamDivision[a] == s.teamDivision[b] && s.teamDivision[a] != ""
}

// SameConference reports whether a and b share a conference.
func (s *Structure) SameConference(a, b string) bool {
	return s.teamConference[a] == s.teamConference[b] && s.teamConference[a] != ""
}

// DivisionsInConference returns the ordered list of "Conference/Division"
// keys within conf, used by the cross-division rotation rule.
func (s *Structure) DivisionsInConference(conf string) []string {
	var out []string
	for _, c := range s.Conferences {
		if c.Name != conf {
			continue
		}
		for _, d := range c.Divisions {
			out = append(out, c.Name+"/"+d.Name)
		}
	}
	return out
}

// TeamsInDivision returns the teams (in load order) belonging to a
// "Conference/Division" key.
func (s *Structure) TeamsInDivision(key string) []string {
	out := make([]string, len(s.divisionTeams[key]))
	copy(out, s.divisionTeams[key])
	return out
}
