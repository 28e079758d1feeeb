// Package ids provides canonical identifier normalization and parsing for
// players, teams, draft picks, and swap rights.
package ids

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var playerIDPattern = regexp.MustCompile(`^P[0-9]{6}$`)

// FreeAgencyTeamID is the distinguished team id representing unsigned players.
const FreeAgencyTeamID = "FA"

// knownTeams is the fixed league vocabulary of short uppercase team codes.
// Callers outside this package never mutate it; schedule.LeagueStructure is
// the source of truth for division/conference membership but every id it
// uses must also appear here.
var knownTeams = map[string]bool{}

// RegisterTeam adds a team id to the known vocabulary used by NormalizeTeamID.
// Called once at startup by schedule.LeagueStructure and by tests that seed a
// smaller league.
func RegisterTeam(id string) {
	knownTeams[strings.ToUpper(strings.TrimSpace(id))] = true
}

// ResetKnownTeams clears the registered vocabulary. Exposed for tests that
// need a clean slate between independent league fixtures.
func ResetKnownTeams() {
	knownTeams = map[string]bool{}
}

// NormalizePlayerID renders value into the canonical "P######" form.
//
// With allowLegacyNumeric set, a bare integer (e.g. "123") is accepted and
// rendered via MakePlayerIDSeq, in strict and non-strict mode alike. Beyond
// that, strict mode requires value to already be canonical (after trimming
// whitespace) and rejects anything else, while non-strict mode just requires
// a non-empty string, returned trimmed and uppercased.
func NormalizePlayerID(value string, strict, allowLegacyNumeric bool) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("invalid player id: empty")
	}
	upper := strings.ToUpper(trimmed)

	if playerIDPattern.MatchString(upper) {
		return upper, nil
	}

	if allowLegacyNumeric {
		if n, err := strconv.Atoi(trimmed); err == nil && n >= 0 {
			return MakePlayerIDSeq(n), nil
		}
	}

	if strict {
		return "", fmt.Errorf("invalid player id %q: not canonical", value)
	}

	return upper, nil
}

// MakePlayerIDSeq renders a legacy numeric player id as canonical "P######".
func MakePlayerIDSeq(n int) string {
	return fmt.Sprintf("P%06d", n)
}

// NormalizeTeamID uppercases and validates a team id against the fixed
// league vocabulary. FA is only accepted when allowFA is true.
func NormalizeTeamID(value string, strict, allowFA bool) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(value))
	if upper == "" {
		return "", fmt.Errorf("invalid team id: empty")
	}

	if upper == FreeAgencyTeamID {
		if allowFA {
			return upper, nil
		}
		return "", fmt.Errorf("invalid team id: FA not allowed here")
	}

	if strict && !knownTeams[upper] {
		return "", fmt.Errorf("invalid team id %q: unknown team", value)
	}

	return upper, nil
}

// NormalizePickID renders a draft pick id from its parts:
// "{year}_R{round}_{original_team}".
func NormalizePickID(year, round int, originalTeam string) (string, error) {
	team, err := NormalizeTeamID(originalTeam, true, false)
	if err != nil {
		return "", err
	}
	if round != 1 && round != 2 {
		return "", fmt.Errorf("invalid round %d: must be 1 or 2", round)
	}
	return fmt.Sprintf("%d_R%d_%s", year, round, team), nil
}

// ParsedPickID is the decomposition of a canonical pick id.
type ParsedPickID struct {
	Year         int
	Round        int
	OriginalTeam string
}

var pickIDPattern = regexp.MustCompile(`^([0-9]{4})_R([12])_([A-Z]+)$`)

// ParsePickID decomposes a canonical pick id into its parts.
func ParsePickID(pickID string) (ParsedPickID, error) {
	m := pickIDPattern.FindStringSubmatch(pickID)
	if m == nil {
		return ParsedPickID{}, fmt.Errorf("invalid pick id %q", pickID)
	}
	year, _ := strconv.Atoi(m[1])
	round, _ := strconv.Atoi(m[2])
	return ParsedPickID{Year: year, Round: round, OriginalTeam: m[3]}, nil
}

// ComputeSwapPairKey returns the canonical, order-independent pair key used
// for both swap_id generation and uniqueness checks:
// "SWAP_{min(a,b)}__{max(a,b)}".
func ComputeSwapPairKey(pickIDA, pickIDB string) string {
	a, b := pickIDA, pickIDB
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("SWAP_%s__%s", a, b)
}

// SeasonIDFromYear renders a season id "YYYY-YY" for the season starting in
// year y (e.g. 2025 -> "2025-26").
func SeasonIDFromYear(y int) string {
	next := (y + 1) % 100
	return fmt.Sprintf("%04d-%02d", y, next)
}

// AssertUniqueIDs fails fast if seq contains duplicates, listing the
// offending duplicate values (deduplicated, sorted, capped at 10) in the
// returned error.
func AssertUniqueIDs(seq []string, what string) error {
	seen := make(map[string]int, len(seq))
	for _, v := range seq {
		seen[v]++
	}

	var dups []string
	for v, count := range seen {
		if count > 1 {
			dups = append(dups, v)
		}
	}
	if len(dups) == 0 {
		return nil
	}

	sort.Strings(dups)
	if len(dups) > 10 {
		dups = dups[:10]
	}
	return fmt.Errorf("duplicate %s ids: %s", what, strings.Join(dups, ", "))
}
