package repository

import "encoding/json"

func marshalTeams(teams []string) (string, error) {
	if teams == nil {
		teams = []string{}
	}
	b, err := json.Marshal(teams)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalTeams(raw string) []string {
	var teams []string
	_ = json.Unmarshal([]byte(raw), &teams)
	return teams
}
