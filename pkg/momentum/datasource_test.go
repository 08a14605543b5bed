package momentum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreString(t *testing.T) {
	h, a, ok := parseScoreString("2 - 1")
	require.True(t, ok)
	assert.Equal(t, 2, h)
	assert.Equal(t, 1, a)

	_, _, ok = parseScoreString("")
	assert.False(t, ok)

	_, _, ok = parseScoreString("postponed")
	assert.False(t, ok)

	_, _, ok = parseScoreString("x - y")
	assert.False(t, ok)
}

func TestParseProviderMatchFinished(t *testing.T) {
	payload := `{
		"id": 4411111,
		"home": {"id": 8456, "name": "Manchester City"},
		"away": {"id": 8650, "name": "Liverpool"},
		"status": {
			"utcTime": "2026-08-22T16:30:00Z",
			"finished": true,
			"scoreStr": "3 - 1",
			"halfTimeScoreStr": "1 - 0"
		}
	}`
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	match := parseProviderMatch(raw, 47)
	require.NotNil(t, match)
	assert.Equal(t, "4411111", match.ID)
	assert.Equal(t, 47, match.LeagueID)
	assert.Equal(t, "8456", match.HomeID)
	assert.Equal(t, "Manchester City", match.HomeTeamName)
	assert.Equal(t, "finished", match.Status)
	assert.True(t, match.HasResult())

	scored, conceded, ok := match.ScoreFor("8456", ScoreTagFullTime)
	require.True(t, ok)
	assert.Equal(t, 3, scored)
	assert.Equal(t, 1, conceded)

	htScored, htConceded, ok := match.ScoreFor("8650", ScoreTagHalfTime)
	require.True(t, ok)
	assert.Equal(t, 0, htScored)
	assert.Equal(t, 1, htConceded)
}

func TestParseProviderMatchScheduled(t *testing.T) {
	payload := `{
		"id": 4422222,
		"home": {"id": 10, "name": "A"},
		"away": {"id": 20, "name": "B"},
		"status": {"utcTime": "2026-09-05T14:00:00Z", "finished": false}
	}`
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	match := parseProviderMatch(raw, 48)
	require.NotNil(t, match)
	assert.Equal(t, "scheduled", match.Status)
	assert.False(t, match.HasResult())
}

func TestParseProviderMatchMalformed(t *testing.T) {
	var noID map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"home": {"id": 1}, "away": {"id": 2}}`), &noID))
	assert.Nil(t, parseProviderMatch(noID, 47))

	var noTeams map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"id": 99}`), &noTeams))
	assert.Nil(t, parseProviderMatch(noTeams, 47))
}

func TestExtractMatchListShapes(t *testing.T) {
	leagueShape := `{"matches": {"allMatches": [
		{"id": 1, "home": {"id": 1}, "away": {"id": 2}},
		{"id": 2, "home": {"id": 3}, "away": {"id": 4}}
	]}}`
	var league map[string]any
	require.NoError(t, json.Unmarshal([]byte(leagueShape), &league))
	assert.Len(t, extractMatchList(league), 2)

	teamShape := `{"fixtures": {"allFixtures": {"fixtures": [
		{"id": 3, "home": {"id": 1}, "away": {"id": 2}}
	]}}}`
	var team map[string]any
	require.NoError(t, json.Unmarshal([]byte(teamShape), &team))
	assert.Len(t, extractMatchList(team), 1)

	detailsShape := `{"general": {"id": 4}, "home": {"id": 1}, "away": {"id": 2}}`
	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(detailsShape), &details))
	assert.Len(t, extractMatchList(details), 1)

	var empty map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Nil(t, extractMatchList(empty))
}

func TestMatchCacheFetchesOncePerTeam(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	// stored matches back the cache when the provider path is unused
	require.NoError(t, SaveMatches([]*MatchRecord{
		buildMatch("mc-1", "300", "400", 1, 0, 2),
	}))

	cache := NewMatchCache(GetDatasource())
	cache.matches["300"], _ = RecentMatchesForTeam("300", 10)

	first, err := cache.TeamMatches("300")
	require.NoError(t, err)
	second, err := cache.TeamMatches("300")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	assert.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}
