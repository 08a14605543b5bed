package momentum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/momentumfc/momentum/internal/logger"
	"github.com/momentumfc/momentum/pkg/transport"
)

/**
* Provider client for fixture and result data.
* Responses are cached as JSON files under the configured cache directory;
* finished-match data is durable, upcoming data expires daily.
 */
type Datasource struct {
	BaseURL         string
	LeaguesURL      string
	TeamsURL        string
	MatchDetailsURL string
}

var datasourceInstance *Datasource
var datasourceOnce sync.Once

// GetDatasource returns the shared provider client
func GetDatasource() *Datasource {
	datasourceOnce.Do(func() {
		baseURL := "https://www.fotmob.com"
		datasourceInstance = &Datasource{
			BaseURL:         baseURL,
			LeaguesURL:      fmt.Sprintf("%s/api/leagues?", baseURL),
			TeamsURL:        fmt.Sprintf("%s/api/teams?", baseURL),
			MatchDetailsURL: fmt.Sprintf("%s/api/matchDetails?", baseURL),
		}
	})
	return datasourceInstance
}

/////////////////////////////////////////////////////////////////////////
////// Caching
/////////////////////////////////////////////////////////////////////////

// fetchJSON returns the parsed payload for the url, reading the named cache
// file when present. Durable entries never expire; volatile entries are
// refreshed once their file is older than a day.
func (ds *Datasource) fetchJSON(url, cacheName string, durable bool) (map[string]any, error) {
	cacheFile := filepath.Join(Config.CachePath, cacheName)

	if info, err := os.Stat(cacheFile); err == nil {
		fresh := durable || time.Since(info.ModTime()) < 24*time.Hour
		if fresh {
			data, err := os.ReadFile(cacheFile)
			if err == nil {
				var payload map[string]any
				if err := json.Unmarshal(data, &payload); err == nil {
					logger.Debug("Loaded from cache", cacheName)
					return payload, nil
				}
				logger.Warn("Corrupt cache file, refetching", cacheFile)
			}
		}
	}

	var payload map[string]any
	if err := transport.GetJSON(url, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if err := os.MkdirAll(Config.CachePath, 0755); err == nil {
		if data, err := json.Marshal(payload); err == nil {
			if err := os.WriteFile(cacheFile, data, 0644); err != nil {
				logger.Warn("Failed to write cache file", cacheFile, err)
			}
		}
	}
	return payload, nil
}

// getLeaguePageData is the fallback path for league data: fetch the
// provider's HTML page and extract the embedded bootstrap JSON
func (ds *Datasource) getLeaguePageData(leagueID int) (map[string]any, error) {
	url := fmt.Sprintf("%s/leagues/%d/matches", ds.BaseURL, leagueID)
	html, err := transport.GetHtml(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch league page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse league page: %w", err)
	}

	script := doc.Find("script#__NEXT_DATA__").First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("no bootstrap data found in league page for league %d", leagueID)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		return nil, fmt.Errorf("failed to parse bootstrap data: %w", err)
	}

	props, ok := data["props"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("could not find 'props' in bootstrap data")
	}
	pageProps, ok := props["pageProps"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("could not find 'pageProps' in props")
	}
	return pageProps, nil
}

/////////////////////////////////////////////////////////////////////////
////// Fixtures and results
/////////////////////////////////////////////////////////////////////////

// GetUpcomingFixtures returns unplayed fixtures for the configured leagues
// kicking off within the next `days` days
func (ds *Datasource) GetUpcomingFixtures(days int) ([]*MatchRecord, error) {
	horizon := time.Now().AddDate(0, 0, days)
	var fixtures []*MatchRecord

	for _, leagueID := range Config.Leagues {
		url := fmt.Sprintf("%sid=%d&tab=matches", ds.LeaguesURL, leagueID)
		cacheName := fmt.Sprintf("league-%d-matches.json", leagueID)

		payload, err := ds.fetchJSON(url, cacheName, false)
		if err != nil {
			logger.Warn("League fetch failed, trying page fallback", leagueID, err)
			payload, err = ds.getLeaguePageData(leagueID)
			if err != nil {
				logger.Error("Skipping league", leagueID, err)
				continue
			}
		}

		for _, raw := range extractMatchList(payload) {
			match := parseProviderMatch(raw, leagueID)
			if match == nil {
				continue
			}
			if match.HasResult() || match.UTCTime.Before(time.Now()) || match.UTCTime.After(horizon) {
				continue
			}
			fixtures = append(fixtures, match)
		}
	}

	sort.Slice(fixtures, func(i, j int) bool {
		return fixtures[i].UTCTime.Before(fixtures[j].UTCTime)
	})
	logger.Info("Fetched upcoming fixtures", len(fixtures))
	return fixtures, nil
}

// GetTeamMatches returns the team's finished matches, most recent first,
// persisting them for offline recomputation
func (ds *Datasource) GetTeamMatches(teamID string, limit int) ([]*MatchRecord, error) {
	url := fmt.Sprintf("%sid=%s", ds.TeamsURL, teamID)
	cacheName := fmt.Sprintf("team-%s.json", teamID)

	payload, err := ds.fetchJSON(url, cacheName, false)
	if err != nil {
		// provider unavailable, fall back to stored matches
		logger.Warn("Team fetch failed, using stored matches", teamID, err)
		return RecentMatchesForTeam(teamID, limit)
	}

	var matches []*MatchRecord
	for _, raw := range extractMatchList(payload) {
		match := parseProviderMatch(raw, -1)
		if match == nil || !match.HasResult() {
			continue
		}
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UTCTime.After(matches[j].UTCTime)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if err := SaveMatches(matches); err != nil {
		logger.Warn("Failed to persist team matches", teamID, err)
	}
	return matches, nil
}

// GetFixtureResult returns the final score of a fixture, ok=false while the
// match is unresolved
func (ds *Datasource) GetFixtureResult(fixtureID string) (homeGoals, awayGoals int, ok bool, err error) {
	url := fmt.Sprintf("%smatchId=%s", ds.MatchDetailsURL, fixtureID)
	cacheName := fmt.Sprintf("match-%s.json", fixtureID)

	payload, err := ds.fetchJSON(url, cacheName, true)
	if err != nil {
		return 0, 0, false, err
	}

	match := parseProviderMatch(payload, -1)
	if match == nil {
		return 0, 0, false, fmt.Errorf("unparseable match details for fixture %s", fixtureID)
	}
	h, a, scoreOk := match.ScoreFor(match.HomeID, ScoreTagFullTime)
	if !scoreOk {
		return 0, 0, false, nil
	}
	return h, a, true, nil
}

/////////////////////////////////////////////////////////////////////////
////// Provider payload parsing
/////////////////////////////////////////////////////////////////////////

// extractMatchList digs the match array out of the provider payload
// regardless of which endpoint shape delivered it
func extractMatchList(payload map[string]any) []map[string]any {
	var raw any

	if matches, ok := payload["matches"].(map[string]any); ok {
		raw = matches["allMatches"]
	}
	if raw == nil {
		if fixtures, ok := payload["fixtures"].(map[string]any); ok {
			if all, ok := fixtures["allFixtures"].(map[string]any); ok {
				raw = all["fixtures"]
			}
		}
	}
	if raw == nil {
		raw = payload["allMatches"]
	}
	if raw == nil {
		// match-details payloads hold a single match
		if _, ok := payload["general"]; ok {
			return []map[string]any{payload}
		}
		return nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// parseProviderMatch normalizes one provider match object into a
// MatchRecord with tagged score entries. Malformed objects return nil.
func parseProviderMatch(raw map[string]any, leagueID int) *MatchRecord {
	// match-details payloads nest the teams under "general"
	if general, ok := raw["general"].(map[string]any); ok {
		merged := make(map[string]any, len(raw)+len(general))
		for k, v := range raw {
			merged[k] = v
		}
		for k, v := range general {
			merged[k] = v
		}
		raw = merged
	}

	match := NewMatchRecord()
	match.ID = asString(raw["id"])
	if match.ID == "" {
		match.ID = asString(raw["matchId"])
	}
	if match.ID == "" {
		logger.Debug("Skipping provider match without id")
		return nil
	}
	match.LeagueID = leagueID
	if lid, ok := asInt(raw["leagueId"]); ok {
		match.LeagueID = lid
	}

	home, homeOk := raw["home"].(map[string]any)
	away, awayOk := raw["away"].(map[string]any)
	if homeOk {
		match.HomeID = asString(home["id"])
		match.HomeTeamName = asString(home["name"])
	}
	if awayOk {
		match.AwayID = asString(away["id"])
		match.AwayTeamName = asString(away["name"])
	}
	if match.HomeID == "" || match.AwayID == "" {
		logger.Debug("Skipping provider match without teams", match.ID)
		return nil
	}

	status, _ := raw["status"].(map[string]any)
	if status != nil {
		if utc := asString(status["utcTime"]); utc != "" {
			if t, err := time.Parse(time.RFC3339, utc); err == nil {
				match.UTCTime = t.UTC()
			}
		}
		finished, _ := status["finished"].(bool)
		if finished {
			match.Status = "finished"
			if h, a, ok := parseScoreString(asString(status["scoreStr"])); ok {
				match.Scores = append(match.Scores, MatchScore{
					Description: ScoreTagFullTime,
					Home:        &h,
					Away:        &a,
				})
			}
			if h, a, ok := parseScoreString(asString(status["halfTimeScoreStr"])); ok {
				match.Scores = append(match.Scores, MatchScore{
					Description: ScoreTagHalfTime,
					Home:        &h,
					Away:        &a,
				})
			}
		} else {
			match.Status = "scheduled"
		}
	}

	return match
}

// parseScoreString parses a provider score string like "2 - 1"
func parseScoreString(s string) (home, away int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	a, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return h, a, true
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatInt(int64(s), 10)
	default:
		return ""
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
