package momentum

// MatchCache holds the matches fetched for each team during a single
// prediction cycle. Each cycle creates its own cache and passes it down, so
// a team's matches are fetched once per cycle and two concurrent cycles
// never share state.
type MatchCache struct {
	ds      *Datasource
	matches map[string][]*MatchRecord
}

// NewMatchCache creates an empty cache backed by the given datasource
func NewMatchCache(ds *Datasource) *MatchCache {
	return &MatchCache{
		ds:      ds,
		matches: make(map[string][]*MatchRecord),
	}
}

// TeamMatches returns the team's recent finished matches, most recent
// first, fetching them on first use
func (c *MatchCache) TeamMatches(teamID string) ([]*MatchRecord, error) {
	if matches, ok := c.matches[teamID]; ok {
		return matches, nil
	}
	matches, err := c.ds.GetTeamMatches(teamID, Config.TeamMatchLimit)
	if err != nil {
		return nil, err
	}
	c.matches[teamID] = matches
	return matches, nil
}

// Len returns the number of teams held by the cache
func (c *MatchCache) Len() int {
	return len(c.matches)
}
