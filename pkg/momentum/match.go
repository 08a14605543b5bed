package momentum

import (
	"fmt"
	"reflect"
	"time"

	"github.com/momentumfc/momentum/internal/logger"
)

// Compile-time check to ensure MatchRecord implements Persistable interface
var _ Persistable = (*MatchRecord)(nil)

// Score entry tags used by the provider
const (
	ScoreTagFullTime = "CURRENT"
	ScoreTagHalfTime = "HT"
)

// MatchScore is one tagged score entry from the provider. Goal counts are
// pointers so absent or null values are distinguishable from zero.
type MatchScore struct {
	Description string `json:"description"`
	Home        *int   `json:"home"`
	Away        *int   `json:"away"`
}

// MatchRecord represents a football match with database persistence and JSON
// processing annotations. Numeric fields default to -1 meaning unset.
type MatchRecord struct {
	// Primary key
	ID string `json:"id" column:"id" dbtype:"TEXT" primary:"true" index:"true"`
	// Info
	UTCTime  time.Time `json:"utcTime" column:"utcTime" dbtype:"DATETIME" index:"true"`
	LeagueID int       `json:"leagueId" column:"leagueId" dbtype:"INTEGER DEFAULT -1" index:"true"`
	Status   string    `json:"status" column:"status" dbtype:"TEXT"` // "finished", "scheduled", "cancelled", etc.

	// Teams
	HomeTeamName string `json:"homeName" column:"homeTeamName" dbtype:"TEXT NOT NULL"`
	AwayTeamName string `json:"awayName" column:"awayTeamName" dbtype:"TEXT NOT NULL"`
	HomeID       string `json:"homeId" column:"homeId" dbtype:"TEXT NOT NULL" index:"true"`
	AwayID       string `json:"awayId" column:"awayId" dbtype:"TEXT NOT NULL" index:"true"`

	// Flattened score data
	HomeGoals         int `json:"homeGoals" column:"homeGoals" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals         int `json:"awayGoals" column:"awayGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeHomeGoals int `json:"halfTimeHomeGoals" column:"halfTimeHomeGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeAwayGoals int `json:"halfTimeAwayGoals" column:"halfTimeAwayGoals" dbtype:"INTEGER DEFAULT -1"`

	// Raw tagged entries as delivered by the provider, flattened on save
	Scores []MatchScore `json:"scores,omitempty" db:"-"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

// NewMatchRecord creates a MatchRecord with unset numeric fields at -1
func NewMatchRecord() *MatchRecord {
	return &MatchRecord{
		LeagueID:          -1,
		HomeGoals:         -1,
		AwayGoals:         -1,
		HalfTimeHomeGoals: -1,
		HalfTimeAwayGoals: -1,
	}
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetPrimaryKey returns the primary key as a map
func (m *MatchRecord) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"id": m.ID,
	}
}

// SetPrimaryKey sets the primary key from a map
func (m *MatchRecord) SetPrimaryKey(pk map[string]interface{}) error {
	if id, ok := pk["id"]; ok {
		if idStr, ok := id.(string); ok {
			m.ID = idStr
			return nil
		}
		return fmt.Errorf("primary key 'id' must be a string")
	}
	return fmt.Errorf("primary key 'id' not found")
}

// GetTableName returns the table name for matches
func (m *MatchRecord) GetTableName() string {
	return "matches"
}

// BeforeSave flattens tagged score entries into the persisted columns and
// stamps timestamps
func (m *MatchRecord) BeforeSave() error {
	m.flattenScores()

	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return nil
}

func (m *MatchRecord) AfterSave() error    { return nil }
func (m *MatchRecord) BeforeDelete() error { return nil }
func (m *MatchRecord) AfterDelete() error  { return nil }

/////////////////////////////////////////////////////////////////////////
////// Score extraction
/////////////////////////////////////////////////////////////////////////

// flattenScores copies complete tagged entries into the flat goal columns
func (m *MatchRecord) flattenScores() {
	if entry := m.scoreEntry(ScoreTagFullTime); entry != nil {
		m.HomeGoals = *entry.Home
		m.AwayGoals = *entry.Away
	}
	if entry := m.scoreEntry(ScoreTagHalfTime); entry != nil {
		m.HalfTimeHomeGoals = *entry.Home
		m.HalfTimeAwayGoals = *entry.Away
	}
}

// scoreEntry returns the first complete entry carrying the given tag, or nil
func (m *MatchRecord) scoreEntry(tag string) *MatchScore {
	for i := range m.Scores {
		entry := &m.Scores[i]
		if entry.Description != tag {
			continue
		}
		if entry.Home == nil || entry.Away == nil {
			logger.Debug("Score entry has null goals, treating as absent", m.ID, tag)
			return nil
		}
		return entry
	}
	return nil
}

// ScoreFor returns the goals scored and conceded by the given team for the
// tagged score line. ok is false when the tag is absent, a goal count is
// null, or the team did not take part in this match.
func (m *MatchRecord) ScoreFor(teamID string, tag string) (scored int, conceded int, ok bool) {
	var home, away int

	if entry := m.scoreEntry(tag); entry != nil {
		home, away = *entry.Home, *entry.Away
	} else {
		// fall back to the flattened columns for records loaded from storage
		switch tag {
		case ScoreTagFullTime:
			home, away = m.HomeGoals, m.AwayGoals
		case ScoreTagHalfTime:
			home, away = m.HalfTimeHomeGoals, m.HalfTimeAwayGoals
		default:
			return 0, 0, false
		}
		if home < 0 || away < 0 {
			return 0, 0, false
		}
	}

	switch teamID {
	case m.HomeID:
		return home, away, true
	case m.AwayID:
		return away, home, true
	default:
		logger.Debug("Team not part of match", teamID, m.ID)
		return 0, 0, false
	}
}

// WasHome reports whether the given team played this match at home
func (m *MatchRecord) WasHome(teamID string) bool {
	return teamID == m.HomeID
}

// HasResult reports whether a full-time score is available
func (m *MatchRecord) HasResult() bool {
	if m.scoreEntry(ScoreTagFullTime) != nil {
		return true
	}
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// Played reports whether the match kicked off in the past
func (m *MatchRecord) Played() bool {
	return !m.UTCTime.IsZero() && m.UTCTime.Before(time.Now())
}

/////////////////////////////////////////////////////////////////////////
////// Merging and persistence helpers
/////////////////////////////////////////////////////////////////////////

// Merge copies set values from other into this record, leaving -1 and empty
// fields untouched
func (m *MatchRecord) Merge(other *MatchRecord) {
	if other == nil || m.ID != other.ID {
		return
	}

	mv := reflect.ValueOf(m).Elem()
	ov := reflect.ValueOf(other).Elem()
	mt := mv.Type()

	for i := 0; i < mt.NumField(); i++ {
		field := mt.Field(i)
		if !field.IsExported() {
			continue
		}
		src := ov.Field(i)
		dst := mv.Field(i)

		switch src.Kind() {
		case reflect.Int:
			if src.Int() != -1 {
				dst.SetInt(src.Int())
			}
		case reflect.String:
			if src.String() != "" {
				dst.SetString(src.String())
			}
		case reflect.Slice:
			if src.Len() > 0 {
				dst.Set(src)
			}
		case reflect.Struct:
			if field.Type == reflect.TypeOf(time.Time{}) {
				t := src.Interface().(time.Time)
				if !t.IsZero() {
					dst.Set(src)
				}
			}
		}
	}
}

// SaveMatches persists the given matches, merging into any stored rows
func SaveMatches(matches []*MatchRecord) error {
	var objects []Persistable
	for _, match := range matches {
		if match.ID == "" {
			logger.Warn("Skipping match with no id", match.HomeTeamName, match.AwayTeamName)
			continue
		}
		existing := NewMatchRecord()
		existing.ID = match.ID
		if err := FindByPrimaryKey(existing, existing.GetPrimaryKey()); err == nil {
			existing.Merge(match)
			objects = append(objects, existing)
		} else {
			objects = append(objects, match)
		}
	}
	if len(objects) == 0 {
		return nil
	}
	return BulkSave(objects)
}

// RecentMatchesForTeam returns stored finished matches involving the team,
// most recent first
func RecentMatchesForTeam(teamID string, limit int) ([]*MatchRecord, error) {
	rows, err := FindWhere(NewMatchRecord(),
		"(homeId = ? OR awayId = ?) AND homeGoals >= 0 AND awayGoals >= 0 ORDER BY utcTime DESC LIMIT ?",
		teamID, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches for team %s: %w", teamID, err)
	}
	var matches []*MatchRecord
	for _, row := range rows {
		if match, ok := row.(*MatchRecord); ok {
			matches = append(matches, match)
		}
	}
	return matches, nil
}
