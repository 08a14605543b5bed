package momentum

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/momentumfc/momentum/internal/logger"
)

// ExportPredictionsCSV writes every stored prediction to a CSV report at
// the given path, newest first
func ExportPredictionsCSV(path string) error {
	rows, err := FindWhere(&MatchPrediction{}, "1=1 ORDER BY match_date DESC")
	if err != nil {
		return fmt.Errorf("failed to load predictions for export: %w", err)
	}
	if len(rows) == 0 {
		logger.Info("No predictions to export")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Date", "Home", "Away", "League",
		"Home Win %", "Draw %", "Away Win %",
		fmt.Sprintf("Over %.1f %%", Config.PrimaryGoalLine),
		fmt.Sprintf("Under %.1f %%", Config.PrimaryGoalLine),
		"BTTS %", "HT Home Over 0.5 %", "HT Away Over 0.5 %",
		"Confidence", "Actual",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range rows {
		p, ok := row.(*MatchPrediction)
		if !ok {
			continue
		}
		actual := ""
		if p.Resolved() {
			actual = fmt.Sprintf("%d-%d", p.ActualHomeGoals, p.ActualAwayGoals)
		}
		record := []string{
			p.MatchDate.Format("2006-01-02 15:04"),
			p.HomeTeam,
			p.AwayTeam,
			strconv.Itoa(p.LeagueID),
			strconv.Itoa(p.HomeWinPct),
			strconv.Itoa(p.DrawPct),
			strconv.Itoa(p.AwayWinPct),
			strconv.Itoa(p.OverPrimaryPct),
			strconv.Itoa(p.UnderPrimaryPct),
			strconv.Itoa(p.BTTSPct),
			strconv.Itoa(p.HTHomeOver05Pct),
			strconv.Itoa(p.HTAwayOver05Pct),
			fmt.Sprintf("%.2f", p.ConfidenceScore),
			actual,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	logger.Info("Wrote prediction report", path, len(rows), "row(s)")
	return nil
}
