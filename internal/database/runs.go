package database

import (
	"github.com/scott-cmd11/ai-newsletter-automation/internal/newsletter"
)

// SaveRun archives the published items of one run, replacing any previous
// archive for the same run date.
func (db *DB) SaveRun(result *newsletter.RunResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_items WHERE run_date = ?", result.RunDate); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO run_items
		(run_date, section_key, position, title, url, summary, relevance, item_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, section := range result.Sections {
		for pos, item := range section.Items {
			var itemDate *string
			if item.Date != "" {
				itemDate = &item.Date
			}
			if _, err := stmt.Exec(result.RunDate, section.Key, pos,
				item.Title, item.URL, item.Summary, item.Relevance, itemDate); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetRunItems returns a run's archived items grouped by section key, each
// section in published order.
func (db *DB) GetRunItems(runDate string) (map[string][]newsletter.SummaryItem, error) {
	rows, err := db.conn.Query(`SELECT section_key, title, url, summary, relevance, item_date
		FROM run_items WHERE run_date = ? ORDER BY section_key, position`, runDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make(map[string][]newsletter.SummaryItem)
	for rows.Next() {
		var item newsletter.SummaryItem
		var itemDate *string
		if err := rows.Scan(&item.SectionKey, &item.Title, &item.URL,
			&item.Summary, &item.Relevance, &itemDate); err != nil {
			return nil, err
		}
		if itemDate != nil {
			item.Date = *itemDate
		}
		sections[item.SectionKey] = append(sections[item.SectionKey], item)
	}
	return sections, rows.Err()
}

// RunDates lists archived run dates, newest first.
func (db *DB) RunDates() ([]string, error) {
	rows, err := db.conn.Query("SELECT DISTINCT run_date FROM run_items ORDER BY run_date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
