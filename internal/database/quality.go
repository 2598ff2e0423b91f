package database

import "fmt"

// Domain-level quality history. The quality package interprets these rows;
// this layer only stores and windows them.

// RecordScore stores one relevance score for a domain.
func (db *DB) RecordScore(domain string, score int) error {
	_, err := db.conn.Exec("INSERT INTO source_quality (domain, score) VALUES (?, ?)", domain, score)
	return err
}

// DomainScores returns the scores recorded for a domain within the last
// windowDays days.
func (db *DB) DomainScores(domain string, windowDays int) ([]int, error) {
	rows, err := db.conn.Query(
		`SELECT score FROM source_quality
		WHERE domain = ? AND recorded_at > datetime('now', ?)`,
		domain, windowModifier(windowDays),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// PruneScores deletes quality rows older than the window.
func (db *DB) PruneScores(windowDays int) error {
	_, err := db.conn.Exec(
		"DELETE FROM source_quality WHERE recorded_at <= datetime('now', ?)",
		windowModifier(windowDays),
	)
	return err
}

// RecordFeedback stores one reader rating ("up" or "down") for a URL's domain.
func (db *DB) RecordFeedback(domain, url, rating string) error {
	_, err := db.conn.Exec(
		"INSERT INTO feedback (domain, url, rating) VALUES (?, ?, ?)",
		domain, url, rating,
	)
	return err
}

// RecentDownvotes counts "down" ratings for a domain within the last
// windowDays days.
func (db *DB) RecentDownvotes(domain string, windowDays int) (int, error) {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM feedback
		WHERE domain = ? AND rating = 'down' AND recorded_at > datetime('now', ?)`,
		domain, windowModifier(windowDays),
	).Scan(&count)
	return count, err
}

// DomainAverages returns per-domain average score and sample count within the
// window, for the quality dashboard.
func (db *DB) DomainAverages(windowDays int) (map[string]DomainStat, error) {
	rows, err := db.conn.Query(
		`SELECT domain, AVG(score), COUNT(*) FROM source_quality
		WHERE recorded_at > datetime('now', ?) GROUP BY domain`,
		windowModifier(windowDays),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]DomainStat)
	for rows.Next() {
		var domain string
		var st DomainStat
		if err := rows.Scan(&domain, &st.AvgScore, &st.Count); err != nil {
			return nil, err
		}
		stats[domain] = st
	}
	return stats, rows.Err()
}

// DomainStat summarizes a domain's recent quality history.
type DomainStat struct {
	AvgScore float64 `json:"avg_score"`
	Count    int     `json:"count"`
	Boost    float64 `json:"boost"`
}

func windowModifier(days int) string {
	if days <= 0 {
		days = 90
	}
	// sqlite datetime modifier, e.g. "-90 days"
	return fmt.Sprintf("-%d days", days)
}
