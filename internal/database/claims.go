package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
)

const claimColumns = `id, text, link, media_url, media_type, source, verdict, confidence,
	nlp_analysis, is_flagged, flag_notes, flagged_by, created_at, updated_at`

// InsertClaim stores a new claim. A missing ID or timestamp is filled in
// before the write, so the caller's struct reflects what was stored.
func (db *DB) InsertClaim(c *Claim) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Verdict == "" {
		c.Verdict = analysis.VerdictUnverified
	}

	nlp, err := json.Marshal(c.Analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}

	_, err = db.conn.Exec(
		`INSERT INTO claims (`+claimColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Text, c.Link, c.MediaURL, c.MediaType, c.Source, string(c.Verdict), c.Confidence,
		string(nlp), boolToInt(c.IsFlagged), c.FlagNotes, c.FlaggedBy,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting claim: %w", err)
	}
	return nil
}

// GetClaim returns a claim by ID, or nil if it does not exist.
func (db *DB) GetClaim(id string) (*Claim, error) {
	row := db.conn.QueryRow(`SELECT `+claimColumns+` FROM claims WHERE id = ?`, id)
	c, err := scanClaim(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// likeEscaper makes a search string match literally inside LIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListClaims returns claims matching the filter, most recent first.
func (db *DB) ListClaims(f ClaimFilter) ([]Claim, error) {
	var conds []string
	var args []any

	switch f.Status {
	case "", FilterAll:
	case FilterReal, FilterFake, FilterUnverified:
		conds = append(conds, "verdict = ?")
		args = append(args, f.Status)
	case FilterFlagged:
		conds = append(conds, "is_flagged = 1")
	default:
		return nil, fmt.Errorf("unknown filter %q", f.Status)
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, `(LOWER(text) LIKE ? ESCAPE '\' OR LOWER(link) LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// SetClaimFlag marks a claim for review. Returns nil if the claim does not exist.
func (db *DB) SetClaimFlag(id, notes, flaggedBy string) (*Claim, error) {
	return db.updateFlag(id, true, notes, flaggedBy)
}

// ClearClaimFlag removes the review flag. Returns nil if the claim does not exist.
func (db *DB) ClearClaimFlag(id string) (*Claim, error) {
	return db.updateFlag(id, false, "", "")
}

// updateFlag writes only the flag columns; the stored analysis is never touched.
func (db *DB) updateFlag(id string, flagged bool, notes, flaggedBy string) (*Claim, error) {
	res, err := db.conn.Exec(
		`UPDATE claims SET is_flagged = ?, flag_notes = ?, flagged_by = ?, updated_at = ? WHERE id = ?`,
		boolToInt(flagged), notes, flaggedBy, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return db.GetClaim(id)
}

// HasClaimForLink reports whether a claim with this link is already stored.
func (db *DB) HasClaimForLink(link string) (bool, error) {
	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM claims WHERE link = ?`, link).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetClaimStats returns verdict and flag counts plus the mean confidence.
func (db *DB) GetClaimStats() (*ClaimStats, error) {
	s := &ClaimStats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM claims", &s.Total},
		{"SELECT COUNT(*) FROM claims WHERE verdict = 'fake'", &s.Fake},
		{"SELECT COUNT(*) FROM claims WHERE verdict = 'real'", &s.Real},
		{"SELECT COUNT(*) FROM claims WHERE verdict = 'unverified'", &s.Unverified},
		{"SELECT COUNT(*) FROM claims WHERE is_flagged = 1", &s.Flagged},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	var avg float64
	if err := db.conn.QueryRow("SELECT COALESCE(AVG(confidence), 0) FROM claims").Scan(&avg); err != nil {
		return nil, err
	}
	s.AverageConfidence = analysis.Round2(avg)

	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*Claim, error) {
	var (
		c                    Claim
		verdict, nlp         string
		flagged              int
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.Text, &c.Link, &c.MediaURL, &c.MediaType, &c.Source, &verdict,
		&c.Confidence, &nlp, &flagged, &c.FlagNotes, &c.FlaggedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c.Verdict = analysis.Verdict(verdict)
	c.IsFlagged = flagged != 0
	if err := json.Unmarshal([]byte(nlp), &c.Analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis of claim %s: %w", c.ID, err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
