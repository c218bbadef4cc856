package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/petwatch/petition"
)

const timeLayout = time.RFC3339

const petitionColumns = `source, external_id, number, title, date, date_normalized,
	status, votes, votes_previous, url, author, text_length, has_answer,
	crawled_at, updated_at`

// Insert adds a freshly discovered petition. CrawledAt and UpdatedAt are set
// to now when zero.
func (s *Store) Insert(ctx context.Context, p *Petition) error {
	now := time.Now().UTC()
	if p.CrawledAt.IsZero() {
		p.CrawledAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO petitions (`+petitionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Source, p.ExternalID, nullString(p.Number), p.Title,
		nullString(p.RawDate), nullString(p.Date), p.Status, p.Votes,
		p.VotesPrevious, p.URL, p.Author, p.TextLength, p.HasAnswer,
		p.CrawledAt.Format(timeLayout), p.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: insert petition %s/%s: %w", p.Source, p.ExternalID, err)
	}
	return nil
}

// Get returns one petition, or nil when it is not tracked.
func (s *Store) Get(ctx context.Context, source petition.Source, externalID string) (*Petition, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+petitionColumns+` FROM petitions
		WHERE source = ? AND external_id = ?`, source, externalID)
	p, err := scanPetition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get petition %s/%s: %w", source, externalID, err)
	}
	return p, nil
}

// Exists reports whether a petition is already tracked.
func (s *Store) Exists(ctx context.Context, source petition.Source, externalID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM petitions WHERE source = ? AND external_id = ?`,
		source, externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists %s/%s: %w", source, externalID, err)
	}
	return true, nil
}

// Active returns all petitions of a source still collecting signatures.
// startID/endID bound the numeric external identifier range; 0 means
// unbounded on that side.
func (s *Store) Active(ctx context.Context, source petition.Source, startID, endID int) ([]Petition, error) {
	q := `SELECT ` + petitionColumns + ` FROM petitions
		WHERE source = ? AND status = ?`
	args := []any{source, petition.StatusCollecting}
	if startID > 0 {
		q += ` AND CAST(external_id AS INTEGER) >= ?`
		args = append(args, startID)
	}
	if endID > 0 {
		q += ` AND CAST(external_id AS INTEGER) <= ?`
		args = append(args, endID)
	}
	q += ` ORDER BY CAST(external_id AS INTEGER)`
	return s.queryPetitions(ctx, q, args...)
}

// UpdateVotes applies a reconcile result: votes, previous votes, status,
// text length, and the mutation timestamp.
func (s *Store) UpdateVotes(ctx context.Context, source petition.Source, externalID string, votes int, previous *int, status petition.Status, textLength *int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE petitions
		SET votes = ?, votes_previous = ?, status = ?, text_length = ?, updated_at = ?
		WHERE source = ? AND external_id = ?`,
		votes, previous, status, textLength,
		time.Now().UTC().Format(timeLayout), source, externalID)
	if err != nil {
		return fmt.Errorf("store: update votes %s/%s: %w", source, externalID, err)
	}
	return nil
}

// UpdateVotesOnly bumps votes and votes_previous without touching status or
// text length. The bulk path uses it: the snapshot API's status strings are
// not trusted to overwrite what a detail fetch recorded.
func (s *Store) UpdateVotesOnly(ctx context.Context, source petition.Source, externalID string, votes int, previous int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE petitions SET votes = ?, votes_previous = ?, updated_at = ?
		WHERE source = ? AND external_id = ?`,
		votes, previous, time.Now().UTC().Format(timeLayout), source, externalID)
	if err != nil {
		return fmt.Errorf("store: update votes only %s/%s: %w", source, externalID, err)
	}
	return nil
}

// MarkNotFound marks a petition dead in place. Votes are left untouched.
func (s *Store) MarkNotFound(ctx context.Context, source petition.Source, externalID string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE petitions SET status = ?, updated_at = ?
		WHERE source = ? AND external_id = ?`,
		petition.StatusNotFound, time.Now().UTC().Format(timeLayout), source, externalID)
	if err != nil {
		return fmt.Errorf("store: mark not found %s/%s: %w", source, externalID, err)
	}
	return nil
}

// VotesBySource returns external_id → votes for every petition of a source.
// The bulk sync path uses it to tell inserts from updates in one pass.
func (s *Store) VotesBySource(ctx context.Context, source petition.Source) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT external_id, votes FROM petitions WHERE source = ?`, source)
	if err != nil {
		return nil, fmt.Errorf("store: votes by source %s: %w", source, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var votes int
		if err := rows.Scan(&id, &votes); err != nil {
			return nil, err
		}
		out[id] = votes
	}
	return out, rows.Err()
}

// CountSource returns how many petitions a source has.
func (s *Store) CountSource(ctx context.Context, source petition.Source) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM petitions WHERE source = ?`, source).Scan(&n)
	return n, err
}

// CountStatus returns how many petitions carry a status, across all sources.
func (s *Store) CountStatus(ctx context.Context, status petition.Status) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM petitions WHERE status = ?`, status).Scan(&n)
	return n, err
}

// CountActiveZeroVotes counts collecting petitions with zero votes; any such
// row after a sync points at a broken extractor.
func (s *Store) CountActiveZeroVotes(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM petitions WHERE status = ? AND votes = 0`,
		petition.StatusCollecting).Scan(&n)
	return n, err
}

// TopActiveByVotes returns the n most-signed collecting petitions of a source.
func (s *Store) TopActiveByVotes(ctx context.Context, source petition.Source, n int) ([]Petition, error) {
	return s.queryPetitions(ctx, `
		SELECT `+petitionColumns+` FROM petitions
		WHERE source = ? AND status = ?
		ORDER BY votes DESC LIMIT ?`, source, petition.StatusCollecting, n)
}

// RandomByStatus returns up to n random petitions of a source with a status.
// The pre-flight gate uses it to draw marker records.
func (s *Store) RandomByStatus(ctx context.Context, source petition.Source, status petition.Status, n int) ([]Petition, error) {
	return s.queryPetitions(ctx, `
		SELECT `+petitionColumns+` FROM petitions
		WHERE source = ? AND status = ?
		ORDER BY RANDOM() LIMIT ?`, source, status, n)
}

// TopByVotes returns the n most-signed petitions of a source, any status.
func (s *Store) TopByVotes(ctx context.Context, source petition.Source, n int) ([]Petition, error) {
	return s.queryPetitions(ctx, `
		SELECT `+petitionColumns+` FROM petitions
		WHERE source = ?
		ORDER BY votes DESC LIMIT ?`, source, n)
}

func (s *Store) queryPetitions(ctx context.Context, q string, args ...any) ([]Petition, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query petitions: %w", err)
	}
	defer rows.Close()

	var out []Petition
	for rows.Next() {
		p, err := scanPetition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPetition(row scanner) (*Petition, error) {
	var p Petition
	var number, rawDate, date, crawledAt, updatedAt sql.NullString
	err := row.Scan(&p.Source, &p.ExternalID, &number, &p.Title, &rawDate, &date,
		&p.Status, &p.Votes, &p.VotesPrevious, &p.URL, &p.Author, &p.TextLength,
		&p.HasAnswer, &crawledAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Number = number.String
	p.RawDate = rawDate.String
	p.Date = date.String
	p.CrawledAt, _ = time.Parse(timeLayout, crawledAt.String)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt.String)
	return &p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
