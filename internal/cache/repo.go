package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/xo/internal/models"
)

// PutDigest inserts or replaces the digest recorded for path.
func (s *Store) PutDigest(path, digest string) error {
	_, err := s.conn.Exec(`
		INSERT INTO digests (path, digest, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			digest     = excluded.digest,
			updated_at = excluded.updated_at
	`, path, digest, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: put digest: %w", err)
	}
	return nil
}

// GetDigest returns the stored digest for path, or empty string if not found.
func (s *Store) GetDigest(path string) (string, error) {
	var dg string
	err := s.conn.QueryRow(`SELECT digest FROM digests WHERE path = ?`, path).Scan(&dg)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache: get digest: %w", err)
	}
	return dg, nil
}

// AllDigests returns every stored path → digest pair.
func (s *Store) AllDigests() (map[string]string, error) {
	rows, err := s.conn.Query(`SELECT path, digest FROM digests`)
	if err != nil {
		return nil, fmt.Errorf("cache: all digests: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, dg string
		if err := rows.Scan(&p, &dg); err != nil {
			return nil, err
		}
		out[p] = dg
	}
	return out, rows.Err()
}

// ReplaceEdges replaces every edge of document within one transaction.
func (s *Store) ReplaceEdges(document string, deps []models.Dependency) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM edges WHERE document = ?`, document); err != nil {
		return fmt.Errorf("cache: clear edges: %w", err)
	}
	if len(deps) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO edges (document, resource, resolved, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("cache: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for i, d := range deps {
			if _, err := stmt.Exec(document, d.Path, d.Resolved, i); err != nil {
				return fmt.Errorf("cache: insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes every edge of document and its digest.
func (s *Store) DeleteDocument(document string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM edges WHERE document = ?`, document); err != nil {
		return fmt.Errorf("cache: delete edges: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM digests WHERE path = ?`, document); err != nil {
		return fmt.Errorf("cache: delete digest: %w", err)
	}
	return tx.Commit()
}

// AllEdges returns the dependency list of every document, in recorded order.
func (s *Store) AllEdges() (map[string][]models.Dependency, error) {
	rows, err := s.conn.Query(`SELECT document, resource, resolved FROM edges ORDER BY document, position`)
	if err != nil {
		return nil, fmt.Errorf("cache: all edges: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.Dependency)
	for rows.Next() {
		var doc string
		var d models.Dependency
		if err := rows.Scan(&doc, &d.Path, &d.Resolved); err != nil {
			return nil, err
		}
		out[doc] = append(out[doc], d)
	}
	return out, rows.Err()
}
