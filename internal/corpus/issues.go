package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"interlinked/internal/embedding"
	"interlinked/internal/logging"
)

// IssueRecord is one historical issue report.
type IssueRecord struct {
	ID          int64
	IssueID     string
	Component   string
	Title       string
	Description string
	Content     string
	Score       float64 // similarity against the query, set by search
}

// IssueFilter narrows a similarity search. Component matches exactly;
// Phrase is a substring pre-filter over the issue content.
type IssueFilter struct {
	Component string
	Phrase    string
}

// InsertIssue stores an issue report, embedding its content when an engine
// is configured. Re-inserting the same issue_id replaces the row.
func (s *Store) InsertIssue(ctx context.Context, rec IssueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embJSON any
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, rec.Content)
		if err != nil {
			return fmt.Errorf("failed to embed issue: %w", err)
		}
		data, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		embJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO issues (issue_id, component, title, description, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.IssueID, rec.Component, rec.Title, rec.Description, rec.Content, embJSON,
	)
	return err
}

// InsertIssueWithEmbedding stores an issue with a precomputed vector.
func (s *Store) InsertIssueWithEmbedding(ctx context.Context, rec IssueRecord, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embJSON any
	if vec != nil {
		data, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		embJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO issues (issue_id, component, title, description, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.IssueID, rec.Component, rec.Title, rec.Description, rec.Content, embJSON,
	)
	return err
}

// SimilaritySearchIssues ranks issues against the query text using cosine
// similarity, optionally restricted by filter. Falls back to keyword
// matching when no embedding engine is configured.
func (s *Store) SimilaritySearchIssues(ctx context.Context, query string, topK int, filter IssueFilter) ([]IssueRecord, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SimilaritySearchIssues")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 {
		topK = 8
	}

	where := []string{"1=1"}
	var args []interface{}
	if filter.Component != "" {
		where = append(where, "component = ?")
		args = append(args, filter.Component)
	}
	if filter.Phrase != "" {
		where = append(where, "(content LIKE ? OR title LIKE ?)")
		like := "%" + filter.Phrase + "%"
		args = append(args, like, like)
	}

	if s.engine == nil {
		return s.keywordSearchIssues(ctx, query, topK, where, args)
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, issue_id, component, title, description, content, embedding
		 FROM issues WHERE %s AND embedding IS NOT NULL`,
		strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []IssueRecord
	for rows.Next() {
		var rec IssueRecord
		var embJSON string
		if err := rows.Scan(&rec.ID, &rec.IssueID, &rec.Component, &rec.Title, &rec.Description, &rec.Content, &embJSON); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		rec.Score = sim
		candidates = append(candidates, rec)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, rows.Err()
}

func (s *Store) keywordSearchIssues(ctx context.Context, query string, topK int, where []string, args []interface{}) ([]IssueRecord, error) {
	for _, kw := range strings.Fields(strings.ToLower(query)) {
		where = append(where, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, issue_id, component, title, description, content
		 FROM issues WHERE %s ORDER BY created_at DESC LIMIT ?`,
		strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IssueRecord
	for rows.Next() {
		var rec IssueRecord
		if err := rows.Scan(&rec.ID, &rec.IssueID, &rec.Component, &rec.Title, &rec.Description, &rec.Content); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
