package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"interlinked/internal/embedding"
	"interlinked/internal/logging"
)

// CodeRecord is one indexed code entity.
type CodeRecord struct {
	ID         int64
	Name       string
	File       string
	StartLine  int
	EndLine    int
	Content    string
	Similarity float64 // set by vector search, 0 otherwise
}

// Key returns the deduplication identity of a record.
func (r CodeRecord) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s", r.File, r.StartLine, r.EndLine, r.Name)
}

// InsertCode stores a code entity, embedding its content when an engine is
// configured. Re-inserting the same (file, span, name) replaces the row.
func (s *Store) InsertCode(ctx context.Context, rec CodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embJSON any
	if s.engine != nil {
		vec, err := s.engine.Embed(ctx, rec.Content)
		if err != nil {
			return fmt.Errorf("failed to embed code entity: %w", err)
		}
		data, err := json.Marshal(vec)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		embJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO code_entities (name, file, start_line, end_line, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.File, rec.StartLine, rec.EndLine, rec.Content, embJSON,
	)
	return err
}

// InsertCodeWithEmbedding stores a code entity with a precomputed vector.
// Used by the batch indexer, which embeds in batches for throughput.
func (s *Store) InsertCodeWithEmbedding(ctx context.Context, rec CodeRecord, vec []float32) error {
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
		`INSERT OR REPLACE INTO code_entities (name, file, start_line, end_line, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.File, rec.StartLine, rec.EndLine, rec.Content, embJSON,
	)
	return err
}

// FilteredScanCode pages through code entities whose content, name, or file
// contains the phrase. Returns the page and the offset token for the next
// page (0 when exhausted).
func (s *Store) FilteredScanCode(ctx context.Context, phrase string, pageSize int, afterID int64) ([]CodeRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pageSize <= 0 {
		pageSize = 200
	}
	like := "%" + phrase + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, file, start_line, end_line, content
		 FROM code_entities
		 WHERE id > ? AND (content LIKE ? OR name LIKE ? OR file LIKE ?)
		 ORDER BY id LIMIT ?`,
		afterID, like, like, like, pageSize,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []CodeRecord
	var lastID int64
	for rows.Next() {
		var rec CodeRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.File, &rec.StartLine, &rec.EndLine, &rec.Content); err != nil {
			continue
		}
		lastID = rec.ID
		out = append(out, rec)
	}
	if len(out) < pageSize {
		lastID = 0 // exhausted
	}
	return out, lastID, rows.Err()
}

// VectorSearchCode performs semantic search over code entities using cosine
// similarity. Falls back to keyword matching when no engine is configured.
func (s *Store) VectorSearchCode(ctx context.Context, query string, limit int) ([]CodeRecord, error) {
	timer := logging.StartTimer(logging.CategoryStore, "VectorSearchCode")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	if s.engine == nil {
		return s.keywordSearchCode(ctx, query, limit)
	}

	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, file, start_line, end_line, content, embedding
		 FROM code_entities WHERE embedding IS NOT NULL`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []CodeRecord
	for rows.Next() {
		var rec CodeRecord
		var embJSON string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.File, &rec.StartLine, &rec.EndLine, &rec.Content, &embJSON); err != nil {
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
		rec.Similarity = sim
		candidates = append(candidates, rec)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, rows.Err()
}

// keywordSearchCode is the fallback when no embedding engine is set.
func (s *Store) keywordSearchCode(ctx context.Context, query string, limit int) ([]CodeRecord, error) {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, kw := range keywords {
		conditions = append(conditions, "LOWER(content) LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, name, file, start_line, end_line, content
		 FROM code_entities WHERE %s ORDER BY created_at DESC LIMIT ?`,
		strings.Join(conditions, " OR ")), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CodeRecord
	for rows.Next() {
		var rec CodeRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.File, &rec.StartLine, &rec.EndLine, &rec.Content); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// HybridSearchCode implements the corpus hybrid contract: a filtered scan
// with client-side word-boundary validation first, escalating to vector
// search only when the scan yields fewer than limit results.
func (s *Store) HybridSearchCode(ctx context.Context, phrase string, limit int) ([]CodeRecord, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 30
	}

	logging.RetrievalDebug("Hybrid corpus search: phrase=%q limit=%d", phrase, limit)

	wordPat, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
	if err != nil {
		return nil, err
	}
	pathPat := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))

	seen := make(map[string]bool)
	var hits []CodeRecord

	var afterID int64
	for len(hits) < limit {
		page, next, err := s.FilteredScanCode(ctx, phrase, 200, afterID)
		if err != nil {
			return nil, err
		}
		for _, rec := range page {
			ok := wordPat.MatchString(rec.Content) ||
				wordPat.MatchString(rec.Name) ||
				pathPat.MatchString(rec.File)
			if !ok || seen[rec.Key()] {
				continue
			}
			seen[rec.Key()] = true
			hits = append(hits, rec)
			if len(hits) >= limit {
				break
			}
		}
		if next == 0 || len(hits) >= limit {
			break
		}
		afterID = next
	}

	// Escalate only when semantic search is actually available; without an
	// engine the vector path degrades to the same keyword scan we just ran.
	if len(hits) < limit && s.engine != nil {
		vecLimit := limit
		if vecLimit < 10 {
			vecLimit = 10
		}
		// A failed escalation never discards the scan results.
		if sr, err := s.VectorSearchCode(ctx, phrase, vecLimit); err == nil {
			for _, rec := range sr {
				if seen[rec.Key()] {
					continue
				}
				seen[rec.Key()] = true
				hits = append(hits, rec)
				if len(hits) >= limit {
					break
				}
			}
		} else {
			logging.RetrievalDebug("Vector escalation failed for %q: %v", phrase, err)
		}
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
