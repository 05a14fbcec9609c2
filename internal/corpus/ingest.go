package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"interlinked/internal/logging"
)

// funcDefPattern matches the opening line of a C function definition:
// a return type, a name, an argument list, not terminated by a semicolon.
var funcDefPattern = regexp.MustCompile(`^\s*(?:static\s+|inline\s+|extern\s+)*[A-Za-z_][A-Za-z0-9_]*(?:\s*\*+|\s+)\s*([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*$`)

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"return": true, "sizeof": true, "else": true, "do": true,
}

// codeFileExtensions are the source files the tree indexer walks.
var codeFileExtensions = map[string]bool{
	".c": true, ".h": true, ".cc": true, ".cpp": true, ".hpp": true,
}

// embedBatchSize is how many entities are embedded per API call.
const embedBatchSize = 32

// ExtractFunctions pulls function-level entities out of a C source file
// by brace tracking. Line numbers are 1-based and inclusive.
func ExtractFunctions(path string, source []byte) []CodeRecord {
	lines := strings.Split(string(source), "\n")
	var out []CodeRecord

	for i := 0; i < len(lines); i++ {
		m := funcDefPattern.FindStringSubmatch(lines[i])
		if m == nil || controlKeywords[m[1]] {
			continue
		}

		// Find the opening brace within the next few lines; a prototype
		// or macro invocation never has one.
		depth := 0
		started := false
		end := -1
		for j := i; j < len(lines); j++ {
			for _, ch := range lines[j] {
				switch ch {
				case '{':
					depth++
					started = true
				case '}':
					depth--
				case ';':
					if !started {
						depth = -1
					}
				}
			}
			if depth < 0 {
				break
			}
			if started && depth == 0 {
				end = j
				break
			}
			if !started && j > i+3 {
				break
			}
		}
		if end < 0 {
			continue
		}

		out = append(out, CodeRecord{
			Name:      m[1],
			File:      path,
			StartLine: i + 1,
			EndLine:   end + 1,
			Content:   strings.Join(lines[i:end+1], "\n"),
		})
		i = end
	}
	return out
}

// IndexCodeTree walks root, extracts function entities from every C-family
// source file, embeds them in batches, and stores them. Returns the number
// of entities indexed.
func (s *Store) IndexCodeTree(ctx context.Context, root string) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "IndexCodeTree")
	defer timer.Stop()

	var pending []CodeRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !codeFileExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		source, err := os.ReadFile(path)
		if err != nil {
			logging.StoreDebug("Skipping unreadable file %s: %v", path, err)
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		pending = append(pending, ExtractFunctions(filepath.ToSlash(rel), source)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk code tree: %w", err)
	}

	logging.Store("Extracted %d code entities from %s", len(pending), root)

	if err := s.storeCodeBatches(ctx, pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// storeCodeBatches embeds records in concurrent batches, then inserts
// serially. SQLite has a single writer so only the embedding overlaps.
func (s *Store) storeCodeBatches(ctx context.Context, recs []CodeRecord) error {
	vecs := make([][]float32, len(recs))

	if s.engine != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for start := 0; start < len(recs); start += embedBatchSize {
			end := start + embedBatchSize
			if end > len(recs) {
				end = len(recs)
			}
			start, end := start, end
			g.Go(func() error {
				texts := make([]string, end-start)
				for i, r := range recs[start:end] {
					texts[i] = r.Content
				}
				batch, err := s.engine.EmbedBatch(gctx, texts)
				if err != nil {
					return fmt.Errorf("failed to embed batch: %w", err)
				}
				copy(vecs[start:end], batch)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for i, rec := range recs {
		if err := s.InsertCodeWithEmbedding(ctx, rec, vecs[i]); err != nil {
			return err
		}
	}
	return nil
}

// issueLine is the JSONL wire shape for issue imports.
type issueLine struct {
	IssueID     string `json:"issue_id"`
	Component   string `json:"component"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// IndexIssuesJSONL imports issue reports from a JSONL file, one issue per
// line. Issues without content get a reconstructed content block so the
// similarity search still has text to embed.
func (s *Store) IndexIssuesJSONL(ctx context.Context, path string) (int, error) {
	timer := logging.StartTimer(logging.CategoryStore, "IndexIssuesJSONL")
	defer timer.Stop()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open issues file: %w", err)
	}
	defer f.Close()

	var pending []IssueRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var il issueLine
		if err := json.Unmarshal([]byte(line), &il); err != nil {
			logging.StoreDebug("Skipping malformed issue line %d: %v", lineNo, err)
			continue
		}
		if il.IssueID == "" {
			il.IssueID = fmt.Sprintf("%s:%d", filepath.Base(path), lineNo)
		}
		if il.Content == "" {
			il.Content = fmt.Sprintf("Issue: %s\nComponent: %s\nDescription: %s",
				il.Title, il.Component, il.Description)
		}
		pending = append(pending, IssueRecord{
			IssueID:     il.IssueID,
			Component:   il.Component,
			Title:       il.Title,
			Description: il.Description,
			Content:     il.Content,
		})
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read issues file: %w", err)
	}

	logging.Store("Parsed %d issues from %s", len(pending), path)

	for start := 0; start < len(pending); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		var vecs [][]float32
		if s.engine != nil {
			texts := make([]string, len(batch))
			for i, r := range batch {
				texts[i] = r.Content
			}
			vecs, err = s.engine.EmbedBatch(ctx, texts)
			if err != nil {
				return 0, fmt.Errorf("failed to embed issue batch: %w", err)
			}
		}
		for i, rec := range batch {
			var vec []float32
			if vecs != nil && i < len(vecs) {
				vec = vecs[i]
			}
			if err := s.InsertIssueWithEmbedding(ctx, rec, vec); err != nil {
				return 0, err
			}
		}
	}
	return len(pending), nil
}
