package search

import (
	"context"
	"strings"

	"interlinked/internal/logging"
)

// descriptionMarker locates the description block inside a raw issue
// content blob when the structured field is empty.
const descriptionMarker = "Description:"

// IssueSearcher is the issue-corpus collaborator.
type IssueSearcher interface {
	SearchIssues(ctx context.Context, query string, topK int, component, phrase string) ([]IssueHit, error)
}

// RetrieveIssues is a thin pass-through to the issue store with optional
// component and phrase filters. No fuzzy escalation on this path; the
// issue corpus is small and its text is prose, not brittle identifiers.
func RetrieveIssues(ctx context.Context, s IssueSearcher, query string, topK int, component, phrase string) []IssueHit {
	if topK <= 0 {
		topK = 8
	}
	hits, err := s.SearchIssues(ctx, query, topK, component, phrase)
	if err != nil {
		logging.RetrievalDebug("Issue retrieval failed for %q: %v", query, err)
		return nil
	}
	return hits
}

// ReconstructDescription recovers a description from a raw content blob
// when the structured field is empty, by scanning for the marker line.
// Collaborators that store only a content blob call this while adapting
// their records into IssueHit values.
func ReconstructDescription(description, content string) string {
	if strings.TrimSpace(description) != "" {
		return description
	}
	idx := strings.Index(content, descriptionMarker)
	if idx < 0 {
		return description
	}
	return strings.TrimSpace(content[idx+len(descriptionMarker):])
}
