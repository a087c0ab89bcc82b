// Package augment implements the tool augmentation pipeline: rewriting a
// raw user question into a context-enriched prompt using retrieved
// snippets, before the tutoring call begins.
//
// Augmentation is strictly best-effort. A retrieval failure is logged and
// the original question passes through unchanged - it must never block or
// corrupt the user's underlying question. The pipeline fully completes (or
// falls back) before the tutoring request starts; it is never interleaved
// with streaming.
package augment

import (
	"context"
	"fmt"
	"strings"

	"github.com/lewa0/lewa/internal/catalog"
	"github.com/lewa0/lewa/internal/log"
	"github.com/lewa0/lewa/internal/retrieval"
)

// Retriever is the slice of the retrieval client the pipeline needs.
type Retriever interface {
	Search(ctx context.Context, query string) ([]retrieval.Result, error)
	Announcements(ctx context.Context, query string) ([]retrieval.Result, error)
}

// Prompt templates. The bracketed section markers are part of the wire
// contract with the tutoring prompts and must not be reworded.
const (
	researcherTemplate = "[CONTEXT FROM WEB SEARCH]:\n%s\n\n[USER QUESTION]:\n%s\n\nPlease use the above context to answer the user's question."
	messengerTemplate  = "[CONTEXT FROM GCE ANNOUNCEMENTS]:\n%s\n\n[USER QUESTION]:\n%s\n\nPlease use the above announcements to answer the user's question about the GCE Board."
)

// Pipeline rewrites user questions according to the active tool.
type Pipeline struct {
	retriever Retriever
	logger    log.Logger
}

// New creates an augmentation pipeline.
func New(retriever Retriever, logger log.Logger) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Pipeline{retriever: retriever, logger: logger}, nil
}

// Rewrite produces the final question forwarded to the tutoring service.
//
// With no active tool (toolID == "") the content passes through untouched.
// A tool id without a client-side pipeline (including typos) also degrades
// to pass-through; it is logged at warn level so a misconfigured caller is
// diagnosable.
func (p *Pipeline) Rewrite(ctx context.Context, content, toolID string) string {
	switch toolID {
	case "":
		return content

	case catalog.ToolResearcher:
		results, err := p.retriever.Search(ctx, content)
		if err != nil {
			p.logger.Warn("research tool failed, proceeding without search results", "error", err)
			return content
		}
		return fmt.Sprintf(researcherTemplate, formatSnippets(results, false), content)

	case catalog.ToolMessenger:
		results, err := p.retriever.Announcements(ctx, content)
		if err != nil {
			p.logger.Warn("messenger tool failed, proceeding without announcements", "error", err)
			return content
		}
		return fmt.Sprintf(messengerTemplate, formatSnippets(results, true), content)

	default:
		p.logger.Warn("unrecognized tool id, proceeding without augmentation", "tool", toolID)
		return content
	}
}

// formatSnippets renders results as bullet lines joined with newlines.
// The messenger variant prefixes each line with the announcement date.
func formatSnippets(results []retrieval.Result, withDate bool) string {
	lines := make([]string, len(results))
	for i, r := range results {
		if withDate {
			lines[i] = fmt.Sprintf("- [%s] %s: %s", r.Date, r.Title, r.Snippet)
		} else {
			lines[i] = fmt.Sprintf("- %s: %s", r.Title, r.Snippet)
		}
	}
	return strings.Join(lines, "\n")
}
