// Package query answers a fixed vocabulary of natural-language lineage
// questions over a built lineage graph. Recognition is an ordered
// decision table of compiled patterns; everything user-facing comes back
// as text, never as an error.
package query

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/provlens/provlens/internal/lineage"
)

// route pairs a question pattern with its handler. Routes are evaluated
// in registration order: some phrasings are substrings of others
// ("what does X feed" vs "what feeds X"), so the more anchored pattern
// must come first.
type route struct {
	pattern *regexp.Regexp
	handle  func(e *Engine, m []string) string
}

// Engine is the sole natural-language entry point for hosting CLI and
// API layers.
type Engine struct {
	graph    *lineage.Graph
	resolver *lineage.Resolver
	routes   []route
	logger   *slog.Logger
}

// NewEngine creates a query engine over a built, immutable graph.
func NewEngine(graph *lineage.Graph, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		graph:    graph,
		resolver: lineage.NewResolver(graph),
		logger:   logger,
	}
	e.routes = []route{
		// Path questions carry two arguments and the most anchored shape.
		{regexp.MustCompile(`(?i)^how does\s+(.+?)\s+become\s+(.+)$`),
			func(e *Engine, m []string) string { return e.answerPath(m[1], m[2]) }},
		{regexp.MustCompile(`(?i)^(?:what is the\s+)?path from\s+(.+?)\s+to\s+(.+)$`),
			func(e *Engine, m []string) string { return e.answerPath(m[1], m[2]) }},
		// "what does X feed" must precede "what feeds X".
		{regexp.MustCompile(`(?i)^what does\s+(.+?)\s+feed$`),
			func(e *Engine, m []string) string { return e.answerDownstream(m[1]) }},
		{regexp.MustCompile(`(?i)^what depends on\s+(.+)$`),
			func(e *Engine, m []string) string { return e.answerDownstream(m[1]) }},
		{regexp.MustCompile(`(?i)^where does\s+(.+?)\s+come from$`),
			func(e *Engine, m []string) string { return e.answerUpstream(m[1]) }},
		{regexp.MustCompile(`(?i)^what\s+(?:tables?\s+)?feeds?\s+(.+)$`),
			func(e *Engine, m []string) string { return e.answerUpstream(m[1]) }},
		{regexp.MustCompile(`(?i)^(?:show\s+)?lineage\s+(?:for|of)\s+(.+)$`),
			func(e *Engine, m []string) string { return e.answerFull(m[1]) }},
	}
	return e
}

// Query answers a natural-language lineage question. It always returns
// non-empty text and never fails on user input: unknown tables,
// unreachable targets, and unrecognized questions all render as
// informative messages.
func (e *Engine) Query(question string) string {
	cleaned := cleanQuestion(question)
	if cleaned == "" {
		return e.helpText()
	}

	for _, rt := range e.routes {
		if m := rt.pattern.FindStringSubmatch(cleaned); m != nil {
			e.logger.Debug("matched lineage question", "pattern", rt.pattern.String())
			return rt.handle(e, m)
		}
	}

	e.logger.Debug("unrecognized lineage question", "question", question)
	return e.helpText()
}

// cleanQuestion strips trailing punctuation and collapses whitespace so
// patterns stay simple.
func cleanQuestion(q string) string {
	q = strings.TrimSpace(q)
	q = strings.TrimRight(q, "?!.")
	return strings.Join(strings.Fields(q), " ")
}

func (e *Engine) answerUpstream(term string) string {
	id, ok := e.resolver.Resolve(term, "")
	if !ok {
		return e.notFound(term)
	}
	layer, table := lineage.SplitNodeID(id)
	nodes := e.graph.Upstream(table, layer)
	return e.formatClosure(directionUpstream, id, nodes)
}

func (e *Engine) answerDownstream(term string) string {
	id, ok := e.resolver.Resolve(term, "")
	if !ok {
		return e.notFound(term)
	}
	layer, table := lineage.SplitNodeID(id)
	nodes := e.graph.Downstream(table, layer)
	return e.formatClosure(directionDownstream, id, nodes)
}

func (e *Engine) answerFull(term string) string {
	id, ok := e.resolver.Resolve(term, "")
	if !ok {
		return e.notFound(term)
	}
	layer, table := lineage.SplitNodeID(id)
	return e.formatFull(id, e.graph.Upstream(table, layer), e.graph.Downstream(table, layer))
}

func (e *Engine) answerPath(srcTerm, dstTerm string) string {
	srcCandidates := e.resolver.ResolveAll(srcTerm)
	if len(srcCandidates) == 0 {
		return e.notFound(srcTerm)
	}
	dstCandidates := e.resolver.ResolveAll(dstTerm)
	if len(dstCandidates) == 0 {
		return e.notFound(dstTerm)
	}

	// Try the earliest form of the source against the latest form of the
	// target first, so the reported path spans as much of the pipeline as
	// the provenance supports.
	for _, src := range srcCandidates {
		for i := len(dstCandidates) - 1; i >= 0; i-- {
			if path := e.graph.Path(src, dstCandidates[i]); path != nil {
				return e.formatPath(path)
			}
		}
	}

	return e.formatNoPath(srcCandidates[0], dstCandidates[len(dstCandidates)-1])
}
