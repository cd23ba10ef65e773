package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fuzzyrules/internal/kb"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON = "application/json"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"fuzzyrules://about",
			"fuzzyrules About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("High-level server info and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"fuzzyrules://kb/{name}/facts{?predicate,limit}",
			"Knowledge Base Facts",
			mcp.WithTemplateMIMEType(resourceMIMEJSON),
			mcp.WithTemplateDescription("Read a token-efficient slice of facts from a knowledge base (optionally filtered by predicate)."),
		),
		s.handleKBFactsResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"name":    s.cfg.Server.Name,
		"version": s.cfg.Server.Version,
		"notes": []string{
			"Resources are read-only context endpoints; use tools for actions/mutations.",
			"Resource templates are parameterized resources (URI templates) for knowledge-base-scoped reads.",
			"For best token efficiency, scope reads to a single knowledge base and predicate.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func (s *Server) handleKBFactsResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("registry unavailable")
	}

	name := argString(request.Params.Arguments["name"])
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	predicate := argString(request.Params.Arguments["predicate"])
	limit := asInt(request.Params.Arguments["limit"])
	if limit <= 0 {
		limit = 25
	}
	if limit > 500 {
		limit = 500
	}

	var facts []kb.Fact
	err := s.registry.Use(name, func(target *kb.KnowledgeBase) error {
		facts = selectRecentKBFacts(target, predicate, limit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"name":      name,
		"predicate": predicate,
		"limit":     limit,
		"count":     len(facts),
		"facts":     facts,
	}
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}

func selectRecentKBFacts(target *kb.KnowledgeBase, predicate string, limit int) []kb.Fact {
	if target == nil || limit <= 0 {
		return []kb.Fact{}
	}

	var source []kb.Fact
	if predicate != "" {
		source = target.Query(predicate, nil)
	} else {
		source = target.GetFacts()
	}

	out := make([]kb.Fact, 0, min(limit, len(source)))
	for i := len(source) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, source[i])
	}

	// Reverse to return insertion order (oldest -> newest).
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func argString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		if len(value) == 0 {
			return ""
		}
		return value[0]
	default:
		return fmt.Sprintf("%v", value)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
