package cmd

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/a11y-tree/internal/atspi"
	"github.com/mj1618/a11y-tree/internal/model"
	"github.com/mj1618/a11y-tree/internal/traverse"
	"gopkg.in/yaml.v3"
)

// toText serializes a result to YAML for an MCP response.
func toText(v interface{}) (*mcp.CallToolResult, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *mcpServer) handleSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	app := StringParam(params, "app", "")
	pid := IntParam(params, "pid", 0)
	strategyName := StringParam(params, "strategy", string(traverse.Iterative))
	maxChildren := IntParam(params, "max-children", traverse.DefaultMaxChildren)
	concurrency := IntParam(params, "concurrency", traverse.DefaultConcurrency)
	timeoutMS := IntParam(params, "timeout", int(traverse.DefaultCallTimeout/time.Millisecond))
	flat := BoolParam(params, "flat", false)

	strategy, err := traverse.ParseStrategy(strategyName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if BoolParam(params, "refresh", false) {
		s.cache.invalidateAll()
	}

	s.busMu.Lock()
	defer s.busMu.Unlock()

	root, matched, err := resolveTarget(ctx, s.bus, app, pid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := traverse.Config{
		MaxChildren: maxChildren,
		Concurrency: concurrency,
		CallTimeout: time.Duration(timeoutMS) * time.Millisecond,
		Strategy:    strategy,
	}
	tree, err := s.cache.buildTree(ctx, s.bus, root, matched, cfg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if flat {
		return toText(model.Flatten(tree))
	}
	return toText(tree)
}

func (s *mcpServer) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.busMu.Lock()
	defer s.busMu.Unlock()

	apps, err := s.bus.Applications(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries := make([]appEntry, 0, len(apps))
	for _, a := range apps {
		entries = append(entries, appEntry{
			App:      a.Name,
			Role:     a.Role,
			Children: a.ChildCount,
			Sender:   a.Handle.Sender,
			Pid:      a.Pid,
		})
	}
	return toText(entries)
}

func (s *mcpServer) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	app := StringParam(params, "app", "")
	pid := IntParam(params, "pid", 0)

	s.busMu.Lock()
	defer s.busMu.Unlock()

	target, matched, err := resolveTarget(ctx, s.bus, app, pid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	attrs, err := s.bus.Attributes(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	refSize := len(target.Sender) + len(target.Path)
	if attrs.ChildCount > 0 {
		if first, err := s.bus.ChildAt(ctx, target, 0); err == nil {
			refSize = len(first.Sender) + len(first.Path)
		}
	}
	replySize := refSize * attrs.ChildCount

	return toText(inspectResult{
		App:        matched,
		Role:       attrs.Role,
		Name:       attrs.Name,
		Desc:       attrs.Description,
		Interfaces: attrs.Interfaces,
		ChildCount: attrs.ChildCount,
		RefSize:    refSize,
		ReplySize:  humanSize(replySize),
		OverLimit:  replySize > atspi.MaxMessageSize,
	})
}
