package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/compresr/mcp-gateway/internal/errs"
	"github.com/compresr/mcp-gateway/internal/jsonrpc"
	"github.com/compresr/mcp-gateway/internal/meta"
	"github.com/compresr/mcp-gateway/internal/ranker"
)

const maxRequestBytes = 4 << 20 // 4 MiB

// handleMCP dispatches a single JSON-RPC 2.0 request envelope to the
// fixed meta-tool surface.
func (g *Gateway) handleMCP(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	w.Header().Set(HeaderSessionID, sid)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		g.writeResponse(w, jsonrpc.StandardError(nil, jsonrpc.CodeParseError, "failed to read request body"))
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		g.writeResponse(w, jsonrpc.StandardError(nil, jsonrpc.CodeParseError, "invalid JSON"))
		return
	}
	if req.JSONRPC != jsonrpc.Version {
		g.writeResponse(w, jsonrpc.StandardError(req.ID, jsonrpc.CodeInvalidRequest, "unsupported jsonrpc version"))
		return
	}

	result, dispatchErr := g.dispatchMethod(r.Context(), req.Method, req.Params, sid)
	if dispatchErr != nil {
		g.writeResponse(w, jsonrpc.Failure(req.ID, dispatchErr))
		return
	}

	resp, err := jsonrpc.Success(req.ID, result)
	if err != nil {
		g.writeResponse(w, jsonrpc.Failure(req.ID, errs.Wrap(errs.Internal, err, "encoding result")))
		return
	}
	g.writeResponse(w, resp)
}

// dispatchMethod routes one JSON-RPC method name to its meta-tool
// implementation.
func (g *Gateway) dispatchMethod(ctx context.Context, method string, params json.RawMessage, sessionID string) (any, error) {
	switch method {
	case "list_servers":
		return g.dispatcher.ListServers(), nil

	case "list_tools":
		var args struct {
			Server string `json:"server"`
		}
		_ = json.Unmarshal(params, &args)
		return g.dispatcher.ListTools(ctx, args.Server, g.fetchTools)

	case "search_tools":
		return g.searchTools(ctx, params)

	case "invoke":
		return g.invoke(ctx, params, sessionID)

	case "run_playbook":
		return g.runPlaybook(ctx, params, sessionID)

	case "get_stats":
		return g.stats.Snapshot(), nil

	case "kill_server":
		var args struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, errs.Wrap(errs.InvalidArguments, err, "decoding kill_server arguments")
		}
		if err := g.dispatcher.KillServer(args.Name, "operator request"); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil

	case "revive_server":
		var args struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, errs.Wrap(errs.InvalidArguments, err, "decoding revive_server arguments")
		}
		if err := g.dispatcher.ReviveServer(args.Name); err != nil {
			return nil, err
		}
		return map[string]bool{"ok": true}, nil

	default:
		return nil, errs.Newf(errs.NotFound, "unknown method %q", method)
	}
}

type searchToolsArgs struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit"`
	IncludeSchema bool   `json:"include_schema"`
}

type searchToolsResult struct {
	Matches        []searchMatch `json:"matches"`
	Query          string        `json:"query"`
	Total          int           `json:"total"`
	TotalAvailable int           `json:"total_available"`
	Suggestions    []string      `json:"suggestions,omitempty"`
}

type searchMatch struct {
	Server      string  `json:"server"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

func (g *Gateway) searchTools(ctx context.Context, params json.RawMessage) (any, error) {
	var args searchToolsArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err, "decoding search_tools arguments")
	}

	descriptors, err := g.dispatcher.ListTools(ctx, "", g.fetchTools)
	if err != nil {
		return nil, err
	}

	tools := make([]ranker.Tool, len(descriptors))
	for i, d := range descriptors {
		tools[i] = ranker.Tool{Server: d.Server, Name: d.Name, Description: d.Description}
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	matches := g.dispatcher.Ranker().Search(tools, args.Query, limit, args.IncludeSchema)

	result := searchToolsResult{
		Query:          args.Query,
		Total:          len(matches),
		TotalAvailable: len(tools),
	}
	for _, m := range matches {
		result.Matches = append(result.Matches, searchMatch{
			Server:      m.Tool.Server,
			Name:        m.Tool.Name,
			Description: m.Tool.Description,
			Score:       m.Score,
		})
	}
	if len(matches) == 0 {
		result.Suggestions = g.dispatcher.Ranker().Suggest(tools, 5)
	}
	return result, nil
}

type invokeArgs struct {
	Server    string          `json:"server"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

func (g *Gateway) invoke(ctx context.Context, params json.RawMessage, sessionID string) (any, error) {
	var args invokeArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err, "decoding invoke arguments")
	}
	return g.dispatcher.Invoke(ctx, meta.InvokeRequest{
		Server:    args.Server,
		Tool:      args.Tool,
		Arguments: args.Arguments,
		SessionID: sessionID,
	})
}

type runPlaybookArgs struct {
	Name   string         `json:"name"`
	Inputs map[string]any `json:"inputs"`
}

func (g *Gateway) runPlaybook(ctx context.Context, params json.RawMessage, sessionID string) (any, error) {
	var args runPlaybookArgs
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, errs.Wrap(errs.InvalidArguments, err, "decoding run_playbook arguments")
	}
	return g.dispatcher.RunPlaybook(ctx, g.playbooks, args.Name, args.Inputs, sessionID)
}

// handleMCPStream upgrades GET /mcp to a server-sent-events stream of
// asynchronous JSON-RPC notifications. Sessions are not resumed across
// reconnects: a dropped connection loses any notifications queued for
// it, and a reconnect is assigned a fresh subscription.
func (g *Gateway) handleMCPStream(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	w.Header().Set(HeaderSessionID, sid)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	<-r.Context().Done()
}

// handleHealth returns a public snapshot of backend status and
// circuit states.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"servers": g.dispatcher.ListServers(),
	})
}

// handleDirectPassthrough forwards one method directly to a named
// backend, bypassing meta-routing (there is no search step; the kill
// switch, cache and idempotency still apply via the same Invoke path
// since arguments are passed through unchanged).
func (g *Gateway) handleDirectPassthrough(w http.ResponseWriter, r *http.Request) {
	backend := r.PathValue("backend")
	sid := sessionID(r)
	w.Header().Set(HeaderSessionID, sid)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		g.writeJSONRPCError(w, nil, "failed to read request body", http.StatusBadRequest)
		return
	}

	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		g.writeJSONRPCError(w, nil, "invalid JSON", http.StatusBadRequest)
		return
	}

	result, invokeErr := g.dispatcher.Invoke(r.Context(), meta.InvokeRequest{
		Server:    backend,
		Tool:      req.Method,
		Arguments: req.Params,
		SessionID: sid,
	})
	if invokeErr != nil {
		g.writeResponse(w, jsonrpc.Failure(req.ID, invokeErr))
		return
	}
	resp, _ := jsonrpc.Success(req.ID, result)
	g.writeResponse(w, resp)
}

func (g *Gateway) writeResponse(w http.ResponseWriter, resp *jsonrpc.Response) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if resp.Error != nil {
		status = http.StatusOK // JSON-RPC errors still ride a 200 by convention; the envelope carries the code
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (g *Gateway) writeJSONRPCError(w http.ResponseWriter, id json.RawMessage, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonrpc.StandardError(id, jsonrpc.CodeInternalError, message))
}
