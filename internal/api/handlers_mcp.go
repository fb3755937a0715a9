package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/mapsgpx/internal/convert"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
	rpcToolError      = -32000
)

const (
	mcpServerName      = "maps-to-gpx"
	mcpServerVersion   = "1.0.0"
	mcpProtocolVersion = "2024-11-05"
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type toolCallParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	kind        convert.Kind
	arg         string
}

var tools = []tool{
	{
		Name:        "convert_google_maps_url_to_gpx",
		Description: "Convert a Google Maps directions URL to GPX format for GPS devices. Short links must be expanded first.",
		InputSchema: stringSchema("url", "Google Maps directions URL (e.g., https://www.google.com/maps/dir/...)"),
		kind:        convert.KindURL,
		arg:         "url",
	},
	{
		Name:        "convert_kml_to_gpx",
		Description: "Convert KML content (exported from Google My Maps) to GPX format",
		InputSchema: stringSchema("kml", "KML file content as XML string"),
		kind:        convert.KindKML,
		arg:         "kml",
	},
	{
		Name:        "convert_polyline_to_gpx",
		Description: "Convert an encoded polyline (precision 5) to a GPX track",
		InputSchema: stringSchema("polyline", "Encoded polyline string"),
		kind:        convert.KindPolyline,
		arg:         "polyline",
	},
}

func stringSchema(prop, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			prop: map[string]any{"type": "string", "description": description},
		},
		"required": []string{prop},
	}
}

func findTool(name string) (tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return tool{}, false
}

func (s *Server) handleMCPManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        mcpServerName,
		"version":     mcpServerVersion,
		"description": "Convert Google Maps URLs and KML files to GPX format",
		"tools":       tools,
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcFailure(nil, rpcParseError, "Parse error", nil))
		return
	}
	if req.JSONRPC != "2.0" {
		writeJSON(w, http.StatusOK, rpcFailure(req.ID, rpcInvalidRequest, "Invalid JSON-RPC version", nil))
		return
	}

	var resp rpcResponse
	switch req.Method {
	case "initialize":
		resp = rpcSuccess(req.ID, map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"serverInfo": map[string]string{
				"name":    mcpServerName,
				"version": mcpServerVersion,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		})
	case "ping":
		resp = rpcSuccess(req.ID, map[string]any{})
	case "tools/list":
		resp = rpcSuccess(req.ID, map[string]any{"tools": tools})
	case "tools/call":
		resp = s.callTool(r, req)
	default:
		resp = rpcFailure(req.ID, rpcMethodNotFound, "Method not found: "+req.Method, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) callTool(r *http.Request, req rpcRequest) rpcResponse {
	var params toolCallParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &params) != nil {
		return rpcFailure(req.ID, rpcInvalidParams, "Invalid params", nil)
	}
	t, ok := findTool(params.Name)
	if !ok {
		return rpcFailure(req.ID, rpcInvalidParams, "Unknown tool: "+params.Name, nil)
	}
	input := params.Arguments[t.arg]
	if input == "" {
		return rpcFailure(req.ID, rpcInvalidParams, "Missing '"+t.arg+"' argument", nil)
	}

	res, err := s.svc.Convert(r.Context(), t.kind, input, "")
	if err != nil {
		kind := convert.Classify(err)
		code := rpcToolError
		if kind == "internal" {
			code = rpcInternalError
		}
		return rpcFailure(req.ID, code, err.Error(), map[string]string{"kind": kind})
	}
	return rpcSuccess(req.ID, map[string]any{
		"content": []toolContent{{Type: "text", Text: res.GPX}},
	})
}

func rpcSuccess(id json.RawMessage, result any) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: rpcID(id), Result: result}
}

func rpcFailure(id json.RawMessage, code int, msg string, data any) rpcResponse {
	return rpcResponse{
		JSONRPC: "2.0",
		ID:      rpcID(id),
		Error:   &rpcError{Code: code, Message: msg, Data: data},
	}
}

// rpcID echoes the request id, defaulting to 0 when absent.
func rpcID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("0")
	}
	return id
}
