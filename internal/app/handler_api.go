package app

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"qclctl/internal/device"
	"qclctl/internal/protocol"

	"github.com/google/uuid"
)

// Response is the envelope of every API reply.
type Response struct {
	Result        string `json:"result"`
	Data          any    `json:"data,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId"`
}

// OperationView describes an operation to API clients.
type OperationView struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Kind        string   `json:"kind"`
	Unit        string   `json:"unit,omitempty"`
	Readable    bool     `json:"readable"`
	Writable    bool     `json:"writable"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Values      []string `json:"values,omitempty"`
}

func viewOf(op protocol.Operation) OperationView {
	v := OperationView{
		Name:        op.Name,
		Description: op.Description,
		Kind:        op.Kind.String(),
		Unit:        op.Unit,
		Readable:    op.Readable(),
		Writable:    op.Writable(),
	}
	if op.Range != nil {
		if !math.IsInf(op.Range.Min, 0) {
			v.Min = &op.Range.Min
		}
		if !math.IsInf(op.Range.Max, 0) {
			v.Max = &op.Range.Max
		}
	}
	for _, item := range op.Enum {
		v.Values = append(v.Values, item.Label)
	}
	return v
}

// ValueView is the reply to a get or set.
type ValueView struct {
	Name  string         `json:"name"`
	Value protocol.Value `json:"value"`
}

type setRequest struct {
	Value any `json:"value"`
}

func writeJSON(w http.ResponseWriter, status int, resp *Response) {
	resp.CorrelationID = uuid.NewString()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, &Response{Result: "ok", Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, &Response{Result: "error", Code: code, Message: message, Details: details})
}

// statusOf maps the engine error taxonomy onto HTTP statuses and error codes.
func statusOf(err error) (int, string) {
	var perr *protocol.ProtocolError
	switch {
	case errors.Is(err, protocol.ErrUnknownOperation):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, protocol.ErrReadOnly), errors.Is(err, protocol.ErrWriteOnly):
		return http.StatusMethodNotAllowed, "NOT_ALLOWED"
	case errors.Is(err, protocol.ErrValueOutOfRange):
		return http.StatusUnprocessableEntity, "INVALID_RANGE"
	case errors.Is(err, protocol.ErrValueRejected):
		return http.StatusConflict, "REJECTED"
	case errors.As(err, &perr) && perr.Fault == protocol.FaultBusy:
		return http.StatusServiceUnavailable, "BUSY"
	case errors.Is(err, protocol.ErrProtocol), errors.Is(err, protocol.ErrDecode):
		return http.StatusBadGateway, "DEVICE_ERROR"
	case errors.Is(err, device.ErrTimeout):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	}
}

func (a *App) writeEngineError(w http.ResponseWriter, name string, err error) {
	status, code := statusOf(err)
	var details any
	var rejected *protocol.ValueRejectedError
	var perr *protocol.ProtocolError
	switch {
	case errors.As(err, &rejected):
		details = map[string]any{"requested": rejected.Requested, "applied": rejected.Applied}
	case errors.As(err, &perr):
		details = map[string]any{"command": perr.Command, "raw": perr.Raw, "fault": perr.Fault.String()}
	}
	if status >= http.StatusInternalServerError {
		a.log.Warn("operation failed", "op", name, "status", status, "error", err)
	}
	writeError(w, status, code, err.Error(), details)
}

// handleOperations lists the operation table.
func (a *App) handleOperations(w http.ResponseWriter, r *http.Request) {
	ops := a.Ctrl.Registry().Operations()
	views := make([]OperationView, 0, len(ops))
	for _, op := range ops {
		views = append(views, viewOf(op))
	}
	writeData(w, views)
}

// handleGet reads one operation from the controller.
func (a *App) handleGet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, err := a.Ctrl.Get(r.Context(), name)
	if err != nil {
		a.writeEngineError(w, name, err)
		return
	}
	writeData(w, ValueView{Name: name, Value: v})
}

// handleSet applies {"value": ...} to one operation.
func (a *App) handleSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	defer func() {
		if cerr := r.Body.Close(); cerr != nil {
			a.log.Warn("failed to close set body", "error", cerr)
		}
	}()

	var req setRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4096))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", `body must be {"value": ...}`, nil)
		return
	}
	value := req.Value
	if n, ok := value.(json.Number); ok {
		value = string(n)
	}

	v, err := a.Ctrl.Set(r.Context(), name, value)
	if err != nil {
		a.writeEngineError(w, name, err)
		return
	}
	a.log.Info("operation set", "op", name, "value", v, "subject", subjectFrom(r.Context()))
	writeData(w, ValueView{Name: name, Value: v})
}

// handleValues reads every readable operation.
func (a *App) handleValues(w http.ResponseWriter, r *http.Request) {
	values, err := a.Ctrl.GetAll(r.Context())
	if err != nil && len(values) == 0 {
		a.writeEngineError(w, "all", err)
		return
	}
	data := map[string]any{"values": values}
	if err != nil {
		data["error"] = err.Error()
	}
	writeData(w, data)
}

// handleJournal returns the latest exchanges, oldest first.
func (a *App) handleJournal(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "journal disabled", nil)
		return
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	entries, err := a.Journal.List(limit)
	if err != nil {
		a.log.Error("failed to read journal", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to read journal", nil)
		return
	}
	writeData(w, entries)
}
