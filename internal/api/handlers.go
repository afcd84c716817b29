package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/ports"
	"github.com/CZERTAINLY/netprobe/internal/store"

	"github.com/gorilla/mux"
	pd "github.com/kodeart/go-problem/v2"
)

const (
	statusSuccess = "success"

	defaultRunsLimit = 20
	maxRunsLimit     = 1000

	maxBodySize = 1 << 16
)

type rootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type portsResponse struct {
	Status  string             `json:"status"`
	Results []model.PortResult `json:"results"`
	Message string             `json:"message"`
}

type whoisRequest struct {
	Target string `json:"target"`
}

type whoisResponse struct {
	Status  string            `json:"status"`
	Results model.WhoisRecord `json:"results"`
	Message string            `json:"message"`
}

type startResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type runResponse struct {
	UUID          string          `json:"uuid"`
	Job           string          `json:"job"`
	Kind          string          `json:"kind"`
	Target        string          `json:"target"`
	Status        string          `json:"status"` // inProgress, completed or failed
	Started       time.Time       `json:"started"`
	Finished      *time.Time      `json:"finished,omitempty"`
	Results       json.RawMessage `json:"results,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	toJson(r.Context(), w, rootResponse{
		Status:  "ok",
		Message: "API is running",
	})
}

func (s *Server) scanPorts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ScanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		toJsonErr(ctx, w, "Target can't be empty.", http.StatusBadRequest)
		return
	}
	if !ports.ValidChars(req.Ports) {
		slog.DebugContext(ctx, "Invalid port specification.", slog.String("ports", req.Ports))
		toJsonErr(ctx, w, "Invalid port format.", http.StatusBadRequest)
		return
	}

	results := s.scanner.Scan(ctx, req)
	if results == nil {
		results = []model.PortResult{}
	}
	toJson(ctx, w, portsResponse{
		Status:  statusSuccess,
		Results: results,
		Message: "Scan complete for " + req.Target,
	})
}

func (s *Server) lookupWhois(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req whoisRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		toJsonErr(ctx, w, "Target can't be empty.", http.StatusBadRequest)
		return
	}

	rec := s.whois.Lookup(ctx, req.Target)
	toJson(ctx, w, whoisResponse{
		Status:  statusSuccess,
		Results: rec,
		Message: "domain lookup complete for " + req.Target,
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.sv.Jobs(r.Context())
	if jobs == nil {
		jobs = []model.Job{}
	}
	toJson(r.Context(), w, jobs)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.job(w, r)
	if !ok {
		return
	}
	toJson(r.Context(), w, job)
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.job(w, r)
	if !ok {
		return
	}
	s.sv.Start(job.Name)
	toJsonStatus(r.Context(), w, startResponse{
		Status:  "accepted",
		Message: fmt.Sprintf("Job %q started.", job.Name),
	}, http.StatusAccepted)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, ok := s.job(w, r)
	if !ok {
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRunsLimit {
			toJsonErr(ctx, w, fmt.Sprintf("Parameter limit must be a number between 1 and %d.", maxRunsLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := store.ListByJob(ctx, s.db, job.Name, limit)
	if err != nil {
		slog.ErrorContext(ctx, "Calling `store.ListByJob()` failed", slog.String("error", err.Error()))
		internalError(ctx, w)
		return
	}
	ret := make([]runResponse, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, toRunResponse(row))
	}
	toJson(ctx, w, ret)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uuid := mux.Vars(r)["uuid"]

	row, err := store.Get(ctx, s.db, uuid)
	switch {
	case errors.Is(err, store.ErrNotFound):
		slog.DebugContext(ctx, "UUID not found", slog.String("uuid", uuid))
		toJsonErr(ctx, w, fmt.Sprintf("Run %q not found.", uuid), http.StatusNotFound)
		return
	case err != nil:
		slog.ErrorContext(ctx, "Calling `store.Get()` failed", slog.String("error", err.Error()))
		internalError(ctx, w)
		return
	}
	toJson(ctx, w, toRunResponse(row))
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) (model.Job, bool) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]
	job, err := s.sv.JobConfiguration(ctx, name)
	if err != nil {
		toJsonErr(ctx, w, fmt.Sprintf("Job %q not found.", name), http.StatusNotFound)
		return model.Job{}, false
	}
	return job, true
}

func toRunResponse(row store.RunRow) runResponse {
	ret := runResponse{
		UUID:     row.UUID,
		Job:      row.Job,
		Kind:     row.Kind,
		Target:   row.Target,
		Started:  row.Started,
		Finished: row.Finished,
	}
	switch {
	case row.InProgress:
		ret.Status = "inProgress"
	case row.Success != nil && *row.Success:
		ret.Status = "completed"
		if row.Result != nil {
			ret.Results = json.RawMessage(*row.Result)
		}
	default:
		ret.Status = "failed"
		if row.FailureReason != nil {
			ret.FailureReason = *row.FailureReason
		}
	}
	return ret
}

// decodeBody reads the JSON request body into v or writes a 400 problem
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		slog.DebugContext(r.Context(), "Calling `json.Decode()` failed", slog.String("error", err.Error()))
		toJsonErr(r.Context(), w, fmt.Sprintf("Failed to unmarshal request: %s", err), http.StatusBadRequest)
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, r *http.Request) {
	toJsonErr(r.Context(), w, "Not found.", http.StatusNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	toJsonErr(r.Context(), w, "Method not allowed.", http.StatusMethodNotAllowed)
}

func internalError(ctx context.Context, w http.ResponseWriter) {
	toJsonErr(ctx, w, "An internal error occurred.", http.StatusInternalServerError)
}

func toJson(ctx context.Context, w http.ResponseWriter, resp any) {
	toJsonStatus(ctx, w, resp, http.StatusOK)
}

func toJsonStatus(ctx context.Context, w http.ResponseWriter, resp any, statusCode int) {
	b, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal structure to json.", slog.String("error", err.Error()))
		internalError(ctx, w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(b)
}

// toJsonErr writes an RFC 7807 problem document
func toJsonErr(_ context.Context, w http.ResponseWriter, detail string, statusCode int) {
	p := pd.Problem{
		Title:  http.StatusText(statusCode),
		Status: statusCode,
		Detail: detail,
	}
	p.JSON(w)
}
