package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ssargent/flightlog/pkg/query"
	"github.com/ssargent/flightlog/pkg/ulog"
	"go.uber.org/zap"
)

// defaultRowLimit caps topic queries that set no limit.
const defaultRowLimit = 1000

// ErrPathNotAllowed is returned when a load request names a file outside
// the configured roots.
var ErrPathNotAllowed = errors.New("path outside allowed roots")

// Server holds the API server state
type Server struct {
	service ILogService
	config  ServerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewServer creates a new API server
func NewServer(service ILogService, config ServerConfig, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service: service,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// statusFor maps service and decoding errors to HTTP status codes.
func statusFor(err error) int {
	var (
		formatErr    *ulog.FormatError
		truncatedErr *ulog.TruncatedError
	)
	switch {
	case errors.Is(err, ErrLogNotFound),
		errors.Is(err, ulog.ErrTopicNotFound),
		errors.Is(err, ulog.ErrFieldNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, ErrPathNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ulog.ErrAmbiguousTopic):
		return http.StatusConflict
	case errors.Is(err, query.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ulog.ErrNoTimestamp),
		errors.As(err, &formatErr),
		errors.As(err, &truncatedErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	sendError(w, err.Error(), status)
}

// loaded fetches the log named by the {id} URL parameter. It writes the
// error response and returns nil if there is none.
func (s *Server) loaded(w http.ResponseWriter, r *http.Request) *LoadedLog {
	l, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil
	}
	return l
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleListLogs godoc
//
//	@Summary		List logs
//	@Description	List loaded and cataloged logs, oldest first
//	@Tags			logs
//	@Produce		json
//	@Success		200	{array}		catalog.Entry
//	@Failure		500	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs [get]
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, entries)
}

// handleLoadLog godoc
//
//	@Summary		Load a log
//	@Description	Parse a log file readable by the server and keep it in memory
//	@Tags			logs
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoadRequest	true	"File to load"
//	@Success		201		{object}	catalog.Entry
//	@Failure		400		{object}	APIResponse
//	@Failure		403		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs [post]
func (s *Server) handleLoadLog(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON in request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		sendError(w, "Path is required", http.StatusBadRequest)
		return
	}
	if err := s.config.checkPath(req.Path); err != nil {
		s.fail(w, r, err)
		return
	}

	loaded, err := s.service.Load(r.Context(), req.Path, req.Catalog)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendCreated(w, loaded.Entry)
}

// handleGetLog godoc
//
//	@Summary		Get a log summary
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{object}	catalog.Entry
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id} [get]
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}
	sendSuccess(w, l.Entry)
}

// handleDeleteLog godoc
//
//	@Summary		Unload a log
//	@Description	Release a log from memory. With purge=true the catalog entry is removed too.
//	@Tags			logs
//	@Produce		json
//	@Param			id		path		string	true	"Log id"
//	@Param			purge	query		bool	false	"Remove the catalog entry"
//	@Success		200		{object}	map[string]string
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id} [delete]
func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var err error
	if purge, _ := strconv.ParseBool(r.URL.Query().Get("purge")); purge {
		err = s.service.Delete(id)
	} else {
		err = s.service.Unload(id)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendSuccess(w, map[string]string{"message": "Log removed", "id": id})
}

// handleInfo godoc
//
//	@Summary		Log header and info
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{object}	InfoResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/info [get]
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}

	resp := InfoResponse{
		FileVersion:    l.Log.FileVersion(),
		StartTimestamp: l.Log.StartTimestamp(),
		LastTimestamp:  l.Log.LastTimestamp(),
		Info:           jsonMap(l.Log.Info()),
		Stats:          l.Log.Stats(),
		Truncated:      l.Log.Truncated(),
	}
	resp.SoftwareVersion, _ = l.Log.SoftwareVersion()
	for _, warning := range l.Log.Warnings() {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}
	sendSuccess(w, resp)
}

// handleParams godoc
//
//	@Summary		Log parameters
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{object}	ParametersResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/params [get]
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}

	resp := ParametersResponse{
		Initial: jsonMap(l.Log.InitialParameters()),
		Changed: make([]ParameterChangeResponse, 0, len(l.Log.ChangedParameters())),
	}
	for _, c := range l.Log.ChangedParameters() {
		resp.Changed = append(resp.Changed, ParameterChangeResponse{
			Timestamp: c.Timestamp,
			Name:      c.Name,
			Value:     jsonValue(c.Value),
		})
	}
	sendSuccess(w, resp)
}

// handleMessages godoc
//
//	@Summary		Logged text messages
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{array}		MessageResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/messages [get]
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}

	messages := make([]MessageResponse, 0, len(l.Log.Messages()))
	for _, m := range l.Log.Messages() {
		messages = append(messages, MessageResponse{
			Level:     m.LevelName(),
			Timestamp: m.Timestamp,
			Text:      m.Text,
		})
	}
	sendSuccess(w, messages)
}

// handleDropouts godoc
//
//	@Summary		Data dropouts
//	@Tags			logs
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{array}		DropoutResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/dropouts [get]
func (s *Server) handleDropouts(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}

	dropouts := make([]DropoutResponse, 0, len(l.Log.Dropouts()))
	for _, d := range l.Log.Dropouts() {
		dropouts = append(dropouts, DropoutResponse{Timestamp: d.Timestamp, DurationMs: d.Duration})
	}
	sendSuccess(w, dropouts)
}

// handleTopics godoc
//
//	@Summary		Decoded topics
//	@Tags			topics
//	@Produce		json
//	@Param			id	path		string	true	"Log id"
//	@Success		200	{array}		TopicResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/topics [get]
func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	l := s.loaded(w, r)
	if l == nil {
		return
	}

	topics := make([]TopicResponse, 0, len(l.Log.Topics()))
	for _, t := range l.Log.Topics() {
		resp := TopicResponse{
			Name:    t.Name(),
			MultiID: t.MultiID(),
			MsgID:   t.MsgID(),
			Records: t.Len(),
			Stride:  t.Layout().Stride,
			Fields:  make([]FieldResponse, 0, len(t.Columns())),
		}
		for _, c := range t.Columns() {
			resp.Fields = append(resp.Fields, FieldResponse{Name: c.Name, Type: c.Type.String(), Offset: c.Offset})
		}
		topics = append(topics, resp)
	}
	sendSuccess(w, topics)
}

// parseTopicRequest builds a query from the topic URL and its query string.
func parseTopicRequest(r *http.Request) (query.Request, error) {
	q := r.URL.Query()
	req := query.Request{Topic: chi.URLParam(r, "name"), Limit: defaultRowLimit}

	if v := q.Get("instance"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return req, invalidParam("instance", v)
		}
		req.Instance = uint8(n)
	}
	if v := q.Get("fields"); v != "" {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				req.Fields = append(req.Fields, f)
			}
		}
	}
	for _, bound := range []struct {
		name string
		dst  *uint64
	}{{"start", &req.Start}, {"end", &req.End}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, invalidParam(bound.name, v)
		}
		*bound.dst = n
	}
	for _, expr := range q["where"] {
		fq, err := query.ParseFieldQuery(expr)
		if err != nil {
			return req, err
		}
		req.Where = append(req.Where, fq)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, invalidParam("limit", v)
		}
		req.Limit = n
	}
	return req, nil
}

func invalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + ": " + strconv.Quote(e.value)
}

func (e *paramError) Unwrap() error { return query.ErrInvalidQuery }

// handleTopicRows godoc
//
//	@Summary		Query topic rows
//	@Description	Select records of one topic instance. Without a limit at most 1000 rows are returned; limit=0 returns every row.
//	@Tags			topics
//	@Produce		json
//	@Param			id			path		string	true	"Log id"
//	@Param			name		path		string	true	"Topic name"
//	@Param			instance	query		int		false	"Multi-instance id"
//	@Param			fields		query		string	false	"Comma-separated field names"
//	@Param			start		query		int		false	"First timestamp, inclusive"
//	@Param			end			query		int		false	"Last timestamp, inclusive"
//	@Param			where		query		string	false	"Condition such as alt>=10, repeatable"
//	@Param			limit		query		int		false	"Maximum rows"
//	@Success		200			{object}	RowsResponse
//	@Failure		400			{object}	APIResponse
//	@Failure		404			{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/topics/{name} [get]
func (s *Server) handleTopicRows(w http.ResponseWriter, r *http.Request) {
	req, err := parseTopicRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	it, err := s.service.Query(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer it.Close()

	resp := RowsResponse{Topic: req.Topic, Columns: it.Columns(), Rows: []RowResponse{}}
	for it.Next() {
		row := it.Result()
		values := make([]any, len(row.Values))
		for i, v := range row.Values {
			values[i] = jsonValue(v)
		}
		resp.Rows = append(resp.Rows, RowResponse{Index: row.Index, Timestamp: row.Timestamp, Values: values})
	}
	if err := it.Err(); err != nil {
		s.metrics.RecordQuery(false, len(resp.Rows))
		s.fail(w, r, err)
		return
	}
	s.metrics.RecordQuery(true, len(resp.Rows))
	sendSuccess(w, resp)
}

// handleValueChanges godoc
//
//	@Summary		Field value changes
//	@Description	The first sample and every sample whose value differs from the one before
//	@Tags			topics
//	@Produce		json
//	@Param			id			path		string	true	"Log id"
//	@Param			name		path		string	true	"Topic name"
//	@Param			field		path		string	true	"Qualified field name"
//	@Param			instance	query		int		false	"Multi-instance id"
//	@Success		200			{object}	ChangesResponse
//	@Failure		404			{object}	APIResponse
//	@Failure		422			{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/logs/{id}/topics/{name}/changes/{field} [get]
func (s *Server) handleValueChanges(w http.ResponseWriter, r *http.Request) {
	var instance uint8
	if v := r.URL.Query().Get("instance"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			s.fail(w, r, invalidParam("instance", v))
			return
		}
		instance = uint8(n)
	}

	l := s.loaded(w, r)
	if l == nil {
		return
	}

	name, field := chi.URLParam(r, "name"), chi.URLParam(r, "field")
	topic, err := l.Log.Topic(name, instance)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	samples, err := topic.ValueChanges(field)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := ChangesResponse{Topic: name, Field: field, Samples: make([]SampleResponse, 0, len(samples))}
	for _, smp := range samples {
		resp.Samples = append(resp.Samples, SampleResponse{
			Index:     smp.Index,
			Timestamp: smp.Timestamp,
			Value:     jsonValue(smp.Value),
		})
	}
	sendSuccess(w, resp)
}
