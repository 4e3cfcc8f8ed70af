package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/binpack3d/internal/events"
	"github.com/eugenenazirov/binpack3d/internal/metrics"
	"github.com/eugenenazirov/binpack3d/internal/packing"
	"github.com/eugenenazirov/binpack3d/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxRequestBody = 4 << 20

// PackDefaults are the engine settings applied when a request leaves them out.
type PackDefaults struct {
	Method       packing.Method
	Lookahead    int
	WorkingRange float64
	AnchorCap    int
	Order        packing.Order
	Timeout      time.Duration
}

// DefaultPackDefaults mirrors the engine's own defaults. The working range
// is 0, so built-in methods pack in exact geometry.
func DefaultPackDefaults() PackDefaults {
	return PackDefaults{
		Method:       packing.BestLookahead,
		Lookahead:    packing.DefaultLookahead,
		WorkingRange: 0,
		AnchorCap:    packing.DefaultAnchorCap,
		Order:        packing.OrderInput,
		Timeout:      10 * time.Second,
	}
}

// Handler wires storage, cache, metrics and event dependencies into HTTP handlers.
type Handler struct {
	storage   storage.Storage
	cache     *storage.ResultCache
	recorder  metrics.Recorder
	publisher events.Publisher
	logger    *zap.Logger
	defaults  PackDefaults

	clock func() time.Time

	mu                sync.RWMutex
	profilesUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithCache memoises results of identical pack requests.
func WithCache(cache *storage.ResultCache) HandlerOption {
	return func(h *Handler) {
		h.cache = cache
	}
}

// WithMetrics records every pack request.
func WithMetrics(recorder metrics.Recorder) HandlerOption {
	return func(h *Handler) {
		h.recorder = recorder
	}
}

// WithPublisher announces completed runs.
func WithPublisher(publisher events.Publisher) HandlerOption {
	return func(h *Handler) {
		h.publisher = publisher
	}
}

// WithLogger sets the logger passed to the packing engine.
func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithDefaults overrides the engine defaults.
func WithDefaults(defaults PackDefaults) HandlerOption {
	return func(h *Handler) {
		h.defaults = defaults
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		storage:   store,
		cache:     storage.NewResultCache(0),
		recorder:  metrics.NewNop(),
		publisher: events.Nop{},
		logger:    zap.NewNop(),
		defaults:  DefaultPackDefaults(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.profilesUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMethods(w http.ResponseWriter, r *http.Request) {
	_ = r
	methods := packing.Methods()
	resp := methodsResponse{Methods: make([]string, len(methods)), Default: h.defaults.Method.String()}
	for i, m := range methods {
		resp.Methods[i] = m.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListContainers(w http.ResponseWriter, r *http.Request) {
	_ = r
	profiles, err := h.storage.ListProfiles()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := containersResponse{
		Containers: profiles,
		UpdatedAt:  h.currentProfilesUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	profile, err := h.storage.GetProfile(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "Container not found", err.Error(), "GET /api/containers lists the available presets")
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handlePutContainer(w http.ResponseWriter, r *http.Request) {
	var container packing.Container
	if err := decodeJSON(w, r, &container); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	name := r.PathValue("name")
	if err := h.storage.SetProfile(storage.Profile{Name: name, Container: container}); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidProfile):
			writeError(w, http.StatusBadRequest, "Invalid container", err.Error())
		case errors.Is(err, storage.ErrTooManyProfiles):
			writeError(w, http.StatusConflict, "Too many containers", err.Error(), "replace an existing preset instead")
		default:
			writeInternalError(w, err)
		}
		return
	}

	h.markProfilesUpdated()

	profile, err := h.storage.GetProfile(name)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := containerResponse{
		Profile:   profile,
		UpdatedAt: h.currentProfilesUpdatedAt(),
		Message:   "Container saved successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePack(w http.ResponseWriter, r *http.Request) {
	var body packRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	req, status, err := h.buildRequest(body)
	if err != nil {
		var ve *packing.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidationError(w, ve)
		case errors.Is(err, storage.ErrProfileNotFound):
			writeError(w, status, "Container not found", err.Error(), "GET /api/containers lists the available presets")
		default:
			writeError(w, status, "Invalid request", err.Error())
		}
		return
	}

	requestID := requestIDFromContext(r.Context())
	key, keyErr := storage.Fingerprint(req)
	if keyErr == nil {
		if res, ok := h.cache.Get(key); ok {
			h.recorder.ObserveCacheHit()
			writeJSON(w, http.StatusOK, packResponse{Result: res, RequestID: requestID, Cached: true})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.defaults.Timeout)
	defer cancel()

	start := time.Now()
	res, err := packing.Run(ctx, req,
		packing.WithWorkingRange(h.defaults.WorkingRange),
		packing.WithAnchorCap(h.defaults.AnchorCap),
		packing.WithLogger(h.logger.With(zap.String("request_id", requestID))),
	)
	elapsed := time.Since(start)

	if err != nil {
		algorithm := req.Method.String()
		var ve *packing.ValidationError
		switch {
		case errors.As(err, &ve):
			h.recorder.ObserveFailure(algorithm, metrics.ReasonValidation)
			writeValidationError(w, ve)
		case errors.Is(err, context.DeadlineExceeded):
			h.recorder.ObserveFailure(algorithm, metrics.ReasonTimeout)
			writeError(w, http.StatusGatewayTimeout, "Packing timed out", err.Error(),
				fmt.Sprintf("split the load or use a faster method than %s", algorithm))
		case errors.Is(err, context.Canceled):
			h.recorder.ObserveFailure(algorithm, metrics.ReasonCanceled)
			writeError(w, http.StatusServiceUnavailable, "Request canceled", err.Error())
		default:
			h.recorder.ObserveFailure(algorithm, metrics.ReasonInternal)
			writeInternalError(w, err)
		}
		return
	}

	h.recorder.ObserveRun(res, elapsed)
	if keyErr == nil {
		h.cache.Put(key, res)
	}
	if err := h.publisher.PublishResult(r.Context(), requestID, res); err != nil {
		h.logger.Warn("failed to publish packing result",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, packResponse{Result: res, RequestID: requestID})
}

// buildRequest resolves the container and fills in defaults. The returned
// status is meaningful only when err is not nil.
func (h *Handler) buildRequest(body packRequest) (packing.Request, int, error) {
	req := packing.Request{
		Items:     make([]packing.Item, len(body.Items)),
		MaxWeight: body.MaxWeight,
		Method:    h.defaults.Method,
		Lookahead: h.defaults.Lookahead,
		Order:     h.defaults.Order,
	}
	for i, it := range body.Items {
		req.Items[i] = it.toItem()
	}

	switch {
	case body.Container != nil && body.ContainerProfile != "":
		return packing.Request{}, http.StatusBadRequest, errors.New("set either container or container_profile, not both")
	case body.Container != nil:
		req.Container = *body.Container
	case body.ContainerProfile != "":
		profile, err := h.storage.GetProfile(body.ContainerProfile)
		if err != nil {
			if errors.Is(err, storage.ErrProfileNotFound) {
				return packing.Request{}, http.StatusNotFound, err
			}
			return packing.Request{}, http.StatusInternalServerError, err
		}
		req.Container = profile.Container
	default:
		return packing.Request{}, http.StatusBadRequest, errors.New("container or container_profile is required")
	}

	if body.Method != "" {
		m, err := packing.ParseMethod(body.Method)
		if err != nil {
			return packing.Request{}, http.StatusBadRequest, err
		}
		req.Method = m
	}
	if body.Lookahead != nil {
		req.Lookahead = *body.Lookahead
		if err := packing.ValidateLookahead(req.Lookahead); err != nil {
			return packing.Request{}, http.StatusBadRequest, err
		}
	}
	if body.Order != "" {
		o, err := packing.ParseOrder(body.Order)
		if err != nil {
			return packing.Request{}, http.StatusBadRequest, err
		}
		req.Order = o
	}
	return req, http.StatusOK, nil
}

func (h *Handler) currentProfilesUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.profilesUpdatedAt
}

func (h *Handler) markProfilesUpdated() {
	h.mu.Lock()
	h.profilesUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type packItem struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
	Weight float64 `json:"weight"`
	// AllowRotation defaults to true when omitted.
	AllowRotation *bool `json:"allow_rotation"`
}

func (p packItem) toItem() packing.Item {
	rotate := true
	if p.AllowRotation != nil {
		rotate = *p.AllowRotation
	}
	return packing.Item{
		ID:            p.ID,
		Width:         p.Width,
		Height:        p.Height,
		Depth:         p.Depth,
		Weight:        p.Weight,
		AllowRotation: rotate,
	}
}

type packRequest struct {
	Items            []packItem         `json:"items"`
	Container        *packing.Container `json:"container"`
	ContainerProfile string             `json:"container_profile"`
	MaxWeight        float64            `json:"max_weight"`
	Method           string             `json:"method"`
	Lookahead        *int               `json:"lookahead"`
	Order            string             `json:"order"`
}

type packResponse struct {
	packing.Result
	RequestID string `json:"request_id,omitempty"`
	Cached    bool   `json:"cached"`
}

type containersResponse struct {
	Containers []storage.Profile `json:"containers"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type containerResponse struct {
	storage.Profile
	UpdatedAt time.Time `json:"updated_at"`
	Message   string    `json:"message,omitempty"`
}

type methodsResponse struct {
	Methods []string `json:"methods"`
	Default string   `json:"default"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Problems   []string `json:"problems,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, ve *packing.ValidationError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:    "Invalid packing input",
		Details:  ve.Error(),
		Problems: ve.Problems(),
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
