package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"creditrisk/credit"
	"creditrisk/logger"
)

// OutcomeSource 提供按天汇总的预测结果
type OutcomeSource interface {
	OutcomeCounts(ctx context.Context, day string) (map[string]int64, error)
}

// Handler 持有预测器并注册所有路由
type Handler struct {
	predictor *credit.Predictor
	outcomes  OutcomeSource
	metrics   bool
	log       logger.Logger
}

// HandlerConfig 处理器依赖
type HandlerConfig struct {
	Predictor *credit.Predictor
	// Outcomes 为nil时不注册 /api/stats
	Outcomes OutcomeSource
	Metrics  bool
	Logger   logger.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{
		predictor: cfg.Predictor,
		outcomes:  cfg.Outcomes,
		metrics:   cfg.Metrics,
		log:       log,
	}
}

// Routes 返回已注册的路径，用于限定指标标签
func (h *Handler) Routes() []string {
	routes := []string{"/predict", "/api/health", "/api/ready", "/api/model", "/api/options"}
	if h.outcomes != nil {
		routes = append(routes, "/api/stats")
	}
	if h.metrics {
		routes = append(routes, "/metrics")
	}
	return routes
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/ready", h.handleReady)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("GET /api/options", h.handleOptions)
	if h.outcomes != nil {
		mux.HandleFunc("GET /api/stats", h.handleStats)
	}
	if h.metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		respondError(w, credit.NewModelUnavailableError(nil))
		return
	}

	body, err := readBody(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSONStatus(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "Request body too large",
				"code":  string(credit.ErrCodeMalformedRequest),
			})
			return
		}
		respondError(w, credit.NewMalformedRequestError(err))
		return
	}

	prediction, err := h.predictor.Predict(r.Context(), body)
	if err != nil {
		respondError(w, credit.AsError(err))
		return
	}
	respondJSON(w, prediction)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		respondError(w, credit.NewModelUnavailableError(nil))
		return
	}
	respondJSON(w, map[string]interface{}{
		"status":    "ready",
		"artifacts": h.predictor.Bundle().Artifacts,
	})
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		respondError(w, credit.NewModelUnavailableError(nil))
		return
	}
	respondJSON(w, h.predictor.Summary())
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	if h.predictor == nil {
		respondError(w, credit.NewModelUnavailableError(nil))
		return
	}
	respondJSON(w, h.predictor.Options())
}

// handleStats 返回某天的预测结果统计，默认当天(UTC)
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		respondJSONStatus(w, http.StatusBadRequest, map[string]string{
			"error": "day must be YYYY-MM-DD",
			"code":  string(credit.ErrCodeMalformedRequest),
		})
		return
	}

	counts, err := h.outcomes.OutcomeCounts(r.Context(), day)
	if err != nil {
		h.log.WithError(err).Error("Failed to query outcome counts", map[string]interface{}{
			"request_id": GetRequestID(r.Context()),
		})
		respondError(w, credit.AsError(err))
		return
	}
	respondJSON(w, map[string]interface{}{
		"day":    day,
		"counts": counts,
	})
}

// readBody 读取请求体，非UTF-8字符集先转码
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	var reader io.Reader = r.Body

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		_, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("content type: %w", err)
		}
		if charset := strings.ToLower(params["charset"]); charset != "" && charset != "utf-8" && charset != "utf8" {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, fmt.Errorf("unsupported charset %q", charset)
			}
			reader = transform.NewReader(reader, enc.NewDecoder())
		}
	}
	return io.ReadAll(reader)
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError 写出结构化错误，内部错误不返回细节
func respondError(w http.ResponseWriter, e *credit.Error) {
	if e.Code == credit.ErrCodeInternal {
		e = &credit.Error{Code: e.Code, Message: e.Message}
	}
	if e.Retryable {
		w.Header().Set("Retry-After", "5")
	}
	respondJSONStatus(w, e.HTTPStatus(), e)
}
