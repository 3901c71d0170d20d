package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"signal_hub/internal/domain"
	"signal_hub/internal/infra"
	"signal_hub/internal/service"

	"github.com/shopspring/decimal"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

func floatDecimal(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromFloat(*f)
}

// Server exposes the hub over HTTP: internal signal submission, subscriber
// pulls, feedback ingestion, a live websocket feed and a status snapshot.
type Server struct {
	broadcaster *service.Broadcaster
	oracle      service.Oracle
	feedback    *infra.FeedbackLog
	hub         *Hub
	internalKey string
	log         *slog.Logger
	mux         *http.ServeMux
}

// NewServer wires all routes. The hub may be nil when live push is disabled.
func NewServer(broadcaster *service.Broadcaster, oracle service.Oracle, feedback *infra.FeedbackLog, hub *Hub, internalKey string, log *slog.Logger) *Server {
	s := &Server{
		broadcaster: broadcaster,
		oracle:      oracle,
		feedback:    feedback,
		hub:         hub,
		internalKey: internalKey,
		log:         log,
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/internal/submit_signal", s.handleSubmit)
	s.mux.HandleFunc("GET /api/get_signal", s.handleGetSignal)
	s.mux.HandleFunc("POST /api/feedback_trade", s.handleFeedback)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	if hub != nil {
		s.mux.HandleFunc("GET /ws/signals", hub.HandleWS)
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// submitRequest is the inbound shape from the analysis process. Either a
// prebuilt signal_json is forwarded verbatim, or entry/sl/tp are provided and
// the canonical payload is built server-side.
type submitRequest struct {
	APIKey     string         `json:"api_key"`
	Symbol     string         `json:"symbol"`
	Signal     string         `json:"signal"`
	OrderType  string         `json:"order_type"`
	SignalJSON map[string]any `json:"signal_json"`
	Entry      *float64       `json:"entry,omitempty"`
	StopLoss   *float64       `json:"sl,omitempty"`
	TakeProfit *float64       `json:"tp,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.ValidationError{Field: "body", Err: domain.ErrNoBody})
		return
	}

	// Shared-secret comparison: the internal key or any licensed subscriber
	// key may submit.
	if req.APIKey != "" && req.APIKey != s.internalKey {
		valid, err := s.oracle.ValidKey(req.APIKey, timeNow())
		if err != nil {
			infra.GlobalMetrics.RecordError()
			writeError(w, &domain.StorageError{Op: "validate submitter", Err: err})
			return
		}
		if !valid {
			infra.GlobalMetrics.RecordAuthFailure()
			writeError(w, &domain.AuthError{Key: req.APIKey})
			return
		}
	}

	payload := req.SignalJSON
	if payload == nil && req.Entry != nil {
		orderType := strings.ToUpper(req.OrderType)
		if orderType == "" {
			orderType = strings.ToUpper(req.Signal)
		}
		ticket := domain.Ticket{Type: orderType}
		ticket.Entry = floatDecimal(req.Entry)
		ticket.StopLoss = floatDecimal(req.StopLoss)
		ticket.TakeProfit = floatDecimal(req.TakeProfit)
		payload = ticket.Flatten(req.Symbol)
	}

	sig, subscribers, err := s.broadcaster.Submit(service.Submission{
		APIKey:    req.APIKey,
		Symbol:    req.Symbol,
		Direction: req.Signal,
		OrderType: req.OrderType,
		Payload:   payload,
	})
	if err != nil {
		if domain.IsAdmission(err) {
			infra.GlobalMetrics.RecordRejected()
		} else {
			infra.GlobalMetrics.RecordError()
		}
		writeError(w, err)
		return
	}

	infra.GlobalMetrics.RecordAccepted(subscribers)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Signal received and broadcasted",
		"signal_id": sig.ID,
	})
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	symbol := r.URL.Query().Get("symbol")

	resp, err := s.broadcaster.GetSignal(key, symbol)
	if err != nil {
		if domain.IsAuth(err) {
			infra.GlobalMetrics.RecordAuthFailure()
		} else {
			infra.GlobalMetrics.RecordError()
		}
		writeError(w, err)
		return
	}

	if resp["order_type"] == domain.OrderWait && resp["signal_id"] == nil {
		infra.GlobalMetrics.RecordCacheWait()
	} else {
		infra.GlobalMetrics.RecordCacheHit()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil || len(record) == 0 {
		writeError(w, &domain.ValidationError{Field: "body", Err: domain.ErrNoBody})
		return
	}

	if err := s.feedback.Append(record); err != nil {
		infra.GlobalMetrics.RecordError()
		writeError(w, err)
		return
	}

	infra.GlobalMetrics.RecordFeedback()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

// writeError maps the domain error taxonomy onto HTTP statuses. Business
// rejections and infrastructure failures are told apart by type.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsAuth(err):
		status = http.StatusUnauthorized
	case domain.IsAdmission(err):
		status = http.StatusConflict
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}
