// Package api exposes the matching engine over HTTP: submit/cancel/get
// orders, book depth and BBO snapshots, health, and metrics.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"repello/internal/logging"
	"repello/internal/matching"
	"repello/internal/metrics"
	"repello/internal/models"
	"repello/internal/money"
)

// CreateOrderRequest is the POST /api/v1/orders body. Price/Quantity are
// decimal strings (spec §6); Price is omitted for MARKET orders.
type CreateOrderRequest struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Price         string  `json:"price,omitempty"`
	Quantity      string  `json:"quantity"`
	ClientOrderID *string `json:"client_order_id,omitempty"`
}

// TradeResponse is one trade produced by a Submit call.
type TradeResponse struct {
	TradeID      string `json:"trade_id"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	Timestamp    string `json:"timestamp"`
}

// OrderResponse is the order state returned from submit/get/cancel.
type OrderResponse struct {
	OrderID           string          `json:"order_id"`
	ClientOrderID     *string         `json:"client_order_id,omitempty"`
	Symbol            string          `json:"symbol"`
	Side              string          `json:"side"`
	Type              string          `json:"type"`
	Price             *string         `json:"price,omitempty"`
	Quantity          string          `json:"quantity"`
	FilledQuantity    string          `json:"filled_quantity"`
	RemainingQuantity string          `json:"remaining_quantity"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	Trades            []TradeResponse `json:"trades,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	OrdersProcessed int64  `json:"orders_processed"`
}

// Server is the HTTP server for the matching engine.
type Server struct {
	listenAddr string
	engine     *matching.Engine
	metrics    *metrics.Metrics
	log        zerolog.Logger
	startTime  time.Time
}

// NewServer builds a Server bound to listenAddr.
func NewServer(listenAddr string, engine *matching.Engine, m *metrics.Metrics, log zerolog.Logger) *Server {
	return &Server{
		listenAddr: listenAddr,
		engine:     engine,
		metrics:    m,
		log:        log,
		startTime:  time.Now(),
	}
}

// Run starts the HTTP server. It blocks until the server errors or is
// shut down.
func (s *Server) Run() error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/orders", s.withLogging(s.handleCreateOrder))
	mux.HandleFunc("DELETE /api/v1/orders/{id}", s.withLogging(s.handleCancelOrder))
	mux.HandleFunc("GET /api/v1/orders/{id}", s.withLogging(s.handleGetOrder))
	mux.HandleFunc("GET /api/v1/orderbook/{symbol}", s.withLogging(s.handleGetOrderBook))
	mux.HandleFunc("GET /api/v1/bbo/{symbol}", s.withLogging(s.handleGetBBO))
	mux.HandleFunc("GET /health", s.withLogging(s.handleHealthCheck))
	mux.HandleFunc("GET /metrics", s.withLogging(s.handleGetMetrics))
	mux.Handle("GET /metrics/prom", promhttp.HandlerFor(
		prometheusRegistryFor(s.metrics), promhttp.HandlerOpts{}))

	s.log.Info().Str("addr", s.listenAddr).Msg("listening")
	return http.ListenAndServe(s.listenAddr, mux)
}

func prometheusRegistryFor(m *metrics.Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewPromCollector(m))
	return reg
}

func (s *Server) withLogging(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		logging.LogAPIRequest(s.log, r.Method, r.URL.Path, rec.status)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var side models.Side
	if err := side.UnmarshalJSON([]byte(`"` + req.Side + `"`)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid side")
		return
	}
	var typ models.OrderType
	if err := typ.UnmarshalJSON([]byte(`"` + req.Type + `"`)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order type")
		return
	}

	quantity, err := money.ParsePositiveAmount(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity: "+err.Error())
		return
	}

	var price *money.Price
	if typ != models.Market {
		p, err := money.ParsePositiveAmount(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price: "+err.Error())
			return
		}
		price = &p
	}

	order, err := models.NewOrder(uuid.NewString(), req.ClientOrderID, req.Symbol, side, typ, quantity, price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, trades, err := s.engine.Submit(order)
	if err != nil {
		writeKindError(w, err)
		return
	}

	writeJSON(w, statusForOrder(order), toOrderResponse(order, trades))
}

func statusForOrder(order *models.Order) int {
	switch order.Status {
	case models.Filled:
		return http.StatusOK
	case models.PartiallyFilled, models.Open:
		return http.StatusCreated
	default:
		return http.StatusOK
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	order := s.engine.Cancel(orderID, symbol)
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	order := s.engine.Get(orderID, symbol)
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

func (s *Server) handleGetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	writeJSON(w, http.StatusOK, s.engine.Depth(symbol))
}

func (s *Server) handleGetBBO(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	writeJSON(w, http.StatusOK, s.engine.BBO(symbol))
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(time.Since(s.startTime).Seconds()),
		OrdersProcessed: s.metrics.OrdersReceived.Load(),
	})
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics)
}

func toOrderResponse(order *models.Order, trades []*models.Trade) OrderResponse {
	resp := OrderResponse{
		OrderID:           order.ID,
		ClientOrderID:     order.ClientOrderID,
		Symbol:            order.Symbol,
		Side:              order.Side.String(),
		Type:              order.Type.String(),
		Quantity:          order.Quantity.String(),
		FilledQuantity:    order.FilledQuantity.String(),
		RemainingQuantity: order.RemainingQuantity.String(),
		Status:            order.Status.String(),
		CreatedAt:         order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         order.UpdatedAt.Format(time.RFC3339),
	}
	if order.Price != nil {
		p := order.Price.String()
		resp.Price = &p
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, TradeResponse{
			TradeID:      t.TradeID,
			Price:        t.Price.String(),
			Quantity:     t.Quantity.String(),
			MakerOrderID: t.MakerOrderID,
			TakerOrderID: t.TakerOrderID,
			Timestamp:    t.Timestamp.Format(time.RFC3339),
		})
	}
	return resp
}

// writeKindError maps a §7 ErrorKind to the §6 wire status code table.
func writeKindError(w http.ResponseWriter, err error) {
	kind, _ := models.KindOf(err)
	switch kind {
	case models.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	default:
		// VALIDATION, DUPLICATE, OVERFILL, REJECTED_STATE, and anything
		// unrecognized all map to 400 (spec §6).
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
