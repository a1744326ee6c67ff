package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/voltexchange/voltex/pkg/app"
	"github.com/voltexchange/voltex/pkg/asset"
	"github.com/voltexchange/voltex/pkg/engine"
	"github.com/voltexchange/voltex/pkg/engine/book"
	"github.com/voltexchange/voltex/pkg/users"
)

// Server exposes the order-entry REST API and the WebSocket feed.
type Server struct {
	cx     *app.AppCx
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(cx *app.AppCx) *Server {
	s := &Server{
		cx:     cx,
		router: mux.NewRouter(),
		hub:    NewHub(cx.Log),
		log:    cx.Log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order entry
	api.HandleFunc("/trade/{asset}/order", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods("DELETE")

	// Market data
	api.HandleFunc("/assets", s.handleGetAssets).Methods("GET")
	api.HandleFunc("/markets/{asset}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/markets/{asset}/trades", s.handleGetTrades).Methods("GET")

	// Users
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")

	// WebSocket feed
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// Order entry
// ==============================

// handlePlaceOrder reserves funds, submits the order and waits for the
// engine with a bound. The deferred guard reverts the reservation unless
// the engine confirms processing in time.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFrom(w, r)
	if !ok {
		return
	}

	a, err := asset.Parse(mux.Vars(r)["asset"])
	if err != nil {
		s.log.Warnw("invalid_asset", "asset", mux.Vars(r)["asset"])
		respondError(w, http.StatusNotFound, "invalid asset", "")
		return
	}
	if !s.cx.Assets.Enabled(a) {
		s.log.Warnw("asset_not_enabled", "asset", a)
		respondError(w, http.StatusNotFound, "asset not enabled", "")
		return
	}

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd, err := buildPlaceOrder(owner, a, req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}

	slot, guard, err := s.cx.PlaceOrder(r.Context(), cmd)
	if err != nil {
		s.log.Warnw("place_order_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to place order", "")
		return
	}

	// The revert must not die with the request context.
	revertCtx := context.WithoutCancel(r.Context())
	defer guard.Finish(revertCtx)

	res, ok := slot.Wait(s.cx.EngineWait)
	if !ok {
		// Outcome unknown: the command may still execute. Assume not
		// committed and let the guard revert; reconciliation runs off the
		// execution journal.
		s.log.Warnw("trading_engine_unresponsive", "owner", owner, "asset", a)
		respondError(w, http.StatusInternalServerError, "trading engine unresponsive", "")
		return
	}
	if res.Err != nil {
		s.respondEngineError(w, res.Err)
		return
	}

	guard.Cancel(revertCtx)

	place := res.Place
	s.log.Infow("order_placed",
		"order_id", place.OrderID,
		"asset", a,
		"status", place.Status.String(),
		"executions", len(place.Executions))

	respondJSON(w, PlaceOrderResponse{
		OrderID:    place.OrderID.String(),
		Status:     place.Status.String(),
		Executions: executionInfos(place.Executions),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFrom(w, r)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	slot, err := s.cx.CancelOrder(engine.CancelOrder{Owner: owner, OrderID: orderID})
	if err != nil {
		s.log.Warnw("cancel_order_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to cancel order", "")
		return
	}

	res, ok := slot.Wait(s.cx.EngineWait)
	if !ok {
		s.log.Warnw("trading_engine_unresponsive", "owner", owner, "order_id", orderID)
		respondError(w, http.StatusInternalServerError, "trading engine unresponsive", "")
		return
	}
	if res.Err != nil {
		s.respondEngineError(w, res.Err)
		return
	}

	respondJSON(w, CancelOrderResponse{
		OrderID: res.Cancel.OrderID.String(),
		Status:  "cancelled",
	})
}

// ==============================
// Market data
// ==============================

func (s *Server) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	list := s.cx.Assets.List()
	out := make([]AssetInfo, 0, len(list))
	for _, a := range list {
		out = append(out, AssetInfo{Asset: a.String(), Enabled: s.cx.Assets.Enabled(a)})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	a, err := asset.Parse(mux.Vars(r)["asset"])
	if err != nil {
		respondError(w, http.StatusNotFound, "invalid asset", "")
		return
	}

	depth, ok := s.cx.Engine.Depth(a)
	if !ok {
		respondError(w, http.StatusNotFound, "orderbook not found", "")
		return
	}

	respondJSON(w, OrderbookSnapshot{
		Asset:     a.String(),
		Bids:      priceLevels(depth.Bids),
		Asks:      priceLevels(depth.Asks),
		Seq:       depth.Seq,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	a, err := asset.Parse(mux.Vars(r)["asset"])
	if err != nil {
		respondError(w, http.StatusNotFound, "invalid asset", "")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	execs, err := s.cx.Journal.RecentExecutions(a, limit)
	if err != nil {
		s.log.Errorw("recent_trades_failed", "asset", a, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load trades", "")
		return
	}
	respondJSON(w, executionInfos(execs))
}

// ==============================
// Users
// ==============================

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id", "")
		return
	}

	if s.cx.Users == nil {
		respondError(w, http.StatusServiceUnavailable, "user store unavailable", "")
		return
	}

	u, err := s.cx.Users.Get(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		respondError(w, http.StatusNotFound, "user not found", "")
		return
	}
	if err != nil {
		s.log.Errorw("get_user_failed", "user_id", id, "err", err)
		respondError(w, http.StatusInternalServerError, "failed to load user", "")
		return
	}
	respondJSON(w, u)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Feed
// ==============================

// BroadcastTrade pushes an execution to the asset's trade channel. Wired
// to the engine's OnExecution callback at startup.
func (s *Server) BroadcastTrade(ex book.Execution) {
	s.hub.BroadcastToChannel("trades:"+ex.Asset.String(), TradeUpdate{
		Type:      "trade",
		Asset:     ex.Asset.String(),
		Price:     ex.Price,
		Qty:       ex.Qty,
		Seq:       ex.Seq,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ==============================
// Helpers
// ==============================

// ownerFrom extracts the already-authenticated user id the upstream proxy
// put on the request. The exchange never authenticates here.
func (s *Server) ownerFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "missing user identity", "")
		return uuid.Nil, false
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid user identity", "")
		return uuid.Nil, false
	}
	return owner, true
}

// maxOrderInput caps price and quantity individually; the worst-case
// product maxOrderInput*maxOrderInput still fits in int64.
const maxOrderInput = int64(1) << 31

func buildPlaceOrder(owner uuid.UUID, a asset.Asset, req PlaceOrderRequest) (engine.PlaceOrder, error) {
	side, err := book.ParseSide(req.Side)
	if err != nil {
		return engine.PlaceOrder{}, err
	}
	orderType, err := book.ParseOrderType(req.OrderType)
	if err != nil {
		return engine.PlaceOrder{}, err
	}
	tif, err := book.ParseTimeInForce(req.TIF)
	if err != nil {
		return engine.PlaceOrder{}, err
	}
	stp, err := book.ParseSelfTradeProtection(req.STP)
	if err != nil {
		return engine.PlaceOrder{}, err
	}
	// Bounded like the original request types so price*quantity (the buy-side
	// reservation amount) can never overflow int64.
	if req.Quantity <= 0 || req.Quantity > maxOrderInput {
		return engine.PlaceOrder{}, errors.New("quantity out of range")
	}
	if req.Price <= 0 || req.Price > maxOrderInput {
		return engine.PlaceOrder{}, errors.New("price out of range")
	}

	return engine.PlaceOrder{
		Owner:    owner,
		Asset:    a,
		Side:     side,
		Type:     orderType,
		Quantity: req.Quantity,
		Price:    req.Price,
		TIF:      tif,
		STP:      stp,
	}, nil
}

func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnserializableInput):
		respondError(w, http.StatusInternalServerError,
			"this input was considered problematic and could not be processed", "")
	case errors.Is(err, engine.ErrAssetNotEnabled):
		respondError(w, http.StatusNotFound, "asset not enabled", "")
	case errors.Is(err, engine.ErrOrderNotFound), errors.Is(err, engine.ErrNotOrderOwner):
		respondError(w, http.StatusNotFound, "order not found", "")
	default:
		s.log.Warnw("engine_error", "err", err)
		respondError(w, http.StatusInternalServerError, "failed to process order", "")
	}
}

func executionInfos(execs []book.Execution) []ExecutionInfo {
	out := make([]ExecutionInfo, len(execs))
	for i, ex := range execs {
		out[i] = ExecutionInfo{
			Asset: ex.Asset.String(),
			Taker: ex.Taker.String(),
			Maker: ex.Maker.String(),
			Price: ex.Price,
			Qty:   ex.Qty,
			Seq:   ex.Seq,
		}
	}
	return out
}

func priceLevels(levels []book.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Qty: l.Qty}
	}
	return out
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
