package api

// Request and response shapes for the order-entry REST API and the
// WebSocket feed. The upstream proxy handles authentication and passes the
// owner id in the X-User-ID header.

// ==============================
// Requests
// ==============================

// PlaceOrderRequest is the body of POST /api/v1/trade/{asset}/order.
// Price is required even for market orders: it bounds the fund reservation
// taken before the engine answers.
type PlaceOrderRequest struct {
	Side      string `json:"side"`        // "buy" or "sell"
	OrderType string `json:"orderType"`   // "limit" or "market"
	Quantity  int64  `json:"quantity"`    // whole lots, > 0
	Price     int64  `json:"price"`       // integer quote units, > 0
	TIF       string `json:"timeInForce"` // "GTC" (default), "IOC", "FOK"
	STP       string `json:"stp"`         // "cancel_newest" (default), ...
}

// ==============================
// Responses
// ==============================

type PlaceOrderResponse struct {
	OrderID    string          `json:"orderId"`
	Status     string          `json:"status"`
	Executions []ExecutionInfo `json:"executions"`
}

type CancelOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type ExecutionInfo struct {
	Asset string `json:"asset"`
	Taker string `json:"taker"`
	Maker string `json:"maker"`
	Price int64  `json:"price"`
	Qty   int64  `json:"qty"`
	Seq   uint64 `json:"seq"`
}

// OrderbookSnapshot mirrors the engine's published depth snapshot.
type OrderbookSnapshot struct {
	Asset     string       `json:"asset"`
	Bids      []PriceLevel `json:"bids"` // best (highest) first
	Asks      []PriceLevel `json:"asks"` // best (lowest) first
	Seq       uint64       `json:"seq"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

type PriceLevel struct {
	Price int64 `json:"price"`
	Qty   int64 `json:"qty"`
}

type AssetInfo struct {
	Asset   string `json:"asset"`
	Enabled bool   `json:"enabled"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket messages
// ==============================

// WSSubscribeRequest subscribes or unsubscribes feed channels, e.g.
// {"op":"subscribe","channels":["trades:BTC"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// TradeUpdate is pushed on "trades:<asset>" after every execution.
type TradeUpdate struct {
	Type      string `json:"type"` // always "trade"
	Asset     string `json:"asset"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	Seq       uint64 `json:"seq"`
	Timestamp int64  `json:"timestamp"`
}
