package api

// Request and response payloads for the titan backend API. Field names and
// paths mirror the server contract exactly.

// RegisterRequest is the body for POST /api/register/.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// RegisterResponse is the success payload for POST /api/register/.
type RegisterResponse struct {
	Message string `json:"message"`
}

// LoginResponse is the success payload for POST /api/login/.
type LoginResponse struct {
	Access   string  `json:"access"`
	Refresh  string  `json:"refresh"`
	Username string  `json:"username"`
	Cash     float64 `json:"cash"`
}

// VerifyResponse is the success payload for GET /api/verify/{uidb64}/{token}/.
type VerifyResponse struct {
	Message string `json:"message"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TickerSuggestion is one autocomplete result from GET /api/tickers.
type TickerSuggestion struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
}

// StockDetails describes the current state of one stock.
type StockDetails struct {
	Valid        bool    `json:"valid"`
	Ticker       string  `json:"ticker"`
	CompanyName  string  `json:"companyName"`
	CurrentPrice float64 `json:"currentPrice"`
	MarketCap    float64 `json:"marketCap"`
	Volume       float64 `json:"volume"`
}

// HistoricalData is the closing price series for the selected period.
type HistoricalData struct {
	Dates []string  `json:"dates"`
	Close []float64 `json:"close"`
}

// SnapshotResponse is the payload for GET /api/search/{ticker}/?period=.
// Message carries the server explanation when the ticker is invalid.
type SnapshotResponse struct {
	StockDetails    StockDetails   `json:"stockDetails"`
	HistoricalData  HistoricalData `json:"historicalData"`
	CurrentHoldings float64        `json:"currentHoldings"`
	Message         string         `json:"message,omitempty"`
}

// TradeRequest is the body for buy and sell endpoints.
type TradeRequest struct {
	Quantity float64 `json:"quantity"`
}

// BuyResponse is the success payload for POST /api/buy-stock/{ticker}/.
type BuyResponse struct {
	Message       string  `json:"message"`
	CashRemaining float64 `json:"cash_remaining"`
}

// SellResponse is the success payload for POST /api/sell-stock/{ticker}/.
type SellResponse struct {
	Message   string  `json:"message"`
	CashTotal float64 `json:"cash_total"`
}

// PortfolioPoint is one day of portfolio history.
type PortfolioPoint struct {
	Date       string  `json:"date"`
	TotalValue float64 `json:"total_value"`
}

// DashboardHolding is one currently held position on the dashboard.
type DashboardHolding struct {
	Ticker struct {
		Ticker string `json:"ticker"`
	} `json:"ticker"`
	CompanyName  string  `json:"company_name"`
	SharesOwned  float64 `json:"shares_owned"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
	TotalValue   float64 `json:"total_value"`
}

// DashboardResponse is the payload for GET /api/dashboard.
type DashboardResponse struct {
	PortfolioHistory []PortfolioPoint   `json:"portfolio_history"`
	CurrentHoldings  []DashboardHolding `json:"current_holdings"`
}

// errorBody covers the error payload shapes the backend uses.
type errorBody struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// message returns the first non-empty error string.
func (e *errorBody) message() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}
