package market

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/adirathodd/titan-trading/internal/api"
	apperrors "github.com/adirathodd/titan-trading/internal/errors"
	"github.com/adirathodd/titan-trading/internal/models"
)

// MarketAPI is the slice of the backend client the controller uses.
type MarketAPI interface {
	GetSnapshot(ctx context.Context, ticker, period string) (*api.SnapshotResponse, error)
	Buy(ctx context.Context, ticker string, quantity float64) (*api.BuyResponse, error)
	Sell(ctx context.Context, ticker string, quantity float64) (*api.SellResponse, error)
}

// Balances receives confirmed cash balance changes from trades.
type Balances interface {
	UpdateCash(cash float64) error
}

// TradeLog records confirmed trades. May be nil to disable journaling.
type TradeLog interface {
	Record(trade *models.TradeRecord) (int64, error)
}

// View is a point-in-time copy of the controller state for rendering.
type View struct {
	Symbol    string
	Period    string
	Details   *api.StockDetails
	History   *api.HistoricalData
	Holdings  float64
	LoadError string
	Message   *Message
}

// Controller drives the live view for one ticker symbol: an immediate
// snapshot load on start, then a refresh on a fixed cadence until Close.
// Buy and sell intents are validated locally, dispatched, and applied only
// from the server-confirmed response.
type Controller struct {
	symbol   string
	client   MarketAPI
	balances Balances
	journal  TradeLog
	log      *slog.Logger

	pollInterval time.Duration
	messages     *MessageCenter

	mu        sync.Mutex
	period    string
	details   *api.StockDetails
	history   *api.HistoricalData
	holdings  float64
	loadError string
	nextSeq   uint64 // next snapshot request sequence
	applied   uint64 // highest sequence applied to state

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewController creates a controller for symbol. It does not poll until
// Start is called.
func NewController(symbol string, client MarketAPI, balances Balances, journal TradeLog, log *slog.Logger, pollInterval, messageTTL time.Duration) *Controller {
	return &Controller{
		symbol:       symbol,
		client:       client,
		balances:     balances,
		journal:      journal,
		log:          log.With("symbol", symbol),
		pollInterval: pollInterval,
		messages:     NewMessageCenter(messageTTL),
		period:       DefaultPeriod,
	}
}

// Start loads the first snapshot and begins the polling loop. Subsequent
// calls are no-ops; each interval fire supersedes, never stacks with, the
// previous load's effect on state.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)

		if err := c.LoadSnapshot(ctx); err != nil {
			c.log.Warn("initial snapshot load failed", "error", err)
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(c.pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := c.LoadSnapshot(ctx); err != nil {
						c.log.Debug("snapshot refresh failed", "error", err)
					}
				}
			}
		}()
	})
}

// Close cancels the polling loop and waits for it to stop. After Close no
// further requests are issued and no state is mutated by ticks.
func (c *Controller) Close() {
	// Consume the once so a Start racing with teardown never begins polling.
	c.startOnce.Do(func() {})
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.messages.Close()
}

// LoadSnapshot fetches current details, the historical series, and current
// holdings for the selected period and applies them. Responses are applied
// under a sequence guard so an older in-flight response never overwrites a
// newer one.
func (c *Controller) LoadSnapshot(ctx context.Context) error {
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	period := c.period
	c.mu.Unlock()

	snap, err := c.client.GetSnapshot(ctx, c.symbol, period)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < c.applied {
		// A newer response has already been applied.
		return nil
	}
	if ctx.Err() != nil {
		// View torn down while the request was in flight.
		return ctx.Err()
	}
	c.applied = seq

	if err != nil {
		c.loadError = apperrors.Message(err, "Failed to fetch stock data.")
		return err
	}

	c.details = &snap.StockDetails
	c.history = &snap.HistoricalData
	c.holdings = snap.CurrentHoldings
	c.loadError = ""
	return nil
}

// SetPeriod changes the historical window and triggers an immediate load.
func (c *Controller) SetPeriod(ctx context.Context, period string) error {
	if !ValidPeriod(period) {
		return apperrors.Validation("Invalid time period.")
	}
	c.mu.Lock()
	c.period = period
	c.mu.Unlock()
	return c.LoadSnapshot(ctx)
}

// Buy validates and dispatches a buy order. On confirmation the cash
// balance and local holdings are updated from the server response, never
// before it arrives.
func (c *Controller) Buy(ctx context.Context, quantity float64) error {
	if err := validQuantity(quantity); err != nil {
		c.messages.Post(MessageError, err.Error())
		return err
	}

	resp, err := c.client.Buy(ctx, c.symbol, quantity)
	if err != nil {
		c.messages.Post(MessageError, apperrors.Message(err, "Trade could not be completed."))
		return err
	}

	c.applyTrade(models.TradeSideBuy, quantity, resp.CashRemaining, resp.Message)
	return nil
}

// Sell validates and dispatches a sell order. A quantity beyond the known
// holdings is rejected locally with no network call; the server remains
// authoritative and may still reject.
func (c *Controller) Sell(ctx context.Context, quantity float64) error {
	if err := validQuantity(quantity); err != nil {
		c.messages.Post(MessageError, err.Error())
		return err
	}

	c.mu.Lock()
	held := c.holdings
	c.mu.Unlock()
	if quantity > held {
		err := apperrors.InsufficientHoldings(held)
		c.messages.Post(MessageError, err.Message)
		return err
	}

	resp, err := c.client.Sell(ctx, c.symbol, quantity)
	if err != nil {
		c.messages.Post(MessageError, apperrors.Message(err, "Trade could not be completed."))
		return err
	}

	c.applyTrade(models.TradeSideSell, quantity, resp.CashTotal, resp.Message)
	return nil
}

// applyTrade applies a server-confirmed delta: balance, holdings, journal,
// and success message.
func (c *Controller) applyTrade(side string, quantity, cashAfter float64, message string) {
	if err := c.balances.UpdateCash(cashAfter); err != nil {
		c.log.Error("updating cash balance", "error", err)
	}

	c.mu.Lock()
	if side == models.TradeSideBuy {
		c.holdings += quantity
	} else {
		c.holdings -= quantity
		if c.holdings < 0 {
			c.holdings = 0
		}
	}
	c.mu.Unlock()

	if c.journal != nil {
		if _, err := c.journal.Record(&models.TradeRecord{
			Symbol:    c.symbol,
			Side:      side,
			Quantity:  quantity,
			CashAfter: cashAfter,
			Message:   message,
		}); err != nil {
			c.log.Error("journaling trade", "error", err)
		}
	}

	if message == "" {
		message = "Trade completed."
	}
	c.messages.Post(MessageSuccess, message)
}

// View returns a copy of the current state for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Symbol:    c.symbol,
		Period:    c.period,
		Details:   c.details,
		History:   c.history,
		Holdings:  c.holdings,
		LoadError: c.loadError,
		Message:   c.messages.Current(),
	}
}

// Symbol returns the ticker symbol this controller serves.
func (c *Controller) Symbol() string {
	return c.symbol
}

// validQuantity rejects non-positive and non-finite share quantities before
// any request is sent.
func validQuantity(q float64) error {
	if math.IsNaN(q) || math.IsInf(q, 0) || q <= 0 {
		return apperrors.Validation("Please enter a valid quantity.")
	}
	return nil
}
