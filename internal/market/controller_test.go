package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/adirathodd/titan-trading/internal/api"
	apperrors "github.com/adirathodd/titan-trading/internal/errors"
	"github.com/adirathodd/titan-trading/internal/models"
)

// fakeMarketAPI counts calls and returns scripted responses.
type fakeMarketAPI struct {
	mu            sync.Mutex
	snapshotCalls int
	buyCalls      int
	sellCalls     int

	snapshot    *api.SnapshotResponse
	snapshotErr error
	buyResp     *api.BuyResponse
	buyErr      error
	sellResp    *api.SellResponse
	sellErr     error

	lastPeriod string
}

func (f *fakeMarketAPI) GetSnapshot(ctx context.Context, ticker, period string) (*api.SnapshotResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotCalls++
	f.lastPeriod = period
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeMarketAPI) Buy(ctx context.Context, ticker string, quantity float64) (*api.BuyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buyCalls++
	if f.buyErr != nil {
		return nil, f.buyErr
	}
	return f.buyResp, nil
}

func (f *fakeMarketAPI) Sell(ctx context.Context, ticker string, quantity float64) (*api.SellResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sellCalls++
	if f.sellErr != nil {
		return nil, f.sellErr
	}
	return f.sellResp, nil
}

func (f *fakeMarketAPI) counts() (snapshots, buys, sells int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotCalls, f.buyCalls, f.sellCalls
}

// fakeBalances records the last confirmed cash balance.
type fakeBalances struct {
	mu   sync.Mutex
	cash float64
	set  bool
}

func (f *fakeBalances) UpdateCash(cash float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cash = cash
	f.set = true
	return nil
}

// fakeTradeLog collects journaled trades.
type fakeTradeLog struct {
	mu     sync.Mutex
	trades []*models.TradeRecord
}

func (f *fakeTradeLog) Record(trade *models.TradeRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trade)
	return int64(len(f.trades)), nil
}

func validSnapshot(holdings float64) *api.SnapshotResponse {
	return &api.SnapshotResponse{
		StockDetails: api.StockDetails{
			Valid:        true,
			Ticker:       "AAPL",
			CompanyName:  "Apple Inc.",
			CurrentPrice: 190.5,
		},
		HistoricalData: api.HistoricalData{
			Dates: []string{"2026-08-28", "2026-08-29"},
			Close: []float64{188.2, 190.5},
		},
		CurrentHoldings: holdings,
	}
}

func newTestController(fake *fakeMarketAPI) (*Controller, *fakeBalances, *fakeTradeLog) {
	balances := &fakeBalances{}
	journal := &fakeTradeLog{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController("AAPL", fake, balances, journal, logger, time.Hour, time.Minute)
	return ctrl, balances, journal
}

func TestController_LoadSnapshot_AppliesState(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(3)}
	ctrl, _, _ := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	view := ctrl.View()
	if view.Details == nil || view.Details.CompanyName != "Apple Inc." {
		t.Errorf("View().Details = %+v, want applied details", view.Details)
	}
	if view.Holdings != 3 {
		t.Errorf("View().Holdings = %v, want 3", view.Holdings)
	}
	if view.LoadError != "" {
		t.Errorf("View().LoadError = %q, want empty", view.LoadError)
	}
	if view.Period != DefaultPeriod {
		t.Errorf("View().Period = %q, want %q", view.Period, DefaultPeriod)
	}
}

func TestController_LoadSnapshot_InvalidTicker_SetsLoadError(t *testing.T) {
	fake := &fakeMarketAPI{snapshotErr: apperrors.TickerNotFound("No data found for ticker INVALID.")}
	ctrl, _, _ := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err == nil {
		t.Fatal("LoadSnapshot() error = nil, want ticker error")
	}

	view := ctrl.View()
	if view.LoadError != "No data found for ticker INVALID." {
		t.Errorf("View().LoadError = %q, want server explanation", view.LoadError)
	}
	if view.Details != nil {
		t.Errorf("View().Details = %+v, want nil", view.Details)
	}
}

func TestController_LoadSnapshot_RecoversAfterError(t *testing.T) {
	fake := &fakeMarketAPI{snapshotErr: apperrors.FetchFailed(errors.New("boom"))}
	ctrl, _, _ := newTestController(fake)

	_ = ctrl.LoadSnapshot(context.Background())
	if ctrl.View().LoadError == "" {
		t.Fatal("LoadError empty after failed load")
	}

	fake.mu.Lock()
	fake.snapshotErr = nil
	fake.snapshot = validSnapshot(0)
	fake.mu.Unlock()

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if got := ctrl.View().LoadError; got != "" {
		t.Errorf("LoadError = %q after successful reload, want empty", got)
	}
}

func TestController_SetPeriod_Valid_TriggersLoad(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(0)}
	ctrl, _, _ := newTestController(fake)

	if err := ctrl.SetPeriod(context.Background(), "6mo"); err != nil {
		t.Fatalf("SetPeriod() error = %v", err)
	}

	if got := ctrl.View().Period; got != "6mo" {
		t.Errorf("Period = %q, want 6mo", got)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.lastPeriod != "6mo" {
		t.Errorf("snapshot requested with period %q, want 6mo", fake.lastPeriod)
	}
	if fake.snapshotCalls != 1 {
		t.Errorf("snapshotCalls = %d, want 1", fake.snapshotCalls)
	}
}

func TestController_SetPeriod_Invalid_NoRequest(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(0)}
	ctrl, _, _ := newTestController(fake)

	err := ctrl.SetPeriod(context.Background(), "7weeks")
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("SetPeriod() error = %v, want validation error", err)
	}

	if snapshots, _, _ := fake.counts(); snapshots != 0 {
		t.Errorf("snapshotCalls = %d after invalid period, want 0", snapshots)
	}
	if got := ctrl.View().Period; got != DefaultPeriod {
		t.Errorf("Period = %q after rejected change, want %q", got, DefaultPeriod)
	}
}

func TestController_Buy_InvalidQuantity_NoRequest(t *testing.T) {
	for _, qty := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		fake := &fakeMarketAPI{buyResp: &api.BuyResponse{}}
		ctrl, _, _ := newTestController(fake)

		err := ctrl.Buy(context.Background(), qty)
		if !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("Buy(%v) error = %v, want validation error", qty, err)
		}
		if _, buys, _ := fake.counts(); buys != 0 {
			t.Errorf("Buy(%v) issued %d requests, want 0", qty, buys)
		}

		msg := ctrl.View().Message
		if msg == nil || msg.Kind != MessageError {
			t.Errorf("Buy(%v) posted message %+v, want error message", qty, msg)
		}
	}
}

func TestController_Buy_Confirmed_AppliesServerDelta(t *testing.T) {
	fake := &fakeMarketAPI{
		snapshot: validSnapshot(2),
		buyResp:  &api.BuyResponse{Message: "Purchased 10 shares of AAPL.", CashRemaining: 500},
	}
	ctrl, balances, journal := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if err := ctrl.Buy(context.Background(), 10); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	balances.mu.Lock()
	if !balances.set || balances.cash != 500 {
		t.Errorf("confirmed cash = (%v, %v), want (500, set)", balances.cash, balances.set)
	}
	balances.mu.Unlock()

	view := ctrl.View()
	if view.Holdings != 12 {
		t.Errorf("Holdings = %v after buying 10 on top of 2, want 12", view.Holdings)
	}
	if view.Message == nil || view.Message.Kind != MessageSuccess || view.Message.Text != "Purchased 10 shares of AAPL." {
		t.Errorf("Message = %+v, want server confirmation text", view.Message)
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.trades) != 1 {
		t.Fatalf("journaled %d trades, want 1", len(journal.trades))
	}
	if journal.trades[0].Side != models.TradeSideBuy || journal.trades[0].CashAfter != 500 {
		t.Errorf("journaled trade = %+v", journal.trades[0])
	}
}

func TestController_Buy_ServerRejects_NoLocalChange(t *testing.T) {
	fake := &fakeMarketAPI{
		snapshot: validSnapshot(2),
		buyErr:   apperrors.TradeFailed("Insufficient funds.", nil),
	}
	ctrl, balances, _ := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if err := ctrl.Buy(context.Background(), 10); err == nil {
		t.Fatal("Buy() error = nil, want trade error")
	}

	if got := ctrl.View().Holdings; got != 2 {
		t.Errorf("Holdings = %v after rejected buy, want 2", got)
	}
	balances.mu.Lock()
	if balances.set {
		t.Error("cash updated after rejected buy")
	}
	balances.mu.Unlock()

	msg := ctrl.View().Message
	if msg == nil || msg.Kind != MessageError || msg.Text != "Insufficient funds." {
		t.Errorf("Message = %+v, want server rejection text", msg)
	}
}

func TestController_Sell_BeyondHoldings_NoRequest(t *testing.T) {
	fake := &fakeMarketAPI{
		snapshot: validSnapshot(3),
		sellResp: &api.SellResponse{},
	}
	ctrl, _, _ := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	err := ctrl.Sell(context.Background(), 5)
	if !errors.Is(err, apperrors.ErrInsufficientHoldings) {
		t.Fatalf("Sell() error = %v, want insufficient holdings", err)
	}

	if _, _, sells := fake.counts(); sells != 0 {
		t.Errorf("Sell() issued %d requests, want 0", sells)
	}
	msg := ctrl.View().Message
	if msg == nil || msg.Kind != MessageError {
		t.Errorf("Message = %+v, want error message", msg)
	}
}

func TestController_Sell_Confirmed_AppliesServerDelta(t *testing.T) {
	fake := &fakeMarketAPI{
		snapshot: validSnapshot(10),
		sellResp: &api.SellResponse{Message: "Sold 4 shares of AAPL.", CashTotal: 1400},
	}
	ctrl, balances, _ := newTestController(fake)

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if err := ctrl.Sell(context.Background(), 4); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	if got := ctrl.View().Holdings; got != 6 {
		t.Errorf("Holdings = %v after selling 4 of 10, want 6", got)
	}
	balances.mu.Lock()
	if balances.cash != 1400 {
		t.Errorf("confirmed cash = %v, want 1400", balances.cash)
	}
	balances.mu.Unlock()
}

// overlappingSnapshotAPI answers the second snapshot request immediately and
// holds the first until released, so responses return in reverse order.
type overlappingSnapshotAPI struct {
	mu            sync.Mutex
	calls         int
	firstInFlight chan struct{}
	release       chan struct{}
}

func (f *overlappingSnapshotAPI) GetSnapshot(ctx context.Context, ticker, period string) (*api.SnapshotResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call == 1 {
		close(f.firstInFlight)
		<-f.release
		snap := validSnapshot(1)
		snap.StockDetails.CompanyName = "Stale Snapshot Inc."
		return snap, nil
	}
	snap := validSnapshot(7)
	snap.StockDetails.CompanyName = "Fresh Snapshot Inc."
	return snap, nil
}

func (f *overlappingSnapshotAPI) Buy(ctx context.Context, ticker string, quantity float64) (*api.BuyResponse, error) {
	return &api.BuyResponse{}, nil
}

func (f *overlappingSnapshotAPI) Sell(ctx context.Context, ticker string, quantity float64) (*api.SellResponse, error) {
	return &api.SellResponse{}, nil
}

func TestController_LoadSnapshot_OlderResponseNeverOverwritesNewer(t *testing.T) {
	fake := &overlappingSnapshotAPI{
		firstInFlight: make(chan struct{}),
		release:       make(chan struct{}),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController("AAPL", fake, &fakeBalances{}, nil, logger, time.Hour, time.Minute)

	older := make(chan error, 1)
	go func() { older <- ctrl.LoadSnapshot(context.Background()) }()
	<-fake.firstInFlight

	if err := ctrl.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if got := ctrl.View().Details.CompanyName; got != "Fresh Snapshot Inc." {
		t.Fatalf("Details.CompanyName = %q, want newer response applied", got)
	}

	close(fake.release)
	if err := <-older; err != nil {
		t.Fatalf("older LoadSnapshot() error = %v", err)
	}

	view := ctrl.View()
	if view.Details.CompanyName != "Fresh Snapshot Inc." {
		t.Errorf("Details.CompanyName = %q, older response overwrote newer state", view.Details.CompanyName)
	}
	if view.Holdings != 7 {
		t.Errorf("Holdings = %v, want 7 from the newer response", view.Holdings)
	}
}

func TestController_Close_BeforeStart_NeverPolls(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(0)}
	ctrl, _, _ := newTestController(fake)

	ctrl.Close()
	ctrl.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	if snapshots, _, _ := fake.counts(); snapshots != 0 {
		t.Errorf("snapshotCalls = %d after Start on a closed controller, want 0", snapshots)
	}
}

func TestController_StartAndClose_StopsPolling(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(0)}
	balances := &fakeBalances{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController("AAPL", fake, balances, nil, logger, 20*time.Millisecond, time.Minute)

	ctrl.Start(context.Background())

	// Initial load plus at least one tick.
	deadline := time.After(2 * time.Second)
	for {
		if snapshots, _, _ := fake.counts(); snapshots >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("polling never refreshed the snapshot")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ctrl.Close()
	after, _, _ := fake.counts()

	time.Sleep(100 * time.Millisecond)
	if final, _, _ := fake.counts(); final != after {
		t.Errorf("snapshot calls went from %d to %d after Close()", after, final)
	}
}

func TestController_Start_SecondCallIsNoOp(t *testing.T) {
	fake := &fakeMarketAPI{snapshot: validSnapshot(0)}
	ctrl, _, _ := newTestController(fake)
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Start(context.Background())

	if snapshots, _, _ := fake.counts(); snapshots != 1 {
		t.Errorf("snapshotCalls = %d after double Start with long interval, want 1", snapshots)
	}
}
