package trader

import (
	"context"
	"testing"
	"time"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/config"
	"bitstamp-trade-bot-go/internal/database"
	"bitstamp-trade-bot-go/internal/models"
	"bitstamp-trade-bot-go/internal/pubsub"
	"bitstamp-trade-bot-go/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type mockClient struct {
	mock.Mock
}

var _ bitstamp.ClientInterface = (*mockClient)(nil)

func (m *mockClient) Ticker(ctx context.Context) (*bitstamp.Ticker, error) {
	args := m.Called(ctx)
	ticker, _ := args.Get(0).(*bitstamp.Ticker)
	return ticker, args.Error(1)
}

func (m *mockClient) AccountBalance(ctx context.Context) (*bitstamp.Balance, error) {
	args := m.Called(ctx)
	balance, _ := args.Get(0).(*bitstamp.Balance)
	return balance, args.Error(1)
}

func (m *mockClient) UserTransactions(ctx context.Context, offset, limit int, descending bool) ([]bitstamp.Transaction, error) {
	args := m.Called(ctx, offset, limit, descending)
	transactions, _ := args.Get(0).([]bitstamp.Transaction)
	return transactions, args.Error(1)
}

func (m *mockClient) OpenOrders(ctx context.Context) ([]bitstamp.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]bitstamp.Order)
	return orders, args.Error(1)
}

func (m *mockClient) BuyLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*bitstamp.Order, error) {
	args := m.Called(ctx, amount, price)
	order, _ := args.Get(0).(*bitstamp.Order)
	return order, args.Error(1)
}

func (m *mockClient) SellLimitOrder(ctx context.Context, amount, price decimal.Decimal) (*bitstamp.Order, error) {
	args := m.Called(ctx, amount, price)
	order, _ := args.Get(0).(*bitstamp.Order)
	return order, args.Error(1)
}

func (m *mockClient) CancelOrder(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// setupApp builds an App over an in-memory database, a mocked exchange
// client and a discarding publisher.
func setupApp(t *testing.T, doTrade bool) (*App, *mockClient, *repository.Repository, *models.Account) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	account := &models.Account{Username: "u1"}
	require.NoError(t, db.Create(account).Error)

	repo := repository.New(db)
	client := &mockClient{}
	cfg := &config.Config{Trading: config.Trading{DoTrade: doTrade}}
	app := NewApp(Deps{
		Logger:  zap.NewNop(),
		Cfg:     cfg,
		Client:  client,
		Repo:    repo,
		Pub:     pubsub.NopPublisher{},
		Account: account,
	})
	return app, client, repo, account
}

func decEq(want string) interface{} {
	return mock.MatchedBy(func(got decimal.Decimal) bool {
		return got.Equal(d(want))
	})
}

// seedTradeState creates an active fixed 400/600 session, a processed buy as
// the last trade, and a ticker, so the trader has everything it needs to
// propose a sell.
func seedTradeState(t *testing.T, repo *repository.Repository, account *models.Account) {
	t.Helper()
	now := time.Now()

	profile := models.StrategyProfile{
		AccountID: account.ID, Kind: models.ProfileFixed,
		Buy: d("400"), Sell: d("600"),
	}
	require.NoError(t, repo.Sessions.Save(&models.TradingSession{
		AccountID:       account.ID,
		StrategyProfile: profile,
		Status:          models.SessionActive,
		BecameActive:    &now,
	}))

	require.NoError(t, repo.Orders.Save(&models.Order{
		ID: 1, AccountID: account.ID,
		Side: models.Buy, Price: d("450"), Amount: d("0.5"),
		Status: models.OrderProcessed, Datetime: now.Add(-time.Hour),
	}))

	_, err := repo.Tickers.Save(&models.Ticker{
		Timestamp: now, Last: d("640"), Bid: d("630"), Ask: d("650"),
	})
	require.NoError(t, err)
}

func exchangeBalance() *bitstamp.Balance {
	return &bitstamp.Balance{
		Fee:          d("0.2"),
		USDBalance:   d("10"),
		BTCBalance:   d("0.5"),
		USDAvailable: d("10"),
		BTCAvailable: d("0.5"),
	}
}

func TestTradeDryRunPlacesNothing(t *testing.T) {
	app, client, repo, account := setupApp(t, false)
	seedTradeState(t, repo, account)
	client.On("AccountBalance", mock.Anything).Return(exchangeBalance(), nil)

	placed, err := app.trade(context.Background())
	require.NoError(t, err)
	assert.Nil(t, placed)
	client.AssertNotCalled(t, "SellLimitOrder", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "BuyLimitOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestTradeSellSizing(t *testing.T) {
	app, client, repo, account := setupApp(t, true)
	seedTradeState(t, repo, account)
	client.On("AccountBalance", mock.Anything).Return(exchangeBalance(), nil)

	// All available BTC less the 0.2% fee margin, at the better of the
	// strategy price and the current ask.
	client.On("SellLimitOrder", mock.Anything, decEq("0.499"), decEq("650")).
		Return(&bitstamp.Order{ID: 123, Price: d("650"), Amount: d("0.499"), Type: 1}, nil)

	placed, err := app.trade(context.Background())
	require.NoError(t, err)
	require.NotNil(t, placed)
	assert.Equal(t, int64(123), placed.Order.ID)
	require.NotNil(t, placed.Session)
	client.AssertExpectations(t)
}

func TestTradeWithoutHistoryIsNoop(t *testing.T) {
	app, client, repo, account := setupApp(t, true)
	now := time.Now()
	require.NoError(t, repo.Sessions.Save(&models.TradingSession{
		AccountID: account.ID,
		StrategyProfile: models.StrategyProfile{
			AccountID: account.ID, Kind: models.ProfileFixed, Buy: d("400"), Sell: d("600"),
		},
		Status: models.SessionActive, BecameActive: &now,
	}))

	placed, err := app.trade(context.Background())
	require.NoError(t, err)
	assert.Nil(t, placed)
	client.AssertNotCalled(t, "AccountBalance", mock.Anything)
}

func TestSyncTransactionsSynthesizesProcessedOrder(t *testing.T) {
	app, client, repo, account := setupApp(t, false)
	orderID := int64(77)
	base := time.Date(2014, 3, 4, 10, 0, 0, 0, time.UTC)

	// The feed is newest-first; both legs sell against order 77.
	feed := []bitstamp.Transaction{
		{ID: 2, Datetime: bitstamp.APITime{Time: base.Add(time.Minute)}, Type: 2,
			USD: d("100"), BTC: d("-0.2"), Fee: d("0.5"), BTCUSD: d("500"), OrderID: &orderID},
		{ID: 1, Datetime: bitstamp.APITime{Time: base}, Type: 2,
			USD: d("200"), BTC: d("-0.4"), Fee: d("1.0"), BTCUSD: d("500"), OrderID: &orderID},
	}
	client.On("UserTransactions", mock.Anything, 0, transactionsPageSize, true).Return(feed, nil)
	client.On("UserTransactions", mock.Anything, transactionsPageSize, transactionsPageSize, true).
		Return([]bitstamp.Transaction{}, nil)
	client.On("AccountBalance", mock.Anything).Return(exchangeBalance(), nil)

	_, err := app.syncTransactions(context.Background())
	require.NoError(t, err)

	order, err := repo.Orders.Get(orderID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, models.OrderProcessed, order.Status)
	assert.Equal(t, models.Sell, order.Side)
	assert.True(t, order.Amount.Equal(d("0.6")), "amount %s", order.Amount)
	assert.True(t, order.Price.Equal(d("500")), "price %s", order.Price)
	assert.True(t, order.Total.Equal(d("300")), "total %s", order.Total)
	require.NotNil(t, order.BalanceID)

	latest, err := repo.Transactions.Latest(account.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.ID)
	require.NotNil(t, latest.OrderID)
	assert.Equal(t, orderID, *latest.OrderID)
	assert.NotZero(t, latest.BalanceID)

	count, err := repo.Orders.TransactionCount(orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	client.AssertExpectations(t)
}

func TestSweepOrderStatuses(t *testing.T) {
	app, _, repo, account := setupApp(t, false)
	now := time.Now()

	withLegs := int64(7)
	require.NoError(t, repo.Orders.Save(&models.Order{
		ID: withLegs, AccountID: account.ID, Side: models.Buy,
		Status: models.OrderOpen, Datetime: now,
	}))
	require.NoError(t, repo.Transactions.Save(&models.Transaction{
		ID: 1, AccountID: account.ID, OrderID: &withLegs,
		Type: models.MarketTrade, Datetime: now, USD: d("-50"), BTC: d("0.1"),
	}))

	require.NoError(t, repo.Orders.Save(&models.Order{
		ID: 9, AccountID: account.ID, Side: models.Sell,
		Status: models.OrderOpen, Datetime: now,
	}))

	// Neither order is on the exchange's open list anymore.
	changed, err := app.sweepOrderStatuses(nil)
	require.NoError(t, err)
	assert.True(t, changed)

	order, err := repo.Orders.Get(withLegs)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessed, order.Status)
	require.NotNil(t, order.StatusChanged)

	order, err = repo.Orders.Get(9)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, order.Status)
	require.NotNil(t, order.StatusChanged)
}

func TestWatchOrdersSavesUnknownOpenOrder(t *testing.T) {
	app, client, repo, _ := setupApp(t, false)

	reported := bitstamp.Order{
		ID: 55, Price: d("600"), Amount: d("0.1"), Type: 1,
		Datetime: bitstamp.APITime{Time: time.Now().UTC().Truncate(time.Second)},
	}
	client.On("OpenOrders", mock.Anything).Return([]bitstamp.Order{reported}, nil)
	client.On("AccountBalance", mock.Anything).Return(exchangeBalance(), nil)

	_, err := app.watchOrders(context.Background())
	require.NoError(t, err)

	order, err := repo.Orders.Get(55)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, models.OrderOpen, order.Status)
	assert.Equal(t, models.Sell, order.Side)
	// On the book before the bot saw it, so it belongs to no session.
	assert.Nil(t, order.TradingSessionID)
	client.AssertExpectations(t)
}
