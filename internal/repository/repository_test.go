package repository

import (
	"testing"
	"time"

	"bitstamp-trade-bot-go/internal/database"
	"bitstamp-trade-bot-go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupRepo creates a fresh in-memory database and an account to own the
// test data.
func setupRepo(t *testing.T) (*Repository, *models.Account) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	account := &models.Account{Username: "u1"}
	require.NoError(t, db.Create(account).Error)
	return New(db), account
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBalanceInference(t *testing.T) {
	repo, account := setupRepo(t)
	base := time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC)

	deposit := &models.Transaction{
		ID: 1, AccountID: account.ID, Type: models.Deposit,
		Datetime: base, USD: dec("100.00"),
	}
	require.NoError(t, repo.Transactions.Save(deposit))
	require.NotZero(t, deposit.BalanceID)

	inferred, err := repo.Balances.Latest(account.ID)
	require.NoError(t, err)
	require.NotNil(t, inferred)
	assert.True(t, inferred.Inferred)
	assert.True(t, inferred.USDBalance.Equal(dec("100.00")), "got %s", inferred.USDBalance)
	assert.True(t, inferred.BTCBalance.IsZero())

	trade := &models.Transaction{
		ID: 2, AccountID: account.ID, Type: models.MarketTrade,
		Datetime: base.Add(time.Hour),
		USD:      dec("-39.25"), BTC: dec("0.5"), Fee: dec("0.20"),
	}
	require.NoError(t, repo.Transactions.Save(trade))

	inferred, err = repo.Balances.Latest(account.ID)
	require.NoError(t, err)
	require.NotNil(t, inferred)
	// 100 − 39.25 − 0.20 fee
	assert.True(t, inferred.USDBalance.Equal(dec("60.55")), "got %s", inferred.USDBalance)
	assert.True(t, inferred.BTCBalance.Equal(dec("0.5")))
	assert.True(t, inferred.Fee.IsZero())
}

func TestBalanceInferenceIsPrefixDeterministic(t *testing.T) {
	repo, account := setupRepo(t)
	base := time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, usd := range []string{"100.00", "-30.00", "50.00"} {
		tx := &models.Transaction{
			ID: int64(i + 1), AccountID: account.ID, Type: models.Deposit,
			Datetime: base.Add(time.Duration(i) * time.Hour), USD: dec(usd),
		}
		require.NoError(t, repo.Transactions.Save(tx))
	}

	// A transaction dated inside the existing history sums exactly the
	// prefix up to its datetime, independent of insertion order.
	mid := &models.Transaction{
		ID: 10, AccountID: account.ID, Type: models.Deposit,
		Datetime: base.Add(90 * time.Minute), USD: dec("5.00"),
	}
	require.NoError(t, repo.Transactions.Save(mid))

	var balance models.Balance
	require.NoError(t, repoDB(repo).First(&balance, mid.BalanceID).Error)
	// prefix: 100 − 30 + 5 (itself); the later +50 is excluded.
	assert.True(t, balance.USDBalance.Equal(dec("75.00")), "got %s", balance.USDBalance)
}

// repoDB digs the gorm handle out for direct assertions.
func repoDB(r *Repository) *gorm.DB { return r.db }

func TestActiveTradingSession(t *testing.T) {
	now := time.Now()

	profile := func(repo *Repository, account *models.Account) models.StrategyProfile {
		p := models.StrategyProfile{
			AccountID: account.ID, Kind: models.ProfileFixed,
			Buy: dec("400"), Sell: dec("600"),
		}
		require.NoError(t, repoDB(repo).Create(&p).Error)
		return p
	}

	t.Run("NoSessions", func(t *testing.T) {
		repo, account := setupRepo(t)
		session, err := repo.Sessions.ActiveTradingSession(account.ID, now)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("PromotesQueuedExactlyOnce", func(t *testing.T) {
		repo, account := setupRepo(t)
		p := profile(repo, account)
		queued := models.TradingSession{
			AccountID: account.ID, StrategyProfileID: p.ID, Status: models.SessionQueued,
		}
		require.NoError(t, repoDB(repo).Create(&queued).Error)

		session, err := repo.Sessions.ActiveTradingSession(account.ID, now)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, models.SessionActive, session.Status)
		assert.NotNil(t, session.BecameActive)

		// A second call finds the same ACTIVE session; nothing else to
		// promote.
		again, err := repo.Sessions.ActiveTradingSession(account.ID, now)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, session.ID, again.ID)

		var activeCount int64
		require.NoError(t, repoDB(repo).Model(&models.TradingSession{}).
			Where("status = ?", models.SessionActive).Count(&activeCount).Error)
		assert.Equal(t, int64(1), activeCount)
	})

	t.Run("NeverReturnsFinished", func(t *testing.T) {
		repo, account := setupRepo(t)
		p := profile(repo, account)
		times := uint(1)
		active := models.TradingSession{
			AccountID: account.ID, StrategyProfileID: p.ID,
			Status: models.SessionActive, BecameActive: &now, RepeatTimes: &times,
		}
		require.NoError(t, repoDB(repo).Create(&active).Error)
		order := models.Order{
			ID: 1, AccountID: account.ID, TradingSessionID: &active.ID,
			Side: models.Buy, Status: models.OrderProcessed, Datetime: now,
		}
		require.NoError(t, repo.Orders.Save(&order))

		session, err := repo.Sessions.ActiveTradingSession(account.ID, now)
		require.NoError(t, err)
		assert.Nil(t, session)

		var reloaded models.TradingSession
		require.NoError(t, repoDB(repo).First(&reloaded, active.ID).Error)
		assert.Equal(t, models.SessionFinished, reloaded.Status)
		assert.NotNil(t, reloaded.BecameFinished)
	})

	t.Run("ExpiredSessionWalksToPrevious", func(t *testing.T) {
		repo, account := setupRepo(t)
		p := profile(repo, account)

		earlier := now.Add(-2 * time.Hour)
		previous := models.TradingSession{
			Model:     gorm.Model{CreatedAt: now.Add(-time.Hour)},
			AccountID: account.ID, StrategyProfileID: p.ID,
			Status: models.SessionActive, BecameActive: &earlier,
		}
		require.NoError(t, repoDB(repo).Create(&previous).Error)

		deadline := now.Add(-time.Minute)
		expired := models.TradingSession{
			Model:     gorm.Model{CreatedAt: now},
			AccountID: account.ID, StrategyProfileID: p.ID,
			Status: models.SessionActive, BecameActive: &earlier, RepeatUntil: &deadline,
		}
		require.NoError(t, repoDB(repo).Create(&expired).Error)

		session, err := repo.Sessions.ActiveTradingSession(account.ID, now)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, previous.ID, session.ID)

		var reloaded models.TradingSession
		require.NoError(t, repoDB(repo).First(&reloaded, expired.ID).Error)
		assert.Equal(t, models.SessionFinished, reloaded.Status)
	})
}

func TestTickerSaveDedupesByTimestamp(t *testing.T) {
	repo, _ := setupRepo(t)
	ts := time.Date(2014, 3, 4, 18, 0, 0, 0, time.UTC)

	created, err := repo.Tickers.Save(&models.Ticker{Timestamp: ts, Last: dec("678.57")})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Tickers.Save(&models.Ticker{Timestamp: ts, Last: dec("678.57")})
	require.NoError(t, err)
	assert.False(t, created)
}
