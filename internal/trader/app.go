package trader

import (
	"context"
	"sync"
	"time"

	"bitstamp-trade-bot-go/internal/bitstamp"
	"bitstamp-trade-bot-go/internal/config"
	"bitstamp-trade-bot-go/internal/models"
	"bitstamp-trade-bot-go/internal/pubsub"
	"bitstamp-trade-bot-go/internal/repository"
	"bitstamp-trade-bot-go/internal/worker"
	"go.uber.org/zap"
)

// Deps bundles what every watcher needs. All of them share one client (one
// nonce sequence), one repository and one publisher.
type Deps struct {
	Logger  *zap.Logger
	Cfg     *config.Config
	Client  bitstamp.ClientInterface
	Repo    *repository.Repository
	Pub     pubsub.Publisher
	Account *models.Account
}

// pollWorker is the common surface of the forever-running watchers.
type pollWorker interface {
	Name() string
	RunOnce(ctx context.Context) (struct{}, error)
	RunForever(ctx context.Context) error
}

// App wires the watchers together and owns their lifecycle.
//
// Startup runs Monitoring, TickerWatcher, TransactionsWatcher and
// OrdersWatcher once each, sequentially, so the initial state is
// established before anything mutates concurrently. Steady state runs the
// same four forever in parallel. The BalanceWatcher and the Trader are only
// ever driven via RunOnce by the others.
type App struct {
	deps Deps
	log  *zap.Logger

	monitoring   *worker.Worker[struct{}]
	ticker       *worker.Worker[struct{}]
	balance      *worker.Worker[struct{}]
	transactions *worker.Worker[struct{}]
	orders       *worker.Worker[struct{}]
	trader       *worker.Worker[*placedTrade]

	// balanceMu serializes cross-worker balance refreshes: the balance
	// worker instance is shared, and a worker rejects concurrent starts.
	balanceMu sync.Mutex
}

// NewApp constructs the five watchers and the trader with the configured
// intervals.
func NewApp(deps Deps) *App {
	a := &App{deps: deps, log: deps.Logger.Named("trader")}
	intervals := deps.Cfg.Workers

	a.monitoring = worker.New("monitoring", seconds(intervals.MonitoringInterval), deps.Logger, a.beacon)
	a.ticker = worker.New("ticker", seconds(intervals.TickerInterval), deps.Logger, a.watchTicker)
	a.balance = worker.New("balance", seconds(intervals.BalanceInterval), deps.Logger, a.watchBalance)
	a.transactions = worker.New("transactions", seconds(intervals.TransactionsInterval), deps.Logger, a.syncTransactions)
	a.orders = worker.New("orders", seconds(intervals.OrdersInterval), deps.Logger, a.watchOrders)
	a.trader = worker.New("trader", seconds(intervals.OrdersInterval), deps.Logger, a.trade)
	return a
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Run drives the startup pass and then the steady state, until the context
// is cancelled.
func (a *App) Run(ctx context.Context) error {
	workers := []pollWorker{a.monitoring, a.ticker, a.transactions, a.orders}

	// First run them sequentially to avoid races against shared state.
	a.log.Info("starting sequential warmup pass")
	for _, w := range workers {
		if _, err := w.RunOnce(ctx); err != nil {
			return err
		}
	}

	// Then forever in parallel.
	a.log.Info("warmup done, starting concurrent watchers")
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w pollWorker) {
			defer wg.Done()
			if err := w.RunForever(ctx); err != nil && ctx.Err() == nil {
				a.log.Error("watcher exited", zap.String("worker", w.Name()), zap.Error(err))
			}
		}(w)
	}
	wg.Wait()
	return ctx.Err()
}

// refreshBalance runs one BalanceWatcher cycle on the shared instance.
// Several watchers trigger refreshes after mutating state; the mutex keeps
// two triggers from colliding on the single worker.
func (a *App) refreshBalance(ctx context.Context) error {
	a.balanceMu.Lock()
	defer a.balanceMu.Unlock()
	_, err := a.balance.RunOnce(ctx)
	return err
}
