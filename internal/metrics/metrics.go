package metrics

import (
	"sync/atomic"
	"time"

	"github.com/tmblog/mpro/internal/apperr"
)

type Counter struct {
	value atomic.Uint64
}

func (c *Counter) Inc() {
	c.value.Add(1)
}

func (c *Counter) Add(n uint64) {
	c.value.Add(n)
}

func (c *Counter) Load() uint64 {
	return c.value.Load()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Engine counts what the order engine does. The zero value is ready to use.
type Engine struct {
	CartsCreated       Counter
	CheckoutsCompleted Counter
	CheckoutsFailed    Counter
	RefundsProcessed   Counter
	TableConflicts     Counter
	StockRejections    Counter
	RepricingWarnings  Counter

	checkoutNanos Counter
}

func NewEngine() *Engine {
	return &Engine{}
}

// ObserveError counts rejections by kind. Nil and other kinds are ignored.
func (e *Engine) ObserveError(err error) {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		e.TableConflicts.Inc()
	case apperr.KindInsufficientStock:
		e.StockRejections.Inc()
	}
}

// ObserveCheckout records one checkout attempt and how long it took.
func (e *Engine) ObserveCheckout(t *Timer, err error) {
	if err != nil {
		e.CheckoutsFailed.Inc()
		e.ObserveError(err)
		return
	}
	e.CheckoutsCompleted.Inc()
	e.checkoutNanos.Add(uint64(t.Duration().Nanoseconds()))
}

type Snapshot struct {
	CartsCreated        uint64        `json:"carts_created"`
	CheckoutsCompleted  uint64        `json:"checkouts_completed"`
	CheckoutsFailed     uint64        `json:"checkouts_failed"`
	RefundsProcessed    uint64        `json:"refunds_processed"`
	TableConflicts      uint64        `json:"table_conflicts"`
	StockRejections     uint64        `json:"stock_rejections"`
	RepricingWarnings   uint64        `json:"repricing_warnings"`
	AvgCheckoutDuration time.Duration `json:"avg_checkout_duration"`
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		CartsCreated:       e.CartsCreated.Load(),
		CheckoutsCompleted: e.CheckoutsCompleted.Load(),
		CheckoutsFailed:    e.CheckoutsFailed.Load(),
		RefundsProcessed:   e.RefundsProcessed.Load(),
		TableConflicts:     e.TableConflicts.Load(),
		StockRejections:    e.StockRejections.Load(),
		RepricingWarnings:  e.RepricingWarnings.Load(),
	}
	if s.CheckoutsCompleted > 0 {
		s.AvgCheckoutDuration = time.Duration(e.checkoutNanos.Load() / s.CheckoutsCompleted)
	}
	return s
}
