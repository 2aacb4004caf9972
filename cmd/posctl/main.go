// Command posctl runs one engine operation against the configured database
// and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tmblog/mpro/internal/checkout"
	"github.com/tmblog/mpro/internal/config"
	"github.com/tmblog/mpro/internal/db"
	"github.com/tmblog/mpro/internal/engine"
	"github.com/tmblog/mpro/internal/kitchen"
	"github.com/tmblog/mpro/internal/logger"
	"github.com/tmblog/mpro/internal/messaging"
	"github.com/tmblog/mpro/internal/refund"
	"github.com/tmblog/mpro/internal/settings"
	"github.com/tmblog/mpro/internal/table"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errCartRequired = errors.New("-cart is required for this operation")

// Operator is the part of the engine posctl drives.
type Operator interface {
	OpenCarts(ctx context.Context) ([]engine.OpenCart, error)
	Snapshot(ctx context.Context, cartID int64) (*engine.Snapshot, error)
	Checkout(ctx context.Context, p checkout.Params) (*checkout.Result, error)
	Refund(ctx context.Context, p refund.Params) (*refund.Result, error)
	RefundSummary(ctx context.Context, cartID int64) (*refund.Summary, error)
	FreeTables(ctx context.Context) ([]table.RoomTables, error)
	DeleteCart(ctx context.Context, cartID int64) error
}

type options struct {
	op     string
	cartID int64
	method string
	amount string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("posctl", flag.ContinueOnError)
	fs.StringVar(&o.op, "op", "open", "open | snapshot | checkout | refund | refunds | free-tables | delete")
	fs.Int64Var(&o.cartID, "cart", 0, "cart id")
	fs.StringVar(&o.method, "method", "", "payment method for checkout, payment type for refund")
	fs.StringVar(&o.amount, "amount", "0", "discounted total for checkout, refund amount for refund")
	err := fs.Parse(args)
	return o, err
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	var notifier kitchen.Notifier = kitchen.NopNotifier{}
	if cfg.AMQPURL != "" {
		conn, err := messaging.Dial(cfg.AMQPURL, cfg.KitchenExchange)
		if err != nil {
			logger.L().Warn("kitchen broker unavailable, tickets will not be published", zap.Error(err))
		} else {
			pub := messaging.NewPublisher(conn, cfg.KitchenExchange)
			defer pub.Close()
			notifier = pub
		}
	}

	svc := engine.NewFromDB(database, settings.NewRepository(database, settings.FromConfig(cfg)), notifier)

	ctx := logger.EnsureRequestID(context.Background())
	if err := run(ctx, svc, o, os.Stdout); err != nil {
		logger.L().Error("operation failed", zap.String("op", o.op), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, svc Operator, o options, out io.Writer) error {
	needsCart := o.op != "open" && o.op != "free-tables"
	if needsCart && o.cartID == 0 {
		return errCartRequired
	}

	var (
		result any
		err    error
	)
	switch o.op {
	case "open":
		result, err = svc.OpenCarts(ctx)
	case "snapshot":
		result, err = svc.Snapshot(ctx, o.cartID)
	case "checkout":
		amount, perr := decimal.NewFromString(o.amount)
		if perr != nil {
			return fmt.Errorf("invalid -amount: %w", perr)
		}
		result, err = svc.Checkout(ctx, checkout.Params{
			CartID:          o.cartID,
			PaymentMethod:   o.method,
			DiscountedTotal: amount,
		})
	case "refund":
		amount, perr := decimal.NewFromString(o.amount)
		if perr != nil {
			return fmt.Errorf("invalid -amount: %w", perr)
		}
		result, err = svc.Refund(ctx, refund.Params{
			CartID:      o.cartID,
			Amount:      amount,
			PaymentType: o.method,
		})
	case "refunds":
		result, err = svc.RefundSummary(ctx, o.cartID)
	case "free-tables":
		result, err = svc.FreeTables(ctx)
	case "delete":
		err = svc.DeleteCart(ctx, o.cartID)
		result = map[string]any{"deleted": o.cartID}
	default:
		return fmt.Errorf("unknown op %q", o.op)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
