package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/dinepilot/internal/adapter/handler"
	"github.com/rl1809/dinepilot/internal/adapter/notify"
	"github.com/rl1809/dinepilot/internal/adapter/storage"
	"github.com/rl1809/dinepilot/internal/auth"
	"github.com/rl1809/dinepilot/internal/config"
	"github.com/rl1809/dinepilot/internal/core/domain"
	"github.com/rl1809/dinepilot/internal/core/service"
	"github.com/rl1809/dinepilot/internal/logger"
	"github.com/rl1809/dinepilot/internal/panel"
)

var guests = []string{"Priya", "Ravi", "Asha", "Vikram", "Meera", "Kabir", "Nisha", "Arjun"}

type options struct {
	customers int
	grpcAddr  string
	interval  time.Duration
	timeout   time.Duration
	logLevel  string
}

// parseFlags reads the command line; the polling interval defaults to the
// configured POLL_INTERVAL.
func parseFlags(args []string, cfg config.Config) (options, error) {
	var opts options
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.IntVar(&opts.customers, "customers", 5, "number of customers placing one order each")
	fs.StringVar(&opts.grpcAddr, "grpc", "", "run against a remote order service at this gRPC address instead of in-process")
	fs.DurationVar(&opts.interval, "interval", cfg.PollInterval, "panel polling interval (POLL_INTERVAL)")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.interval <= 0 {
		return options{}, errors.New("-interval must be positive")
	}
	return opts, nil
}

func main() {
	cfg := config.Load()

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New(logger.Options{Service: "dinepilot-simulate", Env: "sim", Level: opts.logLevel})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	stores, closeStore, err := openStore(opts.grpcAddr, cfg.JWTSecret, log)
	if err != nil {
		log.Error("failed to open store", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	start := time.Now()
	res, err := simulate(ctx, stores, opts.customers, opts.interval, log)
	if err != nil {
		log.Error("simulation failed", slog.Any("err", err))
		os.Exit(1)
	}
	printResults(res, time.Since(start))

	if !res.ok() {
		os.Exit(1)
	}
}

// storeFor hands each panel a store acting as name with role.
type storeFor func(name string, role domain.Role) (panel.Store, error)

// openStore runs in-process by default. Remote panels share one connection
// and sign their own tokens with jwtSecret.
func openStore(grpcAddr, jwtSecret string, log *slog.Logger) (storeFor, func(), error) {
	if grpcAddr == "" {
		svc := service.NewOrderService(storage.NewMemoryAdapter(), notify.NewLogNotifier(log), service.WithLogger(log))
		return func(string, domain.Role) (panel.Store, error) { return svc, nil }, func() {}, nil
	}

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", grpcAddr, err)
	}
	stores := func(name string, role domain.Role) (panel.Store, error) {
		token, err := auth.GenerateToken(jwtSecret, name, role)
		if err != nil {
			return nil, fmt.Errorf("token for %s: %w", name, err)
		}
		return handler.NewGRPCClient(conn, token), nil
	}
	return stores, func() { conn.Close() }, nil
}

type results struct {
	placed    []domain.Order
	summary   panel.Summary
	histories map[string][]domain.Order
}

func (r results) expectedRevenue() int64 {
	var total int64
	for _, o := range r.placed {
		total += o.TotalAmount
	}
	return total
}

// unserved lists "customer: order status" for every order a customer panel
// still sees as not served.
func (r results) unserved() []string {
	var out []string
	for name, history := range r.histories {
		for _, o := range history {
			if o.Status != domain.OrderStatusServed {
				out = append(out, fmt.Sprintf("%s: %s %s", name, o.ID, o.Status))
			}
		}
	}
	sort.Strings(out)
	return out
}

func (r results) ok() bool {
	return r.summary.ServedCount == len(r.placed) &&
		r.summary.Revenue == r.expectedRevenue() &&
		len(r.unserved()) == 0
}

// simulate drives one customer panel per guest plus a chef and a manager,
// each polling on its own goroutine, until every order is served.
func simulate(ctx context.Context, stores storeFor, n int, interval time.Duration, log *slog.Logger) (results, error) {
	chefStore, err := stores("Chef", domain.RoleChef)
	if err != nil {
		return results{}, err
	}
	managerStore, err := stores("Manager", domain.RoleManager)
	if err != nil {
		return results{}, err
	}
	chef := panel.NewChef(chefStore)
	manager := panel.NewManager(managerStore)
	if err := manager.Reset(ctx); err != nil {
		return results{}, fmt.Errorf("reset: %w", err)
	}

	panels := make([]*panel.Customer, n)
	for i := range panels {
		name := guests[i%len(guests)]
		if i >= len(guests) {
			name = fmt.Sprintf("%s %d", name, i/len(guests)+1)
		}
		store, err := stores(name, domain.RoleCustomer)
		if err != nil {
			return results{}, err
		}
		panels[i] = panel.NewCustomer(store, name)
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	poller := panel.NewPoller(interval, log)
	pollers, pollCtx := errgroup.WithContext(pollCtx)
	pollers.Go(func() error { return poller.Run(pollCtx, "chef", chef) })
	pollers.Go(func() error { return poller.Run(pollCtx, "manager", manager) })
	for _, c := range panels {
		c := c
		pollers.Go(func() error { return poller.Run(pollCtx, "customer:"+c.Name(), c) })
	}

	// Customers order concurrently.
	menu := domain.Menu()
	placed := make([]domain.Order, n)
	orders, octx := errgroup.WithContext(ctx)
	for i, c := range panels {
		i, c := i, c
		orders.Go(func() error {
			c.AddToCart(menu[i%len(menu)])
			c.AddToCart(menu[(i*5+3)%len(menu)])
			o, err := c.PlaceOrder(octx)
			if err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			placed[i] = o
			return nil
		})
	}
	if err := orders.Wait(); err != nil {
		return results{}, err
	}

	staff := domain.StaffDirectory()
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	served := 0
	for served < n {
		for _, o := range chef.Queue() {
			var err error
			switch o.Status {
			case domain.OrderStatusPlaced:
				err = chef.StartCooking(ctx, o.ID)
			case domain.OrderStatusCooking:
				err = chef.MarkReady(ctx, o.ID)
			}
			// another poll may have moved it first
			if err != nil && !errors.Is(err, service.ErrInvalidTransition) {
				return results{}, err
			}
		}

		for _, o := range manager.Ready() {
			if err := manager.Serve(ctx, o.ID, staff[served%len(staff)].ID); err != nil && !errors.Is(err, service.ErrInvalidTransition) {
				return results{}, err
			}
		}
		served = len(manager.Served())

		select {
		case <-ctx.Done():
			return results{}, fmt.Errorf("served %d of %d orders: %w", served, n, ctx.Err())
		case <-ticker.C:
		}
	}

	stopPolling()
	if err := pollers.Wait(); err != nil {
		return results{}, err
	}

	histories := make(map[string][]domain.Order, n)
	for _, c := range panels {
		if err := c.Refresh(ctx); err != nil {
			return results{}, err
		}
		histories[c.Name()] = c.History()
	}

	return results{placed: placed, summary: manager.Summary(), histories: histories}, nil
}

func printResults(res results, elapsed time.Duration) {
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCUSTOMER\tTOTAL\tSERVED BY\tSERVED AT")
	for _, row := range res.summary.History {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			row.OrderID, row.CustomerName, panel.FormatRupees(row.Total), row.StaffName, row.ServedAt.Format(time.TimeOnly))
	}
	tw.Flush()

	fmt.Println("========== SIMULATION RESULTS ==========")
	fmt.Printf("Orders Placed:    %d\n", len(res.placed))
	fmt.Printf("Orders Served:    %d\n", res.summary.ServedCount)
	fmt.Printf("Revenue:          %s\n", res.summary.RevenueText)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	if res.ok() {
		fmt.Println("PASS: every order served, revenue matches placed totals")
		return
	}
	if res.summary.ServedCount != len(res.placed) || res.summary.Revenue != res.expectedRevenue() {
		fmt.Printf("FAIL: expected %d served / %s, got %d / %s\n",
			len(res.placed), panel.FormatRupees(res.expectedRevenue()),
			res.summary.ServedCount, res.summary.RevenueText)
	}
	for _, line := range res.unserved() {
		fmt.Printf("FAIL: %s not served in customer history\n", line)
	}
}
