// marketd runs the marketplace services: identity, directory, ledger,
// reservations and reputation. Each service owns its own store and talks to
// the others only over their HTTP interfaces; "serve all" runs the whole
// set in one process for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rideway-co/marketplace-api/internal/adapters/httpapi"
	"github.com/rideway-co/marketplace-api/internal/adapters/httpclient"
	kafkapub "github.com/rideway-co/marketplace-api/internal/adapters/kafka"
	memaccountrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/accountrepo"
	memlistingrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/listingrepo"
	memratingrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/ratingrepo"
	memreservationrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/reservationrepo"
	memjournal "github.com/rideway-co/marketplace-api/internal/adapters/memory/settlementjournal"
	memuserrepo "github.com/rideway-co/marketplace-api/internal/adapters/memory/userrepo"
	"github.com/rideway-co/marketplace-api/internal/adapters/postgres"
	pgaccountrepo "github.com/rideway-co/marketplace-api/internal/adapters/postgres/accountrepo"
	pglistingrepo "github.com/rideway-co/marketplace-api/internal/adapters/postgres/listingrepo"
	pgratingrepo "github.com/rideway-co/marketplace-api/internal/adapters/postgres/ratingrepo"
	pgreservationrepo "github.com/rideway-co/marketplace-api/internal/adapters/postgres/reservationrepo"
	pgjournal "github.com/rideway-co/marketplace-api/internal/adapters/postgres/settlementjournal"
	pguserrepo "github.com/rideway-co/marketplace-api/internal/adapters/postgres/userrepo"
	sqlitedb "github.com/rideway-co/marketplace-api/internal/adapters/sqlite"
	sqlaccountrepo "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/accountrepo"
	sqllistingrepo "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/listingrepo"
	sqlratingrepo "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/ratingrepo"
	sqlreservationrepo "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/reservationrepo"
	sqljournal "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/settlementjournal"
	sqluserrepo "github.com/rideway-co/marketplace-api/internal/adapters/sqlite/userrepo"
	"github.com/rideway-co/marketplace-api/internal/app/directory"
	"github.com/rideway-co/marketplace-api/internal/app/identity"
	"github.com/rideway-co/marketplace-api/internal/app/ledger"
	"github.com/rideway-co/marketplace-api/internal/app/reputation"
	"github.com/rideway-co/marketplace-api/internal/app/reservations"
	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
	platformclock "github.com/rideway-co/marketplace-api/internal/platform/clock"
	"github.com/rideway-co/marketplace-api/internal/platform/config"
	"github.com/rideway-co/marketplace-api/internal/platform/metrics"
	accountrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/accountrepo"
	listingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/listingrepo"
	ratingrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/ratingrepo"
	reservationrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/reservationrepo"
	journalport "github.com/rideway-co/marketplace-api/internal/ports/out/settlementjournal"
	userrepoport "github.com/rideway-co/marketplace-api/internal/ports/out/userrepo"
)

func main() {
	// A local .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		log.Fatalf("marketd: %v", err)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "marketd",
		Short:         "Ride marketplace services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")

	serve := &cobra.Command{
		Use:       "serve {identity|directory|ledger|reservations|reputation|all}",
		Short:     "Run one service, or all of them in one process",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"identity", "directory", "ledger", "reservations", "reputation", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serveServices(cmd.Context(), cfg, args[0])
		},
	}
	root.AddCommand(serve)
	return root
}

type namedServer struct {
	name    string
	addr    string
	handler http.Handler
}

func serveServices(ctx context.Context, cfg config.Config, which string) error {
	codec, err := token.New([]byte(cfg.Secret))
	if err != nil {
		return err
	}
	clk := platformclock.NewSystemClock()

	stores, cleanup, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	identityClient := httpclient.NewIdentity(cfg.Peers.Identity, nil)
	directoryClient := httpclient.NewDirectory(cfg.Peers.Directory, nil)
	ledgerClient := httpclient.NewLedger(cfg.Peers.Ledger, nil)
	reputationClient := httpclient.NewReputation(cfg.Peers.Reputation, nil)

	var servers []namedServer
	add := func(name, addr string, h http.Handler) {
		servers = append(servers, namedServer{name: name, addr: addr, handler: h})
	}

	wantAll := which == "all"
	if wantAll || which == "identity" {
		svc := identity.NewService(stores.users, codec, ledgerClient, clk)
		add("identity", cfg.Listen.Identity, httpapi.NewIdentityRouter(svc, codec))
	}
	if wantAll || which == "directory" {
		svc := directory.NewService(stores.listings, identityClient, reputationClient)
		add("directory", cfg.Listen.Directory, httpapi.NewDirectoryRouter(svc, codec))
	}
	if wantAll || which == "ledger" {
		svc := ledger.NewService(stores.accounts, clk)
		add("ledger", cfg.Listen.Ledger, httpapi.NewLedgerRouter(svc, codec))
	}
	if wantAll || which == "reputation" {
		svc := reputation.NewService(stores.ratings, identityClient)
		add("reputation", cfg.Listen.Reputation, httpapi.NewReputationRouter(svc, codec))
	}
	if wantAll || which == "reservations" {
		svc := reservations.NewService(directoryClient, ledgerClient, stores.bookings, stores.journal, reputationClient, clk)

		if len(cfg.KafkaBrokers) > 0 {
			pub := kafkapub.NewPublisher(cfg.KafkaBrokers)
			defer func() { _ = pub.Close() }()
			svc.SetPublisher(pub)
		}

		var metricsHandler http.Handler
		if cfg.MetricsEnabled {
			settlement := metrics.NewSettlement()
			svc.SetOutcomeRecorder(settlement)
			metricsHandler = settlement.Handler()
		}
		add("reservations", cfg.Listen.Reservations, httpapi.NewReservationsRouter(svc, codec, metricsHandler))
	}
	if len(servers) == 0 {
		return fmt.Errorf("unknown service %q", which)
	}

	return runServers(ctx, servers)
}

// runServers starts every server and blocks until a signal or the first
// listen failure, then shuts all of them down gracefully.
func runServers(ctx context.Context, servers []namedServer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(servers))
	var srvs []*http.Server
	for _, s := range servers {
		srv := &http.Server{
			Addr:              s.addr,
			Handler:           s.handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		srvs = append(srvs, srv)
		name := s.name
		go func() {
			log.Printf("%s listening on %s", name, srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Printf("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range srvs {
		_ = srv.Shutdown(shutdownCtx)
	}
	return runErr
}

type storeSet struct {
	users    userrepoport.Repository
	accounts accountrepoport.Repository
	listings listingrepoport.Repository
	bookings reservationrepoport.Repository
	ratings  ratingrepoport.Repository
	journal  journalport.Journal
}

// openStores builds the repository set for the configured backend. Schema
// creation is idempotent and runs on every start.
func openStores(ctx context.Context, cfg config.Config) (storeSet, func(), error) {
	switch cfg.StorageBackend {
	case "sqlite":
		return openSQLiteStores(ctx, cfg.SQLitePath)
	case "postgres":
		return openPostgresStores(ctx, cfg.DatabaseURL)
	default:
		return storeSet{
			users:    memuserrepo.NewRepo(),
			accounts: memaccountrepo.NewRepo(),
			listings: memlistingrepo.NewRepo(),
			bookings: memreservationrepo.NewRepo(),
			ratings:  memratingrepo.NewRepo(),
			journal:  memjournal.NewJournal(),
		}, func() {}, nil
	}
}

func openSQLiteStores(ctx context.Context, dir string) (storeSet, func(), error) {
	db, err := sqlitedb.Open(filepath.Join(dir, "marketplace.db"))
	if err != nil {
		return storeSet{}, nil, err
	}
	cleanup := func() { _ = db.Close() }

	users := sqluserrepo.NewRepo(db)
	accounts := sqlaccountrepo.NewRepo(db)
	listings := sqllistingrepo.NewRepo(db)
	bookings := sqlreservationrepo.NewRepo(db)
	ratings := sqlratingrepo.NewRepo(db)
	journal := sqljournal.NewJournal(db)

	for _, ensure := range []func(context.Context) error{
		users.EnsureSchema,
		accounts.EnsureSchema,
		listings.EnsureSchema,
		bookings.EnsureSchema,
		ratings.EnsureSchema,
		journal.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			cleanup()
			return storeSet{}, nil, err
		}
	}
	return storeSet{
		users:    users,
		accounts: accounts,
		listings: listings,
		bookings: bookings,
		ratings:  ratings,
		journal:  journal,
	}, cleanup, nil
}

func openPostgresStores(ctx context.Context, dsn string) (storeSet, func(), error) {
	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		return storeSet{}, nil, err
	}
	cleanup := pool.Close

	users := pguserrepo.NewRepo(pool)
	accounts := pgaccountrepo.NewRepo(pool)
	listings := pglistingrepo.NewRepo(pool)
	bookings := pgreservationrepo.NewRepo(pool)
	ratings := pgratingrepo.NewRepo(pool)
	journal := pgjournal.NewJournal(pool)

	for _, ensure := range []func(context.Context) error{
		users.EnsureSchema,
		accounts.EnsureSchema,
		listings.EnsureSchema,
		bookings.EnsureSchema,
		ratings.EnsureSchema,
		journal.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			cleanup()
			return storeSet{}, nil, err
		}
	}
	return storeSet{
		users:    users,
		accounts: accounts,
		listings: listings,
		bookings: bookings,
		ratings:  ratings,
		journal:  journal,
	}, cleanup, nil
}
