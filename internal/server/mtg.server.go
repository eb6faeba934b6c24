package server

import (
	"context"
	"net/http"
	"time"

	"meeting-service/internal/config"
	"meeting-service/internal/dispatch"
	"meeting-service/internal/middleware"
	"meeting-service/internal/repository"
	"meeting-service/internal/router"
	"meeting-service/internal/usecase/booking"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/internal/usecase/payment"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
	db         *pgxpool.Pool
	rdb        *redis.Client
}

func New(cfg *config.Config, logger *zap.Logger) *Server {
	db := config.ConnectDB(cfg)
	rdb := config.ConnectRedis(cfg)

	meetingRepo := repository.NewMeetingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	tierRepo := repository.NewTierRepository(db)

	notifier := ledger.NewNotifier(logger)
	ledgerUC := ledger.New(walletRepo, transactionRepo, creditRepo, notifier, cfg.Booking.Currency, logger)
	dispatcher := dispatch.NewRedisDispatcher(rdb, logger)
	bookingUC := booking.New(meetingRepo, availabilityRepo, tierRepo, ledgerUC, dispatcher, rdb, cfg.Booking, logger)
	paymentUC := payment.New(ledgerUC, transactionRepo, logger)

	auth := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	r := router.New(bookingUC, ledgerUC, paymentUC, auth, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		db:  db,
		rdb: rdb,
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer func() {
		s.db.Close()
		_ = s.rdb.Close()
	}()
	return s.httpServer.Shutdown(ctx)
}
