package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config" // Alias để tránh trùng tên
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"valet_parking/internal/api"
	"valet_parking/internal/api/handler"
	"valet_parking/internal/api/middleware"
	"valet_parking/internal/config"
	"valet_parking/internal/dashboard"
	"valet_parking/internal/domain"
	"valet_parking/internal/feed"
	"valet_parking/internal/logger"
	"valet_parking/internal/notify"
	"valet_parking/internal/queue"
	"valet_parking/internal/repository"
	"valet_parking/internal/repository/memory"
	"valet_parking/internal/repository/postgresql"
	"valet_parking/internal/service"
)

type stores struct {
	employees repository.EmployeeRepository
	slots     repository.SlotRepository
	cycles    repository.ServiceCycleRepository
	db        *sql.DB
}

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	log := logger.WithComponent("main")
	log.Info("Cấu hình đã được tải.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Repositories
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Không thể khởi tạo kho dữ liệu")
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// 3. AWS clients, chỉ khi có queue được cấu hình
	var sqsClient *sqs.Client
	if cfg.SQSRequestQueueURL != "" || cfg.SQSNotifyQueueURL != "" {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(ctx, awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			log.WithError(err).Fatal("Không thể tải AWS SDK config")
		}
		sqsClient = sqs.NewFromConfig(awsSDKCfg)
		log.WithField("region", cfg.AWSRegion).Info("Đã khởi tạo SQS client.")
	}

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.SQSNotifyQueueURL != "" {
		notifier = notify.NewSQSNotifier(sqsClient, cfg.SQSNotifyQueueURL)
	} else {
		log.Warn("SQS_NOTIFY_QUEUE_URL chưa được cấu hình, thông báo khách hàng chỉ được ghi log.")
	}
	dispatcher := notify.NewDispatcher(notifier, 0)

	// 4. Services
	hub := feed.NewHub()
	authService := service.NewAuthService(st.employees, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(st.slots, st.cycles, hub, dispatcher)

	all, err := parkingService.AllSlots(ctx)
	if err != nil {
		log.WithError(err).Fatal("Không thể nạp dữ liệu chỗ đỗ ban đầu")
	}
	hub.Seed(all)

	viewModel := dashboard.NewViewModel()
	poller := dashboard.NewPoller(nil, cfg.PollURL, cfg.PollInterval, viewModel)
	liveUpdates, cancelLive := hub.Subscribe(func(r domain.SlotRecord) bool { return r.IsOccupied })
	defer cancelLive()

	wsManager := handler.NewWebSocketManager()

	// 5. HTTP Router
	router := api.SetupRouter(api.Deps{
		Auth:        authService,
		Parking:     parkingService,
		AuthMw:      middleware.NewAuthMiddleware(authService),
		Hub:         hub,
		WSManager:   wsManager,
		ViewModel:   viewModel,
		AuthLimiter: middleware.NewRateLimiter(30, 10),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Background workers
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.ServerPort).Info("Server đang chạy")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Đang tắt server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return wsManager.Start(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return viewModel.Run(gctx, liveUpdates) })
	g.Go(func() error { return poller.Run(gctx) })

	if cfg.SQSRequestQueueURL == "" {
		log.Warn("SQS_REQUEST_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		consumer := queue.NewSQSConsumer(sqsClient, cfg.SQSRequestQueueURL, parkingService)
		g.Go(func() error { return consumer.Start(gctx) })
	}

	if st.db != nil && cfg.DBListen {
		listener := postgresql.NewListener(cfg.PostgresDSN(), st.slots, hub)
		g.Go(func() error { return listener.Start(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server dừng với lỗi")
		os.Exit(1)
	}
	log.Info("Server đã tắt.")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.WithComponent("main").Warn("STORE_DRIVER=memory: dữ liệu sẽ mất khi khởi động lại")
		return &stores{
			employees: memory.NewEmployeeRepository(),
			slots:     memory.NewSlotRepository(),
			cycles:    memory.NewServiceCycleRepository(),
		}, nil
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &stores{
		employees: postgresql.NewPgEmployeeRepository(db),
		slots:     postgresql.NewPgParkingSlotRepository(db, cfg.DBListen),
		cycles:    postgresql.NewPgServiceCycleRepository(db),
		db:        db,
	}, nil
}
