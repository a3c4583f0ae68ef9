package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kipyegorop/hospital-emr-sub000/internal/config"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/domain/order"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/handler"
	v1 "github.com/Kipyegorop/hospital-emr-sub000/internal/handler/v1"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/service"
	"github.com/Kipyegorop/hospital-emr-sub000/internal/worker"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/auth"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/blobstore"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/database"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/events"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/logger"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/metrics"
	"github.com/Kipyegorop/hospital-emr-sub000/pkg/tracer"
)

func runServer(parent context.Context, inMemory bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = logger.WithService(log, cfg.App)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg, cfg.Tracing.ServiceName)

	var (
		st    stores
		ready handler.ReadinessCheck
	)
	if inMemory {
		log.Warn("running with in-memory storage; data is lost on exit")
		st = memoryStores()
	} else {
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := metrics.RegisterDBStats(reg, sqlDB, cfg.Database.Name); err != nil {
			return fmt.Errorf("registering db stats: %w", err)
		}
		st = postgresStores(db)
		ready = func(ctx context.Context) error { return database.Ping(ctx, db) }
		log.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))
	}

	blobs, err := blobstore.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		pub = events.NewKafka(cfg.Kafka, log, m.EventsPublished)
		log.Info("publishing domain events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("closing event publisher", zap.Error(err))
		}
	}()

	audit := service.NewAuditService(st.audit, log, m)
	defer audit.Shutdown()

	billing := service.NewBillingService(st.billing, st.patients, st.tx, audit, pub, m, log, cfg.Billing.TaxRateBPS)
	sla := order.SLA{
		Stat:    cfg.Clinical.OrderSLAStat,
		Urgent:  cfg.Clinical.OrderSLAUrgent,
		Routine: cfg.Clinical.OrderSLARoutine,
	}
	pharmacy := service.NewPharmacyService(st.pharmacy, st.patients, billing, st.tx, audit, m, log)
	svc := v1.Services{
		Patients:      service.NewPatientService(st.patients, st.wards, st.tx, audit, pub, m, log),
		Appointments:  service.NewAppointmentService(st.appointments, st.patients, st.encounters, st.tx, audit, m, log),
		Encounters:    service.NewEncounterService(st.encounters, st.patients, st.appointments, st.tx, audit, log),
		Consultations: service.NewConsultationService(st.consultations, st.encounters, blobs, st.tx, audit, log, cfg.Blob.MaxUploadBytes, cfg.Blob.PresignExpiry),
		Wards:         service.NewWardService(st.wards, st.patients, st.encounters, billing, st.tx, audit, pub, m, log),
		Pharmacy:      pharmacy,
		Prescriptions: service.NewPrescriptionService(st.prescriptions, st.patients, st.pharmacy, pharmacy, st.tx, audit, pub, m, log, cfg.Clinical.PrescriptionValidity),
		Orders:        service.NewOrderService(st.orders, st.patients, billing, st.tx, audit, pub, m, log, sla),
		Triage:        service.NewTriageService(st.triage, st.patients, st.tx, audit, m, log),
		Billing:       billing,
	}

	router := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Log:      log,
		Metrics:  m,
		Gatherer: reg,
		Tokens:   auth.NewJWTManager(cfg.JWT),
		Ready:    ready,
		Services: svc,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Jobs.Enabled {
		sched := worker.NewScheduler(log, jobs(cfg.Jobs, svc)...)
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

func jobs(cfg config.JobsConfig, svc v1.Services) []worker.Job {
	return []worker.Job{
		{
			Name:  "expire-prescriptions",
			Every: cfg.PrescriptionExpiryPeriod,
			Run: func(ctx context.Context) error {
				_, err := svc.Prescriptions.ExpireStale(ctx)
				return err
			},
		},
		{Name: "orders-overdue-gauge", Every: cfg.GaugeRefreshPeriod, Run: svc.Orders.RefreshOverdueGauge},
		{Name: "bed-occupancy-gauge", Every: cfg.GaugeRefreshPeriod, Run: svc.Wards.RefreshOccupancyGauge},
	}
}
