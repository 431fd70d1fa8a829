package main

import (
	"context"
	"device-finance-backoffice/internal/checkin"
	"device-finance-backoffice/internal/config"
	"device-finance-backoffice/internal/delivery/http/handler"
	domainDevice "device-finance-backoffice/internal/domain/device"
	"device-finance-backoffice/internal/domain/event"
	"device-finance-backoffice/internal/infrastructure/cache"
	"device-finance-backoffice/internal/infrastructure/database/postgres"
	"device-finance-backoffice/internal/infrastructure/eventbus"
	"device-finance-backoffice/internal/logger"
	"device-finance-backoffice/internal/metrics"
	"device-finance-backoffice/internal/routes"
	"device-finance-backoffice/internal/usecase/auth"
	"device-finance-backoffice/pkg/clock"
	pkgmqtt "device-finance-backoffice/pkg/mqtt"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	ce "github.com/cloudevents/sdk-go/v2/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "device-finance-backoffice",
		Usage: "Back office for financed devices: codes, installments and remote lock",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   ".env",
				Usage:   "Path to the .env style configuration file",
				EnvVars: []string{"DFB_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, MQTT check-in ingestion and the lifecycle event bus",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback-last",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: migrate,
			},
			{
				Name:  "bootstrap-admin",
				Usage: "Create the first super admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "Super admin email"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "Super admin password", EnvVars: []string{"DFB_BOOTSTRAP_PASSWORD"}},
					&cli.StringFlag{Name: "name", Value: "Super Admin", Usage: "Display name"},
				},
				Action: bootstrapAdmin,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration, initialises logging and connects to the database.
func setup(c *cli.Context) (*config.Config, *postgres.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := postgres.NewDB(c.Context, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *postgres.DB) {
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database connection", zap.Error(err))
	}
}

func migrate(c *cli.Context) error {
	_, db, err := setup(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if c.Bool("rollback-last") {
		if err := db.RollbackLast(c.Context); err != nil {
			return err
		}
		logger.Info("Rolled back last migration")
		return nil
	}

	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Info("Migrations applied")
	return nil
}

func bootstrapAdmin(c *cli.Context) error {
	cfg, db, err := setup(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if err := db.Migrate(c.Context); err != nil {
		return err
	}

	service := auth.NewService(postgres.NewAdminRepository(db), cfg.JWT, clock.New())
	admin, created, err := service.BootstrapSuperAdmin(c.Context, &auth.CreateAdminRequest{
		Email:    c.String("email"),
		Password: c.String("password"),
		Name:     c.String("name"),
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap super admin: %w", err)
	}

	if !created {
		logger.Info("Super admin already exists", zap.String("admin_id", admin.ID.String()))
		return nil
	}
	logger.Info("Super admin created", zap.String("admin_id", admin.ID.String()), zap.String("email", admin.Email))
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup(c)
	if err != nil {
		return err
	}
	defer closeDB(db)

	logger.Info("Starting application", zap.String("environment", cfg.Server.Environment))

	if err := db.Migrate(c.Context); err != nil {
		return err
	}

	clk := clock.New()
	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	checks := map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Health() },
	}

	var presence domainDevice.PresenceTracker = cache.NewMemoryPresence(cfg.Redis.PresenceTTL)
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(c.Context, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		presence = cache.NewRedisPresence(client, cfg.Redis.PresenceTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		logger.Warn("REDIS_ADDR not set, device presence is kept in memory")
	}

	var (
		publisher  event.Publisher = event.NopPublisher{}
		subscriber *eventbus.Subscriber
		eventSub   message.Subscriber
	)
	if cfg.EventBus.Enabled {
		busLogger := logger.Named("eventbus")
		pub, sub := eventbus.NewGoChannelPubSub(busLogger)
		router, err := eventbus.NewMessageRouter(busLogger)
		if err != nil {
			return err
		}
		publisher = eventbus.NewCloudEventPublisher(pub, eventbus.Topic)
		subscriber = eventbus.NewSubscriber(router)
		eventSub = sub
		subscriber.Register("audit", eventbus.Topic, sub, eventbus.CloudEventHandler{
			Logger: busLogger,
			DispatchMap: map[string]func(context.Context, *ce.Event) error{
				eventbus.AnyKey: eventbus.NewAuditHandler(logger.Named("audit")),
			},
		})
	}

	services := routes.NewServices(cfg, db, presence, publisher, recorder, clk)

	var ingestion *checkin.MQTTIngestionClient
	if cfg.MQTT.Enabled() {
		mqttLogger := logger.Named("mqtt")
		client := pkgmqtt.NewClient(pkgmqtt.DefaultConfig(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password), mqttLogger)

		processor := checkin.NewProcessor(services.Security, services.Devices, client, checkin.ProcessorConfig{
			Workers:     cfg.MQTT.Workers,
			BufferSize:  cfg.MQTT.BufferSize,
			TopicPrefix: cfg.MQTT.CommandTopicPrefix,
			QoS:         cfg.MQTT.QoS,
		}, clk, logger.Named("checkin"), recorder)

		ingestion, err = checkin.NewMQTTIngestionClient(&checkin.MQTTIngestionConfig{
			CheckInTopic: cfg.MQTT.CheckInTopic,
			QoS:          cfg.MQTT.QoS,
		}, client, processor, mqttLogger)
		if err != nil {
			return err
		}

		if subscriber != nil {
			forwarder := checkin.NewCommandForwarder(client, cfg.MQTT.CommandTopicPrefix, cfg.MQTT.QoS, clk, logger.Named("commands"))
			subscriber.Register("device-commands", eventbus.Topic, eventSub, eventbus.CloudEventHandler{
				Logger:      logger.Named("eventbus"),
				DispatchMap: forwarder.DispatchMap(),
			})
		}

		checks["mqtt"] = func(context.Context) error {
			if !client.IsConnected() {
				return errors.New("mqtt client disconnected")
			}
			return nil
		}
	} else {
		logger.Warn("MQTT_BROKER not set, device check-in ingestion is disabled")
	}

	g, ctx := errgroup.WithContext(c.Context)

	if subscriber != nil {
		g.Go(func() error {
			return subscriber.Run(ctx)
		})
	}

	if ingestion != nil {
		g.Go(func() error {
			if err := ingestion.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			ingestion.Stop()
			return nil
		})
	}

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      routes.SetupRoutes(ctx, cfg, services, checks),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		// Events published before the router runs would have no subscriber.
		if subscriber != nil {
			select {
			case <-subscriber.Running():
			case <-ctx.Done():
				return nil
			}
		}

		logger.Info("Server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server exited properly")
	return nil
}
