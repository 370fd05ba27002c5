package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"brigade/internal/api"
	"brigade/internal/database"
	"brigade/internal/events"
	"brigade/internal/kitchen"
	"brigade/internal/models"
)

var (
	port        = flag.Int("port", 8080, "API server port")
	metricsPort = flag.Int("metrics-port", 9090, "Metrics server port")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(config.Database.Driver, config.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	for _, hub := range config.SeedHubs {
		if err := database.SeedStations(db, hub); err != nil {
			log.Printf("Station seeding for hub %s failed (non-fatal): %v", hub, err)
		}
	}

	store := database.NewStore(db)
	settings := database.NewSettingsProvider(db)
	stations := database.NewStationDirectory(db)

	// Event wiring: transitions go to the in-process display fan-out and,
	// when configured, out on NATS for the other services.
	fanout := events.NewFanout()
	publisher := events.Multi{fanout}

	var natsPublisher *events.NATSPublisher
	if config.NATS.URL != "" {
		natsPublisher, err = events.NewNATSPublisher(config.NATS.URL)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsPublisher.Close()
		publisher = append(publisher, natsPublisher)
	}

	machine := kitchen.NewMachine(store, publisher)
	router := kitchen.NewRouter(store, stations, settings, machine)
	service := kitchen.NewService(store, settings, machine, router)

	// Order intake from the order-taking system
	if config.NATS.URL != "" {
		subscriber, err := events.NewNATSSubscriber(config.NATS.URL)
		if err != nil {
			log.Fatalf("Failed to connect NATS subscriber: %v", err)
		}
		defer subscriber.Close()

		intake := events.NewOrderIntake(subscriber, func(ctx context.Context, order models.IncomingOrder) error {
			result, err := service.PlaceOrder(ctx, order)
			if err != nil {
				return err
			}
			for _, failure := range result.Failures {
				log.Printf("intake: %v", failure)
			}
			return nil
		})
		if err := intake.Start(ctx); err != nil {
			log.Fatalf("Failed to start order intake: %v", err)
		}
	}

	// Auto-bump scheduler
	interval := time.Duration(config.Scheduler.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	bumper := kitchen.NewAutoBumper(store, settings, machine, interval)
	go bumper.Run(ctx)

	// Display feed
	display := api.NewDisplayHub()
	fanout.Listen(func(topic string, msg []byte) {
		if topic != events.TicketsTopic {
			return
		}
		var evt events.TicketEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			return
		}
		display.Broadcast(evt.HubID, msg)
	})

	go startMetricsServer(*metricsPort)

	apiServer := api.NewServer(service, display, config.Auth.Secret)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: apiServer.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("Starting API server on port %d", *port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

func startMetricsServer(port int) {
	metricsRouter := gin.Default()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}

// Config represents the application configuration
type Config struct {
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Scheduler struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"scheduler"`
	SeedHubs []string `yaml:"seed_hubs"`
	LogLevel string   `yaml:"log_level"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite3"
	}
	if config.Database.DSN == "" {
		config.Database.DSN = "brigade.db"
	}
	return config, nil
}
