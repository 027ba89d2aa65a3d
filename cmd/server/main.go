package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/supplyvault/compliance-monitor/internal/api"
	"github.com/supplyvault/compliance-monitor/internal/config"
	"github.com/supplyvault/compliance-monitor/internal/extract"
	"github.com/supplyvault/compliance-monitor/internal/ingest"
	"github.com/supplyvault/compliance-monitor/internal/notify"
	"github.com/supplyvault/compliance-monitor/internal/pipeline"
	"github.com/supplyvault/compliance-monitor/internal/pkg/distlock"
	"github.com/supplyvault/compliance-monitor/internal/repository/postgres"
	"github.com/supplyvault/compliance-monitor/internal/verify"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("SupplyVault compliance monitor starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Printf("[db] WARNING: database not reachable at startup: %v", err)
	} else {
		log.Println("[db] connected")
	}
	pingCancel()

	certRepo := postgres.NewCertificationRepo(db)
	alertRepo := postgres.NewAlertRepo(db)
	brandRepo := postgres.NewBrandRepo(db)

	// Redis backs the pipeline run locks; the advisory-lock fallback
	// covers deployments without it.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[redis] WARNING: not reachable, falling back to advisory locks: %v", err)
			redisClient = nil
		} else {
			log.Println("[redis] connected")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound alert email
	sender, err := notify.NewSESSender(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to initialize SES sender: %v", err)
	}

	// Verification router
	var sa8000Dir verify.FacilityDirectory
	if path := cfg.Verification.SA8000DirectoryPath; path != "" {
		dir, err := verify.LoadFacilityDirectory(path)
		if err != nil {
			log.Fatalf("Failed to load SA8000 facility directory: %v", err)
		}
		sa8000Dir = dir
		log.Printf("[verify] SA8000 facility directory loaded from %s", path)
	} else {
		sa8000Dir = verify.NewInMemoryFacilityDirectory(nil)
		log.Println("[verify] no SA8000 directory configured, list lookups will stay PENDING")
	}

	var gotsLookup verify.GOTSLookup
	if cfg.Verification.GOTSLookupURL != "" {
		timeout := time.Duration(cfg.Verification.LookupTimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		gotsLookup = verify.NewHTTPGOTSLookup(
			cfg.Verification.GOTSLookupURL,
			&http.Client{Timeout: timeout},
			cfg.Verification.LookupMaxRetries,
		)
		log.Printf("[verify] GOTS lookup via %s", cfg.Verification.GOTSLookupURL)
	}

	router := verify.NewRouter(
		verify.NewSA8000Verifier(sa8000Dir),
		verify.NewGOTSVerifier(gotsLookup),
		verify.NewOekoTexVerifier(nil),
	)

	// Pipelines
	lockTTL := cfg.Cron.RunLockTTL()
	expiryRunner := pipeline.NewExpiryAlertRunner(
		certRepo, alertRepo, brandRepo, sender,
		distlock.NewLock(redisClient, db, "cron:expiry-alerts", lockTTL),
		cfg.Notify.DashboardBaseURL,
	)
	reverifyRunner := pipeline.NewReverifyRunner(
		certRepo, brandRepo, router, sender,
		distlock.NewLock(redisClient, db, "cron:reverify", lockTTL),
		cfg.Cron.ReverifyBatchSize,
		cfg.Cron.ReverifyIntervalDays,
		cfg.Notify.DashboardBaseURL,
	)

	// Certificate ingestion (S3 archive + Bedrock field extraction)
	var ingestSvc *ingest.Service
	if cfg.Storage.S3Bucket != "" {
		awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.AWSRegion)}
		if profile := cfg.Storage.GetAWSProfile(); profile != "" {
			awsOpts = append(awsOpts, awsconfig.WithSharedConfigProfile(profile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			log.Fatalf("Failed to load AWS config for document storage: %v", err)
		}
		docs := ingest.NewS3DocumentStore(s3.NewFromConfig(awsCfg), cfg.Storage.S3Bucket)

		var extractor extract.FieldExtractor
		if cfg.Extraction.Enabled {
			extractor, err = extract.NewBedrockExtractor(ctx, cfg.Extraction)
			if err != nil {
				log.Fatalf("Failed to initialize Bedrock extractor: %v", err)
			}
			log.Printf("[extract] Bedrock extraction enabled, model %s", cfg.Extraction.ModelID)
		} else {
			extractor = extract.StaticExtractor{Err: fmt.Errorf("automated extraction disabled")}
			log.Println("[extract] extraction disabled, ingested certificates will need manual review")
		}

		ingestSvc = ingest.NewService(docs, certRepo, brandRepo, extractor, cfg.Extraction.ConfidenceThreshold)
	} else {
		log.Println("[ingest] no S3 bucket configured, certificate uploads disabled")
	}

	var ingestor api.Ingestor
	if ingestSvc != nil {
		ingestor = ingestSvc
	}
	handlers := api.NewHandlers(expiryRunner, reverifyRunner, certRepo, ingestor, cfg.Cron.Secret)
	server := api.NewServer(cfg.Server, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Server stopped")
}
