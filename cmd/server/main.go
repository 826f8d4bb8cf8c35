// Package main provides the CCMP winds API HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"go.ccmp.io/winds-api/internal/adapter/store"
	"go.ccmp.io/winds-api/internal/adapter/store/buoy"
	"go.ccmp.io/winds-api/internal/adapter/store/ccmp"
	httpHandler "go.ccmp.io/winds-api/internal/http"
	"go.ccmp.io/winds-api/internal/metrics"
	"go.ccmp.io/winds-api/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("winds-api version %s\n", version)
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	ccmpDir := getEnv("CCMP_DIR", "./data/ccmp")
	buoyDir := getEnv("BUOY_DIR", "./data/buoys")
	workers := 0
	if s := os.Getenv("WORKERS"); s != "" {
		workers, err = strconv.Atoi(s)
		if err != nil {
			logger.Fatal("invalid WORKERS value", zap.String("value", s), zap.Error(err))
		}
	}

	logger.Info("starting winds API server",
		zap.String("port", port),
		zap.String("ccmp_dir", ccmpDir),
		zap.String("buoy_dir", buoyDir),
		zap.Int("workers", workers))

	// Initialize metrics.
	collector := metrics.NewCollector("winds_api")

	// Initialize stores.
	ccmpStore := ccmp.NewStore(ccmpDir)
	ccmpStore.OnLoad = collector.GranulesLoaded.Inc
	buoyStore := buoy.NewStore(buoyDir)

	// Cast to interfaces.
	var fieldLoader store.FieldLoader = ccmpStore
	var buoyLoader store.BuoySeriesLoader = buoyStore

	// Initialize use cases.
	pointUC := usecase.NewPointUseCase(fieldLoader, logger)
	compareUC := usecase.NewCompareUseCase(fieldLoader, buoyLoader, logger)
	maskUC := usecase.NewMaskUseCase(fieldLoader, workers, logger)

	// Setup router.
	router := httpHandler.SetupRouter(pointUC, compareUC, maskUC, collector)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	logger.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Winds API Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  winds-api [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  CCMP_DIR                CCMP NetCDF granule directory (default: ./data/ccmp)")
	fmt.Println("  BUOY_DIR                Buoy CSV directory (default: ./data/buoys)")
	fmt.Println("  WORKERS                 Worker count for gridded analyses (default: all CPUs)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  winds-api")
	fmt.Println()
	fmt.Println("  # Start server on custom port")
	fmt.Println("  PORT=3000 winds-api")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /v1/winds/speed            Wind speed and direction at a point")
	fmt.Println("  GET /v1/winds/climatology      Day-of-year climatology at a point")
	fmt.Println("  GET /v1/winds/compare          Satellite vs. buoy comparison")
	fmt.Println("  GET /v1/winds/masks            Observation-count masks")
	fmt.Println("  GET /v1/winds/histogram        Per-cell wind-speed bin fractions")
	fmt.Println("  GET /metrics                   Prometheus metrics")
	fmt.Println()
}
