// Command wind-compare compares CCMP satellite wind speed against a
// moored-buoy record for a given window, reporting the bias, RMSE around
// the bias, and correlation of the aligned pair.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"go.ccmp.io/winds-api/internal/adapter/store/buoy"
	"go.ccmp.io/winds-api/internal/adapter/store/ccmp"
	"go.ccmp.io/winds-api/internal/domain"
	"go.ccmp.io/winds-api/internal/usecase"
)

func main() {
	ccmpDir := flag.String("ccmp_dir", "./data/ccmp", "Directory with CCMP NetCDF granules")
	buoyDir := flag.String("buoy_dir", "./data/buoys", "Directory with buoy CSV files")
	buoyID := flag.String("buoy", "", "Buoy identifier (required; file buoy_<id>.csv)")
	startStr := flag.String("start", "", "Window start, RFC3339 (default: buoy record start)")
	endStr := flag.String("end", "", "Window end, RFC3339 (default: buoy record end)")
	window := flag.Int("window", 0, "Buoy smoothing window in samples (default: derived from sample rates)")
	method := flag.String("method", "nearest", "Resampling method: nearest or linear")
	anomalies := flag.Bool("anomalies", false, "Also report statistics on day-of-year anomalies")
	verbose := flag.Bool("v", false, "Print every aligned pair")
	flag.Parse()

	if *buoyID == "" {
		fmt.Fprintln(os.Stderr, "error: -buoy is required")
		flag.Usage()
		os.Exit(2)
	}

	req := usecase.CompareRequest{
		BuoyID:          *buoyID,
		SmoothingWindow: *window,
		Method:          *method,
		Anomalies:       *anomalies,
	}
	var err error
	if *startStr != "" {
		req.Start, err = time.Parse(time.RFC3339, *startStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid -start: %v\n", err)
			os.Exit(2)
		}
	}
	if *endStr != "" {
		req.End, err = time.Parse(time.RFC3339, *endStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid -end: %v\n", err)
			os.Exit(2)
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	uc := usecase.NewCompareUseCase(ccmp.NewStore(*ccmpDir), buoy.NewStore(*buoyDir), logger)
	resp, err := uc.Execute(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Buoy %s at (%.3f, %.3f)\n", resp.BuoyID, resp.Location.Lat, resp.Location.Lon)
	fmt.Printf("Window: %s .. %s\n", resp.Start, resp.End)
	fmt.Printf("Smoothing window: %d samples (%s resampling)\n", resp.SmoothingWindow, resp.Method)
	fmt.Printf("Aligned samples: %d\n\n", resp.Stats.N)

	printStats("Wind speed", resp.Stats)
	if resp.AnomalyStats != nil {
		fmt.Println()
		printStats("Anomalies", resp.AnomalyStats)
	}

	if *verbose {
		fmt.Println()
		for _, p := range resp.Points {
			fmt.Printf("%s  sat=%6.2f m/s  buoy=%6.2f m/s\n", p.Time, p.SatelliteMS, p.BuoyMS)
		}
	}
}

func printStats(label string, s *domain.PairedStats) {
	fmt.Printf("%s:\n", label)
	fmt.Printf("  satellite mean: %8.3f m/s\n", s.MeanA)
	fmt.Printf("  buoy mean:      %8.3f m/s\n", s.MeanB)
	fmt.Printf("  bias (sat-buoy):%8.3f m/s\n", s.Bias)
	fmt.Printf("  RMSE:           %8.3f m/s\n", s.RMSE)
	fmt.Printf("  correlation:    %8.3f\n", s.Correlation)
}
