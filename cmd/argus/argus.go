package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/arguscam/argus/pkg/nn/nnsim"
	"github.com/arguscam/argus/server"
	"github.com/arguscam/argus/server/camera"
	"github.com/arguscam/argus/server/monitor"
	"github.com/cyclopcam/logs"
)

func main() {
	parser := argparse.NewParser("argus", "Live camera vision overlay")
	cameraURL := parser.String("c", "camera", &argparse.Options{Help: "MJPEG camera URL (synthetic frames if omitted)", Default: ""})
	addr := parser.String("", "addr", &argparse.Options{Help: "HTTP listen address", Default: ":8080"})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Simulated engine random seed", Default: 1})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Real model backends plug in behind nn.Engine; the simulated engine
	// keeps the binary self-contained.
	engine := nnsim.NewAutoEngine(int64(*seed))

	mon, err := monitor.NewMonitor(logger, engine)
	if err != nil {
		logger.Errorf("Failed to start monitor: %v", err)
		os.Exit(1)
	}

	var source camera.FrameSource
	if *cameraURL != "" {
		source = camera.NewMJPEGSource(logger, *cameraURL)
	} else {
		source = camera.NewSyntheticSource(640, 480, 10)
	}

	srv := server.NewServer(logger, source, mon)
	if err := srv.Start(); err != nil {
		// Capture refused (eg camera unreachable or permission denied).
		// Fatal: the user must intervene, we do not retry.
		logger.Errorf("Failed to start capture: %v", err)
		os.Exit(1)
	}
	defer srv.Shutdown()

	if err := srv.SetupHTTP(*addr); err != nil {
		logger.Errorf("HTTP server failed: %v", err)
		os.Exit(1)
	}
}
