package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cbodonnell/monuments/pkg/api"
	"github.com/cbodonnell/monuments/pkg/game"
	"github.com/cbodonnell/monuments/pkg/generation"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/network"
	"github.com/cbodonnell/monuments/pkg/repositories"
	"github.com/cbodonnell/monuments/pkg/state"
	"github.com/cbodonnell/monuments/pkg/version"
	"github.com/cbodonnell/monuments/pkg/workers"
	"golang.org/x/sync/errgroup"
)

func main() {
	wsPort := flag.Int("ws-port", 9001, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", api.DefaultPort, "API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	logFile := flag.String("log-file", "", "Log to a rotated file instead of stdout")
	assetsDir := flag.String("assets-dir", api.DefaultAssetsDir, "Directory served under /assets/")
	publicURL := flag.String("public-url", "", "Externally reachable URL of the API server (default http://127.0.0.1:<api-port>)")
	buildWorkers := flag.Int("build-workers", 4, "Number of concurrent monument builds")
	buildQueueSize := flag.Int("build-queue-size", 64, "Number of accepted builds waiting for a worker")
	generationTimeout := flag.Duration("generation-timeout", workers.DefaultGenerationTimeout, "Timeout for a single generation request")
	tlsCert := flag.String("tls-cert", "", "TLS certificate file")
	tlsKey := flag.String("tls-key", "", "TLS key file")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	var logger *log.Logger
	if *logFile != "" {
		logger = log.NewFileLogger(*logFile, parsedLogLevel)
	} else {
		logger = log.New(os.Stdout, parsedLogLevel)
	}
	log.SetDefaultLogger(logger)
	defer log.Sync()
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting monuments server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *publicURL == "" {
		*publicURL = fmt.Sprintf("http://127.0.0.1:%d", *apiPort)
	}
	*publicURL = strings.TrimRight(*publicURL, "/")

	connStr := os.Getenv("MONUMENTS_DATABASE_URL")
	if connStr == "" {
		connStr = repositories.DefaultDatabaseURL
	}
	repository, err := repositories.NewRepository(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to create repository: %v", err))
	}
	defer repository.Close(context.Background())

	world := state.NewWorld(repository)
	if err := world.RestoreFromLog(ctx); err != nil {
		log.Error("Failed to restore monuments, starting with none: %v", err)
	}

	comfyUIURL := os.Getenv("MONUMENTS_COMFYUI_URL")
	if comfyUIURL == "" {
		comfyUIURL = generation.DefaultComfyUIURL
	}
	gateway := generation.NewComfyUI(generation.NewComfyUIOptions{
		BaseURL:    comfyUIURL,
		WebhookURL: *publicURL + "/generation",
	})

	clientManager := network.NewClientManager(network.NewClientManagerOptions{})

	buildMonumentChan := make(chan workers.BuildMonumentRequest, *buildQueueSize)
	for i := 0; i < *buildWorkers; i++ {
		buildMonumentWorker := workers.NewBuildMonumentWorker(workers.NewBuildMonumentWorkerOptions{
			World:             world,
			ClientManager:     clientManager,
			Gateway:           gateway,
			BuildMonumentChan: buildMonumentChan,
			Timeout:           *generationTimeout,
		})
		go buildMonumentWorker.Start(ctx)
	}

	gameManager := game.NewGameManager(game.NewGameManagerOptions{
		World:             world,
		ClientManager:     clientManager,
		BuildMonumentChan: buildMonumentChan,
	})

	var wsTLS *network.TLSConfig
	var apiTLS *api.TLSConfig
	if *tlsCert != "" && *tlsKey != "" {
		wsTLS = &network.TLSConfig{CertFile: *tlsCert, KeyFile: *tlsKey}
		apiTLS = &api.TLSConfig{CertFile: *tlsCert, KeyFile: *tlsKey}
	}

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		Port:          *wsPort,
		TLS:           wsTLS,
		ClientManager: clientManager,
		Handlers:      gameManager.Handlers(),
	})
	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:      *apiPort,
		TLS:       apiTLS,
		Completer: gameManager,
		AssetsDir: *assetsDir,
		PublicURL: *publicURL,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(wsServer.Start)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop API server: %v", err)
		}
		if err := wsServer.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop WebSocket server: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited: %v", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
