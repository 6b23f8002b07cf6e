package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cbodonnell/monuments/pkg/client"
	"github.com/cbodonnell/monuments/pkg/game/constants"
	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/version"
)

func main() {
	serverAddr := flag.String("addr", "ws://127.0.0.1:9001", "WebSocket address of the server")
	botCount := flag.Int("bots", 1, "Number of bots to connect")
	prompt := flag.String("prompt", "a lighthouse on a rocky cliff", "Prompt submitted when a bot can afford a monument")
	stepInterval := flag.Duration("step-interval", 250*time.Millisecond, "Time between position updates")
	tokenInterval := flag.Duration("token-interval", time.Second, "Time between token pickups")
	pingInterval := flag.Duration("ping-interval", 5*time.Second, "Time between pings")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stdout, parsedLogLevel))
	defer log.Sync()

	log.Info("Starting %d bot(s) version %s against %s", *botCount, version.Get(), *serverAddr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < *botCount; i++ {
		b := &bot{
			name:          fmt.Sprintf("bot-%d", i+1),
			client:        client.NewWSClient(*serverAddr),
			prompt:        *prompt,
			stepInterval:  *stepInterval,
			tokenInterval: *tokenInterval,
			pingInterval:  *pingInterval,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.run(ctx); err != nil {
				log.Error("%s stopped: %v", b.name, err)
			}
		}()
	}
	wg.Wait()
	log.Info("All bots stopped")
}

type bot struct {
	name          string
	client        *client.WSClient
	prompt        string
	stepInterval  time.Duration
	tokenInterval time.Duration
	pingInterval  time.Duration

	lock     sync.Mutex
	id       types.PlayerID
	position types.Coordinate
	building bool
}

func (b *bot) run(ctx context.Context) error {
	if err := b.client.Connect(ctx); err != nil {
		return err
	}
	defer b.client.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readErr := make(chan error, 1)
	go func() {
		readErr <- b.readLoop(ctx)
		cancel()
	}()

	step := time.NewTicker(b.stepInterval)
	defer step.Stop()
	token := time.NewTicker(b.tokenInterval)
	defer token.Stop()
	ping := time.NewTicker(b.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			select {
			case err := <-readErr:
				return err
			default:
				return nil
			}
		case <-step.C:
			if err := b.client.SendMessage(ctx, &messages.PlayerPosition{Coordinate: b.walk()}); err != nil {
				return err
			}
		case <-token.C:
			if err := b.client.SendMessage(ctx, &messages.TokenPickup{}); err != nil {
				return err
			}
		case <-ping.C:
			log.Debug("%s RTT %dms", b.name, b.client.RTT())
			if err := b.client.Ping(ctx); err != nil {
				return err
			}
		}
	}
}

// walk moves the bot one cell in a random direction.
func (b *bot) walk() types.Coordinate {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.position.X += int32(rand.Intn(3) - 1)
	b.position.Y += int32(rand.Intn(3) - 1)
	return b.position
}

func (b *bot) readLoop(ctx context.Context) error {
	for {
		msg, err := b.client.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		b.handle(ctx, msg)
	}
}

func (b *bot) handle(ctx context.Context, msg messages.Message) {
	switch m := msg.(type) {
	case *messages.Welcome:
		b.lock.Lock()
		b.id = m.Data.ID
		b.lock.Unlock()
		log.Info("%s joined as player %d", b.name, m.Data.ID)
	case *messages.MainPlayerSpawn:
		b.lock.Lock()
		b.position = m.Data.Position
		b.lock.Unlock()
	case *messages.EnemyPlayerSpawn:
		log.Debug("%s sees player %d at (%d, %d)", b.name, m.Data.ID, m.Data.Position.X, m.Data.Position.Y)
	case *messages.EnemyDisconnected:
		log.Debug("%s saw player %d leave", b.name, m.ID)
	case *messages.MainPlayerCurrentBalance:
		log.Debug("%s balance %d", b.name, m.Balance)
		if m.Balance >= constants.MonumentBuildCost && b.startBuilding() {
			log.Info("%s requesting monument %q", b.name, b.prompt)
			if err := b.client.SendMessage(ctx, &messages.BuildMonumentRequest{Prompt: b.prompt}); err != nil {
				log.Warn("%s failed to request monument: %v", b.name, err)
				b.stopBuilding()
			}
		}
	case *messages.BuildMonument:
		log.Info("%s saw monument %d %q at (%d, %d)", b.name, m.Monument.ID, m.Monument.Description, m.Monument.Position.X, m.Monument.Position.Y)
		b.stopBuilding()
	case *messages.BuildMonumentFailed:
		log.Warn("%s monument %q failed: %s", b.name, m.Prompt, m.Reason)
		b.stopBuilding()
	case *messages.MonumentCompleted:
		log.Info("%s saw monument %d completed: %s", b.name, m.ID, m.Asset)
	}
}

// startBuilding reports whether no build of this bot is in flight and marks one.
func (b *bot) startBuilding() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.building {
		return false
	}
	b.building = true
	return true
}

func (b *bot) stopBuilding() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.building = false
}
