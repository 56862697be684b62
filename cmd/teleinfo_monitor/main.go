// Prints every message the daemon publishes, as mirrored by its live API.
// Depends on the daemon running with [live_api] enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/liveapi"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	log "github.com/sirupsen/logrus"
)

func main() {
	flagHost := flag.String("host", "", "host:port of the live API (default $TELEINFOD_HOST or localhost:9039)")
	flagTopics := flag.Bool("topics", false, "print topic and payload only")
	flag.Parse()

	// Set the host:port from env var TELEINFOD_HOST
	host := *flagHost
	if host == "" {
		host = os.Getenv("TELEINFOD_HOST")
	}
	if host == "" {
		host = "localhost:9039"
	}
	log.SetLevel(log.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscribe to websocket with revive
	liveapi.StartListener(ctx, host, func(msg *types.LiveMessage) {
		handleMessage(msg, *flagTopics)
	})
}

func handleMessage(msg *types.LiveMessage, topicsOnly bool) {
	if topicsOnly {
		fmt.Printf("%s %s\n", msg.Topic, msg.Payload)
		return
	}
	fmt.Println(string(msg.ToJsonBytes()))
}
