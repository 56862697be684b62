// teleinfod reads TeleInfo frames from the meter serial lines and republishes
// every measurement to an MQTT broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/aggregator"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/config"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/liveapi"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/metrics"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/port_reader"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/publisher"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	flagConfig := flag.String("f", "", "configuration file (default /etc/teleinfod/teleinfod.toml)")
	flagDebug := flag.Bool("d", false, "debug output")
	flagTrace := flag.Bool("dd", false, "debug output and display of every frame field")
	flagVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *flagVersion {
		fmt.Println("teleinfod", version)
		return
	}

	setupLogging(*flagDebug, *flagTrace)
	log.Debugf("teleinfod %s starting", version)

	// Load config
	if err := config.LoadConfig(*flagConfig); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Active
	sections, err := cfg.BuildSections()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logConfig(cfg, sections)

	m := metrics.New()
	mqttPub, err := publisher.NewMqttPublisher(publisher.MqttOptions{
		Broker:          cfg.BrokerHost,
		ClientID:        cfg.ClientID,
		Username:        cfg.Username,
		Password:        cfg.Password,
		KeepAlive:       cfg.KeepAlive(),
		DisconnectGrace: cfg.DisconnectGrace(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to the broker: %v", err)
	}

	targets := publisher.Tee{
		publisher.Logging(publisher.Instrumented(mqttPub, m), log.WithField("broker", cfg.BrokerHost)),
	}
	var hub *liveapi.Hub
	if cfg.LiveAPI.Enabled {
		hub = liveapi.NewHub()
		targets = append(targets, hub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start one pipeline per section
	periodic := cfg.MonitoringPeriod > 0
	readers := make([]*port_reader.SectionReader, 0, len(sections))
	sources := make([]aggregator.SummarySource, 0, len(sections))
	for _, section := range sections {
		section := section // per-iteration copy (go 1.21 loop semantics)
		reader := port_reader.NewSectionReader(section, targets, port_reader.Options{
			Delay:    cfg.SampleDelayDuration(),
			Periodic: periodic,
			Metrics:  m,
		})
		reader.StartReading(ctx, func(err error) {
			log.Fatalf("Section %s: %v", section.Name, err)
		})
		readers = append(readers, reader)
		sources = append(sources, reader)
	}

	if periodic {
		go aggregator.New(cfg.MonitoringPeriodDuration(), sources, targets, m).Run(ctx)
	}

	if hub != nil {
		addr := fmt.Sprintf("%s:%d", cfg.LiveAPI.ListenAddress, cfg.LiveAPI.ListenPort)
		go func() {
			if err := liveapi.Serve(ctx, addr, liveapi.NewRouter(hub, version, m.Registry)); err != nil {
				log.Fatalf("Live API: %v", err)
			}
		}()
	}

	sdnotify(daemon.SdNotifyReady)
	log.Infof("Running %d section(s)", len(sections))

	// Wait for a signal or for every section to terminate
	allDone := make(chan struct{})
	go func() {
		for _, r := range readers {
			<-r.Done()
		}
		close(allDone)
	}()
	select {
	case <-ctx.Done():
		log.Infoln("Signal received, shutting down")
	case <-allDone:
		log.Infoln("Every section terminated, shutting down")
	}

	sdnotify(daemon.SdNotifyStopping)
	stop()
	waitSections(readers, cfg.DisconnectGrace())
	mqttPub.Disconnect()
}

// waitSections waits at most timeout for every section to stop. Reports
// whether they all did.
func waitSections(readers []*port_reader.SectionReader, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for _, r := range readers {
		select {
		case <-r.Done():
		case <-deadline:
			log.Warnf("Section %s did not stop in %s", r.Section().Name, timeout)
			return false
		}
	}
	return true
}

func setupLogging(debug, trace bool) {
	formatter := &log.TextFormatter{FullTimestamp: true}
	if sdnotify("STATUS=starting") {
		// we're under systemd, journald adds the timestamp
		formatter.DisableTimestamp = true
	}
	log.SetFormatter(formatter)

	switch {
	case trace:
		log.SetLevel(log.TraceLevel)
	case debug:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func logConfig(cfg *config.Config, sections []*types.Section) {
	log.Debugf("Broker: %s", cfg.BrokerHost)
	if cfg.SampleDelay > 0 {
		log.Debugf("Delay between samples: %ds", cfg.SampleDelay)
	}
	if cfg.MonitoringPeriod > 0 {
		log.Debugf("Monitoring period: %ds", cfg.MonitoringPeriod)
	}
	for _, s := range sections {
		log.Debugf("Section %s: %s frames on %s", s.Name, s.Variant, s.Port)
		if s.Topic != "" {
			log.Debugf("\tTopic: %s", s.Topic)
		}
		if s.ConsumerTopic != "" {
			log.Debugf("\tConsumer conversion: %s", s.ConsumerTopic)
		}
		if s.ProducerTopic != "" {
			log.Debugf("\tProducer conversion: %s", s.ProducerTopic)
		}
		if len(s.Labels) > 0 {
			log.Debugf("\t%d label(s) allowed", len(s.Labels))
		}
	}
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatalf("sdnotify: %v", err)
	}
	return ok
}
