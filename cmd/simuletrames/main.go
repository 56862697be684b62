// simuletrames writes synthetic TeleInfo frames to FIFOs, once per second,
// to exercise teleinfod without a meter.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	consoFifo = "/tmp/conso"
	prodFifo  = "/tmp/prod"
)

func main() {
	flagProd := flag.Bool("prod", false, "also write a production frame (BASE counter) to "+prodFifo)
	flagStandard := flag.Bool("standard", false, "write Linky standard frames instead of historic ones")
	flagPeriod := flag.Duration("period", time.Second, "delay between frames")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fifos := []string{consoFifo}
	if *flagProd {
		fifos = append(fifos, prodFifo)
	}
	for _, path := range fifos {
		if err := unix.Mkfifo(path, 0666); err != nil && !errors.Is(err, unix.EEXIST) {
			log.Fatalf("Failed to create %s: %v", path, err)
		}
		defer os.Remove(path)
	}

	sim := newSimulator(*flagStandard, rand.New(rand.NewSource(time.Now().UnixNano())))
	errs := make(chan error, len(fifos))
	for _, path := range fifos {
		path := path // per-iteration copy (go 1.21 loop semantics)
		production := path == prodFifo
		go func() {
			errs <- feed(ctx, path, *flagPeriod, func() string { return sim.frame(production) })
		}()
	}

	for range fifos {
		if err := <-errs; err != nil {
			log.Errorf("%v", err)
			stop()
		}
	}
}

// feed opens the FIFO, which blocks until a reader shows up, then writes one
// frame per period. A reader going away is waited for again.
func feed(ctx context.Context, path string, period time.Duration, next func() string) error {
	for ctx.Err() == nil {
		f, err := openWriter(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		if f == nil {
			return nil
		}
		log.Infof("Reader connected on %s", path)

		err = write(ctx, f, period, next)
		f.Close()
		if err != nil && !errors.Is(err, syscall.EPIPE) {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Infof("Reader left %s", path)
	}
	return nil
}

func openWriter(ctx context.Context, path string) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	opened := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		opened <- result{f, err}
	}()
	select {
	case r := <-opened:
		return r.f, r.err
	case <-ctx.Done():
		// unblock the pending open
		if r, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0); err == nil {
			defer r.Close()
		}
		if res := <-opened; res.f != nil {
			res.f.Close()
		}
		return nil, nil
	}
}

func write(ctx context.Context, w io.Writer, period time.Duration, next func() string) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		if _, err := io.WriteString(w, next()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
