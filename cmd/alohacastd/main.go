package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/alohacast"
	"github.com/lanikai/alohacast/internal/logging"
	"github.com/lanikai/alohacast/internal/status"
	"github.com/lanikai/alohacast/internal/throughput"
)

// Set at build time with -ldflags "-X main.GitRevisionId=...".
var GitRevisionId string

var log = logging.DefaultLogger.WithTag("alohacastd")

// Queue between the sender goroutine and the terminal.
const printQueue = 8

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}
	if flagInput == "" || flagOutput == "" {
		fmt.Fprintln(os.Stderr, "alohacastd: --input and --output are required (see --help)")
		os.Exit(2)
	}

	os.Exit(run())
}

// run streams until the input ends or a signal arrives, and returns the
// process exit code. Deferred cleanup always runs before the exit.
func run() int {
	cfg := alohacast.Config{
		Realtime:    !flagNoRealtime,
		Loop:        flagLoop,
		DialTimeout: flagDialTimeout,
		Retries:     flagRetries,
		RetryDelay:  flagRetryDelay,
		BackupURL:   flagBackupURL,
		QueueSize:   flagQueueSize,
	}

	// Printing to a terminal can stall; keep it off the sender goroutine.
	if !flagQuiet {
		printer := throughput.NewAsyncListener(throughput.ListenerFunc(printThroughput), printQueue)
		defer printer.Close()
		cfg.Throughput = printer
	}

	if flagStatusPort != 0 {
		hub := status.NewHub()
		defer hub.Close()
		cfg.Status = hub

		server := status.NewServer(fmt.Sprintf(":%d", flagStatusPort), hub)
		go func() {
			if err := server.ListenAndServe(); err != nil {
				log.Error("%v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			server.Shutdown(ctx)
		}()
	}

	service := alohacast.NewService(cfg)
	defer service.Close()

	if err := service.Prepare(flagInput); err != nil {
		log.Error("%v", err)
		return 1
	}
	if flagRecord != "" {
		if err := service.StartRecord(flagRecord); err != nil {
			log.Error("%v", err)
			return 1
		}
	}
	if err := service.StartStream(flagOutput); err != nil {
		log.Error("%v", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info("Received %v, stopping", sig)
		service.StopStream()
	}()

	err := service.Wait()

	stats := service.Stats()
	log.Info("Sent %d video and %d audio packets, dropped %d video and %d audio",
		stats.SentVideoFrames(), stats.SentAudioFrames(),
		stats.DroppedVideoFrames(), stats.DroppedAudioFrames())

	if err != nil {
		log.Error("%v", err)
		return 1
	}
	return 0
}

// printThroughput shows a window total of bytes as kbit/s.
func printThroughput(bytes uint64) {
	fmt.Printf("%8.1f kbit/s\n", float64(bytes)*8/1000)
}
