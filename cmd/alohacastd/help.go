package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagInput       string
	flagOutput      string
	flagRecord      string
	flagLoop        bool
	flagNoRealtime  bool
	flagRetries     int
	flagRetryDelay  time.Duration
	flagBackupURL   string
	flagDialTimeout time.Duration
	flagQueueSize   int
	flagStatusPort  int
	flagQuiet       bool
	flagHelp        bool
	flagVersion     bool
)

func init() {
	flag.StringVarP(&flagInput, "input", "i", "", "Media file or pull URL")
	flag.StringVarP(&flagOutput, "output", "o", "", "RTMP endpoint")
	flag.StringVarP(&flagRecord, "record", "r", "", "Record the stream to a file")
	flag.BoolVarP(&flagLoop, "loop", "l", false, "Loop the input")
	flag.BoolVarP(&flagNoRealtime, "no-realtime", "", false, "Send as fast as possible")
	flag.IntVarP(&flagRetries, "retries", "", 3, "Reconnection attempts")
	flag.DurationVarP(&flagRetryDelay, "retry-delay", "", 5*time.Second, "Wait before reconnecting")
	flag.StringVarP(&flagBackupURL, "backup-url", "", "", "Endpoint for reconnections")
	flag.DurationVarP(&flagDialTimeout, "dial-timeout", "", 10*time.Second, "Connection timeout")
	flag.IntVarP(&flagQueueSize, "queue-size", "", 60, "Packets buffered ahead of the network")
	flag.IntVarP(&flagStatusPort, "status-port", "p", 0, "HTTP status port")
	flag.BoolVarP(&flagQuiet, "quiet", "q", false, "Do not print throughput")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Live stream pre-encoded media to an RTMP server

Usage: alohacastd -i FILE -o URL [OPTION]...

Input:
  -i, --input=FILE         Media file (.mp4, .flv, .ts) or rtsp:// / rtmp://
                           URL to pull from
  -l, --loop               Start over at the end of the input
      --no-realtime        Send as fast as possible instead of at playback
                           speed

Output:
  -o, --output=URL         Endpoint, rtmp://host[:port]/app/stream or rtmps://
  -r, --record=FILE        Also record the stream to FILE (.mp4, .flv, .ts)
      --retries=NUM        Reconnection attempts (default: 3)
      --retry-delay=DUR    Wait before reconnecting (default: 5s)
      --backup-url=URL     Endpoint to use for reconnections
      --dial-timeout=DUR   Connection timeout (default: 10s)
      --queue-size=NUM     Packets buffered ahead of the network; the link
                           counts as congested once a fifth is used
                           (default: 60)

Status:
  -p, --status-port=PORT   Serve status on http://localhost:PORT/status and
                           ws://localhost:PORT/ws (default: disabled)
  -q, --quiet              Do not print throughput every second

Miscellaneous:
  -h, --help               Prints this help message and exits
  -v, --version            Prints version information and exits

Logging verbosity is set with the LOGLEVEL environment variable, e.g.
LOGLEVEL=debug or LOGLEVEL=info,publish=debug.

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	r.Printf("aloha")
	y.Printf("~")
	b.Println("cast")
	fmt.Println()
	fmt.Println(helpString)
}

func version() {
	fmt.Println("alohacastd", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
