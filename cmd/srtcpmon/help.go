package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagListen    string
	flagPeer      string
	flagKey       string
	flagRemoteKey string
	flagSuite     string
	flagSSRC      uint32
	flagDSCP      int
	flagReplay    uint
	flagHex       bool
	flagReply     bool
	flagNoColor   bool
	flagHelp      bool
	flagVersion   bool
)

func init() {
	flag.StringVarP(&flagListen, "listen", "l", ":5005", "Local UDP address")
	flag.StringVarP(&flagPeer, "peer", "p", "", "Remote UDP address")
	flag.StringVarP(&flagKey, "key", "k", "", "Local master key and salt")
	flag.StringVarP(&flagRemoteKey, "remote-key", "r", "", "Remote master key and salt")
	flag.StringVarP(&flagSuite, "suite", "s", "AES_CM_128_HMAC_SHA1_80", "Crypto suite")
	flag.Uint32Var(&flagSSRC, "ssrc", 1, "SSRC of outgoing reports")
	flag.IntVar(&flagDSCP, "dscp", 0, "DSCP for outgoing packets")
	flag.UintVar(&flagReplay, "replay-window", 64, "SRTCP replay window, 0 to disable")
	flag.BoolVarP(&flagHex, "hex", "x", false, "Read hex-encoded packets from stdin")
	flag.BoolVar(&flagReply, "reply", false, "Answer sender reports with receiver reports")
	flag.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")

	flag.Usage = help
}

const helpString = `Decrypt and print SRTCP traffic

Usage: srtcpmon [OPTION]...

Keying:
  -k, --key=PARAMS        Local master key and salt, as inline:<base64> from an
                          a=crypto line, or hex (required)
  -r, --remote-key=PARAMS Remote master key and salt (default: same as --key)
  -s, --suite=NAME        AES_CM_128_HMAC_SHA1_80 or AES_CM_128_HMAC_SHA1_32
                          (default: AES_CM_128_HMAC_SHA1_80)

Network:
  -l, --listen=ADDR       Local UDP address (default: :5005)
  -p, --peer=ADDR         Remote UDP address. Without it, replies go to the
                          source of the last packet
      --dscp=NUM          Mark outgoing packets with this DSCP (IPv4 only)
      --replay-window=NUM Reject replayed SRTCP packets within this window,
                          0 to disable (default: 64)
      --reply             Answer each sender report with a receiver report
      --ssrc=NUM          SSRC of outgoing reports (default: 1)

Offline:
  -x, --hex               Read hex-encoded SRTCP packets from stdin, one per line

Miscellaneous:
      --no-color          Disable colored output
  -h, --help              Prints this help message and exits
  -v, --version           Prints version information and exits

Log levels are set with LOGLEVEL, e.g. LOGLEVEL=srtplight=debug,info`

// Help information is printed and program exits
func help() {
	color.New(color.FgCyan, color.Bold).Println("srtcpmon")
	fmt.Println(helpString)
}

// Populated via -ldflags="-X ...".
var GitRevisionId string

func version() {
	fmt.Println("srtcpmon", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
