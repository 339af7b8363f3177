package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/net/ipv4"

	"github.com/lanikai/srtplight"
	"github.com/lanikai/srtplight/internal/logging"
	"github.com/lanikai/srtplight/internal/mux"
	"github.com/lanikai/srtplight/internal/rtcp"
	"github.com/lanikai/srtplight/internal/srtp"
)

var log = logging.DefaultLogger.WithTag("srtcpmon")

const maxPacketSize = 1500

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
	if flagNoColor {
		color.NoColor = true
		logging.DisableColor()
	}

	config, err := buildConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "srtcpmon:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if flagHex {
		err = runHex(ctx, config, os.Stdin)
	} else {
		err = runNetwork(ctx, config)
	}
	if err != nil && ctx.Err() == nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func buildConfig() (srtplight.Config, error) {
	config := srtplight.Config{
		Suite:        flagSuite,
		LocalSSRC:    flagSSRC,
		ReplayWindow: flagReplay,
	}
	profile, err := srtp.ProfileFromName(flagSuite)
	if err != nil {
		return config, errors.Wrap(err, "--suite")
	}
	if flagKey == "" {
		return config, errors.New("--key is required")
	}
	if config.LocalKey, config.LocalSalt, err = parseKeyParams(flagKey, profile); err != nil {
		return config, errors.Wrap(err, "--key")
	}
	config.RemoteKey, config.RemoteSalt = config.LocalKey, config.LocalSalt
	if flagRemoteKey != "" {
		if config.RemoteKey, config.RemoteSalt, err = parseKeyParams(flagRemoteKey, profile); err != nil {
			return config, errors.Wrap(err, "--remote-key")
		}
	}
	return config, nil
}

// A monitor prints every SRTCP datagram it is handed and optionally answers
// sender reports.
type monitor struct {
	engine *srtplight.Engine
	out    io.Writer
	reply  bool
	ssrc   uint32
}

func (m *monitor) handle(buf []byte) {
	packets, err := m.engine.Inbound(buf)
	if err != nil {
		printError(m.out, err)
		return
	}
	if len(packets) == 0 {
		log.Info("skipped unencrypted SRTCP packet")
		return
	}
	printPackets(m.out, packets)

	if !m.reply {
		return
	}
	var reports []rtcp.ReceptionReport
	for _, p := range packets {
		if sr, ok := p.(*rtcp.SenderReport); ok {
			reports = append(reports, rtcp.ReceptionReport{
				SSRC:             sr.SSRC,
				LastSenderReport: uint32(sr.NTPTime >> 16),
			})
		}
	}
	if len(reports) > 0 {
		if err := m.engine.SendReceiverReport(m.ssrc, reports...); err != nil {
			log.Warn("failed to send receiver report: %v", err)
		}
	}
}

// Decode hex-encoded datagrams from r, one per line. Replies are printed as
// hex.
func runHex(ctx context.Context, config srtplight.Config, r io.Reader) error {
	engine, err := srtplight.NewEngine(config, srtplight.TransportFunc(func(buf []byte) error {
		_, err := fmt.Printf("> %x\n", buf)
		return err
	}))
	if err != nil {
		return errors.Wrap(err, "create engine")
	}
	m := &monitor{engine: engine, out: os.Stdout, reply: flagReply, ssrc: flagSSRC}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.ReplaceAll(strings.TrimSpace(scanner.Text()), " ", "")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		buf, err := hex.DecodeString(line)
		if err != nil {
			printError(os.Stdout, errors.Wrap(err, "bad hex"))
			continue
		}
		m.handle(buf)
	}
	return errors.Wrap(scanner.Err(), "read stdin")
}

func runNetwork(ctx context.Context, config srtplight.Config) error {
	laddr, err := net.ResolveUDPAddr("udp", flagListen)
	if err != nil {
		return errors.Wrap(err, "--listen")
	}
	if flagPeer == "" {
		conn, err := net.ListenUDP("udp", laddr)
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		setDSCP(conn)
		return serveUnconnected(ctx, config, conn)
	}

	raddr, err := net.ResolveUDPAddr("udp", flagPeer)
	if err != nil {
		return errors.Wrap(err, "--peer")
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	setDSCP(conn)
	return serveConnected(ctx, config, conn)
}

func setDSCP(conn net.Conn) {
	if flagDSCP == 0 {
		return
	}
	if err := ipv4.NewConn(conn).SetTOS(flagDSCP << 2); err != nil {
		log.Warn("failed to set DSCP %d: %v", flagDSCP, err)
	}
}

// With a known peer, SRTCP is split from whatever else arrives on the port.
func serveConnected(ctx context.Context, config srtplight.Config, conn *net.UDPConn) error {
	m := mux.NewMux(conn, maxPacketSize)
	defer m.Close()
	rtcpConn := m.NewEndpoint(mux.MatchRTCP)
	other := m.NewEndpoint(mux.MatchAll)

	engine, err := srtplight.NewEngine(config, srtplight.TransportFunc(func(buf []byte) error {
		_, err := rtcpConn.Write(buf)
		return err
	}))
	if err != nil {
		return errors.Wrap(err, "create engine")
	}
	mon := &monitor{engine: engine, out: os.Stdout, reply: flagReply, ssrc: flagSSRC}

	go func() {
		<-ctx.Done()
		m.Close()
	}()
	go func() {
		buf := make([]byte, maxPacketSize)
		for {
			n, err := other.Read(buf)
			if err != nil {
				return
			}
			log.Debug("ignoring %d byte non-RTCP packet", n)
		}
	}()

	log.Info("monitoring SRTCP from %v on %v", conn.RemoteAddr(), conn.LocalAddr())
	buf := make([]byte, maxPacketSize)
	for {
		n, err := rtcpConn.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		mon.handle(buf[:n])
	}
}

// Replies go to whoever sent the most recent datagram.
type replier struct {
	conn *net.UDPConn

	mu   sync.Mutex
	addr *net.UDPAddr
}

func (r *replier) setPeer(addr *net.UDPAddr) {
	r.mu.Lock()
	r.addr = addr
	r.mu.Unlock()
}

func (r *replier) Send(buf []byte) error {
	r.mu.Lock()
	addr := r.addr
	r.mu.Unlock()
	if addr == nil {
		return errors.New("no peer yet")
	}
	_, err := r.conn.WriteToUDP(buf, addr)
	return err
}

func serveUnconnected(ctx context.Context, config srtplight.Config, conn *net.UDPConn) error {
	defer conn.Close()
	r := &replier{conn: conn}
	engine, err := srtplight.NewEngine(config, r)
	if err != nil {
		return errors.Wrap(err, "create engine")
	}
	mon := &monitor{engine: engine, out: os.Stdout, reply: flagReply, ssrc: flagSSRC}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info("listening for SRTCP on %v", conn.LocalAddr())
	buf := make([]byte, maxPacketSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		if !mux.MatchRTCP(buf[:n]) {
			log.Debug("ignoring %d byte non-RTCP packet from %v", n, addr)
			continue
		}
		r.setPeer(addr)
		mon.handle(buf[:n])
	}
}
