package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/lanikai/srtplight/internal/rtcp"
)

var (
	typeColor  = color.New(color.FgCyan, color.Bold)
	ssrcColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
)

// Print one line per RTCP packet.
func printPackets(out io.Writer, packets []rtcp.Packet) {
	for _, p := range packets {
		h := p.Header()
		typeColor.Fprintf(out, "%-6s", abbreviate(p))
		fmt.Fprintf(out, " %s\n", describe(p, h))
	}
}

func printError(out io.Writer, err error) {
	errorColor.Fprintf(out, "%-6s", "DROP")
	fmt.Fprintf(out, " %v\n", err)
}

func abbreviate(p rtcp.Packet) string {
	switch p.(type) {
	case *rtcp.SenderReport:
		return "SR"
	case *rtcp.ReceiverReport:
		return "RR"
	case *rtcp.SourceDescription:
		return "SDES"
	case *rtcp.Goodbye:
		return "BYE"
	case *rtcp.PictureLossIndication:
		return "PLI"
	case *rtcp.TransportLayerNack:
		return "NACK"
	case *rtcp.ReceiverEstimatedMaximumBitrate:
		return "REMB"
	case *rtcp.CongestionControlFeedback:
		return "CCFB"
	default:
		return "FB"
	}
}

func ssrc(v uint32) string {
	return ssrcColor.Sprintf("%08x", v)
}

func describe(p rtcp.Packet, h rtcp.Header) string {
	switch p := p.(type) {
	case *rtcp.SenderReport:
		return fmt.Sprintf("ssrc=%s ntp=%016x rtp=%d packets=%d octets=%d%s",
			ssrc(p.SSRC), p.NTPTime, p.RTPTime, p.PacketCount, p.OctetCount, describeReports(p.Reports))
	case *rtcp.ReceiverReport:
		return fmt.Sprintf("ssrc=%s%s", ssrc(p.SSRC), describeReports(p.Reports))
	case *rtcp.SourceDescription:
		var b strings.Builder
		for _, c := range p.Chunks {
			fmt.Fprintf(&b, " [%s", ssrc(c.Source))
			for _, item := range c.Items {
				fmt.Fprintf(&b, " %d=%q", item.Type, item.Text)
			}
			b.WriteString("]")
		}
		return strings.TrimPrefix(b.String(), " ")
	case *rtcp.Goodbye:
		var srcs []string
		for _, s := range p.Sources {
			srcs = append(srcs, ssrc(s))
		}
		return fmt.Sprintf("sources=[%s] reason=%q", strings.Join(srcs, " "), p.Reason)
	case *rtcp.PictureLossIndication:
		return fmt.Sprintf("sender=%s media=%s", ssrc(p.SenderSSRC), ssrc(p.MediaSSRC))
	case *rtcp.TransportLayerNack:
		return fmt.Sprintf("sender=%s media=%s lost=%v", ssrc(p.SenderSSRC), ssrc(p.MediaSSRC), p.LostPackets())
	case *rtcp.ReceiverEstimatedMaximumBitrate:
		var srcs []string
		for _, s := range p.SSRCs {
			srcs = append(srcs, ssrc(s))
		}
		return fmt.Sprintf("sender=%s bitrate=%d ssrcs=[%s]", ssrc(p.SenderSSRC), p.Bitrate, strings.Join(srcs, " "))
	case *rtcp.CongestionControlFeedback:
		var b strings.Builder
		fmt.Fprintf(&b, "sender=%s timestamp=%d", ssrc(p.SenderSSRC), p.ReportTimestamp)
		for _, s := range p.Streams {
			received := 0
			for _, r := range s.Reports {
				if r.Received {
					received++
				}
			}
			fmt.Fprintf(&b, " [%s begin=%d received=%d/%d]", ssrc(s.SSRC), s.BeginSequence, received, len(s.Reports))
		}
		return b.String()
	case *rtcp.Feedback:
		return fmt.Sprintf("%v fmt=%d sender=%s media=%s fci=%x", h.Type, p.Format, ssrc(p.SenderSSRC), ssrc(p.MediaSSRC), p.FCI)
	default:
		return fmt.Sprintf("%v", h.Type)
	}
}

func describeReports(reports []rtcp.ReceptionReport) string {
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, " [%s lost=%d/256 total=%d seq=%d jitter=%d]",
			ssrc(r.SSRC), r.FractionLost, r.TotalLost, r.LastSequenceNumber, r.Jitter)
	}
	return b.String()
}
