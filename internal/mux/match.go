package mux

// MatchFunc decides whether a packet belongs to an endpoint.
type MatchFunc func(buf []byte) bool

// MatchAll accepts every packet.
func MatchAll(buf []byte) bool {
	return true
}

// MatchRange accepts packets whose first byte lies in [lower, upper].
func MatchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		return len(buf) > 0 && buf[0] >= lower && buf[0] <= upper
	}
}

// First byte ranges from https://tools.ietf.org/html/rfc7983#section-7
var (
	MatchSTUN = MatchRange(0, 3)
	MatchDTLS = MatchRange(20, 63)
	MatchSRTP = MatchRange(128, 191)
)

// RTCP packet types 192-223 collide with RTP payload types 64-95 once the
// marker bit is set, so RTP sessions muxed with RTCP avoid those payload
// types. See https://tools.ietf.org/html/rfc5761#section-4
func isRTCPType(b byte) bool {
	return b >= 192 && b <= 223
}

// MatchRTCP accepts (S)RTCP packets.
func MatchRTCP(buf []byte) bool {
	return len(buf) >= 8 && MatchSRTP(buf) && isRTCPType(buf[1])
}

// MatchRTP accepts (S)RTP packets.
func MatchRTP(buf []byte) bool {
	return len(buf) >= 12 && MatchSRTP(buf) && !isRTCPType(buf[1])
}
