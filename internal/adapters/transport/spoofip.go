package transport

import (
	"math/rand"
	"net/netip"
)

// spoofHeaders is the set of forwarded-IP headers the remote stack consults,
// all pinned to the same randomized address per request.
var spoofHeaders = []string{
	"X-Forwarded-For",
	"X-Real-IP",
	"Client-IP",
	"CF-Connecting-IP",
	"True-Client-IP",
}

// randomPublicIPv4 draws addresses until one is globally routable. Reserved
// ranges would be an immediate giveaway in the remote's logs.
func randomPublicIPv4() string {
	for {
		var b [4]byte
		b[0] = byte(1 + rand.Intn(254))
		b[1] = byte(rand.Intn(256))
		b[2] = byte(rand.Intn(256))
		b[3] = byte(1 + rand.Intn(254))

		addr := netip.AddrFrom4(b)
		if isPublicIPv4(addr) {
			return addr.String()
		}
	}
}

func isPublicIPv4(addr netip.Addr) bool {
	switch {
	case addr.IsPrivate(),
		addr.IsLoopback(),
		addr.IsMulticast(),
		addr.IsLinkLocalUnicast(),
		addr.IsUnspecified():
		return false
	}
	b := addr.As4()
	// 0.0.0.0/8 and 240.0.0.0/4 are reserved but not covered above.
	if b[0] == 0 || b[0] >= 240 {
		return false
	}
	// 100.64.0.0/10 carrier-grade NAT.
	if b[0] == 100 && b[1] >= 64 && b[1] < 128 {
		return false
	}
	return true
}
