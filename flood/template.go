package flood

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// Wildcard is the placeholder for a random number, in an address template.
const Wildcard = '*'

// Family identifies the address family of a [Template].
type Family int

const (
	FamilyIPv4 Family = iota + 1
	FamilyIPv6
)

type (
	// Template is a parsed destination address, possibly containing
	// wildcards.
	Template struct {
		raw    string
		family Family
		stars  int
	}

	// Range is a closed interval of integers.
	Range struct {
		Min int
		Max int
	}
)

// String returns the family name, as used in log output.
func (x Family) String() string {
	switch x {
	case FamilyIPv4:
		return `ipv4`
	case FamilyIPv6:
		return `ipv6`
	default:
		return `unknown`
	}
}

// ResolveNetwork returns the network for address lookup, e.g. "ip4".
func (x Family) ResolveNetwork() string {
	if x == FamilyIPv6 {
		return `ip6`
	}
	return `ip4`
}

// SocketNetwork returns the network for the UDP socket, e.g. "udp4".
func (x Family) SocketNetwork() string {
	if x == FamilyIPv6 {
		return `udp6`
	}
	return `udp4`
}

// ParseTemplate classifies s as IPv4 (contains '.') or IPv6 (contains ':').
// Anything else, including both, is rejected with [ErrInvalidAddress].
func ParseTemplate(s string) (*Template, error) {
	dots := strings.IndexByte(s, '.') >= 0
	colons := strings.IndexByte(s, ':') >= 0
	if dots == colons {
		return nil, ErrInvalidAddress
	}
	t := &Template{
		raw:    s,
		family: FamilyIPv4,
		stars:  strings.Count(s, string(Wildcard)),
	}
	if colons {
		t.family = FamilyIPv6
	}
	return t, nil
}

// String returns the unmaterialized template.
func (x *Template) String() string {
	return x.raw
}

// Family returns the address family of the template.
func (x *Template) Family() Family {
	return x.family
}

// Materialize replaces each wildcard with an independent random number:
// decimal [0, 255] for IPv4, or 4 lowercase hex digits [0, 65535] for IPv6.
// The rest of the template is copied verbatim.
func (x *Template) Materialize(r *rand.Rand) string {
	if x.stars == 0 {
		return x.raw
	}
	var b strings.Builder
	b.Grow(len(x.raw) + x.stars*3)
	for i := 0; i < len(x.raw); i++ {
		c := x.raw[i]
		if c != Wildcard {
			b.WriteByte(c)
			continue
		}
		if x.family == FamilyIPv6 {
			v := r.IntN(65536)
			const hex = `0123456789abcdef`
			b.WriteByte(hex[v>>12&0xf])
			b.WriteByte(hex[v>>8&0xf])
			b.WriteByte(hex[v>>4&0xf])
			b.WriteByte(hex[v&0xf])
		} else {
			var buf [3]byte
			b.Write(strconv.AppendInt(buf[:0], int64(r.IntN(256)), 10))
		}
	}
	return b.String()
}

// Pick returns Min if the range is fixed, otherwise a uniform random value
// in [Min, Max].
func (x Range) Pick(r *rand.Rand) int {
	if x.Min >= x.Max {
		return x.Min
	}
	return x.Min + r.IntN(x.Max-x.Min+1)
}

// Fixed reports whether the range contains exactly one value.
func (x Range) Fixed() bool {
	return x.Min == x.Max
}
