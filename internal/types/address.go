package types

import (
	"fmt"
	"net/netip"
	"strings"
)

// Address represents a validated public IP address (v4 or v6).
// The zero value means no address is known.
type Address struct {
	addr netip.Addr
}

// ParseAddress parses and validates an address string
func ParseAddress(s string) (Address, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return AddressFrom(addr), nil
}

// MustParseAddress is like ParseAddress but panics on error
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFrom wraps a netip.Addr, unmapping IPv4-in-IPv6 forms and dropping zones
func AddressFrom(addr netip.Addr) Address {
	if !addr.IsValid() {
		return Address{}
	}
	return Address{addr: addr.Unmap().WithZone("")}
}

// IsZero reports whether the address is absent
func (a Address) IsZero() bool {
	return !a.addr.IsValid()
}

// Equal reports whether two addresses are the same
func (a Address) Equal(b Address) bool {
	return a.addr == b.addr
}

// Is4 reports whether the address is IPv4
func (a Address) Is4() bool {
	return a.addr.Is4()
}

// Version returns "ipv4", "ipv6" or "" for the zero address
func (a Address) Version() string {
	switch {
	case a.IsZero():
		return ""
	case a.addr.Is4():
		return "ipv4"
	default:
		return "ipv6"
	}
}

// Addr returns the underlying netip.Addr
func (a Address) Addr() netip.Addr {
	return a.addr
}

// String returns the canonical text form, or "" when absent
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	return a.addr.String()
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the zero address.
func (a *Address) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
