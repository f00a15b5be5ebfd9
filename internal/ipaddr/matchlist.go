// Package ipaddr matches client addresses against configured allow-lists.
package ipaddr

import (
	"net"

	"github.com/seancfoley/ipaddress-go/ipaddr"

	"github.com/ledgerkit/gatekeeper/internal/log"
)

// MatchList holds allow-listed addresses and CIDR ranges in per-family
// address tries.
type MatchList struct {
	trieV4 *ipaddr.IPv4AddressTrie
	trieV6 *ipaddr.IPv6AddressTrie
}

// BuildMatchList parses the given addresses and CIDR ranges into a
// MatchList. Entries that do not parse are logged and skipped.
func BuildMatchList(entries []string) *MatchList {
	list := &MatchList{
		trieV4: &ipaddr.IPv4AddressTrie{},
		trieV6: &ipaddr.IPv6AddressTrie{},
	}

	for _, entry := range entries {
		address, err := ipaddr.NewIPAddressString(entry).ToAddress()
		if err != nil {
			log.Warnf("ignoring invalid allow-list entry %q: %v", entry, err)
			continue
		}

		if address.IsIPv4() {
			list.trieV4.Add(address.ToIPv4())
		} else if address.IsIPv6() {
			list.trieV6.Add(address.ToIPv6())
		}
	}

	return list
}

// Contains reports whether ip falls inside any allow-listed address or
// range. Unparseable input never matches.
func (l *MatchList) Contains(ip string) bool {
	address, err := ipaddr.NewIPAddressString(ip).ToAddress()
	if err != nil {
		return false
	}

	if address.IsIPv4() && l.trieV4.ElementContains(address.ToIPv4()) {
		return true
	}
	if address.IsIPv6() && l.trieV6.ElementContains(address.ToIPv6()) {
		return true
	}
	return false
}

// IsLoopback reports whether the client identity names the local host.
func IsLoopback(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
