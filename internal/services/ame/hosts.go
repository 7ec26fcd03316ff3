package ame

import (
	"context"
	"net"
)

// CandidateHosts lists addresses AME may be bound to: loopback names first,
// then every non-loopback IPv4 address of this machine. AME binds to the
// address chosen in its own settings, which is often the LAN address.
func CandidateHosts() []string {
	hosts := []string{"localhost", "127.0.0.1"}
	seen := map[string]struct{}{"localhost": {}, "127.0.0.1": {}}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return hosts
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		s := ip4.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		hosts = append(hosts, s)
	}
	return hosts
}

// Discover probes each candidate host and returns the status of every one
// that answered, in candidate order.
func (c *Client) Discover(ctx context.Context, hosts []string) []HostStatus {
	results := make([]HostStatus, 0, len(hosts))
	for _, host := range hosts {
		probe := NewClient(c.endpoint.WithHost(host), WithHTTPClient(c.http))
		status, err := probe.Status(ctx)
		results = append(results, HostStatus{Host: host, Status: status, Err: err})
	}
	return results
}

// HostStatus is one Discover probe outcome.
type HostStatus struct {
	Host   string
	Status ServerStatus
	Err    error
}
