//go:build linux

package infra

import (
	"context"
	"slices"
	"strings"

	"github.com/shirou/gopsutil/v3/net"
)

// virtualPrefixes name interfaces that carry no uplink.
var virtualPrefixes = []string{"lo", "docker", "veth", "br-", "virbr", "cni", "flannel", "tailscale", "wg"}

func defaultInterfaces(ctx context.Context) ([]string, error) {
	stats, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, st := range stats {
		if slices.Contains(st.Flags, "loopback") || isVirtualInterface(st.Name) {
			continue
		}
		out = append(out, st.Name)
	}
	return out, nil
}

func isVirtualInterface(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func interfaceCommand(iface string, enabled bool) []string {
	state := "down"
	if enabled {
		state = "up"
	}
	return []string{"ip", "link", "set", "dev", iface, state}
}

func resolverFlushCommands() [][]string {
	return [][]string{{"resolvectl", "flush-caches"}}
}
