//go:build darwin

package infra

import "context"

// Wi-Fi is en0 on every Mac without a separate Ethernet port.
func defaultInterfaces(context.Context) ([]string, error) {
	return []string{"en0"}, nil
}

func interfaceCommand(iface string, enabled bool) []string {
	state := "off"
	if enabled {
		state = "on"
	}
	return []string{"networksetup", "-setairportpower", iface, state}
}

func resolverFlushCommands() [][]string {
	return [][]string{
		{"dscacheutil", "-flushcache"},
		{"killall", "-HUP", "mDNSResponder"},
	}
}
