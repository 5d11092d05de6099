//go:build windows

package infra

import "context"

func defaultInterfaces(context.Context) ([]string, error) {
	return []string{"Wi-Fi", "Ethernet"}, nil
}

func interfaceCommand(iface string, enabled bool) []string {
	state := "disable"
	if enabled {
		state = "enable"
	}
	return []string{"netsh", "interface", "set", "interface", iface, state}
}

func resolverFlushCommands() [][]string {
	return [][]string{{"ipconfig", "/flushdns"}}
}
