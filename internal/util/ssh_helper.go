package util

import (
	"fmt"
	"io"
	"net"

	log "github.com/sirupsen/logrus"
)

// outboundIP retrieves the preferred outbound IP address of this machine.
// The UDP "dial" sends no packets; it only asks the kernel which local address it would route from.
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Warnf("Failed to close UDP connection: %v", closeErr)
		}
	}()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("could not assert UDP address type")
	}
	return localAddr.IP.String(), nil
}

// HostAddress returns the address a remote user should tunnel to, falling back to loopback.
func HostAddress() string {
	ip, err := outboundIP()
	if err != nil {
		log.Debugf("outbound IP detection failed: %v", err)
		return "127.0.0.1"
	}
	return ip
}

// PrintSSHTunnelInstructions writes SSH tunnel instructions so a user whose browser runs on
// another machine can still reach the loopback-only OAuth callback listener.
func PrintSSHTunnelInstructions(w io.Writer, port int) {
	host := HostAddress()
	border := "================================================================================"
	_, _ = fmt.Fprintln(w, "If your browser runs on a different machine, forward the callback port first.")
	_, _ = fmt.Fprintln(w, border)
	_, _ = fmt.Fprintln(w, "  Run the following on the machine with the browser:")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "  ssh -L %d:127.0.0.1:%d <user>@%s\n", port, port, host)
	_, _ = fmt.Fprintln(w, border)
}
