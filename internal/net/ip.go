package net

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"CrayonBoard/internal/state"
)

// Scheme prefixes share links handed to viewers.
const Scheme = "crayonboard://"

// DefaultPort is where the mirror listens unless configured otherwise.
const DefaultPort = 8888

var ErrBadLink = errors.New("bad share link")

// OutgoingIP finds the preferred local IP address for the host to share.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route out; fall back to the interfaces.
		return firstIPv4().String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	state.Logger().Warn("[NET] no suitable local IP found, using loopback")
	return net.IPv4(127, 0, 0, 1)
}

// ShareLink builds the link a viewer opens to follow host:port.
func ShareLink(host string, port int) string {
	return Scheme + net.JoinHostPort(host, strconv.Itoa(port))
}

// ParseShareLink returns the host:port a share link points at.
func ParseShareLink(link string) (string, error) {
	if !strings.HasPrefix(link, Scheme) {
		return "", fmt.Errorf("%w: %q", ErrBadLink, link)
	}
	addr := strings.TrimSuffix(strings.TrimPrefix(link, Scheme), "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadLink, link)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("%w: port %q", ErrBadLink, port)
	}
	return addr, nil
}

// SocketURL is the websocket endpoint of a host:port.
func SocketURL(addr string) string { return "ws://" + addr + "/ws" }
