package net

import (
	"context"
	"fmt"
	"os"
	"time"

	"CrayonBoard/internal/state"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service boards advertise under.
const ServiceType = "_crayonboard._tcp"

// Advertise announces a board on port to the local network. The caller
// shuts the returned server down.
func Advertise(name string, port int) (*mdns.Server, error) {
	if name == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		name = host
	}
	service, err := mdns.NewMDNSService(name, ServiceType, "", "", port, nil, []string{"CrayonBoard"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	state.Logger().Info("[NET] advertising", "name", name, "port", port)
	return server, nil
}

// Board is a host found on the network.
type Board struct {
	Name string
	Addr string
}

// Link returns the share link of the board.
func (b Board) Link() string { return Scheme + b.Addr }

// Browse looks for boards for up to timeout, or until ctx ends, calling
// found for each one.
func Browse(ctx context.Context, timeout time.Duration, found func(Board)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(Board{Name: e.Name, Addr: fmt.Sprintf("%s:%d", e.AddrV4, e.Port)})
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.QueryContext(ctx, params)
	close(entries)
	<-done
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}
