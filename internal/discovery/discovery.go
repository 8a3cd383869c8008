// Package discovery advertises an adinnet or vecnet server over mDNS/
// DNS-SD, so a remote adintool client can find a decoder's listen port
// without the operator typing in an IP and port by hand.
//
// Grounded directly on the teacher's dns_sd_announce (src/dns_sd.go),
// generalized from its fixed KISS-over-TCP service type to the two
// service types this module's servers speak.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

const (
	ServiceAdinNet = "_adinnet._tcp"
	ServiceVecNet  = "_vecnet._tcp"
)

// Advertiser wraps a running DNS-SD responder for one advertised
// service; Close stops the responder goroutine.
type Advertiser struct {
	cancel context.CancelFunc
}

// Advertise announces name (empty for a generated default) on port under
// serviceType (one of ServiceAdinNet, ServiceVecNet), returning once the
// responder goroutine has been started.
func Advertise(serviceType, name string, port int, logger *log.Logger) (*Advertiser, error) {
	cfg := dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: serviceType,
		Port: port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: create service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("discovery: create responder: %w", err)
	}

	if _, err := rp.Add(sv); err != nil {
		return nil, fmt.Errorf("discovery: add service: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := rp.Respond(ctx); err != nil && logger != nil {
			logger.Error("dns-sd responder stopped", "err", err)
		}
	}()

	if logger != nil {
		logger.Info("advertising service", "type", serviceType, "port", port)
	}

	return &Advertiser{cancel: cancel}, nil
}

// Close stops responding to queries for this service.
func (a *Advertiser) Close() error {
	a.cancel()
	return nil
}
