package resolver

import (
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"kitsunedns/dns"
)

// RootServer is the a.root-servers.net address every resolution starts from.
const RootServer = "198.41.0.4:53"

// ErrNoUsableRecord is returned when a nameserver's response carries nothing
// the iteration can act on: no matching answer, no glue, no delegation and
// no alias.
var ErrNoUsableRecord = errors.New("no usable record in response")

// Resolver resolves names iteratively, walking the delegation chain down
// from a root server on its own instead of asking an upstream recursor.
type Resolver struct {
	transport Transport
	root      string
	logger    logrus.FieldLogger
}

// New returns a Resolver that starts every lookup at root and queries
// nameservers over UDP.
func New(root string, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		transport: UDPTransport{},
		root:      root,
		logger:    logger,
	}
}

// Resolve looks up an address record for name, following referrals from the
// root until a nameserver answers with the requested record type. Glueless
// delegations are chased by resolving the nameserver's own name from the
// root, and an alias restarts resolution at its target, whose response is
// returned as-is. Neither walk carries a depth bound or remembers where it
// has been, so referral or alias cycles between zones recurse until the
// stack runs out.
func (r *Resolver) Resolve(name string, qtype dns.RecordType) (*dns.Packet, net.IP, error) {
	r.logger.Infof("Resolving %s", name)

	nameserver := r.root
	for {
		r.logger.Debugf("Querying %s for %s", nameserver, name)

		response, err := r.exchange(nameserver, name, qtype)
		if err != nil {
			return nil, nil, err
		}

		if ip := answerAddress(response, qtype); ip != nil {
			return response, ip, nil
		}

		if ip := glueAddress(response); ip != nil {
			nameserver = net.JoinHostPort(ip.String(), "53")
			continue
		}

		if host := authorityHost(response); host != "" {
			_, ip, err := r.Resolve(host, qtype)
			if err != nil {
				return nil, nil, err
			}
			nameserver = net.JoinHostPort(ip.String(), "53")
			continue
		}

		if target := cnameTarget(response, name); target != "" {
			return r.Resolve(target, qtype)
		}

		return nil, nil, fmt.Errorf("resolving %s: %w", name, ErrNoUsableRecord)
	}
}

// exchange sends a fresh query for name to server and parses the response.
// Every query gets a new random id, class IN and no header flags, so the
// queried server is never asked to recurse on our behalf.
func (r *Resolver) exchange(server, name string, qtype dns.RecordType) (*dns.Packet, error) {
	query := dns.NewQuery(name, qtype, dns.ClassIN, dns.FlagNone)
	data, err := query.ToBytes()
	if err != nil {
		return nil, err
	}

	raw, err := r.transport.Exchange(server, data)
	if err != nil {
		return nil, err
	}

	return dns.ParsePacket(raw)
}

// answerAddress returns the address of the first answer matching the
// requested record type, or nil when no answer completes the lookup.
func answerAddress(response *dns.Packet, qtype dns.RecordType) net.IP {
	for _, rr := range response.Answers {
		if rr.Type != qtype {
			continue
		}
		if ip := rr.IP(); ip != nil {
			return ip
		}
	}
	return nil
}

// glueAddress returns the first address found in the additional section.
func glueAddress(response *dns.Packet) net.IP {
	for _, rr := range response.Additionals {
		switch rr.Type {
		case dns.TypeA, dns.TypeAAAA:
			if ip := rr.IP(); ip != nil {
				return ip
			}
		}
	}
	return nil
}

// authorityHost returns the first delegated nameserver named in the
// authority section.
func authorityHost(response *dns.Packet) string {
	for _, rr := range response.Authorities {
		if rr.Type == dns.TypeNS && rr.Host != "" {
			return rr.Host
		}
	}
	return ""
}

// cnameTarget returns the alias target when the response renames the
// queried name.
func cnameTarget(response *dns.Packet, name string) string {
	for _, rr := range response.Answers {
		if rr.Type == dns.TypeCNAME && rr.Name == name {
			return rr.Host
		}
	}
	return ""
}
