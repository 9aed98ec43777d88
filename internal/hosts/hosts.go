// Package hosts turns user input into the ordered list of IPv4 targets an
// audit walks over.
package hosts

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"
)

// MinPrefixBits is the shortest prefix accepted for a scan.
const MinPrefixBits = 8

// maxPrealloc bounds the initial capacity of Expand's result.
const maxPrealloc = 1 << 16

// ErrInvalidSubnet is matched by every *InvalidSubnetError.
var ErrInvalidSubnet = errors.New("sous-réseau invalide")

// InvalidSubnetError reports a subnet argument that is not an IPv4 network.
type InvalidSubnetError struct {
	Subnet string
	Err    error
}

func (e *InvalidSubnetError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", ErrInvalidSubnet, e.Subnet)
	}
	return fmt.Sprintf("%s: %q: %v", ErrInvalidSubnet, e.Subnet, e.Err)
}

func (e *InvalidSubnetError) Unwrap() error { return e.Err }

func (e *InvalidSubnetError) Is(target error) bool { return target == ErrInvalidSubnet }

// localIPv4 finds this machine's address for the /24 fallback.
var localIPv4 = primaryIPv4

// Enumerate returns the hosts to audit.
//
// A non-empty explicit list is returned as is. Otherwise a subnet, when given,
// is expanded to its usable addresses in ascending order. With neither, the
// /24 around the local IPv4 address is used.
func Enumerate(explicit []string, subnet string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if strings.TrimSpace(subnet) != "" {
		p, err := ParseSubnet(subnet)
		if err != nil {
			return nil, err
		}
		return Expand(p), nil
	}
	return LocalSubnet()
}

// ParseSubnet parses an IPv4 CIDR. Host bits are masked off and a bare
// address is treated as a /32.
func ParseSubnet(subnet string) (netip.Prefix, error) {
	s := strings.TrimSpace(subnet)
	var p netip.Prefix
	if strings.Contains(s, "/") {
		var err error
		if p, err = netip.ParsePrefix(s); err != nil {
			return netip.Prefix{}, &InvalidSubnetError{Subnet: subnet, Err: err}
		}
	} else {
		a, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, &InvalidSubnetError{Subnet: subnet, Err: err}
		}
		p = netip.PrefixFrom(a, a.BitLen())
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, &InvalidSubnetError{Subnet: subnet, Err: errors.New("seul IPv4 est pris en charge")}
	}
	if p.Bits() < MinPrefixBits {
		return netip.Prefix{}, &InvalidSubnetError{Subnet: subnet, Err: fmt.Errorf("préfixe plus court que /%d", MinPrefixBits)}
	}
	return p.Masked(), nil
}

// Expand lists the usable addresses of p: everything but the network and
// broadcast addresses, except for /31 and /32 where every address is usable.
func Expand(p netip.Prefix) []string {
	p = p.Masked()
	bits := p.Bits()
	if bits >= 31 {
		out := []string{p.Addr().String()}
		if bits == 31 {
			out = append(out, p.Addr().Next().String())
		}
		return out
	}

	n := uint64(1)<<(32-bits) - 2
	out := make([]string, 0, min(n, maxPrealloc))
	for a := p.Addr().Next(); uint64(len(out)) < n; a = a.Next() {
		out = append(out, a.String())
	}
	return out
}

// LocalSubnet returns .1 to .254 of the /24 holding the local IPv4 address.
func LocalSubnet() ([]string, error) {
	ip, err := localIPv4()
	if err != nil {
		return nil, err
	}
	a, err := netip.ParseAddr(ip)
	if err != nil || !a.Is4() {
		return nil, fmt.Errorf("adresse locale inexploitable %q", ip)
	}
	p, _ := a.Prefix(24)
	return Expand(p), nil
}

// primaryIPv4 returns the first non-loopback IPv4 address of an up interface,
// falling back to resolving the hostname.
func primaryIPv4() (string, error) {
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, addr := range addrs {
				var ip net.IP
				switch v := addr.(type) {
				case *net.IPNet:
					ip = v.IP
				case *net.IPAddr:
					ip = v.IP
				}
				if ip == nil || ip.IsLoopback() {
					continue
				}
				if ip4 := ip.To4(); ip4 != nil {
					return ip4.String(), nil
				}
			}
		}
	}

	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("adresse IP locale introuvable: %w", err)
	}
	ips, err := net.LookupIP(name)
	if err != nil {
		return "", fmt.Errorf("adresse IP locale introuvable: %w", err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4.String(), nil
		}
	}
	return "", errors.New("adresse IP locale introuvable")
}
