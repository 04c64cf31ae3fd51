package lnwire

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"strings"
)

// addrType is the on-the-wire discriminant for one entry in a node
// announcement's packed address field.
type addrType uint8

const (
	addrTypePadding addrType = 0
	addrTypeIPv4    addrType = 1
	addrTypeIPv6    addrType = 2
	addrTypeOnionV2 addrType = 3
	addrTypeOnionV3 addrType = 4
)

const (
	onionV2RawLen = 10
	onionV3RawLen = 35
)

var onionEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Address is a decoded (host, port) pair advertised by a node
// announcement. Host is one of: an IPv4 dotted address, an IPv6
// colon-hex address, a 16-char Tor v2 ".onion" address, or a 56-char Tor
// v3 ".onion" address.
type Address struct {
	Host string
	Port uint16
}

// DecodeAddresses parses the packed address field of a node announcement.
// It stops at the first unrecognized type descriptor, since that type's
// payload length can't be known, and returns whatever addresses were
// successfully parsed up to that point. Entries with port 0 or a malformed
// payload are dropped; duplicates are not deduplicated.
func DecodeAddresses(data []byte) []Address {
	var addrs []Address

	for len(data) > 0 {
		t := addrType(data[0])
		data = data[1:]

		switch t {
		case addrTypePadding:
			// Zero-length payload; nothing to consume.

		case addrTypeIPv4:
			if len(data) < 4+2 {
				return addrs
			}
			ip := net.IP(append([]byte(nil), data[:4]...))
			port := binary.BigEndian.Uint16(data[4:6])
			data = data[6:]
			if port != 0 {
				addrs = append(addrs, Address{Host: ip.String(), Port: port})
			}

		case addrTypeIPv6:
			if len(data) < 16+2 {
				return addrs
			}
			ip := net.IP(append([]byte(nil), data[:16]...))
			port := binary.BigEndian.Uint16(data[16:18])
			data = data[18:]
			if port != 0 {
				addrs = append(addrs, Address{Host: ip.String(), Port: port})
			}

		case addrTypeOnionV2:
			if len(data) < onionV2RawLen+2 {
				return addrs
			}
			host := strings.ToLower(onionEncoding.EncodeToString(data[:onionV2RawLen])) + ".onion"
			port := binary.BigEndian.Uint16(data[onionV2RawLen : onionV2RawLen+2])
			data = data[onionV2RawLen+2:]
			if port != 0 {
				addrs = append(addrs, Address{Host: host, Port: port})
			}

		case addrTypeOnionV3:
			if len(data) < onionV3RawLen+2 {
				return addrs
			}
			host := strings.ToLower(onionEncoding.EncodeToString(data[:onionV3RawLen])) + ".onion"
			port := binary.BigEndian.Uint16(data[onionV3RawLen : onionV3RawLen+2])
			data = data[onionV3RawLen+2:]
			if port != 0 {
				addrs = append(addrs, Address{Host: host, Port: port})
			}

		default:
			// Unknown type: remaining length is unrecoverable, stop here.
			return addrs
		}
	}

	return addrs
}

// EncodeAddresses serializes a list of addresses back into the packed wire
// format understood by DecodeAddresses.
func EncodeAddresses(addrs []Address) ([]byte, error) {
	var out []byte
	for _, a := range addrs {
		if a.Port == 0 {
			return nil, errors.New("lnwire: address has zero port")
		}

		switch {
		case strings.HasSuffix(a.Host, ".onion") && len(a.Host) == len(".onion")+16:
			raw, err := decodeOnionHost(a.Host)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(addrTypeOnionV2))
			out = append(out, raw...)
			out = appendPort(out, a.Port)

		case strings.HasSuffix(a.Host, ".onion") && len(a.Host) == len(".onion")+56:
			raw, err := decodeOnionHost(a.Host)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(addrTypeOnionV3))
			out = append(out, raw...)
			out = appendPort(out, a.Port)

		default:
			ip := net.ParseIP(a.Host)
			if ip == nil {
				return nil, errors.New("lnwire: invalid address host " + strconv.Quote(a.Host))
			}
			if v4 := ip.To4(); v4 != nil {
				out = append(out, byte(addrTypeIPv4))
				out = append(out, v4...)
				out = appendPort(out, a.Port)
			} else {
				out = append(out, byte(addrTypeIPv6))
				out = append(out, ip.To16()...)
				out = appendPort(out, a.Port)
			}
		}
	}
	return out, nil
}

func appendPort(b []byte, port uint16) []byte {
	var p [2]byte
	binary.BigEndian.PutUint16(p[:], port)
	return append(b, p[:]...)
}

func decodeOnionHost(host string) ([]byte, error) {
	label := strings.ToUpper(strings.TrimSuffix(host, ".onion"))
	return onionEncoding.DecodeString(label)
}
