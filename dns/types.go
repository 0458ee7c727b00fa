package dns

import (
	"fmt"
	"math/rand"
	"net"
)

// RecordType identifies a DNS record type by its wire code.
type RecordType uint16

// DNS record types
const (
	TypeA     RecordType = 1  // IPv4 address
	TypeNS    RecordType = 2  // Authoritative nameserver
	TypeCNAME RecordType = 5  // Canonical name
	TypeSOA   RecordType = 6  // Start of authority
	TypeTXT   RecordType = 16 // Text string
	TypeAAAA  RecordType = 28 // IPv6 address
	TypeOPT   RecordType = 41 // EDNS options
)

// RecordTypeFromCode converts a wire type code to a RecordType. Codes outside
// the known set are rejected.
func RecordTypeFromCode(code uint16) (RecordType, error) {
	switch t := RecordType(code); t {
	case TypeA, TypeNS, TypeCNAME, TypeSOA, TypeTXT, TypeAAAA, TypeOPT:
		return t, nil
	}
	return 0, fmt.Errorf("unknown record type code %d", code)
}

// String returns the textual mnemonic for the record type.
func (t RecordType) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeNS:
		return "NS"
	case TypeCNAME:
		return "CNAME"
	case TypeSOA:
		return "SOA"
	case TypeTXT:
		return "TXT"
	case TypeAAAA:
		return "AAAA"
	case TypeOPT:
		return "OPT"
	}
	return fmt.Sprintf("TYPE%d", uint16(t))
}

// RecordClass identifies a DNS record class by its wire code.
type RecordClass uint16

// DNS record classes
const (
	ClassIN RecordClass = 1 // Internet
	ClassCS RecordClass = 2 // CSNET (obsolete)
	ClassCH RecordClass = 3 // Chaos
	ClassHS RecordClass = 4 // Hesiod
)

// RecordClassFromCode converts a wire class code to a RecordClass. Codes
// outside the known set are rejected.
func RecordClassFromCode(code uint16) (RecordClass, error) {
	switch c := RecordClass(code); c {
	case ClassIN, ClassCS, ClassCH, ClassHS:
		return c, nil
	}
	return 0, fmt.Errorf("unknown record class code %d", code)
}

// String returns the textual mnemonic for the record class.
func (c RecordClass) String() string {
	switch c {
	case ClassIN:
		return "IN"
	case ClassCS:
		return "CS"
	case ClassCH:
		return "CH"
	case ClassHS:
		return "HS"
	}
	return fmt.Sprintf("CLASS%d", uint16(c))
}

// Flags is the 16-bit flag word of a message header. Only two values carry
// symbolic meaning here; every other bit pattern a server may send is kept
// verbatim rather than rejected.
type Flags uint16

// DNS header flags
const (
	FlagNone             Flags = 0      // No flags set
	FlagRecursionDesired Flags = 1 << 8 // Ask the server to recurse on our behalf
)

// String describes the flag word, falling back to the raw value for bit
// patterns without a symbolic name.
func (f Flags) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagRecursionDesired:
		return "recursion desired"
	}
	return fmt.Sprintf("other (raw %d)", uint16(f))
}

// Header represents a DNS message header
type Header struct {
	ID      uint16 // Transaction identifier, echoed back by servers
	Flags   Flags  // Message flags
	QdCount uint16 // Number of questions
	AnCount uint16 // Number of answers
	NsCount uint16 // Number of authority records
	ArCount uint16 // Number of additional records
}

// Question represents a DNS question
type Question struct {
	Name  string      // Domain name
	Type  RecordType  // Record type
	Class RecordClass // Class (usually IN)
}

// ResourceRecord represents a DNS resource record
type ResourceRecord struct {
	Name    string      // Domain name
	Type    RecordType  // Record type
	Class   RecordClass // Class (usually IN)
	TTL     uint32      // Time to live, informational only
	Data    []byte      // Raw record data
	DataLen uint16      // Length of data
	Host    string      // Decoded target name for NS and CNAME records
}

// Packet represents a complete DNS message
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []ResourceRecord
	Authorities []ResourceRecord
	Additionals []ResourceRecord
}

// NewQuestion creates a question for a domain name.
func NewQuestion(name string, qtype RecordType, class RecordClass) Question {
	return Question{
		Name:  name,
		Type:  qtype,
		Class: class,
	}
}

// NewQuery creates a single-question query packet with a fresh random
// transaction id.
func NewQuery(name string, qtype RecordType, class RecordClass, flags Flags) *Packet {
	return &Packet{
		Header: Header{
			ID:      uint16(rand.Intn(1 << 16)),
			Flags:   flags,
			QdCount: 1,
		},
		Questions: []Question{NewQuestion(name, qtype, class)},
	}
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	clone := &Packet{
		Header:      p.Header,
		Questions:   append([]Question(nil), p.Questions...),
		Answers:     cloneRecords(p.Answers),
		Authorities: cloneRecords(p.Authorities),
		Additionals: cloneRecords(p.Additionals),
	}
	return clone
}

func cloneRecords(rrs []ResourceRecord) []ResourceRecord {
	if rrs == nil {
		return nil
	}
	out := make([]ResourceRecord, len(rrs))
	for i, rr := range rrs {
		out[i] = rr
		out[i].Data = append([]byte(nil), rr.Data...)
	}
	return out
}

// IP returns the address carried by an A or AAAA record, or nil if the
// record is of another type or its data has the wrong length.
func (rr *ResourceRecord) IP() net.IP {
	switch rr.Type {
	case TypeA:
		if len(rr.Data) == net.IPv4len {
			return net.IP(rr.Data)
		}
	case TypeAAAA:
		if len(rr.Data) == net.IPv6len {
			return net.IP(rr.Data)
		}
	}
	return nil
}

// DataString renders the record data for display: an address for A/AAAA, the
// target name for NS/CNAME, and a hex dump for everything else.
func (rr *ResourceRecord) DataString() string {
	switch rr.Type {
	case TypeA, TypeAAAA:
		if ip := rr.IP(); ip != nil {
			return ip.String()
		}
	case TypeNS, TypeCNAME:
		return rr.Host
	}
	return fmt.Sprintf("% x", rr.Data)
}
