package dns

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildName encodes labels as length-prefixed wire bytes with a zero terminator.
func buildName(labels ...string) []byte {
	var out []byte
	for _, label := range labels {
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0)
}

func buildHeader(id, flags, qd, an, ns, ar uint16) []byte {
	out := binary.BigEndian.AppendUint16(nil, id)
	out = binary.BigEndian.AppendUint16(out, flags)
	out = binary.BigEndian.AppendUint16(out, qd)
	out = binary.BigEndian.AppendUint16(out, an)
	out = binary.BigEndian.AppendUint16(out, ns)
	return binary.BigEndian.AppendUint16(out, ar)
}

func buildQuestion(name []byte, qtype, class uint16) []byte {
	out := append([]byte(nil), name...)
	out = binary.BigEndian.AppendUint16(out, qtype)
	return binary.BigEndian.AppendUint16(out, class)
}

func buildRecord(name []byte, rtype, class uint16, ttl uint32, rdata []byte) []byte {
	out := append([]byte(nil), name...)
	out = binary.BigEndian.AppendUint16(out, rtype)
	out = binary.BigEndian.AppendUint16(out, class)
	out = binary.BigEndian.AppendUint32(out, ttl)
	out = binary.BigEndian.AppendUint16(out, uint16(len(rdata)))
	return append(out, rdata...)
}

func TestEncodeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{
			name:  "two labels",
			input: "google.com",
			want: []byte{
				0x06, 'g', 'o', 'o', 'g', 'l', 'e',
				0x03, 'c', 'o', 'm',
				0x00,
			},
		},
		{
			name:  "three labels",
			input: "www.example.com",
			want:  buildName("www", "example", "com"),
		},
		{
			name:  "root",
			input: "",
			want:  []byte{0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encodeName(&buf, tt.input))
			assert.Equal(t, tt.want, buf.Bytes())
		})
	}
}

func TestEncodeNameLongLabels(t *testing.T) {
	// Labels up to 255 bytes encode, since the length still fits in one byte.
	var buf bytes.Buffer
	long := strings.Repeat("a", 200)
	require.NoError(t, encodeName(&buf, long+".com"))
	assert.Equal(t, byte(200), buf.Bytes()[0])

	buf.Reset()
	err := encodeName(&buf, strings.Repeat("a", 256)+".com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label too long")
}

func TestToBytesHeaderLayout(t *testing.T) {
	p := &Packet{Header: Header{ID: 0x1314, QdCount: 1}}
	data, err := p.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x13, 0x14,
		0x00, 0x00,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
	}, data)
}

func TestQueryToBytes(t *testing.T) {
	query := NewQuery("example.com", TypeA, ClassIN, FlagNone)
	data, err := query.ToBytes()
	require.NoError(t, err)

	// The id is random. Everything after it is fixed.
	assert.Equal(t, query.Header.ID, binary.BigEndian.Uint16(data[:2]))
	assert.Equal(t, []byte{
		0x00, 0x00, // no flags
		0x00, 0x01, // one question
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0x03, 'c', 'o', 'm', 0x00,
		0x00, 0x01, // qtype A
		0x00, 0x01, // class IN
	}, data[2:])
}

func TestQueryToBytesRecursionDesired(t *testing.T) {
	query := NewQuery("example.com", TypeA, ClassIN, FlagRecursionDesired)
	data, err := query.ToBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, data[2:4])
}

func TestToBytesRejectsOversizedData(t *testing.T) {
	p := &Packet{
		Header:  Header{ID: 1, AnCount: 1},
		Answers: []ResourceRecord{{Name: "big.example.com", Type: TypeTXT, Class: ClassIN, Data: make([]byte, 0x10000)}},
	}
	_, err := p.ToBytes()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record data too long: 65536 bytes")
}

func TestParsePacketAnswer(t *testing.T) {
	// A captured response for www.example.com A, with the answer name
	// compressed as a pointer back to the question name at offset 12.
	data := []byte{
		0x60, 0x56, 0x81, 0x80, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00,
		0x03, 'w', 'w', 'w', 0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0x03, 'c', 'o', 'm', 0x00,
		0x00, 0x01, 0x00, 0x01,
		0xc0, 0x0c, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x52, 0x9b, 0x00, 0x04,
		0x5d, 0xb8, 0xd8, 0x22,
	}

	msg, err := ParsePacket(data)
	require.NoError(t, err)

	assert.Equal(t, uint16(0x6056), msg.Header.ID)
	assert.Equal(t, Flags(0x8180), msg.Header.Flags)
	assert.Equal(t, "other (raw 33152)", msg.Header.Flags.String())
	assert.Equal(t, uint16(1), msg.Header.QdCount)
	assert.Equal(t, uint16(1), msg.Header.AnCount)

	require.Len(t, msg.Questions, 1)
	assert.Equal(t, "www.example.com", msg.Questions[0].Name)
	assert.Equal(t, TypeA, msg.Questions[0].Type)
	assert.Equal(t, ClassIN, msg.Questions[0].Class)

	require.Len(t, msg.Answers, 1)
	answer := msg.Answers[0]
	assert.Equal(t, "www.example.com", answer.Name)
	assert.Equal(t, TypeA, answer.Type)
	assert.Equal(t, ClassIN, answer.Class)
	assert.Equal(t, uint32(21147), answer.TTL)
	assert.Equal(t, uint16(4), answer.DataLen)
	assert.Equal(t, []byte{0x5d, 0xb8, 0xd8, 0x22}, answer.Data)
	assert.Equal(t, "93.184.216.34", answer.IP().String())

	assert.Empty(t, msg.Authorities)
	assert.Empty(t, msg.Additionals)
}

func TestParsePacketRoundTrip(t *testing.T) {
	nsData := buildName("ns1", "kitsune", "test")
	original := &Packet{
		Header: Header{
			ID:      0xBEEF,
			Flags:   FlagRecursionDesired,
			QdCount: 1,
			AnCount: 1,
			NsCount: 1,
			ArCount: 1,
		},
		Questions: []Question{NewQuestion("www.kitsune.test", TypeA, ClassIN)},
		Answers: []ResourceRecord{{
			Name:    "www.kitsune.test",
			Type:    TypeA,
			Class:   ClassIN,
			TTL:     3600,
			Data:    []byte{192, 0, 2, 10},
			DataLen: 4,
		}},
		Authorities: []ResourceRecord{{
			Name:    "kitsune.test",
			Type:    TypeNS,
			Class:   ClassIN,
			TTL:     86400,
			Data:    nsData,
			DataLen: uint16(len(nsData)),
			Host:    "ns1.kitsune.test",
		}},
		Additionals: []ResourceRecord{{
			Name:    "ns1.kitsune.test",
			Type:    TypeA,
			Class:   ClassIN,
			TTL:     3600,
			Data:    []byte{192, 0, 2, 53},
			DataLen: 4,
		}},
	}

	data, err := original.ToBytes()
	require.NoError(t, err)

	parsed, err := ParsePacket(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParsePacketErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    func() []byte
		wantErr string
	}{
		{
			name:    "short header",
			data:    func() []byte { return []byte{0x60, 0x56, 0x81} },
			wantErr: "message too short",
		},
		{
			name: "answer count past end of message",
			data: func() []byte {
				return buildHeader(1, 0, 0, 1, 0, 0)
			},
			wantErr: "invalid name: offset out of bounds",
		},
		{
			name: "record with unknown type code",
			data: func() []byte {
				data := buildHeader(1, 0, 0, 1, 0, 0)
				return append(data, buildRecord(buildName("example", "com"), 99, 1, 300, nil)...)
			},
			wantErr: "unknown record type code 99",
		},
		{
			name: "record with unknown class code",
			data: func() []byte {
				data := buildHeader(1, 0, 0, 1, 0, 0)
				return append(data, buildRecord(buildName("example", "com"), 1, 4096, 300, nil)...)
			},
			wantErr: "unknown record class code 4096",
		},
		{
			name: "record truncated before fixed fields",
			data: func() []byte {
				data := buildHeader(1, 0, 0, 1, 0, 0)
				data = append(data, buildName("example", "com")...)
				return append(data, 0x00, 0x01, 0x00, 0x01) // type and class, nothing more
			},
			wantErr: "message too short for record",
		},
		{
			name: "declared data length past end of message",
			data: func() []byte {
				data := buildHeader(1, 0, 0, 1, 0, 0)
				data = append(data, buildName("example", "com")...)
				data = binary.BigEndian.AppendUint16(data, 1)   // type A
				data = binary.BigEndian.AppendUint16(data, 1)   // class IN
				data = binary.BigEndian.AppendUint32(data, 300) // ttl
				data = binary.BigEndian.AppendUint16(data, 10)  // claims 10 bytes
				return append(data, 0x5d, 0xb8)                 // delivers 2
			},
			wantErr: "message too short for record data",
		},
		{
			name: "NS record with bad target name",
			data: func() []byte {
				data := buildHeader(1, 0, 0, 1, 0, 0)
				return append(data, buildRecord(buildName("example", "com"), 2, 1, 300, []byte{0xc0, 0xff})...)
			},
			wantErr: "invalid name: offset out of bounds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePacket(tt.data())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseQuery(t *testing.T) {
	query := NewQuery("www.example.com", TypeAAAA, ClassIN, FlagNone)
	data, err := query.ToBytes()
	require.NoError(t, err)

	parsed, err := ParseQuery(data)
	require.NoError(t, err)
	assert.Equal(t, query.Header.ID, parsed.Header.ID)
	assert.Equal(t, FlagNone, parsed.Header.Flags)
	require.Len(t, parsed.Questions, 1)
	assert.Equal(t, "www.example.com", parsed.Questions[0].Name)
	assert.Equal(t, TypeAAAA, parsed.Questions[0].Type)
	assert.Equal(t, ClassIN, parsed.Questions[0].Class)
}

func TestParseQueryIgnoresTrailingRecords(t *testing.T) {
	// Many stub resolvers append an OPT record. Query parsing stops after
	// the question section and leaves the rest of the datagram alone.
	data := buildHeader(0x0a0b, 0, 1, 0, 0, 1)
	data = append(data, buildQuestion(buildName("example", "com"), 1, 1)...)
	data = append(data, buildRecord([]byte{0x00}, 41, 4, 0, nil)...)

	parsed, err := ParseQuery(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), parsed.Header.ArCount)
	require.Len(t, parsed.Questions, 1)
	assert.Equal(t, "example.com", parsed.Questions[0].Name)
	assert.Nil(t, parsed.Additionals)
}

func TestParseQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    func() []byte
		wantErr string
	}{
		{
			name:    "short header",
			data:    func() []byte { return []byte{0x00, 0x01} },
			wantErr: "message too short",
		},
		{
			name: "question truncated after name",
			data: func() []byte {
				data := buildHeader(1, 0, 1, 0, 0, 0)
				return append(data, buildName("example", "com")...)
			},
			wantErr: "message too short for question",
		},
		{
			name: "compressed question name",
			data: func() []byte {
				data := buildHeader(1, 0, 1, 0, 0, 0)
				return append(data, buildQuestion([]byte{0xc0, 0x0c}, 1, 1)...)
			},
			wantErr: "invalid name: label out of bounds",
		},
		{
			name: "question count past end of message",
			data: func() []byte {
				data := buildHeader(1, 0, 2, 0, 0, 0)
				return append(data, buildQuestion(buildName("example", "com"), 1, 1)...)
			},
			wantErr: "invalid name: offset out of bounds",
		},
		{
			name: "unknown question type code",
			data: func() []byte {
				data := buildHeader(1, 0, 1, 0, 0, 0)
				return append(data, buildQuestion(buildName("example", "com"), 255, 1)...)
			},
			wantErr: "unknown record type code 255",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.data())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name       string
		data       func() []byte
		offset     int
		want       string
		wantOffset int
	}{
		{
			name:       "plain name",
			data:       func() []byte { return buildName("www", "example", "com") },
			offset:     0,
			want:       "www.example.com",
			wantOffset: 17,
		},
		{
			name:       "root name",
			data:       func() []byte { return []byte{0x00} },
			offset:     0,
			want:       "",
			wantOffset: 1,
		},
		{
			name: "pointer to earlier name",
			data: func() []byte {
				// "example.com" at 0, a bare pointer to it at 13.
				return append(buildName("example", "com"), 0xc0, 0x00)
			},
			offset:     13,
			want:       "example.com",
			wantOffset: 15,
		},
		{
			name: "labels then pointer",
			data: func() []byte {
				data := buildName("example", "com")
				data = append(data, 0x04, 'm', 'a', 'i', 'l')
				return append(data, 0xc0, 0x00)
			},
			offset:     13,
			want:       "mail.example.com",
			wantOffset: 20,
		},
		{
			name: "pointer chain",
			data: func() []byte {
				data := buildName("com")          // "com" at offset 0
				data = append(data, 0x07)         // "example" label at offset 5
				data = append(data, "example"...)
				data = append(data, 0xc0, 0x00)   // pointer to "com"
				data = append(data, 0x03, 'w', 'w', 'w') // "www" label at offset 15
				return append(data, 0xc0, 0x05)          // pointer to "example"
			},
			offset:     15,
			want:       "www.example.com",
			wantOffset: 21,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, offset, err := decodeName(tt.data(), tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestDecodeNameErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		offset  int
		wantErr string
	}{
		{
			name:    "offset past end",
			data:    []byte{0x00},
			offset:  5,
			wantErr: "invalid name: offset out of bounds",
		},
		{
			name:    "label past end",
			data:    []byte{0x05, 'a', 'b'},
			offset:  0,
			wantErr: "invalid name: label out of bounds",
		},
		{
			name:    "pointer missing second byte",
			data:    []byte{0x03, 'w', 'w', 'w', 0xc0},
			offset:  0,
			wantErr: "invalid name: truncated compression pointer",
		},
		{
			name:    "label with undecodable bytes",
			data:    []byte{0x02, 0xff, 0xfe, 0x00},
			offset:  0,
			wantErr: "invalid name: label is not valid text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeName(tt.data, tt.offset)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeSimpleName(t *testing.T) {
	name, offset, err := decodeSimpleName(buildName("example", "com"), 0)
	require.NoError(t, err)
	assert.Equal(t, "example.com", name)
	assert.Equal(t, 13, offset)

	// A pointer byte reads as an implausibly long label.
	_, _, err = decodeSimpleName([]byte{0xc0, 0x0c}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid name: label out of bounds")
}
