package dns

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// headerLen is the fixed size of a DNS message header in bytes.
const headerLen = 12

// ParseQuery parses an inbound query from bytes: the header and its
// questions. Trailing record sections are ignored. Question names are read
// without compression support, which cannot legally appear in a query.
func ParseQuery(data []byte) (*Packet, error) {
	header, offset, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	msg := &Packet{Header: header}
	msg.Questions = make([]Question, header.QdCount)
	for i := uint16(0); i < header.QdCount; i++ {
		name, newOffset, err := decodeSimpleName(data, offset)
		if err != nil {
			return nil, err
		}
		offset = newOffset

		if offset+4 > len(data) {
			return nil, errors.New("message too short for question")
		}

		msg.Questions[i].Name = name
		msg.Questions[i].Type, err = RecordTypeFromCode(binary.BigEndian.Uint16(data[offset:]))
		if err != nil {
			return nil, err
		}
		offset += 2
		msg.Questions[i].Class, err = RecordClassFromCode(binary.BigEndian.Uint16(data[offset:]))
		if err != nil {
			return nil, err
		}
		offset += 2
	}

	return msg, nil
}

// ParsePacket parses a complete DNS message from bytes. The header counts
// are trusted: exactly that many questions and records are read per section,
// and a count pointing past the end of the buffer surfaces as a parse error.
func ParsePacket(data []byte) (*Packet, error) {
	header, offset, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	msg := &Packet{Header: header}

	msg.Questions = make([]Question, header.QdCount)
	for i := uint16(0); i < header.QdCount; i++ {
		msg.Questions[i], offset, err = decodeQuestion(data, offset)
		if err != nil {
			return nil, err
		}
	}

	sections := []struct {
		count uint16
		out   *[]ResourceRecord
	}{
		{header.AnCount, &msg.Answers},
		{header.NsCount, &msg.Authorities},
		{header.ArCount, &msg.Additionals},
	}
	for _, section := range sections {
		records := make([]ResourceRecord, section.count)
		for i := uint16(0); i < section.count; i++ {
			records[i], offset, err = decodeRecord(data, offset)
			if err != nil {
				return nil, err
			}
		}
		*section.out = records
	}

	return msg, nil
}

// decodeHeader decodes the fixed 12-byte message header.
func decodeHeader(data []byte) (Header, int, error) {
	if len(data) < headerLen {
		return Header{}, 0, errors.New("message too short")
	}

	header := Header{
		ID:      binary.BigEndian.Uint16(data[0:]),
		Flags:   Flags(binary.BigEndian.Uint16(data[2:])),
		QdCount: binary.BigEndian.Uint16(data[4:]),
		AnCount: binary.BigEndian.Uint16(data[6:]),
		NsCount: binary.BigEndian.Uint16(data[8:]),
		ArCount: binary.BigEndian.Uint16(data[10:]),
	}
	return header, headerLen, nil
}

// decodeQuestion decodes one question entry at offset.
func decodeQuestion(data []byte, offset int) (Question, int, error) {
	name, offset, err := decodeName(data, offset)
	if err != nil {
		return Question{}, 0, err
	}

	if offset+4 > len(data) {
		return Question{}, 0, errors.New("message too short for question")
	}

	q := Question{Name: name}
	q.Type, err = RecordTypeFromCode(binary.BigEndian.Uint16(data[offset:]))
	if err != nil {
		return Question{}, 0, err
	}
	q.Class, err = RecordClassFromCode(binary.BigEndian.Uint16(data[offset+2:]))
	if err != nil {
		return Question{}, 0, err
	}
	return q, offset + 4, nil
}

// decodeRecord decodes one resource record at offset. The declared data
// length is trusted and exactly that many bytes are consumed. For NS and
// CNAME records the data holds a domain name, decoded against the whole
// message so that compression pointers inside record data resolve.
func decodeRecord(data []byte, offset int) (ResourceRecord, int, error) {
	name, offset, err := decodeName(data, offset)
	if err != nil {
		return ResourceRecord{}, 0, err
	}

	if offset+10 > len(data) {
		return ResourceRecord{}, 0, errors.New("message too short for record")
	}

	rr := ResourceRecord{Name: name}
	rr.Type, err = RecordTypeFromCode(binary.BigEndian.Uint16(data[offset:]))
	if err != nil {
		return ResourceRecord{}, 0, err
	}
	rr.Class, err = RecordClassFromCode(binary.BigEndian.Uint16(data[offset+2:]))
	if err != nil {
		return ResourceRecord{}, 0, err
	}
	rr.TTL = binary.BigEndian.Uint32(data[offset+4:])
	rr.DataLen = binary.BigEndian.Uint16(data[offset+8:])
	offset += 10

	if offset+int(rr.DataLen) > len(data) {
		return ResourceRecord{}, 0, errors.New("message too short for record data")
	}
	rr.Data = append([]byte(nil), data[offset:offset+int(rr.DataLen)]...)

	switch rr.Type {
	case TypeNS, TypeCNAME:
		rr.Host, _, err = decodeName(data, offset)
		if err != nil {
			return ResourceRecord{}, 0, err
		}
	}

	return rr, offset + int(rr.DataLen), nil
}

// ToBytes converts a DNS message to bytes
func (p *Packet) ToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)

	// Write header
	binary.Write(buf, binary.BigEndian, p.Header.ID)
	binary.Write(buf, binary.BigEndian, uint16(p.Header.Flags))
	binary.Write(buf, binary.BigEndian, p.Header.QdCount)
	binary.Write(buf, binary.BigEndian, p.Header.AnCount)
	binary.Write(buf, binary.BigEndian, p.Header.NsCount)
	binary.Write(buf, binary.BigEndian, p.Header.ArCount)

	// Write questions
	for _, q := range p.Questions {
		if err := encodeName(buf, q.Name); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.BigEndian, uint16(q.Type))
		binary.Write(buf, binary.BigEndian, uint16(q.Class))
	}

	// Write records, section order answer, authority, additional
	for _, rr := range p.Answers {
		if err := encodeRecord(buf, rr); err != nil {
			return nil, err
		}
	}
	for _, rr := range p.Authorities {
		if err := encodeRecord(buf, rr); err != nil {
			return nil, err
		}
	}
	for _, rr := range p.Additionals {
		if err := encodeRecord(buf, rr); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// encodeRecord encodes a single resource record to the buffer.
func encodeRecord(buf *bytes.Buffer, rr ResourceRecord) error {
	if err := encodeName(buf, rr.Name); err != nil {
		return err
	}
	if len(rr.Data) > 0xFFFF {
		return fmt.Errorf("record data too long: %d bytes", len(rr.Data))
	}
	binary.Write(buf, binary.BigEndian, uint16(rr.Type))
	binary.Write(buf, binary.BigEndian, uint16(rr.Class))
	binary.Write(buf, binary.BigEndian, rr.TTL)
	binary.Write(buf, binary.BigEndian, uint16(len(rr.Data)))
	buf.Write(rr.Data)
	return nil
}

// decodeName decodes a DNS name from bytes, following compression pointers.
// A pointer is a length byte with both high bits set: together with the next
// byte it forms a 14-bit offset into the whole message at which the rest of
// the name's labels live, possibly chaining through further pointers. Pointer
// chains are followed without a depth bound or visited-offset tracking, so a
// message whose pointers form a cycle loops forever.
func decodeName(data []byte, offset int) (string, int, error) {
	var name []byte
	originalOffset := offset
	jumped := false

	for {
		if offset >= len(data) {
			return "", 0, errors.New("invalid name: offset out of bounds")
		}

		length := int(data[offset])
		offset++

		if length == 0 {
			break
		}

		// Check for compression pointer (two high bits set)
		if length&0xC0 == 0xC0 {
			if offset >= len(data) {
				return "", 0, errors.New("invalid name: truncated compression pointer")
			}
			if !jumped {
				originalOffset = offset + 1
			}
			jumped = true

			// The pointer is the low 14 bits of the two-byte sequence
			pointer := binary.BigEndian.Uint16(data[offset-1:]) & 0x3FFF
			offset = int(pointer)
			continue
		}

		// Regular label
		if offset+length > len(data) {
			return "", 0, errors.New("invalid name: label out of bounds")
		}
		if !utf8.Valid(data[offset : offset+length]) {
			return "", 0, errors.New("invalid name: label is not valid text")
		}

		if len(name) > 0 {
			name = append(name, '.')
		}
		name = append(name, data[offset:offset+length]...)
		offset += length
	}

	if jumped {
		offset = originalOffset
	}

	return string(name), offset, nil
}

// decodeSimpleName decodes a DNS name without compression support: a run of
// length-prefixed labels ended by a zero byte.
func decodeSimpleName(data []byte, offset int) (string, int, error) {
	var name []byte

	for {
		if offset >= len(data) {
			return "", 0, errors.New("invalid name: offset out of bounds")
		}

		length := int(data[offset])
		offset++

		if length == 0 {
			break
		}

		if offset+length > len(data) {
			return "", 0, errors.New("invalid name: label out of bounds")
		}
		if !utf8.Valid(data[offset : offset+length]) {
			return "", 0, errors.New("invalid name: label is not valid text")
		}

		if len(name) > 0 {
			name = append(name, '.')
		}
		name = append(name, data[offset:offset+length]...)
		offset += length
	}

	return string(name), offset, nil
}

// encodeName encodes a DNS name to bytes
func encodeName(buf *bytes.Buffer, name string) error {
	if len(name) == 0 {
		buf.WriteByte(0)
		return nil
	}

	parts := bytes.Split([]byte(name), []byte("."))
	for _, part := range parts {
		if len(part) > 255 {
			return fmt.Errorf("label too long: %s", string(part))
		}
		buf.WriteByte(byte(len(part)))
		buf.Write(part)
	}
	buf.WriteByte(0) // Null terminator

	return nil
}
