package resolver

import "net"

// Transport carries one DNS query to a nameserver and returns the raw
// response datagram.
type Transport interface {
	Exchange(server string, query []byte) ([]byte, error)
}

// UDPTransport talks to nameservers over one-shot UDP sockets. Reads block
// until the server answers: there is no retry and no timeout, so a silent
// nameserver stalls the resolution that asked.
type UDPTransport struct{}

// Exchange sends the query to server and waits for a single response
// datagram of at most 1024 bytes.
func (UDPTransport) Exchange(server string, query []byte) ([]byte, error) {
	conn, err := net.Dial("udp", server)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(query); err != nil {
		return nil, err
	}

	buffer := make([]byte, 1024)
	n, err := conn.Read(buffer)
	if err != nil {
		return nil, err
	}

	return buffer[:n], nil
}
