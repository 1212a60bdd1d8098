// Package udpmesh is a UDP-broadcast mesh transport for bench and LAN use.
// It implements mesh.Messenger: signed contact adverts, signed direct text
// with CRC-correlated ACKs and send timeouts, and group datagrams sealed
// with the channel key. Flood-routed packets carry a unique packet ID and
// are deduplicated with a TTL cache before processing or re-broadcast.
package udpmesh
