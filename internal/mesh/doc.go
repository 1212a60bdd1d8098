// Package mesh defines the narrow interfaces this node consumes from the
// messaging layer: advert creation and sending, direct and channel text,
// receive callbacks, and the node clock.
//
// Packet framing, routing, flood control, and ACK correlation live behind
// the Messenger; this package only names the operations and result shapes
// the command shell needs.
package mesh
