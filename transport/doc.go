// Package transport implements the client-side UDP datagram transport for
// CoAP.
//
// It creates a dedicated connected socket per communication partner, so it
// works only for clients and is assumed unsafe for multicast. Each Connection
// owns exactly one socket; two connects to the same destination yield two
// independent Connections, with no deduplication by resolved address.
//
// The protocol engine talks to the Endpoint facade:
//
//	ep := transport.NewEndpoint(nil, nil, handler, nil)
//
//	conn, err := ep.DetermineRemote(ctx, msg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg.Remote = conn
//
//	if err := ep.Send(msg); err != nil {
//	    log.Fatal(err)
//	}
//
// Retransmission, deduplication and message semantics stay with the engine;
// this layer only moves datagrams and reports socket errors upward.
package transport
