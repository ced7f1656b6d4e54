// Package wcbridge is a client-side connector for a relay-mediated,
// end-to-end encrypted JSON-RPC session between a decentralized
// application and a remote wallet.
//
// Two peers that never directly connect rendezvous through an untrusted
// message relay ("bridge") identified by a URL. They establish a shared
// symmetric key out-of-band, via a handshake URI typically displayed as a
// QR code, derive per-peer topics, exchange a session handshake, and then
// tunnel arbitrary JSON-RPC 2.0 calls over the relay. The connector also
// supports forward-secrecy key rotation mid-session and durable session
// resumption across process restarts via an external key/value store.
package wcbridge
