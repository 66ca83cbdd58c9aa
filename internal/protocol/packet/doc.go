// Package packet owns the LMP wire unit and its byte codec.
//
// Ownership boundary:
// - packet header fields and enums
// - serialize/deserialize over caller-supplied buffers
// - error taxonomy shared by transport and admission
//
// Wire layout, order fixed:
//
//	version:u8 | type:u8 | arg:u8 | flags:u8 | payload_length:u16be | payload | terminator:u8
package packet
