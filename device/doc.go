// Package device provides the high-level client for a MicroPython board on
// top of a REPL session: file transfer, directory listing, and device
// identity queries.
//
// The line-oriented console cannot safely carry arbitrary octets, so binary
// payloads travel hex-encoded (two printable characters per byte) and large
// writes are split into bounded chunks, each applied as an atomic
// append-or-create sequence of primitive commands. Reads are a single
// round trip and are therefore bounded by the command timeout and by how
// much text the device can print; see Client.ReadFile.
//
// Device-identity and directory queries interpret textual REPL output shapes
// (tuple-like descriptors, bracketed lists). Auxiliary facts are best-effort:
// a failing sub-query degrades its field instead of failing the whole call.
package device
