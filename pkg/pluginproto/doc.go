// Package pluginproto defines the messages exchanged between the lsx host
// and its extension plugins, and their binary encoding.
//
// # Messages
//
// The host sends one Request per call and receives one Response:
//
//	GetName             -> Name
//	GetVersion          -> Version
//	GetDescription      -> Description
//	GetSupportedFormats -> SupportedFormats
//	Decorate            -> Decorated
//	FormatField         -> FormattedField
//	PerformAction       -> ActionResult
//	GetAvailableActions -> AvailableActions
//
// Any request may be answered with Error.
//
// # Encoding
//
// Messages use the protobuf wire format, written and read with protowire.
// Every buffer is an envelope holding the schema version and exactly one
// variant field. Decoders skip fields they do not know and default fields
// that are absent, so either side may add optional fields without
// breaking binaries built against an older schema.
//
// Decoding never panics: truncated, malformed or empty input returns a
// *ProtocolError that matches ErrProtocol.
//
//	buf, err := pluginproto.EncodeRequest(pluginproto.FormatField{Entry: e, View: "tree"})
//	...
//	resp, err := pluginproto.DecodeResponse(out)
package pluginproto
