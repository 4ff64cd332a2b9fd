package pluginproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope schema. Field 1 carries the schema version; exactly one variant
// field follows. Numbers 10-99 are reserved for variants so a decoder can
// tell a newer request kind apart from an extra envelope field.
const (
	envelopeVersion protowire.Number = 1

	variantMin protowire.Number = 10
	variantMax protowire.Number = 99
)

// Request variant numbers.
const (
	reqGetName             protowire.Number = 10
	reqGetVersion          protowire.Number = 11
	reqGetDescription      protowire.Number = 12
	reqGetSupportedFormats protowire.Number = 13
	reqDecorate            protowire.Number = 14
	reqFormatField         protowire.Number = 15
	reqPerformAction       protowire.Number = 16
	reqGetAvailableActions protowire.Number = 17
)

// Response variant numbers.
const (
	respName             protowire.Number = 10
	respVersion          protowire.Number = 11
	respDescription      protowire.Number = 12
	respSupportedFormats protowire.Number = 13
	respDecorated        protowire.Number = 14
	respFormattedField   protowire.Number = 15
	respActionResult     protowire.Number = 16
	respAvailableActions protowire.Number = 17
	respError            protowire.Number = 18
)

// EncodeRequest serializes r into a single buffer. The wire form does
// not tell an empty collection from an absent one: empty CustomFields,
// Args and Views decode as nil, so DecodeRequest(EncodeRequest(r)) equals
// r once those are nil.
func EncodeRequest(r Request) ([]byte, error) {
	num, body, err := encodeRequestBody(r)
	if err != nil {
		return nil, protocolErr("encode request", err)
	}
	return encodeEnvelope(num, body), nil
}

// DecodeRequest parses a buffer produced by EncodeRequest.
func DecodeRequest(b []byte) (Request, error) {
	num, body, err := decodeEnvelope(b)
	if err != nil {
		return nil, protocolErr("decode request", err)
	}
	r, err := decodeRequestBody(num, body)
	if err != nil {
		return nil, protocolErr("decode request", err)
	}
	return r, nil
}

// EncodeResponse serializes r into a single buffer. As with
// EncodeRequest, empty collections decode as nil.
func EncodeResponse(r Response) ([]byte, error) {
	num, body, err := encodeResponseBody(r)
	if err != nil {
		return nil, protocolErr("encode response", err)
	}
	return encodeEnvelope(num, body), nil
}

// DecodeResponse parses a buffer produced by EncodeResponse.
func DecodeResponse(b []byte) (Response, error) {
	num, body, err := decodeEnvelope(b)
	if err != nil {
		return nil, protocolErr("decode response", err)
	}
	r, err := decodeResponseBody(num, body)
	if err != nil {
		return nil, protocolErr("decode response", err)
	}
	return r, nil
}

func encodeEnvelope(num protowire.Number, body []byte) []byte {
	b := protowire.AppendTag(nil, envelopeVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, ProtocolVersion)
	return appendMessage(b, num, body)
}

// decodeEnvelope returns the last known-range variant in b. Fields outside
// the variant range are ignored.
func decodeEnvelope(b []byte) (protowire.Number, []byte, error) {
	if len(b) == 0 {
		return 0, nil, ErrEmptyMessage
	}
	var (
		num  protowire.Number
		body []byte
	)
	err := parseFields(b, func(f field) error {
		if f.num >= variantMin && f.num <= variantMax && f.isBytes() {
			num, body = f.num, f.bytes
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if num == 0 {
		return 0, nil, ErrEmptyMessage
	}
	return num, body, nil
}

func encodeRequestBody(r Request) (protowire.Number, []byte, error) {
	switch r := r.(type) {
	case GetName:
		return reqGetName, nil, nil
	case GetVersion:
		return reqGetVersion, nil, nil
	case GetDescription:
		return reqGetDescription, nil, nil
	case GetSupportedFormats:
		return reqGetSupportedFormats, nil, nil
	case GetAvailableActions:
		return reqGetAvailableActions, nil, nil
	case Decorate:
		return reqDecorate, appendMessage(nil, 1, encodeEntry(r.Entry)), nil
	case FormatField:
		b := appendMessage(nil, 1, encodeEntry(r.Entry))
		return reqFormatField, appendString(b, 2, r.View), nil
	case PerformAction:
		b := appendString(nil, 1, r.Action)
		return reqPerformAction, appendStrings(b, 2, r.Args), nil
	default:
		return 0, nil, fmt.Errorf("%w: %T", ErrUnknownVariant, r)
	}
}

func decodeRequestBody(num protowire.Number, b []byte) (Request, error) {
	switch num {
	case reqGetName:
		return GetName{}, nil
	case reqGetVersion:
		return GetVersion{}, nil
	case reqGetDescription:
		return GetDescription{}, nil
	case reqGetSupportedFormats:
		return GetSupportedFormats{}, nil
	case reqGetAvailableActions:
		return GetAvailableActions{}, nil
	case reqDecorate:
		var r Decorate
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				e, err := decodeEntry(f.bytes)
				r.Entry = e
				return err
			}
			return nil
		})
		return r, err
	case reqFormatField:
		var r FormatField
		err := parseFields(b, func(f field) error {
			switch {
			case f.num == 1 && f.isBytes():
				e, err := decodeEntry(f.bytes)
				r.Entry = e
				return err
			case f.num == 2 && f.isBytes():
				r.View = string(f.bytes)
			}
			return nil
		})
		return r, err
	case reqPerformAction:
		var r PerformAction
		err := parseFields(b, func(f field) error {
			switch {
			case f.num == 1 && f.isBytes():
				r.Action = string(f.bytes)
			case f.num == 2 && f.isBytes():
				r.Args = append(r.Args, string(f.bytes))
			}
			return nil
		})
		return r, err
	default:
		return nil, fmt.Errorf("%w: request field %d", ErrUnknownVariant, num)
	}
}

func encodeResponseBody(r Response) (protowire.Number, []byte, error) {
	switch r := r.(type) {
	case Name:
		return respName, appendString(nil, 1, r.Value), nil
	case Version:
		return respVersion, appendString(nil, 1, r.Value), nil
	case Description:
		return respDescription, appendString(nil, 1, r.Value), nil
	case SupportedFormats:
		return respSupportedFormats, appendStrings(nil, 1, r.Views), nil
	case Decorated:
		return respDecorated, appendMessage(nil, 1, encodeEntry(r.Entry)), nil
	case FormattedField:
		if r.Value == nil {
			return respFormattedField, nil, nil
		}
		return respFormattedField, appendStringAlways(nil, 1, *r.Value), nil
	case ActionResult:
		b := appendBool(nil, 1, r.OK)
		return respActionResult, appendString(b, 2, r.Message), nil
	case AvailableActions:
		var b []byte
		for _, a := range r.Actions {
			b = appendMessage(b, 1, encodeActionInfo(a))
		}
		return respAvailableActions, b, nil
	case Error:
		return respError, appendString(nil, 1, r.Message), nil
	default:
		return 0, nil, fmt.Errorf("%w: %T", ErrUnknownVariant, r)
	}
}

func decodeResponseBody(num protowire.Number, b []byte) (Response, error) {
	str := func() (string, error) {
		var s string
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				s = string(f.bytes)
			}
			return nil
		})
		return s, err
	}

	switch num {
	case respName:
		s, err := str()
		return Name{Value: s}, err
	case respVersion:
		s, err := str()
		return Version{Value: s}, err
	case respDescription:
		s, err := str()
		return Description{Value: s}, err
	case respError:
		s, err := str()
		return Error{Message: s}, err
	case respSupportedFormats:
		var r SupportedFormats
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				r.Views = append(r.Views, string(f.bytes))
			}
			return nil
		})
		return r, err
	case respDecorated:
		var r Decorated
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				e, err := decodeEntry(f.bytes)
				r.Entry = e
				return err
			}
			return nil
		})
		return r, err
	case respFormattedField:
		var r FormattedField
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				s := string(f.bytes)
				r.Value = &s
			}
			return nil
		})
		return r, err
	case respActionResult:
		var r ActionResult
		err := parseFields(b, func(f field) error {
			switch {
			case f.num == 1 && f.isVarint():
				r.OK = protowire.DecodeBool(f.varint)
			case f.num == 2 && f.isBytes():
				r.Message = string(f.bytes)
			}
			return nil
		})
		return r, err
	case respAvailableActions:
		var r AvailableActions
		err := parseFields(b, func(f field) error {
			if f.num == 1 && f.isBytes() {
				a, err := decodeActionInfo(f.bytes)
				if err != nil {
					return err
				}
				r.Actions = append(r.Actions, a)
			}
			return nil
		})
		return r, err
	default:
		return nil, fmt.Errorf("%w: response field %d", ErrUnknownVariant, num)
	}
}
