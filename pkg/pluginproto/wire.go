package pluginproto

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded (number, value) pair. Only varint and
// length-delimited values are surfaced; the schema uses nothing else.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

func (f field) isBytes() bool  { return f.typ == protowire.BytesType }
func (f field) isVarint() bool { return f.typ == protowire.VarintType }

// parseFields walks a protobuf-encoded message and calls visit for every
// varint or bytes field. Fields of other wire types are skipped.
func parseFields(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return malformed(protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return malformed(protowire.ParseError(n))
		}
		b = b[n:]

		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return appendStringAlways(b, num, s)
}

func appendStringAlways(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendStrings(b []byte, num protowire.Number, ss []string) []byte {
	for _, s := range ss {
		b = appendStringAlways(b, num, s)
	}
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	return appendUint(b, num, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendUint(b, num, protowire.EncodeBool(v))
}

// Entry schema:
//
//	1 path          string
//	2 metadata      EntryMetadata
//	3 custom_field  repeated {1 key, 2 value}
const (
	entryPath     protowire.Number = 1
	entryMetadata protowire.Number = 2
	entryCustom   protowire.Number = 3

	pairKey   protowire.Number = 1
	pairValue protowire.Number = 2

	metaSize        protowire.Number = 1
	metaModified    protowire.Number = 2
	metaAccessed    protowire.Number = 3
	metaCreated     protowire.Number = 4
	metaIsDir       protowire.Number = 5
	metaIsFile      protowire.Number = 6
	metaIsSymlink   protowire.Number = 7
	metaPermissions protowire.Number = 8
)

func encodeEntry(e DecoratedEntry) []byte {
	var b []byte
	b = appendString(b, entryPath, e.Path)

	var m []byte
	m = appendUint(m, metaSize, e.Metadata.Size)
	m = appendInt(m, metaModified, e.Metadata.Modified)
	m = appendInt(m, metaAccessed, e.Metadata.Accessed)
	m = appendInt(m, metaCreated, e.Metadata.Created)
	m = appendBool(m, metaIsDir, e.Metadata.IsDir)
	m = appendBool(m, metaIsFile, e.Metadata.IsFile)
	m = appendBool(m, metaIsSymlink, e.Metadata.IsSymlink)
	m = appendUint(m, metaPermissions, uint64(e.Metadata.Permissions))
	if len(m) > 0 {
		b = appendMessage(b, entryMetadata, m)
	}

	keys := make([]string, 0, len(e.CustomFields))
	for k := range e.CustomFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var p []byte
		p = appendStringAlways(p, pairKey, k)
		p = appendStringAlways(p, pairValue, e.CustomFields[k])
		b = appendMessage(b, entryCustom, p)
	}
	return b
}

func decodeEntry(b []byte) (DecoratedEntry, error) {
	var e DecoratedEntry
	err := parseFields(b, func(f field) error {
		switch {
		case f.num == entryPath && f.isBytes():
			e.Path = string(f.bytes)
		case f.num == entryMetadata && f.isBytes():
			return decodeMetadata(f.bytes, &e.Metadata)
		case f.num == entryCustom && f.isBytes():
			var k, v string
			if err := parseFields(f.bytes, func(pf field) error {
				switch {
				case pf.num == pairKey && pf.isBytes():
					k = string(pf.bytes)
				case pf.num == pairValue && pf.isBytes():
					v = string(pf.bytes)
				}
				return nil
			}); err != nil {
				return err
			}
			if e.CustomFields == nil {
				e.CustomFields = make(map[string]string)
			}
			e.CustomFields[k] = v
		}
		return nil
	})
	return e, err
}

func decodeMetadata(b []byte, m *EntryMetadata) error {
	return parseFields(b, func(f field) error {
		if !f.isVarint() {
			return nil
		}
		switch f.num {
		case metaSize:
			m.Size = f.varint
		case metaModified:
			m.Modified = protowire.DecodeZigZag(f.varint)
		case metaAccessed:
			m.Accessed = protowire.DecodeZigZag(f.varint)
		case metaCreated:
			m.Created = protowire.DecodeZigZag(f.varint)
		case metaIsDir:
			m.IsDir = protowire.DecodeBool(f.varint)
		case metaIsFile:
			m.IsFile = protowire.DecodeBool(f.varint)
		case metaIsSymlink:
			m.IsSymlink = protowire.DecodeBool(f.varint)
		case metaPermissions:
			m.Permissions = uint32(f.varint)
		}
		return nil
	})
}

// ActionInfo schema: 1 name, 2 usage, 3 description, 4 repeated example.
func encodeActionInfo(a ActionInfo) []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	b = appendString(b, 2, a.Usage)
	b = appendString(b, 3, a.Description)
	return appendStrings(b, 4, a.Examples)
}

func decodeActionInfo(b []byte) (ActionInfo, error) {
	var a ActionInfo
	err := parseFields(b, func(f field) error {
		if !f.isBytes() {
			return nil
		}
		switch f.num {
		case 1:
			a.Name = string(f.bytes)
		case 2:
			a.Usage = string(f.bytes)
		case 3:
			a.Description = string(f.bytes)
		case 4:
			a.Examples = append(a.Examples, string(f.bytes))
		}
		return nil
	})
	return a, err
}
