package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageAction identifies a realtime protocol message's top-level action.
// Values follow the realtime service's own numbering; the proxy only ever
// needs to recognize a handful of them.
type MessageAction int

const (
	ActionHeartbeat    MessageAction = 0
	ActionAck          MessageAction = 1
	ActionNack         MessageAction = 2
	ActionConnect      MessageAction = 3
	ActionConnected    MessageAction = 4
	ActionDisconnect   MessageAction = 5
	ActionDisconnected MessageAction = 6
	ActionClose        MessageAction = 7
	ActionClosed       MessageAction = 8
	ActionError        MessageAction = 9
	ActionAttach       MessageAction = 10
	ActionAttached     MessageAction = 11
	ActionDetach       MessageAction = 12
	ActionDetached     MessageAction = 13
	ActionPresence     MessageAction = 14
	ActionMessage      MessageAction = 15
	ActionSync         MessageAction = 16
)

// PresenceAction identifies the inner action of a single PresenceMessage
// carried by an ActionPresence protocol message.
type PresenceAction int

const (
	PresenceAbsent  PresenceAction = 0
	PresencePresent PresenceAction = 1
	PresenceEnter   PresenceAction = 2
	PresenceLeave   PresenceAction = 3
	PresenceUpdate  PresenceAction = 4
)

// PresenceMessage is the minimal view of an entry in a PRESENCE protocol
// message's "presence" array.
type PresenceMessage struct {
	Action   PresenceAction
	ClientID string
}

// Message is the minimal, read-only view of a realtime protocol message
// this proxy ever needs: enough to recognize what a fault is looking for
// and, for fabricated NACKs, enough to build one back.
type Message struct {
	Action    MessageAction
	Channel   string
	ClientID  string
	ErrorCode int
	Presence  []PresenceMessage
}

// ErrorInfo is the {code, message, statusCode} tuple a NACK or ERROR
// message carries.
type ErrorInfo struct {
	Code       int
	Message    string
	StatusCode int
}

// IsNonfatal reports whether code falls in the realtime service's
// non-fatal error band (40000-49999 inclusive), as required by §4.3: every
// fabricated NACK must carry a non-fatal code.
func IsNonfatal(code int) bool {
	return code >= 40000 && code <= 49999
}

// ErrAttachFailedNonfatal and friends are representative non-fatal codes a
// fault can fabricate into a NACK; faults are free to pick any code in the
// 40000-49999 band, these just give the common cases a name.
const (
	ErrAttachFailedNonfatal = 40000
	ErrEnterFailedNonfatal  = 40100
	ErrUpdateFailedNonfatal = 40101
)

// DecodeMessage reads enough of a binary frame payload (a MessagePack-packed
// realtime protocol message) to populate a Message. It never aims to be a
// complete MessagePack decoder; values of types this proxy doesn't inspect
// (binary, floats) are skipped rather than rejected. A MessagePack
// extension type or a truncated payload is a decode failure and returns an
// error, so callers can fall back to forwarding the frame unchanged (see
// §7: interceptors MUST NOT raise on decode errors).
func DecodeMessage(payload []byte) (*Message, error) {
	v, _, err := decodeValue(payload, 0)
	if err != nil {
		return nil, err
	}
	top, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("wire: top-level value is not a map")
	}

	msg := &Message{}
	if a, ok := top["action"]; ok {
		i, err := asInt(a)
		if err != nil {
			return nil, err
		}
		msg.Action = MessageAction(i)
	}
	if c, ok := top["channel"].(string); ok {
		msg.Channel = c
	}
	if c, ok := top["clientId"].(string); ok {
		msg.ClientID = c
	}
	if e, ok := top["error"].(map[string]any); ok {
		if code, err := asInt(e["code"]); err == nil {
			msg.ErrorCode = code
		}
	}
	if pl, ok := top["presence"].([]any); ok {
		for _, item := range pl {
			pm, ok := item.(map[string]any)
			if !ok {
				continue
			}
			var p PresenceMessage
			if a, err := asInt(pm["action"]); err == nil {
				p.Action = PresenceAction(a)
			}
			if cid, ok := pm["clientId"].(string); ok {
				p.ClientID = cid
			}
			msg.Presence = append(msg.Presence, p)
		}
	}
	return msg, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("wire: expected integer, got %T", v)
	}
}

// EncodeNack builds the binary payload for a synthetic NACK message: a
// top-level ActionNack message carrying channel and the given error.
func EncodeNack(channel string, errInfo ErrorInfo) []byte {
	fields := [][2]any{
		{"action", int64(ActionNack)},
		{"channel", channel},
		{"error", map[string]any{
			"code":       int64(errInfo.Code),
			"message":    errInfo.Message,
			"statusCode": int64(errInfo.StatusCode),
		}},
	}
	var buf []byte
	buf = encodeMap(buf, fields)
	return buf
}

// --- minimal MessagePack subset: decode ---

func decodeValue(b []byte, pos int) (any, int, error) {
	if pos >= len(b) {
		return nil, pos, errors.New("wire: unexpected end of payload")
	}
	tag := b[pos]

	switch {
	case tag <= 0x7f: // positive fixint
		return int64(tag), pos + 1, nil
	case tag >= 0xe0: // negative fixint
		return int64(int8(tag)), pos + 1, nil
	case tag&0xf0 == 0x80: // fixmap
		return decodeMap(b, pos+1, int(tag&0x0f))
	case tag&0xf0 == 0x90: // fixarray
		return decodeArray(b, pos+1, int(tag&0x0f))
	case tag&0xe0 == 0xa0: // fixstr
		n := int(tag & 0x1f)
		return decodeStr(b, pos+1, n)
	}

	switch tag {
	case 0xc0: // nil
		return nil, pos + 1, nil
	case 0xc2: // false
		return false, pos + 1, nil
	case 0xc3: // true
		return true, pos + 1, nil
	case 0xcc: // uint8
		if pos+2 > len(b) {
			return nil, pos, errors.New("wire: truncated uint8")
		}
		return int64(b[pos+1]), pos + 2, nil
	case 0xcd: // uint16
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated uint16")
		}
		return int64(binary.BigEndian.Uint16(b[pos+1 : pos+3])), pos + 3, nil
	case 0xce: // uint32
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated uint32")
		}
		return int64(binary.BigEndian.Uint32(b[pos+1 : pos+5])), pos + 5, nil
	case 0xd0: // int8
		if pos+2 > len(b) {
			return nil, pos, errors.New("wire: truncated int8")
		}
		return int64(int8(b[pos+1])), pos + 2, nil
	case 0xd1: // int16
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated int16")
		}
		return int64(int16(binary.BigEndian.Uint16(b[pos+1 : pos+3]))), pos + 3, nil
	case 0xd2: // int32
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated int32")
		}
		return int64(int32(binary.BigEndian.Uint32(b[pos+1 : pos+5]))), pos + 5, nil
	case 0xcf, 0xd3: // uint64, int64
		if pos+9 > len(b) {
			return nil, pos, errors.New("wire: truncated int64")
		}
		return int64(binary.BigEndian.Uint64(b[pos+1 : pos+9])), pos + 9, nil
	case 0xca, 0xcb: // float32/float64 - not inspected, skip
		n := 5
		if tag == 0xcb {
			n = 9
		}
		if pos+n > len(b) {
			return nil, pos, errors.New("wire: truncated float")
		}
		return nil, pos + n, nil
	case 0xd9: // str8
		if pos+2 > len(b) {
			return nil, pos, errors.New("wire: truncated str8")
		}
		n := int(b[pos+1])
		return decodeStr(b, pos+2, n)
	case 0xda: // str16
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated str16")
		}
		n := int(binary.BigEndian.Uint16(b[pos+1 : pos+3]))
		return decodeStr(b, pos+3, n)
	case 0xdb: // str32
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated str32")
		}
		n := int(binary.BigEndian.Uint32(b[pos+1 : pos+5]))
		return decodeStr(b, pos+5, n)
	case 0xde: // map16
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated map16")
		}
		n := int(binary.BigEndian.Uint16(b[pos+1 : pos+3]))
		return decodeMap(b, pos+3, n)
	case 0xdf: // map32
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated map32")
		}
		n := int(binary.BigEndian.Uint32(b[pos+1 : pos+5]))
		return decodeMap(b, pos+5, n)
	case 0xdc: // array16
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated array16")
		}
		n := int(binary.BigEndian.Uint16(b[pos+1 : pos+3]))
		return decodeArray(b, pos+3, n)
	case 0xdd: // array32
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated array32")
		}
		n := int(binary.BigEndian.Uint32(b[pos+1 : pos+5]))
		return decodeArray(b, pos+5, n)
	case 0xc4, 0xc5, 0xc6: // bin8/16/32 - opaque, skip
		return decodeBin(b, pos)
	}

	return nil, pos, fmt.Errorf("wire: unsupported MessagePack tag 0x%02x", tag)
}

func decodeStr(b []byte, pos, n int) (any, int, error) {
	if pos+n > len(b) {
		return nil, pos, errors.New("wire: truncated string")
	}
	return string(b[pos : pos+n]), pos + n, nil
}

func decodeBin(b []byte, pos int) (any, int, error) {
	tag := b[pos]
	var n, headerLen int
	switch tag {
	case 0xc4:
		if pos+2 > len(b) {
			return nil, pos, errors.New("wire: truncated bin8")
		}
		n, headerLen = int(b[pos+1]), 2
	case 0xc5:
		if pos+3 > len(b) {
			return nil, pos, errors.New("wire: truncated bin16")
		}
		n, headerLen = int(binary.BigEndian.Uint16(b[pos+1:pos+3])), 3
	case 0xc6:
		if pos+5 > len(b) {
			return nil, pos, errors.New("wire: truncated bin32")
		}
		n, headerLen = int(binary.BigEndian.Uint32(b[pos+1:pos+5])), 5
	}
	start := pos + headerLen
	if start+n > len(b) {
		return nil, pos, errors.New("wire: truncated bin payload")
	}
	return b[start : start+n], start + n, nil
}

func decodeMap(b []byte, pos, n int) (any, int, error) {
	m := make(map[string]any, n)
	for i := 0; i < n; i++ {
		k, next, err := decodeValue(b, pos)
		if err != nil {
			return nil, pos, err
		}
		pos = next
		v, next2, err := decodeValue(b, pos)
		if err != nil {
			return nil, pos, err
		}
		pos = next2
		if ks, ok := k.(string); ok {
			m[ks] = v
		}
	}
	return m, pos, nil
}

func decodeArray(b []byte, pos, n int) (any, int, error) {
	arr := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, next, err := decodeValue(b, pos)
		if err != nil {
			return nil, pos, err
		}
		pos = next
		arr = append(arr, v)
	}
	return arr, pos, nil
}

// --- minimal MessagePack subset: encode ---

func encodeMap(buf []byte, fields [][2]any) []byte {
	buf = appendMapHeader(buf, len(fields))
	for _, f := range fields {
		buf = appendValue(buf, f[0])
		buf = appendValue(buf, f[1])
	}
	return buf
}

func appendMapHeader(buf []byte, n int) []byte {
	if n <= 0x0f {
		return append(buf, 0x80|byte(n))
	}
	out := append(buf, 0xde)
	return binary.BigEndian.AppendUint16(out, uint16(n))
}

func appendValue(buf []byte, v any) []byte {
	switch val := v.(type) {
	case string:
		return appendString(buf, val)
	case int64:
		return appendInt(buf, val)
	case int:
		return appendInt(buf, int64(val))
	case bool:
		if val {
			return append(buf, 0xc3)
		}
		return append(buf, 0xc2)
	case map[string]any:
		fields := make([][2]any, 0, len(val))
		for k, fv := range val {
			fields = append(fields, [2]any{k, fv})
		}
		return encodeMap(buf, fields)
	case nil:
		return append(buf, 0xc0)
	default:
		return append(buf, 0xc0)
	}
}

func appendString(buf []byte, s string) []byte {
	n := len(s)
	switch {
	case n <= 0x1f:
		buf = append(buf, 0xa0|byte(n))
	case n <= 0xff:
		buf = append(buf, 0xd9, byte(n))
	default:
		buf = append(buf, 0xda)
		buf = binary.BigEndian.AppendUint16(buf, uint16(n))
	}
	return append(buf, s...)
}

func appendInt(buf []byte, i int64) []byte {
	if i >= 0 && i <= 0x7f {
		return append(buf, byte(i))
	}
	if i >= 0 && i <= 0xffff {
		buf = append(buf, 0xcd)
		return binary.BigEndian.AppendUint16(buf, uint16(i))
	}
	buf = append(buf, 0xd2)
	return binary.BigEndian.AppendUint32(buf, uint32(i))
}
