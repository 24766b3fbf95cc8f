package ledger

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

// canonicalBlock renders the hashed fields of b as a key-sorted JSON object
// using the byte layout of Python's json.dumps(obj, sort_keys=True):
// ", " and ": " separators, ASCII-only output, repr-style floats.
// Any node that hashes blocks that way produces the same digests.
func canonicalBlock(b *Block) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"data": `)
	writePayload(&buf, b.Data)
	buf.WriteString(`, "index": `)
	buf.WriteString(strconv.Itoa(b.Index))
	buf.WriteString(`, "previous_hash": `)
	writeString(&buf, b.PreviousHash)
	buf.WriteString(`, "timestamp": `)
	buf.WriteString(formatFloat(b.Timestamp))
	buf.WriteByte('}')
	return buf.Bytes()
}

func writePayload(buf *bytes.Buffer, p Payload) {
	if p.IsGenesis() {
		writeString(buf, p.Genesis)
		return
	}
	buf.WriteByte('[')
	for i, tx := range p.Transactions {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeTransaction(buf, tx)
	}
	buf.WriteByte(']')
}

func writeTransaction(buf *bytes.Buffer, tx Transaction) {
	buf.WriteString(`{"amount": `)
	writeString(buf, string(tx.Amount))
	buf.WriteString(`, "check_in": `)
	writeString(buf, tx.CheckIn)
	buf.WriteString(`, "check_out": `)
	writeString(buf, tx.CheckOut)
	buf.WriteString(`, "customer_name": `)
	writeString(buf, tx.CustomerName)
	buf.WriteString(`, "room_number": `)
	writeString(buf, tx.RoomNumber)
	buf.WriteByte('}')
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				buf.WriteByte(byte(r))
			case r > 0xffff:
				hi, lo := utf16.EncodeRune(r)
				writeUnicodeEscape(buf, hi)
				writeUnicodeEscape(buf, lo)
			default:
				writeUnicodeEscape(buf, r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(r>>12)&0xf])
	buf.WriteByte(hexDigits[(r>>8)&0xf])
	buf.WriteByte(hexDigits[(r>>4)&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}

// formatFloat matches Python's float repr: shortest round-trip digits,
// a trailing ".0" on integral values, exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
