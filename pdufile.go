package rrcuper

import (
	"bufio"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thebagchi/rrc-uper/lib/schema"
)

// ReadPDUFile reads hex encoded PDUs from filename, one per line.
func ReadPDUFile(filename string) ([][]byte, error) {
	file, err := os.Open(filename)
	if nil != err {
		return nil, err
	}
	defer file.Close()
	return ReadPDUs(file)
}

// ReadPDUs reads hex encoded PDUs, one per line. Blank lines and lines starting
// with '#' are skipped; spaces inside a line are ignored so dumps like
// "59 51 bc" are accepted.
func ReadPDUs(r io.Reader) ([][]byte, error) {
	var pdus [][]byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if len(text) == 0 || strings.HasPrefix(text, "#") {
			continue
		}
		pdu, err := ParseHex(text)
		if nil != err {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pdus = append(pdus, pdu)
	}
	if err := scanner.Err(); nil != err {
		return nil, err
	}
	return pdus, nil
}

// ParseHex decodes one PDU written as hex, with optional whitespace and an
// optional 0x prefix.
func ParseHex(text string) ([]byte, error) {
	text = strings.Join(strings.Fields(text), "")
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	if len(text) == 0 {
		return nil, fmt.Errorf("empty pdu")
	}
	return hex.DecodeString(text)
}

// Plain converts a decoded value into plain maps, slices and scalars for JSON or
// YAML output. BIT STRING becomes a string of '0' and '1', OCTET STRING becomes
// hex, a CHOICE becomes a single key map and an unrecognized extension keeps its
// index and raw bytes.
func Plain(v any) any {
	switch value := v.(type) {
	case schema.Record:
		out := make(map[string]any, len(value))
		for k, field := range value {
			out[k] = Plain(field)
		}
		return out
	case schema.Selection:
		return map[string]any{value.Name: Plain(value.Value)}
	case schema.Unrecognized:
		out := map[string]any{"unrecognized": value.Index}
		if value.Raw != nil {
			out["raw"] = hex.EncodeToString(value.Raw)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = Plain(item)
		}
		return out
	case asn1.BitString:
		var b strings.Builder
		for i := range value.BitLength {
			b.WriteByte('0' + byte(value.At(i)))
		}
		return b.String()
	case []byte:
		return hex.EncodeToString(value)
	default:
		return v
	}
}
