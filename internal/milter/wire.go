package milter

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Command is one decoded milter protocol message: a command byte plus
// its raw payload, not yet split into NUL-delimited strings.
type Command struct {
	Code    byte
	Payload []byte
}

// ReadCommand reads one length-prefixed command from r: a 4-byte
// big-endian length (counting the command byte and payload, not the
// length field itself), then that many bytes. io.EOF with no bytes
// read at all signals a clean connection close; any other error,
// including a short read mid-message, is a framing violation.
func ReadCommand(r io.Reader) (Command, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Command{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return Command{}, fmt.Errorf("milter: zero-length frame")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Command{}, fmt.Errorf("milter: short frame: %w", err)
	}
	return Command{Code: body[0], Payload: body[1:]}, nil
}

// WriteCommand writes one length-prefixed command to w: command code
// and strings is the common case (each string NUL-terminated and
// concatenated); data, if non-nil, is used verbatim as the payload
// instead (for commands like OPTNEG whose payload isn't a string list).
func WriteCommand(w io.Writer, code byte, strings []string, data []byte) error {
	payload := data
	if payload == nil {
		var buf bytes.Buffer
		for _, s := range strings {
			buf.WriteString(s)
			buf.WriteByte(0)
		}
		payload = buf.Bytes()
	}
	message := make([]byte, 0, 5+len(payload))
	message = append(message, code)
	message = append(message, payload...)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(message)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(message)
	return err
}

// UnpackStrings splits a NUL-delimited payload into strings, dropping
// the trailing empty element the final separator otherwise leaves
// behind.
func UnpackStrings(payload []byte) []string {
	parts := bytes.Split(payload, []byte{0})
	if len(parts) > 0 && len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
