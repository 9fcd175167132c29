package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/eduadmin/authcore/permission"
)

const sessionFormatVersionV1 = 1

// Encode serializes s into the compact binary store format.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", s.UserID},
		{"role", s.Role},
		{"displayName", s.DisplayName},
		{"token", s.Token},
	} {
		if len(field.value) > 255 {
			return nil, errors.New(field.name + " too long")
		}
		buf.WriteByte(byte(len(field.value)))
		buf.WriteString(field.value)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.Mask.Raw()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LoginAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastActivity); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses the binary store format back into a [Session]. The SlotID
// is not part of the payload; callers set it from the store key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	for _, target := range []*string{&s.UserID, &s.Role, &s.DisplayName, &s.Token} {
		length, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}
		*target = string(value)
	}

	var raw uint64
	if err := binary.Read(reader, binary.BigEndian, &raw); err != nil {
		return nil, err
	}
	s.Mask = permission.Mask64(raw)

	if err := binary.Read(reader, binary.BigEndian, &s.LoginAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastActivity); err != nil {
		return nil, err
	}

	return s, nil
}
