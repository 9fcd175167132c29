package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// SlotID identifies one session store slot. It is generated from the
// cryptographically secure source and carried opaquely by the caller
// (typically in a cookie).
type SlotID [16]byte

func NewSlotID() (SlotID, error) {
	var sid SlotID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SlotID) Bytes() []byte {
	return s[:]
}

func (s SlotID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSlotID(slotID string) (SlotID, error) {
	var sid SlotID

	raw, err := base64.RawURLEncoding.DecodeString(slotID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid slot id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// Fingerprint derives the rate-limit client identifier from the network
// address and user-agent string. It deliberately ignores session identity:
// dropping a cookie between attempts must not reset the counter.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "\x00" + userAgent))
	return hex.EncodeToString(sum[:16])
}
