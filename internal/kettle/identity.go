package kettle

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TokenSize is the length of the session token in bytes
const TokenSize = 12

// Token is the 12-byte secret used to authenticate with the kettle
// and to validate its response.
type Token [TokenSize]byte

// DefaultToken is the fixed token used when the caller supplies none.
// It is not random; use RandomToken when entropy matters.
var DefaultToken = Token{0x01, 0x5C, 0xCB, 0xA8, 0x80, 0x0A, 0xBD, 0xC1, 0x2E, 0xB8, 0xED, 0x82}

// RandomToken returns a token read from crypto/rand
func RandomToken() (Token, error) {
	var t Token
	if _, err := rand.Read(t[:]); err != nil {
		return Token{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return t, nil
}

// ParseToken decodes a 24-character hex string into a Token
func ParseToken(s string) (Token, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Token{}, NewValidationError(fmt.Sprintf("token %q is not valid hex", s))
	}
	return TokenFromBytes(raw)
}

// TokenFromBytes copies b into a Token, rejecting any length other than 12
func TokenFromBytes(b []byte) (Token, error) {
	var t Token
	if len(b) != TokenSize {
		return t, NewValidationError(fmt.Sprintf("token must be %d bytes, got %d", TokenSize, len(b)))
	}
	copy(t[:], b)
	return t, nil
}

// String returns the token as lowercase hex
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// MAC is a device address in on-wire octet order
type MAC [6]byte

// ParseMAC parses "AA:BB:CC:DD:EE:FF" (":" or "-" separated, any case)
func ParseMAC(s string) (MAC, error) {
	var m MAC
	s = strings.TrimSpace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != len(m) || len(s) != 17 {
		return m, NewValidationError(fmt.Sprintf("the MAC address %q seems to be in the wrong format", s))
	}
	for i, p := range parts {
		if len(p) != 2 {
			return m, NewValidationError(fmt.Sprintf("the MAC address %q seems to be in the wrong format", s))
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return m, NewValidationError(fmt.Sprintf("the MAC address %q seems to be in the wrong format", s))
		}
		m[i] = byte(v)
	}
	return m, nil
}

// Reversed returns the octets last-first, the form the mix functions consume
func (m MAC) Reversed() [6]byte {
	var r [6]byte
	for i := range m {
		r[i] = m[len(m)-1-i]
	}
	return r
}

// String formats the address as uppercase colon-separated hex
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Identity holds everything the handshake derives its key material from.
// It is immutable after construction.
type Identity struct {
	mac       MAC
	reversed  [6]byte
	productID uint16
	token     Token
}

// NewIdentity builds an Identity. A nil token selects DefaultToken.
func NewIdentity(mac string, productID uint16, token []byte) (Identity, error) {
	m, err := ParseMAC(mac)
	if err != nil {
		return Identity{}, err
	}

	t := DefaultToken
	if token != nil {
		t, err = TokenFromBytes(token)
		if err != nil {
			return Identity{}, err
		}
	}

	return Identity{
		mac:       m,
		reversed:  m.Reversed(),
		productID: productID,
		token:     t,
	}, nil
}

// Address returns the human-readable MAC address
func (id Identity) Address() string { return id.mac.String() }

// ReversedMAC returns the reversed-octet MAC
func (id Identity) ReversedMAC() [6]byte { return id.reversed }

// ProductID returns the numeric product id
func (id Identity) ProductID() uint16 { return id.productID }

// Token returns the session token
func (id Identity) Token() Token { return id.token }

// mixA and mixB return the identity's mix keys as slices for Cipher
func (id Identity) mixA() []byte {
	k := MixA(id.reversed, id.productID)
	return k[:]
}

func (id Identity) mixB() []byte {
	k := MixB(id.reversed, id.productID)
	return k[:]
}
