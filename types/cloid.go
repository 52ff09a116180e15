package types

import (
	"crypto/rand"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vmihailenco/msgpack/v5"
)

const cloidLength = 16

// Cloid is a 16-byte client order id. The terminal stamps every order it
// places with one so fills streaming back from the exchange can be matched
// to the submission that produced them.
type Cloid [cloidLength]byte

var cloidT = reflect.TypeFor[Cloid]()

// NewCloid returns a random client order id.
func NewCloid() Cloid {
	var c Cloid
	// crypto/rand.Read never fails on supported platforms
	rand.Read(c[:])
	return c
}

// BytesToCloid returns Cloid with value b.
// If b is larger than len(c), b will be cropped from the left.
func BytesToCloid(b []byte) Cloid {
	var c Cloid
	c.SetBytes(b)
	return c
}

// HexToCloid returns Cloid with byte values of s.
// If s is larger than len(c), s will be cropped from the left.
func HexToCloid(s string) Cloid {
	return BytesToCloid(common.FromHex(s))
}

// SetBytes sets the Cloid to the value of b.
// If b is larger than len(c), b will be cropped from the left.
func (c *Cloid) SetBytes(b []byte) {
	if len(b) > len(c) {
		b = b[len(b)-cloidLength:]
	}

	copy(c[cloidLength-len(b):], b)
}

// Hex converts a Cloid to a hex string.
func (c Cloid) Hex() string { return hexutil.Encode(c[:]) }

func (c Cloid) String() string {
	return c.Hex()
}

// UnmarshalJSON parses a Cloid in hex syntax.
func (c *Cloid) UnmarshalJSON(input []byte) error {
	return hexutil.UnmarshalFixedJSON(cloidT, input, c[:])
}

// MarshalText returns the hex representation of c.
func (c Cloid) MarshalText() ([]byte, error) {
	return hexutil.Bytes(c[:]).MarshalText()
}

// EncodeMsgpack encodes the Cloid as its hex string so the signed action
// bytes match the JSON the exchange receives.
func (c Cloid) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeString(c.Hex())
}

func (c *Cloid) DecodeMsgpack(dec *msgpack.Decoder) error {
	s, err := dec.DecodeString()
	if err != nil {
		return err
	}

	*c = HexToCloid(s)
	return nil
}
