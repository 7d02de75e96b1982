package primitives

import (
	"fmt"

	daeadsubtle "github.com/tink-crypto/tink-go/v2/daead/subtle"
	"github.com/tink-crypto/tink-go/v2/subtle/random"
)

// FamilyAESSIV is AES-SIV with a 256 bit security level, the deterministic
// AEAD family.
const FamilyAESSIV = "DAEAD/AES256-SIV"

// AES-SIV splits its key material in half, so 256 bit security needs 64
// bytes.
const aesSIVKeySize = 64

func aesSIVFamily() Family {
	return Family{
		Name: FamilyAESSIV,
		NewMaterial: func() ([]byte, error) {
			return random.GetRandomBytes(aesSIVKeySize), nil
		},
		Primitive: func(material []byte) (Primitive, error) {
			daead, err := daeadsubtle.NewAESSIV(material)
			if err != nil {
				return Primitive{}, fmt.Errorf("instantiating AES-SIV: %w", err)
			}
			return Primitive{Deterministic: daead}, nil
		},
	}
}
