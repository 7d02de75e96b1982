package primitives

import (
	"fmt"

	aeadsubtle "github.com/tink-crypto/tink-go/v2/aead/subtle"
	"github.com/tink-crypto/tink-go/v2/subtle/random"
)

// FamilyAESGCM is AES-256 in GCM mode, the default AEAD family.
const FamilyAESGCM = "AEAD/AES256-GCM"

const aesGCMKeySize = 32

func aesGCMFamily() Family {
	return Family{
		Name: FamilyAESGCM,
		NewMaterial: func() ([]byte, error) {
			return random.GetRandomBytes(aesGCMKeySize), nil
		},
		Primitive: func(material []byte) (Primitive, error) {
			aead, err := aeadsubtle.NewAESGCM(material)
			if err != nil {
				return Primitive{}, fmt.Errorf("instantiating AES-GCM: %w", err)
			}
			return Primitive{AEAD: aead}, nil
		},
	}
}
