package pasetotoken

import (
	"errors"
	"fmt"
	"strings"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/Alijeyrad/simward_backend/config"
)

var (
	ErrConfig       = errors.New("paseto: invalid configuration")
	ErrInvalidToken = errors.New("paseto: invalid token")
)

type Mode string

const (
	// ModeLocal issues v4.local tokens encrypted with one shared key.
	ModeLocal Mode = "local"
	// ModePublic issues v4.public tokens; verify-only instances need just
	// the public key.
	ModePublic Mode = "public"
)

type Keys struct {
	Mode      Mode
	Symmetric *paseto.V4SymmetricKey
	Secret    *paseto.V4AsymmetricSecretKey
	Public    *paseto.V4AsymmetricPublicKey
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// LoadKeys decodes the hex keys for the configured mode. In public mode a
// secret key alone is enough; its public half is derived.
func LoadKeys(c config.PasetoConfig) (Keys, error) {
	switch Mode(c.Mode) {
	case ModeLocal:
		h := strings.TrimSpace(c.LocalKeyHex)
		if h == "" {
			return Keys{}, configErr("local mode requires local_key_hex")
		}
		k, err := paseto.V4SymmetricKeyFromHex(h)
		if err != nil {
			return Keys{}, configErr("local_key_hex: %v", err)
		}
		return Keys{Mode: ModeLocal, Symmetric: &k}, nil

	case ModePublic:
		out := Keys{Mode: ModePublic}
		if h := strings.TrimSpace(c.SecretKeyHex); h != "" {
			sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(h)
			if err != nil {
				return Keys{}, configErr("secret_key_hex: %v", err)
			}
			pk := sk.Public()
			out.Secret, out.Public = &sk, &pk
		}
		if h := strings.TrimSpace(c.PublicKeyHex); h != "" {
			pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(h)
			if err != nil {
				return Keys{}, configErr("public_key_hex: %v", err)
			}
			out.Public = &pk
		}
		if out.Public == nil {
			return Keys{}, configErr("public mode requires secret_key_hex or public_key_hex")
		}
		return out, nil

	default:
		return Keys{}, configErr("unknown mode %q, use local or public", c.Mode)
	}
}

func NewLocalKeys() Keys {
	k := paseto.NewV4SymmetricKey()
	return Keys{Mode: ModeLocal, Symmetric: &k}
}

func NewPublicKeys() Keys {
	sk := paseto.NewV4AsymmetricSecretKey()
	pk := sk.Public()
	return Keys{Mode: ModePublic, Secret: &sk, Public: &pk}
}
