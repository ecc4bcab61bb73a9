package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces armored OpenPGP detached signatures for exported reports.
type Signer struct {
	entity *openpgp.Entity
}

func NewSigner(e *openpgp.Entity) (*Signer, error) {
	if e == nil || e.PrivateKey == nil {
		return nil, errors.New("signing key has no private part")
	}
	return &Signer{entity: e}, nil
}

// LoadSigner reads the first private key from an armored key ring file.
func LoadSigner(path string, passphrase []byte) (*Signer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signing key: %w", err)
	}
	defer f.Close()
	return ReadSigner(f, passphrase)
}

func ReadSigner(r io.Reader, passphrase []byte) (*Signer, error) {
	entities, err := openpgp.ReadArmoredKeyRing(r)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if err := decryptKeys(e, passphrase); err != nil {
			return nil, err
		}
		return NewSigner(e)
	}
	return nil, errors.New("no private key in key ring")
}

func decryptKeys(e *openpgp.Entity, passphrase []byte) error {
	if e.PrivateKey.Encrypted {
		if err := e.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("decrypt signing key: %w", err)
		}
	}
	for _, sk := range e.Subkeys {
		if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
			if err := sk.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("decrypt signing subkey: %w", err)
			}
		}
	}
	return nil
}

// Sign returns an ASCII-armored detached signature over doc.
func (s *Signer) Sign(doc []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(doc), nil); err != nil {
		return nil, fmt.Errorf("sign report: %w", err)
	}
	return buf.Bytes(), nil
}

// Fingerprint of the signing key, hex encoded.
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.entity.PrimaryKey.Fingerprint)
}
