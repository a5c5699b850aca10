package kalshi

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/weatherdesk/tradecore/internal/config"
)

// PrivateKey is either an RSA or an ECDSA key loaded from the
// configured PEM file. The exchange's primary signing scheme is
// RSA-PSS; ECDSA is accepted as a fallback for accounts provisioned
// with an EC key, with a startup warning since it is not the
// documented primary path.
type PrivateKey struct {
	RSA *rsa.PrivateKey
	EC  *ecdsa.PrivateKey
}

// LoadPrivateKey reads and parses the PEM file at path, trying PKCS8
// then PKCS1 for RSA, and falling back to an EC key if neither RSA
// form parses. An EC key logs a startup warning: the exchange's
// documented signing scheme is RSA-PSS, and EC support here is a
// defensive fallback rather than a fully-specified alternative.
func LoadPrivateKey(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return &PrivateKey{RSA: k}, nil
		case *ecdsa.PrivateKey:
			log.Warn().Str("module", "AUTH").Msg("loaded EC private key; exchange's documented scheme is RSA-PSS, falling back to ECDSA-SHA256 signing")
			return &PrivateKey{EC: k}, nil
		}
	}

	if rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &PrivateKey{RSA: rsaKey}, nil
	}

	if ecKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		log.Warn().Str("module", "AUTH").Msg("loaded EC private key; exchange's documented scheme is RSA-PSS, falling back to ECDSA-SHA256 signing")
		return &PrivateKey{EC: ecKey}, nil
	}

	return nil, fmt.Errorf("parsing private key: unsupported or unrecognized format in %s", path)
}

// Sign computes the request signature over timestampMS+method+path.
// RSA keys sign with RSA-PSS (MGF1-SHA256, salt length equal to the
// hash). EC keys sign with plain ECDSA-SHA256, as a fallback scheme.
func Sign(key *PrivateKey, timestampMS, method, path string) (string, error) {
	message := timestampMS + method + path
	hash := sha256.Sum256([]byte(message))

	if key.RSA != nil {
		sig, err := rsa.SignPSS(rand.Reader, key.RSA, crypto.SHA256, hash[:], &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       crypto.SHA256,
		})
		if err != nil {
			return "", fmt.Errorf("rsa-pss signing: %w", err)
		}
		return base64.StdEncoding.EncodeToString(sig), nil
	}

	if key.EC != nil {
		sig, err := ecdsa.SignASN1(rand.Reader, key.EC, hash[:])
		if err != nil {
			return "", fmt.Errorf("ecdsa signing: %w", err)
		}
		return base64.StdEncoding.EncodeToString(sig), nil
	}

	return "", fmt.Errorf("no signing key loaded")
}

// AuthHeaders builds the three KALSHI-ACCESS-* headers for a request.
func AuthHeaders(cfg *config.Config, key *PrivateKey, method, path string) (map[string]string, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sig, err := Sign(key, ts, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       cfg.KalshiAPIKeyID,
		"KALSHI-ACCESS-TIMESTAMP": ts,
		"KALSHI-ACCESS-SIGNATURE": sig,
	}, nil
}
