package jwtinfra

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

const keyBits = 2048

// KeyStore is durable storage for PEM-encoded key material.
type KeyStore interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// KeyPair is the single active signing key pair.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadOrGenerateKeys loads the key pair from store. When either half is
// missing a fresh pair is generated and both names are overwritten.
func LoadOrGenerateKeys(ctx context.Context, store KeyStore, privateName, publicName string) (*KeyPair, error) {
	privOK, err := store.Exists(ctx, privateName)
	if err != nil {
		return nil, fmt.Errorf("stat private key: %w", err)
	}
	pubOK, err := store.Exists(ctx, publicName)
	if err != nil {
		return nil, fmt.Errorf("stat public key: %w", err)
	}

	if !privOK || !pubOK {
		slog.Info("generating jwt signing keys", "private", privateName, "public", publicName)
		privPEM, pubPEM, err := GenerateKeyPEM()
		if err != nil {
			return nil, err
		}
		if err := store.Write(ctx, privateName, privPEM); err != nil {
			return nil, fmt.Errorf("write private key: %w", err)
		}
		if err := store.Write(ctx, publicName, pubPEM); err != nil {
			return nil, fmt.Errorf("write public key: %w", err)
		}
		return ParseKeyPair(privPEM, pubPEM)
	}

	privPEM, err := store.Read(ctx, privateName)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := store.Read(ctx, publicName)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParseKeyPair(privPEM, pubPEM)
}

// GenerateKeyPEM creates an RSA key pair encoded as PKCS#8 and PKIX PEM.
func GenerateKeyPEM() (privPEM, pubPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

func ParseKeyPair(privPEM, pubPEM []byte) (*KeyPair, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}
