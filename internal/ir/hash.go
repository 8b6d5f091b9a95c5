package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding change.
const (
	DomainGraphConfig = "graphcfg/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash computes the content-addressed identity of a config.
// Two configs hash equal iff their canonical encodings are identical.
func ConfigHash(cfg GraphConfig) (string, error) {
	canonical, err := MarshalCanonical(cfg.Object())
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraphConfig, canonical), nil
}

// MustConfigHash is like ConfigHash but panics on error.
// Use only in tests or when the config is known to be valid.
func MustConfigHash(cfg GraphConfig) string {
	h, err := ConfigHash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}
