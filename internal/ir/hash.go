package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored hashes.
const (
	DomainContent = "seqbrowse/content/v1"
	DomainScene   = "seqbrowse/scene/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the hash of a node's canonical content.
// Equal content always hashes equal, regardless of map iteration order.
func ContentHash(class string, content Object) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"class":   String(class),
		"content": content,
	})
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}

// SceneHash returns the hash of a compiled scene description.
// Used to tag persisted sessions with the description they came from.
func SceneHash(scene Scene) (string, error) {
	canonical, err := MarshalCanonical(scene.Object())
	if err != nil {
		return "", fmt.Errorf("scene hash: %w", err)
	}
	return hashWithDomain(DomainScene, canonical), nil
}
