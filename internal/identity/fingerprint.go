// Package identity derives stable item identities from post links.
package identity

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/qepting91/postwatch/internal/domain"
)

// Fingerprint returns the hex SHA-256 of link. Titles and timestamps play no
// part, so re-formatted titles keep the same identity across runs.
func Fingerprint(link string) domain.Identity {
	sum := sha256.Sum256([]byte(link))
	return domain.Identity(hex.EncodeToString(sum[:]))
}
