package marketplace

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint hashes a client address with salt. The raw address is never
// persisted; an empty address yields an empty fingerprint.
func Fingerprint(salt, clientIP string) string {
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(salt + "|" + clientIP))
	return hex.EncodeToString(hash[:])
}
