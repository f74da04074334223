package external

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strconv"

	"ceseminars/internal/models"
)

type WebhookConfig struct {
	Secret string
}

// OrderToken signs an order-paid notification: the parameter values sorted
// by key and followed by the shared secret, hashed with SHA-256.
func OrderToken(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}
	tokenString += secret

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

func orderParams(p *models.OrderPaidPayload) map[string]string {
	return map[string]string{
		"Email":     p.Email,
		"FirstName": p.FirstName,
		"OrderID":   p.OrderID,
		"SeminarID": strconv.FormatInt(p.SeminarID, 10),
		"Surname":   p.Surname,
		"Timestamp": p.Timestamp,
	}
}

// SignOrder returns the token a sender must attach to payload.
func SignOrder(p *models.OrderPaidPayload, secret string) string {
	return OrderToken(orderParams(p), secret)
}

// VerifyOrder reports whether the payload token matches. An empty secret
// rejects everything.
func VerifyOrder(p *models.OrderPaidPayload, secret string) bool {
	if secret == "" || p.Token == "" {
		return false
	}
	expected := SignOrder(p, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(p.Token)) == 1
}
