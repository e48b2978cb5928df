package booking

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"salesops_backend/platform/httpkit"
	"salesops_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	contextBodyKey       = "webhookBody"
	contextDeliveryIDKey = "webhookDeliveryID"

	calendlySignatureHeader = "Calendly-Webhook-Signature"
	calComSignatureHeader   = "X-Cal-Signature-256"
)

// SecretSource provides the active signing secrets for a platform. Signature
// verification runs before tenant resolution, so each secret is tried.
// Satisfied by organizations.Resolver.
type SecretSource interface {
	Secrets(ctx context.Context, platform string) ([]string, error)
}

// VerifySignature authenticates the webhook body against the platform's
// signing scheme, buffers the body for the handler and derives a delivery id
// for the replay cache. Requests with no valid signature are rejected.
func VerifySignature(platform Platform, secrets SecretSource, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "failed to read request body", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		candidates, err := secrets.Secrets(c.Request.Context(), string(platform))
		if err != nil {
			log.Error("failed to load signing secrets", "error", err, "platform", platform)
			httpkit.Error(c, http.StatusInternalServerError, "signature verification unavailable", nil)
			c.Abort()
			return
		}

		if !verifyAny(platform, c, body, candidates) {
			log.Warn("webhook signature rejected",
				"platform", platform,
				"client_ip", c.ClientIP(),
			)
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook signature", nil)
			c.Abort()
			return
		}

		sum := sha256.Sum256(body)
		c.Set(contextBodyKey, body)
		c.Set(contextDeliveryIDKey, string(platform)+":"+hex.EncodeToString(sum[:]))
		c.Next()
	}
}

func verifyAny(platform Platform, c *gin.Context, body []byte, secrets []string) bool {
	switch platform {
	case PlatformCalendly:
		return verifyCalendly(c.GetHeader(calendlySignatureHeader), body, secrets)
	case PlatformCalCom:
		return verifyCalCom(c.GetHeader(calComSignatureHeader), body, secrets)
	}
	return false
}

// verifyCalendly checks the "t=<ts>,v1=<hex>" header, where the signature
// covers "<ts>.<body>".
func verifyCalendly(header string, body []byte, secrets []string) bool {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			sig = value
		}
	}
	if ts == "" || sig == "" {
		return false
	}

	signed := append([]byte(ts+"."), body...)
	for _, secret := range secrets {
		if hmacMatches(signed, secret, sig) {
			return true
		}
	}
	return false
}

// verifyCalCom checks the hex HMAC-SHA256 of the raw body.
func verifyCalCom(header string, body []byte, secrets []string) bool {
	if header == "" {
		return false
	}
	for _, secret := range secrets {
		if hmacMatches(body, secret, header) {
			return true
		}
	}
	return false
}

func hmacMatches(message []byte, secret, expectedHex string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected, err := hex.DecodeString(strings.TrimSpace(expectedHex))
	if err != nil {
		return false
	}
	return hmac.Equal(mac.Sum(nil), expected)
}
