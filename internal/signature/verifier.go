package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"go.uber.org/zap"
)

// Verifier checks Mailgun webhook signatures: a hex encoded HMAC-SHA256 of
// timestamp+token keyed with the signing key
type Verifier struct {
	signingKey []byte
	logger     *zap.Logger
}

// NewVerifier creates a new signature verifier. An empty key disables verification.
func NewVerifier(signingKey string, logger *zap.Logger) *Verifier {
	if signingKey == "" {
		logger.Warn("No webhook signing key configured, signature verification is disabled")
	}
	return &Verifier{
		signingKey: []byte(signingKey),
		logger:     logger,
	}
}

// Verify validates a signature. It never panics.
func (v *Verifier) Verify(timestamp, token, signature string) (result core.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("Signature verification panicked", zap.Any("panic", r))
			result = core.VerificationResult{Valid: false, Reason: core.ReasonBadSignature}
		}
	}()

	if len(v.signingKey) == 0 {
		v.logger.Warn("Accepting webhook call without signature verification")
		return core.VerificationResult{Valid: true, Reason: core.ReasonNoSecretConfigured}
	}

	if strings.TrimSpace(timestamp) == "" || strings.TrimSpace(token) == "" || strings.TrimSpace(signature) == "" {
		return core.VerificationResult{Valid: false, Reason: core.ReasonMissingParams}
	}

	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		v.logger.Debug("Signature is not valid hex", zap.Error(err))
		return core.VerificationResult{Valid: false, Reason: core.ReasonBadSignature}
	}

	if !hmac.Equal(given, Sign(v.signingKey, timestamp, token)) {
		return core.VerificationResult{Valid: false, Reason: core.ReasonBadSignature}
	}

	return core.VerificationResult{Valid: true, Reason: core.ReasonOK}
}

// Sign computes the raw HMAC-SHA256 digest of timestamp+token
func Sign(key []byte, timestamp, token string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(token))
	return mac.Sum(nil)
}

// SignHex returns the hex encoded signature the relay would send
func SignHex(key, timestamp, token string) string {
	return hex.EncodeToString(Sign([]byte(key), timestamp, token))
}
