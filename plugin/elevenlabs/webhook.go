package elevenlabs

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// SignatureHeader carries the webhook signature.
	SignatureHeader = "ElevenLabs-Signature"

	// InsecureSecret disables verification, matching local test setups.
	InsecureSecret = "testing"

	signatureTolerance = 30 * time.Minute
)

// Verifier checks webhook signatures.
type Verifier struct {
	Secret string
	// DevMode skips verification.
	DevMode bool
	Now     func() time.Time
}

// Enabled reports whether signatures are checked at all.
func (v *Verifier) Enabled() bool {
	return !v.DevMode && v.Secret != InsecureSecret
}

// Verify checks a "t=<unix>,v0=<hex>" header against body.
// The digest is HMAC-SHA256(secret, "<t>.<body>").
func (v *Verifier) Verify(body []byte, header string) error {
	if !v.Enabled() {
		return nil
	}
	if v.Secret == "" {
		return errors.New("webhook: secret is empty")
	}
	if header == "" {
		return errors.New("webhook: signature is empty")
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v0":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return errors.New("webhook: malformed signature header")
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.Wrap(err, "webhook: invalid timestamp")
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if age := now().Sub(time.Unix(unix, 0)); age > signatureTolerance || age < -signatureTolerance {
		return errors.New("webhook: timestamp outside tolerance")
	}

	signatureBytes, err := hex.DecodeString(signature)
	if err != nil {
		return errors.Wrap(err, "webhook: invalid hex signature")
	}
	if subtle.ConstantTimeCompare(Sign(v.Secret, timestamp, body), signatureBytes) != 1 {
		return errors.New("webhook: signature mismatch")
	}
	return nil
}

// Sign computes the raw signature digest for timestamp and body.
func Sign(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeaderValue builds a header value for body signed at t.
func SignatureHeaderValue(secret string, t time.Time, body []byte) string {
	timestamp := strconv.FormatInt(t.Unix(), 10)
	return fmt.Sprintf("t=%s,v0=%s", timestamp, hex.EncodeToString(Sign(secret, timestamp, body)))
}
