package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/paperifyhq/paperify/internal/config"
	"github.com/paperifyhq/paperify/internal/paymentlink/domain"
	"go.uber.org/zap"
)

// Signer computes the tamper-evidence signature stored with every link:
// HMAC-SHA256 over "linkID:email:plan:amount". It guards against direct
// store tampering, not against a compromised secret.
type Signer struct {
	secret []byte
}

// NewSigner requires a configured secret in production: links signed with
// an ephemeral secret become unverifiable after a restart.
func NewSigner(cfg config.Config, log *zap.Logger) (*Signer, error) {
	secret := cfg.Payment.Secret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("payment.secret is required in production mode")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate ephemeral payment secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		log.Warn("payment secret not configured; using ephemeral secret, existing links will not verify after restart")
	}
	return &Signer{secret: []byte(secret)}, nil
}

func NewSignerWithSecret(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(linkID, email, plan string, amount int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%s:%s:%d", linkID, email, plan, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate recomputes the signature over the link's stored fields. Any
// mismatch invalidates the link regardless of its status.
func (s *Signer) Validate(link *domain.PaymentLink) bool {
	expected := s.Sign(link.LinkID, link.UserEmail, link.Plan, link.Amount)
	return hmac.Equal([]byte(expected), []byte(link.Signature))
}
