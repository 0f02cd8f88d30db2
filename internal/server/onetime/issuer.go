// Package onetime issues and consumes single-purpose tokens such as email
// confirmation and password reset links.
package onetime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/onetimetokens"
	"github.com/dmitrijs2005/gophauth/internal/server/tokencodec"
)

const (
	// SecretSize is the number of random bytes in a secret (256 bits).
	SecretSize = 32

	maxIssueAttempts = 3
)

// Issued is a freshly stored token together with its raw secret. The
// secret is not persisted and must only reach the recipient.
type Issued struct {
	Token  *models.OneTimeToken
	Secret []byte
}

// Encoded returns the secret in its URL-safe transport form.
func (i *Issued) Encoded() string { return tokencodec.Encode(i.Secret) }

type Issuer struct {
	now func() time.Time
}

func NewIssuer() *Issuer {
	return &Issuer{now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue generates a secret for subjectID and purpose valid for ttl and
// stores its digest through repo.
func (i *Issuer) Issue(ctx context.Context, repo onetimetokens.Repository, subjectID string, purpose models.Purpose, ttl time.Duration) (*Issued, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: unknown purpose %q", common.ErrValidation, purpose)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", common.ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		secret := common.GenerateRandByteArray(SecretSize)
		now := i.now()

		t := &models.OneTimeToken{
			SubjectID:  subjectID,
			Purpose:    purpose,
			SecretHash: common.HashSecret(secret),
			IssuedAt:   now,
			ExpiresAt:  now.Add(ttl),
		}

		err := repo.Create(ctx, t)
		if err == nil {
			return &Issued{Token: t, Secret: secret}, nil
		}
		if !errors.Is(err, common.ErrDuplicateValue) || attempt+1 >= maxIssueAttempts {
			return nil, err
		}
	}
}

// ValidateAndConsume atomically marks the token matching subjectID,
// purpose and the presented raw secret as used. See
// onetimetokens.Repository.Consume for the failure values.
func (i *Issuer) ValidateAndConsume(ctx context.Context, repo onetimetokens.Repository, subjectID string, purpose models.Purpose, presented []byte) (*models.OneTimeToken, error) {
	if len(presented) == 0 || subjectID == "" {
		return nil, common.ErrTokenNotFound
	}
	return repo.Consume(ctx, subjectID, purpose, common.HashSecret(presented), i.now())
}

// ValidateAndConsumeEncoded decodes a transport string first; undecodable
// input yields common.ErrMalformedToken.
func (i *Issuer) ValidateAndConsumeEncoded(ctx context.Context, repo onetimetokens.Repository, subjectID string, purpose models.Purpose, encoded string) (*models.OneTimeToken, error) {
	secret, err := tokencodec.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return i.ValidateAndConsume(ctx, repo, subjectID, purpose, secret)
}
