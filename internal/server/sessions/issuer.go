package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

const maxRefreshAttempts = 3

// Pair is what every successful login, registration and refresh returns.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type Issuer struct {
	signer     *auth.Signer
	store      *RefreshStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(signer *auth.Signer, store *RefreshStore, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{signer: signer, store: store, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

func (i *Issuer) Store() *RefreshStore { return i.store }

// IssueAccessToken signs a short-lived token for subjectID carrying roles.
func (i *Issuer) IssueAccessToken(subjectID string, roles []string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("%w: access token ttl must be positive", common.ErrValidation)
	}
	return i.signer.GenerateToken(subjectID, roles, ttl)
}

// IssueRefreshToken creates and persists a refresh token, regenerating the
// value on the rare digest collision.
func (i *Issuer) IssueRefreshToken(ctx context.Context, subjectID string, ttl time.Duration) (*IssuedRefresh, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: refresh token ttl must be positive", common.ErrValidation)
	}

	for attempt := 0; ; attempt++ {
		issued := i.store.newToken(subjectID, ttl)
		err := i.store.Save(ctx, issued.Token)
		if err == nil {
			return issued, nil
		}
		if !errors.Is(err, common.ErrDuplicateValue) || attempt+1 >= maxRefreshAttempts {
			return nil, err
		}
	}
}

// IssuePair issues an access token and a refresh token with the
// configured lifetimes.
func (i *Issuer) IssuePair(ctx context.Context, subjectID string, roles []string) (*Pair, error) {
	access, err := i.IssueAccessToken(subjectID, roles, i.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := i.IssueRefreshToken(ctx, subjectID, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  i.now().Add(i.accessTTL),
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.Token.ExpiresAt,
	}, nil
}

// RoleLookup resolves the current roles of subjectID through db.
type RoleLookup func(ctx context.Context, db dbx.DBTX, subjectID string) ([]string, error)

// Refresh rotates refreshValue and pairs the successor with a new access
// token for the same subject. Roles are resolved inside the rotation, so a
// failed lookup leaves refreshValue usable.
func (i *Issuer) Refresh(ctx context.Context, refreshValue string, roles RoleLookup) (*Pair, error) {
	var r []string
	next, err := i.store.RotateWith(ctx, refreshValue, i.refreshTTL, func(ctx context.Context, tx dbx.DBTX, subjectID string) error {
		var err error
		r, err = roles(ctx, tx, subjectID)
		return err
	})
	if err != nil {
		return nil, err
	}

	access, err := i.IssueAccessToken(next.Token.UserID, r, i.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  i.now().Add(i.accessTTL),
		RefreshToken:     next.Value,
		RefreshExpiresAt: next.Token.ExpiresAt,
	}, nil
}

// VerifyAccessToken checks signature and expiry without touching storage.
func (i *Issuer) VerifyAccessToken(token string) (*auth.Claims, error) {
	return i.signer.Verify(token)
}
