// Package services contains server-side business logic. This file implements
// UserService, which sequences the identity store, one-time tokens, session
// tokens and mail into the account flows: registration, login, email
// confirmation, password reset and session refresh.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/identity"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/onetime"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/sessions"
	"github.com/google/uuid"
)

// Flow names used for metrics and logs.
const (
	FlowRegister           = "register"
	FlowLogin              = "login"
	FlowConfirmEmail       = "confirm_email"
	FlowForgotPassword     = "forgot_password"
	FlowResetPassword      = "reset_password"
	FlowRefresh            = "refresh"
	FlowLogout             = "logout"
	FlowLogoutAll          = "logout_all"
	FlowResendConfirmation = "resend_confirmation"
)

const (
	msgRegistered       = "User successfully created."
	msgNotRegistered    = "Error user not created."
	msgPasswordMismatch = "Password doesn't match its confirmation"
	msgRoleNotAllowed   = "Set user role error"
	msgLoggedIn         = "Logged in successfully"
	msgLoginIncorrect   = "Login incorrect."
	msgLoginUnconfirmed = "Email is not confirmed"
	msgEmailConfirmed   = "Email confirmed successfully!"
	msgConfirmFailed    = "Email did not confirm"
	msgResetSent        = "If an account exists for this email, a password reset link has been sent."
	msgConfirmationSent = "If an unconfirmed account exists for this email, a confirmation link has been sent."
	msgPasswordReset    = "Password has been reset successfully!"
	msgResetFailed      = "Password was not reset"
	msgRefreshed        = "Session refreshed"
	msgRefreshFailed    = "Invalid refresh token"
	msgSessionRevoked   = "Session revoked, please log in again"
	msgLoggedOut        = "Logged out"
	msgLoggedOutAll     = "All sessions revoked"
	msgUserNotFound     = "User not found"
	msgInternal         = "Something went wrong"
	msgSuccess          = "success"

	// MaxPageSize bounds ListUsers.
	MaxPageSize = 100
)

// Settings are the flow policies taken from configuration.
type Settings struct {
	PublicURL             string
	DefaultRole           string
	ConfirmationTTL       time.Duration
	ResetTTL              time.Duration
	RequireConfirmedEmail bool
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Name            string `json:"name,omitempty"`
	Surname         string `json:"surname,omitempty"`
	Role            string `json:"role,omitempty"`
}

// ResetPasswordRequest carries the reset form; Token is the encoded value
// from the reset link.
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	dummyHash   string
	onetime     *onetime.Issuer
	sessions    *sessions.Issuer
	templates   *mail.Templates
	mailer      mail.Sender
	metrics     metrics.Observer
	log         logging.Logger
	settings    Settings
}

// NewUserService wires the flows. A nil observer disables metrics.
func NewUserService(
	m repomanager.RepositoryManager,
	hasher cryptox.PasswordHasher,
	onetimeIssuer *onetime.Issuer,
	sessionIssuer *sessions.Issuer,
	templates *mail.Templates,
	mailer mail.Sender,
	observer metrics.Observer,
	log logging.Logger,
	settings Settings,
) (*UserService, error) {
	dummy, err := identity.DummyHash(hasher)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	if observer == nil {
		observer = metrics.Nop{}
	}
	if settings.DefaultRole == "" {
		settings.DefaultRole = common.RoleUsers
	}
	settings.PublicURL = strings.TrimRight(settings.PublicURL, "/")

	return &UserService{
		repomanager: m,
		hasher:      hasher,
		dummyHash:   dummy,
		onetime:     onetimeIssuer,
		sessions:    sessionIssuer,
		templates:   templates,
		mailer:      mailer,
		metrics:     observer,
		log:         log.With("module", "user_service"),
		settings:    settings,
	}, nil
}

func (s *UserService) identity(db dbx.DBTX) *identity.Store {
	return identity.New(s.repomanager.Users(db), s.hasher, s.dummyHash)
}

func (s *UserService) observe(flow string, r Result) {
	s.metrics.FlowCompleted(flow, r.Success)
}

// validationDetail strips the sentinel prefix from a validation error.
func validationDetail(err error) string {
	return strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
}

// storeFailure logs err and builds a failure that does not leak internals.
func (s *UserService) storeFailure(ctx context.Context, flow, message string, err error) Result {
	s.log.Error(ctx, "store failure", "flow", flow, "error", err)
	return fail(message, fmt.Errorf("%w: %v", common.ErrStoreFailure, err), msgInternal)
}

// ConfirmationLink builds the GET link that confirms userID's email.
func (s *UserService) ConfirmationLink(userID, token string) string {
	q := url.Values{}
	q.Set("userid", userID)
	q.Set("token", token)
	return s.settings.PublicURL + "/api/users/confirmemail?" + q.Encode()
}

// ResetLink builds the link the user follows to reset the password.
func (s *UserService) ResetLink(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return s.settings.PublicURL + "/resetpassword?" + q.Encode()
}

// sendMail delivers a message; failures are logged and counted but never
// fail the calling flow.
func (s *UserService) sendMail(ctx context.Context, to, subject, body string) {
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		s.metrics.MailFailure()
		s.log.Warn(ctx, "mail delivery failed", "to", to, "subject", subject, "error", err)
	}
}

func (s *UserService) sendConfirmation(ctx context.Context, u *models.User, issued *onetime.Issued) {
	subject, body, err := s.templates.ConfirmEmail(mail.LinkData{
		Name:      u.Name,
		Link:      s.ConfirmationLink(u.ID, issued.Encoded()),
		ExpiresAt: issued.Token.ExpiresAt,
	})
	if err != nil {
		s.metrics.MailFailure()
		s.log.Warn(ctx, "render confirmation mail failed", "user_id", u.ID, "error", err)
		return
	}
	s.sendMail(ctx, u.Email, subject, body)
}

func (s *UserService) sendReset(ctx context.Context, u *models.User, issued *onetime.Issued) {
	subject, body, err := s.templates.ResetPassword(mail.LinkData{
		Name:      u.Name,
		Link:      s.ResetLink(u.Email, issued.Encoded()),
		ExpiresAt: issued.Token.ExpiresAt,
	})
	if err != nil {
		s.metrics.MailFailure()
		s.log.Warn(ctx, "render reset mail failed", "user_id", u.ID, "error", err)
		return
	}
	s.sendMail(ctx, u.Email, subject, body)
}

func (s *UserService) rolesOf(ctx context.Context, db dbx.DBTX, subjectID string) ([]string, error) {
	store := s.identity(db)
	u, err := store.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return store.GetRoles(ctx, u)
}

func sessionResponse(message string, pair *sessions.Pair) *SessionResponse {
	return &SessionResponse{
		Result:           ok(message),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// Register creates the identity, attaches the role and issues the
// confirmation token in one transaction, then mails the link and returns a
// session. A role that cannot be attached rolls the whole registration back.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (resp *SessionResponse) {
	defer func() { s.observe(FlowRegister, resp.Result) }()

	if req.Password != req.ConfirmPassword {
		return &SessionResponse{Result: fail(msgPasswordMismatch, common.ErrValidation, msgPasswordMismatch)}
	}

	// self-registration only ever grants the default role
	role := s.settings.DefaultRole
	if req.Role != "" && req.Role != role {
		return &SessionResponse{Result: fail(msgNotRegistered, common.ErrValidation, msgRoleNotAllowed)}
	}

	var (
		user   *models.User
		issued *onetime.Issued
	)
	err := s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.identity(tx)

		u, err := store.Create(ctx, &models.User{
			Email:   req.Email,
			Name:    strings.TrimSpace(req.Name),
			Surname: strings.TrimSpace(req.Surname),
		}, req.Password)
		if err != nil {
			return err
		}

		added, err := store.AddRole(ctx, u, role)
		if err != nil {
			return fmt.Errorf("assign role %q: %w", role, err)
		}
		if !added {
			return fmt.Errorf("assign role %q: %w", role, common.ErrorNotFound)
		}

		iss, err := s.onetime.Issue(ctx, s.repomanager.OneTimeTokens(tx), u.ID, models.PurposeEmailConfirmation, s.settings.ConfirmationTTL)
		if err != nil {
			return err
		}

		user, issued = u, iss
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			return &SessionResponse{Result: fail(msgNotRegistered, common.ErrValidation, validationDetail(err))}
		case errors.Is(err, common.ErrorAlreadyExists):
			return &SessionResponse{Result: fail(msgNotRegistered, common.ErrorAlreadyExists, "email is already registered")}
		case errors.Is(err, common.ErrorNotFound):
			s.log.Warn(ctx, "registration rolled back, role not assigned", "role", role, "error", err)
			return &SessionResponse{Result: fail(msgNotRegistered, common.ErrValidation, msgRoleNotAllowed)}
		}
		return &SessionResponse{Result: s.storeFailure(ctx, FlowRegister, msgNotRegistered, err)}
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "email", user.Email, "role", role)
	s.sendConfirmation(ctx, user, issued)

	pair, err := s.sessions.IssuePair(ctx, user.ID, []string{role})
	if err != nil {
		return &SessionResponse{Result: s.storeFailure(ctx, FlowRegister, msgNotRegistered, err)}
	}
	return sessionResponse(msgRegistered, pair)
}

// Login checks the credentials and issues a session. Unknown emails and
// wrong passwords produce the same response.
func (s *UserService) Login(ctx context.Context, email, password string) (resp *SessionResponse) {
	defer func() { s.observe(FlowLogin, resp.Result) }()

	store := s.identity(s.repomanager.Conn())

	u, err := store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return &SessionResponse{Result: s.storeFailure(ctx, FlowLogin, msgLoginIncorrect, err)}
		}
		u = nil
	}

	if !store.CheckPassword(u, password) {
		return &SessionResponse{Result: fail(msgLoginIncorrect, common.ErrInvalidCredentials, msgLoginIncorrect)}
	}

	if s.settings.RequireConfirmedEmail && !u.EmailConfirmed {
		return &SessionResponse{Result: fail(msgLoginUnconfirmed, common.ErrEmailNotConfirmed, msgLoginUnconfirmed)}
	}

	roles, err := store.GetRoles(ctx, u)
	if err != nil {
		return &SessionResponse{Result: s.storeFailure(ctx, FlowLogin, msgLoginIncorrect, err)}
	}

	pair, err := s.sessions.IssuePair(ctx, u.ID, roles)
	if err != nil {
		return &SessionResponse{Result: s.storeFailure(ctx, FlowLogin, msgLoginIncorrect, err)}
	}

	s.log.Info(ctx, "user logged in", "user_id", u.ID)
	return sessionResponse(msgLoggedIn, pair)
}

// isTokenFailure reports whether err is an expected outcome of presenting
// a bad one-time or refresh token.
func isTokenFailure(err error) bool {
	for _, target := range []error{
		common.ErrMalformedToken,
		common.ErrInvalidToken,
		common.ErrTokenNotFound,
		common.ErrTokenExpired,
		common.ErrTokenAlreadyUsed,
		common.ErrPurposeMismatch,
		common.ErrTokenRevoked,
		common.ErrTokenReuseDetected,
		common.ErrorNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ConfirmEmail consumes the confirmation token and marks the email
// confirmed in the same transaction.
func (s *UserService) ConfirmEmail(ctx context.Context, userID, token string) (resp *StatusResponse) {
	defer func() { s.observe(FlowConfirmEmail, resp.Result) }()

	if uuid.Validate(userID) != nil {
		return &StatusResponse{Result: fail(msgConfirmFailed, common.ErrTokenNotFound, msgUserNotFound)}
	}

	err := s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.identity(tx)

		u, err := store.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		if _, err := s.onetime.ValidateAndConsumeEncoded(ctx, s.repomanager.OneTimeTokens(tx), u.ID, models.PurposeEmailConfirmation, token); err != nil {
			return err
		}

		return store.SetConfirmed(ctx, u)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &StatusResponse{Result: fail(msgConfirmFailed, common.ErrTokenNotFound, msgUserNotFound)}
		}
		if isTokenFailure(err) {
			s.log.Info(ctx, "email confirmation rejected", "user_id", userID, "reason", err)
			return &StatusResponse{Result: fail(msgConfirmFailed, err, err.Error())}
		}
		return &StatusResponse{Result: s.storeFailure(ctx, FlowConfirmEmail, msgConfirmFailed, err)}
	}

	s.log.Info(ctx, "email confirmed", "user_id", userID)
	return &StatusResponse{Result: ok(msgEmailConfirmed)}
}

// ForgotPassword mails a reset link. The response is the same whether or
// not the email belongs to an account.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (resp *StatusResponse) {
	defer func() { s.observe(FlowForgotPassword, resp.Result) }()

	u, err := s.identity(s.repomanager.Conn()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "password reset requested for unknown email")
			return &StatusResponse{Result: ok(msgResetSent)}
		}
		return &StatusResponse{Result: s.storeFailure(ctx, FlowForgotPassword, msgInternal, err)}
	}

	issued, err := s.onetime.Issue(ctx, s.repomanager.OneTimeTokens(s.repomanager.Conn()), u.ID, models.PurposePasswordReset, s.settings.ResetTTL)
	if err != nil {
		return &StatusResponse{Result: s.storeFailure(ctx, FlowForgotPassword, msgInternal, err)}
	}

	s.log.Info(ctx, "password reset issued", "user_id", u.ID)
	s.sendReset(ctx, u, issued)
	return &StatusResponse{Result: ok(msgResetSent)}
}

// ResetPassword consumes the reset token, stores the new password and
// revokes every refresh token of the user, all in one transaction.
func (s *UserService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (resp *StatusResponse) {
	defer func() { s.observe(FlowResetPassword, resp.Result) }()

	if req.Password != req.ConfirmPassword {
		return &StatusResponse{Result: fail(msgPasswordMismatch, common.ErrValidation, msgPasswordMismatch)}
	}
	// checked up front so a weak password does not burn the token
	if err := identity.ValidatePassword(req.Password); err != nil {
		return &StatusResponse{Result: fail(msgResetFailed, common.ErrValidation, validationDetail(err))}
	}

	var (
		subject string
		revoked int64
	)
	err := s.repomanager.RunInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		store := s.identity(tx)

		u, err := store.FindByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		subject = u.ID

		if _, err := s.onetime.ValidateAndConsumeEncoded(ctx, s.repomanager.OneTimeTokens(tx), u.ID, models.PurposePasswordReset, req.Token); err != nil {
			return err
		}

		if err := store.SetPassword(ctx, u, req.Password); err != nil {
			return err
		}

		revoked, err = s.sessions.Store().RevokeAllIn(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same outcome as a bad token, so the email is not confirmed as registered
			return &StatusResponse{Result: fail(msgResetFailed, common.ErrTokenNotFound, common.ErrTokenNotFound.Error())}
		}
		if isTokenFailure(err) {
			s.log.Info(ctx, "password reset rejected", "user_id", subject, "reason", err)
			return &StatusResponse{Result: fail(msgResetFailed, err, err.Error())}
		}
		if errors.Is(err, common.ErrValidation) {
			return &StatusResponse{Result: fail(msgResetFailed, common.ErrValidation, validationDetail(err))}
		}
		return &StatusResponse{Result: s.storeFailure(ctx, FlowResetPassword, msgResetFailed, err)}
	}

	s.log.Info(ctx, "password reset", "user_id", subject, "sessions_revoked", revoked)
	return &StatusResponse{Result: ok(msgPasswordReset)}
}

// RefreshSession rotates the refresh token and pairs the successor with a
// fresh access token carrying the subject's current roles.
func (s *UserService) RefreshSession(ctx context.Context, refreshToken string) (resp *SessionResponse) {
	defer func() { s.observe(FlowRefresh, resp.Result) }()

	pair, err := s.sessions.Refresh(ctx, refreshToken, s.rolesOf)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenReuseDetected):
			s.metrics.RefreshReuse()
			return &SessionResponse{Result: fail(msgSessionRevoked, common.ErrTokenReuseDetected, err.Error())}
		case isTokenFailure(err):
			return &SessionResponse{Result: fail(msgRefreshFailed, err, err.Error())}
		}
		return &SessionResponse{Result: s.storeFailure(ctx, FlowRefresh, msgRefreshFailed, err)}
	}
	return sessionResponse(msgRefreshed, pair)
}

// Logout revokes the presented refresh token. Unknown or malformed values
// succeed as well.
func (s *UserService) Logout(ctx context.Context, refreshToken string) (resp *StatusResponse) {
	defer func() { s.observe(FlowLogout, resp.Result) }()

	err := s.sessions.Store().Revoke(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrMalformedToken) {
		return &StatusResponse{Result: s.storeFailure(ctx, FlowLogout, msgInternal, err)}
	}
	return &StatusResponse{Result: ok(msgLoggedOut)}
}

// LogoutAll revokes every refresh token of subjectID.
func (s *UserService) LogoutAll(ctx context.Context, subjectID string) (resp *StatusResponse) {
	defer func() { s.observe(FlowLogoutAll, resp.Result) }()

	n, err := s.sessions.Store().RevokeAll(ctx, subjectID)
	if err != nil {
		return &StatusResponse{Result: s.storeFailure(ctx, FlowLogoutAll, msgInternal, err)}
	}
	s.log.Info(ctx, "all sessions revoked", "user_id", subjectID, "count", n)
	return &StatusResponse{Result: ok(msgLoggedOutAll)}
}

// ResendConfirmation issues a fresh confirmation link for an unconfirmed
// account. The response never reveals whether one exists.
func (s *UserService) ResendConfirmation(ctx context.Context, email string) (resp *StatusResponse) {
	defer func() { s.observe(FlowResendConfirmation, resp.Result) }()

	u, err := s.identity(s.repomanager.Conn()).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &StatusResponse{Result: ok(msgConfirmationSent)}
		}
		return &StatusResponse{Result: s.storeFailure(ctx, FlowResendConfirmation, msgInternal, err)}
	}
	if u.EmailConfirmed {
		return &StatusResponse{Result: ok(msgConfirmationSent)}
	}

	issued, err := s.onetime.Issue(ctx, s.repomanager.OneTimeTokens(s.repomanager.Conn()), u.ID, models.PurposeEmailConfirmation, s.settings.ConfirmationTTL)
	if err != nil {
		return &StatusResponse{Result: s.storeFailure(ctx, FlowResendConfirmation, msgInternal, err)}
	}

	s.sendConfirmation(ctx, u, issued)
	return &StatusResponse{Result: ok(msgConfirmationSent)}
}

func (s *UserService) GetUserProfile(ctx context.Context, subjectID string) *ProfileResponse {
	store := s.identity(s.repomanager.Conn())

	u, err := store.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &ProfileResponse{Result: fail(msgUserNotFound, common.ErrorNotFound, msgUserNotFound)}
		}
		return &ProfileResponse{Result: s.storeFailure(ctx, "profile", msgInternal, err)}
	}

	roles, err := store.GetRoles(ctx, u)
	if err != nil {
		return &ProfileResponse{Result: s.storeFailure(ctx, "profile", msgInternal, err)}
	}

	p := models.NewProfile(u, roles)
	return &ProfileResponse{Result: ok(msgSuccess), Payload: &p}
}

// ListUsers returns users in the half-open range [start, end) ordered by
// creation time. A range wider than MaxPageSize is cut to one page.
func (s *UserService) ListUsers(ctx context.Context, start, end int) *UsersResponse {
	if start < 0 || end <= start {
		return &UsersResponse{Result: fail("Invalid range", common.ErrValidation, "start must be >= 0 and end > start")}
	}
	if end-start > MaxPageSize {
		end = start + MaxPageSize
	}

	store := s.identity(s.repomanager.Conn())
	out, err := s.listPage(ctx, store, start, end-start)
	if err != nil {
		return &UsersResponse{Result: s.storeFailure(ctx, "list_users", msgInternal, err)}
	}
	return &UsersResponse{Result: ok(msgSuccess), Payload: out}
}

// ListAllUsers returns every user, reading MaxPageSize rows at a time.
func (s *UserService) ListAllUsers(ctx context.Context) *UsersResponse {
	store := s.identity(s.repomanager.Conn())

	out := make([]models.Profile, 0, MaxPageSize)
	for offset := 0; ; offset += MaxPageSize {
		page, err := s.listPage(ctx, store, offset, MaxPageSize)
		if err != nil {
			return &UsersResponse{Result: s.storeFailure(ctx, "list_users", msgInternal, err)}
		}
		out = append(out, page...)
		if len(page) < MaxPageSize {
			break
		}
	}
	return &UsersResponse{Result: ok(msgSuccess), Payload: out}
}

func (s *UserService) listPage(ctx context.Context, store *identity.Store, offset, limit int) ([]models.Profile, error) {
	list, err := store.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.Profile, 0, len(list))
	for i := range list {
		roles, err := store.GetRoles(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, models.NewProfile(&list[i], roles))
	}
	return out, nil
}

// VerifyAccessToken validates a bearer token for the transports.
func (s *UserService) VerifyAccessToken(token string) (subjectID string, roles []string, err error) {
	claims, err := s.sessions.VerifyAccessToken(token)
	if err != nil {
		return "", nil, err
	}
	return claims.UserID, claims.Roles, nil
}
