package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/onetime"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	to, subject, body string
}

type outbox struct {
	mu   sync.Mutex
	msgs []sentMail
	err  error
}

func (o *outbox) Send(_ context.Context, to, subject, html string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, sentMail{to: to, subject: subject, body: html})
	return nil
}

func (o *outbox) last(t *testing.T) sentMail {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs, "no mail sent")
	return o.msgs[len(o.msgs)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

type recordingObserver struct {
	mu     sync.Mutex
	flows  map[string]int
	reuse  int
	failed int
}

func (r *recordingObserver) FlowCompleted(flow string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.flows == nil {
		r.flows = map[string]int{}
	}
	key := flow + ":failure"
	if success {
		key = flow + ":success"
	}
	r.flows[key]++
}

func (r *recordingObserver) RefreshReuse() { r.mu.Lock(); r.reuse++; r.mu.Unlock() }
func (r *recordingObserver) MailFailure()  { r.mu.Lock(); r.failed++; r.mu.Unlock() }

var tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
var userIDRe = regexp.MustCompile(`userid=([0-9a-f-]{36})`)

func tokenFrom(t *testing.T, body string) string {
	t.Helper()
	m := tokenRe.FindStringSubmatch(body)
	require.Len(t, m, 2, "no token in %q", body)
	return m[1]
}

type fixture struct {
	rm       *repomanager.MemoryRepositoryManager
	svc      *UserService
	mail     *outbox
	observer *recordingObserver
	clock    *clock
}

func testHasher() cryptox.PasswordHasher {
	return &cryptox.Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func newFixture(t *testing.T, opts ...func(*Settings)) *fixture {
	t.Helper()
	ctx := context.Background()

	c := &clock{t: time.Now()}
	rm := repomanager.NewMemoryRepositoryManager()
	require.NoError(t, rm.Users(nil).EnsureRole(ctx, common.RoleUsers))
	require.NoError(t, rm.Users(nil).EnsureRole(ctx, common.RoleAdministrators))

	store := sessions.NewRefreshStore(rm, logging.Nop()).WithClock(c.Now)
	signer := auth.NewSigner([]byte("test-secret"), "gophauth")
	templates, err := mail.NewTemplates("", logging.Nop())
	require.NoError(t, err)

	settings := Settings{
		PublicURL:       "https://auth.example.com/",
		DefaultRole:     common.RoleUsers,
		ConfirmationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	}
	for _, o := range opts {
		o(&settings)
	}

	box := &outbox{}
	obs := &recordingObserver{}
	svc, err := NewUserService(
		rm,
		testHasher(),
		onetime.NewIssuer().WithClock(c.Now),
		sessions.NewIssuer(signer, store, 15*time.Minute, 7*24*time.Hour),
		templates,
		box,
		obs,
		logging.Nop(),
		settings,
	)
	require.NoError(t, err)

	return &fixture{rm: rm, svc: svc, mail: box, observer: obs, clock: c}
}

func (f *fixture) register(t *testing.T, email, password string) *SessionResponse {
	t.Helper()
	resp := f.svc.Register(context.Background(), RegisterRequest{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		Role:            common.RoleUsers,
	})
	require.True(t, resp.Success, "register failed: %+v", resp.Result)
	return resp
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.rm.Users(nil).GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

// --- scenarios ---

func TestRegister_CreatesUserRoleTokenAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.svc.Register(ctx, RegisterRequest{
		Email:           "a@x.com",
		Password:        "Qwerty-1",
		ConfirmPassword: "Qwerty-1",
		Role:            "Users",
	})

	require.True(t, resp.Success, "%+v", resp.Result)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, msgRegistered, resp.Message)

	u := f.user(t, "a@x.com")
	assert.False(t, u.EmailConfirmed)

	roles, err := f.rm.Users(nil).GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Users"}, roles)

	// the confirmation token exists, unconsumed, with the right purpose
	m := f.mail.last(t)
	assert.Equal(t, "a@x.com", m.to)
	assert.Equal(t, mail.SubjectConfirmEmail, m.subject)
	assert.Contains(t, m.body, "https://auth.example.com/api/users/confirmemail?")
	assert.Equal(t, u.ID, userIDRe.FindStringSubmatch(m.body)[1])

	tok, err := f.svc.onetime.ValidateAndConsumeEncoded(ctx, f.rm.OneTimeTokens(nil), u.ID, models.PurposePasswordReset, tokenFrom(t, m.body))
	assert.Nil(t, tok)
	assert.ErrorIs(t, err, common.ErrPurposeMismatch)

	claims, err := f.svc.sessions.VerifyAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, []string{"Users"}, claims.Roles)

	assert.Equal(t, 1, f.observer.flows["register:success"])
}

func TestRegister_Failures(t *testing.T) {
	tests := []struct {
		name  string
		req   RegisterRequest
		cause error
	}{
		{
			name:  "confirmation mismatch",
			req:   RegisterRequest{Email: "a@x.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-2"},
			cause: common.ErrValidation,
		},
		{
			name:  "weak password",
			req:   RegisterRequest{Email: "a@x.com", Password: "qwerty", ConfirmPassword: "qwerty"},
			cause: common.ErrValidation,
		},
		{
			name:  "bad email",
			req:   RegisterRequest{Email: "not-an-email", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1"},
			cause: common.ErrValidation,
		},
		{
			name:  "privileged role",
			req:   RegisterRequest{Email: "a@x.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1", Role: common.RoleAdministrators},
			cause: common.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp := f.svc.Register(context.Background(), tt.req)
			assert.False(t, resp.Success)
			assert.ErrorIs(t, resp.Cause, tt.cause)
			assert.NotEmpty(t, resp.Errors)
			assert.Empty(t, resp.AccessToken)
			assert.Zero(t, f.mail.count())

			_, err := f.rm.Users(nil).GetByEmail(context.Background(), "a@x.com")
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")

	resp := f.svc.Register(context.Background(), RegisterRequest{Email: "A@X.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1"})
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Cause, common.ErrorAlreadyExists)
}

func TestRegister_MissingRoleRollsBack(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.DefaultRole = "Ghosts" })

	resp := f.svc.Register(context.Background(), RegisterRequest{Email: "a@x.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Errors, msgRoleNotAllowed)

	_, err := f.rm.Users(nil).GetByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, f.mail.count())
}

func TestRegister_MailFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	resp := f.svc.Register(context.Background(), RegisterRequest{Email: "a@x.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1"})
	assert.True(t, resp.Success)
	assert.Equal(t, 1, f.observer.failed)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	resp := f.svc.Login(ctx, "a@x.com", "Qwerty-1")
	require.True(t, resp.Success)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// address is normalized
	assert.True(t, f.svc.Login(ctx, "  A@X.COM ", "Qwerty-1").Success)
}

func TestLogin_DoesNotRevealWhetherEmailExists(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	wrong := f.svc.Login(ctx, "a@x.com", "Wrong-1")
	unknown := f.svc.Login(ctx, "nobody@x.com", "Qwerty-1")

	for _, r := range []*SessionResponse{wrong, unknown} {
		assert.False(t, r.Success)
		assert.Empty(t, r.AccessToken)
		assert.Empty(t, r.RefreshToken)
		assert.ErrorIs(t, r.Cause, common.ErrInvalidCredentials)
	}
	assert.Equal(t, wrong.Message, unknown.Message)
	assert.Equal(t, wrong.Errors, unknown.Errors)
	assert.Equal(t, 2, f.observer.flows["login:failure"])
}

func TestLogin_RequireConfirmedEmail(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.RequireConfirmedEmail = true })
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	resp := f.svc.Login(ctx, "a@x.com", "Qwerty-1")
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Cause, common.ErrEmailNotConfirmed)

	m := f.mail.last(t)
	u := f.user(t, "a@x.com")
	require.True(t, f.svc.ConfirmEmail(ctx, u.ID, tokenFrom(t, m.body)).Success)

	assert.True(t, f.svc.Login(ctx, "a@x.com", "Qwerty-1").Success)
}

func TestConfirmEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	u := f.user(t, "a@x.com")
	token := tokenFrom(t, f.mail.last(t).body)

	resp := f.svc.ConfirmEmail(ctx, u.ID, token)
	require.True(t, resp.Success, "%+v", resp.Result)
	assert.True(t, f.user(t, "a@x.com").EmailConfirmed)

	again := f.svc.ConfirmEmail(ctx, u.ID, token)
	assert.False(t, again.Success)
	assert.ErrorIs(t, again.Cause, common.ErrTokenAlreadyUsed)
}

func TestConfirmEmail_TamperedToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	u := f.user(t, "a@x.com")
	token := tokenFrom(t, f.mail.last(t).body)

	flipped := []byte(token)
	if flipped[0] == 'A' {
		flipped[0] = 'B'
	} else {
		flipped[0] = 'A'
	}

	for _, bad := range []string{string(flipped), token + "!", token[:len(token)-1], ""} {
		resp := f.svc.ConfirmEmail(ctx, u.ID, bad)
		assert.False(t, resp.Success, "token %q", bad)
	}
	assert.False(t, f.user(t, "a@x.com").EmailConfirmed)

	// the genuine token still works
	assert.True(t, f.svc.ConfirmEmail(ctx, u.ID, token).Success)
}

func TestConfirmEmail_WrongUserOrExpired(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	tokenA := tokenFrom(t, f.mail.last(t).body)
	f.register(t, "b@x.com", "Qwerty-1")
	ctx := context.Background()

	b := f.user(t, "b@x.com")
	resp := f.svc.ConfirmEmail(ctx, b.ID, tokenA)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Cause, common.ErrTokenNotFound)

	resp = f.svc.ConfirmEmail(ctx, "not-a-uuid", tokenA)
	assert.False(t, resp.Success)

	resp = f.svc.ConfirmEmail(ctx, "8b4d4c3e-7f7a-4a57-9d0a-2d2d8f3f5a11", tokenA)
	assert.False(t, resp.Success)

	f.clock.Advance(25 * time.Hour)
	a := f.user(t, "a@x.com")
	resp = f.svc.ConfirmEmail(ctx, a.ID, tokenA)
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Cause, common.ErrTokenExpired)
	assert.False(t, f.user(t, "a@x.com").EmailConfirmed)
}

func TestForgotPassword_UniformResponse(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()
	sent := f.mail.count()

	known := f.svc.ForgotPassword(ctx, "a@x.com")
	unknown := f.svc.ForgotPassword(ctx, "nobody@x.com")

	assert.True(t, known.Success)
	assert.True(t, unknown.Success)
	assert.Equal(t, known.Message, unknown.Message)
	assert.Equal(t, sent+1, f.mail.count())

	m := f.mail.last(t)
	assert.Equal(t, mail.SubjectResetPassword, m.subject)
	assert.Contains(t, m.body, "https://auth.example.com/resetpassword?")
}

func TestResetPassword_Scenario(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()

	login := f.svc.Login(ctx, "a@x.com", "Qwerty-1")
	require.True(t, login.Success)

	require.True(t, f.svc.ForgotPassword(ctx, "a@x.com").Success)
	token := tokenFrom(t, f.mail.last(t).body)

	resp := f.svc.ResetPassword(ctx, ResetPasswordRequest{
		Email:           "a@x.com",
		Token:           token,
		Password:        "NewPass-2",
		ConfirmPassword: "NewPass-2",
	})
	require.True(t, resp.Success, "%+v", resp.Result)

	assert.False(t, f.svc.Login(ctx, "a@x.com", "Qwerty-1").Success)
	assert.True(t, f.svc.Login(ctx, "a@x.com", "NewPass-2").Success)

	for _, rt := range []string{reg.RefreshToken, login.RefreshToken} {
		r := f.svc.RefreshSession(ctx, rt)
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Cause, common.ErrTokenRevoked)
	}

	// single use
	again := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Token: token, Password: "Other-3x", ConfirmPassword: "Other-3x"})
	assert.False(t, again.Success)
	assert.ErrorIs(t, again.Cause, common.ErrTokenAlreadyUsed)
}

func TestResetPassword_Failures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()
	require.True(t, f.svc.ForgotPassword(ctx, "a@x.com").Success)
	token := tokenFrom(t, f.mail.last(t).body)

	mismatch := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Token: token, Password: "NewPass-2", ConfirmPassword: "NewPass-3"})
	assert.False(t, mismatch.Success)
	assert.ErrorIs(t, mismatch.Cause, common.ErrValidation)

	weak := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Token: token, Password: "weak", ConfirmPassword: "weak"})
	assert.False(t, weak.Success)
	assert.ErrorIs(t, weak.Cause, common.ErrValidation)

	unknown := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "nobody@x.com", Token: token, Password: "NewPass-2", ConfirmPassword: "NewPass-2"})
	assert.False(t, unknown.Success)
	assert.ErrorIs(t, unknown.Cause, common.ErrTokenNotFound)

	// a confirmation token cannot reset the password
	f.register(t, "b@x.com", "Qwerty-1")
	confirmToken := tokenFrom(t, f.mail.last(t).body)
	wrongPurpose := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "b@x.com", Token: confirmToken, Password: "NewPass-2", ConfirmPassword: "NewPass-2"})
	assert.False(t, wrongPurpose.Success)
	assert.ErrorIs(t, wrongPurpose.Cause, common.ErrPurposeMismatch)

	// failed attempts above did not burn the token
	f.clock.Advance(30 * time.Minute)
	assert.True(t, f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Token: token, Password: "NewPass-2", ConfirmPassword: "NewPass-2"}).Success)
}

func TestResetPassword_Expired(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()
	require.True(t, f.svc.ForgotPassword(ctx, "a@x.com").Success)
	token := tokenFrom(t, f.mail.last(t).body)

	f.clock.Advance(time.Hour)
	resp := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "a@x.com", Token: token, Password: "NewPass-2", ConfirmPassword: "NewPass-2"})
	assert.False(t, resp.Success)
	assert.ErrorIs(t, resp.Cause, common.ErrTokenExpired)
	assert.True(t, f.svc.Login(ctx, "a@x.com", "Qwerty-1").Success)
}

func TestRefreshSession_RotationAndReuse(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "a@x.com", "Qwerty-1")
	other := f.register(t, "b@x.com", "Qwerty-1")
	ctx := context.Background()

	first := f.svc.RefreshSession(ctx, reg.RefreshToken)
	require.True(t, first.Success, "%+v", first.Result)
	assert.NotEqual(t, reg.RefreshToken, first.RefreshToken)
	assert.NotEmpty(t, first.AccessToken)

	reused := f.svc.RefreshSession(ctx, reg.RefreshToken)
	assert.False(t, reused.Success)
	assert.ErrorIs(t, reused.Cause, common.ErrTokenReuseDetected)
	assert.Equal(t, 1, f.observer.reuse)

	// the legitimately rotated successor was revoked too
	assert.False(t, f.svc.RefreshSession(ctx, first.RefreshToken).Success)

	// other subjects are unaffected
	assert.True(t, f.svc.RefreshSession(ctx, other.RefreshToken).Success)
}

func TestRefreshSession_InvalidValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, v := range []string{"", "!!!", "AAAA"} {
		r := f.svc.RefreshSession(ctx, v)
		assert.False(t, r.Success)
		assert.Equal(t, msgRefreshFailed, r.Message)
	}
}

func TestLogoutAndLogoutAll(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()
	second := f.svc.Login(ctx, "a@x.com", "Qwerty-1")
	third := f.svc.Login(ctx, "a@x.com", "Qwerty-1")

	require.True(t, f.svc.Logout(ctx, reg.RefreshToken).Success)
	assert.ErrorIs(t, f.svc.RefreshSession(ctx, reg.RefreshToken).Cause, common.ErrTokenRevoked)
	assert.True(t, f.svc.RefreshSession(ctx, second.RefreshToken).Success)

	// idempotent and uniform for garbage
	assert.True(t, f.svc.Logout(ctx, reg.RefreshToken).Success)
	assert.True(t, f.svc.Logout(ctx, "garbage!").Success)

	u := f.user(t, "a@x.com")
	require.True(t, f.svc.LogoutAll(ctx, u.ID).Success)
	assert.False(t, f.svc.RefreshSession(ctx, third.RefreshToken).Success)
}

func TestResendConfirmation(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com", "Qwerty-1")
	ctx := context.Background()
	u := f.user(t, "a@x.com")
	sent := f.mail.count()

	require.True(t, f.svc.ResendConfirmation(ctx, "a@x.com").Success)
	require.Equal(t, sent+1, f.mail.count())
	token := tokenFrom(t, f.mail.last(t).body)
	require.True(t, f.svc.ConfirmEmail(ctx, u.ID, token).Success)

	// confirmed and unknown accounts get the same answer and no mail
	confirmed := f.svc.ResendConfirmation(ctx, "a@x.com")
	unknown := f.svc.ResendConfirmation(ctx, "nobody@x.com")
	assert.True(t, confirmed.Success)
	assert.Equal(t, confirmed.Message, unknown.Message)
	assert.Equal(t, sent+1, f.mail.count())
}

func TestGetUserProfileAndList(t *testing.T) {
	f := newFixture(t)
	resp := f.svc.Register(context.Background(), RegisterRequest{
		Email: "a@x.com", Password: "Qwerty-1", ConfirmPassword: "Qwerty-1", Name: " Ann ", Surname: "Lee",
	})
	require.True(t, resp.Success)
	f.register(t, "b@x.com", "Qwerty-1")
	ctx := context.Background()

	u := f.user(t, "a@x.com")
	p := f.svc.GetUserProfile(ctx, u.ID)
	require.True(t, p.Success)
	assert.Equal(t, "Ann", p.Payload.Name)
	assert.Equal(t, "Lee", p.Payload.Surname)
	assert.Equal(t, []string{"Users"}, p.Payload.Roles)

	missing := f.svc.GetUserProfile(ctx, "8b4d4c3e-7f7a-4a57-9d0a-2d2d8f3f5a11")
	assert.False(t, missing.Success)
	assert.ErrorIs(t, missing.Cause, common.ErrorNotFound)

	list := f.svc.ListUsers(ctx, 0, 10)
	require.True(t, list.Success)
	assert.Len(t, list.Payload, 2)

	page := f.svc.ListUsers(ctx, 1, 2)
	require.True(t, page.Success)
	assert.Len(t, page.Payload, 1)

	bad := f.svc.ListUsers(ctx, 5, 1)
	assert.False(t, bad.Success)
	assert.ErrorIs(t, bad.Cause, common.ErrValidation)
}

func TestListAllUsers_ReadsPastOnePage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := f.svc.ListAllUsers(ctx)
	require.True(t, before.Success)

	repo := f.rm.Users(f.rm.Conn())
	for i := 0; i < MaxPageSize+5; i++ {
		_, err := repo.Create(ctx, &models.User{Email: fmt.Sprintf("bulk%03d@x.com", i)})
		require.NoError(t, err)
	}

	capped := f.svc.ListUsers(ctx, 0, 10*MaxPageSize)
	require.True(t, capped.Success)
	assert.Len(t, capped.Payload, MaxPageSize)

	all := f.svc.ListAllUsers(ctx)
	require.True(t, all.Success)
	assert.Len(t, all.Payload, len(before.Payload)+MaxPageSize+5)
}

func TestVerifyAccessToken(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "a@x.com", "Qwerty-1")

	id, roles, err := f.svc.VerifyAccessToken(reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.user(t, "a@x.com").ID, id)
	assert.Equal(t, []string{"Users"}, roles)

	_, _, err = f.svc.VerifyAccessToken(reg.AccessToken + "x")
	assert.Error(t, err)
}

func TestLinks(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "https://auth.example.com/api/users/confirmemail?token=abc&userid=u1", f.svc.ConfirmationLink("u1", "abc"))
	assert.Equal(t, "https://auth.example.com/resetpassword?email=a%40x.com&token=abc", f.svc.ResetLink("a@x.com", "abc"))
}
