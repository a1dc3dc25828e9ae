package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayushnagarcodes/natours/internal/auth"
	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/event"
	"github.com/ayushnagarcodes/natours/internal/mailer"
	apperrors "github.com/ayushnagarcodes/natours/pkg/errors"
	pkgkafka "github.com/ayushnagarcodes/natours/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id, name, email string) (*domain.User, error) {
	args := m.Called(ctx, id, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockUserRepository) ClearResetToken(ctx context.Context, id, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

func (m *mockUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	args := m.Called(ctx, tokenHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, changedAt, now time.Time) error {
	args := m.Called(ctx, id, tokenHash, passwordHash, changedAt, now)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, changedAt)
	return args.Error(0)
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

// --- Mock Mailer ---

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Name() string { return "mock" }

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestAuthService(repo *mockUserRepository, mail *mockMailer) *AuthService {
	logger := newTestLogger()
	tokens := auth.NewTokenCodec("test-secret-key-for-testing", time.Hour)
	hasher := auth.NewPasswordHasher(4) // low cost for fast tests
	resets := NewResetTokenManager(repo, 10*time.Minute)
	return NewAuthService(repo, hasher, tokens, resets, mail, newTestEventProducer(),
		"http://localhost:8080/api/v1/users/reset-password", logger)
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func timePtr(ts time.Time) *time.Time { return &ts }

// --- Signup Tests ---

func TestSignup_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, token, err := svc.Signup(ctx, SignupInput{
		Name:            "Ayush Nagar",
		Email:           "Ayush@Example.com",
		Password:        "pass12345",
		PasswordConfirm: "pass12345",
	})

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ayush@example.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "pass12345", user.PasswordHash)
	assert.Nil(t, user.PasswordChangedAt)

	repo.AssertExpectations(t)
}

func TestSignup_RoleNeverAccepted(t *testing.T) {
	// SignupInput has no role field at all; every created user gets the
	// default role regardless of what the caller tries to smuggle in.
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.DefaultRole
	})).Return(nil)

	_, _, err := svc.Signup(ctx, SignupInput{
		Name:            "Mallory",
		Email:           "mallory@example.com",
		Password:        "pass12345",
		PasswordConfirm: "pass12345",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSignup_PasswordMismatch(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))

	user, token, err := svc.Signup(context.Background(), SignupInput{
		Name:            "Ayush",
		Email:           "ayush@example.com",
		Password:        "pass12345",
		PasswordConfirm: "different1",
	})

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_PasswordTooShort(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))

	_, _, err := svc.Signup(context.Background(), SignupInput{
		Name:            "Ayush",
		Email:           "ayush@example.com",
		Password:        "short1",
		PasswordConfirm: "short1",
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSignup_MalformedEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))

	_, _, err := svc.Signup(context.Background(), SignupInput{
		Name:            "Ayush",
		Email:           "not-an-email",
		Password:        "pass12345",
		PasswordConfirm: "pass12345",
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "ayush@example.com"))

	user, token, err := svc.Signup(ctx, SignupInput{
		Name:            "Ayush",
		Email:           "ayush@example.com",
		Password:        "pass12345",
		PasswordConfirm: "pass12345",
	})

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	stored := &domain.User{
		ID:           "user-1",
		Email:        "ayush@example.com",
		PasswordHash: hashForTest("pass12345"),
		Role:         domain.RoleUser,
		Active:       true,
	}
	repo.On("GetByEmail", ctx, "ayush@example.com").Return(stored, nil)

	user, token, err := svc.Login(ctx, "Ayush@Example.com ", "pass12345")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, token)
}

func TestLogin_UnknownEmailAndWrongPasswordIndistinguishable(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound)
	repo.On("GetByEmail", ctx, "ayush@example.com").Return(&domain.User{
		ID:           "user-1",
		Email:        "ayush@example.com",
		PasswordHash: hashForTest("pass12345"),
		Active:       true,
	}, nil)

	_, _, errUnknown := svc.Login(ctx, "ghost@example.com", "whatever1")
	_, _, errWrong := svc.Login(ctx, "ayush@example.com", "wrongpass1")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.ErrorIs(t, errUnknown, apperrors.ErrAuthentication)
	assert.ErrorIs(t, errWrong, apperrors.ErrAuthentication)
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockMailer))

	_, _, err := svc.Login(context.Background(), "", "pass12345")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, _, err = svc.Login(context.Background(), "ayush@example.com", "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// --- Authenticate Tests ---

func TestAuthenticate_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Role: domain.RoleGuide, Active: true}
	repo.On("GetByID", ctx, "user-1").Return(stored, nil)

	token, err := svc.tokens.Issue("user-1", time.Now())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, domain.RoleGuide, user.Role)
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockMailer))

	user, err := svc.Authenticate(context.Background(), "")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockMailer))

	user, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestAuthenticate_UserGone(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("GetByID", ctx, "user-1").Return(nil, apperrors.ErrNotFound)

	token, err := svc.tokens.Issue("user-1", time.Now())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestAuthenticate_StaleAfterPasswordChange(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	issuedAt := time.Now().Add(-time.Hour).Truncate(time.Second)
	changedAt := issuedAt.Add(30 * time.Minute)
	stored := &domain.User{ID: "user-1", Active: true, PasswordChangedAt: &changedAt}
	repo.On("GetByID", ctx, "user-1").Return(stored, nil)

	token, err := svc.tokens.Issue("user-1", issuedAt)
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestAuthenticate_TokenIssuedAfterChangeStillValid(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	changedAt := time.Now().Add(-time.Hour)
	stored := &domain.User{ID: "user-1", Active: true, PasswordChangedAt: &changedAt}
	repo.On("GetByID", ctx, "user-1").Return(stored, nil)

	token, err := svc.tokens.Issue("user-1", time.Now())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

// --- Password Reset Request Tests ---

func TestRequestPasswordReset_Success(t *testing.T) {
	repo := new(mockUserRepository)
	mail := new(mockMailer)
	svc := newTestAuthService(repo, mail)
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Email: "ayush@example.com", Active: true}
	repo.On("GetByEmail", ctx, "ayush@example.com").Return(stored, nil)
	repo.On("SetResetToken", ctx, "user-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	var sent mailer.Message
	mail.On("Send", ctx, mock.AnythingOfType("mailer.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mailer.Message) }).
		Return(nil)

	err := svc.RequestPasswordReset(ctx, "ayush@example.com")

	require.NoError(t, err)
	assert.Equal(t, "ayush@example.com", sent.To)
	assert.Contains(t, sent.Body, "http://localhost:8080/api/v1/users/reset-password/")
	repo.AssertExpectations(t)
	mail.AssertExpectations(t)
}

func TestRequestPasswordReset_StoresDigestNotSecret(t *testing.T) {
	repo := new(mockUserRepository)
	mail := new(mockMailer)
	svc := newTestAuthService(repo, mail)
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Email: "ayush@example.com", Active: true}
	repo.On("GetByEmail", ctx, "ayush@example.com").Return(stored, nil)

	var storedHash string
	repo.On("SetResetToken", ctx, "user-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { storedHash = args.Get(2).(string) }).
		Return(nil)

	var sent mailer.Message
	mail.On("Send", ctx, mock.AnythingOfType("mailer.Message")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(mailer.Message) }).
		Return(nil)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ayush@example.com"))

	// The emailed link carries the plaintext secret; the store only ever
	// sees its digest.
	require.NotEmpty(t, storedHash)
	assert.NotContains(t, sent.Body, storedHash)

	idx := strings.LastIndex(sent.Body, "/reset-password/")
	require.GreaterOrEqual(t, idx, 0)
	secret := strings.Fields(sent.Body[idx+len("/reset-password/"):])[0]
	assert.Equal(t, storedHash, auth.HashResetSecret(secret))
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	err := svc.RequestPasswordReset(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRequestPasswordReset_SendFailureRollsBack(t *testing.T) {
	repo := new(mockUserRepository)
	mail := new(mockMailer)
	svc := newTestAuthService(repo, mail)
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", Email: "ayush@example.com", Active: true}
	repo.On("GetByEmail", ctx, "ayush@example.com").Return(stored, nil)

	var storedHash string
	repo.On("SetResetToken", ctx, "user-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { storedHash = args.Get(2).(string) }).
		Return(nil)
	mail.On("Send", ctx, mock.AnythingOfType("mailer.Message")).Return(errors.New("smtp down"))
	repo.On("ClearResetToken", ctx, "user-1", mock.AnythingOfType("string")).Return(nil)

	err := svc.RequestPasswordReset(ctx, "ayush@example.com")

	assert.ErrorIs(t, err, apperrors.ErrInternal)
	repo.AssertCalled(t, "ClearResetToken", ctx, "user-1", storedHash)
}

// --- Password Reset Completion Tests ---

func TestCompletePasswordReset_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	secret := "a1b2c3"
	digest := auth.HashResetSecret(secret)
	stored := &domain.User{ID: "user-1", Email: "ayush@example.com", Active: true}

	repo.On("GetByResetToken", ctx, digest, mock.AnythingOfType("time.Time")).Return(stored, nil)
	repo.On("ConsumeResetToken", ctx, "user-1", digest, mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(nil)

	user, token, err := svc.CompletePasswordReset(ctx, secret, "newpass123", "newpass123")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.NotEmpty(t, token)
	repo.AssertExpectations(t)
}

func TestCompletePasswordReset_BackdatesChangeTimestamp(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	secret := "a1b2c3"
	digest := auth.HashResetSecret(secret)
	stored := &domain.User{ID: "user-1", Active: true}

	repo.On("GetByResetToken", ctx, digest, mock.AnythingOfType("time.Time")).Return(stored, nil)
	repo.On("ConsumeResetToken", ctx, "user-1", digest, mock.AnythingOfType("string"),
		mock.MatchedBy(func(changedAt time.Time) bool {
			// The recorded change sits a second before now so tokens minted
			// in the same second as the change cannot slip past the gate.
			return time.Since(changedAt) >= time.Second
		}), mock.AnythingOfType("time.Time")).Return(nil)

	_, _, err := svc.CompletePasswordReset(ctx, secret, "newpass123", "newpass123")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCompletePasswordReset_InvalidOrExpiredToken(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	repo.On("GetByResetToken", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrNotFound)

	user, token, err := svc.CompletePasswordReset(ctx, "bogus", "newpass123", "newpass123")

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestCompletePasswordReset_RacedConsumption(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	secret := "a1b2c3"
	digest := auth.HashResetSecret(secret)
	stored := &domain.User{ID: "user-1", Active: true}

	repo.On("GetByResetToken", ctx, digest, mock.AnythingOfType("time.Time")).Return(stored, nil)
	// Another request consumed the token between resolve and write.
	repo.On("ConsumeResetToken", ctx, "user-1", digest, mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(apperrors.ErrNotFound)

	user, token, err := svc.CompletePasswordReset(ctx, secret, "newpass123", "newpass123")

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
}

func TestCompletePasswordReset_WeakPassword(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))

	_, _, err := svc.CompletePasswordReset(context.Background(), "a1b2c3", "short", "short")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	repo.AssertNotCalled(t, "GetByResetToken", mock.Anything, mock.Anything, mock.Anything)
}

// --- Change Password Tests ---

func TestChangePassword_Success(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", PasswordHash: hashForTest("oldpass123"), Active: true}
	repo.On("GetByID", ctx, "user-1").Return(stored, nil)
	repo.On("UpdatePassword", ctx, "user-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	user, token, err := svc.ChangePassword(ctx, "user-1", "oldpass123", "newpass123", "newpass123")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user.PasswordChangedAt)
	assert.True(t, svc.hasher.Verify("newpass123", user.PasswordHash))
	repo.AssertExpectations(t)
}

func TestChangePassword_WrongCurrentPassword(t *testing.T) {
	repo := new(mockUserRepository)
	svc := newTestAuthService(repo, new(mockMailer))
	ctx := context.Background()

	stored := &domain.User{ID: "user-1", PasswordHash: hashForTest("oldpass123"), Active: true}
	repo.On("GetByID", ctx, "user-1").Return(stored, nil)

	user, token, err := svc.ChangePassword(ctx, "user-1", "wrongpass1", "newpass123", "newpass123")

	assert.Nil(t, user)
	assert.Empty(t, token)
	assert.ErrorIs(t, err, apperrors.ErrAuthentication)
	repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_MismatchedConfirmation(t *testing.T) {
	svc := newTestAuthService(new(mockUserRepository), new(mockMailer))

	_, _, err := svc.ChangePassword(context.Background(), "user-1", "oldpass123", "newpass123", "different1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
