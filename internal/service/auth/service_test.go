package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/mocks"
	"blood-donation/internal/repository"
)

type fixture struct {
	svc       Service
	users     *mocks.UserRepository
	hospitals *mocks.HospitalRepository
	admins    *mocks.AdminRepository
	sessions  *mocks.SessionRepository
}

func newFixture() *fixture {
	f := &fixture{
		users:     new(mocks.UserRepository),
		hospitals: new(mocks.HospitalRepository),
		admins:    new(mocks.AdminRepository),
		sessions:  new(mocks.SessionRepository),
	}
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute, JWTRefreshExpiry: time.Hour}
	f.svc = NewService(f.users, f.hospitals, f.admins, f.sessions, nil, cfg, zap.NewNop())
	return f
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture()
		bt := domain.BloodType("o−")
		f.users.On("ExistsByEmail", ctx, "ann@example.com").Return(false, nil).Once()
		f.users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "ann@example.com" && *u.BloodType == domain.BloodTypeONeg && u.PasswordHash != "secret123"
		})).Return(nil).Once()
		f.sessions.On("Create", ctx, mock.MatchedBy(func(s *repository.Session) bool {
			return s.ActorKind == domain.ActorUser
		})).Return(nil).Once()

		user, tokens, err := f.svc.Register(ctx, domain.CreateUserInput{
			Email: " Ann@Example.com ", Password: "secret123", FullName: "Ann", BloodType: &bt,
		})

		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", user.Email)
		require.NotNil(t, tokens)

		claims, err := f.svc.ValidateAccessToken(tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, domain.ActorUser, claims.Kind)
		assert.Equal(t, user.ID, claims.Actor().ID)
		f.users.AssertExpectations(t)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		f := newFixture()
		f.users.On("ExistsByEmail", ctx, "ann@example.com").Return(true, nil).Once()

		_, _, err := f.svc.Register(ctx, domain.CreateUserInput{Email: "ann@example.com", Password: "secret123", FullName: "Ann"})

		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("Short password", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.svc.Register(ctx, domain.CreateUserInput{Email: "ann@example.com", Password: "short", FullName: "Ann"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin_Hospital(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	hospital := &domain.Hospital{
		ID: uuid.New(), Username: "general", Name: "General", Email: "g@example.com",
		PasswordHash: hash(t, "hospital-pass"), IsActive: true,
	}
	f.hospitals.On("GetByUsername", ctx, "general").Return(hospital, nil)
	f.sessions.On("Create", ctx, mock.Anything).Return(nil)

	profile, tokens, err := f.svc.Login(ctx, domain.LoginInput{Identifier: "general", Password: "hospital-pass", Kind: domain.ActorHospital})
	require.NoError(t, err)
	assert.Equal(t, hospital, profile.Hospital)

	claims, err := f.svc.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	actor := claims.Actor()
	assert.True(t, actor.OwnsHospital(hospital.ID))
	assert.Equal(t, "general", actor.Username)

	_, _, err = f.svc.Login(ctx, domain.LoginInput{Identifier: "general", Password: "wrong", Kind: domain.ActorHospital})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownAndInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil)
	f.users.On("GetByEmail", ctx, "off@example.com").Return(&domain.User{
		ID: uuid.New(), Email: "off@example.com", PasswordHash: hash(t, "password1"), IsActive: false,
	}, nil)

	_, _, err := f.svc.Login(ctx, domain.LoginInput{Identifier: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, domain.LoginInput{Identifier: "off@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrAccountInactive)

	_, _, err = f.svc.Login(ctx, domain.LoginInput{Identifier: "x", Password: "x", Kind: "robot"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRefreshToken_RotatesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	admin := &domain.Admin{ID: uuid.New(), Email: "root@example.com", FullName: "Root"}
	session := &repository.Session{ID: uuid.New(), ActorKind: domain.ActorAdmin, ActorID: admin.ID}

	f.sessions.On("GetByTokenHash", ctx, hashToken("refresh-1")).Return(session, nil).Once()
	f.admins.On("GetByID", ctx, admin.ID).Return(admin, nil).Once()
	f.sessions.On("Revoke", ctx, session.ID).Return(nil).Once()
	f.sessions.On("Create", ctx, mock.Anything).Return(nil).Once()

	tokens, err := f.svc.RefreshToken(ctx, "refresh-1")

	require.NoError(t, err)
	assert.NotEqual(t, "refresh-1", tokens.RefreshToken)
	claims, err := f.svc.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.Actor().IsAdmin())
	f.sessions.AssertExpectations(t)
}

func TestRefreshToken_Unknown(t *testing.T) {
	f := newFixture()
	f.sessions.On("GetByTokenHash", mock.Anything, mock.Anything).Return(nil, nil).Once()

	_, err := f.svc.RefreshToken(context.Background(), "nope")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_RejectsForeignSignature(t *testing.T) {
	f := newFixture()
	other := NewService(nil, nil, nil, new(mocks.SessionRepository), nil,
		&config.Config{JWTSecret: "other", JWTAccessExpiry: time.Minute}, zap.NewNop()).(*service)
	other.sessionRepo.(*mocks.SessionRepository).On("Create", mock.Anything, mock.Anything).Return(nil)

	tokens, err := other.generateTokenPair(context.Background(), domain.UserActor(uuid.New(), "a@example.com"))
	require.NoError(t, err)

	_, err = f.svc.ValidateAccessToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateHospital_AdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	input := domain.CreateHospitalInput{Username: "city", Name: "City", Email: "city@example.com", Password: "password1"}

	_, err := f.svc.CreateHospital(ctx, domain.UserActor(uuid.New(), "u@example.com"), input)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.hospitals.On("GetByUsername", ctx, "city").Return(nil, nil).Once()
	f.hospitals.On("Create", ctx, mock.AnythingOfType("*domain.Hospital")).Return(nil).Once()

	h, err := f.svc.CreateHospital(ctx, domain.AdminActor(uuid.New(), "root@example.com"), input)
	require.NoError(t, err)
	assert.True(t, h.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte("password1")))
}
