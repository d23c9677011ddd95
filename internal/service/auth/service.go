package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/email"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAccountInactive    = errors.New("account is inactive")
)

type Service interface {
	Register(ctx context.Context, input domain.CreateUserInput) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, input domain.LoginInput) (*domain.Profile, *domain.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(token string) (*Claims, error)
	GetProfile(ctx context.Context, actor domain.Actor) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, input domain.UpdateUserInput) (*domain.User, error)
	CreateHospital(ctx context.Context, actor domain.Actor, input domain.CreateHospitalInput) (*domain.Hospital, error)
}

type Claims struct {
	ActorID  uuid.UUID        `json:"actor_id"`
	Kind     domain.ActorKind `json:"kind"`
	Email    string           `json:"email,omitempty"`
	Username string           `json:"username,omitempty"`
	Name     string           `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Actor() domain.Actor {
	return domain.Actor{Kind: c.Kind, ID: c.ActorID, Email: c.Email, Username: c.Username, Name: c.Name}
}

type service struct {
	userRepo     repository.UserRepository
	hospitalRepo repository.HospitalRepository
	adminRepo    repository.AdminRepository
	sessionRepo  repository.SessionRepository
	emailService email.Service
	cfg          *config.Config
	logger       *zap.Logger
}

func NewService(
	userRepo repository.UserRepository,
	hospitalRepo repository.HospitalRepository,
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	emailService email.Service,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	return &service{
		userRepo:     userRepo,
		hospitalRepo: hospitalRepo,
		adminRepo:    adminRepo,
		sessionRepo:  sessionRepo,
		emailService: emailService,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *service) Register(ctx context.Context, input domain.CreateUserInput) (*domain.User, *domain.TokenPair, error) {
	emailAddr := strings.TrimSpace(strings.ToLower(input.Email))
	if _, err := mail.ParseAddress(emailAddr); err != nil {
		return nil, nil, domain.InvalidInput("invalid email address")
	}
	if len(input.Password) < 8 {
		return nil, nil, domain.InvalidInput("password must be at least 8 characters")
	}
	if len(strings.TrimSpace(input.FullName)) < 2 {
		return nil, nil, domain.InvalidInput("full_name must be at least 2 characters")
	}

	var bloodType *domain.BloodType
	if input.BloodType != nil && *input.BloodType != "" {
		bt, err := domain.ParseBloodType(string(*input.BloodType))
		if err != nil {
			return nil, nil, err
		}
		bloodType = &bt
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(input.FullName),
		BloodType:    bloodType,
		Phone:        input.Phone,
		Address:      input.Address,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	if s.emailService != nil {
		go func() {
			if err := s.emailService.SendRegistrationEmail(context.Background(), user.Email, user.FullName); err != nil {
				s.logger.Warn("failed to send registration email", zap.String("user_id", user.ID.String()), zap.Error(err))
			}
		}()
	}

	tokens, err := s.generateTokenPair(ctx, domain.Actor{
		Kind: domain.ActorUser, ID: user.ID, Email: user.Email, Name: user.FullName,
	})
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login authenticates users and admins by email and hospitals by username.
func (s *service) Login(ctx context.Context, input domain.LoginInput) (*domain.Profile, *domain.TokenPair, error) {
	kind := input.Kind
	if kind == "" {
		kind = domain.ActorUser
	}

	var (
		profile *domain.Profile
		actor   domain.Actor
		hash    string
		active  = true
	)

	switch kind {
	case domain.ActorUser:
		user, err := s.userRepo.GetByEmail(ctx, input.Identifier)
		if err != nil {
			return nil, nil, err
		}
		if user == nil {
			return nil, nil, ErrInvalidCredentials
		}
		profile = &domain.Profile{Kind: kind, User: user}
		actor = domain.Actor{Kind: kind, ID: user.ID, Email: user.Email, Name: user.FullName}
		hash, active = user.PasswordHash, user.IsActive
	case domain.ActorHospital:
		hospital, err := s.hospitalRepo.GetByUsername(ctx, input.Identifier)
		if err != nil {
			return nil, nil, err
		}
		if hospital == nil {
			return nil, nil, ErrInvalidCredentials
		}
		profile = &domain.Profile{Kind: kind, Hospital: hospital}
		actor = domain.Actor{Kind: kind, ID: hospital.ID, Email: hospital.Email, Username: hospital.Username, Name: hospital.Name}
		hash, active = hospital.PasswordHash, hospital.IsActive
	case domain.ActorAdmin:
		admin, err := s.adminRepo.GetByEmail(ctx, input.Identifier)
		if err != nil {
			return nil, nil, err
		}
		if admin == nil {
			return nil, nil, ErrInvalidCredentials
		}
		profile = &domain.Profile{Kind: kind, Admin: admin}
		actor = domain.Actor{Kind: kind, ID: admin.ID, Email: admin.Email, Name: admin.FullName}
		hash = admin.PasswordHash
	default:
		return nil, nil, domain.InvalidInput("unknown account kind %q", string(kind))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !active {
		return nil, nil, ErrAccountInactive
	}

	tokens, err := s.generateTokenPair(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	return profile, tokens, nil
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	actor, err := s.loadActor(ctx, session.ActorKind, session.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil {
		return nil, err
	}

	return s.generateTokenPair(ctx, actor)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, session.ID)
}

func (s *service) loadActor(ctx context.Context, kind domain.ActorKind, id uuid.UUID) (domain.Actor, error) {
	profile, err := s.GetProfile(ctx, domain.Actor{Kind: kind, ID: id})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, ErrInvalidToken
	}
	if err != nil {
		return domain.Actor{}, err
	}

	switch {
	case profile.User != nil:
		if !profile.User.IsActive {
			return domain.Actor{}, ErrAccountInactive
		}
		return domain.Actor{Kind: kind, ID: id, Email: profile.User.Email, Name: profile.User.FullName}, nil
	case profile.Hospital != nil:
		if !profile.Hospital.IsActive {
			return domain.Actor{}, ErrAccountInactive
		}
		h := profile.Hospital
		return domain.Actor{Kind: kind, ID: id, Email: h.Email, Username: h.Username, Name: h.Name}, nil
	default:
		return domain.Actor{Kind: kind, ID: id, Email: profile.Admin.Email, Name: profile.Admin.FullName}, nil
	}
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Kind.IsValid() {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *service) GetProfile(ctx context.Context, actor domain.Actor) (*domain.Profile, error) {
	profile := &domain.Profile{Kind: actor.Kind}
	var found bool

	switch actor.Kind {
	case domain.ActorUser:
		user, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		profile.User, found = user, user != nil
	case domain.ActorHospital:
		hospital, err := s.hospitalRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		profile.Hospital, found = hospital, hospital != nil
	case domain.ActorAdmin:
		admin, err := s.adminRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		profile.Admin, found = admin, admin != nil
	}

	if !found {
		return nil, domain.ErrNotFound
	}
	return profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, actor domain.Actor, input domain.UpdateUserInput) (*domain.User, error) {
	if !actor.IsUser() {
		return nil, domain.ErrForbidden
	}
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	if input.FullName != nil {
		if len(strings.TrimSpace(*input.FullName)) < 2 {
			return nil, domain.InvalidInput("full_name must be at least 2 characters")
		}
		user.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.BloodType != nil {
		bt, err := domain.ParseBloodType(string(*input.BloodType))
		if err != nil {
			return nil, err
		}
		user.BloodType = &bt
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.Address != nil {
		user.Address = input.Address
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) CreateHospital(ctx context.Context, actor domain.Actor, input domain.CreateHospitalInput) (*domain.Hospital, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	username := strings.TrimSpace(input.Username)
	if username == "" || strings.TrimSpace(input.Name) == "" {
		return nil, domain.InvalidInput("username and name are required")
	}
	if len(input.Password) < 8 {
		return nil, domain.InvalidInput("password must be at least 8 characters")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, domain.InvalidInput("invalid email address")
	}

	existing, err := s.hospitalRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	hospital := &domain.Hospital{
		ID:           uuid.New(),
		Username:     username,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hashedPassword),
		Location:     input.Location,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if err := s.hospitalRepo.Create(ctx, hospital); err != nil {
		return nil, err
	}
	return hospital, nil
}

func (s *service) generateTokenPair(ctx context.Context, actor domain.Actor) (*domain.TokenPair, error) {
	now := time.Now()
	accessClaims := &Claims{
		ActorID:  actor.ID,
		Kind:     actor.Kind,
		Email:    actor.Email,
		Username: actor.Username,
		Name:     actor.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTAccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   actor.ID.String(),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshTokenRaw := uuid.New().String()
	session := &repository.Session{
		ID:        uuid.New(),
		ActorKind: actor.Kind,
		ActorID:   actor.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: now.Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
