package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/cookgpt-backend/internal/data/repos"
	types "github.com/yungbote/cookgpt-backend/internal/domain"
	"github.com/yungbote/cookgpt-backend/internal/pkg/dbctx"
	"github.com/yungbote/cookgpt-backend/internal/platform/apierr"
	"github.com/yungbote/cookgpt-backend/internal/platform/ctxutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrUserNotFound     = errors.New("User does not exist")
	ErrBadCredentials   = errors.New("Cannot authenticate")
	ErrUsernameTaken    = errors.New("username is taken")
	ErrEmailTaken       = errors.New("email is taken")
	ErrTokenInvalid     = errors.New("Token verification failed")
	ErrTokenWrongType   = errors.New("wrong token type")
	ErrTokenInactive    = errors.New("Token has been revoked")
	ErrCannotDeleteUser = errors.New("Cannot delete user")
)

type AuthConfig struct {
	Secret       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	AccessLeeway time.Duration
	// DefaultMaxChatCost is the budget given to new users.
	DefaultMaxChatCost int
}

// Claims are the JWT claims of both token types. ID is the token row id.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type SignupInput struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type AuthInfo struct {
	UserID       uuid.UUID `json:"user_id"`
	UserName     string    `json:"user_name"`
	AToken       string    `json:"atoken"`
	ATokenExpiry time.Time `json:"atoken_expiry"`
	RToken       string    `json:"rtoken"`
	RTokenExpiry time.Time `json:"rtoken_expiry"`
	UserType     string    `json:"user_type"`
	AuthType     string    `json:"auth_type"`
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) error
	Login(ctx context.Context, login, password string) (*AuthInfo, error)
	Refresh(ctx context.Context) (*AuthInfo, error)
	Logout(ctx context.Context) error
	// Authenticate verifies tokenString as a token of tokenType and returns
	// ctx carrying the caller.
	Authenticate(ctx context.Context, tokenString, tokenType string) (context.Context, error)
}

type authService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	tokens repos.UserTokenRepo
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, tokens repos.UserTokenRepo, cfg AuthConfig) AuthService {
	return &authService{
		db:     db,
		log:    log.With("service", "AuthService"),
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (as *authService) Signup(ctx context.Context, in SignupInput) error {
	first, last, err := splitName(in.FirstName)
	if err != nil {
		return apierr.Unprocessable("invalid_name", err)
	}
	if strings.TrimSpace(in.LastName) != "" {
		last = strings.TrimSpace(in.LastName)
		if err := validateName(last, "Last Name"); err != nil {
			return apierr.Unprocessable("invalid_name", err)
		}
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateUsername(in.Username); err != nil {
		return apierr.Unprocessable("invalid_username", err)
	}
	if err := validateEmail(in.Email); err != nil {
		return apierr.Unprocessable("invalid_email", err)
	}
	if err := validatePassword(in.Password); err != nil {
		return apierr.Unprocessable("invalid_password", err)
	}

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := checkAvailable(dbc, as.users, in.Username, in.Email, uuid.Nil); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u := &types.User{
			FirstName:   first,
			LastName:    last,
			Username:    in.Username,
			Email:       in.Email,
			Password:    string(hash),
			UserType:    types.UserTypeCook,
			MaxChatCost: as.cfg.DefaultMaxChatCost,
		}
		if _, err := as.users.Create(dbc, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		as.log.Info("User signed up", "user_id", u.ID)
		return nil
	})
}

func checkAvailable(dbc dbctx.Context, users repos.UserRepo, username, email string, exceptID uuid.UUID) error {
	if username != "" {
		taken, err := users.UsernameTaken(dbc, username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Unprocessable("username_taken", ErrUsernameTaken)
		}
	}
	if email != "" {
		taken, err := users.EmailTaken(dbc, email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Unprocessable("email_taken", ErrEmailTaken)
		}
	}
	return nil
}

// Login treats a login containing "@" as an email and anything else as a
// username. A still-fresh active token is handed back instead of minting a
// new pair.
func (as *authService) Login(ctx context.Context, login, password string) (*AuthInfo, error) {
	dbc := dbctx.Context{Ctx: ctx}
	login = strings.TrimSpace(login)
	var (
		u   *types.User
		err error
	)
	if strings.Contains(login, "@") {
		u, err = as.users.GetByEmail(dbc, strings.ToLower(login))
	} else {
		u, err = as.users.GetByUsername(dbc, login)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", ErrUserNotFound)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, apierr.Unauthorized("bad_credentials", ErrBadCredentials)
	}

	tok, err := as.requestToken(dbc, u)
	if err != nil {
		return nil, err
	}
	as.log.Info("User logged in", "user_id", u.ID, "token_id", tok.ID)
	return authInfo(u, tok), nil
}

func (as *authService) requestToken(dbc dbctx.Context, u *types.User) (*types.UserToken, error) {
	usable, err := as.tokens.ListUsableByUser(dbc, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	now := as.now()
	for _, t := range usable {
		if !t.AccessExpiresAt.Add(-as.cfg.AccessLeeway).Before(now) {
			return t, nil
		}
	}
	return as.createToken(dbc, u.ID)
}

func (as *authService) createToken(dbc dbctx.Context, userID uuid.UUID) (*types.UserToken, error) {
	now := as.now()
	t := &types.UserToken{
		ID:               uuid.New(),
		UserID:           userID,
		AccessExpiresAt:  now.Add(as.cfg.AccessTTL),
		RefreshExpiresAt: now.Add(as.cfg.RefreshTTL),
		Active:           true,
	}
	var err error
	if t.AccessToken, err = as.sign(userID, t.ID, TokenTypeAccess, now, t.AccessExpiresAt); err != nil {
		return nil, err
	}
	if t.RefreshToken, err = as.sign(userID, t.ID, TokenTypeRefresh, now, t.RefreshExpiresAt); err != nil {
		return nil, err
	}
	if _, err := as.tokens.Create(dbc, t); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return t, nil
}

func (as *authService) sign(userID, jti uuid.UUID, typ string, issued, expires time.Time) (string, error) {
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return s, nil
}

// Refresh mints a new access token for the refresh token's row. The jti
// is kept and the stored access token replaced, so the previous access
// token stops verifying.
func (as *authService) Refresh(ctx context.Context) (*AuthInfo, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenType != TokenTypeRefresh {
		return nil, apierr.Unauthorized("unauthorized", ErrTokenWrongType)
	}
	dbc := dbctx.Context{Ctx: ctx}
	tok, err := as.tokens.GetByID(dbc, rd.TokenID)
	if err != nil {
		return nil, err
	}
	if !tok.Usable() {
		return nil, apierr.Unauthorized("token_inactive", ErrTokenInactive)
	}
	u, err := as.users.GetByID(dbc, tok.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apierr.Unauthorized("unauthorized", ErrUserNotFound)
	}

	now := as.now()
	expires := now.Add(as.cfg.AccessTTL)
	access, err := as.sign(u.ID, tok.ID, TokenTypeAccess, now, expires)
	if err != nil {
		return nil, err
	}
	if err := as.tokens.UpdateFields(dbc, tok.ID, map[string]interface{}{
		"access_token":      access,
		"access_expires_at": expires,
	}); err != nil {
		return nil, fmt.Errorf("rotate access token: %w", err)
	}
	tok.AccessToken, tok.AccessExpiresAt = access, expires
	as.log.Info("Access token refreshed", "user_id", u.ID, "token_id", tok.ID)
	return authInfo(u, tok), nil
}

func (as *authService) Logout(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil {
		return apierr.Unauthorized("unauthorized", errUnauthenticated)
	}
	if err := as.tokens.UpdateFields(dbctx.Context{Ctx: ctx}, rd.TokenID, map[string]interface{}{"active": false}); err != nil {
		return fmt.Errorf("deactivate token: %w", err)
	}
	as.log.Info("User logged out", "user_id", rd.UserID, "token_id", rd.TokenID)
	return nil
}

func (as *authService) Authenticate(ctx context.Context, tokenString, tokenType string) (context.Context, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil || !parsed.Valid {
		return ctx, apierr.Unauthorized("token_invalid", ErrTokenInvalid)
	}
	if claims.Type != tokenType {
		return ctx, apierr.Unauthorized("token_wrong_type", ErrTokenWrongType)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, apierr.Unauthorized("token_invalid", ErrTokenInvalid)
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return ctx, apierr.Unauthorized("token_invalid", ErrTokenInvalid)
	}

	tok, err := as.tokens.GetByID(dbctx.Context{Ctx: ctx}, jti)
	if err != nil {
		return ctx, err
	}
	if tok == nil || tok.UserID != userID {
		return ctx, apierr.Unauthorized("token_invalid", ErrTokenInvalid)
	}
	if !tok.Usable() {
		return ctx, apierr.Unauthorized("token_inactive", ErrTokenInactive)
	}
	stored := tok.AccessToken
	if tokenType == TokenTypeRefresh {
		stored = tok.RefreshToken
	}
	if stored != tokenString {
		return ctx, apierr.Unauthorized("token_rotated", ErrTokenInactive)
	}

	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:      userID,
		TokenID:     jti,
		TokenString: tokenString,
		TokenType:   tokenType,
	}), nil
}

func authInfo(u *types.User, t *types.UserToken) *AuthInfo {
	return &AuthInfo{
		UserID:       u.ID,
		UserName:     u.Name(),
		AToken:       t.AccessToken,
		ATokenExpiry: t.AccessExpiresAt,
		RToken:       t.RefreshToken,
		RTokenExpiry: t.RefreshExpiresAt,
		UserType:     u.UserType,
		AuthType:     "Bearer",
	}
}
