package helpers

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/smancaringin/presensi/core"
	"github.com/smancaringin/presensi/core/user"
)

var (
	appName         string
	secretKey       []byte
	expirationDelta time.Duration

	// AppJWTConfig is the default JWT auth middleware config.
	AppJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
)

// InitAuth wires the JWT settings from config. Must run before the server
// registers any authed route.
func InitAuth(conf *core.Config) {
	appName = conf.AppName
	secretKey = []byte(conf.SecretKey)
	expirationDelta = conf.JWTExpirationDelta
	AppJWTConfig.SigningKey = secretKey
}

// Claims represents the authorization claims transmitted via a JWT. There is
// no user table: the token carries the whole identity.
type Claims struct {
	jwt.StandardClaims
	Name      string `json:"name"`
	ClassName string `json:"className,omitempty"`
	Role      string `json:"role"`
}

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   usr.Name,
			ExpiresAt: now.Add(expirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:      usr.Name,
		ClassName: usr.ClassID,
		Role:      string(usr.Role),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(AppJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(secretKey)
	if err != nil {
		return "", errTokenSigningFailed
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(AppJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// GetContextUser rebuilds the identity from the token claims.
func GetContextUser(ctx echo.Context) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	return user.User{
		Name:    claims.Name,
		ClassID: claims.ClassName,
		Role:    user.Role(claims.Role),
	}, nil
}

// AdminMiddleware only lets the admin portal through.
func AdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := GetContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.IsAdmin() {
				return ErrHttpForbidden
			}
			return next(ctx)
		}
	}
}
