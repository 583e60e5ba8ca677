package middlewares

import (
	"crypto/subtle"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

func bearerToken(c *fiber.Ctx) (string, bool) {
	h := c.Get(authHeader)
	if h == "" || !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(bearerPrefix):])
	return raw, raw != ""
}

// RequireVerifySecret guards the verification endpoint with the shared
// secret the storefront backend holds. Configure either VERIFY_SECRET_HASH
// (a bcrypt hash, preferred so the plain secret never sits in the
// environment) or VERIFY_SECRET. Missing config is a server fault, not an
// auth failure.
func RequireVerifySecret() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secretHash := strings.TrimSpace(os.Getenv("VERIFY_SECRET_HASH"))
		secret := strings.TrimSpace(os.Getenv("VERIFY_SECRET"))
		if secretHash == "" && secret == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "server auth not configured",
			})
		}

		raw, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}

		if secretHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(raw)); err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
			}
		} else if subtle.ConstantTimeCompare([]byte(raw), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
		}

		return c.Next()
	}
}

// Claims is the JWT payload issued by the back office for its staff.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() ([]byte, error) {
	// Prefer JWT_SECRET_KEY, fallback to JWT_SECRET
	sec := os.Getenv("JWT_SECRET_KEY")
	if strings.TrimSpace(sec) == "" {
		sec = os.Getenv("JWT_SECRET")
	}
	if strings.TrimSpace(sec) == "" {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET_KEY or JWT_SECRET)")
	}
	return []byte(sec), nil
}

// IsAuthenticatedHeader validates a back-office Bearer token, enforces
// HS256, and populates c.Locals("userID","role"). Used on the diagnostic
// log-listing routes.
func IsAuthenticatedHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret, err := jwtSecret()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "server auth not configured",
			})
		}

		raw, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		var claims Claims
		token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		if strings.TrimSpace(claims.Subject) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing subject"})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// GenerateJWT signs a new HS256 token for the given user, expiring in 24h.
// Kept for the back office's local tooling and the tests.
func GenerateJWT(userID, role string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
