package middleware

import (
	"errors"
	"time"

	"github.com/anjiri1684/logoped_crm/access"
	config "github.com/anjiri1684/logoped_crm/configs"
	"github.com/anjiri1684/logoped_crm/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const tokenTTL = 72 * time.Hour

// Protected accepts the session token from the Authorization header or the "token" cookie set
// at login, so both the dashboard forms and API clients pass through it.
func Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(config.Config("JWT_SECRET")),
		TokenLookup:  "header:Authorization,cookie:token",
		AuthScheme:   "Bearer",
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// IssueToken signs a session token for user.
func IssueToken(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Config("JWT_SECRET")))
}

func identityFromClaims(claims jwt.MapClaims) access.Identity {
	rawID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil || role == "" {
		return access.Identity{}
	}
	return access.Identity{UserID: id, Role: role}
}

// CurrentIdentity returns the caller verified by Protected, or the anonymous identity.
func CurrentIdentity(c *fiber.Ctx) access.Identity {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return access.Identity{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Identity{}
	}
	return identityFromClaims(claims)
}

// ParseToken verifies a raw token outside the HTTP middleware chain, e.g. the websocket auth
// message.
func ParseToken(raw string) (access.Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return access.Identity{}, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Identity{}, errors.New("invalid claims")
	}
	id := identityFromClaims(claims)
	if id.Anonymous() {
		return access.Identity{}, errors.New("token carries no identity")
	}
	return id, nil
}

// RequireRoles lets the request through only for the given roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch access.Decide(CurrentIdentity(c), access.Roles(roles...)) {
		case access.Allow:
			return c.Next()
		case access.DenyAnonymous:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
		default:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: insufficient role"})
		}
	}
}
