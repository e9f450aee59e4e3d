package middleware

import (
	"errors"
	"strings"

	"concert_manager/model"
	"concert_manager/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Protected parses the bearer token (header or cookie) and stores a
// normalized Actor in locals. Upstream tokens are inconsistent about the
// id claim name; both spellings land on Actor.UserID here.
func Protected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")
		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", errors.New("no token"))
		}

		jwtToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !jwtToken.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token", err)
		}

		claims, ok := jwtToken.Claims.(jwt.MapClaims)
		if !ok {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token claims", nil)
		}

		c.Locals("actor", ActorFromClaims(claims))
		return c.Next()
	}
}

// ActorFromClaims builds the single identity value every handler uses.
func ActorFromClaims(claims jwt.MapClaims) model.Actor {
	actor := model.Actor{Role: model.RoleUser}

	// userId and _id are the same identity under different names
	for _, key := range []string{"userId", "_id", "sub"} {
		if v, ok := claims[key]; ok {
			if id, ok := asUint(v); ok {
				actor.UserID = id
				break
			}
		}
	}
	if email, ok := claims["email"].(string); ok {
		actor.Email = email
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		actor.Role = role
	}
	if system, ok := claims["isSystem"].(bool); ok {
		actor.IsSystem = system
	}
	return actor
}

func asUint(v any) (uint, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

// GetActor pulls the Actor stored by Protected.
func GetActor(c *fiber.Ctx) (model.Actor, bool) {
	actor, ok := c.Locals("actor").(model.Actor)
	return actor, ok
}

// RequireRole gates an endpoint to the given roles (admin always passes).
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing token", nil)
		}
		if actor.Role == model.RoleAdmin {
			return c.Next()
		}
		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient role", nil)
	}
}
