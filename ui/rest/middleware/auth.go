package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/utils"
)

// OwnerIDLocal is the fiber locals key the owner middleware populates.
const OwnerIDLocal = "ownerID"

// RequireOwner extracts the caller identity from the X-Owner-ID header and
// stores it in locals for the handlers. Identity comes from the gateway in
// front of this service; requests without it are rejected.
func RequireOwner() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ownerID := ctx.Get("X-Owner-ID")
		if ownerID == "" {
			return ctx.Status(401).JSON(utils.ResponseData{
				Status:  401,
				Code:    "UNAUTHORIZED",
				Message: "X-Owner-ID header is required",
			})
		}

		ctx.Locals(OwnerIDLocal, ownerID)
		return ctx.Next()
	}
}

// OwnerID reads the owner identity set by RequireOwner.
func OwnerID(ctx *fiber.Ctx) string {
	ownerID, _ := ctx.Locals(OwnerIDLocal).(string)
	return ownerID
}
