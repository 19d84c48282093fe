package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	pkgError "github.com/TMEades/solocreatorhub-ai-sub000/pkg/error"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/utils"
)

// Recovery converts panics raised through utils.PanicIfNeeded into JSON error
// responses. Typed errors keep their own status code and error code; anything
// else surfaces as a 500.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			err := recover()
			if err != nil {
				var res utils.ResponseData
				res.Status = 500
				res.Code = "INTERNAL_SERVER_ERROR"
				res.Message = fmt.Sprintf("%v", err)

				logrus.Errorf("Panic recovered in middleware: %v", err)

				genericError, isGenericError := err.(pkgError.GenericError)
				if isGenericError {
					res.Status = genericError.StatusCode()
					res.Code = genericError.ErrCode()
					res.Message = genericError.Error()
				}

				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}
