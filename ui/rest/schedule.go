package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"

	domainSchedule "github.com/TMEades/solocreatorhub-ai-sub000/domains/schedule"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/utils"
)

type Schedule struct {
	Service domainSchedule.ISchedulerUsecase
}

func InitRestSchedule(app fiber.Router, service domainSchedule.ISchedulerUsecase) Schedule {
	rest := Schedule{Service: service}
	app.Post("/schedules/:id/ensure-next", rest.EnsureNext)
	app.Patch("/schedules/:id/status", rest.UpdateStatus)
	app.Get("/schedules/due", rest.ListDue)
	return rest
}

// EnsureNext materializes the successor of a recurring occurrence. The
// operation is idempotent, so retries and concurrent calls are safe.
func (controller *Schedule) EnsureNext(c *fiber.Ctx) error {
	err := controller.Service.EnsureNextOccurrence(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success ensure next occurrence",
	})
}

// UpdateStatus records a dispatcher transition on a single occurrence row.
func (controller *Schedule) UpdateStatus(c *fiber.Ctx) error {
	var request struct {
		Status domainSchedule.ScheduledPostStatus `json:"status"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "Invalid request body",
		})
	}

	err := controller.Service.UpdateStatus(c.UserContext(), c.Params("id"), request.Status)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update schedule status",
	})
}

func (controller *Schedule) ListDue(c *fiber.Ctx) error {
	before := time.Now().UTC()
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(400).JSON(utils.ResponseData{
				Status:  400,
				Code:    "BAD_REQUEST",
				Message: "before must be an RFC3339 timestamp",
			})
		}
		before = parsed
	}

	rows, err := controller.Service.ListDue(c.UserContext(), before)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch due schedules",
		Results: rows,
	})
}
