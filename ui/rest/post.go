package rest

import (
	"github.com/gofiber/fiber/v2"

	domainPost "github.com/TMEades/solocreatorhub-ai-sub000/domains/post"
	"github.com/TMEades/solocreatorhub-ai-sub000/pkg/utils"
	"github.com/TMEades/solocreatorhub-ai-sub000/ui/rest/middleware"
)

type Post struct {
	Service domainPost.IPostUsecase
}

func InitRestPost(app fiber.Router, service domainPost.IPostUsecase) Post {
	rest := Post{Service: service}
	app.Post("/posts", rest.Create)
	app.Get("/posts", rest.List)
	app.Get("/posts/:id", rest.Get)
	app.Put("/posts/:id", rest.Update)
	app.Delete("/posts/:id", rest.Delete)
	return rest
}

func (controller *Post) Create(c *fiber.Ctx) error {
	var request domainPost.CreatePostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	view, err := controller.Service.Create(c.UserContext(), middleware.OwnerID(c), request)
	utils.PanicIfNeeded(err)

	return c.Status(201).JSON(utils.ResponseData{
		Status:  201,
		Code:    "CREATED",
		Message: "Success create post",
		Results: view,
	})
}

func (controller *Post) Get(c *fiber.Ctx) error {
	view, err := controller.Service.Get(c.UserContext(), middleware.OwnerID(c), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch post",
		Results: view,
	})
}

func (controller *Post) Update(c *fiber.Ctx) error {
	var request domainPost.UpdatePostRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	view, err := controller.Service.Update(c.UserContext(), middleware.OwnerID(c), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update post",
		Results: view,
	})
}

func (controller *Post) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), middleware.OwnerID(c), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete post",
	})
}

func (controller *Post) List(c *fiber.Ctx) error {
	request := domainPost.ListPostsRequest{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 10),
	}

	response, err := controller.Service.List(c.UserContext(), middleware.OwnerID(c), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch posts",
		Results: response,
	})
}
