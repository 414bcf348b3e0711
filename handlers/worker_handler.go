package handlers

import (
	"github.com/anjiri1684/skillhat/services"
	"github.com/gofiber/fiber/v2"
)

type UpdateWorkerProfileRequest struct {
	Profession  *string  `json:"profession" validate:"omitempty,max=100"`
	Bio         *string  `json:"bio"`
	HourlyRate  *float64 `json:"hourly_rate" validate:"omitempty,gt=0"`
	Location    *string  `json:"location" validate:"omitempty,max=255"`
	IsAvailable *bool    `json:"is_available"`
}

type AddServiceRequest struct {
	Name            string  `json:"name" validate:"required,max=200"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,gt=0"`
}

func (h *Handler) UpdateWorkerProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req UpdateWorkerProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	worker, err := h.Accounts.UpdateWorkerProfile(c.UserContext(), userID, services.WorkerProfileUpdate{
		Profession:  req.Profession,
		Bio:         req.Bio,
		HourlyRate:  req.HourlyRate,
		Location:    req.Location,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(worker)
}

func (h *Handler) AddService(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req AddServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	service, err := h.Accounts.AddService(c.UserContext(), userID, services.ServiceInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

func (h *Handler) GetWorkerReviews(c *fiber.Ctx) error {
	workerID, ok := uuidParam(c, "workerId")
	if !ok {
		return badRequest(c, "Invalid worker ID")
	}
	reviews, err := h.Reviews.ListForWorker(c.UserContext(), workerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(reviews)
}
