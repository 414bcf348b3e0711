package handlers

import (
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/anjiri1684/skillhat/services"
	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	UserType string `json:"user_type" validate:"required,oneof=client worker"`

	Profession string  `json:"profession" validate:"required_if=UserType worker,max=100"`
	Bio        string  `json:"bio"`
	HourlyRate float64 `json:"hourly_rate" validate:"required_if=UserType worker,gte=0"`
	Location   string  `json:"location" validate:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        string         `json:"id"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Worker    *models.Worker `json:"worker,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func newUserResponse(account models.Account) UserResponse {
	user := account.Owner()
	resp := UserResponse{
		ID:        user.ID.String(),
		FullName:  user.FullName,
		Email:     user.Email,
		Role:      account.Role(),
		CreatedAt: user.CreatedAt,
	}
	if wa, ok := account.(models.WorkerAccount); ok {
		profile := wa.Profile
		resp.Worker = &profile
	}
	return resp
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	account, err := h.Accounts.Register(c.UserContext(), services.RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		UserType:   req.UserType,
		Profession: req.Profession,
		Bio:        req.Bio,
		HourlyRate: req.HourlyRate,
		Location:   req.Location,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newUserResponse(account))
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	token, account, err := h.Accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if apperrors.Is(err, apperrors.KindAuthorization) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": apperrors.Message(err)})
		}
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"token": token, "user": newUserResponse(account)})
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	account, err := h.Accounts.Account(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(newUserResponse(account))
}
