package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anjiri1684/skillhat/apperrors"
	"github.com/anjiri1684/skillhat/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountService struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewAccountService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AccountService {
	return &AccountService{db: db, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, log: log}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Phone    string
	UserType string

	// worker accounts only
	Profession string
	Bio        string
	HourlyRate float64
	Location   string
}

// LoadAccount resolves a user id into a ClientAccount or WorkerAccount.
func LoadAccount(ctx context.Context, db *gorm.DB, userID uuid.UUID) (models.Account, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("account not found")
		}
		return nil, apperrors.NewInternalError("failed to load account", err)
	}

	var profile models.Worker
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return models.WorkerAccount{User: user, Profile: profile}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInternalError("failed to load worker profile", err)
	}
	return models.ClientAccount{User: user}, nil
}

func (s *AccountService) Account(ctx context.Context, userID uuid.UUID) (models.Account, error) {
	return LoadAccount(ctx, s.db, userID)
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}
	if in.UserType != models.RoleClient && in.UserType != models.RoleWorker {
		return nil, apperrors.NewValidationError("user_type must be client or worker")
	}
	if in.UserType == models.RoleWorker {
		if strings.TrimSpace(in.Profession) == "" {
			return nil, apperrors.NewValidationError("profession is required for workers")
		}
		if in.HourlyRate <= 0 {
			return nil, apperrors.NewValidationError("hourly_rate must be greater than zero")
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    email,
		Password: string(hashedPassword),
		Phone:    in.Phone,
		IsActive: true,
	}
	var profile *models.Worker

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflictError("a user with this email already exists")
		}
		if err := tx.Omit(clause.Associations).Create(&user).Error; err != nil {
			return err
		}
		if in.UserType != models.RoleWorker {
			return nil
		}

		profile = &models.Worker{
			UserID:      user.ID,
			Profession:  strings.TrimSpace(in.Profession),
			Bio:         in.Bio,
			HourlyRate:  in.HourlyRate,
			Location:    in.Location,
			IsAvailable: true,
		}
		return tx.Omit(clause.Associations).Create(profile).Error
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to create account", err)
	}

	s.log.Info("account registered", zap.String("user_id", user.ID.String()), zap.String("role", in.UserType))
	if profile != nil {
		return models.WorkerAccount{User: user, Profile: *profile}, nil
	}
	return models.ClientAccount{User: user}, nil
}

// Login checks the credentials and returns a signed token for the account.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, models.Account, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.NewAuthorizationError("invalid credentials")
		}
		return "", nil, apperrors.NewInternalError("failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperrors.NewAuthorizationError("invalid credentials")
	}
	if !user.IsActive {
		return "", nil, apperrors.NewAuthorizationError("account is disabled")
	}

	account, err := LoadAccount(ctx, s.db, user.ID)
	if err != nil {
		return "", nil, err
	}

	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    account.Role(),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to sign token", err)
	}
	return signed, account, nil
}

// WorkerProfileUpdate lists the profile columns a worker may change.
// Aggregates such as rating and total_jobs are not writable here.
type WorkerProfileUpdate struct {
	Profession  *string
	Bio         *string
	HourlyRate  *float64
	Location    *string
	IsAvailable *bool
}

func (u WorkerProfileUpdate) columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if u.Profession != nil {
		if strings.TrimSpace(*u.Profession) == "" {
			return nil, apperrors.NewValidationError("profession cannot be empty")
		}
		cols["profession"] = strings.TrimSpace(*u.Profession)
	}
	if u.Bio != nil {
		cols["bio"] = *u.Bio
	}
	if u.HourlyRate != nil {
		if *u.HourlyRate <= 0 {
			return nil, apperrors.NewValidationError("hourly_rate must be greater than zero")
		}
		cols["hourly_rate"] = *u.HourlyRate
	}
	if u.Location != nil {
		cols["location"] = *u.Location
	}
	if u.IsAvailable != nil {
		cols["is_available"] = *u.IsAvailable
	}
	return cols, nil
}

func (s *AccountService) UpdateWorkerProfile(ctx context.Context, userID uuid.UUID, upd WorkerProfileUpdate) (*models.Worker, error) {
	worker, err := s.workerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	cols, err := upd.columns()
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Worker{}).Where("id = ?", worker.ID).Updates(cols).Error; err != nil {
			return nil, apperrors.NewInternalError("failed to update worker profile", err)
		}
	}

	var updated models.Worker
	if err := s.db.WithContext(ctx).First(&updated, "id = ?", worker.ID).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to reload worker profile", err)
	}
	return &updated, nil
}

type ServiceInput struct {
	Name            string
	Description     string
	Price           float64
	DurationMinutes int
}

func (s *AccountService) AddService(ctx context.Context, userID uuid.UUID, in ServiceInput) (*models.Service, error) {
	worker, err := s.workerProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.NewValidationError("service name is required")
	}
	if in.Price <= 0 {
		return nil, apperrors.NewValidationError("price must be greater than zero")
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 60
	}

	service := models.Service{
		WorkerID:        worker.ID,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Price:           in.Price,
		DurationMinutes: in.DurationMinutes,
		IsActive:        true,
	}
	if err := s.db.WithContext(ctx).Create(&service).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to create service", err)
	}
	return &service, nil
}

func (s *AccountService) workerProfile(ctx context.Context, userID uuid.UUID) (*models.Worker, error) {
	account, err := LoadAccount(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	wa, ok := account.(models.WorkerAccount)
	if !ok {
		return nil, apperrors.NewAuthorizationError("only workers can manage a worker profile")
	}
	return &wa.Profile, nil
}
