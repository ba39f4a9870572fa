package services

import (
	"errors"
	"strconv"
	"strings"

	"bounty-market-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// GetByExternalID looks up the local mirror of a user.
func (s *UserService) GetByExternalID(externalUserID string) (*models.MarketUser, error) {
	var user models.MarketUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RequireRole fetches the user and checks the role gate in one step.
// check is models.UserRole.CanApply or CanPost.
func (s *UserService) RequireRole(externalUserID string, check func(models.UserRole) bool, action string) (*models.MarketUser, error) {
	user, err := s.GetByExternalID(externalUserID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, validationErr("user %s is banned from the marketplace", externalUserID)
	}
	if !check(user.Role) {
		return nil, validationErr("role %q may not %s", user.Role, action)
	}
	return user, nil
}

// SearchUsers searches within the local MarketUser table.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.MarketUser
	db := s.DB.Model(&models.MarketUser{}).Limit(limit)

	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	// Minimal response struct — don't expose internal mirror fields
	type UserSummary struct {
		ID             string          `json:"id"`
		ExternalUserID string          `json:"external_user_id"`
		Username       string          `json:"username"`
		Role           models.UserRole `json:"role"`
		Points         int64           `json:"points"`
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ID:             u.ID,
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			Role:           u.Role,
			Points:         u.Points,
		}
	}

	return c.JSON(res)
}
