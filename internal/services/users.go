package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"minecarbon/internal/apperr"
	"minecarbon/internal/models"
)

const userColumns = `id, username, password_hash, is_admin, created_at`

type UserService struct {
	db   *sqlx.DB
	cost int
}

func NewUserService(db *sqlx.DB) *UserService {
	return &UserService{db: db, cost: bcrypt.DefaultCost}
}

// Register stores a new user with a bcrypt hash of password.
func (s *UserService) Register(ctx context.Context, username, password string, isAdmin bool) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, apperr.Validationf("username and password are required")
	}
	if len(password) > 72 {
		return models.User{}, apperr.Validationf("password must be at most 72 bytes")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, errors.Wrap(err, "hash password")
	}

	u := models.User{
		Username:     username,
		PasswordHash: string(hashed),
		IsAdmin:      isAdmin,
		CreatedAt:    stamp(time.Now()),
	}
	q := s.db.Rebind(`INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	err = s.db.QueryRowxContext(ctx, q, u.Username, u.PasswordHash, u.IsAdmin, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.Conflictf("username already exists")
		}
		return models.User{}, errors.Wrap(err, "insert user")
	}
	return u, nil
}

// Authenticate checks username and password. Unknown users and wrong passwords
// produce the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, apperr.Validationf("username and password are required")
	}

	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.Unauthorizedf("invalid username or password")
		}
		return models.User{}, errors.Wrap(err, "select user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.Unauthorizedf("invalid username or password")
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.NotFoundf("user not found")
		}
		return models.User{}, errors.Wrap(err, "select user")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}
