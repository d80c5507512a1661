package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZJUSCT/MusicLeague/internal/database"
	"github.com/ZJUSCT/MusicLeague/internal/database/models"
	"github.com/ZJUSCT/MusicLeague/internal/league"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSpotifyAccount     = errors.New("account was created with Spotify, please use Spotify login")
)

// RegisterLocal creates a password account. Input problems are
// league.ErrInvalidInput and a taken username is league.ErrConflict.
func RegisterLocal(db *gorm.DB, username, password, nickname string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", league.ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", league.ErrInvalidInput, MinPasswordLength)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Nickname:     strings.TrimSpace(nickname),
	}
	if user.Nickname == "" {
		user.Nickname = user.Username
	}

	if err := database.CreateUser(db, user); err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: username %q is already taken", league.ErrConflict, username)
		}
		return nil, err
	}
	return user, nil
}

// AuthenticateLocal checks a username and password. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func AuthenticateLocal(db *gorm.DB, username, password string) (*models.User, error) {
	user, err := database.GetUserByUsername(db, strings.TrimSpace(username))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrSpotifyAccount
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
