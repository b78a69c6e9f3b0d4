// Package service — account business logic.
//
// UserService is the business layer between the HTTP handlers and the
// repository/auth utilities:
//
//	UserHandler (HTTP) → UserService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt),
//	                     ImageStore (uploads)
//
// It knows nothing about HTTP: no requests, no status codes, no cookies.
// Failures are apperror values; the handler layer maps them to responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
	"github.com/sakif/account-service/internal/storage"
	"github.com/sakif/account-service/internal/zodiac"
)

// UserService handles registration, login, profile reads/updates, and the
// interest set.
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	images    storage.ImageStore
	logger    *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
// Called from the server's composition root.
func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	images storage.ImageStore,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		images:    images,
		logger:    logger,
	}
}

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// CreateProfileInput is the payload for CreateProfile. Same fields as
// registration minus the confirmation — that asymmetry is intentional, see
// CreateProfile.
type CreateProfileInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput is the payload for Login.
type LoginInput struct {
	Email    string
	Password string
}

// ImageUpload carries an uploaded image through the service layer.
type ImageUpload struct {
	FileName string
	Data     []byte
}

// UpdateProfileInput is the sparse payload for UpdateProfile. Nil fields were
// omitted from the request and leave the stored value untouched; non-nil
// fields overwrite it. Interests here replaces the whole set — use
// AddInterest/RemoveInterest for element-wise changes.
type UpdateProfileInput struct {
	DisplayName *string
	Gender      *model.Gender
	Birthday    *string
	Height      *float64
	Weight      *float64
	Interests   *[]string
	Image       *ImageUpload
}

// Register creates a new identity with an empty profile.
//
// Fails with ErrConflict when the username or email is taken (the repository
// checks both) and ErrValidation when the passwords don't match. The password
// is bcrypt-hashed before anything touches the store; the plaintext never
// leaves this function.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Interests:    []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(err, "service/user: registering")
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies credentials and issues a session token.
//
// Unknown email and wrong password are deliberately indistinguishable to the
// caller: both return the same "invalid email or password" not-found error,
// so responses can't be used to enumerate registered emails.
func (s *UserService) Login(ctx context.Context, in LoginInput) (string, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if isNotFound(err) {
			return "", apperror.NotFound("invalid email or password")
		}
		return "", fmt.Errorf("service/user: looking up login email: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		return "", apperror.NotFound("invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return "", fmt.Errorf("service/user: issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return token, nil
}

// GetProfile returns the account record for the given identity id.
// Fails with ErrNotFound if the identity vanished after the token was issued.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "service/user: fetching profile")
	}
	return user, nil
}

// CreateProfile is the alternate identity-creation path behind
// POST /user/profile. It duplicates Register's uniqueness handling but skips
// the confirm-password check and returns the raw record instead of a token.
// The overlap with Register is preserved as observed behaviour — the two
// endpoints are intentionally not merged.
func (s *UserService) CreateProfile(ctx context.Context, in CreateProfileInput) (*model.User, error) {
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: hashing password: %w", err)
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Interests:    []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(err, "service/user: creating profile")
	}

	s.logger.Info("profile created",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// UpdateProfile applies a sparse update to the caller's profile.
//
// MERGE RULES:
//   - Only fields present in the input overwrite stored values; omitted
//     fields come back byte-identical.
//   - When birthday changes, horoscope and chinese zodiac are re-derived
//     together from the new date. They are never re-derived otherwise, and
//     never accepted from the client.
//   - An image payload is written through the image store and its recorded
//     path replaces the previous one.
//
// The whole record is persisted in one Save — single-row writes are
// all-or-nothing, so a failed update leaves the stored profile unchanged.
// Two concurrent updates on the same identity race read-modify-write style;
// the last writer wins. Accepted at this scale.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "service/user: loading profile for update")
	}

	if in.DisplayName != nil {
		user.DisplayName = in.DisplayName
	}
	if in.Gender != nil {
		user.Gender = in.Gender
	}
	if in.Birthday != nil {
		user.Birthday = in.Birthday
		if err := s.deriveZodiac(user, *in.Birthday); err != nil {
			return nil, err
		}
	}
	if in.Height != nil {
		user.Height = in.Height
	}
	if in.Weight != nil {
		user.Weight = in.Weight
	}
	if in.Interests != nil {
		user.Interests = dedupe(*in.Interests)
	}

	if in.Image != nil {
		path, err := s.images.Save(user.ID, in.Image.FileName, in.Image.Data)
		if err != nil {
			return nil, fmt.Errorf("service/user: storing profile image: %w", err)
		}
		user.Image = &path
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, apperror.Wrap(err, "service/user: saving profile")
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))

	return user, nil
}

// AddInterest appends one interest to the caller's set.
// Fails with ErrConflict if the interest is already present — the set never
// holds duplicates, so adding the same value twice grows it by exactly one.
func (s *UserService) AddInterest(ctx context.Context, userID, interest string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "service/user: loading profile")
	}

	if user.HasInterest(interest) {
		return nil, apperror.Conflict("interest already exists for the user")
	}

	user.Interests = append(user.Interests, interest)

	if err := s.users.Save(ctx, user); err != nil {
		return nil, apperror.Wrap(err, "service/user: saving interests")
	}

	return user, nil
}

// RemoveInterest deletes one interest from the caller's set.
// Fails with ErrNotFound if the interest is absent, leaving the set unchanged.
func (s *UserService) RemoveInterest(ctx context.Context, userID, interest string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "service/user: loading profile")
	}

	if !user.HasInterest(interest) {
		return nil, apperror.NotFound("interest not found for the user")
	}

	kept := user.Interests[:0]
	for _, existing := range user.Interests {
		if existing != interest {
			kept = append(kept, existing)
		}
	}
	user.Interests = kept

	if err := s.users.Save(ctx, user); err != nil {
		return nil, apperror.Wrap(err, "service/user: saving interests")
	}

	return user, nil
}

// deriveZodiac recomputes both derived attributes from the birthday.
// The date has already passed validation, so a parse failure here means a
// handler let a bad value through — surface it rather than guessing.
func (s *UserService) deriveZodiac(user *model.User, birthday string) error {
	date, err := time.Parse("2006-01-02", birthday)
	if err != nil {
		return apperror.ValidationFailed("birthday", "birthday must be a date in YYYY-MM-DD format")
	}

	horoscope := zodiac.Horoscope(int(date.Month()), date.Day())
	chinese := zodiac.ChineseZodiac(date.Year())
	user.Horoscope = &horoscope
	user.ChineseZodiac = &chinese

	return nil
}

// dedupe drops repeated entries while keeping first-occurrence order.
// Wholesale interest replacement must not smuggle duplicates into a set the
// add/remove operations keep duplicate-free.
func dedupe(interests []string) []string {
	seen := make(map[string]struct{}, len(interests))
	out := make([]string, 0, len(interests))
	for _, interest := range interests {
		if _, ok := seen[interest]; ok {
			continue
		}
		seen[interest] = struct{}{}
		out = append(out, interest)
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
