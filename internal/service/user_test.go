package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a hand-written fake (not a mock framework) keeps tests easy to read —
// you can see exactly what the fake does. It stores and returns copies so the
// service can't accidentally share state with the "database".
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
	// set to simulate database failures
	saveErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperror.Conflict("username or email is already in use")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return copyUser(u), nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (f *fakeUserRepo) Save(ctx context.Context, user *model.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user not found")
	}
	f.users[user.ID] = copyUser(user)
	return nil
}

func copyUser(u *model.User) *model.User {
	copied := *u
	copied.Interests = append([]string(nil), u.Interests...)
	return &copied
}

// fakeImageStore records uploads and hands back deterministic paths.
type fakeImageStore struct {
	savedOwner string
	savedName  string
	savedData  []byte
	err        error
}

func (f *fakeImageStore) Save(ownerID, originalName string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.savedOwner = ownerID
	f.savedName = originalName
	f.savedData = data
	return "uploads/" + ownerID + "_" + originalName, nil
}

// newTestUserService wires a UserService with fake storage and fast crypto.
func newTestUserService(t *testing.T, repo *fakeUserRepo, images *fakeImageStore) *UserService {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	passwords := auth.NewPasswordServiceWithCost(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewUserService(repo, tokens, passwords, images, logger)
}

// registerTestUser registers a user and fails the test on error.
func registerTestUser(t *testing.T, svc *UserService, username, email, password string) *model.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", username, err)
	}
	return user
}

func strPtr(s string) *string { return &s }

func numPtr(f float64) *float64 { return &f }

func genderPtr(g model.Gender) *model.Gender { return &g }

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})

	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	if user.ID == "" {
		t.Error("Register() did not assign an ID")
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret123" {
		t.Error("Register() must store a hash, never the plaintext password")
	}
	if len(user.Interests) != 0 {
		t.Errorf("Register() interests = %v, want empty", user.Interests)
	}
}

func TestRegister_PasswordMismatch(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret124",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register() error = %v, want ErrValidation", err)
	}
	if len(repo.users) != 0 {
		t.Error("Register() created an identity despite the mismatch")
	}
}

func TestRegister_DuplicateUsernameOrEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	cases := []struct {
		name     string
		username string
		email    string
	}{
		{"duplicate username", "alice", "fresh@example.com"},
		{"duplicate email", "fresh", "alice@example.com"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), RegisterInput{
				Username:        tc.username,
				Email:           tc.email,
				Password:        "secret123",
				ConfirmPassword: "secret123",
			})
			if !errors.Is(err, apperror.ErrConflict) {
				t.Errorf("Register() error = %v, want ErrConflict", err)
			}
		})
	}

	// No identity may have been created by the rejected attempts.
	if len(repo.users) != 1 {
		t.Errorf("store holds %d identities, want 1", len(repo.users))
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	token, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// The token must verify and carry the identity claims.
	tokens, _ := auth.NewTokenService("test-secret-at-least-16-chars!!")
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if claims.ID() != user.ID || claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Errorf("token claims = %s/%s/%s, want %s/alice/alice@example.com",
			claims.ID(), claims.Username, claims.Email, user.ID)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	_, errWrongPassword := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	_, errUnknownEmail := svc.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "secret123",
	})

	for _, err := range []error{errWrongPassword, errUnknownEmail} {
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("Login() error = %v, want ErrNotFound", err)
		}
	}

	// Same rejection either way — responses must not reveal whether the
	// email is registered.
	var appWrong, appUnknown *apperror.AppError
	if !errors.As(errWrongPassword, &appWrong) || !errors.As(errUnknownEmail, &appUnknown) {
		t.Fatal("Login() errors should be AppErrors")
	}
	if appWrong.Message != appUnknown.Message {
		t.Errorf("rejection messages differ: %q vs %q", appWrong.Message, appUnknown.Message)
	}
	if !strings.Contains(appWrong.Message, "invalid email or password") {
		t.Errorf("rejection message = %q, want the combined phrasing", appWrong.Message)
	}
}

// =========================================================================
// PROFILE TESTS
// =========================================================================

func TestGetProfile_NotFound(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})

	_, err := svc.GetProfile(context.Background(), "vanished-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProfile() error = %v, want ErrNotFound", err)
	}
}

func TestCreateProfile_NoConfirmationNeeded(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})

	user, err := svc.CreateProfile(context.Background(), CreateProfileInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if user.ID == "" || user.PasswordHash == "secret123" {
		t.Error("CreateProfile() should create an identity with a hashed password")
	}
}

func TestCreateProfile_DuplicateConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	_, err := svc.CreateProfile(context.Background(), CreateProfileInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret123",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateProfile() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// UPDATE PROFILE (MERGE) TESTS
// =========================================================================

func TestUpdateProfile_SparseMergeLeavesOmittedFieldsUntouched(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	// Seed a full profile.
	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		DisplayName: strPtr("Alice"),
		Gender:      genderPtr(model.GenderFemale),
		Birthday:    strPtr("1990-04-15"),
		Height:      numPtr(168),
		Weight:      numPtr(55),
		Interests:   &[]string{"hiking", "jazz"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() seeding error = %v", err)
	}

	// Now update exactly one field.
	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		DisplayName: strPtr("Alice Prime"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if *updated.DisplayName != "Alice Prime" {
		t.Errorf("DisplayName = %q, want Alice Prime", *updated.DisplayName)
	}
	// Everything omitted must be identical to before the call.
	if *updated.Gender != model.GenderFemale ||
		*updated.Birthday != "1990-04-15" ||
		*updated.Height != 168 ||
		*updated.Weight != 55 {
		t.Error("UpdateProfile() modified fields that were omitted from the input")
	}
	if !reflect.DeepEqual(updated.Interests, []string{"hiking", "jazz"}) {
		t.Errorf("Interests = %v, want unchanged", updated.Interests)
	}
	// Derived fields stay as derived from the original birthday.
	if *updated.Horoscope != "Aries" || *updated.ChineseZodiac != "Tiger" {
		t.Errorf("derived = %s/%s, want Aries/Tiger", *updated.Horoscope, *updated.ChineseZodiac)
	}
}

func TestUpdateProfile_BirthdayRederivesBothZodiacs(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Birthday: strPtr("2000-01-01"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if updated.Horoscope == nil || *updated.Horoscope != "Capricorn" {
		t.Errorf("Horoscope = %v, want Capricorn", updated.Horoscope)
	}
	if updated.ChineseZodiac == nil || *updated.ChineseZodiac != "Rat" {
		t.Errorf("ChineseZodiac = %v, want Rat", updated.ChineseZodiac)
	}

	// Changing the birthday again re-derives both, together.
	updated, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Birthday: strPtr("1990-04-15"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if *updated.Horoscope != "Aries" || *updated.ChineseZodiac != "Tiger" {
		t.Errorf("derived = %s/%s, want Aries/Tiger", *updated.Horoscope, *updated.ChineseZodiac)
	}
}

func TestUpdateProfile_ImageStoredAndPathRecorded(t *testing.T) {
	repo := newFakeUserRepo()
	images := &fakeImageStore{}
	svc := newTestUserService(t, repo, images)
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Image: &ImageUpload{FileName: "avatar.png", Data: []byte("png-bytes")},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	if images.savedOwner != user.ID || images.savedName != "avatar.png" {
		t.Errorf("image store received %s/%s, want %s/avatar.png", images.savedOwner, images.savedName, user.ID)
	}
	if string(images.savedData) != "png-bytes" {
		t.Errorf("image store received bytes %q", images.savedData)
	}
	if updated.Image == nil || *updated.Image != "uploads/"+user.ID+"_avatar.png" {
		t.Errorf("Image path = %v, want the store's returned path", updated.Image)
	}
}

func TestUpdateProfile_ImageStoreFailureAbortsUpdate(t *testing.T) {
	repo := newFakeUserRepo()
	images := &fakeImageStore{err: errors.New("disk full")}
	svc := newTestUserService(t, repo, images)
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		DisplayName: strPtr("Should Not Persist"),
		Image:       &ImageUpload{FileName: "avatar.png", Data: []byte("x")},
	})
	if err == nil {
		t.Fatal("UpdateProfile() should fail when the image store fails")
	}

	// Nothing from the failed update may have been persisted.
	stored, _ := svc.GetProfile(context.Background(), user.ID)
	if stored.DisplayName != nil {
		t.Error("failed update leaked a field change into the store")
	}
}

func TestUpdateProfile_InterestsReplacementDedupes(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	updated, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Interests: &[]string{"jazz", "hiking", "jazz", "chess", "hiking"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	want := []string{"jazz", "hiking", "chess"}
	if !reflect.DeepEqual(updated.Interests, want) {
		t.Errorf("Interests = %v, want %v (deduped, order kept)", updated.Interests, want)
	}
}

func TestUpdateProfile_SaveFailurePropagates(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	repo.saveErr = errors.New("database locked")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		DisplayName: strPtr("Alice"),
	})
	if err == nil {
		t.Fatal("UpdateProfile() should fail when the store's write fails")
	}
}

func TestUpdateProfile_UnknownIdentity(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})

	_, err := svc.UpdateProfile(context.Background(), "vanished-id", UpdateProfileInput{
		DisplayName: strPtr("Ghost"),
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// INTEREST SET TESTS
// =========================================================================

func TestAddInterest(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	updated, err := svc.AddInterest(context.Background(), user.ID, "hiking")
	if err != nil {
		t.Fatalf("AddInterest() error = %v", err)
	}
	if !reflect.DeepEqual(updated.Interests, []string{"hiking"}) {
		t.Errorf("Interests = %v, want [hiking]", updated.Interests)
	}
}

func TestAddInterest_DuplicateConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	if _, err := svc.AddInterest(context.Background(), user.ID, "hiking"); err != nil {
		t.Fatalf("AddInterest() first call error = %v", err)
	}

	_, err := svc.AddInterest(context.Background(), user.ID, "hiking")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("AddInterest() second call error = %v, want ErrConflict", err)
	}

	// The stored set grew by exactly one for the one distinct value.
	stored, _ := svc.GetProfile(context.Background(), user.ID)
	if len(stored.Interests) != 1 {
		t.Errorf("stored interests = %v, want exactly one entry", stored.Interests)
	}
}

func TestRemoveInterest(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	for _, interest := range []string{"hiking", "jazz", "chess"} {
		if _, err := svc.AddInterest(context.Background(), user.ID, interest); err != nil {
			t.Fatalf("AddInterest(%s) error = %v", interest, err)
		}
	}

	updated, err := svc.RemoveInterest(context.Background(), user.ID, "jazz")
	if err != nil {
		t.Fatalf("RemoveInterest() error = %v", err)
	}
	if !reflect.DeepEqual(updated.Interests, []string{"hiking", "chess"}) {
		t.Errorf("Interests = %v, want [hiking chess]", updated.Interests)
	}
}

func TestRemoveInterest_AbsentLeavesSetUnchanged(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(t, repo, &fakeImageStore{})
	user := registerTestUser(t, svc, "alice", "alice@example.com", "secret123")

	if _, err := svc.AddInterest(context.Background(), user.ID, "hiking"); err != nil {
		t.Fatalf("AddInterest() error = %v", err)
	}

	_, err := svc.RemoveInterest(context.Background(), user.ID, "skydiving")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveInterest() error = %v, want ErrNotFound", err)
	}

	stored, _ := svc.GetProfile(context.Background(), user.ID)
	if !reflect.DeepEqual(stored.Interests, []string{"hiking"}) {
		t.Errorf("stored interests = %v, want [hiking] unchanged", stored.Interests)
	}
}
