// Package handler contains the HTTP layer: request decoding, input
// validation, and mapping service results onto responses. No business rules
// live here.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/service"
	"github.com/sakif/account-service/internal/validate"
)

// maxMultipartMemory bounds how much of a multipart body is buffered in
// memory before spilling to temp files.
const maxMultipartMemory = 32 << 20 // 32 MiB

// UserHandler exposes the /user endpoints.
//
// ROUTES:
//   - POST   /user/register            (public)    → HandleRegister
//   - POST   /user/login               (public)    → HandleLogin
//   - GET    /user/profile             (protected) → HandleGetProfile
//   - POST   /user/profile             (protected) → HandleCreateProfile
//   - PUT    /user/profile             (protected) → HandleUpdateProfile
//   - POST   /user/interest            (protected) → HandleAddInterest
//   - DELETE /user/interest/{interest} (protected) → HandleRemoveInterest
type UserHandler struct {
	users    *service.UserService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler. tokenTTL is only used to stamp the
// login cookie's Max-Age so it matches the token's own expiry.
func NewUserHandler(users *service.UserService, tokenTTL time.Duration, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateProfileRequest is the sparse JSON body for PUT /user/profile.
// Pointer fields distinguish "omitted" from "set to the zero value" —
// decode leaves omitted fields nil, and nil means "leave it alone".
type updateProfileRequest struct {
	DisplayName *string   `json:"displayName"`
	Gender      *string   `json:"gender"`
	Birthday    *string   `json:"birthday"`
	Height      *float64  `json:"height"`
	Weight      *float64  `json:"weight"`
	Interests   *[]string `json:"interests"`
}

type interestRequest struct {
	Interest string `json:"interest"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /user/register (public)
// BODY: {"username", "email", "password", "confirmPassword"}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := validate.Registration(req.Username, req.Email, req.Password, req.ConfirmPassword).Err(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.logger.Warn("registration rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and returns a session token.
//
// HTTP: POST /user/login (public)
// BODY: {"email", "password"}
//
// The token goes out twice: in the response body for API clients that send
// it back as a Bearer header, and in an HttpOnly "jwt" cookie for browser
// clients — the auth gate accepts either.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := validate.Login(req.Email, req.Password).Err(); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.users.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// HttpOnly keeps the token out of reach of page scripts (XSS).
	// Secure should be set in production behind HTTPS.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleGetProfile returns the authenticated caller's profile.
//
// HTTP: GET /user/profile (protected)
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but fail closed.
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.users.GetProfile(r.Context(), claims.ID())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleCreateProfile is the alternate account-creation path.
//
// HTTP: POST /user/profile (protected)
// BODY: {"username", "email", "password"}
//
// It overlaps with register but skips the confirm-password check and
// returns the raw record instead of a token. Kept as a separate endpoint
// with its observed behaviour.
func (h *UserHandler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := validate.CreateProfile(req.Username, req.Email, req.Password).Err(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.CreateProfile(r.Context(), service.CreateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleUpdateProfile applies a sparse update to the caller's profile.
//
// HTTP: PUT /user/profile (protected)
//
// Accepts either a JSON body or multipart/form-data. Multipart is how an
// image arrives: form fields carry the profile attributes, the "image" part
// carries the file. Fields absent from either body shape are left untouched.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var input service.UpdateProfileInput
	var gender, birthday *string
	var err error

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		input, gender, birthday, err = decodeMultipartUpdate(r)
	} else {
		input, gender, birthday, err = decodeJSONUpdate(r)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if err := validate.ProfileUpdate(gender, birthday, input.Height, input.Weight).Err(); err != nil {
		writeError(w, err)
		return
	}
	if gender != nil {
		g := model.Gender(*gender)
		input.Gender = &g
	}
	input.Birthday = birthday

	user, err := h.users.UpdateProfile(r.Context(), claims.ID(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleAddInterest appends one interest to the caller's set.
//
// HTTP: POST /user/interest (protected)
// BODY: {"interest": "hiking"}
func (h *UserHandler) HandleAddInterest(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req interestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := validate.Interest(req.Interest).Err(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.AddInterest(r.Context(), claims.ID(), req.Interest)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleRemoveInterest deletes one interest from the caller's set.
//
// HTTP: DELETE /user/interest/{interest} (protected)
func (h *UserHandler) HandleRemoveInterest(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	interest := chi.URLParam(r, "interest")
	if err := validate.Interest(interest).Err(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.RemoveInterest(r.Context(), claims.ID(), interest)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// decodeJSONUpdate reads the sparse JSON body. Gender and birthday come back
// as raw strings so validation can inspect them before they become typed.
func decodeJSONUpdate(r *http.Request) (service.UpdateProfileInput, *string, *string, error) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.UpdateProfileInput{}, nil, nil, apperror.ValidationFailed("body", "invalid JSON body")
	}

	input := service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Height:      req.Height,
		Weight:      req.Weight,
		Interests:   req.Interests,
	}
	return input, req.Gender, req.Birthday, nil
}

// decodeMultipartUpdate reads form fields plus the optional "image" file.
// A field is "present" when the form contains the key at all — an empty
// value still overwrites, matching the JSON body's semantics.
func decodeMultipartUpdate(r *http.Request) (service.UpdateProfileInput, *string, *string, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return service.UpdateProfileInput{}, nil, nil, apperror.ValidationFailed("body", "invalid multipart body")
	}

	var input service.UpdateProfileInput
	form := r.MultipartForm.Value

	input.DisplayName = formString(form, "displayName")
	gender := formString(form, "gender")
	birthday := formString(form, "birthday")

	var err error
	if input.Height, err = formFloat(form, "height"); err != nil {
		return service.UpdateProfileInput{}, nil, nil, err
	}
	if input.Weight, err = formFloat(form, "weight"); err != nil {
		return service.UpdateProfileInput{}, nil, nil, err
	}

	// Repeated "interests" fields replace the whole set.
	if values, ok := form["interests"]; ok {
		interests := append([]string(nil), values...)
		input.Interests = &interests
	}

	file, header, err := r.FormFile("image")
	switch err {
	case nil:
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return service.UpdateProfileInput{}, nil, nil, apperror.ValidationFailed("image", "could not read uploaded image")
		}
		input.Image = &service.ImageUpload{FileName: header.Filename, Data: data}
	case http.ErrMissingFile:
		// no image in this update
	default:
		return service.UpdateProfileInput{}, nil, nil, apperror.ValidationFailed("image", "invalid image upload")
	}

	return input, gender, birthday, nil
}

func formString(form map[string][]string, key string) *string {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func formFloat(form map[string][]string, key string) (*float64, error) {
	raw := formString(form, key)
	if raw == nil {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil, apperror.ValidationFailed(key, key+" must be a number")
	}
	return &f, nil
}
