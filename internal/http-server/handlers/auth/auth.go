package authhandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/http-server/handlers"
	authmiddleware "github.com/zanzhit/flameguard/internal/http-server/middleware/auth"
	"github.com/zanzhit/flameguard/internal/lib/api/response"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthHandler struct {
	log      *slog.Logger
	operator Operator
	tokenTTL time.Duration
}

type Operator interface {
	Login(email, password string) (string, error)
}

func New(
	log *slog.Logger,
	operator Operator,
	tokenTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		log:      log,
		operator: operator,
		tokenTTL: tokenTTL,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	err := render.DecodeJSON(r.Body, &req)
	if err != nil {
		if errors.Is(err, io.EOF) {
			log.Error("request body is empty")

			handlers.Error(w, r, http.StatusBadRequest, response.Error("empty request", ""))

			return
		}

		log.Error("failed to decode request body", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.Error("failed to decode request", middleware.GetReqID(r.Context())))

		return
	}

	log.Info("request body decoded", slog.String("email", req.Email))

	if err := validator.New().Struct(req); err != nil {
		validateErr := err.(validator.ValidationErrors)

		log.Error("invalid request", sl.Err(err))

		handlers.Error(w, r, http.StatusBadRequest, response.ValidationError(validateErr))

		return
	}

	token, err := h.operator.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			handlers.Error(w, r, http.StatusUnauthorized, response.Error("invalid credentials", ""))

			return
		}

		log.Error("failed to login", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to login", middleware.GetReqID(r.Context())))

		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authmiddleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(h.tokenTTL),
	})

	render.JSON(w, r, map[string]string{"token": token})
}
