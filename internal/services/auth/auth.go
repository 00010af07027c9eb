package authservice

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zanzhit/flameguard/internal/config"
	"github.com/zanzhit/flameguard/internal/domain/constants"
	"github.com/zanzhit/flameguard/internal/domain/errs"
	"github.com/zanzhit/flameguard/internal/domain/models"
	jwtmid "github.com/zanzhit/flameguard/internal/lib/jwt"
	"github.com/zanzhit/flameguard/internal/lib/sl"
)

type AuthService struct {
	secret           string
	tokenTTL         time.Duration
	log              *slog.Logger
	operatorProvider OperatorProvider
}

type OperatorProvider interface {
	Operator(email string) (models.Operator, error)
}

func New(log *slog.Logger, operatorProvider OperatorProvider, tokenTTL time.Duration, secret string) *AuthService {
	return &AuthService{
		secret:           secret,
		tokenTTL:         tokenTTL,
		log:              log,
		operatorProvider: operatorProvider,
	}
}

func (s *AuthService) Login(email, password string) (string, error) {
	const op = "service.auth.Login"

	log := s.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login operator")

	operator, err := s.operatorProvider.Operator(email)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			log.Warn("operator not found", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}

		log.Error("failed to get operator", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(operator.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	log.Info("operator logged in successfully")

	token, err := jwtmid.NewToken(operator, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func HashPassword(password string) (string, error) {
	const op = "service.auth.HashPassword"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(hash), nil
}

// Directory serves the operators listed in the configuration.
type Directory struct {
	operators map[string]models.Operator
}

func NewDirectory(operators []config.Operator) *Directory {
	d := &Directory{operators: make(map[string]models.Operator, len(operators))}

	for _, o := range operators {
		email := strings.ToLower(strings.TrimSpace(o.Email))
		d.operators[email] = models.Operator{
			Email:    email,
			Role:     constants.Operator,
			PassHash: []byte(o.PasswordHash),
		}
	}

	return d
}

func (d *Directory) Operator(email string) (models.Operator, error) {
	const op = "service.auth.Directory.Operator"

	operator, ok := d.operators[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.Operator{}, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	return operator, nil
}
