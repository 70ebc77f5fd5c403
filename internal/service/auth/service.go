package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glowhouse/portal-backend-go/internal/domain/auth"
	"github.com/glowhouse/portal-backend-go/internal/domain/employee"
	"github.com/glowhouse/portal-backend-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	employees employee.Repository
	jwt       jwt.Service
}

func NewService(employees employee.Repository, jwtService jwt.Service) auth.Service {
	return &Service{
		employees: employees,
		jwt:       jwtService,
	}
}

func (s *Service) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	emp, err := s.employees.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to look up employee: %w", err)
	}

	if !emp.Active {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if emp.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*emp.PasswordHash), []byte(req.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	return s.issueTokens(emp)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenResponse, error) {
	email, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		if s.jwt.IsTokenRevoked(refreshToken) {
			return auth.TokenResponse{}, auth.ErrRefreshTokenRevoked
		}
		return auth.TokenResponse{}, auth.ErrInvalidToken
	}

	emp, err := s.employees.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidToken
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to look up employee: %w", err)
	}
	if !emp.Active {
		return auth.TokenResponse{}, auth.ErrInvalidToken
	}

	// Rotate: the presented refresh token is single use.
	s.jwt.RevokeToken(refreshToken)

	return s.issueTokens(emp)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	s.jwt.RevokeToken(refreshToken)
	slog.DebugContext(ctx, "refresh token revoked on logout")
	return nil
}

func (s *Service) issueTokens(emp employee.Employee) (auth.TokenResponse, error) {
	accessToken, accessExp, err := s.jwt.GenerateAccessToken(emp.Email, emp.FullName, emp.IsApprover)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExp, err := s.jwt.GenerateRefreshToken(emp.Email)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return auth.TokenResponse{
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  accessExp,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: refreshExp,
		Email:                 emp.Email,
		FullName:              emp.FullName,
		IsApprover:            emp.IsApprover,
	}, nil
}
