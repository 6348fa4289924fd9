package server

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"

	"github.com/kamacharovs/aiof-asset/internal/config"
	"github.com/kamacharovs/aiof-asset/internal/usecase"
)

// Service is the asset core exposed over HTTP.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	ListAssetTypes(context.Context) ([]usecase.AssetType, error)

	Assets() usecase.AssetRepository
	Stocks() usecase.AssetRepository
	Homes() usecase.AssetRepository
}

type Server struct {
	port int

	server    Service
	validator *validator.Validate
	cfg       config.Config
	logger    *slog.Logger
	jwtKey    *rsa.PublicKey
}

func NewServer(cfg config.Config, svc Service, logger *slog.Logger) (*http.Server, error) {
	s, err := newServer(cfg, svc, logger)
	if err != nil {
		return nil, err
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server, nil
}

func newServer(cfg config.Config, svc Service, logger *slog.Logger) (*Server, error) {
	s := &Server{
		port:      cfg.Port,
		server:    svc,
		validator: validator.New(),
		cfg:       cfg,
		logger:    logger,
	}

	if cfg.JWT.PublicKey != "" {
		pem := strings.ReplaceAll(cfg.JWT.PublicKey, `\n`, "\n")
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", config.ENV_KEY_JWT_PUBLIC_KEY, err)
		}
		s.jwtKey = key
	} else if !cfg.IsLocal() {
		return nil, fmt.Errorf("%s is required when %s=%s", config.ENV_KEY_JWT_PUBLIC_KEY, config.ENV_KEY_APP_ENV, cfg.AppEnv)
	}

	return s, nil
}
