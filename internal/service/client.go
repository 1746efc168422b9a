package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
)

// ClientService handles client registration and lookup.
type ClientService struct {
	clientRepo repository.ClientRepository
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo repository.ClientRepository) *ClientService {
	return &ClientService{clientRepo: clientRepo}
}

// RegisterClientRequest contains the parameters for registering a client.
type RegisterClientRequest struct {
	Name  string
	Phone string
	Home  domain.Point
}

// Register creates a client.
func (s *ClientService) Register(ctx context.Context, req RegisterClientRequest) (*domain.Client, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrInvalidClient)
	}
	if !req.Home.Valid() {
		return nil, ErrInvalidLocation
	}

	client := &domain.Client{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Home:      req.Home,
		CreatedAt: time.Now(),
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// GetClient retrieves a client. Only the client itself, a provider or an admin may read it.
func (s *ClientService) GetClient(ctx context.Context, actor domain.Actor, clientID string) (*domain.Client, error) {
	if clientID == "" {
		return nil, ErrInvalidClient
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleClient && actor.ID != clientID {
		return nil, ErrForbidden
	}
	return s.clientRepo.GetByID(ctx, clientID)
}
