package service

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"nexustax/internal/model"
	"nexustax/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateClientRequest struct {
	Name          string `json:"name" binding:"required"`
	LegalName     string `json:"legal_name"`
	EntityType    string `json:"entity_type"`
	FEIN          string `json:"fein"`
	HomeState     string `json:"home_state"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type UpdateClientRequest struct {
	Name          *string `json:"name"`
	LegalName     *string `json:"legal_name"`
	EntityType    *string `json:"entity_type"`
	FEIN          *string `json:"fein"`
	HomeState     *string `json:"home_state"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	IsActive      *bool   `json:"is_active"`
}

type ClientResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	LegalName     string    `json:"legal_name"`
	EntityType    string    `json:"entity_type"`
	FEIN          string    `json:"fein"`
	HomeState     string    `json:"home_state"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error)
	DeleteClient(ctx context.Context, id string, userID string) error
	GetClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error)
}

// --- Implementation ---

type clientService struct {
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
}

func NewClientService(clientRepo repository.ClientRepository, auditRepo repository.AuditRepository) ClientService {
	return &clientService{clientRepo: clientRepo, auditRepo: auditRepo}
}

// --- Validation helpers ---

var validEntityTypes = map[string]bool{
	model.EntityTypeLLC:         true,
	model.EntityTypeCorporation: true,
	model.EntityTypeSoleProp:    true,
	model.EntityTypePartnership: true,
}

func validateClientFields(entityType, homeState, email string) error {
	if entityType != "" && !validEntityTypes[entityType] {
		return fmt.Errorf("entity_type must be one of: LLC, CORPORATION, SOLE_PROP, PARTNERSHIP")
	}
	if homeState != "" && len(homeState) != 2 {
		return fmt.Errorf("home_state must be a two-letter state code")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("invalid email format")
		}
	}
	return nil
}

// --- CRUD ---

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error) {
	if req.Name == "" {
		return ClientResponse{}, fmt.Errorf("name is required")
	}
	if err := validateClientFields(req.EntityType, req.HomeState, req.Email); err != nil {
		return ClientResponse{}, err
	}

	client := &model.Client{
		Name:          req.Name,
		LegalName:     req.LegalName,
		EntityType:    req.EntityType,
		FEIN:          req.FEIN,
		HomeState:     req.HomeState,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		IsActive:      true,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to create client: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionCreateClient, client.ID.String(), client.Name)
	return toClientResponse(*client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client ID")
	}

	client, err := s.clientRepo.FindByID(ctx, uid)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("client not found: %w", err)
	}

	// Apply field updates
	if req.Name != nil {
		if *req.Name == "" {
			return ClientResponse{}, fmt.Errorf("name cannot be empty")
		}
		client.Name = *req.Name
	}
	if req.EntityType != nil {
		if *req.EntityType != "" && !validEntityTypes[*req.EntityType] {
			return ClientResponse{}, fmt.Errorf("entity_type must be one of: LLC, CORPORATION, SOLE_PROP, PARTNERSHIP")
		}
		client.EntityType = *req.EntityType
	}
	if req.HomeState != nil {
		if *req.HomeState != "" && len(*req.HomeState) != 2 {
			return ClientResponse{}, fmt.Errorf("home_state must be a two-letter state code")
		}
		client.HomeState = *req.HomeState
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return ClientResponse{}, fmt.Errorf("invalid email format")
		}
		client.Email = *req.Email
	} else if req.Email != nil {
		client.Email = ""
	}
	if req.LegalName != nil {
		client.LegalName = *req.LegalName
	}
	if req.FEIN != nil {
		client.FEIN = *req.FEIN
	}
	if req.ContactPerson != nil {
		client.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return ClientResponse{}, fmt.Errorf("failed to update client: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateClient, client.ID.String(), client.Name)
	return toClientResponse(*client), nil
}

func (s *clientService) DeleteClient(ctx context.Context, id string, userID string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid client ID")
	}

	client, err := s.clientRepo.FindByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("client not found: %w", err)
	}

	if err := s.clientRepo.Delete(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionDeleteClient, client.ID.String(), client.Name)
	return nil
}

func (s *clientService) GetClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.clientRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clients: %w", err)
	}

	res := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		res = append(res, toClientResponse(c))
	}

	return res, total, nil
}

// --- Response mappers ---

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Name:          c.Name,
		LegalName:     c.LegalName,
		EntityType:    c.EntityType,
		FEIN:          c.FEIN,
		HomeState:     c.HomeState,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (s *clientService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string) {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, entry)
}
