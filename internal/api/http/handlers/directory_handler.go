package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ownerdesk/ticket-engine/internal/api/dto"
	"github.com/ownerdesk/ticket-engine/internal/service"
	apperrors "github.com/ownerdesk/ticket-engine/pkg/util/errorutil"
)

// DirectoryHandler exposes login plus team, agent and customer administration.
type DirectoryHandler struct {
	auth      *service.AuthService
	directory *service.DirectoryService
}

// NewDirectoryHandler constructs handler.
func NewDirectoryHandler(authService *service.AuthService, directory *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{auth: authService, directory: directory}
}

// Login handles POST /auth/agents/login.
func (h *DirectoryHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	agent, token, exp, err := h.auth.LoginAgent(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"agent": agentResponse(agent),
		"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Me GET /agents/me.
func (h *DirectoryHandler) Me(c *fiber.Ctx) error {
	agent, err := currentAgent(c)
	if err != nil {
		return err
	}
	return ok(c, agentResponse(agent))
}

// CreateTeam POST /admin/teams.
func (h *DirectoryHandler) CreateTeam(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateTeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.directory.CreateTeam(c.UserContext(), actor, service.CreateTeamInput{
		Name:         req.Name,
		Description:  req.Description,
		Tier1Limit:   req.Tier1Limit,
		Tier2Limit:   req.Tier2Limit,
		SupervisorID: req.SupervisorID,
		ManagerID:    req.ManagerID,
	})
	if err != nil {
		return err
	}
	return created(c, teamResponse(team))
}

// GetTeam GET /teams/:id.
func (h *DirectoryHandler) GetTeam(c *fiber.Ctx) error {
	team, err := h.directory.GetTeam(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, teamResponse(team))
}

// CreateAgent POST /admin/agents.
func (h *DirectoryHandler) CreateAgent(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.CreateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.directory.CreateAgent(c.UserContext(), actor, service.CreateAgentInput{
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Role:             req.Role,
		TeamIDs:          req.TeamIDs,
		MaxTickets:       req.MaxTickets,
		EmpowermentLimit: req.EmpowermentLimit,
	})
	if err != nil {
		return err
	}
	return created(c, agentResponse(agent))
}

// UpdateAgent PATCH /admin/agents/:id.
func (h *DirectoryHandler) UpdateAgent(c *fiber.Ctx) error {
	actor, err := currentAgent(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	agent, err := h.directory.UpdateAgent(c.UserContext(), actor, c.Params("id"), service.UpdateAgentInput{
		Name:             req.Name,
		Role:             req.Role,
		TeamIDs:          req.TeamIDs,
		MaxTickets:       req.MaxTickets,
		EmpowermentLimit: req.EmpowermentLimit,
		IsActive:         req.IsActive,
	})
	if err != nil {
		return err
	}
	return ok(c, agentResponse(agent))
}

// GetAgent GET /agents/:id.
func (h *DirectoryHandler) GetAgent(c *fiber.Ctx) error {
	agent, err := h.directory.GetAgent(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, agentResponse(agent))
}

// CreateCompany POST /companies.
func (h *DirectoryHandler) CreateCompany(c *fiber.Ctx) error {
	var req dto.CreateCompanyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	company, err := h.directory.CreateCompany(c.UserContext(), req.Name, req.Tier)
	if err != nil {
		return err
	}
	return created(c, dto.CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Tier:      company.Tier,
		CreatedAt: company.CreatedAt,
	})
}

// CreateContact POST /contacts.
func (h *DirectoryHandler) CreateContact(c *fiber.Ctx) error {
	var req dto.CreateContactRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	contact, err := h.directory.CreateContact(c.UserContext(), service.CreateContactInput{
		Name:      req.Name,
		Email:     req.Email,
		CompanyID: req.CompanyID,
		Tier:      req.Tier,
	})
	if err != nil {
		return err
	}
	return created(c, dto.ContactResponse{
		ID:        contact.ID,
		Name:      contact.Name,
		Email:     contact.Email,
		CompanyID: contact.CompanyID,
		Tier:      contact.Tier,
		CreatedAt: contact.CreatedAt,
	})
}
