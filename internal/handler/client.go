package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/middleware"
	"homeservices/internal/service"
)

// ClientHandler handles HTTP requests for clients.
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// RegisterClientRequest is the HTTP request body for client registration.
type RegisterClientRequest struct {
	Name  string         `json:"name"`
	Phone string         `json:"phone"`
	Home  *LocationInput `json:"home"`
}

// ClientResponse is the HTTP response for client data.
type ClientResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Home      LocationDTO `json:"home"`
	CreatedAt string      `json:"created_at,omitempty"`
}

// Register handles POST /v1/clients/register
func (h *ClientHandler) Register(c *gin.Context) {
	var req RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	home, ok := req.Home.point()
	if !ok {
		respondBadRequest(c, "home with lat and lng is required")
		return
	}

	client, err := h.clientService.Register(c.Request.Context(), service.RegisterClientRequest{
		Name:  req.Name,
		Phone: req.Phone,
		Home:  home,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toClientResponse(client))
}

// GetClient handles GET /v1/clients/:id
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientService.GetClient(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toClientResponse(client))
}

func toClientResponse(cl *domain.Client) ClientResponse {
	return ClientResponse{
		ID:        cl.ID,
		Name:      cl.Name,
		Phone:     cl.Phone,
		Home:      toLocationDTO(cl.Home),
		CreatedAt: formatTime(cl.CreatedAt),
	}
}
