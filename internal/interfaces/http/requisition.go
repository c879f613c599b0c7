package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"cashit/internal/infrastructure/gocardless"
)

// RequisitionHandler drives the bank-login consent flow against the provider
type RequisitionHandler struct {
	client      gocardless.ClientInterface
	tokens      gocardless.TokenSource
	redirectURL string
}

// NewRequisitionHandler creates a new requisition handler
func NewRequisitionHandler(client gocardless.ClientInterface, tokens gocardless.TokenSource, redirectURL string) *RequisitionHandler {
	return &RequisitionHandler{client: client, tokens: tokens, redirectURL: redirectURL}
}

type CreateRequisitionRequest struct {
	InstitutionID string `json:"institutionId"`
}

type RequisitionResponse struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Link      string   `json:"link"`
	Reference string   `json:"reference"`
	Accounts  []string `json:"accounts"`
}

type InstitutionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	BIC  string `json:"bic"`
	Logo string `json:"logo"`
}

// HandleCreateRequisition starts a new consent flow and returns the link
// the member must visit at their bank.
func (h *RequisitionHandler) HandleCreateRequisition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req CreateRequisitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InstitutionID == "" {
		http.Error(w, "Institution ID is required", http.StatusBadRequest)
		return
	}

	token, err := h.tokens.Token(r.Context())
	if err != nil {
		log.Printf("Error obtaining provider token: %v", err)
		http.Error(w, "Provider unavailable", http.StatusBadGateway)
		return
	}

	requisition, err := h.client.CreateRequisition(r.Context(), token, gocardless.RequisitionParams{
		Redirect:      h.redirectURL,
		InstitutionID: req.InstitutionID,
		Reference:     uuid.NewString(),
	})
	if err != nil {
		log.Printf("Error creating requisition for institution %s: %v", req.InstitutionID, err)
		http.Error(w, "Failed to create requisition", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRequisitionResponse(requisition))
}

// HandleGetRequisition returns the current state of a consent flow, including
// the provider account ids once the member finished the bank login.
func (h *RequisitionHandler) HandleGetRequisition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c, ok := callerFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.Treasurer {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Requisition ID is required", http.StatusBadRequest)
		return
	}

	token, err := h.tokens.Token(r.Context())
	if err != nil {
		log.Printf("Error obtaining provider token: %v", err)
		http.Error(w, "Provider unavailable", http.StatusBadGateway)
		return
	}

	requisition, err := h.client.GetRequisition(r.Context(), token, id)
	if err != nil {
		log.Printf("Error getting requisition %s: %v", id, err)
		http.Error(w, "Failed to get requisition", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRequisitionResponse(requisition))
}

// HandleCallback is where the provider sends the member's browser after the
// bank login. The reference identifies which requisition completed.
func (h *RequisitionHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ref := r.URL.Query().Get("ref")
	log.Printf("Consent flow completed (ref=%s)", ref)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><p>Bank connection complete. You can close this window.</p></body></html>"))
}

// HandleInstitutions lists the banks available for the consent flow
func (h *RequisitionHandler) HandleInstitutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := callerFromRequest(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	country := r.URL.Query().Get("country")
	if country == "" {
		country = "DE"
	}

	token, err := h.tokens.Token(r.Context())
	if err != nil {
		log.Printf("Error obtaining provider token: %v", err)
		http.Error(w, "Provider unavailable", http.StatusBadGateway)
		return
	}

	institutions, err := h.client.Institutions(r.Context(), token, country)
	if err != nil {
		log.Printf("Error listing institutions for %s: %v", country, err)
		http.Error(w, "Failed to list institutions", http.StatusBadGateway)
		return
	}

	response := make([]InstitutionResponse, 0, len(institutions))
	for _, inst := range institutions {
		response = append(response, InstitutionResponse{
			ID:   inst.ID,
			Name: inst.Name,
			BIC:  inst.BIC,
			Logo: inst.Logo,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func toRequisitionResponse(req *gocardless.Requisition) RequisitionResponse {
	return RequisitionResponse{
		ID:        req.ID,
		Status:    req.Status,
		Link:      req.Link,
		Reference: req.Reference,
		Accounts:  req.Accounts,
	}
}
