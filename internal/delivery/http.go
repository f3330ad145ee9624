package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadengine/backend/internal/models"
)

type HTTPSender struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSender builds the sender with one shared client so connections are
// reused across sends.
func NewHTTPSender(baseURL string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type sendRequest struct {
	JobID       string `json:"job_id"`
	Channel     string `json:"channel"`
	SupplierID  string `json:"supplier_id"`
	LeadID      string `json:"lead_id"`
	TemplateRef string `json:"template_ref"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

func (h *HTTPSender) Send(ctx context.Context, job models.AutomationJob, lead models.Lead, rule models.AutomationRule) error {
	payload := sendRequest{
		JobID:       job.ID,
		Channel:     job.Channel,
		SupplierID:  job.SupplierID,
		LeadID:      lead.ID,
		TemplateRef: rule.TemplateRef,
		Phone:       lead.Phone,
		Email:       lead.Email,
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/send", bytes.NewBuffer(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery service returned %d", resp.StatusCode)
	}
	return nil
}
