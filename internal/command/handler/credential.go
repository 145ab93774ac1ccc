package command

import (
	"errors"
	"io"
	"os"
	"time"

	"fingate/internal/dto"
	"fingate/internal/middleware"
	"fingate/internal/service"
	"fingate/utils/signature"

	"github.com/spf13/cobra"
)

type CredentialHandler struct {
	apiKeyService *service.APIKeyService
	owner         *middleware.Owner
}

func NewCredentialHandler(apiKeyService *service.APIKeyService, owner *middleware.Owner) *CredentialHandler {
	return &CredentialHandler{
		apiKeyService: apiKeyService,
		owner:         owner,
	}
}

// IssueKey 建立 API Key 並印出明文（只會出現這一次）
func (handler *CredentialHandler) IssueKey(cmd *cobra.Command, ownerID, name string, limit int) error {
	if ownerID == "" {
		return errors.New("--owner is required")
	}
	req := &dto.CreateAPIKeyDto{Name: name}
	if limit > 0 {
		req.RateLimitPerMinute = &limit
	}

	created, err := handler.apiKeyService.Create(cmd.Context(), ownerID, req)
	if err != nil {
		return err
	}
	cmd.Printf("id:     %s\n", created.ID)
	cmd.Printf("prefix: %s\n", created.KeyPrefix)
	cmd.Printf("limit:  %d/min\n", created.RateLimitPerMinute)
	cmd.Printf("key:    %s\n", created.Key)
	return nil
}

// IssueToken 簽發管理端 API 用的 owner JWT
func (handler *CredentialHandler) IssueToken(cmd *cobra.Command, ownerID string, ttl time.Duration) error {
	if ownerID == "" {
		return errors.New("--owner is required")
	}
	token, err := handler.owner.Issue(ownerID, ttl)
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}

// SignPayload 產生與投遞相同的簽章標頭，方便接收端驗證實作；file 為 "-" 時讀 stdin
func (handler *CredentialHandler) SignPayload(cmd *cobra.Command, secret, file string) error {
	if secret == "" {
		return errors.New("--secret is required")
	}

	var (
		payload []byte
		err     error
	)
	if file == "" || file == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(file)
	}
	if err != nil {
		return err
	}
	cmd.Println(signature.Header(secret, payload))
	return nil
}
