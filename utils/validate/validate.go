package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"

	cErr "fingate/internal/pkg/error"
	"fingate/internal/pkg/request"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 事件類型：小寫 dot 分段，例如 transaction.created、bank_sync.completed
var eventTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

func IsValidEventType(s string) bool {
	return eventTypePattern.MatchString(s)
}

// IsValidWebhookURL 僅接受 http/https 絕對網址
func IsValidWebhookURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}

// RegisterValidators 在 gin 的 validator 上註冊自訂 tag：event_type、webhook_url
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	if err := v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return IsValidEventType(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("webhook_url", func(fl validator.FieldLevel) bool {
		return IsValidWebhookURL(fl.Field().String())
	})
}

func ParseObjectID(c *gin.Context, key string) (id primitive.ObjectID, cause error, responseErr error) {
	id, err := primitive.ObjectIDFromHex(c.Param(key))
	if err != nil {
		return primitive.NilObjectID, err, cErr.ValidatePathParamsErr("invalid " + key)
	}
	return id, nil, nil
}

// BindAndValidate 綁定 JSON；DTO 若實作 request.Validator 則使用自訂訊息
func BindAndValidate(c *gin.Context, req any) (cause error, responseErr error) {
	if err := c.ShouldBindJSON(req); err != nil {
		return err, request.GetError(req, err)
	}
	return nil, nil
}

// GetInt64Query 未帶參數時回傳 defaultVal
func GetInt64Query(c *gin.Context, key string, defaultVal int64) (int64, error) {
	if v := c.Query(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return n, nil
	}
	return defaultVal, nil
}
