package validate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEventType(t *testing.T) {
	for _, ok := range []string{"transaction.created", "bank_sync.completed", "report.ready.v2"} {
		assert.True(t, IsValidEventType(ok), ok)
	}
	for _, bad := range []string{"", "transaction", "Transaction.Created", "a..b", ".x", "x."} {
		assert.False(t, IsValidEventType(bad), bad)
	}
}

func TestIsValidWebhookURL(t *testing.T) {
	assert.True(t, IsValidWebhookURL("https://hooks.example.com/fingate"))
	assert.True(t, IsValidWebhookURL("http://127.0.0.1:8080/cb"))
	assert.False(t, IsValidWebhookURL("ftp://example.com"))
	assert.False(t, IsValidWebhookURL("/relative"))
	assert.False(t, IsValidWebhookURL("::"))
}

func TestRegisterValidatorsIdempotent(t *testing.T) {
	assert.NoError(t, RegisterValidators())
	assert.NoError(t, RegisterValidators())
}

func testContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestGetInt64Query(t *testing.T) {
	n, err := GetInt64Query(testContext("/x?limit=25"), "limit", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	n, err = GetInt64Query(testContext("/x"), "limit", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = GetInt64Query(testContext("/x?limit=ten"), "limit", 0)
	assert.Error(t, err)
}

func TestParseObjectID(t *testing.T) {
	c := testContext("/x")
	c.Params = gin.Params{{Key: "webhookID", Value: "not-hex"}}
	_, cause, respErr := ParseObjectID(c, "webhookID")
	assert.Error(t, cause)
	require.Error(t, respErr)

	c.Params = gin.Params{{Key: "webhookID", Value: "65a1f0c2e4b0a1b2c3d4e5f6"}}
	id, cause, respErr := ParseObjectID(c, "webhookID")
	require.NoError(t, cause)
	require.NoError(t, respErr)
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", id.Hex())
}
