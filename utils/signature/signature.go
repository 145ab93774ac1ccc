// Package signature 計算與驗證 webhook payload 的 HMAC-SHA256 簽章。
//
// 簽章以 hex 編碼放在 X-Webhook-Signature 標頭，內容是對「實際送出的 body bytes」
// 計算的結果；訂閱端必須以收到的原始 bytes 驗證，不可先解析再序列化。
package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SchemePrefix 標頭值的前綴，例如 "sha256=ab12..."
const SchemePrefix = "sha256="

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Header 回傳放進標頭的完整字串
func Header(secret string, payload []byte) string {
	return SchemePrefix + Sign(secret, payload)
}

// Verify 常數時間比對；接受有無 "sha256=" 前綴的簽章
func Verify(secret string, payload []byte, signature string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), SchemePrefix)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// NewSecret 產生 webhook 簽章密鑰（whsec_ + 32 bytes hex）
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
