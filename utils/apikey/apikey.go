package apikey

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	// Prefix 所有平台金鑰的固定前綴
	Prefix = "fg_live_"
	// DisplayLength keyPrefix 保留的明文長度（只用於顯示）
	DisplayLength = len(Prefix) + 6

	secretBytes = 32
)

// Generate 產生新的明文金鑰；明文只在建立時回傳一次
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash 以 HMAC-SHA256（pepper 為伺服器 secret）計算不可逆雜湊，hex 編碼
func Hash(plaintext, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// DisplayPrefix 取前 DisplayLength 個字元作為顯示用前綴
func DisplayPrefix(plaintext string) string {
	if len(plaintext) <= DisplayLength {
		return plaintext
	}
	return plaintext[:DisplayLength]
}

// LooksValid 格式檢查；比對仍以雜湊查詢為準
func LooksValid(plaintext string) bool {
	return strings.HasPrefix(plaintext, Prefix) && len(plaintext) > DisplayLength
}
