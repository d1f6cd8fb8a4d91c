package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
	"time"
)

const (
	signatureMethod  = "HmacSHA256"
	signatureVersion = "2"
	timestampLayout  = "2006-01-02T15:04:05"
)

// Signer Huobi 风格签名 v2：
// METHOD \n host \n path \n 按 key 排序的 query，HmacSHA256 后 base64
type Signer struct {
	accessKey string
	secretKey []byte
	now       func() time.Time
}

func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{
		accessKey: accessKey,
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

// Sign 返回带签名的 query 参数（params 可以为 nil）
func (s *Signer) Sign(method, host, path string, params url.Values) url.Values {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("AccessKeyId", s.accessKey)
	q.Set("SignatureMethod", signatureMethod)
	q.Set("SignatureVersion", signatureVersion)
	q.Set("Timestamp", s.now().UTC().Format(timestampLayout))

	payload := strings.Join([]string{strings.ToUpper(method), strings.ToLower(host), path, q.Encode()}, "\n")
	q.Set("Signature", s.compute(payload))
	return q
}

func (s *Signer) compute(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Wipe 清空内存中的密钥
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	for i := range s.secretKey {
		s.secretKey[i] = 0
	}
}
