package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"

	"github.com/cockroachdb/errors"
)

// ErrInvalidSignature 签名不是合法的 hex/base64 编码
var ErrInvalidSignature = errors.New("crypto: invalid signature encoding")

// HashAlgorithm HMAC 哈希算法
type HashAlgorithm int

const (
	SHA256 HashAlgorithm = iota
	SHA512
)

// HMACHasher 固定 key 的 HMAC 签名器
// 机器人加签中 key 与消息的取法因平台而异，调用方自行决定
type HMACHasher struct {
	key     []byte
	newHash func() hash.Hash
}

type HMACOption func(*HMACHasher)

func WithHashAlgorithm(algo HashAlgorithm) HMACOption {
	return func(h *HMACHasher) {
		if algo == SHA512 {
			h.newHash = sha512.New
		} else {
			h.newHash = sha256.New
		}
	}
}

func NewHMACHasher(key []byte, opts ...HMACOption) *HMACHasher {
	h := &HMACHasher{key: key, newHash: sha256.New}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewHMACHasherFromString 字符串 key
func NewHMACHasherFromString(key string, opts ...HMACOption) *HMACHasher {
	return NewHMACHasher([]byte(key), opts...)
}

// SignBytes 原始摘要，data 为 nil 时对空消息签名
func (h *HMACHasher) SignBytes(data []byte) []byte {
	mac := hmac.New(h.newHash, h.key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Sign 十六进制签名
func (h *HMACHasher) Sign(data []byte) string {
	return hex.EncodeToString(h.SignBytes(data))
}

// SignBase64 标准 base64 签名，飞书与钉钉都使用这种编码
func (h *HMACHasher) SignBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(h.SignBytes(data))
}

func (h *HMACHasher) SignStringBase64(s string) string {
	return h.SignBase64([]byte(s))
}

// Verify 常量时间比较十六进制签名
func (h *HMACHasher) Verify(data []byte, signature string) (bool, error) {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false, errors.Mark(errors.Wrap(err, "decode hex signature"), ErrInvalidSignature)
	}
	return hmac.Equal(got, h.SignBytes(data)), nil
}

// VerifyBase64 常量时间比较 base64 签名
func (h *HMACHasher) VerifyBase64(data []byte, signature string) (bool, error) {
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, errors.Mark(errors.Wrap(err, "decode base64 signature"), ErrInvalidSignature)
	}
	return hmac.Equal(got, h.SignBytes(data)), nil
}
