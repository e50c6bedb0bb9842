package dingtalk

import (
	"strconv"

	"github.com/atmquant/atmquant/pkg/crypto"
)

// Sign 生成钉钉加签
// 与飞书相反：secret 作为 key，"timestamp\nsecret" 作为消息，timestamp 为毫秒
func Sign(timestampMillis int64, secret string) string {
	stringToSign := strconv.FormatInt(timestampMillis, 10) + "\n" + secret
	return crypto.NewHMACHasherFromString(secret).SignStringBase64(stringToSign)
}
