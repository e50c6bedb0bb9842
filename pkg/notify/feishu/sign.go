package feishu

import (
	"strconv"

	"github.com/atmquant/atmquant/pkg/crypto"
)

// Sign 生成飞书签名
// 以 "timestamp\nsecret" 作为 HmacSHA256 的 key，对空消息计算后 base64
// 参考: https://open.feishu.cn/document/client-docs/bot-v3/add-custom-bot
func Sign(timestamp int64, secret string) string {
	stringToSign := strconv.FormatInt(timestamp, 10) + "\n" + secret
	return crypto.NewHMACHasherFromString(stringToSign).SignBase64(nil)
}
