package feishu

// textMessage 飞书文本消息请求体，字段顺序即线上顺序
type textMessage struct {
	Timestamp int64       `json:"timestamp"`
	Sign      string      `json:"sign"`
	MsgType   string      `json:"msg_type"`
	Content   textContent `json:"content"`
}

type textContent struct {
	Text string `json:"text"`
}

// response 飞书机器人响应
// 新版接口返回 code/msg，旧版返回 StatusCode/StatusMessage
type response struct {
	Code          int    `json:"code"`
	Msg           string `json:"msg"`
	StatusCode    int    `json:"StatusCode"`
	StatusMessage string `json:"StatusMessage"`
}
