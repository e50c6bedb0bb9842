package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
)

// maxBodySize Grafana 请求体上限
const maxBodySize = 1 << 20

// Sender 告警提交方，*alert.Manager 即满足
type Sender interface {
	Submit(req alert.Request) []*dispatch.Handle
}

// Handler Grafana Webhook HTTP Handler
type Handler struct {
	sender  Sender
	channel notify.Channel
	logger  logger.Logger
}

// NewHandler 创建 Webhook Handler，告警发往 ch
func NewHandler(sender Sender, ch notify.Channel, l logger.Logger) *Handler {
	return &Handler{
		sender:  sender,
		channel: ch,
		logger:  logger.OrNoop(l).Named("grafana"),
	}
}

// ServeHTTP 实现 http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleGrafana(w, r)
}

// HandleGrafana 处理 Grafana Webhook 请求
// 告警异步投递，接受后立即返回 202
func (h *Handler) HandleGrafana(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respond(w, http.StatusMethodNotAllowed, false, "只支持 POST 方法", 0)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read grafana payload", "error", err)
		h.respond(w, http.StatusBadRequest, false, "读取请求体失败", 0)
		return
	}
	defer r.Body.Close()

	var payload GrafanaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.WarnContext(r.Context(), "invalid grafana payload", "error", err, "size", len(body))
		h.respond(w, http.StatusBadRequest, false, "JSON 格式错误", 0)
		return
	}

	reqs := payload.ToRequests(h.channel)
	if len(reqs) == 0 {
		h.logger.WarnContext(r.Context(), "grafana payload has no alerts", "receiver", payload.Receiver)
		h.respond(w, http.StatusOK, true, "没有告警需要发送", 0)
		return
	}

	for _, req := range reqs {
		h.sender.Submit(req)
	}

	h.logger.InfoContext(r.Context(), "grafana webhook accepted",
		"alert_count", len(reqs),
		"status", payload.Status,
		"receiver", payload.Receiver,
	)
	h.respond(w, http.StatusAccepted, true, "已接收", len(reqs))
}

func (h *Handler) respond(w http.ResponseWriter, code int, success bool, message string, accepted int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  success,
		"message":  message,
		"accepted": accepted,
	})
}
