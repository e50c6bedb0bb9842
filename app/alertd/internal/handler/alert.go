package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atmquant/atmquant/app/alertd/internal/ingest"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/webhook"
	"github.com/atmquant/atmquant/pkg/web"
	weberrors "github.com/atmquant/atmquant/pkg/web/errors"
)

// Config 接入配置
type Config struct {
	// GrafanaChannel Grafana 告警发往的渠道，默认全部
	GrafanaChannel string `mapstructure:"grafana_channel"`
}

// QueueStats 投递队列状态，*dispatch.Dispatcher 即满足
type QueueStats interface {
	QueueLen() int
	Running() int
}

// AlertHandler 告警接入处理器
type AlertHandler struct {
	sender  ingest.Sender
	stats   QueueStats
	grafana http.Handler
	logger  logger.Logger
}

// AcceptedResponse 接收回执
type AcceptedResponse struct {
	TaskIDs []string `json:"task_ids"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status  string `json:"status"`
	Queued  int    `json:"queued"`
	Running int    `json:"running"`
}

// NewAlertHandler 创建告警接入处理器
func NewAlertHandler(cfg *Config, sender ingest.Sender, stats QueueStats, l logger.Logger) (*AlertHandler, error) {
	l = logger.OrNoop(l).Named("handler.alert")

	var grafanaChannel string
	if cfg != nil {
		grafanaChannel = cfg.GrafanaChannel
	}
	ch, err := notify.ParseChannel(grafanaChannel)
	if err != nil {
		return nil, err
	}

	return &AlertHandler{
		sender:  sender,
		stats:   stats,
		grafana: webhook.NewHandler(sender, ch, l),
		logger:  l,
	}, nil
}

// Register 注册路由
func (h *AlertHandler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/alerts", h.Send)
		api.POST("/alerts/grafana", gin.WrapH(h.grafana))
	}
}

// Send 提交一条告警，异步投递
// @Summary 发送告警
// @Accept json
// @Produce json
// @Param request body ingest.Payload true "告警请求"
// @Success 202 {object} web.Response{data=AcceptedResponse}
// @Failure 400 {object} web.Response
// @Router /api/v1/alerts [post]
func (h *AlertHandler) Send(c *gin.Context) {
	var payload ingest.Payload
	if !web.BindAndValidate(c, &payload) {
		return
	}

	req, err := payload.ToRequest()
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "invalid alert request", "error", err)
		web.Error(c, weberrors.CodeInvalidParams, err.Error())
		return
	}

	handles := h.sender.Submit(req)
	web.Accepted(c, AcceptedResponse{TaskIDs: ingest.TaskIDs(handles)})
}

// Health 健康检查，附带队列深度
func (h *AlertHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if h.stats != nil {
		resp.Queued = h.stats.QueueLen()
		resp.Running = h.stats.Running()
	}
	web.Success(c, resp)
}
