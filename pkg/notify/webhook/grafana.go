package webhook

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
)

// GrafanaPayload Grafana Webhook 的 JSON 格式
// 参考: https://grafana.com/docs/grafana/latest/alerting/manage-notifications/webhook-notifier/
type GrafanaPayload struct {
	Receiver          string            `json:"receiver"`
	Status            string            `json:"status"`
	Alerts            []GrafanaAlert    `json:"alerts"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Title             string            `json:"title"`
	State             string            `json:"state"`
	Message           string            `json:"message"`
}

// GrafanaAlert Grafana 单条告警
type GrafanaAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
	SilenceURL   string            `json:"silenceURL"`
	DashboardURL string            `json:"dashboardURL"`
	PanelURL     string            `json:"panelURL"`
	ValueString  string            `json:"valueString"`
}

// ToRequests 每条 Grafana 告警转换为一条文本告警请求
// 合约代码取自 labels 中的 symbol 或 contract，用于路由到品种专属群
func (p *GrafanaPayload) ToRequests(ch notify.Channel) []alert.Request {
	reqs := make([]alert.Request, 0, len(p.Alerts))

	for _, ga := range p.Alerts {
		reqs = append(reqs, alert.Request{
			Content: p.formatText(ga),
			Symbol:  p.extractSymbol(ga.Labels),
			Channel: ch,
			Level:   p.mapLevel(ga),
		})
	}

	return reqs
}

// mapLevel firing 时优先使用 severity 标签，resolved 视为 success
func (p *GrafanaPayload) mapLevel(ga GrafanaAlert) alert.Level {
	switch ga.Status {
	case "resolved":
		return alert.LevelSuccess
	case "firing":
		switch strings.ToLower(ga.Labels["severity"]) {
		case "warning", "warn":
			return alert.LevelWarning
		case "error":
			return alert.LevelError
		case "info":
			return alert.LevelInfo
		default:
			// Grafana 没有明确的严重程度，默认为 critical
			return alert.LevelCritical
		}
	default:
		return alert.LevelWarning
	}
}

func (p *GrafanaPayload) extractSymbol(labels map[string]string) string {
	if symbol := labels["symbol"]; symbol != "" {
		return symbol
	}
	return labels["contract"]
}

// extractService 从 Labels 中提取服务名
func (p *GrafanaPayload) extractService(labels map[string]string) string {
	for _, key := range []string{"service", "job", "instance", "alertname"} {
		if v := labels[key]; v != "" {
			return v
		}
	}
	return "未知服务"
}

// extractSummary 提取告警摘要
func (p *GrafanaPayload) extractSummary(ga GrafanaAlert) string {
	if summary := ga.Annotations["summary"]; summary != "" {
		return summary
	}
	if description := ga.Annotations["description"]; description != "" {
		return description
	}
	if alertname := ga.Labels["alertname"]; alertname != "" {
		return alertname
	}
	if ga.ValueString != "" {
		return ga.ValueString
	}
	return "告警触发"
}

// extractDescription summary 与 description 同时存在时 description 作为详情
func (p *GrafanaPayload) extractDescription(ga GrafanaAlert) string {
	if ga.Annotations["summary"] != "" {
		if description := ga.Annotations["description"]; description != "" {
			return description
		}
	}
	return ga.Annotations["message"]
}

// selectDashboardURL 选择 Dashboard URL
func (p *GrafanaPayload) selectDashboardURL(ga GrafanaAlert) string {
	for _, u := range []string{ga.DashboardURL, ga.PanelURL, ga.GeneratorURL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// formatText 拼成一段纯文本，两个平台都只发文本消息
func (p *GrafanaPayload) formatText(ga GrafanaAlert) string {
	var b strings.Builder

	state := "告警"
	if ga.Status == "resolved" {
		state = "恢复"
	}
	fmt.Fprintf(&b, "【%s】%s - %s\n", state, p.extractService(ga.Labels), p.extractSummary(ga))

	if desc := p.extractDescription(ga); desc != "" {
		fmt.Fprintf(&b, "详情: %s\n", desc)
	}

	keys := make([]string, 0, len(ga.Labels))
	for k := range ga.Labels {
		if k != "alertname" && k != "__name__" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, ga.Labels[k])
	}

	if t := p.parseTime(ga.StartsAt); !t.IsZero() {
		fmt.Fprintf(&b, "开始时间: %s\n", t.Format("2006-01-02 15:04:05"))
	}
	if t := p.parseTime(ga.EndsAt); !t.IsZero() && ga.Status == "resolved" {
		fmt.Fprintf(&b, "恢复时间: %s\n", t.Format("2006-01-02 15:04:05"))
	}
	if u := p.selectDashboardURL(ga); u != "" {
		fmt.Fprintf(&b, "监控大盘: %s\n", u)
	}
	if runbook := ga.Annotations["runbook_url"]; runbook != "" {
		fmt.Fprintf(&b, "处理手册: %s\n", runbook)
	}

	return strings.TrimRight(b.String(), "\n")
}

// parseTime 解析时间字符串，Grafana 用 0001-01-01 表示未结束
func (p *GrafanaPayload) parseTime(timeStr string) time.Time {
	if timeStr == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return time.Time{}
	}
	return t
}
