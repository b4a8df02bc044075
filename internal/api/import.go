package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"springsnow/internal/importer"
)

// ImportRequest 导入请求
type ImportRequest struct {
	ClearExisting bool `json:"clearExisting" form:"clearExisting"` // 是否清空现有日指标
}

// sseWriter 设置 SSE 响应头并返回发送函数
func sseWriter(c *gin.Context) (func(v any), bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return nil, false
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	return func(v any) {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}, true
}

// Import 按配置的三个源文件执行导入 (SSE 流式响应)
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	var req ImportRequest
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体"})
			return
		}
	} else {
		req.ClearExisting = c.DefaultPostForm("clearExisting", "false") == "true"
	}

	send, ok := sseWriter(c)
	if !ok {
		return
	}

	opts := importer.OptionsFromConfig(h.cfg)
	opts.ClearExisting = req.ClearExisting

	for event := range h.coordinator.Import(c.Request.Context(), opts) {
		send(event)
	}
}
