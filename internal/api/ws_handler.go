package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"cvforge/internal/auth"
	"cvforge/internal/worker"
)

const (
	wsAuthTimeout   = 10 * time.Second
	wsPingInterval  = 30 * time.Second
	wsWriteDeadline = 5 * time.Second
)

// WsHandler 把 Redis Pub/Sub 上的用户通知（缩略图完成等）转发给编辑器前端。
type WsHandler struct {
	redisClient    *redis.Client
	authService    *auth.Service
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。
func NewWsHandler(redisClient *redis.Client, authService *auth.Service, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// wsEvent 是发给前端的统一信封，Data 只接受 worker 定义的通知协议。
type wsEvent struct {
	Type string                      `json:"type"`
	Data worker.PreviewNotifyMessage `json:"data"`
}

// HandleConnection 升级连接后先做一次带超时的认证握手，
// 第一条消息必须是 {"type":"auth","token":...}，之后才开始转发通知。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 认证之后客户端不再发业务消息；这个循环只用来感知断开。
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := h.forwardNotifications(ctx, conn, userID, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// authenticate 读取首条消息并校验访问令牌，超时或非法直接关闭连接。
func (h *WsHandler) authenticate(conn *websocket.Conn) (uint, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	_, message, err := conn.ReadMessage()
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, fmt.Errorf("read auth message: %w", err)
	}

	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return 0, fmt.Errorf("invalid auth message")
	}

	claims, err := h.authService.ValidateToken(authMsg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		return 0, fmt.Errorf("validate token: %w", err)
	}
	if claims.TokenType != "access" {
		writeClose(conn, websocket.ClosePolicyViolation, "access token required")
		return 0, fmt.Errorf("invalid token type: %s", claims.TokenType)
	}
	if claims.MustChangePassword {
		writeClose(conn, websocket.ClosePolicyViolation, "password change required")
		return 0, fmt.Errorf("password change required")
	}
	return claims.UserID, nil
}

// forwardNotifications 订阅用户频道并把通过校验的通知推给客户端。
// 返回 nil 表示连接随请求 context 正常结束。
func (h *WsHandler) forwardNotifications(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channel := worker.UserNotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("pubsub channel closed")
			}

			event, err := decodeNotifyEvent([]byte(msg.Payload))
			if err != nil {
				// 频道里出现坏消息只丢弃，不能断掉整条连接。
				log.Warn("drop malformed notification", slog.Any("error", err))
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return fmt.Errorf("write notification: %w", err)
			}
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteDeadline)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

// decodeNotifyEvent 解析 worker 发布的通知并包进前端信封。
// 缺少 status 或 resume_id 的载荷视为非法。
func decodeNotifyEvent(payload []byte) (wsEvent, error) {
	var notice worker.PreviewNotifyMessage
	if err := json.Unmarshal(payload, &notice); err != nil {
		return wsEvent{}, fmt.Errorf("decode notification: %w", err)
	}
	if notice.Status == "" || notice.ResumeID == 0 {
		return wsEvent{}, fmt.Errorf("incomplete notification: status=%q resume_id=%d", notice.Status, notice.ResumeID)
	}
	return wsEvent{Type: "preview", Data: notice}, nil
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteDeadline)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
