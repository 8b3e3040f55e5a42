package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Типы сообщений WebSocket
const (
	SubmissionStatusUpdateType = "SUBMISSION_STATUS_UPDATE"
	SubmissionCreatedType      = "SUBMISSION_CREATED"
)

// Message представляет формат сообщения WebSocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub хранит подключения клиентов портала, сгруппированные по пользователю
type Hub struct {
	clientsByUser map[uint]map[*client]bool
	register      chan *client
	unregister    chan *client
	done          chan struct{}
	mutex         sync.RWMutex
}

type client struct {
	conn     *websocket.Conn
	userID   uint
	clientID string
	writeMu  sync.Mutex
}

// write сериализует запись: gorilla/websocket не допускает параллельных писателей
func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func NewHub() *Hub {
	return &Hub{
		clientsByUser: make(map[uint]map[*client]bool),
		register:      make(chan *client),
		unregister:    make(chan *client),
		done:          make(chan struct{}),
	}
}

// Start запускает обработку регистраций в отдельной горутине
func (h *Hub) Start() {
	log.Printf("Запуск WebSocket Hub")
	go func() {
		for {
			select {
			case c := <-h.register:
				h.mutex.Lock()
				if _, ok := h.clientsByUser[c.userID]; !ok {
					h.clientsByUser[c.userID] = make(map[*client]bool)
				}
				h.clientsByUser[c.userID][c] = true
				h.mutex.Unlock()
				log.Printf("Клиент %s (userID=%d) подключен", c.clientID, c.userID)

			case c := <-h.unregister:
				h.mutex.Lock()
				if conns, ok := h.clientsByUser[c.userID]; ok {
					if _, exists := conns[c]; exists {
						delete(conns, c)
						c.conn.Close()
					}
					if len(conns) == 0 {
						delete(h.clientsByUser, c.userID)
					}
				}
				h.mutex.Unlock()
				log.Printf("Клиент %s (userID=%d) отключен", c.clientID, c.userID)

			case <-h.done:
				h.closeAll()
				return
			}
		}
	}()
}

// Stop закрывает все соединения
func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for userID, conns := range h.clientsByUser {
		for c := range conns {
			c.conn.Close()
		}
		delete(h.clientsByUser, userID)
	}
}

// Connections возвращает количество подключений пользователя
func (h *Hub) Connections(userID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clientsByUser[userID])
}

// BroadcastToUser отправляет сообщение всем подключениям пользователя
func (h *Hub) BroadcastToUser(userID uint, message *Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	connections, exists := h.clientsByUser[userID]
	if !exists || len(connections) == 0 {
		return
	}

	jsonMessage, err := json.Marshal(message)
	if err != nil {
		log.Printf("BroadcastToUser: ошибка при кодировании сообщения: %v", err)
		return
	}

	for cl := range connections {
		go func(c *client) {
			if err := c.write(jsonMessage); err != nil {
				log.Printf("BroadcastToUser: ошибка при отправке сообщения пользователю %d: %v", userID, err)
				select {
				case h.unregister <- c:
				case <-h.done:
				}
			}
		}(cl)
	}
}

// SendSubmissionStatusUpdate сообщает клиенту о смене статуса его заявки
func (h *Hub) SendSubmissionStatusUpdate(userID, submissionID uint, status string) {
	h.BroadcastToUser(userID, &Message{
		Type: SubmissionStatusUpdateType,
		Payload: map[string]interface{}{
			"submission_id": submissionID,
			"status":        status,
		},
	})
}

// SendSubmissionCreated сообщает клиенту о выданном пропуске (другие вкладки портала)
func (h *Hub) SendSubmissionCreated(userID, submissionID uint, qrCodeImage string) {
	h.BroadcastToUser(userID, &Message{
		Type: SubmissionCreatedType,
		Payload: map[string]interface{}{
			"submission_id": submissionID,
			"qr_code_image": qrCodeImage,
		},
	})
}

// Handler подключает авторизованного клиента. user_id кладет в контекст JWT middleware
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("user_id")
		if userID == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Требуется авторизация"})
			return
		}

		clientID := c.Query("client_id")
		if clientID == "" {
			clientID = fmt.Sprintf("user_%d_%d", userID, time.Now().UnixNano())
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return
		}

		cl := &client{conn: conn, userID: userID, clientID: clientID}
		select {
		case h.register <- cl:
			go h.readLoop(cl)
		case <-h.done:
			conn.Close()
		}
	}
}

// readLoop отвечает на ping и снимает регистрацию при закрытии соединения
func (h *Hub) readLoop(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		if msgType, ok := data["type"].(string); ok && msgType == "ping" {
			pong, _ := json.Marshal(map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			})
			if err := c.write(pong); err != nil {
				log.Printf("Ошибка при отправке pong клиенту %s: %v", c.clientID, err)
			}
		}
	}
}
