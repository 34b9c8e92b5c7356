package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/suhufapp/suhuf/internal/news"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the realtime message sent for each new article.
type Event struct {
	Type    string       `json:"type"`
	Article news.Article `json:"article"`
}

// Hub keeps websocket subscribers per language.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *Hub) Name() string { return "websocket" }

func (h *Hub) Join(language string, ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[language]
	if !ok {
		room = make(map[*websocket.Conn]struct{})
		h.rooms[language] = room
	}
	room[ws] = struct{}{}
}

func (h *Hub) Leave(language string, ws *websocket.Conn) {
	h.mu.Lock()
	if room, ok := h.rooms[language]; ok {
		delete(room, ws)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

// Subscribers counts connections for language.
func (h *Hub) Subscribers(language string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[language])
}

// Publish writes the article to every subscriber of its language. Broken
// connections are dropped.
func (h *Hub) Publish(_ context.Context, a news.Article) error {
	payload, err := json.Marshal(Event{Type: "article", Article: a})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.rooms[a.Language] {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(h.rooms[a.Language], ws)
		}
	}
	return nil
}

// WSHandler upgrades GET /ws?language=ar|en and keeps the subscription until
// the client goes away.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		language := c.Query("language")
		if !news.ValidLanguage(language) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "language must be 'ar' or 'en'"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		hub.Join(language, ws)
		// Clients only listen; reading detects disconnects.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		hub.Leave(language, ws)
	}
}
