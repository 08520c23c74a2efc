package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Room holds the spectators watching one debate session.
type Room struct {
	Clients map[*websocket.Conn]bool
	Mutex   sync.Mutex
}

var rooms = make(map[string]*Room)
var roomsMutex sync.Mutex

// SpectatorHandler upgrades a connection and registers it on the session's
// room. Spectators only receive; anything they send is discarded.
func SpectatorHandler(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session id"})
		return
	}

	roomsMutex.Lock()
	room, exists := rooms[sessionID]
	if !exists {
		room = &Room{Clients: make(map[*websocket.Conn]bool)}
		rooms[sessionID] = room
		log.Printf("Created spectator room for session %s", sessionID)
	}
	roomsMutex.Unlock()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	room.Mutex.Lock()
	room.Clients[conn] = true
	log.Printf("Spectator joined session %s (total: %d)", sessionID, len(room.Clients))
	room.Mutex.Unlock()

	// Drain reads until the spectator disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	room.Mutex.Lock()
	delete(room.Clients, conn)
	empty := len(room.Clients) == 0
	room.Mutex.Unlock()
	conn.Close()

	if empty {
		roomsMutex.Lock()
		if r, ok := rooms[sessionID]; ok {
			r.Mutex.Lock()
			if len(r.Clients) == 0 {
				delete(rooms, sessionID)
				log.Printf("Spectator room for session %s deleted as it became empty", sessionID)
			}
			r.Mutex.Unlock()
		}
		roomsMutex.Unlock()
	}
}

// Broadcast sends an event to every spectator of a session. Sessions with
// no spectators are skipped silently.
func Broadcast(sessionID string, event any) {
	roomsMutex.Lock()
	room, exists := rooms[sessionID]
	roomsMutex.Unlock()
	if !exists {
		return
	}

	room.Mutex.Lock()
	for conn := range room.Clients {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("WebSocket write error for session %s: %v", sessionID, err)
		}
	}
	room.Mutex.Unlock()
}
