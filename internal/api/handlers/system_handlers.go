package handlers

import (
	"io"
	"net/http"
	"time"

	"traffic-watch-go/internal/server/sse"
	"traffic-watch-go/internal/utils"

	"github.com/gin-gonic/gin"
)

// SystemHandler behandelt Status- und Stream-Anfragen
type SystemHandler struct {
	sseHub *sse.Hub
}

// NewSystemHandler erstellt einen neuen System-Handler
func NewSystemHandler(sseHub *sse.Hub) *SystemHandler {
	return &SystemHandler{sseHub: sseHub}
}

// RegisterRoutes registriert Status- und Event-Routen
func (h *SystemHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.GET("/events", h.HandleSSE)
}

// GetStatus gibt den Systemstatus mit Ressourcenverbrauch zurück
func (h *SystemHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"system":    utils.GetSystemStats(),
	})
}

// HandleSSE behandelt SSE-Verbindungen für Echtzeit-Updates
func (h *SystemHandler) HandleSSE(c *gin.Context) {
	// SSE-Header setzen
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Client-Kanal erstellen
	client := make(sse.Client, 10) // Puffer für 10 Nachrichten

	h.sseHub.Register(client)
	defer h.sseHub.Unregister(client)

	c.Stream(func(w io.Writer) bool {
		msg, ok := <-client
		if !ok {
			return false // Kanal geschlossen, Stream beenden
		}
		c.SSEvent("message", string(msg))
		return true
	})
}
