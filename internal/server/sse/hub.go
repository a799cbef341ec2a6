package sse

import (
	"encoding/json"
	"sync"
	"time"

	"traffic-watch-go/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// Client repräsentiert einen einzelnen verbundenen SSE-Client
type Client chan []byte

// Hub verwaltet die Menge der aktiven Clients und sendet Broadcasts an sie
type Hub struct {
	// Registrierte Clients
	clients map[Client]bool

	// Eingehende Nachrichten von der Anwendung
	broadcast chan []byte

	// Registrierungsanfragen von Clients
	register chan Client

	// Abmeldeanfragen von Clients
	unregister chan Client

	// Mutex zum Schutz des simultanen Zugriffs auf die Clients-Map
	mu sync.Mutex
}

// CropSavedData definiert die Struktur der Daten, die über SSE gesendet werden
type CropSavedData struct {
	Event      string    `json:"event"`
	ID         uint      `json:"id"`
	CameraName string    `json:"camera_name"`
	Filename   string    `json:"filename"`
	CropURL    string    `json:"crop_url,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// ReviewSavedData beschreibt eine gespeicherte Klassifikation
type ReviewSavedData struct {
	Event      string    `json:"event"`
	ReviewID   uint      `json:"review_id"`
	CropID     uint      `json:"crop_id"`
	Classified bool      `json:"classified"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// NewHub erstellt eine neue Hub-Instanz
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100), // Puffer für 100 Nachrichten
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run startet die Verarbeitungsschleife des Hubs
// Dies sollte in einer separaten Goroutine ausgeführt werden
func (h *Hub) Run() {
	log.Info("SSE Hub started and running")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				clientCount := len(h.clients)
				log.Infof("SSE client unregistered. Total clients: %d", clientCount)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))

			for client := range h.clients {
				select {
				case client <- message:
					// Nachricht erfolgreich gesendet
				default:
					// Client-Kanal ist voll oder geschlossen
					log.Warn("SSE client channel full or closed, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registriert einen neuen Client am Hub
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister meldet einen Client vom Hub ab
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast sendet eine Nachricht an alle registrierten Clients
func (h *Hub) Broadcast(message []byte) {
	// Blockieren vermeiden, wenn der Broadcast-Kanal voll ist
	select {
	case h.broadcast <- message:
		// Nachricht erfolgreich zum Senden in die Queue gestellt
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastCropSaved formatiert Informationen über einen neuen Crop und sendet sie als Broadcast
func (h *Hub) BroadcastCropSaved(crop *models.Crop, cropURL string) {
	log.Infof("Broadcasting saved crop (ID: %d) to SSE clients", crop.ID)

	data := CropSavedData{
		Event:      "crop-saved",
		ID:         crop.ID,
		CameraName: crop.OriginalCamera,
		Filename:   crop.OriginalFilename,
		CropURL:    cropURL,
		SavedAt:    crop.SavedAt,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Failed to marshal crop data for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}

// BroadcastReviewSaved meldet eine gespeicherte oder aktualisierte Klassifikation
func (h *Hub) BroadcastReviewSaved(review *models.Review) {
	log.Infof("Broadcasting saved review (ID: %d, crop %d) to SSE clients", review.ID, review.CropID)

	data := ReviewSavedData{
		Event:      "review-saved",
		ReviewID:   review.ID,
		CropID:     review.CropID,
		Classified: review.IsClassified(),
		ReviewedAt: review.ReviewedAt,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Failed to marshal review data for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}
