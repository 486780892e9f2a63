package events

import "time"

// Evento publicado no tópico "oracle_samples" pelo oracle-ingest-service.
// Price/Confidence seguem o formato bruto do feed (confidence = 1 sigma).
type OracleSample struct {
	EventID     string    `json:"event_id"`
	Price       float64   `json:"price"`
	Confidence  float64   `json:"confidence"`
	Status      string    `json:"status"` // "trading" | "halted" | "unknown"
	PublishTime time.Time `json:"publish_time"`
	Source      string    `json:"source"`  // "oracle-simulator", "pyth", ...
	Version     int       `json:"version"` // incrementado a cada amostra
}
