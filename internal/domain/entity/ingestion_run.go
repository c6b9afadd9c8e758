package entity

import "time"

// Resultado de una corrida diaria.
const (
	RunSuccess = "success"
	RunPartial = "partial" // Hubo fallos por línea en el almacén
	RunFailure = "failure" // ERP no disponible; el día se omitió
)

// IngestionRun contadores y resultado de procesar una fecha.
type IngestionRun struct {
	ID                  int64
	RunID               string
	ProcessingDate      time.Time
	Status              string
	Fetched             int
	Normalized          int
	NormalizationFailed int
	Accepted            int
	Rejected            int
	NotesCreated        int
	NotesDuplicate      int
	NotesFiltered       int
	Applications        int
	StoreFailures       int
	Error               string
	StartedAt           time.Time
	FinishedAt          time.Time
}
