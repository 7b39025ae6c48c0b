package job

import (
	"time"

	"github.com/google/uuid"
)

// SourceHospitalScrape tags every posting written by this pipeline.
const SourceHospitalScrape = "hospital_scrape"

// Record is one normalized posting as produced by extraction. GUID is the
// canonical absolute posting URL and the idempotency key for persistence.
type Record struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Company  string `json:"company"`
	Location string `json:"location,omitempty"`
	GUID     string `json:"guid"`
}

type Posting struct {
	ID           uuid.UUID
	GUID         string
	Title        string
	ApplyURL     string
	HospitalID   *uuid.UUID
	HospitalName string
	Location     *string
	Source       string
	CreatedAt    time.Time
	LastSeenAt   time.Time
}
