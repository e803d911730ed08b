package database

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/drummonds/gosign/config"
	"github.com/oklog/ulid/v2"
)

// Stamp variants. Each variant keeps its own independent image library and
// placements of a variant cycle round-robin through its images.
const (
	VariantSignature = "signature"
	VariantInitial   = "initial"
)

// StampVariants lists every variant the library accepts
var StampVariants = []string{VariantSignature, VariantInitial}

// StampImage is one stored stamp image in the library
type StampImage struct {
	ID        int // ID field assigned by the database
	ULID      ulid.ULID
	Variant   string // signature or initial
	Position  int    // round-robin order within the variant, 0-based
	Name      string // original upload filename
	PNG       []byte // raw PNG bytes, transparency preserved
	Width     int
	Height    int
	CreatedAt time.Time
}

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Repository defines database operations
type Repository interface {
	Close() error
	// Stamp library methods
	ReplaceStamps(variant string, stamps []*StampImage) error
	GetStamps(variant string) ([]StampImage, error)
	GetStamp(variant string, position int) (*StampImage, error)
	CountStamps(variant string) (int, error)
	DeleteStamps(variant string) (int, error)
	GetStampVariants() ([]StampVariantSummary, error)
	SaveConfig(config *config.ServerConfig) error
	GetConfig() (*config.ServerConfig, error)
	// Job tracking methods
	CreateJob(jobType JobType, documentULID string, message string) (*Job, error)
	UpdateJobProgress(jobID ulid.ULID, progress int, currentStep string) error
	UpdateJobStatus(jobID ulid.ULID, status JobStatus, message string) error
	UpdateJobError(jobID ulid.ULID, errorMsg string) error
	CompleteJob(jobID ulid.ULID, result string) error
	GetJob(jobID ulid.ULID) (*Job, error)
	GetRecentJobs(limit, offset int) ([]Job, error)
	GetActiveJobs() ([]Job, error)
	DeleteOldJobs(olderThan time.Duration) (int, error)
}

// FetchConfigFromDB pulls the server config from the database
func FetchConfigFromDB(db Repository) (config.ServerConfig, error) {
	serverConfig, err := db.GetConfig()
	if err != nil {
		Logger.Error("Unable to fetch server config from db", "error", err)
		return config.ServerConfig{}, err
	}
	return *serverConfig, nil
}

// WriteConfigToDB writes the serverconfig to the database for later retrieval
func WriteConfigToDB(serverConfig config.ServerConfig, db Repository) {
	err := db.SaveConfig(&serverConfig)
	if err != nil {
		Logger.Error("Unable to write server config to database", "error", err)
	}
}

// CalculateUUID for the incoming file
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
