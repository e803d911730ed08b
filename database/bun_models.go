package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunStampImage represents the stamp_images table for Bun ORM
type BunStampImage struct {
	bun.BaseModel `bun:"table:stamp_images,alias:si"`

	ID        int       `bun:"id,pk,autoincrement"`
	ULID      string    `bun:"ulid,notnull,unique"` // Stored as string in DB
	Variant   string    `bun:"variant,notnull"`
	Position  int       `bun:"position,notnull"`
	Name      string    `bun:"name,notnull"`
	PNG       []byte    `bun:"png,notnull"`
	Width     int       `bun:"width,notnull"`
	Height    int       `bun:"height,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToStampImage converts BunStampImage to StampImage
func (bs *BunStampImage) ToStampImage() (*StampImage, error) {
	parsedULID, err := ulid.Parse(bs.ULID)
	if err != nil {
		return nil, err
	}

	return &StampImage{
		ID:        bs.ID,
		ULID:      parsedULID,
		Variant:   bs.Variant,
		Position:  bs.Position,
		Name:      bs.Name,
		PNG:       bs.PNG,
		Width:     bs.Width,
		Height:    bs.Height,
		CreatedAt: bs.CreatedAt,
	}, nil
}

// FromStampImage converts StampImage to BunStampImage
func FromStampImage(stamp *StampImage) *BunStampImage {
	return &BunStampImage{
		ID:        stamp.ID,
		ULID:      stamp.ULID.String(),
		Variant:   stamp.Variant,
		Position:  stamp.Position,
		Name:      stamp.Name,
		PNG:       stamp.PNG,
		Width:     stamp.Width,
		Height:    stamp.Height,
		CreatedAt: stamp.CreatedAt,
	}
}

// BunServerConfig represents the server_config table for Bun ORM
type BunServerConfig struct {
	bun.BaseModel `bun:"table:server_config,alias:sc"`

	ID                   int       `bun:"id,pk"`
	ListenAddrIP         string    `bun:"listen_addr_ip,default:''"`
	ListenAddrPort       string    `bun:"listen_addr_port,notnull,default:'8000'"`
	StoragePath          string    `bun:"storage_path,notnull,default:''"`
	SessionTTLHours      int       `bun:"session_ttl_hours,notnull,default:24"`
	CleanupSchedule      string    `bun:"cleanup_schedule,notnull,default:'@every 1h'"`
	MaxUploadMB          int       `bun:"max_upload_mb,notnull,default:50"`
	PDFRenderer          string    `bun:"pdf_renderer,notnull,default:'fitz'"`
	PDFExporter          string    `bun:"pdf_exporter,notnull,default:'raster'"`
	UseReverseProxy      bool      `bun:"use_reverse_proxy,notnull,default:false"`
	BaseURL              string    `bun:"base_url,default:''"`
	DefaultStampHeightPx int       `bun:"default_stamp_height_px,notnull,default:100"`
	ServerAPIURL         string    `bun:"server_api_url,default:''"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt            time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// BunJob represents the jobs table for Bun ORM
type BunJob struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID           string     `bun:"id,pk"` // ULID as string
	Type         string     `bun:"type,notnull"`
	Status       string     `bun:"status,default:'pending'"`
	Progress     int        `bun:"progress,default:0"`
	CurrentStep  string     `bun:"current_step,default:''"`
	TotalSteps   int        `bun:"total_steps,default:0"`
	Message      string     `bun:"message,default:''"`
	Error        string     `bun:"error,nullzero"`
	Result       string     `bun:"result,nullzero"`
	DocumentULID string     `bun:"document_ulid,default:''"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	StartedAt    *time.Time `bun:"started_at,nullzero"`
	CompletedAt  *time.Time `bun:"completed_at,nullzero"`
}

// ToJob converts BunJob to Job
func (bj *BunJob) ToJob() (*Job, error) {
	parsedULID, err := ulid.Parse(bj.ID)
	if err != nil {
		return nil, err
	}

	return &Job{
		ID:           parsedULID,
		Type:         JobType(bj.Type),
		Status:       JobStatus(bj.Status),
		Progress:     bj.Progress,
		CurrentStep:  bj.CurrentStep,
		TotalSteps:   bj.TotalSteps,
		Message:      bj.Message,
		Error:        bj.Error,
		Result:       bj.Result,
		DocumentULID: bj.DocumentULID,
		CreatedAt:    bj.CreatedAt,
		UpdatedAt:    bj.UpdatedAt,
		StartedAt:    bj.StartedAt,
		CompletedAt:  bj.CompletedAt,
	}, nil
}

// FromJob converts Job to BunJob
func FromJob(job *Job) *BunJob {
	return &BunJob{
		ID:           job.ID.String(),
		Type:         string(job.Type),
		Status:       string(job.Status),
		Progress:     job.Progress,
		CurrentStep:  job.CurrentStep,
		TotalSteps:   job.TotalSteps,
		Message:      job.Message,
		Error:        job.Error,
		Result:       job.Result,
		DocumentULID: job.DocumentULID,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}
