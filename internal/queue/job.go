package queue

import "time"

// JobType selects the handler a job is dispatched to.
type JobType string

const (
	TypeUpload JobType = "upload"
	TypeURL    JobType = "url"
	TypePDF    JobType = "pdf"
	TypeScorm  JobType = "scorm"
)

// Job status values. Completed and StatusError are terminal: a job never
// transitions out of them and never re-enters pending.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Payload is the type-specific data carried by a job. Exactly one concrete
// payload type exists per JobType, so the dispatcher can switch exhaustively.
type Payload interface {
	jobPayload()
}

// UploadPayload describes a locally uploaded media file.
type UploadPayload struct {
	FilePath string
	FileName string
}

// URLPayload describes a remote video to fetch a transcript for.
type URLPayload struct {
	VideoURL string
}

// PDFPayload describes a PDF document to extract and enrich.
type PDFPayload struct {
	FilePath    string
	FileName    string
	ForceVision bool
}

// ScormPayload identifies a SCORM course on the content API.
type ScormPayload struct {
	ScormID    string
	ScormName  string
	CoursePath string
}

func (UploadPayload) jobPayload() {}
func (URLPayload) jobPayload()    {}
func (PDFPayload) jobPayload()    {}
func (ScormPayload) jobPayload()  {}

// Result is the handler-specific payload of a completed job.
type Result struct {
	EntityID             string
	FileName             string
	Transcript           string
	StructuredTranscript string
	QuestionsAnswers     string
	Metadata             string
	DegradedStages       []string
	Message              string
}

// Job is one unit of queued work. All fields except Status, StartedAt,
// CompletedAt, Error and Result are set once at admission and never mutated.
type Job struct {
	ID          string
	Type        JobType
	Payload     Payload
	Status      string
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
	Result      *Result
}

// ResultSummary is the trimmed projection of a Result exposed to pollers.
type ResultSummary struct {
	EntityID       string   `json:"entity_id"`
	Message        string   `json:"message"`
	DegradedStages []string `json:"degraded_stages,omitempty"`
}

// JobView is a read-only status projection of a job.
type JobView struct {
	ID          string         `json:"id"`
	Type        JobType        `json:"type"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      *ResultSummary `json:"result,omitempty"`
}

// CurrentJobView identifies the in-flight job in queue info snapshots.
type CurrentJobView struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	StartedAt time.Time `json:"started_at"`
}

// Info is a point-in-time snapshot of queue counts.
type Info struct {
	Total      int             `json:"total"`
	Pending    int             `json:"pending"`
	Processing int             `json:"processing"`
	Completed  int             `json:"completed"`
	Error      int             `json:"error"`
	CurrentJob *CurrentJobView `json:"current_job"`
}

func (j *Job) view() JobView {
	v := JobView{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		Error:     j.Error,
	}
	if !j.StartedAt.IsZero() {
		t := j.StartedAt
		v.StartedAt = &t
	}
	if !j.CompletedAt.IsZero() {
		t := j.CompletedAt
		v.CompletedAt = &t
	}
	if j.Result != nil {
		v.Result = &ResultSummary{
			EntityID:       j.Result.EntityID,
			Message:        j.Result.Message,
			DegradedStages: j.Result.DegradedStages,
		}
	}
	return v
}
