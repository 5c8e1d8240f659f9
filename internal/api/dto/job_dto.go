package dto

// CreateJobRequest is the JSON body for job types that carry no file. File
// uploads (upload, pdf) arrive as multipart forms instead.
type CreateJobRequest struct {
	Type string  `json:"type" binding:"required"`
	Data JobData `json:"data"`
}

// JobData carries the type-specific fields of a job submission.
type JobData struct {
	VideoURL    string `json:"video_url"`
	ScormID     string `json:"scorm_id"`
	ScormName   string `json:"scorm_name"`
	CoursePath  string `json:"course_path"`
	ForceVision bool   `json:"force_vision"`
}

// CreateJobResponse acknowledges admission. Processing happens later.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ListVideosRequest is the query string of the video listing endpoint.
type ListVideosRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// VideoDTO is one row of the video listing.
type VideoDTO struct {
	ID                   string `json:"id"`
	FileName             string `json:"file_name"`
	SourceType           string `json:"source_type"`
	SourceURL            string `json:"source_url,omitempty"`
	Status               string `json:"status"`
	Transcript           string `json:"transcript,omitempty"`
	StructuredTranscript string `json:"structured_transcript,omitempty"`
	QuestionsAnswers     string `json:"questions_answers,omitempty"`
	CreatedAt            string `json:"created_at"`
}

// ListVideosResponse pages through videos newest-first.
type ListVideosResponse struct {
	Videos     []VideoDTO `json:"videos"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
