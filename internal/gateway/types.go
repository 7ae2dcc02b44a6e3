package gateway

import "strings"

// Vote is the relevance judgement sent with feedback.
type Vote string

const (
	VoteNone     Vote = ""
	VotePositive Vote = "positive"
	VoteNegative Vote = "negative"
)

// Valid reports whether v is a judgement the backend accepts.
func (v Vote) Valid() bool {
	return v == VotePositive || v == VoteNegative
}

// Item is one retrieved image.
type Item struct {
	Filename string
	Image    []byte
}

// SearchRequest describes a text query.
type SearchRequest struct {
	Query        string
	SessionToken string
}

// UploadFile is one file in an upload batch.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadRequest describes one multipart submission.
type UploadRequest struct {
	Files        []UploadFile
	SessionToken string
	RedactFaces  bool
	RedactText   bool
}

// UploadResult is the backend's answer to an accepted upload. All fields are
// optional on the wire.
type UploadResult struct {
	Message      string   `json:"message"`
	ValidFiles   []string `json:"valid_files"`
	InvalidFiles []string `json:"invalid_files"`
}

// ProcessingError is an asynchronous failure reported for an accepted file.
type ProcessingError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ErrorReport is the poll-errors payload.
type ErrorReport struct {
	Message string            `json:"message"`
	Errors  []ProcessingError `json:"errors"`
}

type searchPayload struct {
	Query        string `json:"query"`
	SessionToken string `json:"session_token,omitempty"`
}

type imagesResponse struct {
	Images    []string `json:"images"`
	Filenames []string `json:"filenames"`
}

type feedbackPayload struct {
	Filename string `json:"filename"`
	Feedback Vote   `json:"feedback"`
	Query    string `json:"query"`
}

type sentencePayload struct {
	Filename string `json:"filename"`
	Sentence string `json:"sentence"`
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// bodyFailure is implemented by payloads that can report a failure inside a
// 2xx answer.
type bodyFailure interface {
	failureMessage() string
}

type loginResponse struct {
	Token string `json:"token"`
	Error string `json:"error"`
}

func (r *loginResponse) failureMessage() string {
	if strings.TrimSpace(r.Token) != "" {
		return ""
	}
	return strings.TrimSpace(r.Error)
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r *messageResponse) failureMessage() string {
	return strings.TrimSpace(r.Error)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
