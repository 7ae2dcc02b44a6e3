package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"cbir/internal/services"
)

const (
	OpSearch     = "search"
	OpListAll    = "list-all"
	OpUpload     = "upload"
	OpVote       = "vote"
	OpAnnotate   = "annotate"
	OpLogin      = "login"
	OpSignup     = "signup"
	OpPollErrors = "poll-errors"
)

// Search sends a text query and returns the matching images in backend order.
func (c *Client) Search(ctx context.Context, in SearchRequest) ([]Item, error) {
	req, err := jsonRequest(OpSearch, http.MethodPost, "/search", searchPayload{
		Query:        in.Query,
		SessionToken: strings.TrimSpace(in.SessionToken),
	})
	if err != nil {
		return nil, err
	}
	var resp imagesResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return decodeImages(OpSearch, resp)
}

// ListAll returns every image the backend holds.
func (c *Client) ListAll(ctx context.Context) ([]Item, error) {
	req := request{operation: OpListAll, method: http.MethodGet, path: "/all_images"}
	var resp imagesResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return decodeImages(OpListAll, resp)
}

func decodeImages(operation string, resp imagesResponse) ([]Item, error) {
	if len(resp.Images) != len(resp.Filenames) {
		return nil, operationError(operation, "malformed response")
	}
	items := make([]Item, 0, len(resp.Filenames))
	for i, name := range resp.Filenames {
		data, err := base64.StdEncoding.DecodeString(resp.Images[i])
		if err != nil {
			return nil, operationError(operation, "malformed response")
		}
		items = append(items, Item{Filename: name, Image: data})
	}
	return items, nil
}

// Upload submits one multipart batch. The gateway never retries.
func (c *Client) Upload(ctx context.Context, in UploadRequest) (UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range in.Files {
		part, err := writer.CreateFormFile("files[]", file.Name)
		if err != nil {
			return UploadResult{}, services.Wrap(services.ErrValidation, OpUpload, "build form", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return UploadResult{}, services.Wrap(services.ErrValidation, OpUpload, "build form", err)
		}
	}
	fields := [][2]string{
		{"session_token", strings.TrimSpace(in.SessionToken)},
		{"redact_faces", strconv.FormatBool(in.RedactFaces)},
		{"redact_text", strconv.FormatBool(in.RedactText)},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return UploadResult{}, services.Wrap(services.ErrValidation, OpUpload, "build form", err)
		}
	}
	if err := writer.Close(); err != nil {
		return UploadResult{}, services.Wrap(services.ErrValidation, OpUpload, "build form", err)
	}

	req := request{
		operation:   OpUpload,
		method:      http.MethodPost,
		path:        "/upload",
		body:        &buf,
		contentType: writer.FormDataContentType(),
	}
	var result UploadResult
	if err := c.do(ctx, req, &result); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// Vote records a relevance judgement for filename under query and returns the
// backend's acknowledgement message.
func (c *Client) Vote(ctx context.Context, filename string, vote Vote, query string) (string, error) {
	req, err := jsonRequest(OpVote, http.MethodPost, "/feedback", feedbackPayload{
		Filename: filename,
		Feedback: vote,
		Query:    query,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Annotate attaches a free-text sentence to filename.
func (c *Client) Annotate(ctx context.Context, filename, sentence string) (string, error) {
	req, err := jsonRequest(OpAnnotate, http.MethodPost, "/user_sentence", sentencePayload{
		Filename: filename,
		Sentence: sentence,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Login exchanges credentials for a session token. An empty token is returned
// as-is; callers decide what an absent token means.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	req, err := jsonRequest(OpLogin, http.MethodPost, "/login", credentialsPayload{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	var resp loginResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Token), nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, username, password string) (string, error) {
	req, err := jsonRequest(OpSignup, http.MethodPost, "/signup", credentialsPayload{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// PollErrors fetches the backend's current processing errors.
func (c *Client) PollErrors(ctx context.Context) (ErrorReport, error) {
	req := request{operation: OpPollErrors, method: http.MethodGet, path: "/processing_errors"}
	var report ErrorReport
	if err := c.do(ctx, req, &report); err != nil {
		return ErrorReport{}, err
	}
	return report, nil
}
