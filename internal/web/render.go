package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/taskflow/internal/errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes {"error":{"code","message","status"}}.
// Internal errors are logged and replaced with a generic message.
func renderError(w http.ResponseWriter, log zerolog.Logger, err error) {
	appErr := errors.As(err)

	message := appErr.Message
	if appErr.Code == errors.ErrInternal {
		log.Error().Err(err).Msg("internal error")
		message = "internal error"
	}

	renderJSON(w, appErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(appErr.Code),
			"message": message,
			"status":  appErr.Status,
		},
	})
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.NewInvalidRequest("request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.NewInvalidRequest("request body is required")
		default:
			return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	return nil
}

// renderMarkdown converts model text to HTML. Raw HTML in the input is
// not passed through.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
