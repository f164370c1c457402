package httprouter

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/tokenvote/log"
)

// Message is what a namespace hands to a handler. Data is the decoded
// request, whose type depends on the namespace. Handlers must reply through
// Context.Send.
type Message struct {
	Data      any
	TimeStamp time.Time
	Path      []string
	Context   *HTTPContext
}

// HTTPContext wraps the request and its response writer.
type HTTPContext struct {
	Writer  http.ResponseWriter
	Request *http.Request

	contentType string
	sent        chan struct{}
}

// SetResponseContentType overrides DefaultContentType for the response.
func (h *HTTPContext) SetResponseContentType(contentType string) {
	h.contentType = contentType
}

// URLParam returns the value of the {key} path parameter.
func (h *HTTPContext) URLParam(key string) string {
	return chi.URLParam(h.Request, key)
}

// Send replies to the request with msg and the given status code. It must
// be called exactly once per request.
func (h *HTTPContext) Send(msg []byte, httpStatusCode int) error {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("recovered http send panic: %v", r)
		}
	}()
	defer close(h.sent)

	if httpStatusCode < 100 || httpStatusCode >= 600 {
		return fmt.Errorf("http status code %d not supported", httpStatusCode)
	}
	if h.Request.Context().Err() != nil {
		return errors.New("connection is closed")
	}
	if h.contentType == "" {
		h.Writer.Header().Set("Content-Type", DefaultContentType)
	} else {
		h.Writer.Header().Set("Content-Type", h.contentType)
	}
	if httpStatusCode == http.StatusNoContent {
		h.Writer.WriteHeader(httpStatusCode)
		return nil
	}
	// the body is terminated with a newline
	h.Writer.Header().Set("Content-Length", strconv.Itoa(len(msg)+1))
	h.Writer.WriteHeader(httpStatusCode)
	log.Debugw("http response", "status", httpStatusCode, "size", len(msg))
	if _, err := h.Writer.Write(msg); err != nil {
		return err
	}
	_, err := h.Writer.Write([]byte("\n"))
	return err
}
