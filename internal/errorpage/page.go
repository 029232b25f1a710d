package errorpage

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/reqctx"
	"github.com/angeloszaimis/exception-flow/internal/respond"
)

// Body is the JSON form of the error page.
type Body struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Path      string    `json:"path"`
	Message   string    `json:"message,omitempty"`
	Exception string    `json:"exception,omitempty"`
}

type Options struct {
	IncludeMessage   bool
	IncludeException bool
}

// Page renders the container error page for an ERROR dispatch.
type Page struct {
	opts Options
	now  func() time.Time
}

func NewPage(opts Options) *Page {
	return &Page{opts: opts, now: time.Now}
}

func (p *Page) Render(w http.ResponseWriter, r *http.Request) error {
	attrs, ok := reqctx.ErrorAttributesFrom(r.Context())
	if !ok {
		attrs = reqctx.ErrorAttributes{
			Status:     http.StatusInternalServerError,
			RequestURI: r.URL.RequestURI(),
		}
	}

	body := p.body(attrs)

	if wantsJSON(r) {
		return respond.JSON(w, body.Status, body)
	}

	var sb strings.Builder
	sb.WriteString("Error Page\n\n")
	fmt.Fprintf(&sb, "There was an unexpected error (type=%s, status=%d).\n", body.Error, body.Status)
	fmt.Fprintf(&sb, "path: %s\n", body.Path)
	if body.Message != "" {
		fmt.Fprintf(&sb, "message: %s\n", body.Message)
	}
	if body.Exception != "" {
		fmt.Fprintf(&sb, "exception: %s\n", body.Exception)
	}

	return respond.Text(w, body.Status, sb.String())
}

func (p *Page) body(attrs reqctx.ErrorAttributes) Body {
	body := Body{
		Timestamp: p.now(),
		Status:    attrs.Status,
		Error:     http.StatusText(attrs.Status),
		Path:      attrs.RequestURI,
	}

	if p.opts.IncludeMessage {
		body.Message = attrs.Message
	}
	if p.opts.IncludeException && attrs.Err != nil {
		body.Exception = apperr.KindOf(attrs.Err).String()
	}

	return body
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
