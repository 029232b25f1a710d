package exhandler

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/exception-flow/internal/apperr"
	"github.com/angeloszaimis/exception-flow/internal/dispatch"
	"github.com/angeloszaimis/exception-flow/internal/reqctx"
	"github.com/angeloszaimis/exception-flow/internal/respond"
)

// ResolverName identifies the mapper in resolutions and metrics.
const ResolverName = "exhandler"

const (
	CodeBad    = "BAD"
	CodeUserEx = "USER-EX"
	CodeEx     = "EX"
)

type ErrorResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Entry maps the failures Match accepts to a status and body.
type Entry struct {
	Name   string
	Match  func(error) bool
	Handle func(error) (int, ErrorResult)
}

// Respond builds a Handle that answers status with code and the failure's
// message.
func Respond(status int, code string) func(error) (int, ErrorResult) {
	return func(err error) (int, ErrorResult) {
		return status, ErrorResult{Code: code, Message: apperr.Message(err)}
	}
}

func matchAll(error) bool { return true }

// DefaultEntries is the table used by the structured API.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "illegalExHandle", Match: apperr.IsInvalidArgument, Handle: Respond(http.StatusBadRequest, CodeBad)},
		{Name: "userExHandle", Match: apperr.IsUser, Handle: Respond(http.StatusBadRequest, CodeUserEx)},
		{Name: "exHandle", Match: matchAll, Handle: Respond(http.StatusInternalServerError, CodeEx)},
	}
}

// Mapper resolves failures through an ordered table; the first matching
// entry wins.
type Mapper struct {
	logger  *slog.Logger
	entries []Entry
}

func New(logger *slog.Logger, entries ...Entry) *Mapper {
	if len(entries) == 0 {
		entries = DefaultEntries()
	}
	return &Mapper{logger: logger, entries: entries}
}

// Map returns the entry that handles err along with its answer.
func (m *Mapper) Map(err error) (Entry, int, ErrorResult, bool) {
	for _, e := range m.entries {
		if e.Match(err) {
			status, result := e.Handle(err)
			return e, status, result, true
		}
	}
	return Entry{}, 0, ErrorResult{}, false
}

func (m *Mapper) Resolve(w http.ResponseWriter, r *http.Request, handler string, err error) (dispatch.Resolution, bool) {
	entry, status, result, ok := m.Map(err)
	if !ok {
		return dispatch.Resolution{}, false
	}

	id, _ := reqctx.CorrelationID(r.Context())
	m.logger.Error("[exceptionHandler] ex",
		slog.String("id", id),
		slog.String("handler", handler),
		slog.String("entry", entry.Name),
		slog.Any("err", err))

	if werr := respond.JSON(w, status, result); werr != nil {
		m.logger.Warn("failed to write error result", slog.String("id", id), slog.Any("err", werr))
	}

	return dispatch.Resolution{Resolver: ResolverName, Code: result.Code, Status: status}, true
}
