package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmorgan81/decorai/internal/export"
	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/session"
)

var errNoResult = errors.New("no decorated image yet")

type sessionView struct {
	ID         string         `json:"id"`
	Status     session.Status `json:"status"`
	HasSource  bool           `json:"has_source"`
	Style      string         `json:"style,omitempty"`
	Error      string         `json:"error,omitempty"`
	Generation uint64         `json:"generation"`
	Result     *resultView    `json:"result,omitempty"`
}

type resultView struct {
	ID        string    `json:"id"`
	Style     string    `json:"style"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	Compare   string    `json:"compare"`
	Download  string    `json:"download"`
}

func viewOf(id string, snap session.Snapshot) sessionView {
	v := sessionView{
		ID:         id,
		Status:     snap.Status,
		HasSource:  snap.Source != nil,
		Style:      snap.Style,
		Error:      snap.Error,
		Generation: snap.Generation,
	}
	if r := snap.Result; r != nil {
		v.Result = &resultView{
			ID:        r.ID,
			Style:     r.Style,
			Image:     r.GeneratedImage.DataURI(),
			CreatedAt: r.CreatedAt,
			Compare:   "/sessions/" + id + "/compare",
			Download:  "/sessions/" + id + "/download",
		}
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		log.FromContextOrDiscard(r.Context()).Error("request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrMissingInput), errors.Is(err, image.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrSuperseded), errors.Is(err, errNoResult):
		return http.StatusConflict
	case errors.Is(err, export.ErrExportFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrCollaborator), errors.Is(err, session.ErrEmptyResult):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
