package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/page"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/go-chi/chi/v5"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) styles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"styles": s.randomizer.Styles()})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, sess := s.registry.Create()
	log.FromContextOrDiscard(r.Context()).Info("session created", "session", id)
	writeJSON(w, http.StatusCreated, viewOf(id, sess.Snapshot()))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess.Snapshot()))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Delete(id) {
		writeError(w, r, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSource(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := s.readSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.SetSourceImage(img); err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContextOrDiscard(r.Context()).Info("source image set", "session", id, "media_type", img.MediaType, "bytes", len(img.Data))
	writeJSON(w, http.StatusOK, viewOf(id, sess.Snapshot()))
}

func (s *Server) decorate(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body struct {
		Style string `json:"style"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, fmt.Errorf("%w: %w", session.ErrMissingInput, err))
		return
	}

	ch, err := sess.Submit(detach(r), body.Style)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.submitted(w, r, id, sess, ch)
}

func (s *Server) surprise(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	style, ch, err := sess.SubmitRandom(detach(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContextOrDiscard(r.Context()).Info("drew random style", "session", id, "style", style)
	s.submitted(w, r, id, sess, ch)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, viewOf(id, sess.Snapshot()))
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	id, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := sess.Snapshot().Result
	if result == nil {
		writeError(w, r, errNoResult)
		return
	}

	html, err := s.templator.Template(r.Context(), page.ParamsFor(result, "/sessions/"+id+"/download"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	_, sess, err := s.lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := sess.Snapshot().Result
	if result == nil {
		writeError(w, r, errNoResult)
		return
	}

	artifact, err := s.exporter.Export(r.Context(), result)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	_, _ = w.Write(artifact.Data)
}

func (s *Server) lookup(r *http.Request) (string, session.Session, error) {
	id := chi.URLParam(r, "id")
	sess, err := s.registry.Get(id)
	return id, sess, err
}

// submitted answers 202 right away, or blocks until the decoration settles
// when the caller asked to wait.
func (s *Server) submitted(w http.ResponseWriter, r *http.Request, id string, sess session.Session, ch <-chan session.Settlement) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		writeJSON(w, http.StatusAccepted, viewOf(id, sess.Snapshot()))
		return
	}

	select {
	case st := <-ch:
		if errors.Is(st.Err, session.ErrSuperseded) {
			writeError(w, r, st.Err)
			return
		}
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, viewOf(id, sess.Snapshot()))
}

func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (image.Encoded, error) {
	limit := s.maxUpload
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, header, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return image.Encoded{}, fmt.Errorf("%w: no image field", session.ErrMissingInput)
		}
		if err != nil {
			return image.Encoded{}, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return image.Encoded{}, err
		}
		return encoded(data, header.Header.Get("Content-Type")), nil

	case "application/json":
		var body struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return image.Encoded{}, err
			}
			return image.Encoded{}, fmt.Errorf("%w: %w", session.ErrMissingInput, err)
		}
		if strings.TrimSpace(body.Image) == "" {
			return image.Encoded{}, fmt.Errorf("%w: no image", session.ErrMissingInput)
		}
		return image.ParseDataURI(body.Image)

	default:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return image.Encoded{}, err
		}
		if len(data) == 0 {
			return image.Encoded{}, fmt.Errorf("%w: empty body", session.ErrMissingInput)
		}
		return encoded(data, mediaType), nil
	}
}

func encoded(data []byte, contentType string) image.Encoded {
	if strings.HasPrefix(contentType, "image/") {
		return image.Encoded{Data: data, MediaType: contentType}
	}
	return image.Sniff(data)
}

// detach keeps the request's values, including its logger, but not its
// cancellation, so a decoration outlives the request that started it.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
