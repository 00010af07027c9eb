// Package pageshandler renders the dashboard pages.
package pageshandler

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/zanzhit/flameguard/internal/domain/models"
	logshandler "github.com/zanzhit/flameguard/internal/http-server/handlers/logs"
	"github.com/zanzhit/flameguard/internal/lib/sl"
	"github.com/zanzhit/flameguard/internal/services/collection"
	"github.com/zanzhit/flameguard/internal/services/submission"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// Detection settings of the backend, shown on the alert pages.
const (
	DetectionModel      = "YOLOv8"
	ConfidenceThreshold = "0.25"
	AlertThreshold      = "0.8"
	EmailCooldown       = "5 minutes"
	ScreenshotInterval  = "30 seconds"
)

var DetectionClasses = []string{"Fire", "Smoke", "Other"}

type Webcam interface {
	State() models.WebcamState
}

type Flow interface {
	State() models.SubmissionState
	Links() submission.ArtifactLinks
}

type History interface {
	EnsureLoaded(ctx context.Context)
	FireSnapshot() collection.Snapshot[models.FireLog]
	VideoSnapshot() collection.Snapshot[models.VideoLog]
}

type NavItem struct {
	Title string
	Path  string
}

var nav = []NavItem{
	{"Home", "/"},
	{"Realtime Alert", "/realtime-alert"},
	{"Video Alert", "/video-alert"},
	{"Historical Logs", "/historical-logs"},
	{"Contact Us", "/contact"},
}

type Settings struct {
	Model               string
	ConfidenceThreshold string
	AlertThreshold      string
	EmailCooldown       string
	ScreenshotInterval  string
	Classes             []string
}

type Page struct {
	Title    string
	Path     string
	Nav      []NavItem
	Settings Settings

	Webcam      models.WebcamState
	WebcamLabel string

	Submission models.SubmissionState
	Links      submission.ArtifactLinks

	FireLogs  collection.Snapshot[logshandler.FireLogView]
	VideoLogs collection.Snapshot[logshandler.VideoLogView]
}

type PagesHandler struct {
	log     *slog.Logger
	pages   map[string]*template.Template
	webcam  Webcam
	flow    Flow
	history History
	links   logshandler.Links
}

func New(log *slog.Logger, webcam Webcam, flow Flow, history History, links logshandler.Links) (*PagesHandler, error) {
	pages := make(map[string]*template.Template)

	for _, name := range []string{"home", "realtime", "video", "history", "contact", "notfound"} {
		t, err := template.New("layout.html").ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}

	return &PagesHandler{
		log:     log,
		pages:   pages,
		webcam:  webcam,
		flow:    flow,
		history: history,
		links:   links,
	}, nil
}

// Static serves the page scripts and styles.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", h.page("Home", r))
}

func (h *PagesHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "realtime", h.page("Realtime Alert", r))
}

func (h *PagesHandler) Video(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "video", h.page("Video Alert", r))
}

func (h *PagesHandler) History(w http.ResponseWriter, r *http.Request) {
	h.history.EnsureLoaded(r.Context())

	p := h.page("Historical Logs", r)
	p.FireLogs = logshandler.Views(h.history.FireSnapshot(), logshandler.FireView(h.links))
	p.VideoLogs = logshandler.Views(h.history.VideoSnapshot(), logshandler.VideoView(h.links))

	h.render(w, r, http.StatusOK, "history", p)
}

func (h *PagesHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "contact", h.page("Contact Us", r))
}

func (h *PagesHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "notfound", h.page("Page not found", r))
}

func (h *PagesHandler) page(title string, r *http.Request) Page {
	st := h.webcam.State()

	label := "Inactive"
	if st.Running {
		label = "Active"
	}

	return Page{
		Title: title,
		Path:  r.URL.Path,
		Nav:   nav,
		Settings: Settings{
			Model:               DetectionModel,
			ConfidenceThreshold: ConfidenceThreshold,
			AlertThreshold:      AlertThreshold,
			EmailCooldown:       EmailCooldown,
			ScreenshotInterval:  ScreenshotInterval,
			Classes:             DetectionClasses,
		},
		Webcam:      st,
		WebcamLabel: label,
		Submission:  h.flow.State(),
		Links:       h.flow.Links(),
	}
}

func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	const op = "handlers.pages.render"

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := h.pages[name].Execute(w, p); err != nil {
		h.log.Error("failed to render page",
			slog.String("op", op),
			slog.String("page", name),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
	}
}
