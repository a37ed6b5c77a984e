package web

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/oshokin/walle-eyes/internal/domain/face"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	"github.com/oshokin/walle-eyes/internal/domain/servo"
	"github.com/oshokin/walle-eyes/internal/logger"
)

// ActorHeader optionally names the user sending a command.
const ActorHeader = "X-Actor-Username"

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Execute(ctx context.Context, actor *face.Actor, verb string) (string, error)
	Status(ctx context.Context) *face.Status
}

//go:embed index.html.tmpl
var indexSource string

var indexTemplate = template.Must(template.New("index").Parse(indexSource))

type button struct {
	Name        string
	Label       string
	Description string
}

// NewRouter builds the HTTP handler. The control page is rendered once.
func NewRouter(ctx context.Context, service Service) (http.Handler, error) {
	page, err := renderIndex()
	if err != nil {
		return nil, err
	}

	h := &handler{
		service: service,
		page:    page,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(ctx))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/ping", h.ping)
	r.Get("/api/status", h.status)

	r.Get("/{verb}", h.execute)
	r.Post("/{verb}", h.execute)

	return r, nil
}

type handler struct {
	service Service
	page    string
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	render.HTML(w, r, h.page)
}

func (h *handler) ping(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "pong")
}

func (h *handler) execute(w http.ResponseWriter, r *http.Request) {
	verb := chi.URLParam(r, "verb")

	reply, err := h.service.Execute(r.Context(), actorFromRequest(r), verb)

	switch {
	case err == nil:
		render.PlainText(w, r, reply)
	case errors.Is(err, gesture.ErrUnknownCommand), errors.Is(err, gesture.ErrUnavailable):
		render.Status(r, http.StatusNotFound)
		render.PlainText(w, r, "404")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		render.Status(r, http.StatusServiceUnavailable)
		render.PlainText(w, r, err.Error())
	default:
		render.Status(r, http.StatusInternalServerError)
		render.PlainText(w, r, err.Error())
	}
}

// statusView is the JSON shape of face.Status.
type statusView struct {
	Actuators   []servo.Snapshot `json:"actuators"`
	Busy        bool             `json:"busy"`
	LastCommand string           `json:"last_command"`
	LastError   string           `json:"last_error"`
	LastActor   *actorView       `json:"last_actor"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

type actorView struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, toStatusView(h.service.Status(r.Context())))
}

func toStatusView(st *face.Status) statusView {
	if st == nil {
		return statusView{Actuators: []servo.Snapshot{}}
	}

	view := statusView{
		Actuators:   st.Actuators,
		Busy:        st.Busy,
		LastCommand: st.LastCommand,
		LastError:   st.LastError,
	}

	if view.Actuators == nil {
		view.Actuators = []servo.Snapshot{}
	}

	if st.LastActor != nil {
		view.LastActor = &actorView{
			Hostname: st.LastActor.Hostname,
			Username: st.LastActor.Username,
		}
	}

	if !st.UpdatedAt.IsZero() {
		updated := st.UpdatedAt.UTC()
		view.UpdatedAt = &updated
	}

	return view
}

// actorFromRequest identifies the sender by remote host and the optional user header.
func actorFromRequest(r *http.Request) *face.Actor {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	return &face.Actor{
		Hostname: host,
		Username: strings.TrimSpace(r.Header.Get(ActorHeader)),
	}
}

func renderIndex() (string, error) {
	commands := gesture.Commands()
	buttons := make([]button, 0, len(commands))

	for _, c := range commands {
		buttons = append(buttons, button{
			Name:        c.Name,
			Label:       label(c.Name),
			Description: c.Description,
		})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, struct{ Commands []button }{buttons}); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// label turns wink_left into "Wink Left" and center_ud into "Center Up/Down".
func label(verb string) string {
	if verb == "center_ud" {
		return "Center Up/Down"
	}

	words := strings.Split(verb, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}

	return strings.Join(words, " ")
}

// requestLogger logs every request through the context logger, tagged with the request id.
func requestLogger(base context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.ToContext(r.Context(), logger.FromContext(base))
			ctx = logger.WithKV(ctx, "request_id", middleware.GetReqID(r.Context()))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.InfoKV(ctx, "HTTP request served",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(started),
			)
		})
	}
}
