package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/domain"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/ports"
)

const defaultMaxUpload = 20 << 20

// Pinger reports storage health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	MaxUploadBytes int64
	AllowedOrigins []string
	Health         Pinger
}

type Server struct {
	verifier   ports.CertificateVerifier
	references ports.References
	logger     *zap.Logger
	opts       Options
}

func New(verifier ports.CertificateVerifier, references ports.References, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	return &Server{verifier: verifier, references: references, logger: logger, opts: opts}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.getHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/certificates/verify", s.postVerify)
		r.Get("/certificates/{number}", s.getCertificate)
		r.Get("/foods/search", s.getFoods)
		r.Get("/pesticides/search", s.getPesticides)
		r.Get("/limits", s.getLimit)
	})
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postVerify(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		s.writeError(w, r, domain.FieldError(http.StatusRequestEntityTooLarge, "file", "파일 크기가 너무 큽니다."))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, domain.FieldError(http.StatusRequestEntityTooLarge, "file", "파일 크기가 너무 큽니다."))
			return
		}
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "file", "multipart/form-data 형식의 PDF 파일이 필요합니다."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "file", "업로드할 PDF 파일을 선택해 주세요."))
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "file", "파일을 읽을 수 없습니다."))
		return
	}

	params, err := bindSubmitParams(mergeValues(r.URL.Query(), r.MultipartForm.Value))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.verifier.Submit(r.Context(), domain.Document{Name: hdr.Filename, Content: content}, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getCertificate(w http.ResponseWriter, r *http.Request) {
	res, err := s.verifier.Certificate(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getFoods(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, s.references.SearchFoods)
}

func (s *Server) getPesticides(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, s.references.SearchPesticides)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) ([]string, error)) {
	var q *string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "q", err.Error()))
		return
	}
	query := ""
	if q != nil {
		query = *q
	}
	out, err := fn(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLimit(w http.ResponseWriter, r *http.Request) {
	var food, pesticide string
	if err := runtime.BindQueryParameter("form", true, true, "food", r.URL.Query(), &food); err != nil {
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "food", "식품명을 입력해 주세요."))
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "pesticide", r.URL.Query(), &pesticide); err != nil {
		s.writeError(w, r, domain.FieldError(http.StatusBadRequest, "pesticide", "농약명을 입력해 주세요."))
		return
	}
	out, err := s.references.Limit(r.Context(), food, pesticide)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// bindSubmitParams reads the resubmission parameters from query string and
// form fields.
func bindSubmitParams(values url.Values) (domain.SubmitParams, error) {
	var (
		p         domain.SubmitParams
		overwrite *bool
		selected  *string
		skip      *bool
	)
	if err := runtime.BindQueryParameter("form", true, false, "overwrite", values, &overwrite); err != nil {
		return p, domain.FieldError(http.StatusBadRequest, "overwrite", "overwrite 값은 true 또는 false 여야 합니다.")
	}
	if err := runtime.BindQueryParameter("form", true, false, "selectedFood", values, &selected); err != nil {
		return p, domain.FieldError(http.StatusBadRequest, "selectedFood", err.Error())
	}
	if err := runtime.BindQueryParameter("form", true, false, "skipFoodValidation", values, &skip); err != nil {
		return p, domain.FieldError(http.StatusBadRequest, "skipFoodValidation", "skipFoodValidation 값은 true 또는 false 여야 합니다.")
	}
	if overwrite != nil {
		p.Overwrite = *overwrite
	}
	if selected != nil {
		p.SelectedFood = *selected
	}
	if skip != nil {
		p.SkipFoodValidation = *skip
	}
	return p, nil
}

func mergeValues(sets ...url.Values) url.Values {
	out := url.Values{}
	for _, set := range sets {
		for k, vs := range set {
			if _, seen := out[k]; !seen {
				out[k] = vs
			}
		}
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var resp *domain.ErrorResponse
	switch {
	case errors.As(err, &resp):
		if resp.Status == 0 {
			resp.Status = http.StatusBadRequest
		}
		writeJSON(w, resp.Status, resp)
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, &domain.ErrorResponse{Status: http.StatusNotFound, Err: "요청한 항목을 찾을 수 없습니다."})
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, &domain.ErrorResponse{Status: http.StatusInternalServerError, Err: "서버 내부 오류가 발생했습니다."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
