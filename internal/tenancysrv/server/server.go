package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/common/logtrace"
	"github.com/tansive/tansive-tenancy/internal/common/middleware"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/apis"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/auth"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/pkg/api"
)

type TenancyServer struct {
	Router *chi.Mux
}

func CreateNewServer() (*TenancyServer, error) {
	s := &TenancyServer{}
	s.Router = chi.NewRouter()
	return s, nil
}

func (s *TenancyServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.Router.Get("/version", s.getVersion)
	s.Router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	s.Router.Group(s.mountResourceHandlers)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in tenancy router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			log.Error().Err(err).Msg("Error walking router")
		}
	}
}

func (s *TenancyServer) mountResourceHandlers(r chi.Router) {
	r.Use(db.LoadScopedDBMiddleware)
	r.Use(auth.IdentityMiddleware)
	apis.Router(r)
}

func (s *TenancyServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, api.CurrentVersion())
}

func (s *TenancyServer) HandleCORS(next http.Handler) http.Handler {
	origins := config.Config().AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{"Link", "Location", middleware.RequestIdHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
