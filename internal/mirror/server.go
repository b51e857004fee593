package mirror

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"recipehub/internal/ingest"
)

const DefaultPageSize = 20

// Server answers GET /api/recipes/v2 the way Edamam does: a total count, one
// page of hits and a _links.next cursor while hits remain.
type Server struct {
	Hits     []ingest.Hit
	PageSize int
	Log      zerolog.Logger
}

func NewServer(hits []ingest.Hit, pageSize int, log zerolog.Logger) *Server {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Server{Hits: hits, PageSize: pageSize, Log: log}
}

func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/recipes/v2", s.search)
}

func (s *Server) search(c *gin.Context) {
	if c.Query("app_id") == "" || c.Query("app_key") == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "app_id and app_key required"})
		return
	}

	matched := s.match(c.Query("q"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	page = max(page, 0)

	start := min(page*s.PageSize, len(matched))
	end := min(start+s.PageSize, len(matched))

	count := len(matched)
	out := ingest.Page{Hits: matched[start:end], Count: &count}
	if end < len(matched) {
		out.Links.Next = &ingest.Link{Href: s.nextURL(c, page+1), Title: "Next page"}
	}

	s.Log.Debug().Int("page", page).Int("hits", end-start).Int("count", count).Msg("mirror page")
	c.JSON(http.StatusOK, out)
}

// match keeps hits whose label contains q, case-insensitively.
func (s *Server) match(q string) []ingest.Hit {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.Hits
	}
	var out []ingest.Hit
	for _, h := range s.Hits {
		if h.Recipe.Label != nil && strings.Contains(strings.ToLower(*h.Recipe.Label), q) {
			out = append(out, h)
		}
	}
	return out
}

func (s *Server) nextURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
