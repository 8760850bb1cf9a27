// Package apitest provides a fake ApprovalHub backend built on gin for
// exercising the client against real HTTP.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// Response is the backend's standard JSON envelope
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Request is what the server recorded about one incoming call
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

// Server is a fake backend. Routes are registered per test with Handle.
type Server struct {
	router *gin.Engine
	http   *httptest.Server

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a server with no routes; unknown routes answer 404
func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{router: gin.New()}
	s.router.Use(gin.Recovery())
	s.router.Use(s.recordingMiddleware())
	s.http = httptest.NewServer(s.router)
	return s
}

// recordingMiddleware keeps a log of every request for assertions
func (s *Server) recordingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Query:         c.Request.URL.RawQuery,
			Authorization: c.GetHeader("Authorization"),
			RequestID:     c.GetHeader("X-Request-Id"),
		})
		s.mu.Unlock()

		c.Next()
	}
}

// Handle registers a handler for method and path (gin syntax, e.g. /applications/:id)
func (s *Server) Handle(method, path string, h gin.HandlerFunc) {
	s.router.Handle(method, path, h)
}

// URL is the base URL to configure the client with
func (s *Server) URL() string {
	return s.http.URL
}

// Close stops the server
func (s *Server) Close() {
	s.http.Close()
}

// Requests returns a copy of everything received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit path
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// OK answers with code 200 and data
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 200, Data: data, Message: "success"})
}

// Fail answers HTTP 200 with a business error code, the way the backend
// reports rule violations
func Fail(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{Code: code, Message: message})
}

// Unauthorized answers HTTP 401
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{Code: 401, Message: "未登录或登录已过期"})
}

// Raw answers with data as the whole body
func Raw(data string, status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(status, "application/json", []byte(data))
	}
}
