package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/matthieukhl/storepulse/internal/models"
)

// Options tune the mock shop's behaviour.
type Options struct {
	AccessToken string
	// PageSize caps every page regardless of the requested limit, so small
	// fixture sets still paginate.
	PageSize int
	// Throttle answers the first N hits of every distinct request URI with 429.
	Throttle int
}

// Server is an in-memory stand-in for the shop admin API. It serves the
// orders and locations collections with cursor pagination.
type Server struct {
	router *gin.Engine
	opts   Options
	data   Fixtures

	mu       sync.Mutex
	cursors  map[string]cursor
	hits     map[string]int
	requests []string
}

type cursor struct {
	orders []models.Order
	fields []string
	offset int
	limit  int
}

// NewServer creates a new mock shop serving data
func NewServer(data Fixtures, opts Options) *Server {
	if opts.PageSize <= 0 || opts.PageSize > 250 {
		opts.PageSize = 250
	}

	server := &Server{
		router:  gin.New(),
		opts:    opts,
		data:    data,
		cursors: make(map[string]cursor),
		hits:    make(map[string]int),
	}
	server.router.Use(gin.Recovery())

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
	}

	admin := s.router.Group("/admin/api/:version", s.recordRequest, s.requireToken, s.throttle)
	{
		admin.GET("/orders.json", s.listOrders)
		admin.GET("/locations.json", s.listLocations)
	}
}

// Handler exposes the router, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}

// Requests returns the request URIs received so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "storepulse-mock-shop",
		"orders":  len(s.data.Orders),
	})
}

func (s *Server) recordRequest(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.URL.RequestURI())
	s.mu.Unlock()
	c.Next()
}

func (s *Server) requireToken(c *gin.Context) {
	if s.opts.AccessToken != "" && c.GetHeader("X-Shopify-Access-Token") != s.opts.AccessToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"errors": "[API] Invalid API key or access token (unrecognized login or wrong password)",
		})
		return
	}
	c.Next()
}

func (s *Server) throttle(c *gin.Context) {
	if s.opts.Throttle <= 0 {
		c.Next()
		return
	}

	key := c.Request.URL.RequestURI()
	s.mu.Lock()
	s.hits[key]++
	hits := s.hits[key]
	s.mu.Unlock()

	if hits <= s.opts.Throttle {
		c.Header("Retry-After", "1.0")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"errors": "Exceeded 2 calls per second for api client. Reduce request rates to resume uninterrupted service.",
		})
		return
	}
	c.Next()
}

func (s *Server) listLocations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locations": s.data.Locations})
}

func (s *Server) listOrders(c *gin.Context) {
	query := c.Request.URL.Query()

	var cur cursor
	if pageInfo := query.Get("page_info"); pageInfo != "" {
		for key := range query {
			if key != "page_info" && key != "limit" {
				c.JSON(http.StatusBadRequest, gin.H{
					"errors": map[string]string{"page_info": "page_info cannot be combined with " + key},
				})
				return
			}
		}
		s.mu.Lock()
		found, ok := s.cursors[pageInfo]
		s.mu.Unlock()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": map[string]string{"page_info": "Invalid value."}})
			return
		}
		cur = found
	} else {
		var q ordersQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": queryErrors(err, &q)})
			return
		}
		limit := q.Limit
		if limit == 0 {
			limit = 50
		}
		cur = cursor{orders: s.filterOrders(q), fields: splitFields(q.Fields), limit: limit}
	}

	size := cur.limit
	if size > s.opts.PageSize {
		size = s.opts.PageSize
	}
	end := cur.offset + size
	if end > len(cur.orders) {
		end = len(cur.orders)
	}

	page := make([]map[string]json.RawMessage, 0, end-cur.offset)
	for _, o := range cur.orders[cur.offset:end] {
		projected, err := project(o, cur.fields)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"errors": err.Error()})
			return
		}
		page = append(page, projected)
	}

	var links []string
	if cur.offset > 0 {
		prev := cur
		prev.offset = cur.offset - size
		if prev.offset < 0 {
			prev.offset = 0
		}
		links = append(links, fmt.Sprintf(`<%s>; rel="previous"`, s.pageURL(c, prev)))
	}
	if end < len(cur.orders) {
		next := cur
		next.offset = end
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, s.pageURL(c, next)))
	}
	if len(links) > 0 {
		c.Header("Link", strings.Join(links, ", "))
	}

	c.JSON(http.StatusOK, gin.H{"orders": page})
}

func (s *Server) pageURL(c *gin.Context, cur cursor) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.cursors[id] = cur
	s.mu.Unlock()

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s?limit=%d&page_info=%s", scheme, c.Request.Host, c.Request.URL.Path, cur.limit, id)
}

// ordersQuery holds the orders.json filters the mock understands.
type ordersQuery struct {
	Status              string    `form:"status" binding:"omitempty,oneof=open cancelled any"`
	FulfillmentStatus   string    `form:"fulfillment_status" binding:"omitempty,oneof=shipped unshipped fulfilled unfulfilled any"`
	Limit               int       `form:"limit" binding:"omitempty,min=1,max=250"`
	CreatedAtMin        time.Time `form:"created_at_min" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedAtMax        time.Time `form:"created_at_max" time_format:"2006-01-02T15:04:05Z07:00"`
	ReferenceLocationID int64     `form:"reference_location_id" binding:"omitempty,gt=0"`
	Fields              string    `form:"fields"`
}

func (s *Server) filterOrders(q ordersQuery) []models.Order {
	status := q.Status
	if status == "" {
		status = "open"
	}

	var out []models.Order
	for _, o := range s.data.Orders {
		if !q.CreatedAtMin.IsZero() && o.CreatedAt.Before(q.CreatedAtMin) {
			continue
		}
		if !q.CreatedAtMax.IsZero() && o.CreatedAt.After(q.CreatedAtMax) {
			continue
		}
		switch status {
		case "open":
			if o.CancelledAt != nil {
				continue
			}
		case "cancelled":
			if o.CancelledAt == nil {
				continue
			}
		}
		switch q.FulfillmentStatus {
		case "unfulfilled", "unshipped":
			if len(o.Fulfillments) > 0 {
				continue
			}
		case "fulfilled", "shipped":
			if len(o.Fulfillments) == 0 {
				continue
			}
		}
		if q.ReferenceLocationID != 0 && s.data.Assigned[o.ID] != q.ReferenceLocationID {
			continue
		}
		out = append(out, o)
	}
	return out
}

// queryErrors maps binding failures to the API's {"field": "Invalid value."}
// error shape, keyed by query parameter name.
func queryErrors(err error, dst any) map[string]string {
	out := map[string]string{}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["query"] = err.Error()
		return out
	}

	t := reflect.TypeOf(dst).Elem()
	for _, fe := range ve {
		key := strings.ToLower(fe.StructField())
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if tag := f.Tag.Get("form"); tag != "" {
				key = tag
			}
		}
		out[key] = "Invalid value."
	}
	return out
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// project encodes an order, keeping only the requested top-level fields.
func project(o models.Order, fields []string) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order %d: %w", o.ID, err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to encode order %d: %w", o.ID, err)
	}
	if len(fields) == 0 {
		return all, nil
	}

	projected := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := all[f]; ok {
			projected[f] = v
		}
	}
	return projected, nil
}
