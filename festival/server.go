// Copyright 2025 The festmap Authors
// SPDX-License-Identifier: Apache-2.0

package festival

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sgnsilv/festmap/spatial"
	"github.com/sgnsilv/festmap/utils/textutils"
)

// DefaultAddr is where the server listens unless configured otherwise.
const DefaultAddr = "localhost:8080"

// LoadFunc runs one load cycle: read the input and resolve it. On a
// partial failure it may return records together with an error.
type LoadFunc func(ctx context.Context) ([]ResolvedRecord, error)

// NewLoadFunc returns the standard cycle: LoadRecords followed by
// Resolver.Resolve.
func NewLoadFunc(path, encoding string, resolver *Resolver) LoadFunc {
	return func(ctx context.Context) ([]ResolvedRecord, error) {
		records, err := LoadRecords(path, encoding)
		if err != nil {
			return nil, err
		}

		return resolver.Resolve(ctx, records)
	}
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr string

	// ReferenceCacheSize bounds the memo of geocoded reference texts
	ReferenceCacheSize int
}

// Server exposes the resolved records as a JSON API.
type Server struct {
	load    LoadFunc
	locator *Locator
	refs    *lru.Cache[string, *Reference]
	addr    string

	reloadMu sync.Mutex

	mu      sync.RWMutex
	records []ResolvedRecord
}

// NewServer creates a server. Call Reload before serving to run the first
// cycle.
func NewServer(load LoadFunc, locator *Locator, options ServerOptions) (*Server, error) {
	if options.Addr == "" {
		options.Addr = DefaultAddr
	}

	if options.ReferenceCacheSize <= 0 {
		options.ReferenceCacheSize = 128
	}

	refs, err := lru.New[string, *Reference](options.ReferenceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating reference cache: %w", err)
	}

	return &Server{
		load:    load,
		locator: locator,
		refs:    refs,
		addr:    options.Addr,
	}, nil
}

// Reload runs a load cycle and swaps in its records. Cycles never overlap.
// When the cycle fails without records, or was interrupted by ctx, the
// previous records are kept and swapped is false.
func (s *Server) Reload(ctx context.Context) (swapped bool, err error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	records, err := s.load(ctx)
	if err != nil && (records == nil || ctx.Err() != nil) {
		return false, err
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	return true, err
}

// Records returns the current records.
func (s *Server) Records() []ResolvedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.records
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/records", s.listRecords)
	r.GET("/api/options", s.listOptions)
	r.POST("/api/reload", s.reload)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	log.Printf("📍 Serving %d venues on http://%s", len(s.Records()), s.addr)

	return s.Router().Run(s.addr)
}

// RecordView is a record as returned by the API.
type RecordView struct {
	ResolvedRecord

	H3Cell string `json:"h3_cell,omitempty"`
}

// NearestView describes the record closest to the reference.
type NearestView struct {
	Name       string        `json:"name"`
	Festival   string        `json:"festival"`
	DistanceKm float64       `json:"distance_km"`
	Point      spatial.Point `json:"point"`
}

// RecordsResponse is the body of GET /api/records.
type RecordsResponse struct {
	Records   []RecordView `json:"records"`
	Total     int          `json:"total"`
	Mappable  int          `json:"mappable"`
	Reference *Reference   `json:"reference"`
	Nearest   *NearestView `json:"nearest"`
	Notice    string       `json:"notice,omitempty"`
}

func parseSelection(ctx *gin.Context) (Selection, error) {
	sel := Selection{
		Festivals:    ctx.QueryArray("festival"),
		MealTimes:    ctx.QueryArray("meal"),
		Neighborhood: ctx.Query("neighborhood"),
	}

	for _, raw := range ctx.QueryArray("interest") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" || textutils.LowerASCIIFolding(part) == AllToken {
				continue
			}

			n, err := strconv.Atoi(part)
			if err != nil || !InterestLevel(n).Valid() {
				return Selection{}, fmt.Errorf("invalid interest level %q", part)
			}

			sel.InterestLevels = append(sel.InterestLevels, InterestLevel(n))
		}
	}

	return sel, nil
}

func (s *Server) listRecords(ctx *gin.Context) {
	sel, err := parseSelection(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	filtered := Filter(s.Records(), sel)

	resp := RecordsResponse{
		Records: make([]RecordView, 0, len(filtered)),
		Total:   len(filtered),
	}

	for _, r := range filtered {
		view := RecordView{ResolvedRecord: r}

		if r.Point != nil {
			resp.Mappable++

			if cell, err := r.Point.Cell(spatial.DefaultCellResolution); err == nil {
				view.H3Cell = cell.String()
			}
		}

		resp.Records = append(resp.Records, view)
	}

	if text := strings.TrimSpace(ctx.Query("ref")); text != "" {
		ref, err := s.reference(ctx.Request.Context(), text)
		if err != nil {
			resp.Notice = "Address not found: " + text
		} else {
			resp.Reference = ref

			if m, ok := Nearest(ref.Point, filtered); ok {
				resp.Nearest = &NearestView{
					Name:       m.Record.Name,
					Festival:   m.Record.Festival,
					DistanceKm: m.DistanceKm,
					Point:      *m.Record.Point,
				}
			} else {
				resp.Notice = "No venue with coordinates matches the filters"
			}
		}
	}

	ctx.JSON(http.StatusOK, resp)
}

// reference geocodes text, remembering successful lookups. Failures are not
// remembered so a later request can retry.
func (s *Server) reference(ctx context.Context, text string) (*Reference, error) {
	key := textutils.LowerASCIIFolding(text)
	if ref, ok := s.refs.Get(key); ok {
		return ref, nil
	}

	ref, err := s.locator.Reference(ctx, text)
	if err != nil {
		return nil, err
	}

	s.refs.Add(key, ref)

	return ref, nil
}

func (s *Server) listOptions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, Options(s.Records()))
}

func (s *Server) reload(ctx *gin.Context) {
	// A client that gives up waiting does not abort the cycle.
	swapped, err := s.Reload(context.WithoutCancel(ctx.Request.Context()))

	switch {
	case errors.Is(err, ErrInputMissing):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	case !swapped:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	case err != nil:
		// The records were resolved; only persisting the cache failed.
		ctx.JSON(http.StatusOK, gin.H{"records": len(s.Records()), "warning": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"records": len(s.Records())})
}
