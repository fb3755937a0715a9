package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/mapsgpx/internal/cache"
	"github.com/dgallion1/mapsgpx/internal/gpx"
	"github.com/dgallion1/mapsgpx/internal/kml"
	"github.com/dgallion1/mapsgpx/internal/mapsurl"
	"github.com/dgallion1/mapsgpx/internal/metrics"
	"github.com/dgallion1/mapsgpx/internal/polyline"
	"github.com/dgallion1/mapsgpx/internal/route"
	"github.com/dgallion1/mapsgpx/internal/stats"
)

// Kind names the textual input formats a conversion accepts.
type Kind string

const (
	KindURL      Kind = "url"
	KindKML      Kind = "kml"
	KindPolyline Kind = "polyline"
)

var (
	ErrUnknownKind = errors.New("unknown input type")
	ErrEmptyInput  = errors.New("input is empty")
)

// ParseKind validates a user supplied input type.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindURL, KindKML, KindPolyline:
		return k, nil
	case "":
		return "", fmt.Errorf("%w: type is required", ErrUnknownKind)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ToRoute runs the extractor for kind. A polyline becomes a single
// unnamed track without waypoints.
func ToRoute(kind Kind, input string) (*route.Route, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	switch kind {
	case KindURL:
		return mapsurl.Parse(input)
	case KindKML:
		return kml.Parse(input)
	case KindPolyline:
		points, err := polyline.Decode(strings.TrimSpace(input))
		if err != nil {
			return nil, err
		}
		r := &route.Route{}
		if len(points) > 0 {
			r.AddTrack(route.NewSegmentTrack("", points))
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Result is a finished conversion.
type Result struct {
	GPX       string        `json:"gpx"`
	Route     *route.Route  `json:"route"`
	Summary   route.Summary `json:"summary"`
	Polylines []string      `json:"polylines,omitempty"`
	Cached    bool          `json:"cached"`
}

// Build renders r. A non-empty name replaces the route name.
func Build(r *route.Route, name string) (*Result, error) {
	if name = strings.TrimSpace(name); name != "" {
		r.Name = name
	}
	if r.Waypoints == nil {
		r.Waypoints = []route.Waypoint{}
	}
	if r.Tracks == nil {
		r.Tracks = []route.Track{}
	}

	doc, err := gpx.Write(r)
	if err != nil {
		return nil, err
	}

	res := &Result{
		GPX:     doc,
		Route:   r,
		Summary: r.Summarize(),
	}
	for _, t := range r.Tracks {
		var points []route.Coordinate
		for _, seg := range t.Segments {
			points = append(points, seg.Points...)
		}
		res.Polylines = append(res.Polylines, polyline.Encode(points))
	}
	return res, nil
}

// Service converts inputs to GPX, consulting a result cache and recording
// latency per kind.
type Service struct {
	cache cache.Cache
	ttl   time.Duration
	stats *stats.Tracker
	log   *slog.Logger
}

func NewService(c cache.Cache, ttl time.Duration, st *stats.Tracker, log *slog.Logger) *Service {
	return &Service{cache: c, ttl: ttl, stats: st, log: log}
}

// Convert turns textual input of the given kind into a Result.
func (s *Service) Convert(ctx context.Context, kind Kind, input, name string) (*Result, error) {
	start := time.Now()
	key := cache.Key(string(kind), name, input)

	if res, ok := s.lookup(ctx, kind, key); ok {
		s.observe(string(kind), start, nil, res)
		return res, nil
	}

	r, err := ToRoute(kind, input)
	var res *Result
	if err == nil {
		res, err = Build(r, name)
	}
	s.observe(string(kind), start, err, res)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, res)
	return res, nil
}

// ConvertRoute renders an already built route, such as one read from an
// uploaded file. label names the source in metrics.
func (s *Service) ConvertRoute(_ context.Context, label string, r *route.Route, name string) (*Result, error) {
	start := time.Now()
	res, err := Build(r, name)
	s.observe(label, start, err, res)
	return res, err
}

// Stats returns latency aggregates per source.
func (s *Service) Stats() map[string]stats.Snapshot {
	return s.stats.Snapshot()
}

func (s *Service) lookup(ctx context.Context, kind Kind, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("cache get failed", "kind", kind, "error", err)
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues(string(kind)).Inc()
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		s.log.Warn("cache entry unreadable", "kind", kind, "error", err)
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(string(kind)).Inc()
	res.Cached = true
	return &res, true
}

func (s *Service) store(ctx context.Context, key string, res *Result) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		s.log.Warn("cache encode failed", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.log.Warn("cache set failed", "error", err)
	}
}

func (s *Service) observe(label string, start time.Time, err error, res *Result) {
	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		outcome = Classify(err)
	}
	metrics.Conversions.WithLabelValues(label, outcome).Inc()
	metrics.ConversionDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	if res != nil {
		metrics.RoutePoints.Observe(float64(res.Summary.Waypoints + res.Summary.Points))
	}
	if s.stats != nil {
		s.stats.Record(label, elapsed, err != nil)
	}
}
