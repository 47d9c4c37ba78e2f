package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/banshee-data/track.report/internal/compose"
	"github.com/banshee-data/track.report/internal/httputil"
	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/query"
	"github.com/banshee-data/track.report/internal/render"
	"github.com/banshee-data/track.report/internal/track"
)

// handle builds the request pipeline for one endpoint: resolve, relay or
// fetch, enrich, then compose or render.
func (s *Server) handle(ep query.Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := s.deps.Resolver.Resolve(ep, r.URL.Query(), mux.Vars(r)["gps_code"])
		if err != nil {
			var verr *query.ValidationError
			if errors.As(err, &verr) {
				validationFailures.WithLabelValues(ep.String()).Inc()
				httputil.WriteJSONOK(w, map[string][]string{"errors": verr.Messages})
				return
			}
			log.Printf("%s: resolve: %v", ep, err)
			httputil.InternalServerError(w)
			return
		}

		shape := compose.Select(d)
		if !shape.Fetches() {
			s.writeBody(w, shape, compose.Compose(shape, compose.Input{}))
			return
		}

		if s.deps.Forwarder.Active(d.Balance) {
			if err := s.deps.Forwarder.Forward(r.Context(), w, r); err != nil {
				log.Printf("%s: relay failed: %v", ep, err)
				httputil.BadGateway(w)
			}
			return
		}

		derived := ep == query.EndpointConsumption || ep == query.EndpointInfo
		fetched, err := s.deps.Fetcher.FetchTrack(r.Context(), d.FetchRequest(shape.WithSensors(d.WithSensors), derived && s.deps.Debug))
		if err != nil {
			log.Printf("%s: fetch %s: %v", ep, d.Identity, err)
			httputil.InternalServerError(w)
			return
		}

		in := compose.Input{Fetched: fetched}
		if shape.Enriches() {
			in.Enriched, err = s.deps.Enricher.Enrich(r.Context(), fetched.Track, d.FromUTC, d.ToUTC, d.Identity)
			if err != nil {
				log.Printf("%s: enrich %s: %v", ep, d.Identity, err)
				httputil.InternalServerError(w)
				return
			}
		}

		if shape == compose.ShapeConsumption && d.Format.Diagnostic() {
			s.writeChart(w, r, d, in)
			return
		}

		body := compose.Compose(shape, in)
		if d.WithoutTrack {
			body = compose.StripTrack(body)
		}
		s.writeBody(w, shape, body)
	})
}

func (s *Server) writeBody(w http.ResponseWriter, shape compose.Shape, body interface{}) {
	raw, err := compose.Encode(body)
	if err != nil {
		log.Printf("encode %s body: %v", shape, err)
		httputil.InternalServerError(w)
		return
	}
	responsesByShape.WithLabelValues(shape.String()).Inc()
	httputil.WriteBytes(w, http.StatusOK, "application/json", raw)
}

func (s *Server) writeChart(w http.ResponseWriter, r *http.Request, d *query.Descriptor, in compose.Input) {
	data := in.Fetched.SensorsData
	if data == nil {
		data = &track.SensorsData{}
	}
	var events map[string][]track.Event
	if in.Enriched != nil {
		events = in.Enriched.SensorEvents
	}

	var (
		img         []byte
		contentType string
		err         error
	)
	switch d.Format {
	case query.FormatHTML:
		img, err = render.RenderHTML(data, events)
		contentType = render.HTMLContentType
	default:
		if s.deps.Charts == nil {
			err = errors.New("no chart renderer configured")
			break
		}
		img, err = s.deps.Charts.RenderPNG(r.Context(), data, events)
		contentType = render.PNGContentType
	}
	if err != nil {
		log.Printf("consumption: render %s chart for %s: %v", d.Format, d.Identity, err)
		httputil.InternalServerError(w)
		return
	}
	monitoring.Debugf("consumption: rendered %d byte %s chart for %s", len(img), d.Format, d.Identity)
	responsesByShape.WithLabelValues(string(d.Format)).Inc()
	httputil.WriteBytes(w, http.StatusOK, contentType, img)
}
