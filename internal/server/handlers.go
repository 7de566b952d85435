package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Zachdehooge/wms-animator/internal/capability"
	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/generator"
	"github.com/Zachdehooge/wms-animator/internal/session"
)

const pingInterval = 15 * time.Second

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := generator.NewPage("/ws", s.index().Titles())
	if err := generator.Render(w, page); err != nil {
		s.logger.Error().Err(err).Msg("render page failed")
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := s.openSession(uuid.NewString())
	defer s.closeSession(sess)
	logger := s.logger.With().Str("session", sess.ID).Logger()

	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)
	global := s.bus.Subscribe()
	defer s.bus.Unsubscribe(global)

	if err := s.sendInitialState(ctx, conn, sess); err != nil {
		logger.Debug().Err(err).Msg("send initial state failed")
		return
	}

	// read inputs from the page
	go func() {
		defer cancel()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					logger.Debug().Err(err).Msg("websocket read ended")
				}
				return
			}
			var in session.Input
			if err := json.Unmarshal(data, &in); err != nil {
				logger.Warn().Err(err).Msg("invalid websocket message")
				continue
			}
			_ = sess.Handle(in)
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var ev events.Event
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
			continue
		case ev = <-sub:
		case ev = <-global:
		}
		if err := wsjson.Write(ctx, conn, ev); err != nil {
			logger.Debug().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func (s *Server) sendInitialState(ctx context.Context, conn *websocket.Conn, sess *session.Session) error {
	if err := wsjson.Write(ctx, conn, events.Event{Type: events.EventSnapshot, Payload: sess.Snapshot()}); err != nil {
		return err
	}
	ix := s.index()
	if !ix.Ready() {
		return nil
	}
	return wsjson.Write(ctx, conn, events.Event{
		Type:    events.EventCapabilitiesReady,
		Payload: events.CapabilitiesReady{Titles: ix.Titles()},
	})
}

type layerView struct {
	Title  string             `json:"title"`
	Name   string             `json:"name"`
	Bundle capability.Bundle  `json:"bundle"`
	Styles []capability.Style `json:"styles"`
	Times  []string           `json:"times"`
}

type layersResponse struct {
	Ready    bool        `json:"ready"`
	Ingested int         `json:"ingested"`
	Layers   []layerView `json:"layers"`
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	ix := s.index()
	resp := layersResponse{Ready: ix.Ready(), Ingested: ix.Ingested(), Layers: []layerView{}}
	for _, title := range ix.Titles() {
		l, ok := ix.Lookup(title)
		if !ok {
			continue
		}
		resp.Layers = append(resp.Layers, layerView{
			Title:  l.Title,
			Name:   l.Name,
			Bundle: l.Bundle,
			Styles: l.Styles,
			Times:  l.Times,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type forecastsResponse struct {
	Bundle string   `json:"bundle"`
	Dates  []string `json:"dates"`
	Date   string   `json:"latestDate,omitempty"`
	Hour   string   `json:"latestHour,omitempty"`
}

func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	bundle := capability.Bundle(chi.URLParam(r, "bundle"))
	ix := s.index()
	dates := ix.Dates(bundle)
	if dates == nil {
		writeError(w, http.StatusNotFound, "bundle not loaded")
		return
	}
	resp := forecastsResponse{Bundle: string(bundle), Dates: dates}
	if f, ok := ix.Latest(bundle); ok {
		resp.Date, resp.Hour = f.Date, f.Hour
	}
	writeJSON(w, http.StatusOK, resp)
}

type useForecastRequest struct {
	Date string `json:"date"`
	Hour string `json:"hour"`
}

func (s *Server) handleUseForecast(w http.ResponseWriter, r *http.Request) {
	var req useForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ix := s.index()
	if err := ix.UseForecast(req.Date, req.Hour); err != nil {
		status := http.StatusConflict
		if errors.Is(err, capability.ErrNoForecast) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	titles := ix.Titles()
	s.bus.Publish(events.EventCapabilitiesReady, events.CapabilitiesReady{Titles: titles})
	writeJSON(w, http.StatusOK, events.CapabilitiesReady{Titles: titles})
}

type credentialsRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}
	s.logger.Info().Msg("API key updated, reloading capabilities")
	s.loadInBackground(s.rekey(req.APIKey))
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
