package ioptrond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/mdouchement/ioptrond/ioptron"
	"github.com/mdouchement/logger"
	"golang.org/x/sync/errgroup"
)

// A Daemon polls the mount and exposes it over HTTP.
type Daemon struct {
	mount    *ioptron.Controller
	model    string
	startup  Startup
	interval time.Duration
	listener net.Listener
	events   chan event
	done     chan struct{}
}

func New(cfg Config, mount *ioptron.Controller, listener net.Listener) *Daemon {
	return &Daemon{
		mount:    mount,
		model:    cfg.Mount.Model,
		startup:  cfg.Startup,
		interval: cfg.poll(),
		listener: listener,
		events:   make(chan event, 10),
		done:     make(chan struct{}),
	}
}

// Listen opens the unix socket of the API, replacing a stale one.
func Listen(socket string) (net.Listener, error) {
	err := os.MkdirAll(filepath.Dir(socket), 0o755)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if _, err := os.Stat(socket); err == nil {
		fmt.Printf("Removing existing %s\n", socket)
		os.Remove(socket)
	}

	l, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	return l, nil
}

// Run applies the startup settings then polls and serves until ctx is done
// or the mount is lost.
func (d *Daemon) Run(ctx context.Context) error {
	log := logger.LogWith(ctx)

	if err := d.setup(log); err != nil {
		d.listener.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(d.done)
		d.eventLoop(ctx)
		return nil
	})
	g.Go(func() error {
		return d.poll(ctx)
	})
	g.Go(func() error {
		return d.serve(ctx)
	})

	return g.Wait()
}

func (d *Daemon) setup(log logger.Logger) error {
	fatal := func(err error) bool {
		return errors.Is(err, ioptron.ErrNotConnected) || d.mount.ConnState() == ioptron.Offline
	}

	if model, err := d.mount.Model(); err == nil {
		d.model = model
		log.Infof("Mount model %s", model)
	} else if fatal(err) {
		return err
	} else {
		log.WithError(err).Error("Could not read mount model")
	}

	if fw, err := d.mount.Firmware(); err == nil {
		log.Infof("Firmware - MAINBOARD: %s - HAND_CONTROLLER: %s - RA: %s - DEC: %s",
			fw.Mainboard, fw.HandController, fw.RAMotor, fw.DecMotor)
	} else if fatal(err) {
		return err
	} else {
		log.WithError(err).Error("Could not read firmware")
	}

	if d.startup.Speed > 0 {
		if err := d.mount.SetMovingSpeed(d.startup.Speed); err != nil {
			if fatal(err) {
				return err
			}
			log.WithError(err).Errorf("Could not set moving speed %d", d.startup.Speed)
		}
	}

	if d.startup.Track {
		if err := d.mount.SetTracking(true); err != nil {
			if fatal(err) {
				return err
			}
			log.WithError(err).Error("Could not start tracking")
		}
	}

	return nil
}

// poll is the refresh scheduler of the controller.
func (d *Daemon) poll(ctx context.Context) error {
	log := logger.LogWith(ctx)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		err := d.mount.Refresh()
		switch {
		case err == nil:
			d.publish()
		case errors.Is(err, ioptron.ErrBusy):
			log.Debug("Refresh skipped, a command is in flight")
		case errors.Is(err, ioptron.ErrNotConnected) || d.mount.ConnState() == ioptron.Offline:
			log.WithError(err).Error("Mount lost")
			d.publish()
			return fmt.Errorf("poll: %w", err)
		default:
			log.WithError(err).Error("Could not refresh mount state")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Daemon) serve(ctx context.Context) error {
	log := logger.LogWith(ctx)

	srv := &http.Server{
		Handler:     d.Router(log),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.WithError(err).Error("Could not gracefully stop HTTP server")
		}
	}()

	log.Info("Starting HTTP server on", d.listener.Addr().String())
	err := srv.Serve(d.listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	if d.listener.Addr().Network() == "unix" {
		if err := os.Remove(d.listener.Addr().String()); err != nil && !errors.Is(err, os.ErrNotExist) {
			// listener.Close() should remove the socket but ceinture et bretelles!
			log.WithError(err).Errorf("Could not remove socket %s", d.listener.Addr().String())
		}
	}
	return err
}

// Router exposes the API. It is served on the daemon socket by Run.
func (d *Daemon) Router(log logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/state", d.state).Methods(http.MethodGet)
	r.HandleFunc("/commands", d.commands).Methods(http.MethodGet)
	r.HandleFunc("/command/{name}", d.command(log)).Methods(http.MethodPost)
	r.HandleFunc("/monitor", d.monitor(log)).Methods(http.MethodGet)
	return r
}

func (d *Daemon) snapshot() Snapshot {
	return Snapshot{
		Connection: d.mount.ConnState().String(),
		Model:      d.model,
		Topology:   d.mount.Capability().Topology().String(),
		State:      d.mount.State(),
	}
}

// publish asks the event loop to push a fresh snapshot to the monitors.
func (d *Daemon) publish() {
	d.send(event{name: eventRefreshWatchers})
}

func (d *Daemon) send(e event) {
	select {
	case d.events <- e:
	case <-d.done:
	}
}

func (d *Daemon) eventLoop(ctx context.Context) {
	log := logger.LogWith(ctx)
	watchers := map[int64]chan<- []byte{}
	var status ioptron.StatusCode = 255

	defer func() {
		for _, watcher := range watchers {
			close(watcher)
		}
	}()

	broadcast := func(targets map[int64]chan<- []byte) {
		s := d.snapshot()

		if st := s.State.Status; st != nil && st.Code != status {
			// Only log transitions to avoid flooding the logs.
			status = st.Code
			log.Infof("Mount is %s", st.Description)
		}

		payload, err := json.Marshal(s)
		if err != nil {
			log.WithError(err).Error("Could not serialize state") // Should never happen
			return
		}

		for id, watcher := range targets {
			select {
			case watcher <- payload:
			default:
				log.Warnf("Monitor %d is lagging, snapshot dropped", id)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.events:
			switch e.name {
			case eventRefreshWatchers:
				broadcast(watchers)
			case eventWatch:
				watchers[e.monitorID] = e.monitor
				broadcast(map[int64]chan<- []byte{e.monitorID: e.monitor})
			case eventUnwatch:
				if watcher, ok := watchers[e.monitorID]; ok {
					close(watcher)
					delete(watchers, e.monitorID)
				}
			}
		}
	}
}

func (d *Daemon) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.snapshot())
}

func (d *Daemon) commands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Commands())
}

func (d *Daemon) command(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		run, ok := commands[name]
		if !ok {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("unknown command %q", name)})
			return
		}

		args, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		result, err := run(d.mount, args)
		if err != nil {
			code := StatusCode(err)
			if code >= http.StatusInternalServerError {
				log.WithError(err).Errorf("Command %s failed", name)
			}
			writeJSON(w, code, ErrorResponse{Error: err.Error()})
			if d.mount.ConnState() == ioptron.Offline {
				d.publish()
			}
			return
		}

		log.Infof("Command %s done", name)
		d.publish()
		writeJSON(w, http.StatusOK, CommandResponse{Command: name, Result: result, State: d.mount.State()})
	}
}

func (d *Daemon) monitor(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Client connected")

		// Set http headers required for SSE.
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		disconnected := r.Context().Done()

		id := genID()
		ch := make(chan []byte, 20)
		d.send(event{name: eventWatch, monitorID: id, monitor: ch})

		rc := http.NewResponseController(w)
		for {
			select {
			case <-disconnected:
				log.Info("Client disconnected")
				d.send(event{name: eventUnwatch, monitorID: id})
				return
			case payload, ok := <-ch:
				if !ok {
					return // Daemon is stopping
				}

				if err := WriteSSE(w, "state", payload); err != nil {
					log.WithError(err).Error("Could not write monitor SSE payload")
					d.send(event{name: eventUnwatch, monitorID: id})
					return
				}

				if err := rc.Flush(); err != nil {
					log.WithError(err).Error("Could not flush monitor SSE payload")
					d.send(event{name: eventUnwatch, monitorID: id})
					return
				}
			}
		}
	}
}

// StatusCode maps controller errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ioptron.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ioptron.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ioptron.ErrCommandRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ioptron.ErrCapabilityUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, ioptron.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, ioptron.ErrNotConnected), errors.Is(err, ioptron.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
