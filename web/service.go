package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zeptools/gw-multids/svc"
)

// Service runs an http.Server until its context is cancelled, then shuts it down gracefully.
type Service struct {
	Ctx             context.Context    // Service Context
	Cancel          context.CancelFunc // Service Context CancelFunc
	Server          *http.Server
	ShutdownTimeout time.Duration // time given to in-flight requests

	logger *log.Logger
	state  atomic.Int32
	addr   atomic.Pointer[string]
	done   chan error
}

// Ensure web.Service implements svc.Service
var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, router http.Handler, shutdownTimeout time.Duration, logger *log.Logger) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Ctx:    svcCtx,
		Cancel: svcCancel,
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ShutdownTimeout: shutdownTimeout,
		logger:          logger.WithPrefix("web"),
		done:            make(chan error, 1),
	}
}

func (s *Service) Name() string {
	return "web"
}

func (s *Service) State() svc.State {
	return svc.State(s.state.Load())
}

// Addr is the bound listen address once started
func (s *Service) Addr() string {
	if p := s.addr.Load(); p != nil {
		return *p
	}
	return s.Server.Addr
}

// Start binds the listen address and serves in the background.
// Only binding errors are returned; serve errors arrive on Done.
func (s *Service) Start() error {
	if !s.state.CompareAndSwap(int32(svc.StateReady), int32(svc.StateRunning)) {
		return fmt.Errorf("web service is %s", s.State())
	}
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		s.state.Store(int32(svc.StateStopped))
		return err
	}
	addr := ln.Addr().String()
	s.addr.Store(&addr)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := s.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			s.Cancel()
			return
		}
		serveErr <- nil
	}()

	go func() {
		<-s.Ctx.Done()
		// Server Shutdown to Stop Accepting New HTTP Requests Immediately
		// But with the context with timeout, requests already being processed get time to finish
		ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		shutdownErr := s.Server.Shutdown(ctx)
		if shutdownErr != nil {
			s.logger.Error("server shutdown failed", "err", shutdownErr)
		}
		err := <-serveErr
		s.state.Store(int32(svc.StateStopped))
		s.logger.Info("stopped", "addr", addr)
		s.done <- errors.Join(err, shutdownErr)
	}()
	return nil
}

func (s *Service) Stop() {
	s.Cancel()
}

func (s *Service) Done() <-chan error {
	return s.done
}
