package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
)

// ServiceName is the name parlo registers with the OS service manager.
const ServiceName = "parlo"

// program adapts Run to the kardianos start/stop callbacks.
type program struct {
	params RunParams
	cancel context.CancelFunc
	done   chan error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- Run(ctx, p.params) }()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

// NewService describes parlo to the OS service manager. The installed
// service runs "parlo service run" with an absolute config path.
func NewService(params RunParams) (service.Service, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("app: resolving config path: %w", err)
		}
		params.ConfigPath = abs
		args = append(args, "--config", abs)
	}

	wd, _ := os.Getwd()
	svc, err := service.New(&program{params: params}, &service.Config{
		Name:             ServiceName,
		DisplayName:      "Parlo responder",
		Description:      "Conversational responder with an HTTP and WebSocket chat API.",
		Arguments:        args,
		WorkingDirectory: wd,
	})
	if err != nil {
		return nil, fmt.Errorf("app: creating service: %w", err)
	}
	return svc, nil
}

// ControlService runs one of service.ControlAction (install, uninstall,
// start, stop, restart).
func ControlService(params RunParams, action string) error {
	svc, err := NewService(params)
	if err != nil {
		return err
	}
	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("app: service %s: %w", action, err)
	}
	return nil
}
