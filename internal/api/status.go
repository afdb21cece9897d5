package api

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/powerled/internal/api/models"
	"github.com/smazurov/powerled/internal/powerled"
	"github.com/smazurov/powerled/internal/version"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{Status: "ok", Message: "API is healthy"},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})
}

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Boot Status",
		Description: "Get the tracked power and POST state and the LED presentation last applied",
		Tags:        []string{"status"},
		Errors:      []int{401, 503},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		status, err := s.options.Status.Snapshot()
		if errors.Is(err, powerled.ErrNotStarted) {
			return nil, huma.Error503ServiceUnavailable("Startup reconciliation has not finished")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read status", err)
		}

		groups := s.options.Groups
		return &models.StatusResponse{
			Body: models.StatusData{
				Host:         s.options.Host,
				HostPowerOn:  status.State.HostPowerOn,
				BootStarted:  status.State.BootStarted,
				BootEnded:    status.State.BootEnded,
				Presentation: status.Presentation.String(),
				LEDBackend:   s.options.LEDBackend,
				Groups: models.LEDGroups{
					Booted:     groups.Booted,
					PostActive: groups.PostActive,
					PoweredOn:  groups.PoweredOn,
				},
			},
		}, nil
	})

	if s.options.Units == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-units",
		Method:      http.MethodGet,
		Path:        "/api/units",
		Summary:     "Dependency Units",
		Description: "Get the systemd state of the services providing power state, POST codes and LED groups",
		Tags:        []string{"status"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.UnitsResponse, error) {
		states := s.options.Units.UnitStates(ctx, s.options.UnitNames)
		units := make([]models.UnitState, 0, len(states))
		for unit, state := range states {
			units = append(units, models.UnitState{Unit: unit, State: state})
		}
		sort.Slice(units, func(i, j int) bool { return units[i].Unit < units[j].Unit })
		return &models.UnitsResponse{Body: models.UnitsData{Units: units}}, nil
	})
}
