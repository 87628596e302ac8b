package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/poyrazK/licenseHub/internal/core/domain"
	"github.com/poyrazK/licenseHub/internal/core/ports"
	"github.com/poyrazK/licenseHub/internal/infrastructure/metrics"
)

type registrationService struct {
	repo     ports.RegistrationRepository
	notifier ports.Notifier
}

// NewRegistrationService wires the repository and the change notifier into
// a RegistrationService.
func NewRegistrationService(repo ports.RegistrationRepository, notifier ports.Notifier) ports.RegistrationService {
	return &registrationService{repo: repo, notifier: notifier}
}

func (s *registrationService) Register(ctx context.Context, clientKey string) (bool, error) {
	if err := domain.ValidateClientKey(clientKey); err != nil {
		return false, err
	}

	created, id, err := s.repo.CreateIfAbsent(ctx, clientKey)
	if err != nil {
		return false, fmt.Errorf("create registration: %w", err)
	}
	if !created {
		// Key already present: idempotent outcome, existing row untouched.
		return false, nil
	}

	metrics.RegistrationsTotal.Inc()
	log.Printf("new registration request: %s, id: %d", clientKey, id)
	s.announce(ctx)
	return true, nil
}

func (s *registrationService) Validate(ctx context.Context, clientKey string) (domain.Status, error) {
	if err := domain.ValidateClientKey(clientKey); err != nil {
		return "", err
	}

	reg, err := s.repo.GetByKey(ctx, clientKey)
	if err != nil {
		return "", fmt.Errorf("look up registration: %w", err)
	}
	if reg == nil {
		return "", domain.ErrNotFound
	}
	return reg.Status, nil
}

func (s *registrationService) ListAll(ctx context.Context) ([]domain.Registration, error) {
	return s.repo.ListAll(ctx)
}

func (s *registrationService) ListPending(ctx context.Context) ([]domain.Registration, error) {
	return s.repo.ListPending(ctx)
}

func (s *registrationService) Decide(ctx context.Context, id int64, action domain.Action) (domain.Status, error) {
	status, err := domain.StatusForAction(action)
	if err != nil {
		return "", err
	}

	affected, err := s.repo.Decide(ctx, id, status, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("decide registration %d: %w", id, err)
	}
	if affected == 0 {
		// Either no such row or it is no longer Pending; callers cannot
		// tell the two apart.
		return "", domain.ErrNotFound
	}

	metrics.DecisionsTotal.WithLabelValues(string(action)).Inc()
	log.Printf("request %d processed: %s", id, status)
	s.announce(ctx)
	return status, nil
}

func (s *registrationService) Delete(ctx context.Context, id int64) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete registration %d: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	log.Printf("registration deleted: id %d", id)
	s.announce(ctx)
	return nil
}

// pinger is satisfied by notifiers with a reachable backend, such as the
// Redis publisher. The in-process hub has nothing to probe.
type pinger interface {
	Ping(ctx context.Context) error
}

func (s *registrationService) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]error{
		"database": s.repo.Ping(ctx),
	}
	if p, ok := s.notifier.(pinger); ok {
		checks["redis"] = p.Ping(ctx)
	}
	return checks
}

// announce runs strictly after the store write is acknowledged. A failed
// broadcast never turns a successful write into a failed response; sessions
// just stay stale until the next signal.
func (s *registrationService) announce(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Announce(ctx); err != nil {
		log.Printf("change broadcast failed: %v", err)
	}
}
