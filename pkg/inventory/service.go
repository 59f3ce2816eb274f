// Package inventory is the Postgres-backed device catalog. It feeds the
// engine connection details and archives finished job summaries.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/netbatch/netbatch/pkg/db/models"
	"github.com/netbatch/netbatch/pkg/engine"
	"github.com/netbatch/netbatch/pkg/transport"
)

var ErrDeviceNotFound = errors.New("device not found")

// Defaults are fleet-wide credentials used when a device row leaves its own
// blank.
type Defaults struct {
	Username       string
	Password       string
	EnablePassword string
}

type Service struct {
	db       *bun.DB
	defaults Defaults
}

type Option func(*Service)

func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

func NewService(db *bun.DB, opts ...Option) *Service {
	s := &Service{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDevice inserts a new device row. The ID must be set by the caller;
// device IDs are operator-facing names, not generated.
func (s *Service) CreateDevice(ctx context.Context, dev *models.Device) error {
	if dev.ID == "" {
		return errors.New("device id is required")
	}
	if dev.Address == "" {
		return errors.New("device address is required")
	}
	if dev.Protocol == "" {
		dev.Protocol = string(transport.ProtocolSSH)
	}
	if _, err := s.db.NewInsert().Model(dev).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create device %s: %w", dev.ID, err)
	}
	return nil
}

// UpdateDevice overwrites an existing device row.
func (s *Service) UpdateDevice(ctx context.Context, dev *models.Device) error {
	dev.UpdatedAt = time.Now()
	res, err := s.db.NewUpdate().
		Model(dev).
		WherePK().
		OmitZero().
		Column("name", "address", "port", "protocol", "platform",
			"username", "password", "enable_password", "country_code", "updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update device %s: %w", dev.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *Service) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	dev := new(models.Device)
	err := s.db.NewSelect().Model(dev).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}
	return dev, nil
}

// ListAllDevices returns the whole catalog ordered by ID.
func (s *Service) ListAllDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := s.db.NewSelect().Model(&devices).Order("d.id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().
		Model((*models.Device)(nil)).
		Where("d.id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// ListDevices resolves connection details for the given IDs. IDs with no
// catalog row are simply absent from the result; the engine treats them as
// unknown devices.
func (s *Service) ListDevices(ctx context.Context, ids []string) ([]transport.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Device
	err := s.db.NewSelect().Model(&rows).Where("d.id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve devices: %w", err)
	}
	out := make([]transport.Device, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toTransport(row))
	}
	return out, nil
}

func (s *Service) toTransport(row models.Device) transport.Device {
	dev := transport.Device{
		ID:             row.ID,
		Name:           row.Name,
		Address:        row.Address,
		Port:           row.Port,
		Protocol:       transport.Protocol(row.Protocol),
		Platform:       row.Platform,
		Username:       row.Username,
		Password:       row.Password,
		EnablePassword: row.EnablePassword,
		Group:          row.CountryCode,
	}
	if dev.Username == "" {
		dev.Username = s.defaults.Username
	}
	if dev.Password == "" {
		dev.Password = s.defaults.Password
	}
	if dev.EnablePassword == "" {
		dev.EnablePassword = s.defaults.EnablePassword
	}
	return dev
}

// ArchiveJob persists a finished job summary. Called once per job by the
// engine; per-command detail lives in the artifact store.
func (s *Service) ArchiveJob(ctx context.Context, view engine.View) error {
	id, err := uuid.Parse(view.ID)
	if err != nil {
		return fmt.Errorf("failed to parse job id %s: %w", view.ID, err)
	}

	failed := 0
	for _, dr := range view.Devices {
		if dr.Status == engine.DeviceFailed {
			failed++
		}
	}

	rec := &models.JobRecord{
		ID:        id,
		Status:    string(view.Status),
		DeviceIDs: view.Spec.DeviceIDs,
		Commands:  view.Spec.Commands,
		BatchSize: view.Spec.BatchSize,
		RateLimit: view.Spec.RateLimit,
		Total:     view.Total,
		Completed: view.Completed,
		Failed:    failed,
		CreatedAt: view.CreatedAt,
	}
	if view.StartedAt != nil {
		rec.StartedAt = *view.StartedAt
	}
	if view.FinishedAt != nil {
		rec.FinishedAt = *view.FinishedAt
	}

	_, err = s.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("completed = EXCLUDED.completed").
		Set("failed = EXCLUDED.failed").
		Set("finished_at = EXCLUDED.finished_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to archive job %s: %w", view.ID, err)
	}
	return nil
}

// ListJobRecords returns archived jobs, newest first.
func (s *Service) ListJobRecords(ctx context.Context, limit int) ([]models.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []models.JobRecord
	err := s.db.NewSelect().
		Model(&recs).
		Order("jr.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	return recs, nil
}
