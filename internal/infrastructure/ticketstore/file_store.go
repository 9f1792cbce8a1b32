package ticketstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

var _ repository.TicketStore = (*FileStore)(nil)

// FileStore guarda cada ticket en <dir>/<cuit>/<service>.json.
type FileStore struct {
	dir string
}

// NewFileStore construye el store sobre dir; el directorio se crea al primer Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load lee el ticket guardado; (nil, nil) si no existe.
func (s *FileStore) Load(_ context.Context, cuit, service string) (*entity.AuthTicket, error) {
	path, err := s.path(cuit, service)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("leer ticket: %w", err)
	}
	var t entity.AuthTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("ticket corrupto en %s: %w", path, err)
	}
	return &t, nil
}

// Save escribe el ticket en un temporal y lo renombra sobre el destino.
func (s *FileStore) Save(_ context.Context, t *entity.AuthTicket) error {
	path, err := s.path(t.TenantCUIT, t.Service)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("crear directorio de tickets: %w", err)
	}
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar ticket: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("crear temporal: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op después del rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("escribir ticket: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cerrar temporal: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("reemplazar ticket: %w", err)
	}
	return nil
}

func (s *FileStore) path(cuit, service string) (string, error) {
	if !safeSegment(cuit) || !safeSegment(service) {
		return "", fmt.Errorf("clave de ticket inválida: %q/%q", cuit, service)
	}
	return filepath.Join(s.dir, cuit, service+".json"), nil
}

func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
