// Package scenario persists named simulation setups so a parameter set and
// its ignition points can be re-run later.
package scenario

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pyrelab/firespread/internal/firemodel"
	"github.com/pyrelab/firespread/internal/sim"
)

// Scenario is a saved simulation setup.
type Scenario struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Parameters  firemodel.Parameters `json:"parameters"`
	Ignitions   []sim.IgnitionPoint  `json:"ignitionPoints"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Store is a sqlite-backed scenario store.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the scenario database at path. Callers must run
// MigrateUp before using the store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario database: %w", err)
	}
	// sqlite allows one writer; avoid "database is locked" under
	// concurrent API calls.
	db.SetMaxOpenConns(1)
	return &Store{db}, nil
}

// Create inserts a scenario. A missing ID is generated. The name must be
// unique; a duplicate fails with ErrConflict.
func (s *Store) Create(sc *Scenario) error {
	if strings.TrimSpace(sc.Name) == "" {
		return fmt.Errorf("%w: scenario name is required", sim.ErrInvalidInput)
	}
	if err := sc.Parameters.Validate(); err != nil {
		return fmt.Errorf("%w: %v", sim.ErrInvalidInput, err)
	}
	if len(sc.Ignitions) == 0 {
		return fmt.Errorf("%w: at least one ignition point is required", sim.ErrInvalidInput)
	}

	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	// Truncate to seconds so the stored unix timestamp round-trips.
	now := time.Now().UTC().Truncate(time.Second)
	sc.CreatedAt = now
	sc.UpdatedAt = now

	paramsJSON, ignitionsJSON, err := marshalPayload(sc)
	if err != nil {
		return err
	}

	_, err = s.Exec(
		`INSERT INTO scenarios (id, name, description, params_json, ignitions_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Name, sc.Description, paramsJSON, ignitionsJSON, now.Unix(), now.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: scenario %q", sim.ErrConflict, sc.Name)
		}
		return fmt.Errorf("failed to insert scenario: %w", err)
	}
	return nil
}

// Get returns the scenario with the given id.
func (s *Store) Get(id string) (*Scenario, error) {
	row := s.QueryRow(
		`SELECT id, name, description, params_json, ignitions_json, created_at, updated_at
		 FROM scenarios WHERE id = ?`, id)
	sc, err := scanScenario(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: scenario %s", sim.ErrNotFound, id)
	}
	return sc, err
}

// List returns all scenarios, newest first.
func (s *Store) List() ([]*Scenario, error) {
	rows, err := s.Query(
		`SELECT id, name, description, params_json, ignitions_json, created_at, updated_at
		 FROM scenarios ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var out []*Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of a scenario.
func (s *Store) Update(sc *Scenario) error {
	if err := sc.Parameters.Validate(); err != nil {
		return fmt.Errorf("%w: %v", sim.ErrInvalidInput, err)
	}
	if len(sc.Ignitions) == 0 {
		return fmt.Errorf("%w: at least one ignition point is required", sim.ErrInvalidInput)
	}

	paramsJSON, ignitionsJSON, err := marshalPayload(sc)
	if err != nil {
		return err
	}
	sc.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := s.Exec(
		`UPDATE scenarios
		 SET name = ?, description = ?, params_json = ?, ignitions_json = ?, updated_at = ?
		 WHERE id = ?`,
		sc.Name, sc.Description, paramsJSON, ignitionsJSON, sc.UpdatedAt.Unix(), sc.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: scenario %q", sim.ErrConflict, sc.Name)
		}
		return fmt.Errorf("failed to update scenario: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: scenario %s", sim.ErrNotFound, sc.ID)
	}
	return nil
}

// Delete removes a scenario.
func (s *Store) Delete(id string) error {
	res, err := s.Exec(`DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: scenario %s", sim.ErrNotFound, id)
	}
	return nil
}

// Count returns the number of stored scenarios.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.QueryRow(`SELECT COUNT(*) FROM scenarios`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scenarios: %w", err)
	}
	return n, nil
}

func marshalPayload(sc *Scenario) (paramsJSON, ignitionsJSON []byte, err error) {
	paramsJSON, err = json.Marshal(sc.Parameters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}
	ignitionsJSON, err = json.Marshal(sc.Ignitions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal ignition points: %w", err)
	}
	return paramsJSON, ignitionsJSON, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanScenario(row scanner) (*Scenario, error) {
	var sc Scenario
	var paramsJSON, ignitionsJSON []byte
	var createdAtUnix, updatedAtUnix int64
	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &paramsJSON, &ignitionsJSON, &createdAtUnix, &updatedAtUnix)
	if err != nil {
		return nil, err
	}
	sc.CreatedAt = time.Unix(createdAtUnix, 0).UTC()
	sc.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	if err := json.Unmarshal(paramsJSON, &sc.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal(ignitionsJSON, &sc.Ignitions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ignition points: %w", err)
	}
	return &sc, nil
}
