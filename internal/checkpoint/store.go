// Package checkpoint persists a Graph/Scheduler snapshot to a sqlite
// database so a crashed coordinator can resume a pipeline run without
// re-dispatching already-finished stages. The schema is versioned with
// goose; the driver is the pure-Go modernc.org/sqlite, so no cgo toolchain
// is required to build or run it.
package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fluxdag/fluxdag/internal/digraph"
	"github.com/fluxdag/fluxdag/internal/digraph/scheduler"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a sqlite-backed checkpoint database. It satisfies
// coordinator.CheckpointSaver.
type Store struct {
	db           *sql.DB
	pipelineName string
}

// Open opens (creating if necessary) the sqlite database at path and brings
// its schema up to the latest migration. pipelineName is recorded on every
// Save call and surfaced by LoadStatus for `fluxdag status`.
func Open(path, pipelineName string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, pipelineName: pipelineName}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save overwrites the checkpoint with a full snapshot of g and sched,
// recording every stage, its derived edges, identity/output hashes, and
// processed-set membership, inside a single transaction. It satisfies
// coordinator.CheckpointSaver.
func (s *Store) Save(ctx context.Context, g *digraph.Graph, sched *scheduler.Scheduler) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"processed", "output_hashes", "stage_hashes", "edges", "stages", "graph_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO graph_meta (id, pipeline_name, updated_at) VALUES (1, ?, ?)",
		s.pipelineName, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("write graph_meta: %w", err)
	}

	for i := 0; i < g.Len(); i++ {
		stage := g.Stage(i)

		argsJSON, err := json.Marshal(stage.Args)
		if err != nil {
			return fmt.Errorf("marshal stage %d args: %w", i, err)
		}
		inputsJSON, err := json.Marshal(stage.Inputs)
		if err != nil {
			return fmt.Errorf("marshal stage %d inputs: %w", i, err)
		}
		outputsJSON, err := json.Marshal(stage.Outputs)
		if err != nil {
			return fmt.Errorf("marshal stage %d outputs: %w", i, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stages (idx, name, kind, identity, log_path, memory_gb, cpu_slots, status, args_json, inputs_json, outputs_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, stage.Name, int(stage.Kind), stage.Identity, stage.LogPath, stage.MemoryGB, stage.CPUSlots, int(g.Status(i)),
			string(argsJSON), string(inputsJSON), string(outputsJSON),
		); err != nil {
			return fmt.Errorf("write stage %d: %w", i, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO stage_hashes (identity, idx) VALUES (?, ?)", stage.Identity, i,
		); err != nil {
			return fmt.Errorf("write stage_hashes %d: %w", i, err)
		}

		for _, out := range stage.Outputs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO output_hashes (output, idx) VALUES (?, ?)", out, i,
			); err != nil {
				return fmt.Errorf("write output_hashes %d: %w", i, err)
			}
		}

		for _, succ := range g.Successors(i) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO edges (from_idx, to_idx) VALUES (?, ?)", i, succ,
			); err != nil {
				return fmt.Errorf("write edge %d->%d: %w", i, succ, err)
			}
		}

		if sched.Processed(i) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO processed (idx) VALUES (?)", i,
			); err != nil {
				return fmt.Errorf("write processed %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// StageRow is a flattened checkpoint row used by callers (notably `fluxdag
// status`) that only need a stage's persisted name/status, not a live Graph.
type StageRow struct {
	Index  int
	Name   string
	Status digraph.Status
}

// LoadStatus returns the persisted pipeline name and every stage's name and
// status, ordered by index, without reconstructing a Graph.
func (s *Store) LoadStatus(ctx context.Context) (pipelineName string, rows []StageRow, err error) {
	if err := s.db.QueryRowContext(ctx, "SELECT pipeline_name FROM graph_meta WHERE id = 1").Scan(&pipelineName); err != nil {
		if err != sql.ErrNoRows {
			return "", nil, fmt.Errorf("read graph_meta: %w", err)
		}
	}

	result, err := s.db.QueryContext(ctx, "SELECT idx, name, status FROM stages ORDER BY idx")
	if err != nil {
		return "", nil, fmt.Errorf("read stages: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var row StageRow
		var status int
		if err := result.Scan(&row.Index, &row.Name, &status); err != nil {
			return "", nil, fmt.Errorf("scan stage row: %w", err)
		}
		row.Status = digraph.Status(status)
		rows = append(rows, row)
	}
	return pipelineName, rows, result.Err()
}

// Load reconstructs a Graph and a reconciled Scheduler from the checkpoint.
// It returns (nil, nil, nil) if no checkpoint has been saved yet, so the
// caller can distinguish "cold start" from an error.
func (s *Store) Load(ctx context.Context) (*digraph.Graph, *scheduler.Scheduler, error) {
	result, err := s.db.QueryContext(ctx, `
		SELECT idx, name, kind, identity, log_path, memory_gb, cpu_slots, status, args_json, inputs_json, outputs_json
		FROM stages ORDER BY idx`)
	if err != nil {
		return nil, nil, fmt.Errorf("read stages: %w", err)
	}
	defer result.Close()

	type persistedStage struct {
		stage  digraph.Stage
		status digraph.Status
	}
	var persisted []persistedStage

	for result.Next() {
		var (
			idx, kind, cpuSlots, status                    int
			name, logPath, argsJSON, inputsJSON, outputsJS string
			identity                                       string
			memoryGB                                       float64
		)
		if err := result.Scan(&idx, &name, &kind, &identity, &logPath, &memoryGB, &cpuSlots, &status, &argsJSON, &inputsJSON, &outputsJS); err != nil {
			return nil, nil, fmt.Errorf("scan stage row: %w", err)
		}

		var args []digraph.Arg
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, nil, fmt.Errorf("unmarshal stage %d args: %w", idx, err)
		}
		var inputs, outputs []string
		if err := json.Unmarshal([]byte(inputsJSON), &inputs); err != nil {
			return nil, nil, fmt.Errorf("unmarshal stage %d inputs: %w", idx, err)
		}
		if err := json.Unmarshal([]byte(outputsJS), &outputs); err != nil {
			return nil, nil, fmt.Errorf("unmarshal stage %d outputs: %w", idx, err)
		}

		persisted = append(persisted, persistedStage{
			stage: digraph.Stage{
				Name:     name,
				Kind:     digraph.Kind(kind),
				Args:     args,
				Inputs:   inputs,
				Outputs:  outputs,
				LogPath:  logPath,
				MemoryGB: memoryGB,
				CPUSlots: cpuSlots,
				Identity: identity,
			},
			status: digraph.Status(status),
		})
	}
	if err := result.Err(); err != nil {
		return nil, nil, err
	}
	if len(persisted) == 0 {
		return nil, nil, nil
	}

	g := digraph.NewGraph()
	for _, p := range persisted {
		if _, _, err := g.Add(p.stage); err != nil {
			return nil, nil, fmt.Errorf("replay stage %q: %w", p.stage.Name, err)
		}
	}
	if _, err := g.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize replayed graph: %w", err)
	}

	for i, p := range persisted {
		status := p.status
		if status == digraph.StatusRunnable {
			// A stage sitting in the ready-queue at checkpoint time was never
			// dispatched; treat it the same as an interrupted run.
			status = digraph.StatusUnset
		}
		g.SetStatus(i, status)
	}

	sched := scheduler.New(g)
	if err := sched.Reconcile(); err != nil {
		return nil, nil, fmt.Errorf("reconcile restored graph: %w", err)
	}

	return g, sched, nil
}
