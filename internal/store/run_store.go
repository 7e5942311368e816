package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"basegraph.app/ticketsmith/core/db"
	"basegraph.app/ticketsmith/internal/model"
)

// RunStore is the ledger of decomposition runs and the tracker items each one created.
type RunStore interface {
	Start(ctx context.Context, runID int64, pageURL string) error
	SetPage(ctx context.Context, runID int64, title, projectKey string) error
	SetEpic(ctx context.Context, runID int64, epicKey string) error
	AddItem(ctx context.Context, item model.DecompositionRunItem) error
	Finish(ctx context.Context, runID int64, status model.RunStatus, errMsg *string) error
	Get(ctx context.Context, runID int64) (*model.DecompositionRun, []model.DecompositionRunItem, error)
}

type runStore struct {
	q      DBTX
	withTx func(ctx context.Context, fn func(q DBTX) error) error
}

func NewRunStore(database *db.DB) RunStore {
	return &runStore{
		q: database.Pool(),
		withTx: func(ctx context.Context, fn func(q DBTX) error) error {
			return database.WithTx(ctx, func(tx pgx.Tx) error {
				return fn(tx)
			})
		},
	}
}

const (
	insertRunSQL = `INSERT INTO decomposition_runs (id, page_url, status) VALUES ($1, $2, $3)`

	setRunPageSQL = `UPDATE decomposition_runs SET page_title = $2, project_key = $3 WHERE id = $1`

	setRunEpicSQL = `UPDATE decomposition_runs SET epic_key = $2 WHERE id = $1`

	insertRunItemSQL = `INSERT INTO decomposition_run_items (run_id, position, summary, item_key) VALUES ($1, $2, $3, $4)`

	finishRunSQL = `UPDATE decomposition_runs SET status = $2, error = $3, finished_at = now() WHERE id = $1`

	getRunSQL = `SELECT id, page_url, page_title, project_key, epic_key, status, error, created_at, finished_at
		FROM decomposition_runs WHERE id = $1`

	listRunItemsSQL = `SELECT run_id, position, summary, item_key
		FROM decomposition_run_items WHERE run_id = $1 ORDER BY position`
)

func (s *runStore) Start(ctx context.Context, runID int64, pageURL string) error {
	if _, err := s.q.Exec(ctx, insertRunSQL, runID, pageURL, string(model.RunStatusStarted)); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (s *runStore) SetPage(ctx context.Context, runID int64, title, projectKey string) error {
	if _, err := s.q.Exec(ctx, setRunPageSQL, runID, title, projectKey); err != nil {
		return fmt.Errorf("updating run page: %w", err)
	}
	return nil
}

func (s *runStore) SetEpic(ctx context.Context, runID int64, epicKey string) error {
	if _, err := s.q.Exec(ctx, setRunEpicSQL, runID, epicKey); err != nil {
		return fmt.Errorf("updating run epic: %w", err)
	}
	return nil
}

func (s *runStore) AddItem(ctx context.Context, item model.DecompositionRunItem) error {
	if _, err := s.q.Exec(ctx, insertRunItemSQL, item.RunID, item.Position, item.Summary, item.ItemKey); err != nil {
		return fmt.Errorf("inserting run item: %w", err)
	}
	return nil
}

func (s *runStore) Finish(ctx context.Context, runID int64, status model.RunStatus, errMsg *string) error {
	if _, err := s.q.Exec(ctx, finishRunSQL, runID, string(status), errMsg); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Get reads a run and its items from one snapshot.
func (s *runStore) Get(ctx context.Context, runID int64) (*model.DecompositionRun, []model.DecompositionRunItem, error) {
	var (
		run   *model.DecompositionRun
		items []model.DecompositionRunItem
	)

	err := s.withTx(ctx, func(q DBTX) error {
		var err error
		run, err = scanRun(q.QueryRow(ctx, getRunSQL, runID))
		if err != nil {
			return err
		}

		rows, err := q.Query(ctx, listRunItemsSQL, runID)
		if err != nil {
			return fmt.Errorf("listing run items: %w", err)
		}
		defer rows.Close()

		items = make([]model.DecompositionRunItem, 0)
		for rows.Next() {
			var item model.DecompositionRunItem
			if err := rows.Scan(&item.RunID, &item.Position, &item.Summary, &item.ItemKey); err != nil {
				return fmt.Errorf("scanning run item: %w", err)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	return run, items, nil
}

func scanRun(row pgx.Row) (*model.DecompositionRun, error) {
	var (
		run        model.DecompositionRun
		title      *string
		projectKey *string
		status     string
		finishedAt *time.Time
	)

	err := row.Scan(&run.ID, &run.PageURL, &title, &projectKey, &run.EpicKey, &status, &run.Error, &run.CreatedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading run: %w", err)
	}

	if title != nil {
		run.PageTitle = *title
	}
	if projectKey != nil {
		run.ProjectKey = *projectKey
	}
	run.Status = model.RunStatus(status)
	run.FinishedAt = finishedAt
	return &run, nil
}

type noopRunStore struct{}

// NewNoopRunStore is used when no database is configured.
func NewNoopRunStore() RunStore {
	return noopRunStore{}
}

func (noopRunStore) Start(context.Context, int64, string) error { return nil }

func (noopRunStore) SetPage(context.Context, int64, string, string) error { return nil }

func (noopRunStore) SetEpic(context.Context, int64, string) error { return nil }

func (noopRunStore) AddItem(context.Context, model.DecompositionRunItem) error { return nil }

func (noopRunStore) Finish(context.Context, int64, model.RunStatus, *string) error { return nil }

func (noopRunStore) Get(context.Context, int64) (*model.DecompositionRun, []model.DecompositionRunItem, error) {
	return nil, nil, ErrNotFound
}
