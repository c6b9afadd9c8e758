package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.IngestionRunRepository = (*IngestionRunRepo)(nil)

type ingestionRunRow struct {
	ID                  int64  `db:"id"`
	RunID               string `db:"run_id"`
	ProcessingDate      string `db:"processing_date"`
	Status              string `db:"status"`
	Fetched             int    `db:"fetched"`
	Normalized          int    `db:"normalized"`
	NormalizationFailed int    `db:"normalization_failed"`
	Accepted            int    `db:"accepted"`
	Rejected            int    `db:"rejected"`
	NotesCreated        int    `db:"notes_created"`
	NotesDuplicate      int    `db:"notes_duplicate"`
	NotesFiltered       int    `db:"notes_filtered"`
	Applications        int    `db:"applications"`
	StoreFailures       int    `db:"store_failures"`
	Error               string `db:"error"`
	StartedAt           string `db:"started_at"`
	FinishedAt          string `db:"finished_at"`
}

// IngestionRunRepo implementa repository.IngestionRunRepository.
type IngestionRunRepo struct {
	q Querier
}

// NewIngestionRunRepository construye el repositorio.
func NewIngestionRunRepository(q Querier) *IngestionRunRepo {
	return &IngestionRunRepo{q: q}
}

// Insert guarda el resultado de una corrida. run_id es único.
func (r *IngestionRunRepo) Insert(ctx context.Context, run *entity.IngestionRun) error {
	row := ingestionRunRow{
		RunID:               run.RunID,
		ProcessingDate:      formatDate(run.ProcessingDate),
		Status:              run.Status,
		Fetched:             run.Fetched,
		Normalized:          run.Normalized,
		NormalizationFailed: run.NormalizationFailed,
		Accepted:            run.Accepted,
		Rejected:            run.Rejected,
		NotesCreated:        run.NotesCreated,
		NotesDuplicate:      run.NotesDuplicate,
		NotesFiltered:       run.NotesFiltered,
		Applications:        run.Applications,
		StoreFailures:       run.StoreFailures,
		Error:               run.Error,
		StartedAt:           formatTimestamp(run.StartedAt),
		FinishedAt:          formatTimestamp(run.FinishedAt),
	}
	query := `INSERT INTO ingestion_runs (
			run_id, processing_date, status, fetched, normalized, normalization_failed,
			accepted, rejected, notes_created, notes_duplicate, notes_filtered,
			applications, store_failures, error, started_at, finished_at
		) VALUES (
			:run_id, :processing_date, :status, :fetched, :normalized, :normalization_failed,
			:accepted, :rejected, :notes_created, :notes_duplicate, :notes_filtered,
			:applications, :store_failures, :error, :started_at, :finished_at
		) RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.q, query, row)
	if err != nil {
		return storeErr("registrar corrida", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&run.ID); err != nil {
			return storeErr("registrar corrida", err)
		}
	}
	return storeErr("registrar corrida", rows.Err())
}

// ListRecent últimas corridas, la más reciente primero.
func (r *IngestionRunRepo) ListRecent(ctx context.Context, limit int) ([]*entity.IngestionRun, error) {
	limit, _ = pageArgs(limit, 0)
	var rows []ingestionRunRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(`SELECT
			id, run_id, processing_date, status, fetched, normalized, normalization_failed,
			accepted, rejected, notes_created, notes_duplicate, notes_filtered,
			applications, store_failures, error, started_at, finished_at
		FROM ingestion_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`), limit); err != nil {
		return nil, storeErr("listar corridas", err)
	}

	out := make([]*entity.IngestionRun, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.ProcessingDate)
		if err != nil {
			return nil, err
		}
		started, err := parseTimestamp(row.StartedAt)
		if err != nil {
			return nil, err
		}
		finished, err := parseTimestamp(row.FinishedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, &entity.IngestionRun{
			ID:                  row.ID,
			RunID:               row.RunID,
			ProcessingDate:      date,
			Status:              row.Status,
			Fetched:             row.Fetched,
			Normalized:          row.Normalized,
			NormalizationFailed: row.NormalizationFailed,
			Accepted:            row.Accepted,
			Rejected:            row.Rejected,
			NotesCreated:        row.NotesCreated,
			NotesDuplicate:      row.NotesDuplicate,
			NotesFiltered:       row.NotesFiltered,
			Applications:        row.Applications,
			StoreFailures:       row.StoreFailures,
			Error:               row.Error,
			StartedAt:           started,
			FinishedAt:          finished,
		})
	}
	return out, nil
}
