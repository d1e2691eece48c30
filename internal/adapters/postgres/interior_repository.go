package postgres_adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"interior-sync-service/internal/contextkeys"
	"interior-sync-service/internal/core/domain"
	"interior-sync-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresInteriorRepository - проекты и планировки. Числа (площадь, цена) ходят в БД строками
// с приведением к numeric, чтобы не терять точность.
type PostgresInteriorRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresInteriorRepository(pool *pgxpool.Pool) (*PostgresInteriorRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &PostgresInteriorRepository{pool: pool}, nil
}

const projectColumns = `id, name, slug, developer, address, status, extra, sync_hash, updated_at`

const layoutSelect = `
	SELECT l.id, l.project_id, p.slug, p.name, l.layout_code, l.unit_type,
	       l.area::text, l.price::text, l.image_ids, l.sync_hash, l.updated_at
	FROM interior_layouts l
	JOIN interior_projects p ON p.id = l.project_id
`

func (r *PostgresInteriorRepository) logger(ctx context.Context, method string) port.LoggerPort {
	return contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresInteriorRepository",
		"method":    method,
	})
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	var extraJSON []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Developer, &p.Address, &p.Status, &extraJSON, &p.SyncHash, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &p.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project extra: %w", err)
		}
		if len(p.Extra) == 0 {
			p.Extra = nil
		}
	}
	return &p, nil
}

func scanLayout(row pgx.Row) (*domain.Layout, error) {
	var l domain.Layout
	var unitType, area string
	var price *string
	if err := row.Scan(&l.ID, &l.ProjectID, &l.ProjectSlug, &l.ProjectName, &l.LayoutCode, &unitType,
		&area, &price, &l.ImageIDs, &l.SyncHash, &l.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if l.UnitType, err = domain.ParseUnitType(unitType); err != nil {
		return nil, fmt.Errorf("failed to parse layout unit type: %w", err)
	}
	if l.Area, err = decimal.NewFromString(area); err != nil {
		return nil, fmt.Errorf("failed to parse layout area %q: %w", area, err)
	}
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("failed to parse layout price %q: %w", *price, err)
		}
		l.Price = &p
	}
	if len(l.ImageIDs) == 0 {
		l.ImageIDs = nil
	}
	return &l, nil
}

func (r *PostgresInteriorRepository) FindProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	repoLogger := r.logger(ctx, "FindProjectByName")

	query := `SELECT ` + projectColumns + ` FROM interior_projects WHERE name_key = $1`
	project, err := scanProject(r.pool.QueryRow(ctx, query, domain.ProjectNameKey(name)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		repoLogger.Error("Failed to find project by name", err, port.Fields{"name": name})
		return nil, fmt.Errorf("failed to find project by name: %w", err)
	}
	return project, nil
}

func (r *PostgresInteriorRepository) FindProjectBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	repoLogger := r.logger(ctx, "FindProjectBySlug")

	query := `SELECT ` + projectColumns + ` FROM interior_projects WHERE slug = $1`
	project, err := scanProject(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		repoLogger.Error("Failed to find project by slug", err, port.Fields{"slug": slug})
		return nil, fmt.Errorf("failed to find project by slug: %w", err)
	}
	return project, nil
}

// UpsertProject: вставка или обновление по name_key. Слаг существующего проекта не меняется.
func (r *PostgresInteriorRepository) UpsertProject(ctx context.Context, project *domain.Project) (*domain.Project, error) {
	repoLogger := r.logger(ctx, "UpsertProject").WithFields(port.Fields{"project_name": project.Name})
	repoLogger.Debug("Upserting project", nil)

	id := project.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	extra := project.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project extra: %w", err)
	}

	query := `
		INSERT INTO interior_projects (id, name, name_key, slug, developer, address, status, extra, sync_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name,
			developer = EXCLUDED.developer,
			address = EXCLUDED.address,
			status = EXCLUDED.status,
			extra = EXCLUDED.extra,
			sync_hash = EXCLUDED.sync_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + projectColumns

	saved, err := scanProject(r.pool.QueryRow(ctx, query,
		id,
		project.Name,
		domain.ProjectNameKey(project.Name),
		project.Slug,
		project.Developer,
		project.Address,
		project.Status,
		extraJSON,
		project.SyncHash,
		time.Now().UTC(),
	))
	if err != nil {
		repoLogger.Error("Failed to upsert project", err, nil)
		return nil, fmt.Errorf("failed to upsert project %q: %w", project.Name, err)
	}

	repoLogger.Debug("Project upserted", port.Fields{"project_id": saved.ID.String(), "slug": saved.Slug})
	return saved, nil
}

func (r *PostgresInteriorRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	repoLogger := r.logger(ctx, "ListProjects")

	query := `SELECT ` + projectColumns + ` FROM interior_projects ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		repoLogger.Error("Failed to query projects", err, nil)
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			repoLogger.Error("Failed to scan project row", err, nil)
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

func (r *PostgresInteriorRepository) MarkProjectSynced(ctx context.Context, projectID uuid.UUID, syncHash string) error {
	repoLogger := r.logger(ctx, "MarkProjectSynced").WithFields(port.Fields{"project_id": projectID.String()})

	cmdTag, err := r.pool.Exec(ctx, `UPDATE interior_projects SET sync_hash = $2 WHERE id = $1`, projectID, syncHash)
	if err != nil {
		repoLogger.Error("Failed to mark project synced", err, nil)
		return fmt.Errorf("failed to mark project synced: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *PostgresInteriorRepository) FindLayoutByKey(ctx context.Context, key string) (*domain.Layout, error) {
	repoLogger := r.logger(ctx, "FindLayoutByKey")

	layout, err := scanLayout(r.pool.QueryRow(ctx, layoutSelect+` WHERE l.natural_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLayoutNotFound
		}
		repoLogger.Error("Failed to find layout by key", err, port.Fields{"key": key})
		return nil, fmt.Errorf("failed to find layout by key: %w", err)
	}
	return layout, nil
}

// UpsertLayout: вставка или обновление по natural_key
func (r *PostgresInteriorRepository) UpsertLayout(ctx context.Context, layout *domain.Layout) (*domain.Layout, error) {
	key := layout.Key()
	repoLogger := r.logger(ctx, "UpsertLayout").WithFields(port.Fields{"key": key})
	repoLogger.Debug("Upserting layout", nil)

	id := layout.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var price *string
	if layout.Price != nil {
		s := layout.Price.String()
		price = &s
	}
	imageIDs := layout.ImageIDs
	if imageIDs == nil {
		imageIDs = []string{}
	}

	query := `
		INSERT INTO interior_layouts (id, project_id, natural_key, layout_code, unit_type, area, price, image_ids, sync_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9, $10)
		ON CONFLICT (natural_key) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			layout_code = EXCLUDED.layout_code,
			unit_type = EXCLUDED.unit_type,
			area = EXCLUDED.area,
			price = EXCLUDED.price,
			image_ids = EXCLUDED.image_ids,
			sync_hash = EXCLUDED.sync_hash,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	var savedID uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		id,
		layout.ProjectID,
		key,
		layout.LayoutCode,
		layout.UnitType,
		layout.Area.String(),
		price,
		imageIDs,
		layout.SyncHash,
		time.Now().UTC(),
	).Scan(&savedID)
	if err != nil {
		repoLogger.Error("Failed to upsert layout", err, nil)
		return nil, fmt.Errorf("failed to upsert layout %s: %w", key, err)
	}

	saved, err := scanLayout(r.pool.QueryRow(ctx, layoutSelect+` WHERE l.id = $1`, savedID))
	if err != nil {
		repoLogger.Error("Failed to read back upserted layout", err, nil)
		return nil, fmt.Errorf("failed to read layout %s: %w", key, err)
	}
	return saved, nil
}

func (r *PostgresInteriorRepository) ListLayouts(ctx context.Context) ([]domain.Layout, error) {
	repoLogger := r.logger(ctx, "ListLayouts")

	rows, err := r.pool.Query(ctx, layoutSelect+` ORDER BY l.natural_key`)
	if err != nil {
		repoLogger.Error("Failed to query layouts", err, nil)
		return nil, fmt.Errorf("failed to query layouts: %w", err)
	}
	defer rows.Close()

	layouts := []domain.Layout{}
	for rows.Next() {
		l, err := scanLayout(rows)
		if err != nil {
			repoLogger.Error("Failed to scan layout row", err, nil)
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		layouts = append(layouts, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating layout rows: %w", err)
	}
	return layouts, nil
}

func (r *PostgresInteriorRepository) MarkLayoutSynced(ctx context.Context, layoutID uuid.UUID, syncHash string) error {
	repoLogger := r.logger(ctx, "MarkLayoutSynced").WithFields(port.Fields{"layout_id": layoutID.String()})

	cmdTag, err := r.pool.Exec(ctx, `UPDATE interior_layouts SET sync_hash = $2 WHERE id = $1`, layoutID, syncHash)
	if err != nil {
		repoLogger.Error("Failed to mark layout synced", err, nil)
		return fmt.Errorf("failed to mark layout synced: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLayoutNotFound
	}
	return nil
}
